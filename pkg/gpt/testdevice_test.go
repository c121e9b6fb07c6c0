package gpt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gptctl/gptctl/pkg/blockio"
)

// newTestDevice creates a zero-filled sizeBlocks*512 temp file and opens it
// read-write, giving tests a blockio.Device backed by a plain file (the
// same fallback path spec.md §6 describes for a non-block-device target).
func newTestDevice(t *testing.T, sizeBlocks uint64) *blockio.Device {
	t.Helper()
	path := filepath.Join(t.TempDir(), "disk.img")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Truncate(int64(sizeBlocks) * 512); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	io, err := blockio.Open(path, true)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { io.Close() })
	return io
}
