package gpt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeviceEnsureValidFailsOnBlankDisk(t *testing.T) {
	io := newTestDevice(t, testDiskBlocks)
	dev := Open(io)
	err := dev.EnsureValid()
	assert.Error(t, err)
	assert.Equal(t, KindNotGpt, KindOf(err))
}

func TestDeviceEnsureValidSucceedsAfterWriteGPT(t *testing.T) {
	dev := freshDevice(t)
	assert.NoError(t, dev.EnsureValid())
}

func TestDeviceEnsureValidOnlyValidatesOnceUntilInvalidated(t *testing.T) {
	dev := freshDevice(t)
	assert.NoError(t, dev.EnsureValid())

	// Corrupt the primary header directly on disk. EnsureValid should not
	// notice, since nothing has invalidated the cached result yet.
	lb := int64(dev.IO.LogicalBlockSize())
	raw, err := dev.IO.ReadBytes(lb, int(lb))
	assert.NoError(t, err)
	raw[24] ^= 0xFF
	assert.NoError(t, dev.IO.WriteBytes(lb, raw))

	assert.NoError(t, dev.EnsureValid())

	// Validate always re-reads, so it does notice.
	_, err = dev.Validate()
	assert.Error(t, err)
}

func TestDeviceEntryBySlot(t *testing.T) {
	dev := freshDevice(t)
	assert.NoError(t, dev.SetEntry(1, mustGUID(t, "0FC63DAF-8483-4772-8E79-3D69D8477DE4"), UUID{}, 2048, 102400, "", "root"))

	e, ok := dev.entryBySlot(1)
	assert.True(t, ok)
	assert.Equal(t, uint64(2048), e.StartLBA)

	_, ok = dev.entryBySlot(2)
	assert.False(t, ok)
}

func TestDeviceMutationInvalidatesCache(t *testing.T) {
	dev := freshDevice(t)
	assert.NoError(t, dev.EnsureValid())
	assert.NoError(t, dev.SetEntry(1, mustGUID(t, "0FC63DAF-8483-4772-8E79-3D69D8477DE4"), UUID{}, 2048, 102400, "", "root"))

	kind, err := dev.Validate()
	assert.NoError(t, err)
	assert.Equal(t, KindNone, kind)
	assert.Len(t, dev.Entries, 1)
}
