package gpt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const testDiskBlocks = 204800 // 100 MiB at 512-byte blocks, lastLBA=204799

func freshDevice(t *testing.T) *Device {
	t.Helper()
	io := newTestDevice(t, testDiskBlocks)
	dev := Open(io)
	assert.NoError(t, dev.WriteGPT(0, 0, 0, UUID{}, Padding{}))
	return dev
}

func TestCheckDeviceValidFreshTable(t *testing.T) {
	dev := freshDevice(t)
	kind, err := dev.Validate()
	assert.NoError(t, err)
	assert.Equal(t, KindNone, kind)
	assert.True(t, dev.SaneParts)
	assert.Equal(t, uint64(34), dev.Primary.FirstUsableLBA)
	assert.Equal(t, uint64(204766), dev.Primary.LastUsableLBA)
	assert.Equal(t, uint64(2), dev.Primary.PtableLBA)
}

func TestCheckDeviceNotGptOnBlankDisk(t *testing.T) {
	io := newTestDevice(t, testDiskBlocks)
	dev := Open(io)
	kind, err := dev.Validate()
	assert.Error(t, err)
	assert.Equal(t, KindNotGpt, kind)
}

func TestCheckDeviceDetectsCorruptPrimaryHeader(t *testing.T) {
	dev := freshDevice(t)

	raw, err := dev.IO.ReadBytes(int64(dev.IO.LogicalBlockSize()), int(dev.IO.LogicalBlockSize()))
	assert.NoError(t, err)
	raw[24] ^= 0xFF // flip a byte inside ThisLBA, after the CRC was computed
	assert.NoError(t, dev.IO.WriteBytes(int64(dev.IO.LogicalBlockSize()), raw))

	kind, err := dev.Validate()
	assert.Error(t, err)
	assert.Equal(t, KindCorrupt, kind)
	// backup read cleanly, so it's still carried in the partial result
	assert.NotZero(t, dev.Backup.HeaderSize)
}

func TestCheckDeviceDetectsCorruptBackupHeader(t *testing.T) {
	dev := freshDevice(t)
	lastLBA := dev.IO.LastLBA()
	lb := int64(dev.IO.LogicalBlockSize())

	raw, err := dev.IO.ReadBytes(int64(lastLBA)*lb, int(lb))
	assert.NoError(t, err)
	raw[24] ^= 0xFF
	assert.NoError(t, dev.IO.WriteBytes(int64(lastLBA)*lb, raw))

	kind, err := dev.Validate()
	assert.Error(t, err)
	assert.Equal(t, KindCorruptBackup, kind)
	assert.NotZero(t, dev.Primary.HeaderSize)
}

func TestCheckDeviceDetectsPtableCorruption(t *testing.T) {
	dev := freshDevice(t)
	assert.NoError(t, dev.SetEntry(1, mustGUID(t, "0FC63DAF-8483-4772-8E79-3D69D8477DE4"), UUID{}, 2048, 102400, "", "root"))

	lb := int64(dev.IO.LogicalBlockSize())
	ptableOffset := int64(dev.Primary.PtableLBA) * lb
	raw, err := dev.IO.ReadBytes(ptableOffset, int(dev.Primary.EntrySize))
	assert.NoError(t, err)
	raw[60] ^= 0xFF // flip a byte inside the first entry's label
	assert.NoError(t, dev.IO.WriteBytes(ptableOffset, raw))

	kind, err := dev.Validate()
	assert.Error(t, err)
	assert.Equal(t, KindCorruptPtable, kind)
}

func TestCheckDeviceDetectsOverlap(t *testing.T) {
	dev := freshDevice(t)
	assert.NoError(t, dev.SetEntry(1, mustGUID(t, "0FC63DAF-8483-4772-8E79-3D69D8477DE4"), UUID{}, 2048, 4096, "", "a"))

	// GuessFree would refuse an overlapping request, so the second
	// overlapping entry is written directly via writeBoth, bypassing the
	// free-space planner, to exercise the overlap detector in isolation.
	second, err := NewV4()
	assert.NoError(t, err)
	overlapping := Entry{
		SlotIndex: 1,
		TypeGUID:  mustGUID(t, "0FC63DAF-8483-4772-8E79-3D69D8477DE4"),
		PartGUID:  second,
		StartLBA:  4000,
		EndLBA:    5000,
	}
	entries := replaceEntry(dev.Entries, overlapping)
	assert.NoError(t, dev.writeBoth(dev.Primary, dev.Backup, entries))

	kind, err := dev.Validate()
	assert.NoError(t, err) // both headers still check out structurally
	assert.Equal(t, KindNone, kind)
	assert.False(t, dev.SaneParts)
}

func mustGUID(t *testing.T, s string) UUID {
	t.Helper()
	g, err := TextToBytes(s)
	assert.NoError(t, err)
	return g
}
