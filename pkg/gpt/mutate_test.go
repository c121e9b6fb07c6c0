package gpt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const efiSystemType = "C12A7328-F81F-11D2-BA4B-00A0C93EC93B"
const linuxFSType = "0FC63DAF-8483-4772-8E79-3D69D8477DE4"

func TestWriteGPTDefaults(t *testing.T) {
	dev := freshDevice(t)
	kind, err := dev.Validate()
	assert.NoError(t, err)
	assert.Equal(t, KindNone, kind)
	assert.Equal(t, uint32(defaultPtableEntries), dev.Primary.PtableEntries)
	assert.Equal(t, uint32(MinEntrySize), dev.Primary.EntrySize)
	assert.Equal(t, uint32(HeaderSize), dev.Primary.HeaderSize)
	assert.False(t, dev.Primary.DiskGUID.IsZero())
	assert.Equal(t, dev.Primary.DiskGUID, dev.Backup.DiskGUID)
}

func TestWriteGPTHonorsExplicitDiskGUID(t *testing.T) {
	io := newTestDevice(t, testDiskBlocks)
	dev := Open(io)
	guid, err := NewV4()
	assert.NoError(t, err)
	assert.NoError(t, dev.WriteGPT(0, 0, 0, guid, Padding{}))
	_, err = dev.Validate()
	assert.NoError(t, err)
	assert.Equal(t, guid, dev.Primary.DiskGUID)
}

func TestWriteGPTHonorsPadding(t *testing.T) {
	io := newTestDevice(t, testDiskBlocks)
	dev := Open(io)
	pad := Padding{PrePrimary: 10, PostPrimary: 5, PreBackup: 5, PostBackup: 10}
	assert.NoError(t, dev.WriteGPT(0, 0, 0, UUID{}, pad))
	_, err := dev.Validate()
	assert.NoError(t, err)
	assert.Equal(t, uint64(2+10), dev.Primary.PtableLBA)
}

func TestWriteGPTHonorsCustomEntryCount(t *testing.T) {
	io := newTestDevice(t, testDiskBlocks)
	dev := Open(io)
	assert.NoError(t, dev.WriteGPT(0, 0, 256, UUID{}, Padding{}))
	_, err := dev.Validate()
	assert.NoError(t, err)
	assert.Equal(t, uint32(256), dev.Primary.PtableEntries)
}

func TestWriteGPTRejectsUndersizedTable(t *testing.T) {
	io := newTestDevice(t, testDiskBlocks)
	dev := Open(io)
	err := dev.WriteGPT(0, 0, 1, UUID{}, Padding{})
	assert.Error(t, err)
	assert.Equal(t, KindUnexpected, KindOf(err))
}

func TestWriteMBRMatchesDeviceSize(t *testing.T) {
	io := newTestDevice(t, testDiskBlocks)
	dev := Open(io)
	assert.NoError(t, dev.WriteMBR())

	raw, err := dev.IO.ReadBytes(0, MBRSize)
	assert.NoError(t, err)
	mbr := DecodeMBR(raw)
	assert.Equal(t, byte(0xEE), mbr.PartType)
	assert.Equal(t, uint32(testDiskBlocks-1), mbr.SizeLBA)
}

func TestSetEntryCreatesNewPopulatedSlot(t *testing.T) {
	dev := freshDevice(t)
	err := dev.SetEntry(1, mustGUID(t, efiSystemType), UUID{}, 2048, 102400, "", "boot")
	assert.NoError(t, err)

	_, err = dev.Validate()
	assert.NoError(t, err)
	assert.Len(t, dev.Entries, 1)
	e := dev.Entries[0]
	assert.Equal(t, 0, e.SlotIndex)
	assert.Equal(t, uint64(2048), e.StartLBA)
	assert.Equal(t, uint64(102400), e.EndLBA)
	assert.Equal(t, "boot", decodeLabelText(t, e))
	assert.False(t, e.PartGUID.IsZero())
}

func TestSetEntryDefaultsTypeGUIDForNewSlot(t *testing.T) {
	dev := freshDevice(t)
	err := dev.SetEntry(2, UUID{}, UUID{}, 2048, 102400, "", "root")
	assert.NoError(t, err)

	_, err = dev.Validate()
	assert.NoError(t, err)
	assert.Len(t, dev.Entries, 1)
	assert.Equal(t, defaultTypeGUID, dev.Entries[0].TypeGUID)
}

func TestSetEntryUpdatesExistingWithoutChangingUnspecifiedFields(t *testing.T) {
	dev := freshDevice(t)
	assert.NoError(t, dev.SetEntry(1, mustGUID(t, efiSystemType), UUID{}, 2048, 102400, "", "boot"))
	_, err := dev.Validate()
	assert.NoError(t, err)
	originalPartGUID := dev.Entries[0].PartGUID

	assert.NoError(t, dev.SetEntry(1, UUID{}, UUID{}, 0, 0, "", "renamed"))
	_, err = dev.Validate()
	assert.NoError(t, err)
	e := dev.Entries[0]
	assert.Equal(t, originalPartGUID, e.PartGUID)
	assert.Equal(t, uint64(2048), e.StartLBA)
	assert.Equal(t, "renamed", decodeLabelText(t, e))
}

func TestSetEntryInfersFreeSpaceWhenRangeOmitted(t *testing.T) {
	dev := freshDevice(t)
	err := dev.SetEntry(1, mustGUID(t, efiSystemType), UUID{}, 0, 0, "", "whole-disk")
	assert.NoError(t, err)
	_, err = dev.Validate()
	assert.NoError(t, err)
	e := dev.Entries[0]
	assert.Equal(t, dev.Primary.FirstUsableLBA, e.StartLBA)
	assert.Equal(t, dev.Primary.LastUsableLBA, e.EndLBA)
}

func TestSetEntryAppliesAttrAndRejectsOverlap(t *testing.T) {
	dev := freshDevice(t)
	// 16 chars for the type-specific span (bits 63-48), 45 reserved
	// dashes (bits 47-3), then 3 common-attribute bits (bits 2-0):
	// legacy-bootable=1, no-block-io=keep, required=1.
	attrString := "----------------" + "---------------------------------------------" + "1-1"
	assert.NoError(t, dev.SetEntry(1, mustGUID(t, efiSystemType), UUID{}, 2048, 102400, attrString, ""))
	_, err := dev.Validate()
	assert.NoError(t, err)
	e := dev.Entries[0]
	assert.True(t, e.Required())
	assert.True(t, e.LegacyBootable())

	err = dev.SetEntry(2, mustGUID(t, linuxFSType), UUID{}, 100000, 300000, "", "overlap")
	assert.Error(t, err)
	assert.Equal(t, KindNoFit, KindOf(err))
}

func TestDelEntryClearsSlot(t *testing.T) {
	dev := freshDevice(t)
	assert.NoError(t, dev.SetEntry(1, mustGUID(t, efiSystemType), UUID{}, 2048, 102400, "", "boot"))
	assert.NoError(t, dev.DelEntry(1))

	_, err := dev.Validate()
	assert.NoError(t, err)
	assert.Empty(t, dev.Entries)
}

func TestDelEntryRejectsEmptySlot(t *testing.T) {
	dev := freshDevice(t)
	err := dev.DelEntry(5)
	assert.Error(t, err)
	assert.Equal(t, KindParse, KindOf(err))
}

func TestMoveEntryRelocatesRange(t *testing.T) {
	dev := freshDevice(t)
	assert.NoError(t, dev.SetEntry(1, mustGUID(t, efiSystemType), UUID{}, 2048, 4096, "", "a"))
	assert.NoError(t, dev.MoveEntry(1, 5000, 6000))

	_, err := dev.Validate()
	assert.NoError(t, err)
	e := dev.Entries[0]
	assert.Equal(t, uint64(5000), e.StartLBA)
	assert.Equal(t, uint64(6000), e.EndLBA)
}

func TestRenumberEntryMovesSlot(t *testing.T) {
	dev := freshDevice(t)
	assert.NoError(t, dev.SetEntry(1, mustGUID(t, efiSystemType), UUID{}, 2048, 4096, "", "a"))
	assert.NoError(t, dev.RenumberEntry(1, 5))

	_, err := dev.Validate()
	assert.NoError(t, err)
	assert.Len(t, dev.Entries, 1)
	e := dev.Entries[0]
	assert.Equal(t, 4, e.SlotIndex)
	assert.Equal(t, uint64(2048), e.StartLBA)
}

func TestRenumberEntryRejectsOccupiedDestination(t *testing.T) {
	dev := freshDevice(t)
	assert.NoError(t, dev.SetEntry(1, mustGUID(t, efiSystemType), UUID{}, 2048, 4096, "", "a"))
	assert.NoError(t, dev.SetEntry(2, mustGUID(t, linuxFSType), UUID{}, 5000, 6000, "", "b"))

	err := dev.RenumberEntry(1, 2)
	assert.Error(t, err)
	assert.Equal(t, KindParse, KindOf(err))
}

func TestRenumberEntryRejectsEmptySource(t *testing.T) {
	dev := freshDevice(t)
	err := dev.RenumberEntry(1, 2)
	assert.Error(t, err)
	assert.Equal(t, KindParse, KindOf(err))
}

func TestRelabelChangesDiskGUIDOnly(t *testing.T) {
	dev := freshDevice(t)
	assert.NoError(t, dev.SetEntry(1, mustGUID(t, efiSystemType), UUID{}, 2048, 4096, "", "a"))
	newGUID, err := NewV4()
	assert.NoError(t, err)
	assert.NoError(t, dev.Relabel(newGUID))

	_, err = dev.Validate()
	assert.NoError(t, err)
	assert.Equal(t, newGUID, dev.Primary.DiskGUID)
	assert.Equal(t, newGUID, dev.Backup.DiskGUID)
	assert.Len(t, dev.Entries, 1)
}

func TestRestorePrimaryRebuildsFromBackup(t *testing.T) {
	dev := freshDevice(t)
	assert.NoError(t, dev.SetEntry(1, mustGUID(t, efiSystemType), UUID{}, 2048, 4096, "", "a"))
	_, err := dev.Validate()
	assert.NoError(t, err)

	lb := int64(dev.IO.LogicalBlockSize())
	assert.NoError(t, dev.IO.WriteZero(lb, lb)) // wipe the primary header entirely

	kind, err := dev.Validate()
	assert.Error(t, err)
	assert.Equal(t, KindNotGpt, kind)

	assert.NoError(t, dev.RestorePrimary())
	kind, err = dev.Validate()
	assert.NoError(t, err)
	assert.Equal(t, KindNone, kind)
	assert.Len(t, dev.Entries, 1)
}

func TestRestoreBackupRebuildsFromPrimary(t *testing.T) {
	dev := freshDevice(t)
	assert.NoError(t, dev.SetEntry(1, mustGUID(t, efiSystemType), UUID{}, 2048, 4096, "", "a"))
	_, err := dev.Validate()
	assert.NoError(t, err)

	lastLBA := dev.IO.LastLBA()
	lb := int64(dev.IO.LogicalBlockSize())
	assert.NoError(t, dev.IO.WriteZero(int64(lastLBA)*lb, lb))

	kind, err := dev.Validate()
	assert.Error(t, err)
	assert.Equal(t, KindCorruptBackup, kind)

	assert.NoError(t, dev.RestoreBackup())
	kind, err = dev.Validate()
	assert.NoError(t, err)
	assert.Equal(t, KindNone, kind)
	assert.Len(t, dev.Entries, 1)
}

func decodeLabelText(t *testing.T, e Entry) string {
	t.Helper()
	return DecodeLabel(e.Label)
}
