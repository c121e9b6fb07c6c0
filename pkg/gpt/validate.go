package gpt

import (
	"github.com/gptctl/gptctl/pkg/blockio"
)

// scanResult carries everything a single header+array validation pass
// produces, per spec.md §4.5.
type scanResult struct {
	header    Header
	entries   []Entry // only populated when buildList is true
	populated int
}

// scanHeaderAndEntries implements spec.md §4.5's validate(header, device,
// expected_lba) in full: signature, size/revision, CRC + reserved-zero
// checks, entry_size/ptable_entries bounds, and a single sequential scan
// of the partition array accumulating the array CRC and either counting
// populated entries (buildList=false, the "primary pass") or copying them
// into the returned list (buildList=true, the "backup pass"), per spec.md's
// asymmetric primary/backup scan design.
func scanHeaderAndEntries(io *blockio.Device, lba uint64, expectedLBA uint64, buildList bool) (scanResult, error) {
	var res scanResult

	lb := io.LogicalBlockSize()
	raw, err := io.ReadBytes(int64(lba)*int64(lb), int(lb))
	if err != nil {
		return res, wrapErr(KindIO, "reading header", err)
	}

	if decodeSignature(raw) != Signature {
		return res, newErr(KindNotGpt, "no EFI PART signature")
	}

	h, reportedCRC, revMajor, revMinor, err := DecodeHeader(raw)
	if err != nil {
		return res, err
	}

	if h.HeaderSize < HeaderSize || uint64(h.HeaderSize) > uint64(lb) {
		return res, newErr(KindUnexpected, "illegal header size")
	}
	if revMajor != 1 || revMinor != 0 {
		return res, newErr(KindUnexpected, "unexpected gpt revision")
	}

	// Recompute the CRC over the 92-byte struct with the CRC field
	// zeroed, extended by crcZero over any padding up to HeaderSize.
	zeroed := make([]byte, HeaderSize)
	copy(zeroed, raw[:HeaderSize])
	zeroed[16] = 0
	zeroed[17] = 0
	zeroed[18] = 0
	zeroed[19] = 0
	calcCRC := crc(0, zeroed)
	if h.HeaderSize > HeaderSize {
		calcCRC = crcZero(calcCRC, int(h.HeaderSize-HeaderSize))

		tailOK, err := io.ReadIsZero(int64(lba)*int64(lb)+HeaderSize, int64(h.HeaderSize-HeaderSize))
		if err != nil {
			return res, wrapErr(KindIO, "checking header reserved region", err)
		}
		if !tailOK {
			return res, newErr(KindUnexpected, "reserved part of header not zero")
		}
	}
	if calcCRC != reportedCRC {
		return res, newErr(KindCorrupt, "header integrity check failed")
	}

	if h.EntrySize < MinEntrySize || (h.EntrySize&(h.EntrySize-1)) != 0 {
		return res, newErr(KindUnexpected, "illegal partition entry size")
	}
	if uint64(h.EntrySize)*uint64(h.PtableEntries) < MinPtableBytes {
		return res, newErr(KindUnexpected, "partition table too small")
	}
	// The primary array sits between LBA 1 and first_usable_lba; the
	// backup array sits between last_usable_lba and the backup header's
	// own lba (expectedLBA, here). A valid backup's ptable_lba is always
	// >= first_usable_lba, so the two headers need mirrored checks
	// instead of one shared test (gpt.c:459-460's check_device).
	if expectedLBA == 1 {
		if h.PtableLBA <= 1 || (h.FirstUsableLBA != 0 && h.PtableLBA >= h.FirstUsableLBA) {
			return res, newErr(KindUnexpected, "bad partition table address")
		}
	} else {
		if h.PtableLBA <= h.LastUsableLBA || h.PtableLBA >= expectedLBA {
			return res, newErr(KindUnexpected, "bad partition table address")
		}
	}

	if h.ThisLBA != expectedLBA {
		return res, newErr(KindUnexpected, "header at unexpected lba")
	}

	if buildList {
		res.entries = make([]Entry, 0, h.PtableEntries/4+1)
	}

	ptableCRC := uint32(0)
	for i := uint32(0); i < h.PtableEntries; i++ {
		offset := int64(h.PtableLBA)*int64(lb) + int64(i)*int64(h.EntrySize)
		slot, err := io.ReadBytes(offset, int(h.EntrySize))
		if err != nil {
			return res, wrapErr(KindIO, "reading partition entry", err)
		}

		attr := getU64(slot[48:56])
		if attr&reservedAttrMask != 0 {
			return res, newErr(KindUnexpected, "unexpected partition attribute bits in reserved field")
		}

		ptableCRC = crc(ptableCRC, slot[:MinEntrySize])
		if h.EntrySize > MinEntrySize {
			ptableCRC = crcZero(ptableCRC, int(h.EntrySize-MinEntrySize))
		}

		used := false
		for _, b := range slot[0:16] {
			if b != 0 {
				used = true
				break
			}
		}

		if used {
			res.populated++
			if buildList {
				e := decodeEntry(slot)
				e.SlotIndex = int(i)
				res.entries = append(res.entries, e)
			}
		} else {
			isZero := true
			for _, b := range slot {
				if b != 0 {
					isZero = false
					break
				}
			}
			if !isZero {
				return res, newErr(KindUnexpected, "unused partition slot is not zero")
			}
		}
	}

	if ptableCRC != h.PtableCRC {
		return res, newErr(KindCorruptPtable, "corrupted partition table")
	}

	res.header = h
	return res, nil
}

// CheckResult is the outcome of validating both the primary and backup
// GPT headers on a device, per spec.md §4.6.
type CheckResult struct {
	Kind      Kind
	Primary   Header
	Backup    Header
	Entries   []Entry
	SaneParts bool
}

// CheckDevice validates the primary header at LBA 1 and the backup header
// at the device's last LBA, reconciles them, and runs overlap detection,
// exactly as spec.md §4.6/§4.7 describe. The in-memory entry list is built
// from the backup pass.
func CheckDevice(io *blockio.Device) (CheckResult, error) {
	lastLBA := io.LastLBA()

	primary, primaryErr := scanHeaderAndEntries(io, 1, 1, false)
	backup, backupErr := scanHeaderAndEntries(io, lastLBA, lastLBA, true)

	primaryKind := KindOf(primaryErr)
	backupKind := KindOf(backupErr)

	// Whatever side read cleanly is carried in the result regardless of the
	// overall outcome, so a caller restoring one header from the other has
	// something to restore from.
	partial := CheckResult{}
	if primaryErr == nil {
		partial.Primary = primary.header
	}
	if backupErr == nil {
		partial.Backup = backup.header
		partial.Entries = backup.entries
	} else if primaryErr == nil {
		// The backup pass failed, so list the entries from the primary array.
		if full, err := scanHeaderAndEntries(io, 1, 1, true); err == nil {
			partial.Entries = full.entries
		}
	}

	switch {
	case primaryKind == KindNotGpt && backupKind == KindNotGpt:
		partial.Kind = KindNotGpt
		return partial, newErr(KindNotGpt, "no gpt table")

	case primaryErr != nil && backupErr == nil:
		partial.Kind = primaryKind
		return partial, wrapErr(primaryKind,
			"primary gpt table is faulty; backup appears fine, consider restoring", primaryErr)

	case primaryErr == nil && backupErr != nil:
		partial.Kind = KindCorruptBackup
		return partial, wrapErr(KindCorruptBackup,
			"backup gpt table is faulty; primary appears fine, consider rewriting the backup", backupErr)

	case primaryErr != nil && backupErr != nil:
		partial.Kind = primaryKind
		return partial, wrapErr(primaryKind,
			"both primary and backup tables are faulty", primaryErr)
	}

	partial.Kind = KindUnexpected
	if primary.populated != backup.populated {
		return partial, newErr(KindUnexpected, "primary and backup partition counts disagree")
	}

	if primary.header.AltLBA != lastLBA {
		return partial, newErr(KindUnexpected, "primary alt_lba does not point at backup")
	}
	if backup.header.AltLBA != 1 {
		return partial, newErr(KindUnexpected, "backup alt_lba does not point at primary")
	}
	if primary.header.PtableCRC != backup.header.PtableCRC {
		return partial, newErr(KindUnexpected, "primary and backup partition table crcs disagree")
	}
	if primary.header.DiskGUID != backup.header.DiskGUID {
		return partial, newErr(KindUnexpected, "primary and backup disk guids disagree")
	}

	sane := overlapCheck(&primary.header, backup.entries)

	return CheckResult{
		Kind:      KindNone,
		Primary:   primary.header,
		Backup:    backup.header,
		Entries:   backup.entries,
		SaneParts: sane,
	}, nil
}
