package gpt

// mutate.go implements the writing half of the format: building a fresh
// table from scratch, restoring one header from the other, and the
// per-entry edits spec.md §4.9-4.10 describes (set/delete/move/relabel).
// Every write here follows the same ordering: the backup copy lands on
// disk before the primary copy, so a process that dies mid-operation
// never leaves a disk with an intact primary and a stale or missing
// backup — the direction a naive implementation would otherwise get
// backwards.

// defaultPtableEntries is the conventional partition-array slot count
// (128 entries * 128-byte MinEntrySize == MinPtableBytes exactly).
const defaultPtableEntries = MinPtableBytes / MinEntrySize

// defaultTypeGUID is the generic "Linux filesystem data" partition type,
// used by SetEntry when a new slot is given no explicit type id.
var defaultTypeGUID = mustTextToBytes("0FC63DAF-8483-4772-8E79-3D69D8477DE4")

func mustTextToBytes(s string) UUID {
	u, err := TextToBytes(s)
	if err != nil {
		panic(err)
	}
	return u
}

// Padding is the four-way block-count quadruple spec.md's -P flag adds
// around the partition arrays when building a fresh table: before the
// primary array (after LBA 1), after the primary array, before the
// backup array, and after the backup array (before the backup header).
type Padding struct {
	PrePrimary  uint64
	PostPrimary uint64
	PreBackup   uint64
	PostBackup  uint64
}

// WriteGPT builds and writes a fresh, empty GPT (primary, backup, and
// protective MBR), discarding whatever was there before. headerSize,
// entrySize, and ptableEntries default to HeaderSize, MinEntrySize, and
// defaultPtableEntries when zero; diskGUID is generated when zero.
func (d *Device) WriteGPT(headerSize, entrySize, ptableEntries uint32, diskGUID UUID, pad Padding) error {
	lb := uint64(d.IO.LogicalBlockSize())
	if headerSize == 0 {
		headerSize = HeaderSize
	}
	if entrySize == 0 {
		entrySize = MinEntrySize
	}
	if ptableEntries == 0 {
		ptableEntries = defaultPtableEntries
	}

	ptableBytes := uint64(entrySize) * uint64(ptableEntries)
	if ptableBytes < MinPtableBytes {
		return newErr(KindUnexpected, "partition table too small")
	}
	ptableBlocks := (ptableBytes + lb - 1) / lb

	lastLBA := d.IO.LastLBA()
	primaryPtableLBA := 2 + pad.PrePrimary
	firstUsable := primaryPtableLBA + ptableBlocks + pad.PostPrimary
	lastUsable := lastLBA - 1 - pad.PostBackup - ptableBlocks - pad.PreBackup
	backupPtableLBA := lastUsable + 1 + pad.PreBackup

	if diskGUID.IsZero() {
		var err error
		diskGUID, err = NewV4()
		if err != nil {
			return err
		}
	}

	ptableCRC := crcZero(0, int(ptableBytes))

	backup := Header{
		HeaderSize: headerSize, ThisLBA: lastLBA, AltLBA: 1,
		FirstUsableLBA: firstUsable, LastUsableLBA: lastUsable, DiskGUID: diskGUID,
		PtableLBA: backupPtableLBA, PtableEntries: ptableEntries, EntrySize: entrySize, PtableCRC: ptableCRC,
	}
	primary := Header{
		HeaderSize: headerSize, ThisLBA: 1, AltLBA: lastLBA,
		FirstUsableLBA: firstUsable, LastUsableLBA: lastUsable, DiskGUID: diskGUID,
		PtableLBA: primaryPtableLBA, PtableEntries: ptableEntries, EntrySize: entrySize, PtableCRC: ptableCRC,
	}

	geo := d.IO.Geometry()
	mbr := BuildProtectiveMBR(lastLBA, Geometry{Heads: geo.Heads, Sectors: geo.Sectors})
	if err := d.IO.WriteBytes(0, EncodeMBR(mbr)); err != nil {
		return err
	}

	if err := d.IO.WriteZero(int64(backupPtableLBA)*int64(lb), int64(ptableBytes)); err != nil {
		return err
	}
	if err := d.IO.WriteBytes(int64(lastLBA)*int64(lb), EncodeHeader(backup)); err != nil {
		return err
	}

	if err := d.IO.WriteZero(int64(primaryPtableLBA)*int64(lb), int64(ptableBytes)); err != nil {
		return err
	}
	if err := d.IO.WriteBytes(int64(1)*int64(lb), EncodeHeader(primary)); err != nil {
		return err
	}

	d.invalidate()
	return nil
}

// WriteMBR (re)writes only the protective MBR from the device's current
// size and geometry, leaving both GPT headers untouched.
func (d *Device) WriteMBR() error {
	geo := d.IO.Geometry()
	mbr := BuildProtectiveMBR(d.IO.LastLBA(), Geometry{Heads: geo.Heads, Sectors: geo.Sectors})
	return d.IO.WriteBytes(0, EncodeMBR(mbr))
}

// writePtable serializes entries into the ptableEntries*entrySize array
// rooted at ptableLBA, zero-filling unused slots, and returns its CRC.
func writePtable(d *Device, ptableLBA uint64, ptableEntries, entrySize uint32, entries []Entry) (uint32, error) {
	lb := int64(d.IO.LogicalBlockSize())
	bySlot := make(map[int]Entry, len(entries))
	for _, e := range entries {
		bySlot[e.SlotIndex] = e
	}

	crcVal := uint32(0)
	for i := uint32(0); i < ptableEntries; i++ {
		var slot []byte
		if e, ok := bySlot[int(i)]; ok {
			slot = encodeEntry(e, entrySize)
		} else {
			slot = make([]byte, entrySize)
		}
		offset := int64(ptableLBA)*lb + int64(i)*int64(entrySize)
		if err := d.IO.WriteBytes(offset, slot); err != nil {
			return 0, err
		}
		crcVal = crc(crcVal, slot)
	}
	return crcVal, nil
}

// writeBoth rewrites the backup header+table and then the primary
// header+table from the given headers and entry list, recomputing CRCs.
func (d *Device) writeBoth(primary, backup Header, entries []Entry) error {
	lb := int64(d.IO.LogicalBlockSize())

	ptableCRC, err := writePtable(d, backup.PtableLBA, backup.PtableEntries, backup.EntrySize, entries)
	if err != nil {
		return err
	}
	backup.PtableCRC = ptableCRC
	primary.PtableCRC = ptableCRC

	if err := d.IO.WriteBytes(int64(backup.ThisLBA)*lb, EncodeHeader(backup)); err != nil {
		return err
	}

	if _, err := writePtable(d, primary.PtableLBA, primary.PtableEntries, primary.EntrySize, entries); err != nil {
		return err
	}
	if err := d.IO.WriteBytes(int64(primary.ThisLBA)*lb, EncodeHeader(primary)); err != nil {
		return err
	}

	// The in-memory list now matches what was written; the headers are
	// still re-read by the next EnsureValid.
	d.Entries = entries
	d.invalidate()
	return nil
}

// RestorePrimary rebuilds the primary header and partition table from the
// backup, for use after the primary has been found corrupt. The primary
// array is placed immediately before first_usable_lba, the conventional
// unpadded layout — a table originally built with -P padding around the
// primary array can't have that padding recovered from the backup alone.
func (d *Device) RestorePrimary() error {
	if !d.checked {
		_, _ = d.Validate() // an error here is expected; only the backup side is needed
	}
	if d.Backup.HeaderSize == 0 {
		return newErr(KindUnexpected, "no usable backup header to restore from")
	}
	ptableBlocks := ptableBlockCount(d.Backup, d.IO.LogicalBlockSize())
	primary := d.Backup
	primary.ThisLBA = 1
	primary.AltLBA = d.Backup.ThisLBA
	primary.PtableLBA = d.Backup.FirstUsableLBA - ptableBlocks
	return d.writeBoth(primary, d.Backup, d.Entries)
}

// RestoreBackup rebuilds the backup header and partition table from the
// primary, for use after the backup has been found corrupt. The backup
// array is placed immediately after last_usable_lba, the conventional
// unpadded layout (see RestorePrimary).
func (d *Device) RestoreBackup() error {
	if !d.checked {
		_, _ = d.Validate() // an error here is expected; only the primary side is needed
	}
	if d.Primary.HeaderSize == 0 {
		return newErr(KindUnexpected, "no usable primary header to restore from")
	}
	lastLBA := d.IO.LastLBA()
	backup := d.Primary
	backup.ThisLBA = lastLBA
	backup.AltLBA = 1
	backup.PtableLBA = d.Primary.LastUsableLBA + 1
	return d.writeBoth(d.Primary, backup, d.Entries)
}

// ptableBlockCount returns how many logical blocks h's partition array
// occupies.
func ptableBlockCount(h Header, lb uint32) uint64 {
	bytes := uint64(h.EntrySize) * uint64(h.PtableEntries)
	return (bytes + uint64(lb) - 1) / uint64(lb)
}

// Relabel renames the disk's own GUID (the -r command) without
// touching any partition entry.
func (d *Device) Relabel(diskGUID UUID) error {
	if err := d.EnsureValid(); err != nil {
		return err
	}
	primary := d.Primary
	backup := d.Backup
	primary.DiskGUID = diskGUID
	backup.DiskGUID = diskGUID
	return d.writeBoth(primary, backup, d.Entries)
}

// SetEntry creates or updates the partition in the given one-based slot.
// A zero-value UUID argument leaves an existing entry's GUID unchanged;
// for a new entry a zero partGUID is generated fresh and a zero typeGUID
// becomes defaultTypeGUID, matching the "-" / absent idiom of the t and p
// fields of -s/-x. A zero startLBA/endLBA means "infer from free space"
// via GuessFree, except that an existing entry given zero for both keeps
// its current range.
func (d *Device) SetEntry(slot int, typeGUID, partGUID UUID, startLBA, endLBA uint64, attrString string, label string) error {
	if err := d.EnsureValid(); err != nil {
		return err
	}

	if slot < 1 || uint32(slot) > d.Primary.PtableEntries {
		return newErr(KindParse, "slot out of range")
	}

	existing, exists := d.entryBySlot(slot)
	e := existing
	e.SlotIndex = slot - 1

	if !exists {
		if typeGUID.IsZero() {
			typeGUID = defaultTypeGUID
		}
		var err error
		e.PartGUID, err = NewV4()
		if err != nil {
			return err
		}
	}

	if !typeGUID.IsZero() {
		e.TypeGUID = typeGUID
	}
	if !partGUID.IsZero() {
		e.PartGUID = partGUID
	}

	if !exists || startLBA != 0 || endLBA != 0 {
		others := otherEntries(d.Entries, slot)
		start, end, err := GuessFree(&d.Primary, others, startLBA, endLBA)
		if err != nil {
			return err
		}
		e.StartLBA, e.EndLBA = start, end
	}

	if attrString != "" {
		e.Attr = applyAttrBits(e.Attr, attrString, attrTypeSpecificHi, 64)
	}
	if label != "" {
		enc, err := EncodeLabel(label)
		if err != nil {
			return err
		}
		e.Label = enc
	}

	entries := replaceEntry(d.Entries, e)
	return d.writeBoth(d.Primary, d.Backup, entries)
}

// DelEntry clears the partition in the given one-based slot.
func (d *Device) DelEntry(slot int) error {
	if err := d.EnsureValid(); err != nil {
		return err
	}
	if _, ok := d.entryBySlot(slot); !ok {
		return newErr(KindParse, "slot is not populated")
	}
	entries := otherEntries(d.Entries, slot)
	return d.writeBoth(d.Primary, d.Backup, entries)
}

// MoveEntry relocates the partition in the given one-based slot to a new
// LBA range, preserving everything else about it.
func (d *Device) MoveEntry(slot int, startLBA, endLBA uint64) error {
	if err := d.EnsureValid(); err != nil {
		return err
	}
	existing, ok := d.entryBySlot(slot)
	if !ok {
		return newErr(KindParse, "slot is not populated")
	}

	others := otherEntries(d.Entries, slot)
	start, end, err := GuessFree(&d.Primary, others, startLBA, endLBA)
	if err != nil {
		return err
	}
	existing.StartLBA, existing.EndLBA = start, end

	entries := replaceEntry(d.Entries, existing)
	return d.writeBoth(d.Primary, d.Backup, entries)
}

// RenumberEntry moves the partition occupying slot from into slot to,
// leaving from empty. Both slots must be within range and to must be
// unoccupied.
func (d *Device) RenumberEntry(from, to int) error {
	if err := d.EnsureValid(); err != nil {
		return err
	}
	if to < 1 || uint32(to) > d.Primary.PtableEntries {
		return newErr(KindParse, "slot out of range")
	}
	existing, ok := d.entryBySlot(from)
	if !ok {
		return newErr(KindParse, "slot is not populated")
	}
	if _, occupied := d.entryBySlot(to); occupied {
		return newErr(KindParse, "destination slot is already populated")
	}

	existing.SlotIndex = to - 1
	entries := otherEntries(d.Entries, from)
	entries = replaceEntry(entries, existing)
	return d.writeBoth(d.Primary, d.Backup, entries)
}

// otherEntries returns every populated entry except the one-based slot.
func otherEntries(entries []Entry, slot int) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.SlotIndex+1 != slot {
			out = append(out, e)
		}
	}
	return out
}

// replaceEntry returns entries with e substituted for whatever occupied
// e's slot, or appended if the slot was previously empty.
func replaceEntry(entries []Entry, e Entry) []Entry {
	out := make([]Entry, 0, len(entries)+1)
	found := false
	for _, existing := range entries {
		if existing.SlotIndex == e.SlotIndex {
			out = append(out, e)
			found = true
		} else {
			out = append(out, existing)
		}
	}
	if !found {
		out = append(out, e)
	}
	return out
}
