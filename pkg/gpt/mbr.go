package gpt

// MBRSize is the fixed size of a protective MBR.
const MBRSize = 512

// mbrBootCodeSize is the size of the unused boot-code region.
const mbrBootCodeSize = 440

// Geometry describes the legacy CHS parameters used only to build the
// protective MBR's end-CHS field.
type Geometry struct {
	Heads   uint32
	Sectors uint32
}

// CHS is a decoded legacy cylinder/head/sector address.
type CHS struct {
	Head     uint8
	Sector   uint8
	Cylinder uint16
}

// maxCHS is the largest CHS address representable in the 24-bit MBR encoding.
var maxCHS = CHS{Head: 255, Sector: 63, Cylinder: 1023}

// encodeCHS packs a CHS triple into its 3-byte on-disk form: head in byte
// 0; sector in the low 6 bits of byte 1 with the cylinder's high 2 bits in
// its high 2 bits; the cylinder's low 8 bits in byte 2.
func encodeCHS(c CHS) [3]byte {
	var out [3]byte
	out[0] = c.Head
	out[1] = (c.Sector & 0x3F) | byte((c.Cylinder>>8)&0x3)<<6
	out[2] = byte(c.Cylinder & 0xFF)
	return out
}

// ProtectiveMBR is the in-memory form of the MBR written at LBA 0 to hide
// a GPT disk from MBR-only tools.
type ProtectiveMBR struct {
	BootCode    [mbrBootCodeSize]byte
	UniqueSig   uint32
	StartCHS    CHS
	EndCHS      CHS
	PartType    byte
	StartLBA    uint32
	SizeLBA     uint32
}

// BuildProtectiveMBR constructs the protective MBR for a disk whose last
// LBA is lastLBA, with the given legacy geometry, per spec.md §3: only slot 0 is
// populated, type 0xEE, start LBA 1, size = min(lastLBA, 2^32-1), start CHS
// (0,0,2), end CHS derived from geometry and clamped to (1023,255,63).
func BuildProtectiveMBR(lastLBA uint64, geo Geometry) ProtectiveMBR {
	m := ProtectiveMBR{
		PartType: 0xEE,
		StartLBA: 1,
		StartCHS: CHS{Head: 0, Sector: 2, Cylinder: 0},
	}

	if lastLBA > 0xFFFFFFFF {
		m.SizeLBA = 0xFFFFFFFF
	} else {
		m.SizeLBA = uint32(lastLBA)
	}

	cylsize := uint64(geo.Heads) * uint64(geo.Sectors)
	if cylsize == 0 || lastLBA >= 1024*cylsize {
		m.EndCHS = maxCHS
	} else {
		m.EndCHS = CHS{
			Cylinder: uint16(lastLBA / cylsize),
			Head:     uint8((lastLBA / uint64(geo.Sectors)) % uint64(geo.Heads)),
			Sector:   uint8((lastLBA % uint64(geo.Sectors)) + 1),
		}
	}

	return m
}

// EncodeMBR renders m into its fixed 512-byte on-disk form. Only
// partition-record slot 0 is populated; the other three records and the
// 2 reserved bytes after the unique signature are zero.
func EncodeMBR(m ProtectiveMBR) []byte {
	buf := make([]byte, MBRSize)
	copy(buf[0:mbrBootCodeSize], m.BootCode[:])

	off := mbrBootCodeSize
	putU32(buf[off:off+4], m.UniqueSig)
	off += 4 + 2 // unique sig + 2 unused bytes

	rec := buf[off : off+16]
	startCHS := encodeCHS(m.StartCHS)
	endCHS := encodeCHS(m.EndCHS)
	rec[0] = 0 // boot indicator: not bootable
	copy(rec[1:4], startCHS[:])
	rec[4] = m.PartType
	copy(rec[5:8], endCHS[:])
	putU32(rec[8:12], m.StartLBA)
	putU32(rec[12:16], m.SizeLBA)

	buf[510] = 0x55
	buf[511] = 0xAA

	return buf
}

// DecodeMBR parses a 512-byte MBR image into its in-memory form, reading
// only partition-record slot 0 (the only one this tool ever populates).
func DecodeMBR(raw []byte) ProtectiveMBR {
	var m ProtectiveMBR
	if len(raw) < MBRSize {
		return m
	}
	copy(m.BootCode[:], raw[0:mbrBootCodeSize])

	off := mbrBootCodeSize
	m.UniqueSig = getU32(raw[off : off+4])
	off += 4 + 2

	rec := raw[off : off+16]
	m.StartCHS = decodeCHS(rec[1:4])
	m.PartType = rec[4]
	m.EndCHS = decodeCHS(rec[5:8])
	m.StartLBA = getU32(rec[8:12])
	m.SizeLBA = getU32(rec[12:16])

	return m
}

func decodeCHS(b []byte) CHS {
	return CHS{
		Head:     b[0],
		Sector:   b[1] & 0x3F,
		Cylinder: uint16(b[1]&0xC0)<<2 | uint16(b[2]),
	}
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func getU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
