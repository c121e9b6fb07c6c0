package gpt

import (
	"bytes"
	"encoding/binary"
)

// Signature is the 8-byte magic that opens every GPT header.
const Signature uint64 = 0x5452415020494645 // "EFI PART", little-endian

// HeaderSize is the minimum (and default) on-disk size of a GPT header.
const HeaderSize = 92

// MinEntrySize is the smallest legal partition-entry size.
const MinEntrySize = 128

// MinPtableBytes is the smallest legal total size of the partition array.
const MinPtableBytes = 16 * 1024

// Header is the in-memory form of an on-disk GPT header (spec.md §3).
// Field order matches the on-disk layout; onDiskHeader is the wire form
// binary.Read/Write operate on directly.
type Header struct {
	HeaderSize     uint32
	ThisLBA        uint64
	AltLBA         uint64
	FirstUsableLBA uint64
	LastUsableLBA  uint64
	DiskGUID       UUID
	PtableLBA      uint64
	PtableEntries  uint32
	EntrySize      uint32
	PtableCRC      uint32
}

// onDiskHeader is the fixed 92-byte wire layout of a GPT header, used only
// for encoding/decoding; Header is what the rest of the package works with.
type onDiskHeader struct {
	Signature      uint64
	RevisionMinor  uint16
	RevisionMajor  uint16
	HeaderSize     uint32
	CRC            uint32
	Reserved       uint32
	ThisLBA        uint64
	AltLBA         uint64
	FirstUsableLBA uint64
	LastUsableLBA  uint64
	DiskGUID       [16]byte
	PtableLBA      uint64
	PtableEntries  uint32
	EntrySize      uint32
	PtableCRC      uint32
}

// EncodeHeader renders h into its HeaderSize-byte on-disk form (the fixed
// 92-byte struct followed by zero padding up to h.HeaderSize), with CRC
// computed over the 92-byte struct (CRC field zeroed) extended by crcZero
// over the padding, per spec.md §4.5 step 3.
func EncodeHeader(h Header) []byte {
	wire := onDiskHeader{
		Signature:      Signature,
		RevisionMinor:  0,
		RevisionMajor:  1,
		HeaderSize:     h.HeaderSize,
		ThisLBA:        h.ThisLBA,
		AltLBA:         h.AltLBA,
		FirstUsableLBA: h.FirstUsableLBA,
		LastUsableLBA:  h.LastUsableLBA,
		DiskGUID:       h.DiskGUID,
		PtableLBA:      h.PtableLBA,
		PtableEntries:  h.PtableEntries,
		EntrySize:      h.EntrySize,
		PtableCRC:      h.PtableCRC,
	}

	buf := new(bytes.Buffer)
	buf.Grow(int(h.HeaderSize))
	_ = binary.Write(buf, binary.LittleEndian, &wire)

	crcVal := crc(0, buf.Bytes())
	if int(h.HeaderSize) > HeaderSize {
		crcVal = crcZero(crcVal, int(h.HeaderSize)-HeaderSize)
	}
	wire.CRC = crcVal
	buf.Reset()
	_ = binary.Write(buf, binary.LittleEndian, &wire)

	out := buf.Bytes()
	if int(h.HeaderSize) > HeaderSize {
		out = append(out, make([]byte, int(h.HeaderSize)-HeaderSize)...)
	}
	return out
}

// DecodeHeader parses the first HeaderSize bytes of raw (the fixed struct)
// into a Header, along with the reported CRC. It does not validate
// anything; see Validate for that.
func DecodeHeader(raw []byte) (h Header, reportedCRC uint32, revMajor, revMinor uint16, err error) {
	if len(raw) < HeaderSize {
		return Header{}, 0, 0, 0, newErr(KindIO, "short header read")
	}

	var wire onDiskHeader
	r := bytes.NewReader(raw[:HeaderSize])
	if e := binary.Read(r, binary.LittleEndian, &wire); e != nil {
		return Header{}, 0, 0, 0, wrapErr(KindIO, "decoding header", e)
	}

	h = Header{
		HeaderSize:     wire.HeaderSize,
		ThisLBA:        wire.ThisLBA,
		AltLBA:         wire.AltLBA,
		FirstUsableLBA: wire.FirstUsableLBA,
		LastUsableLBA:  wire.LastUsableLBA,
		DiskGUID:       UUID(wire.DiskGUID),
		PtableLBA:      wire.PtableLBA,
		PtableEntries:  wire.PtableEntries,
		EntrySize:      wire.EntrySize,
		PtableCRC:      wire.PtableCRC,
	}
	return h, wire.CRC, wire.RevisionMajor, wire.RevisionMinor, nil
}

func decodeSignature(raw []byte) uint64 {
	if len(raw) < 8 {
		return 0
	}
	return binary.LittleEndian.Uint64(raw[:8])
}
