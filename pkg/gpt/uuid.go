package gpt

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// UUID is the raw 16-byte on-disk form of a GUID, stored exactly as it
// appears in a header or entry.
type UUID [16]byte

// IsZero reports whether every byte of the UUID is zero, the on-disk
// marker for an unused partition-type slot.
func (u UUID) IsZero() bool {
	return u == UUID{}
}

// BytesToText renders a UUID in the GPT mixed-endian textual form: the
// first three dash-separated groups are byte-reversed relative to storage
// (little-endian), the last two are stored big-endian.
func BytesToText(u UUID) string {
	var b strings.Builder
	b.Grow(36)
	writeHex := func(bs ...byte) {
		buf := make([]byte, len(bs)*2)
		hex.Encode(buf, bs)
		b.Write(buf)
	}
	writeHex(u[3], u[2], u[1], u[0])
	b.WriteByte('-')
	writeHex(u[5], u[4])
	b.WriteByte('-')
	writeHex(u[7], u[6])
	b.WriteByte('-')
	writeHex(u[8], u[9])
	b.WriteByte('-')
	writeHex(u[10], u[11], u[12], u[13], u[14], u[15])
	return b.String()
}

// TextToBytes parses the GPT mixed-endian textual form produced by
// BytesToText back into its 16-byte storage form.
func TextToBytes(s string) (UUID, error) {
	var u UUID

	groups := strings.Split(s, "-")
	if len(groups) != 5 {
		return u, wrapErr(KindBadUUID, "malformed uuid "+s, nil)
	}
	lens := []int{8, 4, 4, 4, 12}
	for i, g := range groups {
		if len(g) != lens[i] {
			return u, wrapErr(KindBadUUID, "malformed uuid "+s, nil)
		}
	}

	decode := func(s string) ([]byte, error) {
		buf := make([]byte, len(s)/2)
		_, err := hex.Decode(buf, []byte(s))
		if err != nil {
			return nil, wrapErr(KindBadUUID, "malformed uuid "+s, err)
		}
		return buf, nil
	}

	g0, err := decode(groups[0])
	if err != nil {
		return u, err
	}
	g1, err := decode(groups[1])
	if err != nil {
		return u, err
	}
	g2, err := decode(groups[2])
	if err != nil {
		return u, err
	}
	g3, err := decode(groups[3])
	if err != nil {
		return u, err
	}
	g4, err := decode(groups[4])
	if err != nil {
		return u, err
	}

	u[0], u[1], u[2], u[3] = g0[3], g0[2], g0[1], g0[0]
	u[4], u[5] = g1[1], g1[0]
	u[6], u[7] = g2[1], g2[0]
	u[8], u[9] = g3[0], g3[1]
	copy(u[10:16], g4)

	return u, nil
}

// NewV4 generates a random RFC 4122 version-4 UUID, using
// github.com/google/uuid as the entropy source (it already sets the
// version nibble and variant bits the same way this function would have
// to by hand).
func NewV4() (UUID, error) {
	raw, err := uuid.NewRandom()
	if err != nil {
		return UUID{}, wrapErr(KindIO, "generating uuid", err)
	}
	var u UUID
	copy(u[:], raw[:])
	return u, nil
}
