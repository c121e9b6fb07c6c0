package gpt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUUIDTextRoundTrip(t *testing.T) {
	cases := []string{
		"C12A7328-F81F-11D2-BA4B-00A0C93EC93B", // EFI System Partition type GUID
		"00000000-0000-0000-0000-000000000000",
		"0FC63DAF-8483-4772-8E79-3D69D8477DE4", // Linux filesystem data
	}

	for _, text := range cases {
		u, err := TextToBytes(text)
		assert.NoError(t, err)
		assert.Equal(t, strings.ToLower(text), BytesToText(u))
	}
}

func TestUUIDTextToBytesRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"not-a-uuid",
		"C12A7328F81F11D2BA4B00A0C93EC93B",
		"C12A7328-F81F-11D2-BA4B-00A0C93EC93", // one hex digit short
	}
	for _, text := range cases {
		_, err := TextToBytes(text)
		assert.Error(t, err)
		assert.Equal(t, KindBadUUID, KindOf(err))
	}
}

func TestUUIDIsZero(t *testing.T) {
	var zero UUID
	assert.True(t, zero.IsZero())

	nonzero, err := NewV4()
	assert.NoError(t, err)
	assert.False(t, nonzero.IsZero())
}

func TestNewV4SetsVersionAndVariant(t *testing.T) {
	u, err := NewV4()
	assert.NoError(t, err)
	assert.Equal(t, byte(4), u[6]>>4, "version nibble")
	assert.Equal(t, byte(2), u[8]>>6, "variant bits")
}
