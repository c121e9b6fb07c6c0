package gpt

import (
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRCMatchesStdlib(t *testing.T) {
	buf := []byte("EFI PART partition table test vector")
	assert.Equal(t, crc32.ChecksumIEEE(buf), crc(0, buf))
}

func TestCRCChaining(t *testing.T) {
	buf := []byte("some header bytes followed by more header bytes")
	a, b := buf[:20], buf[20:]

	whole := crc(0, buf)
	chained := crc(crc(0, a), b)
	assert.Equal(t, whole, chained)
}

func TestCRCZeroMatchesExplicitZeros(t *testing.T) {
	seed := crc(0, []byte("header"))
	n := 37

	explicit := crc(seed, make([]byte, n))
	implicit := crcZero(seed, n)
	assert.Equal(t, explicit, implicit)
}

func TestCRCZeroOfNothingIsIdentity(t *testing.T) {
	seed := crc(0, []byte("unchanged"))
	assert.Equal(t, seed, crcZero(seed, 0))
}
