package gpt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleHeader() Header {
	return Header{FirstUsableLBA: 34, LastUsableLBA: 204766}
}

func TestOverlapCheckSaneLayout(t *testing.T) {
	h := sampleHeader()
	entries := []Entry{
		{SlotIndex: 0, StartLBA: 34, EndLBA: 1000},
		{SlotIndex: 1, StartLBA: 1001, EndLBA: 204766},
	}
	assert.True(t, overlapCheck(&h, entries))
}

func TestOverlapCheckDetectsOverlap(t *testing.T) {
	h := sampleHeader()
	entries := []Entry{
		{SlotIndex: 0, StartLBA: 34, EndLBA: 1000},
		{SlotIndex: 1, StartLBA: 500, EndLBA: 2000},
	}
	assert.False(t, overlapCheck(&h, entries))
}

func TestOverlapCheckDetectsInvertedRange(t *testing.T) {
	h := sampleHeader()
	entries := []Entry{{SlotIndex: 0, StartLBA: 1000, EndLBA: 34}}
	assert.False(t, overlapCheck(&h, entries))
}

func TestOverlapCheckDetectsOutOfRange(t *testing.T) {
	h := sampleHeader()
	entries := []Entry{{SlotIndex: 0, StartLBA: 10, EndLBA: 100}}
	assert.False(t, overlapCheck(&h, entries))

	entries2 := []Entry{{SlotIndex: 0, StartLBA: 34, EndLBA: 300000}}
	assert.False(t, overlapCheck(&h, entries2))
}

func TestOverlapCheckAdjacentEntriesAreSane(t *testing.T) {
	h := sampleHeader()
	entries := []Entry{
		{SlotIndex: 0, StartLBA: 34, EndLBA: 999},
		{SlotIndex: 1, StartLBA: 1000, EndLBA: 204766},
	}
	assert.True(t, overlapCheck(&h, entries))
}

func TestOverlapCheckEmptyIsSane(t *testing.T) {
	h := sampleHeader()
	assert.True(t, overlapCheck(&h, nil))
}
