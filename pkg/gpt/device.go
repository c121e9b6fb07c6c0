// Package gpt implements the GUID Partition Table and protective MBR
// formats: encoding, decoding, validation, and the mutating operations a
// partition-table editor needs, independent of how bytes actually reach
// storage (see the sibling blockio package for that).
package gpt

import (
	"github.com/gptctl/gptctl/pkg/blockio"
)

// Device is a GPT-formatted disk opened for inspection and editing. It
// wraps a blockio.Device and caches the result of the last validation
// pass, reloading only when a mutation invalidates it — the "ensure_valid
// runs once per command invocation, not once per flag" reading of
// spec.md's open/validate lifecycle.
type Device struct {
	IO *blockio.Device

	checked   bool
	lastKind  Kind
	lastErr   error
	Primary   Header
	Backup    Header
	Entries   []Entry
	SaneParts bool
}

// Open wraps an already-opened block device as a GPT device. It performs
// no I/O itself; the first call to EnsureValid or Validate does.
func Open(io *blockio.Device) *Device {
	return &Device{IO: io}
}

// Validate re-reads and re-validates both headers and the partition
// array, unconditionally, per spec.md §4.5-4.7. It always refreshes
// Device's cached fields, even if already checked this cycle.
func (d *Device) Validate() (Kind, error) {
	res, err := CheckDevice(d.IO)
	d.checked = true
	d.lastKind = res.Kind
	d.lastErr = err
	d.Primary = res.Primary
	d.Backup = res.Backup
	d.Entries = res.Entries
	d.SaneParts = res.SaneParts
	if err == nil {
		d.lastKind = KindNone
	}
	return d.lastKind, err
}

// EnsureValid validates the device if it hasn't been validated yet this
// cycle, and returns an error unless the result is a clean Valid state —
// the precondition every mutating command-line operation in spec.md §6
// requires before touching the table.
func (d *Device) EnsureValid() error {
	if !d.checked {
		if _, err := d.Validate(); err != nil {
			return err
		}
	}
	if d.lastErr != nil {
		return d.lastErr
	}
	if !d.SaneParts {
		return newErr(KindUnexpected, "partition layout is not sane")
	}
	return nil
}

// invalidate marks the cached validation stale, forcing the next
// EnsureValid to re-read the device. Mutating operations call this after
// writing so a subsequent ensure_valid reflects what's now on disk.
func (d *Device) invalidate() {
	d.checked = false
}

// entryBySlot finds a populated entry by its one-based slot number, or
// reports ok=false.
func (d *Device) entryBySlot(slot int) (Entry, bool) {
	for _, e := range d.Entries {
		if e.SlotIndex+1 == slot {
			return e, true
		}
	}
	return Entry{}, false
}
