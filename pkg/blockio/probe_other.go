//go:build !linux

package blockio

// probe on non-Linux platforms always takes the plain-file fallback from
// spec.md §6: LB=512, size=file length, geometry=255/63. gptctl's block
// device ioctls are Linux-specific (see probe_linux.go); other platforms
// still work against disk image files.
func probe(d *Device) error {
	fi, err := d.f.Stat()
	if err != nil {
		return err
	}

	d.lb = DefaultLogicalBlockSize
	d.totalBytes = fi.Size()
	d.geometry = DefaultGeometry
	d.diskSeq = 0

	return nil
}
