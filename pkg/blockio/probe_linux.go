//go:build linux

package blockio

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// hdGeometry mirrors Linux's struct hd_geometry (linux/hdreg.h), used by
// the HDIO_GETGEO ioctl.
type hdGeometry struct {
	Heads     uint8
	Sectors   uint8
	Cylinders uint16
	Start     uint64
}

const hdioGetGeo = 0x0301

// probe fills in d.lb, d.totalBytes, d.geometry, and d.diskSeq for a
// device that may be a real block device or a plain file, adopting the
// ioctl probing and plain-file fallback from
// _examples/original_source/gpt.c's open_device: BLKSSZGET for logical
// block size, BLKGETSIZE64 for total size, HDIO_GETGEO for geometry, each
// falling back to a file-friendly default when the ioctl fails (e.g.
// because path is a regular file, not a block device).
func probe(d *Device) error {
	fd := int(d.f.Fd())

	lbsz, err := unix.IoctlGetInt(fd, unix.BLKSSZGET)
	if err != nil {
		d.lb = DefaultLogicalBlockSize
	} else {
		d.lb = uint32(lbsz)
	}

	size, err := unix.IoctlGetUint64(fd, unix.BLKGETSIZE64)
	if err != nil {
		fi, statErr := d.f.Stat()
		if statErr != nil {
			return errors.Wrapf(statErr, "stat %s", d.path)
		}
		d.totalBytes = fi.Size()
	} else {
		d.totalBytes = int64(size)
	}

	var geo hdGeometry
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(hdioGetGeo), uintptr(unsafe.Pointer(&geo)))
	if errno != 0 {
		d.geometry = DefaultGeometry
	} else {
		d.geometry = Geometry{
			Heads:     uint32(geo.Heads),
			Sectors:   uint32(geo.Sectors),
			Cylinders: uint32(geo.Cylinders),
		}
	}

	d.diskSeq = diskSequence(fd)

	return nil
}

// diskSequence reads a best-effort reopen-safety token. Linux has no
// portable "disk sequence number" ioctl for arbitrary block devices, so
// this reports the device's inode number, which changes only if the path
// comes to refer to a different underlying file or device node.
func diskSequence(fd int) uint64 {
	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		return 0
	}
	return stat.Ino
}
