//go:build linux

// Package devicelist enumerates whole-disk block devices for gptctl's
// device-scanning mode (no path given on the command line), grounded on
// _examples/original_source/gpt.c's print_devices: read /proc/partitions,
// then keep only entries that are whole disks (have a /sys/block/<name>
// directory), since the file also lists individual partitions.
package devicelist

import (
	"bufio"
	"fmt"
	"os"

	"github.com/pkg/errors"
)

// Device is one whole-disk block device found on the system.
type Device struct {
	Name   string
	Path   string
	Blocks uint64
}

// List scans /proc/partitions and returns every whole-disk block device.
func List() ([]Device, error) {
	f, err := os.Open("/proc/partitions")
	if err != nil {
		return nil, errors.Wrap(err, "reading /proc/partitions")
	}
	defer f.Close()

	var devices []Device
	scanner := bufio.NewScanner(f)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo <= 2 {
			continue // header and blank separator line
		}

		var major, minor uint32
		var blocks uint64
		var name string
		if _, err := fmt.Sscanf(scanner.Text(), "%d %d %d %s", &major, &minor, &blocks, &name); err != nil {
			continue
		}

		sysPath := fmt.Sprintf("/sys/block/%s", name)
		if _, err := os.Stat(sysPath); err != nil {
			continue
		}

		devices = append(devices, Device{
			Name:   name,
			Path:   fmt.Sprintf("/dev/%s", name),
			Blocks: blocks,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scanning /proc/partitions")
	}

	return devices, nil
}
