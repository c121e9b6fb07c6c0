package main

// report.go is gptctl's reporter: it re-validates a *gpt.Device, reads its
// MBR back from disk, and serializes the result as the delimited rows
// spec.md §6 describes to
// stdout with descriptive headers to stderr. Grounded in shape on the
// teacher's cmd/vorteil/imageutil/gpt.go (tab-aligned field dumps via
// elog.Logger), adapted to the field-separated row format spec.md names
// instead of free-form text.

import (
	"fmt"
	"strconv"

	"github.com/gptctl/gptctl/pkg/elog"
	"github.com/gptctl/gptctl/pkg/gpt"
)

const fieldSep = "|"

// printDevice writes one report for dev: a disk summary row, an MBR slot
// row decoded from the bytes on disk at LBA 0 (never a freshly zeroed
// buffer), one populated-partition row per entry, and one free-gap row per
// gap. When validation fails, only the disk and MBR rows are written,
// followed by the error.
func printDevice(log elog.Logger, dev *gpt.Device) {
	kind, err := dev.Validate()

	path := dev.IO.Path()
	lastLBA := dev.IO.LastLBA()
	width := lbaWidth(lastLBA)

	log.Printf("# device: %s", path)
	printRow("d", path, kindLabel(kind, err), fmt.Sprintf("%d", dev.IO.LogicalBlockSize()), fmt.Sprintf("%d", lastLBA))

	log.Printf("# mbr slot 0: type, start lba, size lba")
	if raw, rerr := dev.IO.ReadBytes(0, gpt.MBRSize); rerr == nil {
		mbr := gpt.DecodeMBR(raw)
		printRow("m", "0", fmt.Sprintf("%02x", mbr.PartType), padLBA(uint64(mbr.StartLBA), width), padLBA(uint64(mbr.SizeLBA), width))
	} else {
		log.Errorf("%s: reading mbr: %v", path, rerr)
	}

	if err != nil {
		log.Errorf("%s: %v", path, err)
		return
	}

	log.Printf("# partitions: slot, type guid, part guid, start lba, end lba, attrs, label")
	for _, e := range dev.Entries {
		printRow("p",
			strconv.Itoa(e.SlotIndex+1),
			gpt.BytesToText(e.TypeGUID),
			gpt.BytesToText(e.PartGUID),
			padLBA(e.StartLBA, width),
			padLBA(e.EndLBA, width),
			fmt.Sprintf("%016x", e.Attr),
			gpt.DecodeLabel(e.Label),
		)
	}

	log.Printf("# free: start lba, end lba, blocks")
	for _, gap := range gpt.FreeGaps(&dev.Primary, dev.Entries) {
		blocks := gap.End - gap.Start + 1
		printRow("f", padLBA(gap.Start, width), padLBA(gap.End, width), fmt.Sprintf("%d", blocks))
	}
}

func printRow(kind string, fields ...string) {
	row := kind
	for _, f := range fields {
		row += fieldSep + f
	}
	fmt.Println(row)
}

func kindLabel(kind gpt.Kind, err error) string {
	if err == nil {
		return "valid"
	}
	return kind.String()
}

func lbaWidth(lastLBA uint64) int {
	return len(strconv.FormatUint(lastLBA, 10))
}

func padLBA(lba uint64, width int) string {
	return fmt.Sprintf("%0*d", width, lba)
}
