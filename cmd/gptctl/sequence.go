package main

// sequence.go implements the ordered, left-to-right, repeatable
// command-line surface spec.md §6 describes — one device argument
// followed by commands consumed strictly in the order given, each
// acting immediately against the open device. Grounded on the general
// shape of _examples/original_source/gpt.c's main() argv-walking loop
// (device-wide overrides staged before mutating commands, each command
// consuming the argv tokens it needs and continuing), adapted to
// spec.md's own flag table rather than the original's.

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gptctl/gptctl/pkg/blockio"
	"github.com/gptctl/gptctl/pkg/devicelist"
	"github.com/gptctl/gptctl/pkg/elog"
	"github.com/gptctl/gptctl/pkg/gpt"
)

// buildOverrides accumulates the -N/-U/-P/-R staged options that the next
// -g command consumes.
type buildOverrides struct {
	entries    uint32
	diskGUID   gpt.UUID
	padding    gpt.Padding
	headerSize uint32
	entrySize  uint32
}

// runSequence is the entry point cobra's root command hands raw,
// unparsed arguments to.
func runSequence(log elog.Logger, args []string) error {
	if len(args) == 0 {
		return printAllDevices(log)
	}

	path := ""
	rest := args
	if !strings.HasPrefix(args[0], "-") {
		path = args[0]
		rest = args[1:]
	}

	if path == "" {
		return scanPrintOnlyFlags(log, rest)
	}

	io, err := blockio.Open(path, true)
	if err != nil {
		return err
	}
	defer io.Close()

	dev := gpt.Open(io)
	var opts buildOverrides
	processed := false

	i := 0
	for i < len(rest) {
		token := rest[i]
		if len(token) < 2 || token[0] != '-' {
			return fmt.Errorf("unexpected argument %q", token)
		}

		cluster := token[1:]
		for ci := 0; ci < len(cluster); ci++ {
			letter := cluster[ci]
			last := ci == len(cluster)-1
			if err := needsLastInCluster(letter, last); err != nil {
				return err
			}

			switch letter {
			case 'h':
				printUsage(log)
				return nil

			case 'p':
				processed = true
				printDevice(log, dev)

			case 'b':
				processed = true
				if err := dev.WriteMBR(); err != nil {
					return err
				}

			case 'g':
				processed = true
				guid := opts.diskGUID
				if err := dev.WriteGPT(opts.headerSize, opts.entrySize, opts.entries, guid, opts.padding); err != nil {
					return err
				}

			case 'r':
				processed = true
				diskGUID := opts.diskGUID
				if diskGUID.IsZero() {
					var err error
					diskGUID, err = gpt.NewV4()
					if err != nil {
						return err
					}
				}
				if err := dev.Relabel(diskGUID); err != nil {
					return err
				}

			case 'f':
				processed = true
				if err := dev.RestorePrimary(); err != nil {
					return err
				}

			case 'l':
				processed = true
				if err := dev.RestoreBackup(); err != nil {
					return err
				}

			case 'L':
				v, err := needArg(rest, &i)
				if err != nil {
					return err
				}
				n, err := strconv.ParseUint(v, 10, 32)
				if err != nil {
					return fmt.Errorf("bad logical block size %q: %w", v, err)
				}
				io.SetLogicalBlockSize(uint32(n))
				log.Warnf("overriding logical block size to %d", n)

			case 'B':
				v, err := needArg(rest, &i)
				if err != nil {
					return err
				}
				n, err := strconv.ParseUint(v, 10, 64)
				if err != nil {
					return fmt.Errorf("bad last lba %q: %w", v, err)
				}
				io.SetLastLBA(n)
				log.Warnf("overriding last lba to %d", n)

			case 'G':
				heads, err := needArg(rest, &i)
				if err != nil {
					return err
				}
				sectors, err := needArg(rest, &i)
				if err != nil {
					return err
				}
				h, err1 := strconv.ParseUint(heads, 10, 32)
				s, err2 := strconv.ParseUint(sectors, 10, 32)
				if err1 != nil || err2 != nil {
					return fmt.Errorf("bad geometry %q %q", heads, sectors)
				}
				io.SetGeometry(uint32(h), uint32(s))
				log.Warnf("overriding geometry heads:%d sectors:%d", h, s)

			case 'N':
				v, err := needArg(rest, &i)
				if err != nil {
					return err
				}
				n, err := strconv.ParseUint(v, 10, 32)
				if err != nil {
					return fmt.Errorf("bad entry count %q: %w", v, err)
				}
				opts.entries = uint32(n)

			case 'U':
				v, err := needArg(rest, &i)
				if err != nil {
					return err
				}
				guid, err := gpt.TextToBytes(v)
				if err != nil {
					return err
				}
				opts.diskGUID = guid

			case 'P':
				vals := make([]uint64, 4)
				for k := range vals {
					v, err := needArg(rest, &i)
					if err != nil {
						return fmt.Errorf("not enough arguments for -P: %w", err)
					}
					n, err := strconv.ParseUint(v, 10, 64)
					if err != nil {
						return fmt.Errorf("bad padding value %q: %w", v, err)
					}
					vals[k] = n
				}
				opts.padding = gpt.Padding{PrePrimary: vals[0], PostPrimary: vals[1], PreBackup: vals[2], PostBackup: vals[3]}

			case 'R':
				hdrSz, err := needArg(rest, &i)
				if err != nil {
					return err
				}
				partSz, err := needArg(rest, &i)
				if err != nil {
					return err
				}
				h, err1 := strconv.ParseUint(hdrSz, 10, 32)
				p, err2 := strconv.ParseUint(partSz, 10, 32)
				if err1 != nil || err2 != nil {
					return fmt.Errorf("bad header/entry sizes %q %q", hdrSz, partSz)
				}
				opts.headerSize = uint32(h)
				opts.entrySize = uint32(p)

			case 's':
				num, err := needArg(rest, &i)
				if err != nil {
					return err
				}
				var fields []string
				for i+1 < len(rest) && !strings.HasPrefix(rest[i+1], "-") {
					i++
					fields = append(fields, rest[i])
				}
				if err := runSetEntryNamed(dev, num, fields); err != nil {
					return err
				}
				processed = true

			case 'x':
				num, err := needArg(rest, &i)
				if err != nil {
					return err
				}
				fields := make([]string, 7)
				for k := range fields {
					v, err := needArg(rest, &i)
					if err != nil {
						return fmt.Errorf("not enough arguments for -x: %w", err)
					}
					fields[k] = v
				}
				if err := runSetEntryPositional(dev, num, fields); err != nil {
					return err
				}
				processed = true

			case 'd':
				v, err := needArg(rest, &i)
				if err != nil {
					return err
				}
				num, err := strconv.Atoi(v)
				if err != nil {
					return fmt.Errorf("bad slot number %q: %w", v, err)
				}
				if err := dev.DelEntry(num); err != nil {
					return err
				}
				processed = true

			case 'm':
				a, err := needArg(rest, &i)
				if err != nil {
					return err
				}
				b, err := needArg(rest, &i)
				if err != nil {
					return err
				}
				numA, err1 := strconv.Atoi(a)
				numB, err2 := strconv.Atoi(b)
				if err1 != nil || err2 != nil {
					return fmt.Errorf("bad slot numbers %q %q", a, b)
				}
				if err := renumberEntry(dev, numA, numB); err != nil {
					return err
				}
				processed = true

			default:
				return fmt.Errorf("unknown flag -%c", letter)
			}
		}

		i++
	}

	if !processed {
		printDevice(log, dev)
	}

	return nil
}

// argTakingFlags holds every letter whose effect needs further argv
// tokens, mirroring the original's restriction that clustering (`-pb`)
// only ever combines flags that take none.
var argTakingFlags = map[byte]bool{
	'L': true, 'B': true, 'G': true, 'N': true, 'U': true, 'P': true,
	'R': true, 's': true, 'x': true, 'd': true, 'm': true,
}

// needsLastInCluster rejects an arg-taking flag that isn't the final
// letter of a clustered token (e.g. "-Lp" is invalid; "-pb" is fine).
func needsLastInCluster(letter byte, last bool) error {
	if argTakingFlags[letter] && !last {
		return fmt.Errorf("flag -%c takes arguments and must end its flag cluster", letter)
	}
	return nil
}

// needArg consumes the next whole argv token as an argument to the flag
// currently being processed, advancing i via its pointer.
func needArg(args []string, i *int) (string, error) {
	if *i+1 >= len(args) {
		return "", fmt.Errorf("missing argument")
	}
	*i++
	return args[*i], nil
}

// setEntryFields is the neutral form both -s (named) and -x (positional)
// parse into before calling dev.SetEntry.
type setEntryFields struct {
	partID     string
	start, end string
	typeID     string
	typeAttr   string
	cmnAttr    string
	label      string
}

// runSetEntryNamed implements -s: "num k=v...", keys p/s/e/t/a/c/l.
func runSetEntryNamed(dev *gpt.Device, numStr string, kvs []string) error {
	var f setEntryFields
	for _, kv := range kvs {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("malformed field %q (want key=value)", kv)
		}
		switch parts[0] {
		case "p":
			f.partID = parts[1]
		case "s":
			f.start = parts[1]
		case "e":
			f.end = parts[1]
		case "t":
			f.typeID = parts[1]
		case "a":
			f.typeAttr = parts[1]
		case "c":
			f.cmnAttr = parts[1]
		case "l":
			f.label = parts[1]
		default:
			return fmt.Errorf("unknown -s field key %q", parts[0])
		}
	}
	return applySetEntry(dev, numStr, f)
}

// runSetEntryPositional implements -x: "num 7 positional fields", "-"
// meaning unspecified for any of them.
func runSetEntryPositional(dev *gpt.Device, numStr string, fields []string) error {
	f := setEntryFields{
		partID:   fields[0],
		start:    fields[1],
		end:      fields[2],
		typeID:   fields[3],
		typeAttr: fields[4],
		cmnAttr:  fields[5],
		label:    fields[6],
	}
	return applySetEntry(dev, numStr, f)
}

func applySetEntry(dev *gpt.Device, numStr string, f setEntryFields) error {
	num, err := strconv.Atoi(numStr)
	if err != nil {
		return fmt.Errorf("bad slot number %q: %w", numStr, err)
	}

	partID, err := optionalUUID(f.partID)
	if err != nil {
		return err
	}
	typeID, err := optionalUUID(f.typeID)
	if err != nil {
		return err
	}

	start, err := optionalLBA(f.start)
	if err != nil {
		return err
	}
	end, err := optionalLBA(f.end)
	if err != nil {
		return err
	}

	attrString := mergeAttrStrings(f.typeAttr, f.cmnAttr)
	label := f.label
	if label == "-" {
		label = ""
	}

	return dev.SetEntry(num, typeID, partID, start, end, attrString, label)
}

// optionalUUID parses a UUID field that may be "-" or absent (unset).
func optionalUUID(s string) (gpt.UUID, error) {
	if s == "" || s == "-" {
		return gpt.UUID{}, nil
	}
	return gpt.TextToBytes(s)
}

// optionalLBA parses an LBA field that may be "-" or absent (unspecified,
// triggering free-space inference).
func optionalLBA(s string) (uint64, error) {
	if s == "" || s == "-" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}

// mergeAttrStrings combines the 16-character type-attribute field (bits
// 63-48) and the 3-character common-attribute field (bits 2-0) into the
// single 64-character idiom applyAttrBits expects, with '-' filling every
// untouched bit in between.
func mergeAttrStrings(typeAttr, cmnAttr string) string {
	if typeAttr == "" && cmnAttr == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(64)
	for i := 0; i < 16; i++ {
		if i < len(typeAttr) {
			b.WriteByte(typeAttr[i])
		} else {
			b.WriteByte('-')
		}
	}
	for i := 0; i < 45; i++ {
		b.WriteByte('-')
	}
	for i := 0; i < 3; i++ {
		if i < len(cmnAttr) {
			b.WriteByte(cmnAttr[i])
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

// renumberEntry implements -m: move the partition occupying slot a into
// slot b, leaving a empty.
func renumberEntry(dev *gpt.Device, a, b int) error {
	return dev.RenumberEntry(a, b)
}

// scanPrintOnlyFlags handles the no-device invocation: only -h is legal,
// any other flag is an error, and the result is a scan of every
// whole-disk device on the system.
func scanPrintOnlyFlags(log elog.Logger, rest []string) error {
	for _, token := range rest {
		if len(token) < 2 || token[0] != '-' {
			return fmt.Errorf("unexpected argument %q", token)
		}
		if token[1] == 'h' {
			printUsage(log)
			return nil
		}
		return fmt.Errorf("unknown flag -%c (device scan mode accepts only -h)", token[1])
	}
	return printAllDevices(log)
}

func printAllDevices(log elog.Logger) error {
	devices, err := devicelist.List()
	if err != nil {
		return err
	}
	for _, dv := range devices {
		io, err := blockio.Open(dv.Path, false)
		if err != nil {
			continue
		}
		printDevice(log, gpt.Open(io))
		io.Close()
	}
	return nil
}

func printUsage(log elog.Logger) {
	log.Printf(`gptctl [DEVICE] [COMMANDS]

Print or modify the contents of GPT partition tables.

If no DEVICE is given, every whole-disk block device is printed.
COMMANDS are processed in the order given; prints if none are given.

This is a raw editing tool. Most commands run with no sanity checks.
Zero-argument flags may be clustered in one token, e.g. -pb for -p -b.

COMMANDS:
-L lbsz          override logical block size
-B last_lba      override last lba of DEVICE
-G heads sectors override legacy geometry used when building a protective MBR
-N max           entry count for the next -g
-U uuid          preset disk uuid for the next -g or -r
-P a b c d       padding quadruple (blocks) for the next -g
-R hdr_sz part_sz custom header/entry sizes for the next -g
-p               print device + mbr + table
-b               write a fresh protective mbr
-g               write a fresh, empty gpt table (wipes all partitions)
-r               relabel the disk guid
-f               restore the primary table from the backup
-l               restore the backup table from the primary
-s num k=v...    set entry NUM; keys p,s,e,t,a,c,l (partid,start,end,typeid,typeattr,cmnattr,label)
-d num           delete entry NUM
-m a b           renumber entry from slot A to slot B
-x num p s e t a c l
                 set entry NUM with 7 positional fields, "-" to skip
-h               this message
`)
}
