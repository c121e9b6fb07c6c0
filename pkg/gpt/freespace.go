package gpt

import "sort"

// Gap is a contiguous run of unused LBAs within the usable region.
type Gap struct {
	Start uint64
	End   uint64
}

// FreeGaps walks the usable region once and returns every contiguous run
// of LBAs not claimed by any populated entry, per spec.md §4.8. entries
// need not be pre-sorted.
func FreeGaps(h *Header, entries []Entry) []Gap {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartLBA < sorted[j].StartLBA })

	var gaps []Gap
	cursor := h.FirstUsableLBA

	for _, e := range sorted {
		if e.StartLBA > h.LastUsableLBA || e.EndLBA < h.FirstUsableLBA {
			continue
		}
		if e.StartLBA > cursor {
			gaps = append(gaps, Gap{Start: cursor, End: e.StartLBA - 1})
		}
		if e.EndLBA+1 > cursor {
			cursor = e.EndLBA + 1
		}
	}

	if cursor <= h.LastUsableLBA {
		gaps = append(gaps, Gap{Start: cursor, End: h.LastUsableLBA})
	}

	return gaps
}

// GuessFree resolves a possibly-partial (start, end) LBA request against
// the device's free space, per spec.md §4.8's 0-means-infer idiom shared
// with set_entry's field placeholders: if both are zero, the first free
// gap is used; if only start is given, it must fall inside some gap; if
// only end is given, the gap containing that endpoint is used. An
// explicit hint that doesn't fit inside any gap reports NoFit.
func GuessFree(h *Header, entries []Entry, hintStart, hintEnd uint64) (uint64, uint64, error) {
	gaps := FreeGaps(h, entries)
	if len(gaps) == 0 {
		return 0, 0, newErr(KindNoFit, "no free space on device")
	}

	var gap Gap
	switch {
	case hintStart != 0:
		found := false
		for _, g := range gaps {
			if hintStart >= g.Start && hintStart <= g.End {
				gap = g
				found = true
				break
			}
		}
		if !found {
			return 0, 0, newErr(KindNoFit, "requested start lba is not free")
		}

	case hintEnd != 0:
		found := false
		for _, g := range gaps {
			if hintEnd >= g.Start && hintEnd <= g.End {
				gap = g
				found = true
				break
			}
		}
		if !found {
			return 0, 0, newErr(KindNoFit, "requested end lba is not free")
		}

	default:
		gap = gaps[0]
	}

	start := hintStart
	if start == 0 {
		start = gap.Start
	}

	end := hintEnd
	if end == 0 {
		end = gap.End
	} else if end > gap.End || end < start {
		return 0, 0, newErr(KindNoFit, "requested end lba does not fit in free space")
	}

	return start, end, nil
}
