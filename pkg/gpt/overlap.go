package gpt

import "sort"

// overlapCheck implements spec.md §4.7: sort the populated entries by
// start_lba and walk once, flagging any entry whose range is inverted,
// falls outside [first_usable, last_usable], or overlaps the entry before
// it. entries is sorted in place. Reports whether the partition layout is
// sane as a whole (sane_parts).
func overlapCheck(h *Header, entries []Entry) bool {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].StartLBA < entries[j].StartLBA
	})

	sane := true
	var prevEnd uint64
	havePrev := false

	for _, e := range entries {
		if e.StartLBA > e.EndLBA {
			sane = false
			continue
		}
		if e.StartLBA < h.FirstUsableLBA || e.EndLBA > h.LastUsableLBA {
			sane = false
			continue
		}
		if havePrev && e.StartLBA <= prevEnd {
			sane = false
		}
		prevEnd = e.EndLBA
		havePrev = true
	}

	return sane
}
