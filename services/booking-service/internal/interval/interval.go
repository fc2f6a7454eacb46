// Package interval implements half-open minute ranges within a single local day.
package interval

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Minute counts minutes since local midnight.
type Minute int

// DayEnd is the exclusive upper bound of a day; "24:00" parses to it.
const DayEnd Minute = 24 * 60

// ParseClock parses "HH:MM" (24h). "24:00" is accepted as DayEnd.
func ParseClock(s string) (Minute, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hh) == 0 || len(hh) > 2 || len(mm) != 2 {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	if !allDigits(hh) || !allDigits(mm) {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m > 59 {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	v := Minute(h*60 + m)
	if v > DayEnd {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	return v, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (m Minute) String() string {
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

// Interval is the half-open range [Start, End).
type Interval struct {
	Start Minute
	End   Minute
}

func (i Interval) String() string {
	return "[" + i.Start.String() + ", " + i.End.String() + ")"
}

// Valid reports 0 <= Start < End <= DayEnd.
func (i Interval) Valid() bool {
	return i.Start >= 0 && i.Start < i.End && i.End <= DayEnd
}

func (i Interval) Len() Minute {
	return i.End - i.Start
}

// Overlaps uses half-open semantics: [a,b) and [b,c) do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start < o.End && o.Start < i.End
}

// OverlapsAny reports whether i overlaps any member of set.
func OverlapsAny(i Interval, set []Interval) bool {
	for _, s := range set {
		if i.Overlaps(s) {
			return true
		}
	}
	return false
}

// Sort orders by start, then end.
func Sort(in []Interval) {
	slices.SortFunc(in, func(a, b Interval) int {
		if a.Start != b.Start {
			return int(a.Start - b.Start)
		}
		return int(a.End - b.End)
	})
}

// Normalize returns a sorted copy with empty ranges dropped and overlapping or touching ranges merged.
func Normalize(in []Interval) []Interval {
	out := make([]Interval, 0, len(in))
	for _, i := range in {
		if i.End > i.Start {
			out = append(out, i)
		}
	}
	Sort(out)
	merged := out[:0]
	for _, cur := range out {
		if n := len(merged); n > 0 && cur.Start <= merged[n-1].End {
			if cur.End > merged[n-1].End {
				merged[n-1].End = cur.End
			}
			continue
		}
		merged = append(merged, cur)
	}
	return merged
}

// Subtract removes every range in remove from base and returns the sorted remainder.
// A base range is split around each removed range it overlaps.
func Subtract(base, remove []Interval) []Interval {
	blocks := Normalize(remove)
	var out []Interval
	for _, b := range Normalize(base) {
		cursor := b.Start
		for _, r := range blocks {
			if r.End <= cursor {
				continue
			}
			if r.Start >= b.End {
				break
			}
			if r.Start > cursor {
				out = append(out, Interval{Start: cursor, End: r.Start})
			}
			cursor = r.End
			if cursor >= b.End {
				break
			}
		}
		if cursor < b.End {
			out = append(out, Interval{Start: cursor, End: b.End})
		}
	}
	return out
}

// Pad widens every range by before/after minutes, clipped to the day.
func Pad(in []Interval, before, after Minute) []Interval {
	before, after = max(before, 0), max(after, 0)
	if before == 0 && after == 0 {
		return in
	}
	out := make([]Interval, 0, len(in))
	for _, i := range in {
		p := Interval{Start: max(i.Start-before, 0), End: min(i.End+after, DayEnd)}
		out = append(out, p)
	}
	return out
}
