// Package interval merges closed integer ranges.
package interval

import (
	"errors"
	"fmt"
	"sort"
)

// ErrMalformed is returned by Parse for intervals whose start lies after their end.
var ErrMalformed = errors.New("malformed interval")

type Interval struct {
	Start int
	End   int // inclusive
}

// Valid reports whether i.Start <= i.End.
func (i Interval) Valid() bool {
	return i.Start <= i.End
}

func (i Interval) String() string {
	return fmt.Sprintf("[%d,%d]", i.Start, i.End)
}

// Merge returns the maximal non-overlapping intervals covering exactly the ranges
// in intervals, sorted by start. Intervals that touch ([1,3] and [3,5]) are merged.
// The input slice is not modified. Behavior for invalid intervals is undefined.
func Merge(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}

	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	merged := []Interval{sorted[0]}

	for _, current := range sorted[1:] {
		last := &merged[len(merged)-1]

		if current.Start <= last.End {
			// Overlapping or touching, extend. Nested intervals must not shrink last.
			if current.End > last.End {
				last.End = current.End
			}

			continue
		}

		merged = append(merged, current)
	}

	return merged
}
