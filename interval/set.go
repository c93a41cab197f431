package interval

import "sort"

// Set accumulates intervals and single points. The zero value is ready to use.
//
// Points are integers, so two points next to each other (4 and 5) end up in the
// same interval. Explicitly added intervals only merge when they overlap or touch.
type Set struct {
	intervals []Interval
	points    map[int]struct{}
}

// Add adds the interval i to t.
func (t *Set) Add(i Interval) {
	t.intervals = append(t.intervals, i)
}

// AddPoint adds the single point val to t.
func (t *Set) AddPoint(val int) {
	if t.points == nil {
		t.points = make(map[int]struct{})
	}

	t.points[val] = struct{}{}
}

// Len returns the number of intervals and distinct points added so far.
func (t *Set) Len() int {
	return len(t.intervals) + len(t.points)
}

// Slice returns the merged contents of t, sorted by start.
func (t *Set) Slice() []Interval {
	all := make([]Interval, 0, len(t.intervals)+len(t.points))
	all = append(all, t.intervals...)
	all = append(all, t.pointRuns()...)

	return Merge(all)
}

// pointRuns turns the point set into runs of consecutive integers.
func (t *Set) pointRuns() []Interval {
	if len(t.points) == 0 {
		return nil
	}

	var indices []int
	for i := range t.points {
		indices = append(indices, i)
	}

	sort.Ints(indices)

	var runs []Interval

	current := Interval{
		Start: indices[0],
		End:   indices[0],
	}

	for _, i := range indices[1:] {
		if current.End == i-1 {
			// We can extend the current run
			current.End = i
			continue
		}

		runs = append(runs, current)
		current = Interval{
			Start: i,
			End:   i,
		}
	}

	return append(runs, current)
}
