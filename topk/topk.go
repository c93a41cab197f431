// Package topk counts element occurrences and selects the most frequent ones.
//
// Ties between elements with the same count are broken by first occurrence: the
// element seen earlier in the input ranks higher. Both selection strategies
// return identical results.
package topk

import (
	"container/heap"
	"errors"
	"fmt"
	"sort"
)

// ErrNegativeK is returned when a negative number of elements is requested.
var ErrNegativeK = errors.New("negative k")

type Strategy int

const (
	// Auto picks Heap when k is small compared to the number of distinct elements.
	Auto Strategy = iota
	// Sort sorts all entries, O(n log n).
	Sort
	// Heap keeps a min-heap of the k best entries, O(n log k).
	Heap
)

func (s Strategy) String() string {
	switch s {
	case Auto:
		return "auto"
	case Sort:
		return "sort"
	case Heap:
		return "heap"
	default:
		panic(fmt.Sprintf("unexpected strategy: %d", int(s)))
	}
}

// ParseStrategy returns the Strategy named by s.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "", "auto":
		return Auto, nil
	case "sort":
		return Sort, nil
	case "heap":
		return Heap, nil
	default:
		return Auto, fmt.Errorf("unknown strategy %q", s)
	}
}

type Entry[T comparable] struct {
	Value T
	Count int
}

func (e Entry[T]) String() string {
	return fmt.Sprintf("{%v %d}", e.Value, e.Count)
}

type counter struct {
	count int
	first int // position of the first occurrence
}

// Table is a frequency table. The zero value is not usable, create tables with NewTable or Count.
type Table[T comparable] struct {
	m     map[T]*counter
	order []T
}

func NewTable[T comparable]() *Table[T] {
	return &Table[T]{
		m: make(map[T]*counter),
	}
}

// Count builds a frequency table from items in a single pass.
func Count[T comparable](items []T) *Table[T] {
	t := NewTable[T]()

	for _, v := range items {
		t.Add(v)
	}

	return t
}

// Add records a single occurrence of v.
func (t *Table[T]) Add(v T) {
	t.AddN(v, 1)
}

// AddN records n occurrences of v. Counters never drop below zero.
func (t *Table[T]) AddN(v T, n int) {
	c, ok := t.m[v]
	if !ok {
		c = &counter{first: len(t.order)}
		t.m[v] = c
		t.order = append(t.order, v)
	}

	c.count += n
	if c.count < 0 {
		c.count = 0
	}
}

// Count returns how often v has been seen.
func (t *Table[T]) Count(v T) int {
	c, ok := t.m[v]
	if !ok {
		return 0
	}

	return c.count
}

// Len returns the number of distinct elements in t.
func (t *Table[T]) Len() int {
	return len(t.order)
}

// Entries returns all entries in order of first occurrence.
func (t *Table[T]) Entries() []Entry[T] {
	entries := make([]Entry[T], 0, len(t.order))

	for _, v := range t.order {
		entries = append(entries, Entry[T]{Value: v, Count: t.m[v].count})
	}

	return entries
}

// Top returns the k most frequent entries, most frequent first.
func (t *Table[T]) Top(k int) ([]Entry[T], error) {
	return t.TopWith(k, Auto)
}

// TopWith is like Top, but selects with the given strategy.
func (t *Table[T]) TopWith(k int, s Strategy) ([]Entry[T], error) {
	if k < 0 {
		return nil, fmt.Errorf("selecting top %d: %w", k, ErrNegativeK)
	}

	if k > t.Len() {
		k = t.Len()
	}

	if k == 0 {
		return nil, nil
	}

	if s == Auto {
		s = Sort
		if k*4 < t.Len() {
			s = Heap
		}
	}

	switch s {
	case Sort:
		return t.topSort(k), nil
	case Heap:
		return t.topHeap(k), nil
	default:
		panic(fmt.Sprintf("unexpected strategy: %d", int(s)))
	}
}

// less reports whether a ranks below b.
func (t *Table[T]) less(a, b T) bool {
	ca, cb := t.m[a], t.m[b]
	if ca.count != cb.count {
		return ca.count < cb.count
	}

	return ca.first > cb.first
}

func (t *Table[T]) topSort(k int) []Entry[T] {
	values := make([]T, len(t.order))
	copy(values, t.order)

	sort.Slice(values, func(i, j int) bool {
		return t.less(values[j], values[i])
	})

	entries := make([]Entry[T], 0, k)
	for _, v := range values[:k] {
		entries = append(entries, Entry[T]{Value: v, Count: t.m[v].count})
	}

	return entries
}

// minHeap keeps the lowest ranked value at index 0.
type minHeap[T comparable] struct {
	t      *Table[T]
	values []T
}

func (h *minHeap[T]) Len() int           { return len(h.values) }
func (h *minHeap[T]) Less(i, j int) bool { return h.t.less(h.values[i], h.values[j]) }
func (h *minHeap[T]) Swap(i, j int)      { h.values[i], h.values[j] = h.values[j], h.values[i] }
func (h *minHeap[T]) Push(x any)         { h.values = append(h.values, x.(T)) }

func (h *minHeap[T]) Pop() any {
	n := len(h.values)
	v := h.values[n-1]
	h.values = h.values[:n-1]

	return v
}

func (t *Table[T]) topHeap(k int) []Entry[T] {
	h := &minHeap[T]{
		t:      t,
		values: make([]T, 0, k),
	}

	for _, v := range t.order {
		if h.Len() < k {
			heap.Push(h, v)
			continue
		}

		if t.less(h.values[0], v) {
			h.values[0] = v
			heap.Fix(h, 0)
		}
	}

	// Popping yields the lowest ranked first, fill from the back
	entries := make([]Entry[T], h.Len())
	for idx := len(entries) - 1; idx >= 0; idx-- {
		v := heap.Pop(h).(T)
		entries[idx] = Entry[T]{Value: v, Count: t.m[v].count}
	}

	return entries
}

// TopK returns the k most frequent elements of items, most frequent first.
func TopK[T comparable](items []T, k int) ([]T, error) {
	entries, err := Count(items).Top(k)
	if err != nil {
		return nil, err
	}

	values := make([]T, 0, len(entries))
	for _, e := range entries {
		values = append(values, e.Value)
	}

	return values, nil
}
