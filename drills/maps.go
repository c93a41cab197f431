package drills

import (
	"cmp"
	"sort"
)

// Number is the set of types MergeCounts and SortByValue can sum and order.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Invert maps every value of m to the keys holding it, sorted ascending.
func Invert[K cmp.Ordered, V comparable](m map[K]V) map[V][]K {
	inverted := make(map[V][]K)

	for k, v := range m {
		inverted[v] = append(inverted[v], k)
	}

	for _, keys := range inverted {
		sort.Slice(keys, func(i, j int) bool {
			return keys[i] < keys[j]
		})
	}

	return inverted
}

// MergeCounts sums the values of all maps per key.
func MergeCounts[K comparable, V Number](ms ...map[K]V) map[K]V {
	merged := make(map[K]V)

	for _, m := range ms {
		for k, v := range m {
			merged[k] += v
		}
	}

	return merged
}

type Pair[K cmp.Ordered, V Number] struct {
	Key   K
	Value V
}

// SortByValue returns the entries of m ordered by value, largest first. Equal values are
// ordered by key, ascending.
func SortByValue[K cmp.Ordered, V Number](m map[K]V) []Pair[K, V] {
	pairs := make([]Pair[K, V], 0, len(m))
	for k, v := range m {
		pairs = append(pairs, Pair[K, V]{Key: k, Value: v})
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Value != pairs[j].Value {
			return pairs[i].Value > pairs[j].Value
		}

		return pairs[i].Key < pairs[j].Key
	})

	return pairs
}
