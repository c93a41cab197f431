package drills

import (
	"errors"
)

var (
	ErrEmpty    = errors.New("empty input")
	ErrNegative = errors.New("negative input")
)

// Dedupe returns the distinct elements of xs in order of first occurrence.
func Dedupe[T comparable](xs []T) []T {
	seen := make(map[T]struct{}, len(xs))
	result := make([]T, 0, len(xs))

	for _, x := range xs {
		if _, ok := seen[x]; ok {
			continue
		}

		seen[x] = struct{}{}
		result = append(result, x)
	}

	return result
}

// Flatten flattens arbitrarily nested []any values, depth first.
func Flatten(xs []any) []any {
	result := []any{}

	// Each frame is the remainder of a list still to be visited
	stack := [][]any{xs}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if len(top) == 0 {
			stack = stack[:len(stack)-1]
			continue
		}

		item := top[0]
		stack[len(stack)-1] = top[1:]

		if nested, ok := item.([]any); ok {
			stack = append(stack, nested)
			continue
		}

		result = append(result, item)
	}

	return result
}

// TwoSum returns the indices i < j of two elements of nums adding up to target. If
// there are several such pairs, the one with the smallest j is returned.
func TwoSum(nums []int, target int) (int, int, bool) {
	seen := make(map[int]int, len(nums)) // value -> index

	for j, n := range nums {
		if i, ok := seen[target-n]; ok {
			return i, j, true
		}

		if _, ok := seen[n]; !ok {
			seen[n] = j
		}
	}

	return 0, 0, false
}

// MaxSubarray returns the largest sum of a non-empty contiguous subarray of nums.
func MaxSubarray(nums []int) (int, error) {
	if len(nums) == 0 {
		return 0, ErrEmpty
	}

	best, current := nums[0], nums[0]

	for _, n := range nums[1:] {
		// Either extend the current subarray or start a new one
		current = max(n, current+n)
		best = max(best, current)
	}

	return best, nil
}

// BinarySearch returns the index of target in the ascending slice nums, or -1.
func BinarySearch(nums []int, target int) int {
	left, right := 0, len(nums)-1

	for left <= right {
		mid := left + (right-left)/2

		switch {
		case nums[mid] == target:
			return mid
		case nums[mid] < target:
			left = mid + 1
		default:
			right = mid - 1
		}
	}

	return -1
}
