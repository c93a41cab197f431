package drills

import "fmt"

// Fibonacci returns F(n) with F(0) = 0 and F(1) = 1. Results overflow silently for n > 92.
func Fibonacci(n int) (int, error) {
	if n < 0 {
		return 0, fmt.Errorf("fibonacci(%d): %w", n, ErrNegative)
	}

	prev, curr := 0, 1
	for i := 0; i < n; i++ {
		prev, curr = curr, prev+curr
	}

	return prev, nil
}

// Memo caches Fibonacci numbers. The cache lives as long as the Memo value, so
// callers decide which calls share results. The zero value is ready to use.
type Memo struct {
	cache map[int]int
}

// Len returns the number of cached values.
func (m *Memo) Len() int {
	return len(m.cache)
}

// Fibonacci returns F(n), computing it recursively and caching every intermediate result in m.
func (m *Memo) Fibonacci(n int) (int, error) {
	if n < 0 {
		return 0, fmt.Errorf("fibonacci(%d): %w", n, ErrNegative)
	}

	if m.cache == nil {
		m.cache = make(map[int]int)
	}

	return m.fib(n), nil
}

func (m *Memo) fib(n int) int {
	if n <= 1 {
		return n
	}

	if v, ok := m.cache[n]; ok {
		return v
	}

	v := m.fib(n-1) + m.fib(n-2)
	m.cache[n] = v

	return v
}
