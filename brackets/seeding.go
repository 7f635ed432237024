package brackets

// NextPowerOfTwo returns the smallest power of two that is >= n.
func NextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// SeedOrder returns the standard tournament seeding order for a bracket of
// the given size: slot i is filled by the seed with zero-based index
// SeedOrder(size)[i]. Seeds 1 and 2 can only meet in the final, and each
// round-1 pair sums to size-1 (1v8, 4v5, 2v7, 3v6 for size 8).
// Sizes that are not a power of two are rounded up.
func SeedOrder(size int) []int {
	if size < 2 {
		return []int{0}
	}
	size = NextPowerOfTwo(size)

	order := []int{0, 1}
	for len(order) < size {
		n := len(order) * 2
		next := make([]int, 0, n)
		for _, p := range order {
			next = append(next, p, n-1-p)
		}
		order = next
	}
	return order
}
