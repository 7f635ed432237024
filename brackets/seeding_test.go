package brackets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextPowerOfTwo(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 2: 2, 3: 4, 4: 4, 5: 8, 8: 8, 9: 16}
	for in, want := range cases {
		assert.Equal(t, want, NextPowerOfTwo(in), "NextPowerOfTwo(%d)", in)
	}
}

func TestSeedOrder(t *testing.T) {
	assert.Equal(t, []int{0, 1}, SeedOrder(2))
	assert.Equal(t, []int{0, 3, 1, 2}, SeedOrder(4))
	assert.Equal(t, []int{0, 7, 3, 4, 1, 6, 2, 5}, SeedOrder(8))
	assert.Equal(t, []int{0, 15, 7, 8, 3, 12, 4, 11, 1, 14, 6, 9, 2, 13, 5, 10}, SeedOrder(16))
}

func TestSeedOrder_Properties(t *testing.T) {
	for _, size := range []int{2, 4, 8, 16, 32} {
		order := SeedOrder(size)
		require.Len(t, order, size)

		seen := make(map[int]bool)
		for i := 0; i < size; i += 2 {
			// Every first-round pair is seed s against seed size+1-s.
			assert.Equal(t, size-1, order[i]+order[i+1], "size %d pair %d", size, i/2)
			seen[order[i]], seen[order[i+1]] = true, true
		}
		assert.Len(t, seen, size, "size %d must be a permutation", size)

		// Top two seeds land in opposite halves.
		half := map[int]int{}
		for slot, seed := range order {
			half[seed] = slot / (size / 2)
		}
		assert.NotEqual(t, half[0], half[1], "size %d", size)
	}
}

func TestSeedOrder_RoundOnePairsForEight(t *testing.T) {
	order := SeedOrder(8)
	pairs := [][2]int{}
	for i := 0; i < len(order); i += 2 {
		pairs = append(pairs, [2]int{order[i] + 1, order[i+1] + 1})
	}
	assert.Equal(t, [][2]int{{1, 8}, {4, 5}, {2, 7}, {3, 6}}, pairs)
}
