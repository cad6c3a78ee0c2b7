package genetic

import (
	"math/rand"
	"slices"
	"strings"
)

// empty reports whether no input is selected.
func empty(mask []bool) bool {
	return !slices.Contains(mask, true)
}

// repair forces one random bit of an all-false mask to true.
func repair(rng *rand.Rand, mask []bool) {
	if len(mask) == 0 || !empty(mask) {
		return
	}
	mask[rng.Intn(len(mask))] = true
}

func selectedCount(mask []bool) int {
	n := 0
	for _, bit := range mask {
		if bit {
			n++
		}
	}
	return n
}

// maskKey renders a mask as a string of 0s and 1s.
func maskKey(mask []bool) string {
	var b strings.Builder
	b.Grow(len(mask))
	for _, bit := range mask {
		if bit {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

func clonePopulation(population [][]bool) [][]bool {
	out := make([][]bool, len(population))
	for i, mask := range population {
		out[i] = slices.Clone(mask)
	}
	return out
}
