package genetic

import (
	"fmt"
	"math/rand"
)

// Crossover recombines two parents into two offspring. Offspring may be
// all-false; the caller repairs them.
type Crossover interface {
	Name() string
	Cross(rng *rand.Rand, first, second []bool) ([]bool, []bool, error)
}

// OnePointCrossover swaps the tails after Point. A zero Point draws a cut in
// [1, len-1] per pair.
type OnePointCrossover struct {
	Point int
}

func (OnePointCrossover) Name() string {
	return OnePoint.String()
}

func (c OnePointCrossover) Cross(rng *rand.Rand, first, second []bool) ([]bool, []bool, error) {
	if err := checkParents(rng, first, second); err != nil {
		return nil, nil, err
	}
	n := len(first)
	cut := c.Point
	if cut == 0 {
		if n < 2 {
			return swapSegment(first, second, n, n), swapSegment(second, first, n, n), nil
		}
		cut = 1 + rng.Intn(n-1)
	}
	if cut < 1 || cut >= n {
		return nil, nil, fmt.Errorf("crossover point %d out of range for %d inputs", cut, n)
	}
	return swapSegment(first, second, cut, n), swapSegment(second, first, cut, n), nil
}

// TwoPointCrossover swaps the segment [First, Second). The pair is drawn per
// couple unless both points are set.
type TwoPointCrossover struct {
	First  int
	Second int
}

func (TwoPointCrossover) Name() string {
	return TwoPoint.String()
}

func (c TwoPointCrossover) Cross(rng *rand.Rand, first, second []bool) ([]bool, []bool, error) {
	if err := checkParents(rng, first, second); err != nil {
		return nil, nil, err
	}
	n := len(first)
	from, to := c.First, c.Second
	if from == 0 || to == 0 {
		if n < 2 {
			return swapSegment(first, second, n, n), swapSegment(second, first, n, n), nil
		}
		from = 1 + rng.Intn(n-1)
		to = from + 1 + rng.Intn(n-from)
	}
	if from < 1 || to <= from || to > n {
		return nil, nil, fmt.Errorf("crossover points [%d, %d) out of range for %d inputs", from, to, n)
	}
	return swapSegment(first, second, from, to), swapSegment(second, first, from, to), nil
}

// UniformCrossover inherits every bit from either parent with probability 0.5.
type UniformCrossover struct{}

func (UniformCrossover) Name() string {
	return Uniform.String()
}

func (UniformCrossover) Cross(rng *rand.Rand, first, second []bool) ([]bool, []bool, error) {
	if err := checkParents(rng, first, second); err != nil {
		return nil, nil, err
	}
	a := make([]bool, len(first))
	b := make([]bool, len(first))
	for i := range first {
		if rng.Float64() < 0.5 {
			a[i], b[i] = first[i], second[i]
		} else {
			a[i], b[i] = second[i], first[i]
		}
	}
	return a, b, nil
}

func checkParents(rng *rand.Rand, first, second []bool) error {
	if rng == nil {
		return fmt.Errorf("random source is required")
	}
	if len(first) != len(second) {
		return fmt.Errorf("parent length mismatch: %d vs %d", len(first), len(second))
	}
	return nil
}

// swapSegment copies base and takes the bits in [from, to) from other.
func swapSegment(base, other []bool, from, to int) []bool {
	child := make([]bool, len(base))
	copy(child, base)
	copy(child[from:to], other[from:to])
	return child
}
