package genetic

import (
	"fmt"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Selection is the outcome of one selection step: the elite indices in
// fitness order and the parent pairs for the remaining slots.
type Selection struct {
	Elite []int
	Pairs [][2]int
}

// RouletteSelector samples parents with probability proportional to fitness.
type RouletteSelector struct{}

func (RouletteSelector) Name() string {
	return "roulette"
}

// PickParent returns one index. Negative fitness counts as zero and a wheel
// with no mass falls back to a uniform draw.
func (RouletteSelector) PickParent(rng *rand.Rand, fitness []float64) (int, error) {
	if rng == nil {
		return 0, fmt.Errorf("random source is required")
	}
	if len(fitness) == 0 {
		return 0, fmt.Errorf("empty population")
	}
	weights := make([]float64, len(fitness))
	for i, f := range fitness {
		weights[i] = max(f, 0)
	}
	total := floats.Sum(weights)
	if total <= 0 {
		return rng.Intn(len(fitness)), nil
	}
	spin := rng.Float64() * total
	cumulative := 0.0
	for i, w := range weights {
		cumulative += w
		if spin < cumulative {
			return i, nil
		}
	}
	for i := len(weights) - 1; i >= 0; i-- {
		if weights[i] > 0 {
			return i, nil
		}
	}
	return len(weights) - 1, nil
}

// eliteIndices returns the n fittest indices, ties broken by population
// order.
func eliteIndices(fitness []float64, n int) []int {
	ranked := make([]int, len(fitness))
	for i := range ranked {
		ranked[i] = i
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return fitness[ranked[i]] > fitness[ranked[j]]
	})
	n = max(0, min(n, len(ranked)))
	return ranked[:n]
}

func selectPopulation(rng *rand.Rand, fitness []float64, elitism int) (Selection, error) {
	var selector RouletteSelector
	sel := Selection{Elite: eliteIndices(fitness, elitism)}
	remaining := len(fitness) - len(sel.Elite)
	pairs := (remaining + 1) / 2
	sel.Pairs = make([][2]int, 0, pairs)
	for range pairs {
		first, err := selector.PickParent(rng, fitness)
		if err != nil {
			return Selection{}, err
		}
		second, err := selector.PickParent(rng, fitness)
		if err != nil {
			return Selection{}, err
		}
		sel.Pairs = append(sel.Pairs, [2]int{first, second})
	}
	return sel, nil
}

// mutate flips every bit with probability rate.
func mutate(rng *rand.Rand, mask []bool, rate float64) {
	if rate <= 0 {
		return
	}
	for i := range mask {
		if rng.Float64() < rate {
			mask[i] = !mask[i]
		}
	}
}
