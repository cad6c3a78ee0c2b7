package genetic

import (
	"fmt"
	"math"
	"sort"
)

// FitnessAssigner turns generalization performances (lower is better) into
// selection weights (higher is better).
type FitnessAssigner interface {
	Name() string
	Assign(generalization []float64) ([]float64, error)
}

// ObjectiveBasedFitness uses 1/(1+performance). Negative performances are
// treated as zero.
type ObjectiveBasedFitness struct{}

func (ObjectiveBasedFitness) Name() string {
	return ObjectiveBased.String()
}

func (ObjectiveBasedFitness) Assign(generalization []float64) ([]float64, error) {
	fitness := make([]float64, len(generalization))
	for i, perf := range generalization {
		if math.IsNaN(perf) {
			return nil, fmt.Errorf("individual %d has no generalization performance", i)
		}
		fitness[i] = 1 / (1 + math.Max(perf, 0))
	}
	return fitness, nil
}

// RankBasedFitness applies linear ranking. The best individual gets
// SelectivePressure and the worst 2-SelectivePressure; ties keep population
// order.
type RankBasedFitness struct {
	SelectivePressure float64
}

func (RankBasedFitness) Name() string {
	return RankBased.String()
}

func (f RankBasedFitness) Assign(generalization []float64) ([]float64, error) {
	sp := f.SelectivePressure
	if math.IsNaN(sp) || sp < 1 {
		return nil, fmt.Errorf("invalid selective pressure: %v", sp)
	}
	for i, perf := range generalization {
		if math.IsNaN(perf) {
			return nil, fmt.Errorf("individual %d has no generalization performance", i)
		}
	}

	order := make([]int, len(generalization))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return generalization[order[i]] < generalization[order[j]]
	})

	n := len(generalization)
	fitness := make([]float64, n)
	for position, idx := range order {
		if n == 1 {
			fitness[idx] = sp
			continue
		}
		fitness[idx] = sp - 2*(sp-1)*float64(position)/float64(n-1)
	}
	return fitness, nil
}
