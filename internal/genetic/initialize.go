package genetic

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// Initializer draws the masks of the first generation.
type Initializer interface {
	Name() string
	Individual(rng *rand.Rand, inputsNumber int) ([]bool, error)
}

// RandomInitializer sets every bit with probability 0.5.
type RandomInitializer struct{}

func (RandomInitializer) Name() string {
	return Random.String()
}

func (RandomInitializer) Individual(rng *rand.Rand, inputsNumber int) ([]bool, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if inputsNumber <= 0 {
		return nil, fmt.Errorf("invalid inputs number: %d", inputsNumber)
	}
	mask := make([]bool, inputsNumber)
	for {
		for i := range mask {
			mask[i] = rng.Float64() < 0.5
		}
		if !empty(mask) {
			return mask, nil
		}
	}
}

const (
	minimumWeightedProbability = 0.01
	maximumWeightedProbability = 0.99
)

// WeightedInitializer biases bit i towards the relative magnitude of
// Weights[i]. A weight of average magnitude selects its input with
// probability 0.5.
type WeightedInitializer struct {
	Weights []float64
}

func (WeightedInitializer) Name() string {
	return Weighted.String()
}

func (w WeightedInitializer) Probabilities() ([]float64, error) {
	if len(w.Weights) == 0 {
		return nil, errors.New("weighted initialization requires importance weights")
	}
	abs := make([]float64, len(w.Weights))
	for i, v := range w.Weights {
		abs[i] = math.Abs(v)
	}
	total := floats.Sum(abs)
	probabilities := make([]float64, len(abs))
	if total == 0 {
		for i := range probabilities {
			probabilities[i] = 0.5
		}
		return probabilities, nil
	}
	n := float64(len(abs))
	for i, v := range abs {
		p := n * v / (2 * total)
		probabilities[i] = math.Min(maximumWeightedProbability, math.Max(minimumWeightedProbability, p))
	}
	return probabilities, nil
}

func (w WeightedInitializer) Individual(rng *rand.Rand, inputsNumber int) ([]bool, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if inputsNumber != len(w.Weights) {
		return nil, fmt.Errorf("got %d importance weights for %d inputs", len(w.Weights), inputsNumber)
	}
	probabilities, err := w.Probabilities()
	if err != nil {
		return nil, err
	}
	mask := make([]bool, inputsNumber)
	for {
		for i, p := range probabilities {
			mask[i] = rng.Float64() < p
		}
		if !empty(mask) {
			return mask, nil
		}
	}
}
