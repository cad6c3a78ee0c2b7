package evaluator

import (
	"fmt"
	"math"
	"math/rand"
)

type SyntheticOptions struct {
	Name        string
	Instances   int
	Inputs      int
	Informative int
	Noise       float64
	Seed        int64
}

// Synthetic generates a regression dataset in which the target depends only on
// the first Informative inputs; the remaining inputs are uniform noise.
// Columns are named x1..xn and y.
func Synthetic(opts SyntheticOptions) (*Dataset, error) {
	if opts.Inputs <= 0 || opts.Informative <= 0 || opts.Informative > opts.Inputs {
		return nil, fmt.Errorf("%w: informative=%d inputs=%d", ErrDataset, opts.Informative, opts.Inputs)
	}
	if opts.Instances < 2 {
		return nil, fmt.Errorf("%w: need at least two instances, got %d", ErrDataset, opts.Instances)
	}
	name := opts.Name
	if name == "" {
		name = "synthetic"
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	columns := make([]string, opts.Inputs+1)
	for i := 0; i < opts.Inputs; i++ {
		columns[i] = fmt.Sprintf("x%d", i+1)
	}
	columns[opts.Inputs] = "y"

	rows := make([][]float64, opts.Instances)
	for r := range rows {
		row := make([]float64, opts.Inputs+1)
		target := 0.0
		for i := 0; i < opts.Inputs; i++ {
			row[i] = 2*rng.Float64() - 1
			if i < opts.Informative {
				target += math.Sin(float64(i+1) * row[i])
			}
		}
		row[opts.Inputs] = target + opts.Noise*rng.NormFloat64()
		rows[r] = row
	}
	return NewDataset(name, columns, rows, []string{"y"}, DefaultValidationFraction)
}
