package search

import (
	"context"
	"fmt"
	"slices"

	"structsearch/internal/model"
)

// Reserve selects which per-iteration fields are kept in the history.
type Reserve struct {
	Performance               bool
	GeneralizationPerformance bool
	Parameters                bool
}

// ParametersFunc fetches the trained parameters of the structure being
// recorded. It is only called when parameters are reserved.
type ParametersFunc func(ctx context.Context) ([]float64, error)

type Recorder struct {
	reserve Reserve
	history model.History
}

func NewRecorder(reserve Reserve) *Recorder {
	return &Recorder{reserve: reserve}
}

func (r *Recorder) Record(ctx context.Context, iteration int, structure model.Structure, performance model.Performance, parameters ParametersFunc) error {
	if r.reserve.Parameters && parameters != nil {
		values, err := parameters(ctx)
		if err != nil {
			return fmt.Errorf("record parameters for iteration %d: %w", iteration, err)
		}
		r.history.Parameters = append(r.history.Parameters, slices.Clone(values))
	}

	r.history.Iterations = append(r.history.Iterations, iteration)
	r.history.Structures = append(r.history.Structures, model.Structure{
		Inputs: slices.Clone(structure.Inputs),
		Order:  structure.Order,
	})
	if r.reserve.Performance {
		r.history.TrainingPerformance = append(r.history.TrainingPerformance, performance.Training)
	}
	if r.reserve.GeneralizationPerformance {
		r.history.GeneralizationPerformance = append(r.history.GeneralizationPerformance, performance.Generalization)
	}
	return nil
}

func (r *Recorder) History() model.History {
	return r.history
}
