package search

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"structsearch/internal/model"
)

// ReducePerformances combines the performances of repeated trainings column by
// column.
func ReducePerformances(method PerformanceCalculationMethod, trials []model.Performance) (model.Performance, error) {
	if len(trials) == 0 {
		return model.Performance{}, fmt.Errorf("no trials to reduce")
	}
	training := make([]float64, len(trials))
	generalization := make([]float64, len(trials))
	for i, trial := range trials {
		training[i] = trial.Training
		generalization[i] = trial.Generalization
	}

	switch method {
	case Minimum:
		return model.Performance{Training: floats.Min(training), Generalization: floats.Min(generalization)}, nil
	case Maximum:
		return model.Performance{Training: floats.Max(training), Generalization: floats.Max(generalization)}, nil
	case Mean:
		return model.Performance{Training: stat.Mean(training, nil), Generalization: stat.Mean(generalization, nil)}, nil
	default:
		return model.Performance{}, fmt.Errorf("%w: unknown performance calculation method %d", ErrInvalidSetting, int(method))
	}
}

// TrialsInputs trains every input subset Trials times and reduces the results.
type TrialsInputs struct {
	InputsEvaluator
	Trials int
	Method PerformanceCalculationMethod
}

func (t TrialsInputs) EvaluateInputs(ctx context.Context, inputs []bool) (model.Performance, error) {
	trials := make([]model.Performance, 0, max(t.Trials, 1))
	for i := 0; i < max(t.Trials, 1); i++ {
		perf, err := t.InputsEvaluator.EvaluateInputs(ctx, inputs)
		if err != nil {
			return model.Performance{}, err
		}
		trials = append(trials, perf)
	}
	return ReducePerformances(t.Method, trials)
}

// TrialsOrder trains every order Trials times and reduces the results.
type TrialsOrder struct {
	OrderEvaluator
	Trials int
	Method PerformanceCalculationMethod
}

func (t TrialsOrder) EvaluateOrder(ctx context.Context, order int) (model.Performance, error) {
	trials := make([]model.Performance, 0, max(t.Trials, 1))
	for i := 0; i < max(t.Trials, 1); i++ {
		perf, err := t.OrderEvaluator.EvaluateOrder(ctx, order)
		if err != nil {
			return model.Performance{}, err
		}
		trials = append(trials, perf)
	}
	return ReducePerformances(t.Method, trials)
}

// WithTrials wraps evaluator when more than one trial is configured.
func WithTrials(evaluator InputsEvaluator, s Settings) InputsEvaluator {
	if s.TrialsNumber() <= 1 {
		return evaluator
	}
	return TrialsInputs{InputsEvaluator: evaluator, Trials: s.TrialsNumber(), Method: s.PerformanceCalculationMethod()}
}

// WithOrderTrials wraps evaluator when more than one trial is configured.
func WithOrderTrials(evaluator OrderEvaluator, s Settings) OrderEvaluator {
	if s.TrialsNumber() <= 1 {
		return evaluator
	}
	return TrialsOrder{OrderEvaluator: evaluator, Trials: s.TrialsNumber(), Method: s.PerformanceCalculationMethod()}
}
