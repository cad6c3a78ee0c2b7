package search

import (
	"context"

	"structsearch/internal/model"
)

// InputsEvaluator trains a model restricted to the inputs whose mask bit is
// set and reports its performance. Implementations may be called
// concurrently when a genetic run uses more than one worker.
type InputsEvaluator interface {
	EvaluateInputs(ctx context.Context, inputs []bool) (model.Performance, error)
	InputsParameters(ctx context.Context, inputs []bool) ([]float64, error)
	InstallInputs(ctx context.Context, inputs []bool, parameters []float64) error
}

// OrderEvaluator trains a model whose hidden layer has the given size.
type OrderEvaluator interface {
	EvaluateOrder(ctx context.Context, order int) (model.Performance, error)
	OrderParameters(ctx context.Context, order int) ([]float64, error)
	InstallOrder(ctx context.Context, order int, parameters []float64) error
}

// UsesAccessor exposes the per-variable use flags of the dataset behind an
// evaluator so a run can snapshot and restore them.
type UsesAccessor interface {
	VariableUses() []model.VariableUse
	SetVariableUses(uses []model.VariableUse) error
}

// ImportanceProvider supplies prior importance weights, one per input, used by
// weighted population initialization.
type ImportanceProvider interface {
	InputImportance(ctx context.Context) ([]float64, error)
}
