package incremental

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"structsearch/internal/model"
	"structsearch/internal/search"
)

type Option func(*Engine)

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine walks hidden-layer orders upwards from the minimum and keeps the one
// with the best generalization performance.
type Engine struct {
	settings  Settings
	evaluator search.OrderEvaluator
	logger    *zap.Logger
	now       func() time.Time
}

func NewEngine(settings Settings, evaluator search.OrderEvaluator, opts ...Option) (*Engine, error) {
	if evaluator == nil {
		return nil, fmt.Errorf("evaluator is required")
	}
	if err := settings.validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		settings:  settings,
		evaluator: search.WithOrderTrials(evaluator, settings.Settings),
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) Settings() Settings { return e.settings }

// PerformOrderSelection evaluates one order per iteration until a stopping
// criterion holds, then retrains the optimal order and installs it.
func (e *Engine) PerformOrderSelection(ctx context.Context) (*model.OrderSelectionResults, error) {
	start := e.now()
	s := e.settings
	criteria := s.Criteria(s.MaximumGeneralizationFailures())
	recorder := search.NewRecorder(s.Reserve())
	results := &model.OrderSelectionResults{}

	var (
		order             = s.MinimumOrder()
		optimalOrder      int
		optimum           model.Performance
		optimalParameters []float64
		previous          float64
		failures          int
		iterations        int
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		perf, err := e.evaluator.EvaluateOrder(ctx, order)
		if err != nil {
			return nil, fmt.Errorf("evaluate order %d: %w", order, err)
		}
		current := order
		err = recorder.Record(ctx, iterations+1, model.Structure{Order: order}, perf, func(ctx context.Context) ([]float64, error) {
			return e.evaluator.OrderParameters(ctx, current)
		})
		if err != nil {
			return nil, err
		}

		switch {
		case iterations == 0 || search.Improves(perf.Generalization, optimum.Generalization, s.Tolerance()):
			optimalOrder = order
			optimum = perf
			if optimalParameters, err = e.evaluator.OrderParameters(ctx, order); err != nil {
				return nil, fmt.Errorf("parameters of order %d: %w", order, err)
			}
		case previous < perf.Generalization:
			failures++
		}
		previous = perf.Generalization
		iterations++

		elapsed := e.now().Sub(start)
		condition := criteria.Decide(search.Progress{
			Elapsed:                   elapsed,
			GeneralizationPerformance: perf.Generalization,
			Iterations:                iterations,
			Failures:                  failures,
			BoundaryReached:           order == s.MaximumOrder(),
		})
		if s.Display() {
			e.logger.Info("order evaluated",
				zap.Int("iteration", iterations),
				zap.Int("order", order),
				zap.Float64("training_performance", perf.Training),
				zap.Float64("generalization_performance", perf.Generalization),
				zap.Int("failures", failures),
				zap.Duration("elapsed", elapsed),
			)
		}
		if condition != model.Continue {
			results.StoppingCondition = condition
			results.ElapsedTime = elapsed
			break
		}
		order = min(s.MaximumOrder(), order+s.Step())
	}

	final, err := e.evaluator.EvaluateOrder(ctx, optimalOrder)
	if err != nil {
		return nil, fmt.Errorf("re-evaluate order %d: %w", optimalOrder, err)
	}
	if err := e.evaluator.InstallOrder(ctx, optimalOrder, optimalParameters); err != nil {
		return nil, fmt.Errorf("install order %d: %w", optimalOrder, err)
	}

	results.OptimalOrder = optimalOrder
	results.FinalTrainingPerformance = final.Training
	results.FinalGeneralizationPerformance = optimum.Generalization
	results.IterationsNumber = iterations
	results.History = recorder.History()
	if s.ReserveMinimalParameters() {
		results.MinimalParameters = slices.Clone(optimalParameters)
	}
	if s.Display() {
		e.logger.Info("order selection finished",
			zap.Stringer("stopping_condition", results.StoppingCondition),
			zap.Int("optimal_order", optimalOrder),
			zap.Float64("generalization_performance", optimum.Generalization),
			zap.Int("iterations", iterations),
		)
	}
	return results, nil
}
