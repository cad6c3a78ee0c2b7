package search

import (
	"math"
	"time"

	"structsearch/internal/model"
)

// Criteria are the thresholds checked after every iteration.
type Criteria struct {
	MaximumTime                   time.Duration
	GeneralizationPerformanceGoal float64
	MaximumIterations             int
	MaximumFailures               int
}

// Progress is the state of a run right after an iteration was evaluated.
type Progress struct {
	Elapsed                   time.Duration
	GeneralizationPerformance float64
	Iterations                int
	Failures                  int
	BoundaryReached           bool
}

// Decide returns the first criterion that holds, in priority order, or
// model.Continue.
func (c Criteria) Decide(p Progress) model.StoppingCondition {
	switch {
	case p.Elapsed > c.MaximumTime:
		return model.MaximumTime
	case p.GeneralizationPerformance < c.GeneralizationPerformanceGoal:
		return model.GoalReached
	case p.Iterations > c.MaximumIterations:
		return model.MaximumIterations
	case c.MaximumFailures > 0 && p.Failures >= c.MaximumFailures:
		return model.MaximumFailures
	case p.BoundaryReached:
		return model.BoundaryReached
	default:
		return model.Continue
	}
}

// Improves reports whether candidate beats optimum by more than tolerance.
func Improves(candidate, optimum, tolerance float64) bool {
	return optimum > candidate && math.Abs(optimum-candidate) > tolerance
}
