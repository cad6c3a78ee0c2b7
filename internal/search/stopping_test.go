package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"structsearch/internal/model"
)

func TestCriteriaDecidePriority(t *testing.T) {
	criteria := Criteria{
		MaximumTime:                   time.Minute,
		GeneralizationPerformanceGoal: 0.1,
		MaximumIterations:             5,
		MaximumFailures:               3,
	}

	cases := []struct {
		name     string
		progress Progress
		want     model.StoppingCondition
	}{
		{
			name:     "continue",
			progress: Progress{Elapsed: time.Second, GeneralizationPerformance: 0.5, Iterations: 1},
			want:     model.Continue,
		},
		{
			name: "time wins over everything",
			progress: Progress{
				Elapsed:                   2 * time.Minute,
				GeneralizationPerformance: 0.01,
				Iterations:                10,
				Failures:                  10,
				BoundaryReached:           true,
			},
			want: model.MaximumTime,
		},
		{
			name: "goal before iterations",
			progress: Progress{
				GeneralizationPerformance: 0.05,
				Iterations:                10,
				Failures:                  10,
				BoundaryReached:           true,
			},
			want: model.GoalReached,
		},
		{
			name:     "iterations before failures",
			progress: Progress{GeneralizationPerformance: 0.5, Iterations: 6, Failures: 3, BoundaryReached: true},
			want:     model.MaximumIterations,
		},
		{
			name:     "iteration cap is exclusive",
			progress: Progress{GeneralizationPerformance: 0.5, Iterations: 5},
			want:     model.Continue,
		},
		{
			name:     "failures before boundary",
			progress: Progress{GeneralizationPerformance: 0.5, Iterations: 2, Failures: 3, BoundaryReached: true},
			want:     model.MaximumFailures,
		},
		{
			name:     "boundary",
			progress: Progress{GeneralizationPerformance: 0.5, Iterations: 2, Failures: 2, BoundaryReached: true},
			want:     model.BoundaryReached,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := criteria.Decide(tc.progress); got != tc.want {
				t.Fatalf("Decide()=%s want=%s", got, tc.want)
			}
		})
	}
}

func TestCriteriaZeroFailureLimitNeverFires(t *testing.T) {
	criteria := Criteria{MaximumTime: time.Hour, GeneralizationPerformanceGoal: -1, MaximumIterations: 100}
	if got := criteria.Decide(Progress{Iterations: 1, Failures: 50}); got != model.Continue {
		t.Fatalf("expected continue, got %s", got)
	}
}

func TestImprovesRespectsTolerance(t *testing.T) {
	if !Improves(0.4, 0.5, 0.05) {
		t.Fatal("expected 0.4 to improve 0.5 with tolerance 0.05")
	}
	if Improves(0.46, 0.5, 0.05) {
		t.Fatal("improvement inside tolerance must not count")
	}
	if Improves(0.6, 0.5, 0) {
		t.Fatal("a worse value never improves")
	}
}

func TestRecorderHonorsReserveFlags(t *testing.T) {
	ctx := context.Background()
	calls := 0
	params := func(context.Context) ([]float64, error) {
		calls++
		return []float64{1, 2}, nil
	}

	full := NewRecorder(Reserve{Performance: true, GeneralizationPerformance: true, Parameters: true})
	if err := full.Record(ctx, 1, model.Structure{Order: 3}, model.Performance{Training: 0.2, Generalization: 0.3}, params); err != nil {
		t.Fatalf("record: %v", err)
	}
	history := full.History()
	if history.Len() != 1 || history.Structures[0].Order != 3 {
		t.Fatalf("unexpected structures: %+v", history.Structures)
	}
	if len(history.TrainingPerformance) != 1 || len(history.GeneralizationPerformance) != 1 || len(history.Parameters) != 1 {
		t.Fatalf("expected every reserved field, got %+v", history)
	}

	bare := NewRecorder(Reserve{})
	if err := bare.Record(ctx, 1, model.Structure{Inputs: []bool{true}}, model.Performance{}, params); err != nil {
		t.Fatalf("record: %v", err)
	}
	history = bare.History()
	if history.Len() != 1 {
		t.Fatalf("structures are always recorded, got %d", history.Len())
	}
	if history.TrainingPerformance != nil || history.GeneralizationPerformance != nil || history.Parameters != nil {
		t.Fatalf("expected no reserved fields, got %+v", history)
	}
	if calls != 1 {
		t.Fatalf("parameters fetched %d times, want 1", calls)
	}
}

func TestRecorderCopiesInputs(t *testing.T) {
	rec := NewRecorder(Reserve{})
	mask := []bool{true, false}
	if err := rec.Record(context.Background(), 0, model.Structure{Inputs: mask}, model.Performance{}, nil); err != nil {
		t.Fatalf("record: %v", err)
	}
	mask[1] = true
	if rec.History().Structures[0].Inputs[1] {
		t.Fatal("recorder must not alias the caller's mask")
	}
}

func TestRecorderPropagatesParameterError(t *testing.T) {
	rec := NewRecorder(Reserve{Parameters: true})
	boom := errors.New("boom")
	err := rec.Record(context.Background(), 0, model.Structure{}, model.Performance{}, func(context.Context) ([]float64, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped parameter error, got %v", err)
	}
	if rec.History().Len() != 0 {
		t.Fatal("failed record must not append")
	}
}
