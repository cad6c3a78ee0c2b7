package genetic

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"structsearch/internal/model"
)

// maskEvaluator scores a mask by its distance to a target mask.
type maskEvaluator struct {
	mu        sync.Mutex
	target    []bool
	constant  *float64
	calls     int
	installed []bool
	fail      error
}

func (m *maskEvaluator) score(mask []bool) float64 {
	if m.constant != nil {
		return *m.constant
	}
	mismatches := 0
	for i := range mask {
		if mask[i] != m.target[i] {
			mismatches++
		}
	}
	return float64(mismatches) / float64(len(mask))
}

func (m *maskEvaluator) EvaluateInputs(_ context.Context, mask []bool) (model.Performance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.fail != nil {
		return model.Performance{}, m.fail
	}
	g := m.score(mask)
	return model.Performance{Training: g / 2, Generalization: g}, nil
}

func (m *maskEvaluator) InputsParameters(_ context.Context, mask []bool) ([]float64, error) {
	return []float64{float64(selectedCount(mask))}, nil
}

func (m *maskEvaluator) InstallInputs(_ context.Context, mask []bool, _ []float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.installed = slices.Clone(mask)
	return nil
}

func (m *maskEvaluator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type usesEvaluator struct {
	*maskEvaluator
	uses []model.VariableUse
}

func (u *usesEvaluator) VariableUses() []model.VariableUse {
	return slices.Clone(u.uses)
}

func (u *usesEvaluator) SetVariableUses(uses []model.VariableUse) error {
	u.uses = slices.Clone(uses)
	return nil
}

type importanceEvaluator struct {
	*maskEvaluator
	weights []float64
}

func (i *importanceEvaluator) InputImportance(context.Context) ([]float64, error) {
	return i.weights, nil
}

func constant(v float64) *float64 {
	return &v
}

func quietSettings(t *testing.T) Settings {
	t.Helper()
	s := NewSettings()
	s.SetDisplay(false)
	s.SetSeed(7)
	return s
}

func mustEngine(t *testing.T, s Settings, evaluator *maskEvaluator, inputs int, opts ...Option) *Engine {
	t.Helper()
	e, err := NewEngine(s, evaluator, inputs, opts...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

func TestEliteIndividualsSurviveUnchanged(t *testing.T) {
	s := quietSettings(t)
	if err := s.SetPopulationSize(4); err != nil {
		t.Fatal(err)
	}
	if err := s.SetElitismSize(2); err != nil {
		t.Fatal(err)
	}
	if err := s.SetMutationRate(0); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	e := mustEngine(t, s, &maskEvaluator{target: []bool{true, false, true, false, true, true}}, 6)

	if err := e.InitializePopulation(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	for generation := 0; generation < 2; generation++ {
		if err := e.EvaluatePopulation(ctx); err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		if err := e.CalculateFitness(); err != nil {
			t.Fatalf("fitness: %v", err)
		}
		before := e.Population()
		elite := eliteIndices(e.Fitness(), 2)
		if err := e.EvolvePopulation(); err != nil {
			t.Fatalf("evolve: %v", err)
		}
		after := e.Population()
		if len(after) != 4 {
			t.Fatalf("population size changed to %d", len(after))
		}
		for slot, idx := range elite {
			if !slices.Equal(after[slot], before[idx]) {
				t.Fatalf("generation %d: elite %d changed: %v -> %v", generation, idx, before[idx], after[slot])
			}
		}
	}
}

func TestBestFitnessNeverDecreases(t *testing.T) {
	s := quietSettings(t)
	if err := s.SetFitnessAssignmentMethod(ObjectiveBased); err != nil {
		t.Fatal(err)
	}
	if err := s.SetMutationRate(0.3); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	e := mustEngine(t, s, &maskEvaluator{target: []bool{true, false, false, true, false, true, false, true}}, 8)
	if err := e.InitializePopulation(ctx); err != nil {
		t.Fatal(err)
	}

	best := -1.0
	for generation := 0; generation < 15; generation++ {
		if err := e.EvaluatePopulation(ctx); err != nil {
			t.Fatal(err)
		}
		if err := e.CalculateFitness(); err != nil {
			t.Fatal(err)
		}
		current := slices.Max(e.Fitness())
		if current < best {
			t.Fatalf("generation %d: best fitness dropped from %f to %f", generation, best, current)
		}
		best = current
		if err := e.EvolvePopulation(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestNoIndividualSelectsNothing(t *testing.T) {
	s := quietSettings(t)
	if err := s.SetMutationRate(1); err != nil {
		t.Fatal(err)
	}
	if err := s.SetMaximumIterationsNumber(20); err != nil {
		t.Fatal(err)
	}
	if err := s.SetGeneralizationPerformanceGoal(-1); err != nil {
		t.Fatal(err)
	}
	if err := s.SetMaximumGeneralizationFailures(100); err != nil {
		t.Fatal(err)
	}
	e := mustEngine(t, s, &maskEvaluator{target: []bool{false, false, true}}, 3)

	results, err := e.PerformInputsSelection(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if results.History.Len() == 0 {
		t.Fatal("expected history")
	}
	for i, structure := range results.History.Structures {
		if empty(structure.Inputs) {
			t.Fatalf("history entry %d selects no inputs", i)
		}
	}
}

func TestStoppingConditions(t *testing.T) {
	cases := []struct {
		name        string
		configure   func(*Settings) error
		clock       func() time.Time
		value       float64
		want        model.StoppingCondition
		generations int
	}{
		{
			name:        "goal",
			configure:   func(s *Settings) error { return s.SetGeneralizationPerformanceGoal(0.5) },
			value:       0.1,
			want:        model.GoalReached,
			generations: 1,
		},
		{
			name: "iterations",
			configure: func(s *Settings) error {
				if err := s.SetMaximumGeneralizationFailures(100); err != nil {
					return err
				}
				return s.SetMaximumIterationsNumber(2)
			},
			value:       0.3,
			want:        model.MaximumIterations,
			generations: 3,
		},
		{
			name:        "failures",
			configure:   func(s *Settings) error { return s.SetMaximumGeneralizationFailures(3) },
			value:       0.3,
			want:        model.MaximumFailures,
			generations: 4,
		},
		{
			name:      "time",
			configure: func(s *Settings) error { return s.SetMaximumTime(time.Minute) },
			clock: func() func() time.Time {
				now := time.Unix(0, 0)
				return func() time.Time {
					now = now.Add(time.Hour)
					return now
				}
			}(),
			value:       0.3,
			want:        model.MaximumTime,
			generations: 1,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := quietSettings(t)
			if err := tc.configure(&s); err != nil {
				t.Fatal(err)
			}
			evaluator := &maskEvaluator{constant: constant(tc.value)}
			var opts []Option
			if tc.clock != nil {
				opts = append(opts, WithClock(tc.clock))
			}
			e := mustEngine(t, s, evaluator, 4, opts...)
			results, err := e.PerformInputsSelection(context.Background())
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if results.StoppingCondition != tc.want {
				t.Fatalf("stopping condition=%s want=%s", results.StoppingCondition, tc.want)
			}
			if results.IterationsNumber != tc.generations {
				t.Fatalf("generations=%d want=%d", results.IterationsNumber, tc.generations)
			}
			if got, want := evaluator.Calls(), tc.generations*s.PopulationSize(); got != want {
				t.Fatalf("evaluator calls=%d want=%d", got, want)
			}
			if results.History.Len() != evaluator.Calls() {
				t.Fatalf("history has %d entries for %d calls", results.History.Len(), evaluator.Calls())
			}
		})
	}
}

func TestInputsSelectionInstallsAndRestoresUses(t *testing.T) {
	s := quietSettings(t)
	if err := s.SetMaximumIterationsNumber(30); err != nil {
		t.Fatal(err)
	}
	if err := s.SetGeneralizationPerformanceGoal(-1); err != nil {
		t.Fatal(err)
	}
	inner := &maskEvaluator{target: []bool{true, false, true}}
	evaluator := &usesEvaluator{
		maskEvaluator: inner,
		uses:          []model.VariableUse{model.UseInput, model.UseTarget, model.UseInput, model.UseInput},
	}
	e, err := NewEngine(s, evaluator, 3)
	if err != nil {
		t.Fatal(err)
	}

	results, err := e.PerformInputsSelection(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !slices.Equal(inner.installed, results.OptimalInputs) {
		t.Fatalf("installed %v, optimal %v", inner.installed, results.OptimalInputs)
	}
	want := []model.VariableUse{model.UseInput, model.UseTarget, model.UseInput, model.UseInput}
	columns := []int{0, 2, 3}
	for k, column := range columns {
		if !results.OptimalInputs[k] {
			want[column] = model.UseUnused
		}
	}
	if !slices.Equal(evaluator.uses, want) {
		t.Fatalf("uses=%v want=%v", evaluator.uses, want)
	}
	if results.FinalGeneralizationPerformance != inner.score(results.OptimalInputs) {
		t.Fatalf("final generalization %f does not match optimum", results.FinalGeneralizationPerformance)
	}
	if len(results.MinimalParameters) != 1 || results.MinimalParameters[0] != float64(selectedCount(results.OptimalInputs)) {
		t.Fatalf("unexpected minimal parameters %v", results.MinimalParameters)
	}
	if len(results.Generations.Minimum) != results.IterationsNumber || len(results.Generations.StandardDeviation) != results.IterationsNumber {
		t.Fatalf("generation stats do not cover %d generations", results.IterationsNumber)
	}
}

func TestInputsSelectionPropagatesEvaluatorError(t *testing.T) {
	boom := errors.New("training diverged")
	s := quietSettings(t)
	if err := s.SetWorkers(3); err != nil {
		t.Fatal(err)
	}
	e := mustEngine(t, s, &maskEvaluator{constant: constant(0.2), fail: boom}, 4)
	if _, err := e.PerformInputsSelection(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected evaluator error, got %v", err)
	}
}

func TestParallelEvaluationMatchesSequential(t *testing.T) {
	run := func(workers int) *model.InputsSelectionResults {
		s := quietSettings(t)
		if err := s.SetWorkers(workers); err != nil {
			t.Fatal(err)
		}
		if err := s.SetMaximumIterationsNumber(8); err != nil {
			t.Fatal(err)
		}
		if err := s.SetGeneralizationPerformanceGoal(-1); err != nil {
			t.Fatal(err)
		}
		e := mustEngine(t, s, &maskEvaluator{target: []bool{true, true, false, false, true}}, 5)
		results, err := e.PerformInputsSelection(context.Background())
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		return results
	}

	sequential := run(1)
	parallel := run(4)
	if !slices.Equal(sequential.OptimalInputs, parallel.OptimalInputs) {
		t.Fatalf("optimal inputs differ: %v vs %v", sequential.OptimalInputs, parallel.OptimalInputs)
	}
	if !slices.Equal(sequential.History.GeneralizationPerformance, parallel.History.GeneralizationPerformance) {
		t.Fatal("history differs between sequential and parallel evaluation")
	}
}

func TestReuseEvaluationsDedupesWithinGenerationOnly(t *testing.T) {
	population := [][]bool{
		{true, true, false, false},
		{true, true, false, false},
		{false, true, true, false},
		{true, true, true, true},
	}
	for _, tc := range []struct {
		reuse    bool
		perSweep int
	}{
		{reuse: true, perSweep: 3},
		{reuse: false, perSweep: 4},
	} {
		s := quietSettings(t)
		s.SetReuseEvaluations(tc.reuse)
		if err := s.SetPopulationSize(4); err != nil {
			t.Fatal(err)
		}
		evaluator := &maskEvaluator{target: []bool{true, true, false, false}}
		e := mustEngine(t, s, evaluator, 4)

		for generation := 1; generation <= 2; generation++ {
			if err := e.SetPopulation(population); err != nil {
				t.Fatalf("set population: %v", err)
			}
			if err := e.EvaluatePopulation(context.Background()); err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			want := generation * tc.perSweep
			if evaluator.Calls() != want || e.Evaluations() != want {
				t.Fatalf("reuse=%v generation %d: calls=%d evaluations=%d, want %d", tc.reuse, generation, evaluator.Calls(), e.Evaluations(), want)
			}
			perf := e.Performance()
			if perf.At(0, 1) != perf.At(1, 1) || perf.At(0, 0) != perf.At(1, 0) {
				t.Fatalf("duplicate masks must share performance, got %v and %v", perf.RawRowView(0), perf.RawRowView(1))
			}
		}
	}
}

func TestWeightedInitializationUsesImportanceProvider(t *testing.T) {
	s := quietSettings(t)
	if err := s.SetInitializationMethod(Weighted); err != nil {
		t.Fatal(err)
	}
	if err := s.SetPopulationSize(40); err != nil {
		t.Fatal(err)
	}
	evaluator := &importanceEvaluator{
		maskEvaluator: &maskEvaluator{constant: constant(0.1)},
		weights:       []float64{10, 0, 0, 0},
	}
	e, err := NewEngine(s, evaluator, 4)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.InitializePopulation(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	withFirst := 0
	for _, mask := range e.Population() {
		if mask[0] {
			withFirst++
		}
	}
	if withFirst < 30 {
		t.Fatalf("expected the heavy input in most individuals, got %d/40", withFirst)
	}
}

func TestWeightedInitializationWithoutWeightsFails(t *testing.T) {
	s := quietSettings(t)
	if err := s.SetInitializationMethod(Weighted); err != nil {
		t.Fatal(err)
	}
	e := mustEngine(t, s, &maskEvaluator{constant: constant(0.1)}, 4)
	if err := e.InitializePopulation(context.Background()); err == nil {
		t.Fatal("expected missing weights error")
	}
}

func TestSetPopulationRejectsEmptyMask(t *testing.T) {
	s := quietSettings(t)
	if err := s.SetPopulationSize(2); err != nil {
		t.Fatal(err)
	}
	e := mustEngine(t, s, &maskEvaluator{constant: constant(0.1)}, 2)
	if err := e.SetPopulation([][]bool{{true, false}, {false, false}}); err == nil {
		t.Fatal("expected all-false individual to be rejected")
	}
	if err := e.SetPopulation([][]bool{{true, false}, {false, true}}); err != nil {
		t.Fatalf("set population: %v", err)
	}
	if _, err := e.GetOptimalIndividualIndex(); !errors.Is(err, ErrNotEvaluated) {
		t.Fatalf("expected not evaluated error, got %v", err)
	}
}

func TestGetOptimalIndividualIndexPrefersEarliestTie(t *testing.T) {
	s := quietSettings(t)
	if err := s.SetPopulationSize(3); err != nil {
		t.Fatal(err)
	}
	e := mustEngine(t, s, &maskEvaluator{target: []bool{true, false}}, 2)
	if err := e.SetPopulation([][]bool{{false, true}, {true, true}, {true, true}}); err != nil {
		t.Fatal(err)
	}
	if err := e.EvaluatePopulation(context.Background()); err != nil {
		t.Fatal(err)
	}
	idx, err := e.GetOptimalIndividualIndex()
	if err != nil {
		t.Fatal(err)
	}
	if idx != 1 {
		t.Fatalf("optimal index=%d want=1", idx)
	}
}
