package genetic

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"structsearch/internal/model"
	"structsearch/internal/search"
)

var ErrNotEvaluated = errors.New("population is not evaluated")

type Option func(*Engine)

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock replaces time.Now for elapsed-time checks.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithCrossover selects a crossover registered with RegisterCrossover
// instead of the one named by the settings.
func WithCrossover(name string) Option {
	return func(e *Engine) {
		e.crossoverName = name
	}
}

// Engine runs a genetic search over input subsets. An Engine is not safe for
// concurrent use; only evaluations inside one generation run in parallel.
type Engine struct {
	settings      Settings
	raw           search.InputsEvaluator
	evaluator     search.InputsEvaluator
	inputsNumber  int
	logger        *zap.Logger
	now           func() time.Time
	crossoverName string

	rng         *rand.Rand
	initializer Initializer
	crossover   Crossover
	assigner    FitnessAssigner

	population  [][]bool
	performance *mat.Dense
	fitness     []float64
	evaluations int
}

func NewEngine(settings Settings, evaluator search.InputsEvaluator, inputsNumber int, opts ...Option) (*Engine, error) {
	if evaluator == nil {
		return nil, fmt.Errorf("evaluator is required")
	}
	if err := settings.validateFor(inputsNumber); err != nil {
		return nil, err
	}

	e := &Engine{
		settings:     settings,
		raw:          evaluator,
		evaluator:    search.WithTrials(evaluator, settings.Settings),
		inputsNumber: inputsNumber,
		logger:       zap.NewNop(),
		now:          time.Now,
		rng:          rand.New(rand.NewSource(settings.Seed())),
	}
	for _, opt := range opts {
		opt(e)
	}

	var err error
	if e.initializer, err = resolveInitializer(settings.InitializationMethod().String(), settings); err != nil {
		return nil, err
	}
	crossoverName := e.crossoverName
	if crossoverName == "" {
		crossoverName = settings.CrossoverMethod().String()
	}
	if e.crossover, err = resolveCrossover(crossoverName, settings); err != nil {
		return nil, err
	}
	if e.assigner, err = resolveFitness(settings.FitnessAssignmentMethod().String(), settings); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) Settings() Settings { return e.settings }

func (e *Engine) InputsNumber() int { return e.inputsNumber }

// Evaluations is the number of evaluator calls made so far. Duplicates
// sharing an evaluation are not counted.
func (e *Engine) Evaluations() int { return e.evaluations }

func (e *Engine) Population() [][]bool { return clonePopulation(e.population) }

// Performance returns a copy of the N×2 matrix of training and
// generalization performance, or nil before evaluation.
func (e *Engine) Performance() *mat.Dense {
	if e.performance == nil {
		return nil
	}
	return mat.DenseCopyOf(e.performance)
}

func (e *Engine) Fitness() []float64 { return slices.Clone(e.fitness) }

// SetPopulation replaces the current population and discards its
// performance and fitness.
func (e *Engine) SetPopulation(population [][]bool) error {
	if len(population) != e.settings.PopulationSize() {
		return fmt.Errorf("population size mismatch: got=%d want=%d", len(population), e.settings.PopulationSize())
	}
	for i, mask := range population {
		if len(mask) != e.inputsNumber {
			return fmt.Errorf("individual %d has %d inputs, want %d", i, len(mask), e.inputsNumber)
		}
		if empty(mask) {
			return fmt.Errorf("individual %d selects no inputs", i)
		}
	}
	e.population = clonePopulation(population)
	e.performance = nil
	e.fitness = nil
	return nil
}

func (e *Engine) InitializePopulation(ctx context.Context) error {
	if w, ok := e.initializer.(WeightedInitializer); ok && len(w.Weights) == 0 {
		provider, ok := e.raw.(search.ImportanceProvider)
		if !ok {
			return fmt.Errorf("weighted initialization requires importance weights or an importance provider")
		}
		weights, err := provider.InputImportance(ctx)
		if err != nil {
			return fmt.Errorf("input importance: %w", err)
		}
		e.initializer = WeightedInitializer{Weights: weights}
	}

	population := make([][]bool, e.settings.PopulationSize())
	for i := range population {
		mask, err := e.initializer.Individual(e.rng, e.inputsNumber)
		if err != nil {
			return fmt.Errorf("initialize individual %d: %w", i, err)
		}
		population[i] = mask
	}
	e.population = population
	e.performance = nil
	e.fitness = nil
	return nil
}

// EvaluatePopulation trains every individual and fills the performance
// matrix. Up to Workers evaluations run at once, each writing its own row.
func (e *Engine) EvaluatePopulation(ctx context.Context) error {
	n := len(e.population)
	if n == 0 {
		return fmt.Errorf("population is not initialized")
	}

	performance := mat.NewDense(n, 2, nil)
	pending := make([]int, 0, n)
	duplicates := make(map[int]int)
	seen := make(map[string]int)
	for i, mask := range e.population {
		// Identical masks share one evaluation within this generation only.
		if e.settings.ReuseEvaluations() {
			key := maskKey(mask)
			if first, ok := seen[key]; ok {
				duplicates[i] = first
				continue
			}
			seen[key] = i
		}
		pending = append(pending, i)
	}

	p := pool.New().
		WithErrors().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError().
		WithMaxGoroutines(e.settings.Workers())
	for _, idx := range pending {
		mask := slices.Clone(e.population[idx])
		p.Go(func(ctx context.Context) error {
			result, err := e.evaluator.EvaluateInputs(ctx, mask)
			if err != nil {
				return fmt.Errorf("evaluate individual %d: %w", idx, err)
			}
			performance.Set(idx, 0, result.Training)
			performance.Set(idx, 1, result.Generalization)
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return err
	}

	for idx, first := range duplicates {
		performance.SetRow(idx, performance.RawRowView(first))
	}
	e.evaluations += len(pending)
	e.performance = performance
	e.fitness = nil
	return nil
}

func (e *Engine) CalculateFitness() error {
	if e.performance == nil {
		return ErrNotEvaluated
	}
	fitness, err := e.assigner.Assign(mat.Col(nil, 1, e.performance))
	if err != nil {
		return fmt.Errorf("%s fitness: %w", e.assigner.Name(), err)
	}
	e.fitness = fitness
	return nil
}

// GetOptimalIndividualIndex returns the individual of the current generation
// with the lowest generalization performance, the first one on ties.
func (e *Engine) GetOptimalIndividualIndex() (int, error) {
	if e.performance == nil {
		return 0, ErrNotEvaluated
	}
	return floats.MinIdx(mat.Col(nil, 1, e.performance)), nil
}

func (e *Engine) PerformSelection() (Selection, error) {
	if e.fitness == nil {
		return Selection{}, fmt.Errorf("fitness is not assigned")
	}
	return selectPopulation(e.rng, e.fitness, e.settings.ElitismSize())
}

// PerformCrossover recombines the selected pairs into exactly
// PopulationSize-len(sel.Elite) offspring, none of them all-false.
func (e *Engine) PerformCrossover(sel Selection) ([][]bool, error) {
	want := len(e.population) - len(sel.Elite)
	offspring := make([][]bool, 0, want)
	for _, pair := range sel.Pairs {
		if len(offspring) >= want {
			break
		}
		a, b, err := e.crossover.Cross(e.rng, e.population[pair[0]], e.population[pair[1]])
		if err != nil {
			return nil, fmt.Errorf("%s crossover: %w", e.crossover.Name(), err)
		}
		repair(e.rng, a)
		repair(e.rng, b)
		offspring = append(offspring, a)
		if len(offspring) < want {
			offspring = append(offspring, b)
		}
	}
	if len(offspring) != want {
		return nil, fmt.Errorf("crossover produced %d offspring, want %d", len(offspring), want)
	}
	return offspring, nil
}

// PerformMutation flips offspring bits in place and repairs empty masks.
func (e *Engine) PerformMutation(offspring [][]bool) {
	for _, mask := range offspring {
		mutate(e.rng, mask, e.settings.MutationRate())
		repair(e.rng, mask)
	}
}

// EvolvePopulation replaces the population with the elite followed by the
// mutated offspring.
func (e *Engine) EvolvePopulation() error {
	sel, err := e.PerformSelection()
	if err != nil {
		return err
	}
	offspring, err := e.PerformCrossover(sel)
	if err != nil {
		return err
	}
	e.PerformMutation(offspring)

	next := make([][]bool, 0, len(e.population))
	for _, idx := range sel.Elite {
		next = append(next, slices.Clone(e.population[idx]))
	}
	next = append(next, offspring...)
	e.population = next
	e.performance = nil
	e.fitness = nil
	return nil
}

// PerformInputsSelection runs generations until a stopping criterion holds,
// installs the best subset seen on the evaluator and returns the results.
func (e *Engine) PerformInputsSelection(ctx context.Context) (*model.InputsSelectionResults, error) {
	start := e.now()
	accessor, hasUses := e.raw.(search.UsesAccessor)
	var originalUses []model.VariableUse
	if hasUses {
		originalUses = slices.Clone(accessor.VariableUses())
	}

	criteria := e.settings.Criteria(e.settings.MaximumGeneralizationFailures())
	recorder := search.NewRecorder(e.settings.Reserve())
	results := &model.InputsSelectionResults{}
	tolerance := e.settings.Tolerance()

	if err := e.InitializePopulation(ctx); err != nil {
		return nil, err
	}

	var (
		optimalInputs     []bool
		optimum           model.Performance
		optimalParameters []float64
		failures          int
		generation        int
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := e.EvaluatePopulation(ctx); err != nil {
			return nil, err
		}
		if err := e.CalculateFitness(); err != nil {
			return nil, err
		}
		generation++

		training := mat.Col(nil, 0, e.performance)
		generalization := mat.Col(nil, 1, e.performance)
		for i, mask := range e.population {
			structure := model.Structure{Inputs: mask}
			perf := model.Performance{Training: training[i], Generalization: generalization[i]}
			err := recorder.Record(ctx, generation, structure, perf, func(ctx context.Context) ([]float64, error) {
				return e.evaluator.InputsParameters(ctx, mask)
			})
			if err != nil {
				return nil, err
			}
		}
		e.recordGeneration(&results.Generations, generalization)

		best, err := e.GetOptimalIndividualIndex()
		if err != nil {
			return nil, err
		}
		candidate := model.Performance{Training: training[best], Generalization: generalization[best]}
		switch {
		case optimalInputs == nil || candidate.Generalization < optimum.Generalization:
			improved := optimalInputs == nil || search.Improves(candidate.Generalization, optimum.Generalization, tolerance)
			optimalInputs = slices.Clone(e.population[best])
			optimum = candidate
			optimalParameters, err = e.evaluator.InputsParameters(ctx, optimalInputs)
			if err != nil {
				return nil, fmt.Errorf("parameters of optimal inputs: %w", err)
			}
			if improved {
				failures = 0
			} else {
				failures++
			}
		default:
			failures++
		}

		elapsed := e.now().Sub(start)
		condition := criteria.Decide(search.Progress{
			Elapsed:                   elapsed,
			GeneralizationPerformance: candidate.Generalization,
			Iterations:                generation,
			Failures:                  failures,
		})
		if e.settings.Display() {
			e.logger.Info("generation evaluated",
				zap.Int("generation", generation),
				zap.String("best_inputs", maskKey(e.population[best])),
				zap.Int("selected", selectedCount(e.population[best])),
				zap.Float64("training_performance", candidate.Training),
				zap.Float64("generalization_performance", candidate.Generalization),
				zap.Float64("optimal_generalization_performance", optimum.Generalization),
				zap.Int("failures", failures),
				zap.Duration("elapsed", elapsed),
			)
		}
		if condition != model.Continue {
			results.StoppingCondition = condition
			results.ElapsedTime = elapsed
			break
		}
		if err := e.EvolvePopulation(); err != nil {
			return nil, err
		}
	}

	if err := e.evaluator.InstallInputs(ctx, optimalInputs, optimalParameters); err != nil {
		return nil, fmt.Errorf("install optimal inputs: %w", err)
	}
	if hasUses {
		uses, err := selectedUses(originalUses, optimalInputs)
		if err != nil {
			return nil, err
		}
		if err := accessor.SetVariableUses(uses); err != nil {
			return nil, fmt.Errorf("restore variable uses: %w", err)
		}
	}

	results.FinalTrainingPerformance = optimum.Training
	results.FinalGeneralizationPerformance = optimum.Generalization
	results.IterationsNumber = generation
	results.OptimalInputs = optimalInputs
	results.History = recorder.History()
	if e.settings.ReserveMinimalParameters() {
		results.MinimalParameters = slices.Clone(optimalParameters)
	}
	if e.settings.Display() {
		e.logger.Info("inputs selection finished",
			zap.Stringer("stopping_condition", results.StoppingCondition),
			zap.String("optimal_inputs", maskKey(optimalInputs)),
			zap.Float64("generalization_performance", optimum.Generalization),
			zap.Int("generations", generation),
			zap.Int("evaluations", e.evaluations),
		)
	}
	return results, nil
}

func (e *Engine) recordGeneration(stats *model.GenerationStats, generalization []float64) {
	if e.settings.ReserveGenerationMinimum() {
		stats.Minimum = append(stats.Minimum, floats.Min(generalization))
	}
	if e.settings.ReserveGenerationMean() {
		stats.Mean = append(stats.Mean, stat.Mean(generalization, nil))
	}
	if e.settings.ReserveGenerationStandardDeviation() {
		stats.StandardDeviation = append(stats.StandardDeviation, stat.StdDev(generalization, nil))
	}
}

// selectedUses starts from the uses seen before the run and marks the input
// columns left out of mask as unused.
func selectedUses(original []model.VariableUse, mask []bool) ([]model.VariableUse, error) {
	uses := slices.Clone(original)
	k := 0
	for i, use := range original {
		if use != model.UseInput {
			continue
		}
		if k >= len(mask) {
			return nil, fmt.Errorf("dataset has more inputs than the %d searched", len(mask))
		}
		if !mask[k] {
			uses[i] = model.UseUnused
		}
		k++
	}
	if k != len(mask) {
		return nil, fmt.Errorf("dataset has %d inputs, searched %d", k, len(mask))
	}
	return uses, nil
}
