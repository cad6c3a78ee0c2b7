package genetic

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrStrategyExists   = errors.New("strategy already registered")
	ErrStrategyNotFound = errors.New("strategy not found")
)

type (
	InitializerFactory func(s Settings) Initializer
	CrossoverFactory   func(s Settings) Crossover
	FitnessFactory     func(s Settings) FitnessAssigner
)

type strategyTable struct {
	mu           sync.RWMutex
	initializers map[string]InitializerFactory
	crossovers   map[string]CrossoverFactory
	fitness      map[string]FitnessFactory
}

var strategies = newStrategyTable()

func newStrategyTable() *strategyTable {
	t := &strategyTable{
		initializers: map[string]InitializerFactory{
			Random.String(): func(Settings) Initializer { return RandomInitializer{} },
			Weighted.String(): func(s Settings) Initializer {
				return WeightedInitializer{Weights: s.ImportanceWeights()}
			},
		},
		crossovers: map[string]CrossoverFactory{
			OnePoint.String(): func(s Settings) Crossover {
				return OnePointCrossover{Point: s.CrossoverFirstPoint()}
			},
			TwoPoint.String(): func(s Settings) Crossover {
				return TwoPointCrossover{First: s.CrossoverFirstPoint(), Second: s.CrossoverSecondPoint()}
			},
			Uniform.String(): func(Settings) Crossover { return UniformCrossover{} },
		},
		fitness: map[string]FitnessFactory{
			ObjectiveBased.String(): func(Settings) FitnessAssigner { return ObjectiveBasedFitness{} },
			RankBased.String(): func(s Settings) FitnessAssigner {
				return RankBasedFitness{SelectivePressure: s.SelectivePressure()}
			},
		},
	}
	return t
}

// RegisterCrossover adds a named crossover that can be selected with
// WithCrossover.
func RegisterCrossover(name string, factory CrossoverFactory) error {
	if name == "" {
		return errors.New("crossover name is required")
	}
	if factory == nil {
		return errors.New("crossover factory is required")
	}
	strategies.mu.Lock()
	defer strategies.mu.Unlock()
	if _, exists := strategies.crossovers[name]; exists {
		return fmt.Errorf("%w: %s", ErrStrategyExists, name)
	}
	strategies.crossovers[name] = factory
	return nil
}

func resolveInitializer(name string, s Settings) (Initializer, error) {
	strategies.mu.RLock()
	factory, ok := strategies.initializers[name]
	strategies.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: initializer %s", ErrStrategyNotFound, name)
	}
	return factory(s), nil
}

func resolveCrossover(name string, s Settings) (Crossover, error) {
	strategies.mu.RLock()
	factory, ok := strategies.crossovers[name]
	strategies.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: crossover %s", ErrStrategyNotFound, name)
	}
	return factory(s), nil
}

func resolveFitness(name string, s Settings) (FitnessAssigner, error) {
	strategies.mu.RLock()
	factory, ok := strategies.fitness[name]
	strategies.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: fitness %s", ErrStrategyNotFound, name)
	}
	return factory(s), nil
}

// ListCrossovers returns the registered crossover names in sorted order.
func ListCrossovers() []string {
	strategies.mu.RLock()
	defer strategies.mu.RUnlock()
	names := make([]string, 0, len(strategies.crossovers))
	for name := range strategies.crossovers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resetStrategiesForTests() {
	fresh := newStrategyTable()
	strategies.mu.Lock()
	defer strategies.mu.Unlock()
	strategies.initializers = fresh.initializers
	strategies.crossovers = fresh.crossovers
	strategies.fitness = fresh.fitness
}
