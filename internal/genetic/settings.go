package genetic

import (
	"fmt"
	"math"
	"slices"

	"structsearch/internal/search"
)

const (
	DefaultPopulationSize                = 10
	DefaultMutationRate                  = 0.1
	DefaultElitismSize                   = 2
	DefaultSelectivePressure             = 1.5
	DefaultMaximumGeneralizationFailures = 10
)

type InitializationMethod int

const (
	Random InitializationMethod = iota
	Weighted
)

func (m InitializationMethod) String() string {
	switch m {
	case Random:
		return "Random"
	case Weighted:
		return "Weighted"
	default:
		return fmt.Sprintf("InitializationMethod(%d)", int(m))
	}
}

func ParseInitializationMethod(name string) (InitializationMethod, error) {
	switch name {
	case "Random":
		return Random, nil
	case "Weighted", "Weigthed":
		return Weighted, nil
	default:
		return Random, fmt.Errorf("%w: unknown initialization method %q", search.ErrInvalidSetting, name)
	}
}

type CrossoverMethod int

const (
	OnePoint CrossoverMethod = iota
	TwoPoint
	Uniform
)

func (m CrossoverMethod) String() string {
	switch m {
	case OnePoint:
		return "OnePoint"
	case TwoPoint:
		return "TwoPoint"
	case Uniform:
		return "Uniform"
	default:
		return fmt.Sprintf("CrossoverMethod(%d)", int(m))
	}
}

func ParseCrossoverMethod(name string) (CrossoverMethod, error) {
	switch name {
	case "OnePoint", "Point1":
		return OnePoint, nil
	case "TwoPoint", "Points2":
		return TwoPoint, nil
	case "Uniform", "UniformCrossover":
		return Uniform, nil
	default:
		return OnePoint, fmt.Errorf("%w: unknown crossover method %q", search.ErrInvalidSetting, name)
	}
}

type FitnessAssignment int

const (
	ObjectiveBased FitnessAssignment = iota
	RankBased
)

func (m FitnessAssignment) String() string {
	switch m {
	case ObjectiveBased:
		return "ObjectiveBased"
	case RankBased:
		return "RankBased"
	default:
		return fmt.Sprintf("FitnessAssignment(%d)", int(m))
	}
}

func ParseFitnessAssignment(name string) (FitnessAssignment, error) {
	switch name {
	case "ObjectiveBased":
		return ObjectiveBased, nil
	case "RankBased":
		return RankBased, nil
	default:
		return ObjectiveBased, fmt.Errorf("%w: unknown fitness assignment method %q", search.ErrInvalidSetting, name)
	}
}

// Settings configures an input selection run. The embedded search.Settings
// carries the options shared with order selection.
type Settings struct {
	search.Settings

	populationSize                int
	mutationRate                  float64
	elitismSize                   int
	crossoverFirstPoint           int
	crossoverSecondPoint          int
	selectivePressure             float64
	initializationMethod          InitializationMethod
	crossoverMethod               CrossoverMethod
	fitnessAssignmentMethod       FitnessAssignment
	maximumGeneralizationFailures int
	reserveGenerationMean         bool
	reserveGenerationStdDev       bool
	reserveGenerationMinimum      bool
	seed                          int64
	workers                       int
	reuseEvaluations              bool
	importanceWeights             []float64
}

func NewSettings() Settings {
	var s Settings
	s.SetDefault()
	return s
}

func (s *Settings) SetDefault() {
	s.Settings.SetDefault()
	s.populationSize = DefaultPopulationSize
	s.mutationRate = DefaultMutationRate
	s.elitismSize = DefaultElitismSize
	s.crossoverFirstPoint = 0
	s.crossoverSecondPoint = 0
	s.selectivePressure = DefaultSelectivePressure
	s.initializationMethod = Random
	s.crossoverMethod = Uniform
	s.fitnessAssignmentMethod = RankBased
	s.maximumGeneralizationFailures = DefaultMaximumGeneralizationFailures
	s.reserveGenerationMean = true
	s.reserveGenerationStdDev = true
	s.reserveGenerationMinimum = true
	s.seed = 0
	s.workers = 1
	s.reuseEvaluations = false
	s.importanceWeights = nil
}

func (s Settings) PopulationSize() int { return s.populationSize }
func (s Settings) MutationRate() float64 { return s.mutationRate }
func (s Settings) ElitismSize() int { return s.elitismSize }
func (s Settings) CrossoverFirstPoint() int { return s.crossoverFirstPoint }
func (s Settings) CrossoverSecondPoint() int { return s.crossoverSecondPoint }
func (s Settings) SelectivePressure() float64 { return s.selectivePressure }
func (s Settings) InitializationMethod() InitializationMethod { return s.initializationMethod }
func (s Settings) CrossoverMethod() CrossoverMethod { return s.crossoverMethod }
func (s Settings) FitnessAssignmentMethod() FitnessAssignment { return s.fitnessAssignmentMethod }
func (s Settings) MaximumGeneralizationFailures() int { return s.maximumGeneralizationFailures }
func (s Settings) ReserveGenerationMean() bool { return s.reserveGenerationMean }
func (s Settings) ReserveGenerationStandardDeviation() bool { return s.reserveGenerationStdDev }
func (s Settings) ReserveGenerationMinimum() bool { return s.reserveGenerationMinimum }
func (s Settings) Seed() int64 { return s.seed }
func (s Settings) Workers() int { return s.workers }
func (s Settings) ReuseEvaluations() bool { return s.reuseEvaluations }
func (s Settings) ImportanceWeights() []float64 { return slices.Clone(s.importanceWeights) }

func (s *Settings) SetPopulationSize(n int) error {
	if n < 2 {
		return fmt.Errorf("%w: population size must be >= 2, got %d", search.ErrInvalidSetting, n)
	}
	if n < s.elitismSize {
		return fmt.Errorf("%w: population size %d is smaller than elitism size %d", search.ErrInvalidSetting, n, s.elitismSize)
	}
	s.populationSize = n
	return nil
}

func (s *Settings) SetMutationRate(rate float64) error {
	if math.IsNaN(rate) || rate < 0 || rate > 1 {
		return fmt.Errorf("%w: mutation rate must be in [0, 1], got %v", search.ErrInvalidSetting, rate)
	}
	s.mutationRate = rate
	return nil
}

func (s *Settings) SetElitismSize(n int) error {
	if n < 0 || n > s.populationSize {
		return fmt.Errorf("%w: elitism size must be in [0, %d], got %d", search.ErrInvalidSetting, s.populationSize, n)
	}
	s.elitismSize = n
	return nil
}

// SetCrossoverFirstPoint sets the cut index of one-point crossover and the
// segment start of two-point crossover. Zero draws a random point per pair.
func (s *Settings) SetCrossoverFirstPoint(point int) error {
	if point < 0 {
		return fmt.Errorf("%w: crossover first point must be >= 0, got %d", search.ErrInvalidSetting, point)
	}
	if point != 0 && s.crossoverSecondPoint != 0 && point >= s.crossoverSecondPoint {
		return fmt.Errorf("%w: crossover first point %d must be below second point %d", search.ErrInvalidSetting, point, s.crossoverSecondPoint)
	}
	s.crossoverFirstPoint = point
	return nil
}

func (s *Settings) SetCrossoverSecondPoint(point int) error {
	if point < 0 {
		return fmt.Errorf("%w: crossover second point must be >= 0, got %d", search.ErrInvalidSetting, point)
	}
	if point != 0 && s.crossoverFirstPoint != 0 && point <= s.crossoverFirstPoint {
		return fmt.Errorf("%w: crossover second point %d must be above first point %d", search.ErrInvalidSetting, point, s.crossoverFirstPoint)
	}
	s.crossoverSecondPoint = point
	return nil
}

func (s *Settings) SetSelectivePressure(pressure float64) error {
	if math.IsNaN(pressure) || math.IsInf(pressure, 0) || pressure < 1 {
		return fmt.Errorf("%w: selective pressure must be >= 1, got %v", search.ErrInvalidSetting, pressure)
	}
	s.selectivePressure = pressure
	return nil
}

func (s *Settings) SetInitializationMethod(m InitializationMethod) error {
	if m != Random && m != Weighted {
		return fmt.Errorf("%w: unknown initialization method %d", search.ErrInvalidSetting, int(m))
	}
	s.initializationMethod = m
	return nil
}

func (s *Settings) SetCrossoverMethod(m CrossoverMethod) error {
	if m < OnePoint || m > Uniform {
		return fmt.Errorf("%w: unknown crossover method %d", search.ErrInvalidSetting, int(m))
	}
	s.crossoverMethod = m
	return nil
}

func (s *Settings) SetFitnessAssignmentMethod(m FitnessAssignment) error {
	if m != ObjectiveBased && m != RankBased {
		return fmt.Errorf("%w: unknown fitness assignment method %d", search.ErrInvalidSetting, int(m))
	}
	s.fitnessAssignmentMethod = m
	return nil
}

func (s *Settings) SetMaximumGeneralizationFailures(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: maximum generalization failures must be > 0, got %d", search.ErrInvalidSetting, n)
	}
	s.maximumGeneralizationFailures = n
	return nil
}

func (s *Settings) SetReserveGenerationMean(v bool) { s.reserveGenerationMean = v }

func (s *Settings) SetReserveGenerationStandardDeviation(v bool) { s.reserveGenerationStdDev = v }

func (s *Settings) SetReserveGenerationMinimum(v bool) { s.reserveGenerationMinimum = v }

func (s *Settings) SetSeed(seed int64) { s.seed = seed }

func (s *Settings) SetWorkers(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: workers must be > 0, got %d", search.ErrInvalidSetting, n)
	}
	s.workers = n
	return nil
}

func (s *Settings) SetReuseEvaluations(v bool) { s.reuseEvaluations = v }

// SetImportanceWeights sets the prior weights used by weighted
// initialization. A nil slice clears them.
func (s *Settings) SetImportanceWeights(weights []float64) error {
	for i, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: importance weight %d is not finite", search.ErrInvalidSetting, i)
		}
	}
	s.importanceWeights = slices.Clone(weights)
	return nil
}

// validateFor checks the options that depend on the number of inputs.
func (s Settings) validateFor(inputsNumber int) error {
	if inputsNumber <= 0 {
		return fmt.Errorf("%w: inputs number must be > 0, got %d", search.ErrInvalidSetting, inputsNumber)
	}
	switch s.crossoverMethod {
	case OnePoint:
		if p := s.crossoverFirstPoint; p != 0 && p >= inputsNumber {
			return fmt.Errorf("%w: crossover first point %d must be in [1, %d]", search.ErrInvalidSetting, p, inputsNumber-1)
		}
	case TwoPoint:
		if s.crossoverFirstPoint != 0 && s.crossoverSecondPoint != 0 && s.crossoverSecondPoint > inputsNumber {
			return fmt.Errorf("%w: crossover second point %d must be <= %d", search.ErrInvalidSetting, s.crossoverSecondPoint, inputsNumber)
		}
	}
	if s.initializationMethod == Weighted && s.importanceWeights != nil && len(s.importanceWeights) != inputsNumber {
		return fmt.Errorf("%w: got %d importance weights for %d inputs", search.ErrInvalidSetting, len(s.importanceWeights), inputsNumber)
	}
	return nil
}
