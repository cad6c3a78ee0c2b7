package search

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var ErrInvalidSetting = errors.New("invalid setting")

const (
	DefaultTrialsNumber            = 1
	DefaultMaximumIterationsNumber = 1000
	DefaultMaximumTime             = time.Hour
	DefaultTolerance               = 1.0e-3
)

// PerformanceCalculationMethod reduces the performances of repeated trainings
// of the same structure into one value.
type PerformanceCalculationMethod int

const (
	Minimum PerformanceCalculationMethod = iota
	Maximum
	Mean
)

func (m PerformanceCalculationMethod) String() string {
	switch m {
	case Minimum:
		return "Minimum"
	case Maximum:
		return "Maximum"
	case Mean:
		return "Mean"
	default:
		return fmt.Sprintf("PerformanceCalculationMethod(%d)", int(m))
	}
}

func ParsePerformanceCalculationMethod(name string) (PerformanceCalculationMethod, error) {
	switch name {
	case "Minimum":
		return Minimum, nil
	case "Maximum":
		return Maximum, nil
	case "Mean":
		return Mean, nil
	default:
		return Minimum, fmt.Errorf("%w: unknown performance calculation method %q", ErrInvalidSetting, name)
	}
}

// Settings holds the options shared by every selection algorithm. Setters
// validate their argument and leave the settings untouched on error.
type Settings struct {
	trialsNumber                         int
	performanceCalculationMethod         PerformanceCalculationMethod
	reservePerformanceData               bool
	reserveGeneralizationPerformanceData bool
	reserveParametersData                bool
	reserveMinimalParameters             bool
	display                              bool
	generalizationPerformanceGoal        float64
	maximumIterationsNumber              int
	maximumTime                          time.Duration
	tolerance                            float64
}

func NewSettings() Settings {
	var s Settings
	s.SetDefault()
	return s
}

func (s *Settings) SetDefault() {
	s.trialsNumber = DefaultTrialsNumber
	s.performanceCalculationMethod = Minimum
	s.reservePerformanceData = true
	s.reserveGeneralizationPerformanceData = true
	s.reserveParametersData = true
	s.reserveMinimalParameters = true
	s.display = true
	s.generalizationPerformanceGoal = 0
	s.maximumIterationsNumber = DefaultMaximumIterationsNumber
	s.maximumTime = DefaultMaximumTime
	s.tolerance = DefaultTolerance
}

func (s Settings) TrialsNumber() int { return s.trialsNumber }

func (s Settings) PerformanceCalculationMethod() PerformanceCalculationMethod {
	return s.performanceCalculationMethod
}

func (s Settings) ReservePerformanceData() bool { return s.reservePerformanceData }

func (s Settings) ReserveGeneralizationPerformanceData() bool {
	return s.reserveGeneralizationPerformanceData
}

func (s Settings) ReserveParametersData() bool { return s.reserveParametersData }
func (s Settings) ReserveMinimalParameters() bool { return s.reserveMinimalParameters }
func (s Settings) Display() bool { return s.display }
func (s Settings) GeneralizationPerformanceGoal() float64 { return s.generalizationPerformanceGoal }
func (s Settings) MaximumIterationsNumber() int { return s.maximumIterationsNumber }
func (s Settings) MaximumTime() time.Duration { return s.maximumTime }
func (s Settings) Tolerance() float64 { return s.tolerance }

func (s *Settings) SetTrialsNumber(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: trials number must be > 0, got %d", ErrInvalidSetting, n)
	}
	s.trialsNumber = n
	return nil
}

func (s *Settings) SetPerformanceCalculationMethod(m PerformanceCalculationMethod) error {
	if m < Minimum || m > Mean {
		return fmt.Errorf("%w: unknown performance calculation method %d", ErrInvalidSetting, int(m))
	}
	s.performanceCalculationMethod = m
	return nil
}

func (s *Settings) SetReservePerformanceData(v bool) { s.reservePerformanceData = v }

func (s *Settings) SetReserveGeneralizationPerformanceData(v bool) {
	s.reserveGeneralizationPerformanceData = v
}

func (s *Settings) SetReserveParametersData(v bool) { s.reserveParametersData = v }
func (s *Settings) SetReserveMinimalParameters(v bool) { s.reserveMinimalParameters = v }
func (s *Settings) SetDisplay(v bool) { s.display = v }

func (s *Settings) SetGeneralizationPerformanceGoal(v float64) error {
	if math.IsNaN(v) {
		return fmt.Errorf("%w: generalization performance goal must be a number", ErrInvalidSetting)
	}
	s.generalizationPerformanceGoal = v
	return nil
}

func (s *Settings) SetMaximumIterationsNumber(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: maximum iterations number must be >= 0, got %d", ErrInvalidSetting, n)
	}
	s.maximumIterationsNumber = n
	return nil
}

func (s *Settings) SetMaximumTime(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("%w: maximum time must be >= 0, got %s", ErrInvalidSetting, d)
	}
	s.maximumTime = d
	return nil
}

func (s *Settings) SetTolerance(v float64) error {
	if math.IsNaN(v) || v < 0 {
		return fmt.Errorf("%w: tolerance must be >= 0, got %v", ErrInvalidSetting, v)
	}
	s.tolerance = v
	return nil
}

// Criteria builds the stopping thresholds for a run with the given failure
// limit.
func (s Settings) Criteria(maximumFailures int) Criteria {
	return Criteria{
		MaximumTime:                   s.maximumTime,
		GeneralizationPerformanceGoal: s.generalizationPerformanceGoal,
		MaximumIterations:             s.maximumIterationsNumber,
		MaximumFailures:               maximumFailures,
	}
}

func (s Settings) Reserve() Reserve {
	return Reserve{
		Performance:               s.reservePerformanceData,
		GeneralizationPerformance: s.reserveGeneralizationPerformanceData,
		Parameters:                s.reserveParametersData,
	}
}
