package model

import "time"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Performance is the pair of error values returned for one trained structure.
// Lower is better for both.
type Performance struct {
	Training       float64 `json:"training"`
	Generalization float64 `json:"generalization"`
}

// VariableUse is the role of one dataset column.
type VariableUse int

const (
	UseInput VariableUse = iota
	UseTarget
	UseUnused
)

func (u VariableUse) String() string {
	switch u {
	case UseInput:
		return "Input"
	case UseTarget:
		return "Target"
	case UseUnused:
		return "Unused"
	default:
		return "Unknown"
	}
}

// Structure is one point of a search space: either an input subset or a
// hidden-layer order.
type Structure struct {
	Inputs []bool `json:"inputs,omitempty"`
	Order  int    `json:"order,omitempty"`
}

// History is the append-only per-iteration log of a selection run. Slices
// other than Iterations and Structures are only filled when the matching
// reserve flag is set.
type History struct {
	Iterations                []int       `json:"iterations"`
	Structures                []Structure `json:"structures"`
	TrainingPerformance       []float64   `json:"training_performance,omitempty"`
	GeneralizationPerformance []float64   `json:"generalization_performance,omitempty"`
	Parameters                [][]float64 `json:"parameters,omitempty"`
}

func (h History) Len() int {
	return len(h.Structures)
}

// GenerationStats summarizes generalization performance per generation.
type GenerationStats struct {
	Minimum           []float64 `json:"minimum,omitempty"`
	Mean              []float64 `json:"mean,omitempty"`
	StandardDeviation []float64 `json:"standard_deviation,omitempty"`
}

// Outcome holds the terminal fields shared by every selection algorithm.
type Outcome struct {
	StoppingCondition              StoppingCondition `json:"stopping_condition"`
	FinalTrainingPerformance       float64           `json:"final_training_performance"`
	FinalGeneralizationPerformance float64           `json:"final_generalization_performance"`
	MinimalParameters              []float64         `json:"minimal_parameters,omitempty"`
	ElapsedTime                    time.Duration     `json:"elapsed_time"`
	IterationsNumber               int               `json:"iterations_number"`
}

type InputsSelectionResults struct {
	Outcome
	History       History         `json:"history"`
	Generations   GenerationStats `json:"generations"`
	OptimalInputs []bool          `json:"optimal_inputs"`
}

type OrderSelectionResults struct {
	Outcome
	History      History `json:"history"`
	OptimalOrder int     `json:"optimal_order"`
}

const (
	RunKindInputs = "inputs"
	RunKindOrder  = "order"
)

// RunRecord is the persisted form of one finished selection run.
type RunRecord struct {
	VersionedRecord
	ID           string                  `json:"id"`
	Kind         string                  `json:"kind"`
	CreatedAtUTC string                  `json:"created_at_utc"`
	Seed         int64                   `json:"seed"`
	Dataset      string                  `json:"dataset,omitempty"`
	Inputs       *InputsSelectionResults `json:"inputs,omitempty"`
	Order        *OrderSelectionResults  `json:"order,omitempty"`
}

// Outcome returns the shared terminal fields of whichever result is set.
func (r RunRecord) Outcome() (Outcome, bool) {
	switch {
	case r.Inputs != nil:
		return r.Inputs.Outcome, true
	case r.Order != nil:
		return r.Order.Outcome, true
	default:
		return Outcome{}, false
	}
}
