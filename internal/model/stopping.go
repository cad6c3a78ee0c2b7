package model

import (
	"encoding/json"
	"fmt"
)

// StoppingCondition is the criterion that terminated a selection run.
type StoppingCondition int

const (
	Continue StoppingCondition = iota
	MaximumTime
	GoalReached
	MaximumIterations
	MaximumFailures
	BoundaryReached
)

var stoppingConditionNames = map[StoppingCondition]string{
	Continue:          "Continue",
	MaximumTime:       "MaximumTime",
	GoalReached:       "GeneralizationPerformanceGoal",
	MaximumIterations: "MaximumIterations",
	MaximumFailures:   "MaximumGeneralizationFailures",
	BoundaryReached:   "AlgorithmFinished",
}

func (c StoppingCondition) String() string {
	if name, ok := stoppingConditionNames[c]; ok {
		return name
	}
	return fmt.Sprintf("StoppingCondition(%d)", int(c))
}

func ParseStoppingCondition(name string) (StoppingCondition, error) {
	for cond, candidate := range stoppingConditionNames {
		if candidate == name {
			return cond, nil
		}
	}
	return Continue, fmt.Errorf("unknown stopping condition: %q", name)
}

func (c StoppingCondition) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *StoppingCondition) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseStoppingCondition(name)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
