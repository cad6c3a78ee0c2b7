package xmldoc

import (
	"fmt"

	"structsearch/internal/model"
)

const ResultsBlock = "Results"

// WriteOutcome stores the terminal fields of a run in block.
func WriteOutcome(block *Element, o model.Outcome) {
	block.Set("StoppingCondition", o.StoppingCondition.String())
	block.Set("FinalTrainingPerformance", FormatFloat(o.FinalTrainingPerformance))
	block.Set("FinalGeneralizationPerformance", FormatFloat(o.FinalGeneralizationPerformance))
	if o.MinimalParameters != nil {
		block.Set("MinimalParameters", FormatFloats(o.MinimalParameters))
	}
	block.Set("ElapsedTime", FormatSeconds(o.ElapsedTime))
	block.Set("IterationsNumber", FormatInt(o.IterationsNumber))
}

// ReadOutcome is the inverse of WriteOutcome. Missing elements keep their
// zero value.
func ReadOutcome(block *Element) (model.Outcome, error) {
	var o model.Outcome
	if text, ok := block.Lookup("StoppingCondition"); ok {
		c, err := model.ParseStoppingCondition(text)
		if err != nil {
			return model.Outcome{}, err
		}
		o.StoppingCondition = c
	}
	var err error
	if text, ok := block.Lookup("FinalTrainingPerformance"); ok {
		if o.FinalTrainingPerformance, err = ParseFloat(text); err != nil {
			return model.Outcome{}, fmt.Errorf("FinalTrainingPerformance: %w", err)
		}
	}
	if text, ok := block.Lookup("FinalGeneralizationPerformance"); ok {
		if o.FinalGeneralizationPerformance, err = ParseFloat(text); err != nil {
			return model.Outcome{}, fmt.Errorf("FinalGeneralizationPerformance: %w", err)
		}
	}
	if text, ok := block.Lookup("MinimalParameters"); ok {
		if o.MinimalParameters, err = ParseFloats(text); err != nil {
			return model.Outcome{}, fmt.Errorf("MinimalParameters: %w", err)
		}
	}
	if text, ok := block.Lookup("ElapsedTime"); ok {
		if o.ElapsedTime, err = ParseSeconds(text); err != nil {
			return model.Outcome{}, fmt.Errorf("ElapsedTime: %w", err)
		}
	}
	if text, ok := block.Lookup("IterationsNumber"); ok {
		if o.IterationsNumber, err = ParseInt(text); err != nil {
			return model.Outcome{}, fmt.Errorf("IterationsNumber: %w", err)
		}
	}
	return o, nil
}
