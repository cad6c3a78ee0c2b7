package model

import (
	"fmt"
	"strings"
)

func (o Outcome) String() string {
	var b strings.Builder
	o.writeTo(&b)
	return b.String()
}

func (o Outcome) writeTo(b *strings.Builder) {
	fmt.Fprintf(b, "Stopping condition: %s\n", o.StoppingCondition)
	fmt.Fprintf(b, "Final training performance: %g\n", o.FinalTrainingPerformance)
	fmt.Fprintf(b, "Final generalization performance: %g\n", o.FinalGeneralizationPerformance)
	fmt.Fprintf(b, "Iterations number: %d\n", o.IterationsNumber)
	fmt.Fprintf(b, "Elapsed time: %s\n", o.ElapsedTime)
	if len(o.MinimalParameters) > 0 {
		fmt.Fprintf(b, "Minimal parameters: %d values\n", len(o.MinimalParameters))
	}
}

func (r InputsSelectionResults) String() string {
	var b strings.Builder
	r.Outcome.writeTo(&b)
	bits := make([]string, len(r.OptimalInputs))
	for i, bit := range r.OptimalInputs {
		bits[i] = "0"
		if bit {
			bits[i] = "1"
		}
	}
	fmt.Fprintf(&b, "Optimal inputs: %s\n", strings.Join(bits, " "))
	fmt.Fprintf(&b, "History size: %d\n", r.History.Len())
	return b.String()
}

func (r OrderSelectionResults) String() string {
	var b strings.Builder
	r.Outcome.writeTo(&b)
	fmt.Fprintf(&b, "Optimal order: %d\n", r.OptimalOrder)
	fmt.Fprintf(&b, "History size: %d\n", r.History.Len())
	return b.String()
}
