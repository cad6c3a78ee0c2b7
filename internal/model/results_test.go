package model

import (
	"strings"
	"testing"
	"time"
)

func TestResultsString(t *testing.T) {
	inputs := InputsSelectionResults{
		Outcome: Outcome{
			StoppingCondition: MaximumFailures,
			IterationsNumber:  3,
			ElapsedTime:       2 * time.Second,
		},
		OptimalInputs: []bool{true, false, true},
	}
	text := inputs.String()
	for _, want := range []string{
		"Stopping condition: MaximumGeneralizationFailures\n",
		"Iterations number: 3\n",
		"Elapsed time: 2s\n",
		"Optimal inputs: 1 0 1\n",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing %q in:\n%s", want, text)
		}
	}

	order := OrderSelectionResults{OptimalOrder: 7}
	if !strings.Contains(order.String(), "Optimal order: 7\n") {
		t.Fatalf("unexpected summary:\n%s", order.String())
	}
}

func TestRunRecordOutcome(t *testing.T) {
	if _, ok := (RunRecord{}).Outcome(); ok {
		t.Fatal("empty record has no outcome")
	}
	rec := RunRecord{Order: &OrderSelectionResults{Outcome: Outcome{IterationsNumber: 4}}}
	outcome, ok := rec.Outcome()
	if !ok || outcome.IterationsNumber != 4 {
		t.Fatalf("outcome=%+v ok=%v", outcome, ok)
	}
}
