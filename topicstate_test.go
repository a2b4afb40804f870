package dataflow_test

import (
	"testing"

	"github.com/go-dataflow/go-dataflow"
)

func TestStateID(t *testing.T) {
	if got := dataflow.StateID[sessionCount](); got != 7 {
		t.Errorf("StateID[sessionCount]() = %v, want 7", got)
	}
	if got := dataflow.StateID[scratch](); got != dataflow.AnonymousTopicState {
		t.Errorf("StateID[scratch]() = %v, want AnonymousTopicState", got)
	}
}

func TestStateName(t *testing.T) {
	tests := []struct {
		State dataflow.TopicState
		Want  string
	}{
		{State: sessionCount{}, Want: "sessionCount"},
		{State: dataflow.Lagged[loopStep]{}, Want: "Lagged[loopStep]"},
		{State: dataflow.ResumeFromSnapshot{}, Want: "ResumeFromSnapshot"},
	}
	for _, tt := range tests {
		if got := dataflow.StateName(tt.State); got != tt.Want {
			t.Errorf("StateName(%T) = %q, want %q", tt.State, got, tt.Want)
		}
	}
}
