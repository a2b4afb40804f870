package dataflow_test

import (
	"encoding/gob"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/go-dataflow/go-dataflow"
)

// Recorded types must be registered with gob, like any other TopicState
// that crosses a process boundary.
func init() {
	gob.Register(NumberIn{})
	gob.Register(NumberOut{})
	gob.Register(sessionCount{})
}

// runCounting drives a fresh echo graph over the given inputs and returns
// the NumberOut value of every pass.
func runCounting(t *testing.T, inputs []dataflow.TopicState) []int {
	t.Helper()

	g := dataflow.New()
	newEchoDetector(g)
	out := dataflow.ResolveTopic[NumberOut](g)

	var produced []int
	container := dataflow.NewProcessorContainer(g, func([]dataflow.TopicState) {
		if out.HasNewValue() {
			produced = append(produced, out.NewValue().Value)
		}
	})
	if err := dataflow.Replay(container, inputs); err != nil {
		t.Fatal("Replay()", err)
	}
	return produced
}

func TestRecordAndReplay(t *testing.T) {
	// Record a live run's inputs...
	var recorder dataflow.Recorder
	inputs := []dataflow.TopicState{
		NumberIn{Value: 4},
		NumberIn{Value: 8},
		NumberIn{Value: 15},
	}
	for _, in := range inputs {
		recorder.Record(in)
	}

	// ...ship the recording across a process boundary...
	encoded, err := recorder.Encode()
	if err != nil {
		t.Fatal("Encode()", err)
	}
	decoded, err := dataflow.DecodeRecording(encoded)
	if err != nil {
		t.Fatal("DecodeRecording()", err)
	}
	if diff := cmp.Diff(inputs, decoded); diff != "" {
		t.Fatal("Recording round-trip differs (-want +got):", diff)
	}

	// ...and replaying reproduces the original run pass for pass.
	original := runCounting(t, inputs)
	replayed := runCounting(t, decoded)
	if diff := cmp.Diff(original, replayed); diff != "" {
		t.Error("Replayed outputs differ (-want +got):", diff)
	}
	if diff := cmp.Diff([]int{4, 8, 15}, replayed); diff != "" {
		t.Error("Replayed outputs wrong (-want +got):", diff)
	}
}

func TestRecorderReset(t *testing.T) {
	var recorder dataflow.Recorder
	recorder.Record(NumberIn{Value: 1})
	recorder.Reset()
	if got := len(recorder.States()); got != 0 {
		t.Errorf("len(States()) after Reset = %v, want 0", got)
	}
}
