package dataflow

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// A Recorder collects the sequence of inputs pushed into a graph so that
// the sequence can be stored, transmitted, and reproduced consistently in a
// different process. Because a graph's outputs are a pure function of its
// input sequence (and timer firings, which also arrive as inputs), replaying
// a recording reproduces the original run pass for pass.
//
// All recorded types must be properly registered with gob to ensure
// consistent behaviour across environments.
//
// The zero value of Recorder is ready to use. Do not copy a non-zero
// Recorder.
type Recorder struct {
	states []TopicState
}

// Record appends one input to the recording. Call it alongside (or instead
// of) the Push that delivers the input to the live graph.
func (r *Recorder) Record(s TopicState) {
	r.states = append(r.states, s)
}

// Reset clears the recording, returning the Recorder to its initial empty
// state. This allows the Recorder to be reused for a new input sequence
// without allocating a new instance.
func (r *Recorder) Reset() {
	r.states = nil
}

// States returns a copy of the currently recorded input sequence.
// Modifying the returned slice does not affect the Recorder's internal
// state.
func (r *Recorder) States() []TopicState {
	s := make([]TopicState, len(r.states))
	copy(s, r.states)
	return s
}

// Encode serialises the recording into a byte array for storage or
// transmission. The function uses gob encoding to ensure consistent
// serialisation across Go environments.
func (r *Recorder) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(r.states); err != nil {
		return nil, fmt.Errorf("gob encode: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeRecording reconstructs an input sequence from a previously encoded
// recording. It is essential for cross-process reproduction, enabling
// inputs recorded in one process to be faithfully replayed in another.
func DecodeRecording(data []byte) ([]TopicState, error) {
	var states []TopicState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&states); err != nil {
		return nil, fmt.Errorf("gob decode: %w", err)
	}
	return states, nil
}

// Replay feeds a recorded input sequence through the given container,
// evaluating all passes each input causes, exactly as the original run did.
//
// If any input fails to process, the replay stops immediately and returns
// the error; the graph keeps the state of the passes already replayed.
func Replay(c *ProcessorContainer, states []TopicState) error {
	for i, s := range states {
		if err := c.ProcessState(s); err != nil {
			return fmt.Errorf("replay input #%d (%v): %w", i, StateName(s), err)
		}
	}
	return nil
}
