package dataflow

import (
	"fmt"
	"sort"
)

// A StateSnapshot is an immutable map from topic-state id to the latest
// value published under that id. Snapshots are built by folding successive
// output lists; only named topic states participate, anonymous ones are
// ignored.
//
// Snapshots are immutable after construction and may be shared by reference
// between holders.
type StateSnapshot struct {
	version uint32
	states  map[TopicStateID]TopicState
}

// NewStateSnapshot returns the empty snapshot: version 0 with no values.
func NewStateSnapshot() *StateSnapshot {
	return &StateSnapshot{}
}

// PrimeSnapshot returns a version-0 snapshot built by folding the given
// initial values. Anonymous values are ignored. Use it to seed the resume
// protocol with application defaults before merging persisted values.
func PrimeSnapshot(states ...TopicState) *StateSnapshot {
	s := &StateSnapshot{states: make(map[TopicStateID]TopicState, len(states))}
	for _, state := range states {
		if state.ID() != AnonymousTopicState {
			s.states[state.ID()] = state
		}
	}
	return s
}

// ExtendSnapshot returns a new snapshot carrying prev's values overwritten
// by every named value in the given list, with version prev.Version()+1.
// Anonymous values are ignored.
//
// A malformed graph could publish more than one named TopicState with the
// same id on the same evaluation pass, which this map cannot represent (the
// second value would clobber the first). Because output lists are composed
// by concatenating topics one at a time, such duplicates arrive
// consecutively; ExtendSnapshot detects consecutive same-id entries and
// reports them as a contract violation.
func ExtendSnapshot(prev *StateSnapshot, states []TopicState) (*StateSnapshot, error) {
	next := &StateSnapshot{
		version: prev.version + 1,
		states:  make(map[TopicStateID]TopicState, len(prev.states)+len(states)),
	}
	for id, state := range prev.states {
		next.states[id] = state
	}

	previousID := AnonymousTopicState
	for _, state := range states {
		id := state.ID()
		if id == AnonymousTopicState {
			continue
		}
		if id == previousID {
			return nil, fmt.Errorf("%w: two %v values with id %d published in the same pass", ErrContractViolation, StateName(state), id)
		}
		previousID = id
		next.states[id] = state
	}
	return next, nil
}

// Version returns the number of extensions this snapshot is away from the
// empty (or primed) snapshot it descends from.
func (s *StateSnapshot) Version() uint32 { return s.version }

// Len returns the number of named values in the snapshot.
func (s *StateSnapshot) Len() int { return len(s.states) }

// GetByID returns the latest value stored under the given id.
func (s *StateSnapshot) GetByID(id TopicStateID) (TopicState, bool) {
	state, ok := s.states[id]
	return state, ok
}

// TopicStates returns the snapshot's values ordered by id. Do not modify
// the returned slice's values; they are shared with the snapshot.
func (s *StateSnapshot) TopicStates() []TopicState {
	states := make([]TopicState, 0, len(s.states))
	for _, state := range s.states {
		states = append(states, state)
	}
	sort.Slice(states, func(i, j int) bool { return states[i].ID() < states[j].ID() })
	return states
}

// Get returns the snapshot's value of type T, looked up by T's id.
//
// The second return value is false if the snapshot holds no value under
// T's id, or if the stored value is of a different type that happens to
// share the id (an application number-space error).
func Get[T TopicState](s *StateSnapshot) (T, bool) {
	state, ok := s.states[StateID[T]()]
	if !ok {
		var zero T
		return zero, false
	}
	v, ok := state.(T)
	return v, ok
}
