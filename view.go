package dataflow

import "sync"

// An AttributeFunc is a function that derives a specific attribute from a
// topic state. For a given TopicState, it returns the attribute's value and
// a bool indicating whether that attribute is valid for that state.
//
// It usually type-asserts the given state to extract the appropriate value
// from it, but any value of type V is appropriate.
type AttributeFunc[V any] func(s TopicState) (V, bool)

// An OutputMap correlates the named outputs of a graph with a derived
// attribute value, keyed by topic-state id. The generic parameter V denotes
// the type of the attribute's value.
//
// The evaluation loop folds each pass's output list into the map with
// Update; other goroutines read the latest values with Find. This is the
// supported way to observe a single-threaded graph from the outside without
// copying whole output lists across goroutines.
//
// OutputMap is designed to be concurrently safe and can be accessed by
// multiple goroutines simultaneously.
type OutputMap[V any] struct {
	m           map[TopicStateID]V
	mu          sync.Mutex
	attributeOf AttributeFunc[V]
}

// NewOutputMap returns a mapping/view of a single attribute over a graph's
// named outputs. The provided attr function defines the desired attribute
// to store for every output.
func NewOutputMap[V any](attr AttributeFunc[V]) *OutputMap[V] {
	return &OutputMap[V]{
		m:           make(map[TopicStateID]V),
		attributeOf: attr,
	}
}

// Update folds one evaluation pass's output list into the map: for every
// named output whose attribute is valid, the stored value for its id is
// replaced. Anonymous outputs are ignored.
func (m *OutputMap[V]) Update(outputs []TopicState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, out := range outputs {
		if out.ID() == AnonymousTopicState {
			continue
		}
		if v, ok := m.attributeOf(out); ok {
			m.m[out.ID()] = v
		}
	}
}

// Find returns the latest attribute value stored for the given id.
func (m *OutputMap[V]) Find(id TopicStateID) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.m[id]
	return v, ok
}

// Len returns the number of ids the map currently holds a value for.
func (m *OutputMap[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.m)
}
