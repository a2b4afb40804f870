package dataflow

import (
	"fmt"
	"reflect"
)

// A Subscriber consumes the values of a Topic. Detectors implement one
// Subscriber interface per topic type they subscribe to; the graph invokes
// Evaluate once per value, in publication order, whenever the subscribed
// topic completes a pass with data.
type Subscriber[T TopicState] interface {
	Evaluate(T)
}

// SubscriberFunc adapts an ordinary function to a Subscriber.
//
// A detector consuming a single topic type usually implements Subscriber
// directly with an Evaluate method. A detector consuming several types
// cannot (the methods would collide on the name Evaluate), so it subscribes
// each with a SubscriberFunc instead:
//
//	dataflow.Subscribe[Evt](&d.Detector, dataflow.SubscriberFunc[Evt](d.onEvent))
//	dataflow.Subscribe[Reset](&d.Detector, dataflow.SubscriberFunc[Reset](d.onReset))
type SubscriberFunc[T TopicState] func(T)

// Evaluate calls f(v).
func (f SubscriberFunc[T]) Evaluate(v T) { f(v) }

// topicVertex is the type-erased face of Topic[T] used by the graph, the
// output-list composer and the analyser.
type topicVertex interface {
	Vertex
	// StateID returns the TopicStateID of the topic's element type.
	StateID() TopicStateID
	// currentStates returns the values of the current pass as shared
	// TopicState references, in insertion order.
	currentStates() []TopicState
	// publishState publishes a runtime-typed value; it fails if the value's
	// dynamic type is not the topic's element type.
	publishState(TopicState) error
}

// A Topic aggregates the values of T produced during the current evaluation
// pass and delivers them to subscribers in order.
//
// Internally, the values slice always contains all the data for a single
// evaluation pass - or nothing. It is cleared once per pass, at either the
// first Publish call of the pass or when the topic is processed with no
// pending publication.
type Topic[T TopicState] struct {
	vertex

	values []T

	// maxValues caps len(values) in bounded builds; zero means unbounded.
	// Overflows are reported through the fault hook so that the enclosing
	// Evaluate fails the pass.
	maxValues int
	fault     func(error)
}

// newTopic returns a Topic bound to the given fault hook. Topics join a
// graph through the registry, never directly.
func newTopic[T TopicState](maxValues int, fault func(error)) *Topic[T] {
	t := &Topic[T]{maxValues: maxValues, fault: fault}
	t.bind(t, "Topic["+typeName(reflect.TypeFor[T]())+"]")
	return t
}

// Kind returns KindTopic.
func (t *Topic[T]) Kind() VertexKind { return KindTopic }

// StateID returns the TopicStateID of T.
func (t *Topic[T]) StateID() TopicStateID { return StateID[T]() }

// Publish appends a value to the topic's current pass.
//
// The first Publish of a pass clears the previous pass's values and marks
// the topic Processing; further publications during the same pass
// concatenate, in the order of detector traversal.
func (t *Topic[T]) Publish(v T) {
	if t.state != VertexProcessing {
		t.values = t.values[:0]
		t.setState(VertexProcessing)
	}
	if t.maxValues > 0 && len(t.values) >= t.maxValues {
		t.fault(fmt.Errorf("%w: topic %v exceeded %d values in a single pass", ErrBadConfiguration, t.Name(), t.maxValues))
		return
	}
	t.values = append(t.values, v)
}

// process transitions the topic according to its pass state: a Clear topic
// drops stale values, a Processing topic completes to Done and marks every
// out-edge detector Processing so that the traversal reaches them.
func (t *Topic[T]) process() {
	if t.state == VertexClear {
		t.values = t.values[:0]
	}
	if t.state == VertexProcessing {
		t.setState(VertexDone)
		for _, succ := range t.outEdges {
			succ.setState(VertexProcessing)
		}
	}
}

// dispatchInto delivers the current pass's values to the given subscriber,
// one Evaluate call per value in insertion order. It only fires on a Done
// topic; the traversal order guarantees a subscribed detector runs after all
// its topics were processed.
func (t *Topic[T]) dispatchInto(s Subscriber[T]) {
	if t.state != VertexDone {
		return
	}
	for _, v := range t.values {
		s.Evaluate(v)
	}
}

// HasNewValue reports whether the topic completed the current pass with
// data.
func (t *Topic[T]) HasNewValue() bool {
	return t.state == VertexDone
}

// NewValue returns the latest value of the current pass.
//
// Calling NewValue on a topic without a new value is a programming error and
// panics; check HasNewValue first.
func (t *Topic[T]) NewValue() T {
	if !t.HasNewValue() || len(t.values) == 0 {
		panic(fmt.Sprintf("dataflow: NewValue on topic %v without a new value", t.Name()))
	}
	return t.values[len(t.values)-1]
}

// CurrentValues returns the values of the current pass in insertion order.
// Do not modify the returned slice; it is only valid until the next pass.
func (t *Topic[T]) CurrentValues() []T {
	return t.values
}

func (t *Topic[T]) currentStates() []TopicState {
	if len(t.values) == 0 {
		return nil
	}
	states := make([]TopicState, len(t.values))
	for i := range t.values {
		states[i] = t.values[i]
	}
	return states
}

func (t *Topic[T]) publishState(s TopicState) error {
	v, ok := s.(T)
	if !ok {
		return fmt.Errorf("%w: topic %v cannot carry a %T", ErrContractViolation, t.Name(), s)
	}
	t.Publish(v)
	return nil
}
