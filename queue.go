package dataflow

import "reflect"

// A graphInput is a pending publication: a closure that publishes a captured
// value into its captured topic at the start of an evaluation pass. Entries
// live from enqueue to dispatch.
type graphInput struct {
	dispatch func()
	// typ identifies the topic-state type of the publication. Future
	// publications are tracked per type in bounded builds.
	typ    reflect.Type
	future bool
}

// inputQueue is the FIFO of pending publications consumed by Evaluate, one
// entry per pass.
type inputQueue struct {
	entries []graphInput
	// max caps the queue length in bounded builds; zero means unbounded.
	max int
}

func (q *inputQueue) enqueue(in graphInput) bool {
	if q.max > 0 && len(q.entries) >= q.max {
		return false
	}
	q.entries = append(q.entries, in)
	return true
}

// dequeueAndDispatch applies the oldest pending publication, if any.
func (q *inputQueue) dequeueAndDispatch() (graphInput, bool) {
	if len(q.entries) == 0 {
		return graphInput{}, false
	}
	next := q.entries[0]
	// Slide rather than re-slice so that consumed entries do not pin the
	// backing array.
	copy(q.entries, q.entries[1:])
	q.entries = q.entries[:len(q.entries)-1]
	next.dispatch()
	return next, true
}

func (q *inputQueue) isEmpty() bool { return len(q.entries) == 0 }

// pendingFutures counts the not-yet-dispatched future publications of the
// given type.
func (q *inputQueue) pendingFutures(t reflect.Type) int {
	n := 0
	for _, in := range q.entries {
		if in.future && in.typ == t {
			n++
		}
	}
	return n
}
