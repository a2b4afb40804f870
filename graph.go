package dataflow

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"
)

// A Graph owns a set of Topic and Detector vertices and evaluates them one
// pass at a time.
//
// Graphs are built by constructing detectors against them; the graph creates
// (or, in bounded builds, pre-registers) the topics needed to satisfy all
// detector dependencies and maintains the topological order across topology
// changes.
//
// Typical control flow:
//   - External events are translated into TopicStates and passed to Push.
//   - Evaluate runs in an event loop until HasDataPending is false.
//   - After each Evaluate, OutputList is inspected for the TopicStates of
//     interest that must be passed onwards to the outside.
//
// A Graph is not safe for concurrent use: evaluation is single-threaded,
// cooperative and synchronous, and detectors must never call back into
// Evaluate from within their Evaluate methods.
type Graph struct {
	name     string
	limits   *Limits
	vertices []Vertex
	registry topicRegistry
	queue    inputQueue

	outputList []TopicState

	// Construction-time configuration faults are recorded here and surfaced
	// by the first Evaluate, guaranteeing that no partial state of a
	// malformed graph ever reaches subscribers.
	faults []error

	needsSorting bool
}

// An Option configures a Graph at construction.
type Option func(*Graph)

// WithName labels the graph in telemetry records and diagnostics. Multiple
// graphs in one process should carry distinct names.
func WithName(name string) Option {
	return func(g *Graph) { g.name = name }
}

// WithLimits turns the graph into a bounded build with the given capacity
// record. See Limits for the trade-offs.
func WithLimits(l Limits) Option {
	return func(g *Graph) { g.limits = &l }
}

// New returns an empty Graph ready for detector construction.
func New(opts ...Option) *Graph {
	g := &Graph{name: "dataflow"}
	for _, opt := range opts {
		opt(g)
	}
	if g.limits != nil {
		g.queue.max = g.limits.MaxQueuedInputs
	}
	return g
}

// Name returns the graph's telemetry label.
func (g *Graph) Name() string { return g.name }

// Vertices returns the graph's vertices. After a successful Evaluate the
// slice is in topological order. Do not modify the returned slice.
func (g *Graph) Vertices() []Vertex { return g.vertices }

func (g *Graph) maxTopicValues() int {
	if g.limits == nil {
		return 0
	}
	return g.limits.MaxTopicValues
}

func (g *Graph) recordFault(err error) {
	g.faults = append(g.faults, err)
}

func (g *Graph) addVertex(v Vertex) {
	if g.limits != nil && len(g.vertices) >= g.limits.MaxVertices {
		g.recordFault(fmt.Errorf("%w: cannot add vertex %v: exceeded %d vertices", ErrBadConfiguration, v.Name(), g.limits.MaxVertices))
	}
	g.vertices = append(g.vertices, v)
	g.needsSorting = true
}

// connect records an immediate edge between two vertices, enforcing the
// bounded-build edge capacities.
func (g *Graph) connect(from, to Vertex) {
	if g.limits != nil {
		if len(from.OutEdges()) >= g.limits.MaxOutEdges {
			g.recordFault(fmt.Errorf("%w: vertex %v exceeded %d out-edges", ErrBadConfiguration, from.Name(), g.limits.MaxOutEdges))
		}
		if len(to.InEdges()) >= g.limits.MaxInEdges {
			g.recordFault(fmt.Errorf("%w: vertex %v exceeded %d in-edges", ErrBadConfiguration, to.Name(), g.limits.MaxInEdges))
		}
	}
	from.base().insertEdge(to)
}

// Push enqueues a value for a subsequent evaluation pass. It never blocks
// and never evaluates; call Evaluate (or EvaluateIfPending) to consume the
// queue.
//
// Push fails only when a bounded graph's input queue is full.
func Push[T TopicState](g *Graph, v T) error {
	topic := ResolveTopic[T](g)
	return g.enqueue(graphInput{
		dispatch: func() { topic.Publish(v) },
		typ:      reflect.TypeFor[T](),
	})
}

// PushState enqueues a runtime-typed value for a subsequent evaluation pass.
// It is the variant of Push used when the concrete type is only known at run
// time, such as when decoding streamed inputs or replaying a recording.
//
// Unlike Push, PushState cannot create the topic: the value's dynamic type
// must already have a topic in the graph, otherwise PushState reports a
// missing binding.
func (g *Graph) PushState(s TopicState) error {
	tv, ok := g.registry.lookup(reflect.TypeOf(s))
	if !ok {
		return fmt.Errorf("%w: no topic for %v", ErrMissingBinding, StateName(s))
	}
	return g.enqueue(graphInput{
		dispatch: func() { tv.publishState(s) }, //nolint:errcheck // type verified by the registry lookup above
		typ:      reflect.TypeOf(s),
	})
}

func (g *Graph) enqueue(in graphInput) error {
	if !g.queue.enqueue(in) {
		return fmt.Errorf("%w: input queue is full (%d entries)", ErrBadConfiguration, g.queue.max)
	}
	return nil
}

// pushFuture enqueues a future publication on behalf of a FuturePublisher or
// a timer dispatch. In bounded builds, at most one future publication per
// topic type may be pending at any moment; a second attempt is an
// unrecoverable contract violation.
func pushFuture[T TopicState](g *Graph, v T) {
	typ := reflect.TypeFor[T]()
	if g.limits != nil && g.queue.pendingFutures(typ) > 0 {
		panic(fmt.Sprintf("dataflow: seek developer attention: a second future publication of %v is already pending", typeName(typ)))
	}
	topic := ResolveTopic[T](g)
	err := g.enqueue(graphInput{
		dispatch: func() { topic.Publish(v) },
		typ:      typ,
		future:   true,
	})
	if err != nil {
		// A full queue mid-pass cannot be surfaced to the publishing
		// detector; it indicates the queue capacity was sized wrong for the
		// graph.
		panic(fmt.Sprintf("dataflow: seek developer attention: %v", err))
	}
}

// HasDataPending reports whether the input queue holds publications for
// future passes.
func (g *Graph) HasDataPending() bool {
	return !g.queue.isEmpty()
}

// EvaluateIfPending runs a single evaluation pass if the input queue is not
// empty and reports whether it did. An evaluation failure indicates a
// malformed graph and panics; drive loops that need to handle the error call
// Evaluate directly.
func (g *Graph) EvaluateIfPending() bool {
	if !g.HasDataPending() {
		return false
	}
	if err := g.Evaluate(); err != nil {
		panic(fmt.Sprintf("dataflow: seek developer attention: evaluation failed: %v", err))
	}
	return true
}

// Evaluate runs a single evaluation pass:
//
//  1. If the topology changed, re-run the topological sort; fail on a cycle
//     over immediate edges (future edges are ignored) or on an edge leaving
//     the vertex set.
//  2. Clear the pass state of every vertex.
//  3. Dequeue one pending input and publish it into its topic. With an empty
//     queue the pass is a successful no-op with an empty output list.
//  4. Traverse the vertices in topological order, processing each.
//  5. Compose the output list from every topic that completed with data.
//
// Evaluate also surfaces configuration faults recorded while the graph was
// constructed; a malformed graph fails on its first Evaluate and no partial
// state reaches subscribers.
func (g *Graph) Evaluate() (err error) {
	defer func(start time.Time) {
		measureEvaluation(context.Background(), g.name, err == nil, time.Since(start))
	}(time.Now())

	if err := errors.Join(g.faults...); err != nil {
		return err
	}

	if g.needsSorting {
		if err := g.topoSortGraph(); err != nil {
			return fmt.Errorf("sort graph: %w", err)
		}
	}

	g.clearTraverseContexts()
	g.queue.dequeueAndDispatch()
	for _, v := range g.vertices {
		v.process()
	}
	g.composeOutputList()

	// Capacity overflows detected mid-pass (e.g. too many values on one
	// topic) land in the fault list; the pass that caused them fails.
	if err := errors.Join(g.faults...); err != nil {
		return err
	}
	return nil
}

// OutputList returns shared references to every value produced by the last
// evaluation pass, in topological order across topics and insertion order
// within each topic.
//
// The returned slice borrows the graph and is only valid until the next
// Evaluate; consumers must copy values or finish inspection before then.
func (g *Graph) OutputList() []TopicState { return g.outputList }

func (g *Graph) clearTraverseContexts() {
	for _, v := range g.vertices {
		v.setState(VertexClear)
	}
}

func (g *Graph) composeOutputList() {
	g.outputList = g.outputList[:0]
	for _, v := range g.vertices {
		if tv, ok := v.(topicVertex); ok && v.State() == VertexDone {
			g.outputList = append(g.outputList, tv.currentStates()...)
		}
	}
}

// topoSortGraph re-sorts the vertex list into topological order using a
// depth-first search over immediate out-edges, with the vertex pass-state as
// the colour marker. The reverse post-order of the search replaces the
// vertex list.
func (g *Graph) topoSortGraph() error {
	g.clearTraverseContexts()

	sorted := make([]Vertex, 0, len(g.vertices))
	for _, v := range g.vertices {
		if v.State() == VertexClear {
			if err := dfsVisit(v, &sorted); err != nil {
				return err
			}
		}
	}

	if len(sorted) != len(g.vertices) {
		// The search reached a vertex through an edge that is not part of
		// this graph's vertex list. This can happen if a detector was built
		// against one graph while its topics live in another.
		return fmt.Errorf("%w: out-of-bounds edge (searched %d vertices, graph owns %d)", ErrBadConfiguration, len(sorted), len(g.vertices))
	}

	// The search appends in post-order; reversing yields the topological
	// order (equivalent to prepending each finished vertex).
	for i, j := 0, len(sorted)-1; i < j; i, j = i+1, j-1 {
		sorted[i], sorted[j] = sorted[j], sorted[i]
	}
	g.vertices = sorted
	g.needsSorting = false
	return nil
}

func dfsVisit(v Vertex, sorted *[]Vertex) error {
	v.setState(VertexProcessing)
	for _, w := range v.OutEdges() {
		switch w.State() {
		case VertexClear:
			if err := dfsVisit(w, sorted); err != nil {
				return err
			}
		case VertexProcessing:
			// A back edge: the immediate-edge subgraph contains a cycle.
			// Feedback must be expressed through future publications (see
			// FuturePublisher and Lag) instead.
			return fmt.Errorf("%w: cycle detected at %v", ErrBadConfiguration, w.Name())
		}
	}
	v.setState(VertexDone)
	*sorted = append(*sorted, v)
	return nil
}
