package dataflow

// VertexState is the per-pass state of a vertex. It doubles as the colour
// marker of the topological sort (Clear, Processing and Done map to the
// classical white, grey and black) and as the traverse context of an
// evaluation pass.
type VertexState int

const (
	// VertexClear marks a vertex that has not been touched by the current
	// pass (or search).
	VertexClear VertexState = iota
	// VertexProcessing marks a vertex with pending work: a topic that
	// received a publication, or a detector whose subscribed topic completed.
	VertexProcessing
	// VertexDone marks a vertex the current pass (or search) has finished
	// with.
	VertexDone
)

// VertexKind identifies the two kinds of vertices in a dataflow graph.
type VertexKind int

const (
	// KindTopic marks a Topic vertex.
	KindTopic VertexKind = iota
	// KindDetector marks a Detector vertex.
	KindDetector
)

// A Vertex is a node of a dataflow graph: either a Topic or a Detector.
//
// Vertices are owned by their Graph and live until the Graph is discarded.
// Edges are non-owning adjacencies between vertices; immediate edges drive
// the topological sort and the evaluation sweep, while future edges only
// document cross-pass (feedback and timer) publications and are ignored by
// the sort.
//
// The interface is implemented exclusively by types of this package; the
// unexported methods keep the implementing set closed.
type Vertex interface {
	// Kind reports whether the vertex is a Topic or a Detector.
	Kind() VertexKind
	// State returns the vertex's per-pass state. Between passes every vertex
	// is Clear or Done; mid-pass a vertex may be Processing.
	State() VertexState
	// Name returns a human-readable identification of the vertex for
	// diagnostics. It is derived from the vertex's Go type.
	Name() string
	// OutEdges returns the vertex's immediate successors.
	OutEdges() []Vertex
	// InEdges returns the vertex's immediate predecessors.
	InEdges() []Vertex
	// FutureOutEdges returns the vertices this one publishes to across
	// passes.
	FutureOutEdges() []Vertex
	// FutureInEdges returns the vertices that publish to this one across
	// passes.
	FutureInEdges() []Vertex

	setState(VertexState)
	process()
	base() *vertex
}

// vertex is the embeddable common part of Topic and Detector. The zero value
// is not usable on its own: bind must be called before the vertex joins a
// graph so that edge bookkeeping can record full interface values.
type vertex struct {
	self  Vertex
	state VertexState
	name  string

	inEdges        []Vertex
	outEdges       []Vertex
	futureInEdges  []Vertex
	futureOutEdges []Vertex
}

// bind attaches the embedded base to its enclosing Vertex. Called exactly
// once, when the vertex joins a graph.
func (v *vertex) bind(self Vertex, name string) {
	v.self = self
	v.name = name
}

func (v *vertex) State() VertexState       { return v.state }
func (v *vertex) setState(s VertexState)   { v.state = s }
func (v *vertex) Name() string             { return v.name }
func (v *vertex) OutEdges() []Vertex       { return v.outEdges }
func (v *vertex) InEdges() []Vertex        { return v.inEdges }
func (v *vertex) FutureOutEdges() []Vertex { return v.futureOutEdges }
func (v *vertex) FutureInEdges() []Vertex  { return v.futureInEdges }
func (v *vertex) base() *vertex            { return v }

// insertEdge records an immediate edge from v to the given vertex,
// maintaining both adjacency directions.
func (v *vertex) insertEdge(to Vertex) {
	v.outEdges = append(v.outEdges, to)
	tb := to.base()
	tb.inEdges = append(tb.inEdges, v.self)
}

// markFutureEdge records a future edge from v to the given vertex. Future
// edges inform diagnostics and are excluded from loop detection.
func (v *vertex) markFutureEdge(to Vertex) {
	v.futureOutEdges = append(v.futureOutEdges, to)
	tb := to.base()
	tb.futureInEdges = append(tb.futureInEdges, v.self)
}
