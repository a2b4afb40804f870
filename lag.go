package dataflow

// Lagged is the output of Lag: the value T held one pass earlier.
//
// Lagged values are anonymous; they exist to close feedback loops inside the
// graph and never participate in snapshots.
type Lagged[T TopicState] struct {
	AnonymousElement
	Data T
}

// Lag is a built-in detector that performs a one-pass lag on a topic: it
// subscribes to the Topic of T and future-publishes Lagged[T] carrying the
// last value of T. Downstream detectors subscribe to Lagged[T] to observe
// the previous pass's value without creating a cycle.
//
//	Topic[T] ──▶ Lag[T] ┄┄(future)┄┄▶ Topic[Lagged[T]]
//
// Adding a lag to a graph is a single call:
//
//	dataflow.NewLag[Loop](g)
type Lag[T TopicState] struct {
	Detector
	out *FuturePublisher[Lagged[T]]
}

// NewLag installs a Lag detector for T in the given graph.
func NewLag[T TopicState](g *Graph) *Lag[T] {
	d := &Lag[T]{}
	d.Attach(g, d)
	Subscribe[T](&d.Detector, d)
	d.out = SetupFuturePublishing[Lagged[T]](&d.Detector)
	return d
}

// Evaluate forwards the current value of T into the next pass.
func (d *Lag[T]) Evaluate(v T) {
	d.out.PublishOnFutureEvaluation(Lagged[T]{Data: v})
}
