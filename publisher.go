package dataflow

// A Publisher is a detector's handle for publishing T into the current
// evaluation pass. It caches the output topic for the edge recorded by
// SetupPublishing and documents, as a struct field, the publishing behaviour
// of the detector that holds it.
type Publisher[T TopicState] struct {
	topic *Topic[T]
}

// Publish appends a new version of T to the output topic. Values published
// by several detectors during the same pass concatenate in traversal order.
func (p *Publisher[T]) Publish(v T) {
	if p == nil || p.topic == nil {
		panic("dataflow: seek developer attention: Publish before SetupPublishing")
	}
	p.topic.Publish(v)
}

// A FuturePublisher is a detector's handle for publishing T into a future
// evaluation pass, through the graph's input queue. It is the mechanism by
// which feedback loops are expressed acyclically; see SetupFuturePublishing.
//
// When implementing feedback loops also consider Lag, which in some cases is
// more general and extensible.
type FuturePublisher[T TopicState] struct {
	graph *Graph
}

// PublishOnFutureEvaluation enqueues a new version of T to be consumed by a
// subsequent evaluation pass.
//
// In bounded builds at most one future publication per topic type may be
// pending at any moment; violating that is an unrecoverable programming
// error.
func (p *FuturePublisher[T]) PublishOnFutureEvaluation(v T) {
	if p == nil || p.graph == nil {
		panic("dataflow: seek developer attention: future publish before SetupFuturePublishing")
	}
	pushFuture(p.graph, v)
}
