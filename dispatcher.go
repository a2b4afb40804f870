package dataflow

// subscriptionDispatcher is the type-erased edge from a Topic into one of
// its subscribers. Each detector owns a small, ordered list of dispatchers,
// one per subscribed type; erasing the element type flattens the set into a
// single list the detector can fire in registration order.
type subscriptionDispatcher interface {
	// dispatch delivers the topic's current values into the subscriber, if
	// the topic completed the pass with data.
	dispatch()
	// topicVertex returns the subscribed topic's vertex.
	topicVertex() Vertex
}

type typedDispatcher[T TopicState] struct {
	topic      *Topic[T]
	subscriber Subscriber[T]
}

func (d typedDispatcher[T]) dispatch() {
	d.topic.dispatchInto(d.subscriber)
}

func (d typedDispatcher[T]) topicVertex() Vertex {
	return d.topic
}
