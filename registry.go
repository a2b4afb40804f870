package dataflow

import (
	"fmt"
	"reflect"
)

// topicRegistry is the graph's inversion-of-control container for topics: a
// type-indexed mapping from a topic-state type to its unique Topic instance.
//
// Dynamic graphs create topics lazily on first resolution. Bounded graphs
// require every topic to be registered up front, before any detector that
// depends on it is constructed; resolving an unregistered type is a missing
// binding.
type topicRegistry struct {
	topics map[reflect.Type]topicVertex
}

func (r *topicRegistry) lookup(t reflect.Type) (topicVertex, bool) {
	tv, ok := r.topics[t]
	return tv, ok
}

func (r *topicRegistry) store(t reflect.Type, tv topicVertex) {
	if r.topics == nil {
		r.topics = make(map[reflect.Type]topicVertex)
	}
	r.topics[t] = tv
}

func (r *topicRegistry) size() int { return len(r.topics) }

// RegisterTopic registers the Topic for T with a bounded graph. The full
// graph must pre-register every topic before any detector that depends on it
// is constructed.
//
// Registration fails on a duplicate registration or when the graph's
// MaxTopics capacity is exhausted. Dynamic graphs do not require
// registration; calling RegisterTopic on one is valid and simply creates the
// topic eagerly.
func RegisterTopic[T TopicState](g *Graph) error {
	typ := reflect.TypeFor[T]()
	if _, ok := g.registry.lookup(typ); ok {
		return fmt.Errorf("%w: duplicate registration of topic %v", ErrBadConfiguration, typeName(typ))
	}
	if g.limits != nil && g.registry.size() >= g.limits.MaxTopics {
		return fmt.Errorf("%w: cannot register topic %v: exceeded %d topics", ErrBadConfiguration, typeName(typ), g.limits.MaxTopics)
	}
	g.registry.store(typ, g.newTopicVertex(newTopic[T](g.maxTopicValues(), g.recordFault)))
	return nil
}

// ResolveTopic returns the unique Topic for T within the given graph.
//
// In dynamic graphs the topic is created and added as a vertex on first use.
// In bounded graphs the topic must have been registered with RegisterTopic;
// resolving an unregistered type records a missing-binding fault that the
// first Evaluate surfaces, and still creates and adds the topic so that graph
// construction can proceed far enough to report the fault coherently.
func ResolveTopic[T TopicState](g *Graph) *Topic[T] {
	typ := reflect.TypeFor[T]()
	if tv, ok := g.registry.lookup(typ); ok {
		return tv.(*Topic[T])
	}
	topic := newTopic[T](g.maxTopicValues(), g.recordFault)
	if g.limits != nil {
		g.recordFault(fmt.Errorf("%w: topic %v resolved without registration", ErrMissingBinding, typeName(typ)))
	}
	g.registry.store(typ, g.newTopicVertex(topic))
	return topic
}

// newTopicVertex adds the given topic to the graph's vertex list and returns
// it for registry storage.
func (g *Graph) newTopicVertex(tv topicVertex) topicVertex {
	g.addVertex(tv)
	return tv
}
