package dataflow

import (
	"fmt"
	"reflect"
)

// A Detector is a unit of logic in a dataflow graph: a compartmentalised
// algorithm with fixed input types (subscriptions) and fixed output types
// (publications).
//
// A new detector is implemented by a struct that embeds Detector and, in its
// constructor:
//
//   - calls Attach(graph, self) to join the graph,
//   - calls Subscribe once per topic type it consumes (implementing the
//     corresponding Subscriber interface), and
//   - calls SetupPublishing (or the future/timeout variants) once per topic
//     type it produces, keeping the returned publisher.
//
// For example, a trivial threshold detector:
//
//	type OverheatDetector struct {
//		dataflow.Detector
//		out *dataflow.Publisher[Overheated]
//	}
//
//	func NewOverheatDetector(g *dataflow.Graph) *OverheatDetector {
//		d := &OverheatDetector{}
//		d.Attach(g, d)
//		dataflow.Subscribe[Temperature](&d.Detector, d)
//		d.out = dataflow.SetupPublishing[Overheated](&d.Detector)
//		return d
//	}
//
//	func (d *OverheatDetector) Evaluate(t Temperature) {
//		if t.Celsius > 85 {
//			d.out.Publish(Overheated{})
//		}
//	}
//
// Detectors are pure with respect to topic values within a pass: their only
// side effects are publications (immediate, future or timed). Detectors
// should be modular and finely grained; it is often easier to find the right
// granularity by designing the intermediate TopicStates first and the
// detectors afterwards.
//
// Detectors that summarise across multiple Evaluate calls can additionally
// implement BeginEvaluator and CompleteEvaluator, publishing from
// CompleteEvaluation.
type Detector struct {
	vertex

	graph *Graph
	// self is the embedding detector; it is consulted for the optional
	// evaluation hooks and gives the vertex its name.
	self        any
	dispatchers []subscriptionDispatcher
}

// BeginEvaluator is implemented by detectors that want a call before any of
// the pass's Evaluate deliveries.
type BeginEvaluator interface {
	BeginEvaluation()
}

// CompleteEvaluator is implemented by detectors that want a call after all
// of the pass's Evaluate deliveries, typically to publish a summary.
type CompleteEvaluator interface {
	CompleteEvaluation()
}

// Attach joins the detector to the given graph. It must be called first in
// the embedding detector's constructor, before any Subscribe or Setup call;
// self is the embedding detector itself.
func (d *Detector) Attach(g *Graph, self any) {
	if d.graph != nil {
		panic("dataflow: seek developer attention: detector attached twice")
	}
	d.graph = g
	d.self = self
	d.bind(d, typeName(reflect.TypeOf(self)))
	g.addVertex(d)
}

// Kind returns KindDetector.
func (d *Detector) Kind() VertexKind { return KindDetector }

// Graph returns the graph the detector is attached to.
func (d *Detector) Graph() *Graph { return d.graph }

// process executes the evaluation of the detector, if any of its subscribed
// topics completed the pass with data. This entails the BeginEvaluation
// hook, firing the subscription dispatchers in registration order (only
// those with new data deliver), and the CompleteEvaluation hook.
func (d *Detector) process() {
	if d.state != VertexProcessing {
		return
	}
	if b, ok := d.self.(BeginEvaluator); ok {
		b.BeginEvaluation()
	}
	for _, disp := range d.dispatchers {
		disp.dispatch()
	}
	if c, ok := d.self.(CompleteEvaluator); ok {
		c.CompleteEvaluation()
	}
	d.setState(VertexDone)
}

func (d *Detector) mustBeAttached() *Graph {
	if d.graph == nil {
		panic("dataflow: seek developer attention: detector used before Attach")
	}
	return d.graph
}

// Subscribe sets up the detector's subscription on the Topic of T: it
// records an in-edge from the topic and registers a dispatcher that will
// deliver the topic's values to the given subscriber (normally the detector
// itself).
//
// Subscribe must be called in the detector's constructor, once per
// Subscriber interface it implements. When several subscribed topics hold
// values in the same pass, their Evaluate calls fire in subscription order.
func Subscribe[T TopicState](d *Detector, s Subscriber[T]) {
	g := d.mustBeAttached()
	topic := ResolveTopic[T](g)
	g.connect(topic, d)
	d.dispatchers = append(d.dispatchers, typedDispatcher[T]{topic: topic, subscriber: s})
}

// SetupPublishing sets up the detector's advertisement on the Topic of T:
// it records an out-edge to the topic and returns the Publisher the detector
// uses to publish into the current pass.
//
// SetupPublishing must be called in the detector's constructor, once per
// published type.
func SetupPublishing[T TopicState](d *Detector) *Publisher[T] {
	g := d.mustBeAttached()
	topic := ResolveTopic[T](g)
	g.connect(d, topic)
	return &Publisher[T]{topic: topic}
}

// SetupFuturePublishing sets up the detector's cross-pass advertisement on
// the Topic of T: it records a future edge to the topic and returns the
// FuturePublisher the detector uses to enqueue values for the next pass.
//
// Future publications are how feedback loops stay acyclic: publishing to an
// upstream topic through the input queue turns the cycle into an edge across
// passes, preserving the topological nature of evaluation.
func SetupFuturePublishing[T TopicState](d *Detector) *FuturePublisher[T] {
	g := d.mustBeAttached()
	topic := ResolveTopic[T](g)
	d.markFutureEdge(topic)
	return &FuturePublisher[T]{graph: g}
}

// SetupTimeoutPublishing sets up the detector's timed advertisement on the
// Topic of T: it records a future edge to the topic and returns the
// TimeoutPublisher the detector uses to schedule and cancel one-shot timed
// publications through the given service.
func SetupTimeoutPublishing[T TopicState](d *Detector, svc *TimeoutPublisherService) *TimeoutPublisher[T] {
	g := d.mustBeAttached()
	topic := ResolveTopic[T](g)
	d.markFutureEdge(topic)
	if svc.graph != g {
		panic(fmt.Sprintf("dataflow: seek developer attention: timeout service bound to graph %q, detector %v belongs to %q", svc.graph.Name(), d.Name(), g.Name()))
	}
	return &TimeoutPublisher[T]{service: svc}
}

// SetupPeriodicPublishing schedules a zero value of T for periodic
// publication through the given service and records the corresponding
// future edge. The period joins the service's metronome (see
// TimeoutPublisherService).
func SetupPeriodicPublishing[T TopicState](d *Detector, svc *TimeoutPublisherService, period TimeOffset) {
	g := d.mustBeAttached()
	topic := ResolveTopic[T](g)
	d.markFutureEdge(topic)
	SchedulePeriodicPublishing[T](svc, period)
}
