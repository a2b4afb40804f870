package dataflow_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/go-dataflow/go-dataflow"
)

// Counter with reset: a feedback loop closed explicitly with a
// FuturePublisher. eventCounter counts happenings; resetDetector watches the
// count and feeds a reset back into the next pass once it reaches the
// threshold.
type eventHappened struct{ dataflow.AnonymousElement }
type eventCount struct {
	dataflow.AnonymousElement
	Count int
}
type countReset struct{ dataflow.AnonymousElement }

type eventCounter struct {
	dataflow.Detector
	out   *dataflow.Publisher[eventCount]
	count int
}

func newEventCounter(g *dataflow.Graph) *eventCounter {
	d := &eventCounter{}
	d.Attach(g, d)
	dataflow.Subscribe[eventHappened](&d.Detector, dataflow.SubscriberFunc[eventHappened](d.onEvent))
	dataflow.Subscribe[countReset](&d.Detector, dataflow.SubscriberFunc[countReset](d.onReset))
	d.out = dataflow.SetupPublishing[eventCount](&d.Detector)
	return d
}

func (d *eventCounter) onEvent(eventHappened) { d.count++ }

func (d *eventCounter) onReset(countReset) { d.count = 0 }

func (d *eventCounter) CompleteEvaluation() {
	d.out.Publish(eventCount{Count: d.count})
}

type resetDetector struct {
	dataflow.Detector
	out       *dataflow.FuturePublisher[countReset]
	threshold int
}

func newResetDetector(g *dataflow.Graph, threshold int) *resetDetector {
	d := &resetDetector{threshold: threshold}
	d.Attach(g, d)
	dataflow.Subscribe[eventCount](&d.Detector, d)
	d.out = dataflow.SetupFuturePublishing[countReset](&d.Detector)
	return d
}

func (d *resetDetector) Evaluate(c eventCount) {
	if c.Count >= d.threshold {
		d.out.PublishOnFutureEvaluation(countReset{})
	}
}

func TestCounterWithReset(t *testing.T) {
	g := dataflow.New()
	newEventCounter(g)
	newResetDetector(g, 5)

	counts := dataflow.ResolveTopic[eventCount](g)

	// Seven push-then-evaluate rounds. The reset enqueued during the fifth
	// pass is consumed, FIFO, by the sixth - so the sixth round counts no
	// new event.
	var published []int
	for i := 0; i < 7; i++ {
		if err := dataflow.Push(g, eventHappened{}); err != nil {
			t.Fatal("Push()", err)
		}
		if err := g.Evaluate(); err != nil {
			t.Fatal("Evaluate()", err)
		}
		published = append(published, counts.NewValue().Count)
	}

	want := []int{1, 2, 3, 4, 5, 0, 1}
	if diff := cmp.Diff(want, published); diff != "" {
		t.Error("Published counts differ (-want +got):", diff)
	}

	// The loop makes one more pass pending than inputs pushed; draining it
	// consumes the last event.
	if !g.HasDataPending() {
		t.Fatal("HasDataPending() = false, the seventh event should still be queued")
	}
	if err := g.Evaluate(); err != nil {
		t.Fatal("Evaluate()", err)
	}
	if got := counts.NewValue().Count; got != 2 {
		t.Errorf("Count after draining = %v, want 2", got)
	}
	if g.HasDataPending() {
		t.Error("HasDataPending() = true after draining")
	}
}

// Lag feedback: the same loop shape, closed with the built-in Lag detector
// instead of an ad-hoc future publisher.
type loopStart struct{ dataflow.AnonymousElement }
type loopStep struct {
	dataflow.AnonymousElement
	I int
}

type loopDetector struct {
	dataflow.Detector
	out  *dataflow.Publisher[loopStep]
	stop int
}

func newLoopDetector(g *dataflow.Graph, stop int) *loopDetector {
	d := &loopDetector{stop: stop}
	d.Attach(g, d)
	dataflow.Subscribe[loopStart](&d.Detector, dataflow.SubscriberFunc[loopStart](d.onStart))
	dataflow.Subscribe[dataflow.Lagged[loopStep]](&d.Detector, dataflow.SubscriberFunc[dataflow.Lagged[loopStep]](d.onLagged))
	d.out = dataflow.SetupPublishing[loopStep](&d.Detector)
	return d
}

func (d *loopDetector) onStart(loopStart) { d.out.Publish(loopStep{I: 1}) }

func (d *loopDetector) onLagged(prev dataflow.Lagged[loopStep]) {
	if prev.Data.I < d.stop {
		d.out.Publish(loopStep{I: prev.Data.I + 1})
	}
}

func TestLagFeedback(t *testing.T) {
	g := dataflow.New()
	newLoopDetector(g, 5)
	dataflow.NewLag[loopStep](g)

	steps := dataflow.ResolveTopic[loopStep](g)

	var (
		produced []int
		passes   int
	)
	container := dataflow.NewProcessorContainer(g, func([]dataflow.TopicState) {
		passes++
		if steps.HasNewValue() {
			produced = append(produced, steps.NewValue().I)
		}
	})

	if err := dataflow.Process(container, loopStart{}); err != nil {
		t.Fatal("Process()", err)
	}

	if diff := cmp.Diff([]int{1, 2, 3, 4, 5}, produced); diff != "" {
		t.Error("Loop values differ (-want +got):", diff)
	}
	// Five value-producing passes, plus the final pass that consumes the
	// last lagged value and publishes nothing.
	if passes != 6 {
		t.Errorf("passes = %v, want 6", passes)
	}
	if g.HasDataPending() {
		t.Error("HasDataPending() = true after the loop terminated")
	}
}
