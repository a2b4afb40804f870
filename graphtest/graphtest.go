/*
Package graphtest provides utilities for testing dataflow graphs and
detectors.

The centrepiece is FakeTimers, a deterministic [dataflow.TimerDriver] and
[dataflow.Clock] that lets tests forward virtual time instead of sleeping:

	g := dataflow.New()
	svc, timers := graphtest.NewTimeoutService(g)
	// ... build detectors against g and svc ...
	timers.ForwardTimeAndEvaluate(200, g)

Forwarding time fires every armed deadline in order, evaluating the graph's
pending passes after each firing, exactly as an embedder's real timer
integration would between evaluations.
*/
package graphtest

import (
	"math"

	"github.com/go-dataflow/go-dataflow"
)

// invalidDeadline marks a timer slot without an armed deadline.
const invalidDeadline = dataflow.TimeOffset(math.MaxUint64)

// metronomeHandle is the deadline-table key of the metronome timer. The
// sentinel handle never collides with acquired handles.
const metronomeHandle = dataflow.InvalidTimeoutPublisherHandle

// FakeTimers is a deterministic timer driver and clock for tests. It records
// deadlines instead of arming real timers; tests forward virtual time with
// ForwardTimeAndEvaluate (or fire deadlines one at a time with
// FireNextTimeout), and FakeTimers reports the firings back to the service
// it is bound to.
//
// The monotonic clock reads the virtual elapsed time; the wall clock reads
// the same plus an adjustable offset, letting tests exercise wall-clock
// jumps without affecting timers.
type FakeTimers struct {
	service *dataflow.TimeoutPublisherService

	deadlines map[dataflow.TimeoutPublisherHandle]dataflow.TimeOffset

	// elapsed is the virtual monotonic time in milliseconds.
	elapsed dataflow.TimeOffset
	// wallClockOffset is summed with elapsed to produce Time().
	wallClockOffset int64

	metronomePeriod dataflow.TimeOffset
}

// NewTimeoutService returns a TimeoutPublisherService for the given graph,
// driven by a fresh FakeTimers bound to it.
func NewTimeoutService(g *dataflow.Graph) (*dataflow.TimeoutPublisherService, *FakeTimers) {
	f := &FakeTimers{deadlines: make(map[dataflow.TimeoutPublisherHandle]dataflow.TimeOffset)}
	svc := dataflow.NewTimeoutPublisherService(g, f, f)
	f.service = svc
	return svc, f
}

// SetTimeout records the deadline for the given handle relative to the
// current virtual time.
func (f *FakeTimers) SetTimeout(delay dataflow.TimeOffset, h dataflow.TimeoutPublisherHandle) {
	f.deadlines[h] = f.elapsed + delay
}

// Start is a no-op: recorded deadlines are armed immediately.
func (f *FakeTimers) Start(dataflow.TimeoutPublisherHandle) {}

// Cancel clears the recorded deadline for the given handle.
func (f *FakeTimers) Cancel(h dataflow.TimeoutPublisherHandle) {
	delete(f.deadlines, h)
}

// StartMetronome arms the metronome at the given period.
func (f *FakeTimers) StartMetronome(period dataflow.TimeOffset) {
	f.metronomePeriod = period
	f.deadlines[metronomeHandle] = f.elapsed + period
}

// CancelMetronome clears the metronome deadline.
func (f *FakeTimers) CancelMetronome() {
	delete(f.deadlines, metronomeHandle)
}

// Time returns the virtual wall-clock time: the elapsed virtual time summed
// with the configured wall-clock offset.
func (f *FakeTimers) Time() dataflow.TimeOffset {
	return dataflow.TimeOffset(int64(f.elapsed) + f.wallClockOffset)
}

// MonotonicTime returns the elapsed virtual time.
func (f *FakeTimers) MonotonicTime() dataflow.TimeOffset {
	return f.elapsed
}

// SetWallClockOffset adjusts the difference between the wall clock and the
// monotonic clock, emulating a time synchronisation jump.
func (f *FakeTimers) SetWallClockOffset(offset int64) {
	f.wallClockOffset = offset
}

// MetronomePeriod returns the period the metronome was last armed with.
func (f *FakeTimers) MetronomePeriod() dataflow.TimeOffset {
	return f.metronomePeriod
}

// nextTimeout returns the handle with the earliest armed deadline.
//
// This could be optimised with a queue on the next deadline to remove the
// O(N) search; but this is a test double, N is small.
func (f *FakeTimers) nextTimeout() (dataflow.TimeoutPublisherHandle, dataflow.TimeOffset, bool) {
	var (
		minHandle   dataflow.TimeoutPublisherHandle
		minDeadline = invalidDeadline
		found       bool
	)
	for h, deadline := range f.deadlines {
		if deadline < minDeadline {
			minHandle, minDeadline = h, deadline
			found = true
		}
	}
	return minHandle, minDeadline, found
}

// fire advances the virtual clock to the given deadline and reports the
// firing to the bound service. The metronome re-arms itself; one-shot
// deadlines clear.
func (f *FakeTimers) fire(h dataflow.TimeoutPublisherHandle, deadline dataflow.TimeOffset) {
	f.elapsed = deadline
	if h == metronomeHandle {
		f.service.MetronomeFired()
		f.deadlines[metronomeHandle] = f.elapsed + f.metronomePeriod
		return
	}
	f.service.TimeoutExpired(h)
	delete(f.deadlines, h)
}

// FireNextTimeout fires the earliest armed deadline, if any, and reports
// whether one fired. The graph is not evaluated; the fired value sits in
// the input queue.
func (f *FakeTimers) FireNextTimeout() bool {
	h, deadline, ok := f.nextTimeout()
	if !ok {
		return false
	}
	f.fire(h, deadline)
	return true
}

// ForwardTimeAndEvaluate forwards virtual time by fwd milliseconds against
// the given graph: every deadline falling within the window fires in order,
// and after each firing the graph evaluates its pending passes. It reports
// whether at least one deadline fired.
//
// When fwd is positive, passes pending before the window (e.g. inputs pushed
// by the test) are flushed first. When the last firing lands exactly on the window's end,
// only a single pass is evaluated for it: the window end is the test's
// moment of interest, and returning there lets the test inspect all outputs
// produced for that particular moment.
func (f *FakeTimers) ForwardTimeAndEvaluate(fwd dataflow.TimeOffset, g *dataflow.Graph) bool {
	firedAtLeastOne := false
	finalDeadline := f.elapsed + fwd

	if fwd > 0 {
		for g.EvaluateIfPending() {
		}
	}

	for {
		h, deadline, ok := f.nextTimeout()
		if !ok || deadline > finalDeadline {
			break
		}

		f.fire(h, deadline)
		firedAtLeastOne = true

		for g.EvaluateIfPending() {
			if deadline == finalDeadline {
				break
			}
		}
	}

	f.elapsed = finalDeadline
	return firedAtLeastOne
}
