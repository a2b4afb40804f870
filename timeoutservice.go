package dataflow

import "fmt"

// TimeOffset is a duration or instant expressed in milliseconds. Wall-clock
// offsets count from the Unix epoch; monotonic offsets count from an
// unspecified starting point that does not change for the lifetime of the
// clock.
type TimeOffset uint64

// TimeoutPublisherHandle identifies a one-shot timer slot acquired from a
// TimeoutPublisherService. Handles are opaque positive integers.
type TimeoutPublisherHandle int

// InvalidTimeoutPublisherHandle is the reserved sentinel that no acquired
// handle ever equals.
const InvalidTimeoutPublisherHandle TimeoutPublisherHandle = 0

// TimerDriver programs the embedder's real timers on behalf of a
// TimeoutPublisherService. The service calls these hooks; the embedder, in
// turn, calls the service's TimeoutExpired and MetronomeFired when its
// timers fire.
//
// Drivers need no bookkeeping beyond the timers themselves: the service
// tracks which handles are armed and what they publish.
type TimerDriver interface {
	// SetTimeout initialises the one-shot timer for the given handle (if it
	// does not already exist) and sets its deadline relative to now.
	SetTimeout(delay TimeOffset, h TimeoutPublisherHandle)
	// Start starts the one-shot timer for the given handle.
	Start(h TimeoutPublisherHandle)
	// Cancel cancels the one-shot timer for the given handle.
	Cancel(h TimeoutPublisherHandle)
	// StartMetronome starts the single periodic timer at the given period.
	StartMetronome(period TimeOffset)
	// CancelMetronome stops the periodic timer.
	CancelMetronome()
}

// Clock provides the two time sources detectors may consult through the
// service.
type Clock interface {
	// Time returns the wall-clock offset to the epoch. This clock may jump
	// back and forth due to time synchronisation; use it to stamp
	// TopicStates, never to order them.
	Time() TimeOffset
	// MonotonicTime returns a strictly increasing offset valid for the
	// lifetime of the clock.
	MonotonicTime() TimeOffset
}

// topicStateDispatcher holds a scheduled TopicState until its timer fires
// and then delivers it into the graph's input queue.
type topicStateDispatcher interface {
	dispatchTo(g *Graph)
}

type timedDispatcher[T TopicState] struct {
	data T
}

func (d timedDispatcher[T]) dispatchTo(g *Graph) {
	if err := Push(g, d.data); err != nil {
		// A timer firing cannot surface errors to the embedder; a full
		// bounded queue is a configuration fault for the next Evaluate.
		g.recordFault(err)
	}
}

// periodicPublishingSeries tracks one periodic publication: its period, its
// dispatcher and the time accumulated from metronome ticks since it last
// fired. All series share the single underlying metronome timer.
type periodicPublishingSeries struct {
	period      TimeOffset
	accumulated TimeOffset
	dispatcher  topicStateDispatcher
}

// TimeoutPublisherService adds the notion of timed publications to a
// dataflow graph. It is shared among many publishing detectors: each
// acquires handles for its one-shot timers (see SetupTimeoutPublishing) or
// joins the periodic metronome (see SetupPeriodicPublishing).
//
// The service owns no real timers; a TimerDriver provided by the embedder
// programs them, and the embedder reports firings back through
// TimeoutExpired and MetronomeFired. Firings deliver values into the
// graph's input queue; they never preempt an in-progress evaluation.
type TimeoutPublisherService struct {
	graph  *Graph
	driver TimerDriver
	clock  Clock

	// scheduled maps each armed handle to the dispatcher holding its
	// pending TopicState; exactly one slot per handle.
	scheduled map[TimeoutPublisherHandle]topicStateDispatcher
	periodic  []periodicPublishingSeries

	// metronomePeriod is the greatest common divisor of all registered
	// periodic periods; zero until the first series is registered.
	metronomePeriod TimeOffset

	lastHandle TimeoutPublisherHandle
}

// NewTimeoutPublisherService returns a service that delivers timed
// publications into the given graph, programming real timers through the
// given driver and telling time through the given clock.
func NewTimeoutPublisherService(g *Graph, driver TimerDriver, clock Clock) *TimeoutPublisherService {
	return &TimeoutPublisherService{
		graph:     g,
		driver:    driver,
		clock:     clock,
		scheduled: make(map[TimeoutPublisherHandle]topicStateDispatcher),
	}
}

// UniqueTimerHandle acquires a handle for a new one-shot timer. Detectors
// call this once per timer they own, usually at construction; the handle is
// then used throughout the API to refer to that timer. It never returns
// InvalidTimeoutPublisherHandle.
func (s *TimeoutPublisherService) UniqueTimerHandle() TimeoutPublisherHandle {
	s.lastHandle++
	return s.lastHandle
}

// ScheduleTimeout schedules a value for publication after a timeout: it
// associates the value with the given handle's slot and arms the underlying
// timer to expire after the given delay.
//
// In dynamic builds, scheduling on an already-armed handle resets it,
// cancelling the previous timeout. In bounded builds the slot must be empty
// at the moment of scheduling; re-arming an armed handle is an unrecoverable
// programming error, and exceeding MaxTimeouts concurrently armed timers is
// a configuration fault surfaced by the next Evaluate.
func ScheduleTimeout[T TopicState](s *TimeoutPublisherService, v T, delay TimeOffset, h TimeoutPublisherHandle) {
	if s.graph.limits != nil {
		if _, armed := s.scheduled[h]; armed {
			panic(fmt.Sprintf("dataflow: seek developer attention: timer handle %d re-armed while pending", h))
		}
		if len(s.scheduled) >= s.graph.limits.MaxTimeouts {
			s.graph.recordFault(fmt.Errorf("%w: exceeded %d concurrent timeouts", ErrBadConfiguration, s.graph.limits.MaxTimeouts))
			return
		}
	}
	s.CancelPublishOnTimeout(h)
	s.scheduled[h] = timedDispatcher[T]{data: v}
	s.driver.SetTimeout(delay, h)
	s.driver.Start(h)
}

// CancelPublishOnTimeout cancels the timer for the given handle and frees
// its slot, discarding the stored TopicState. Cancellation is idempotent:
// cancelling an empty slot (never armed, already fired, or already
// cancelled) is a no-op.
func (s *TimeoutPublisherService) CancelPublishOnTimeout(h TimeoutPublisherHandle) {
	if _, armed := s.scheduled[h]; !armed {
		return
	}
	s.driver.Cancel(h)
	delete(s.scheduled, h)
}

// HasTimeoutExpired reports whether the slot for the given handle is empty.
// It also returns true for a handle that was never armed.
func (s *TimeoutPublisherService) HasTimeoutExpired(h TimeoutPublisherHandle) bool {
	_, armed := s.scheduled[h]
	return !armed
}

// SchedulePeriodicPublishing appends a periodic publication of T's zero
// value at the given period. The metronome period becomes the greatest
// common divisor of all registered periods; call StartPeriodicPublishing
// once all series are registered.
func SchedulePeriodicPublishing[T TopicState](s *TimeoutPublisherService, period TimeOffset) {
	if s.graph.limits != nil && len(s.periodic) >= s.graph.limits.MaxPeriodicTimers {
		s.graph.recordFault(fmt.Errorf("%w: exceeded %d periodic timers", ErrBadConfiguration, s.graph.limits.MaxPeriodicTimers))
		return
	}
	s.metronomePeriod = gcd(period, s.metronomePeriod)
	s.periodic = append(s.periodic, periodicPublishingSeries{
		period:     period,
		dispatcher: timedDispatcher[T]{},
	})
}

// StartPeriodicPublishing arms the metronome with the current metronome
// period. It has no effect before any periodic series is registered.
func (s *TimeoutPublisherService) StartPeriodicPublishing() {
	if s.metronomePeriod > 0 {
		s.driver.StartMetronome(s.metronomePeriod)
	}
}

// MetronomePeriod returns the period the metronome runs at: the greatest
// common divisor of all registered periodic periods, or zero when no series
// is registered.
func (s *TimeoutPublisherService) MetronomePeriod() TimeOffset {
	return s.metronomePeriod
}

// TimeoutExpired notifies the service that the embedder's timer for the
// given handle has fired. The stored TopicState is pushed into the graph
// and the slot is freed.
//
// A firing that races a cancellation finds the slot empty and is silently
// skipped; no value is ever published for a cancelled timer.
func (s *TimeoutPublisherService) TimeoutExpired(h TimeoutPublisherHandle) {
	d, armed := s.scheduled[h]
	if !armed {
		return
	}
	d.dispatchTo(s.graph)
	delete(s.scheduled, h)
}

// MetronomeFired notifies the service that the embedder's metronome timer
// has ticked. Each periodic series accumulates the metronome period; a
// series whose accumulator reached its own period dispatches and resets.
func (s *TimeoutPublisherService) MetronomeFired() {
	for i := range s.periodic {
		series := &s.periodic[i]
		series.accumulated += s.metronomePeriod
		if series.accumulated >= series.period {
			series.dispatcher.dispatchTo(s.graph)
			series.accumulated = 0
		}
	}
}

// Time returns the wall-clock offset to the epoch, as told by the service's
// clock. Detectors use it to stamp TopicStates.
func (s *TimeoutPublisherService) Time() TimeOffset {
	return s.clock.Time()
}

// MonotonicTime returns a strictly increasing offset, as told by the
// service's clock.
func (s *TimeoutPublisherService) MonotonicTime() TimeOffset {
	return s.clock.MonotonicTime()
}

func gcd(lhs, rhs TimeOffset) TimeOffset {
	for rhs != 0 {
		lhs, rhs = rhs, lhs%rhs
	}
	return lhs
}
