package dataflow

// A TimeoutPublisher is a detector's handle for scheduling timed
// publications of T through a TimeoutPublisherService; see
// SetupTimeoutPublishing.
//
// A detector that owns a timer typically acquires a handle at construction
// (via the service's UniqueTimerHandle) and schedules or cancels against it
// at run time. Detectors with multiple concurrent timers hold multiple
// handles.
type TimeoutPublisher[T TopicState] struct {
	service *TimeoutPublisherService
}

// PublishOnTimeout schedules a new version of T to be pushed into the graph
// after the given delay, on the timer slot of the given handle. See
// ScheduleTimeout for the slot semantics.
func (p *TimeoutPublisher[T]) PublishOnTimeout(v T, delay TimeOffset, h TimeoutPublisherHandle) {
	if p == nil || p.service == nil {
		panic("dataflow: seek developer attention: timed publish before SetupTimeoutPublishing")
	}
	ScheduleTimeout(p.service, v, delay, h)
}

// CancelPublishOnTimeout cancels the pending publication on the given
// handle, if any.
func (p *TimeoutPublisher[T]) CancelPublishOnTimeout(h TimeoutPublisherHandle) {
	p.service.CancelPublishOnTimeout(h)
}

// HasTimeoutExpired reports whether the given handle's slot is empty.
func (p *TimeoutPublisher[T]) HasTimeoutExpired(h TimeoutPublisherHandle) bool {
	return p.service.HasTimeoutExpired(h)
}

// TimeoutService returns the service this publisher schedules through,
// which detectors also use to acquire handles and read clocks.
func (p *TimeoutPublisher[T]) TimeoutService() *TimeoutPublisherService {
	return p.service
}
