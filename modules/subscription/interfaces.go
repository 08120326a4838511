package subscription

// MonitoredItem is the capability the engine drains for notifications. The
// engine never creates, samples, or filters items — it only asks an
// already-configured item whether it has something to say and lets it
// write that into the gather buffer.
type MonitoredItem interface {
	ID() uint32
	HasNotifications() bool
	IsTriggered() bool
	// Drain writes up to limit notifications into the subscription's
	// gather buffer and reports whether the item has nothing left to
	// drain (true) or still holds a residue for the next publish
	// (false). It must not fail; item-level errors are represented as
	// notification payloads, not Go errors.
	Drain(limit int) (notifications []any, itemDrained bool)
}

// PublishQueue is the cross-subscription collaborator that holds pending
// Publish requests and the set of subscriptions registered as "late".
// Its own fairness/ordering policy is out of scope for the engine; the
// engine only relies on the narrow contract below.
type PublishQueue interface {
	EnqueueRequest(service PublishService)
	PollRequest() (PublishService, bool)
	IsNotEmpty() bool
	RegisterLate(subscriptionID uint32)
}

// Scheduler is the process-wide timer collaborator. ScheduleAfter must not
// block and must invoke callback exactly once, interval milliseconds from
// now (rounded as the implementation sees fit), on a goroutine that is
// safe to re-enter the subscription's lock from.
type Scheduler interface {
	ScheduleAfter(intervalMS float64, callback func())
}

// Manager is the collaborator that owns acknowledge-results bookkeeping
// and session identity across the lifetime of a Publish request. The
// engine calls it once per emitted response, never mutates it.
type Manager interface {
	AcknowledgeResults(requestHandle uint32) []StatusCode
	SessionID() string
}

// StateListener observes every state transition. Optional: a subscription
// with no listener attached behaves identically, just silently.
type StateListener interface {
	OnStateChange(subscriptionID uint32, previous, next State)
}
