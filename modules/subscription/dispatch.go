package subscription

import "go.uber.org/zap"

// OnPublish handles an inbound Publish request under the subscription's
// lock, dispatching on the current state per OPC UA Part 4's Subscription
// state table. It never blocks on I/O: queueing, gathering, and
// responding all happen synchronously against in-memory collaborators.
func (sub *Subscription) OnPublish(service PublishService) {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	switch sub.state {
	case StateNormal:
		// Row 4
		if !sub.publishingEnabled || !sub.moreNotifications {
			sub.queue.EnqueueRequest(service)
			return
		}
		// Row 5
		sub.resetLifetimeCounter()
		sub.returnNotifications(service)
		sub.messageSent = true

	case StateKeepAlive:
		// Row 13
		sub.queue.EnqueueRequest(service)

	case StateLate:
		if sub.publishingEnabled && (sub.notificationsAvailable() || sub.moreNotifications) {
			// Row 10
			sub.setState(StateNormal)
			sub.resetLifetimeCounter()
			sub.returnNotifications(service)
			sub.messageSent = true
			return
		}
		// Row 11
		sub.setState(StateKeepAlive)
		sub.resetLifetimeCounter()
		sub.returnKeepAlive(service)
		sub.messageSent = true

	case StateClosing:
		// Row "Closing"
		sub.returnStatusChangeNotification(service)
		sub.setState(StateClosed)

	case StateClosed:
		// requests arriving after close are queued; it's the manager's job
		// to recognise the closed id and answer Bad_NoSubscription rather
		// than ever dispatching them back here.
		sub.queue.EnqueueRequest(service)

	default:
		sub.unhandled("OnPublish")
	}
}

// OnTimer handles a publishing-timer tick under the subscription's lock.
// The lifetime counter is decremented first; reaching zero moves straight
// to Closing without evaluating the state's row.
func (sub *Subscription) OnTimer() {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	if sub.state == StateClosed {
		return
	}

	sub.lifetimeCounter--
	if sub.lifetimeCounter < 1 {
		sub.log.Debug("lifetime expired", zap.Uint32("subscription_id", sub.id))
		sub.setState(StateClosing)
		return
	}

	switch sub.state {
	case StateNormal:
		sub.whenNormalTimer()
	case StateLate:
		// Row 12
		sub.reschedule()
	case StateKeepAlive:
		sub.whenKeepAliveTimer()
	default:
		sub.unhandled("OnTimer")
	}
}

// whenNormalTimer evaluates rows 6-9. A PollRequest miss despite
// IsNotEmpty being true (the queue is shared with every other subscription
// and isn't covered by this lock) re-evaluates the row rather than
// recursing, per the no-recursive-retry design note.
func (sub *Subscription) whenNormalTimer() {
	for {
		requestQueued := sub.queue.IsNotEmpty()
		notificationsAvailable := sub.notificationsAvailable()

		switch {
		case requestQueued && sub.publishingEnabled && notificationsAvailable:
			// Row 6
			service, ok := sub.queue.PollRequest()
			if !ok {
				continue
			}
			sub.resetLifetimeCounter()
			sub.returnNotifications(service)
			sub.messageSent = true
			sub.reschedule()
			return

		case requestQueued && !sub.messageSent && (!sub.publishingEnabled || !notificationsAvailable):
			// Row 7
			service, ok := sub.queue.PollRequest()
			if !ok {
				continue
			}
			sub.resetLifetimeCounter()
			sub.returnKeepAlive(service)
			sub.messageSent = true
			sub.reschedule()
			return

		case !requestQueued && (!sub.messageSent || (sub.publishingEnabled && notificationsAvailable)):
			// Row 8
			sub.setState(StateLate)
			sub.reschedule()
			sub.queue.RegisterLate(sub.id)
			return

		case sub.messageSent && (!sub.publishingEnabled || !notificationsAvailable):
			// Row 9
			sub.setState(StateKeepAlive)
			sub.resetKeepAliveCounter()
			sub.reschedule()
			return

		default:
			sub.unhandled("OnTimer/Normal")
			return
		}
	}
}

// whenKeepAliveTimer evaluates rows 14-17.
func (sub *Subscription) whenKeepAliveTimer() {
	for {
		requestQueued := sub.queue.IsNotEmpty()
		notificationsAvailable := sub.notificationsAvailable()

		switch {
		case sub.publishingEnabled && notificationsAvailable && requestQueued:
			// Row 14
			service, ok := sub.queue.PollRequest()
			if !ok {
				continue
			}
			sub.setState(StateNormal)
			sub.resetLifetimeCounter()
			sub.returnNotifications(service)
			sub.messageSent = true
			sub.reschedule()
			return

		case requestQueued && sub.keepAliveCounter == 1 && (!sub.publishingEnabled || !notificationsAvailable):
			// Row 15
			service, ok := sub.queue.PollRequest()
			if !ok {
				continue
			}
			sub.returnKeepAlive(service)
			sub.resetLifetimeCounter()
			sub.resetKeepAliveCounter()
			sub.reschedule()
			return

		case sub.keepAliveCounter > 1 && (!sub.publishingEnabled || !notificationsAvailable):
			// Row 16
			sub.keepAliveCounter--
			sub.reschedule()
			return

		case !requestQueued && (sub.keepAliveCounter == 1 || (sub.keepAliveCounter > 1 && sub.publishingEnabled && notificationsAvailable)):
			// Row 17
			sub.setState(StateLate)
			sub.reschedule()
			sub.queue.RegisterLate(sub.id)
			return

		default:
			sub.unhandled("OnTimer/KeepAlive")
			return
		}
	}
}

func (sub *Subscription) reschedule() {
	sub.scheduler.ScheduleAfter(sub.params.PublishingInterval, sub.OnTimer)
}
