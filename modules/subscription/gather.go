package subscription

import (
	"time"

	"go.uber.org/zap"
)

// readySet reports, for every registered item, whether it currently has
// something to say.
func (sub *Subscription) readySet() map[uint32]bool {
	ready := make(map[uint32]bool, len(sub.itemOrder))
	for _, id := range sub.itemOrder {
		if item, ok := sub.items[id]; ok {
			ready[id] = item.HasNotifications() || item.IsTriggered()
		}
	}
	return ready
}

// gatherAndSend walks the working set peekably: it drains each head item
// only as far as the remaining response capacity allows, and only
// advances past an item once that item reports itself drained.
func (sub *Subscription) gatherAndSend(c *cursor, maxNotifications uint32) (notifications []any, moreAvailable bool) {
	for uint32(len(notifications)) < maxNotifications && c.hasNext() {
		id, _ := c.peek()
		item, ok := sub.items[id]
		if !ok {
			c.advance()
			continue
		}

		remaining := int(maxNotifications) - len(notifications)
		gathered, itemDrained := item.Drain(remaining)
		notifications = append(notifications, gathered...)

		if itemDrained {
			c.advance()
		}
	}
	return notifications, c.hasNext()
}

// returnNotifications builds the working set from the saved cursor plus
// newly-ready items, gathers into at most one response per available
// Publish request, and either exhausts the cursor or parks the
// subscription as late in the queue.
func (sub *Subscription) returnNotifications(first PublishService) {
	ids := buildWorkingSet(sub.savedCursor, sub.itemOrder, sub.readySet())
	c := newCursor(ids)
	service := first

	for {
		notifications, more := sub.gatherAndSend(c, sub.params.MaxNotificationsPerPublish)
		sub.moreNotifications = more
		sub.sendNotifications(service, notifications)

		if !more {
			break
		}

		next, ok := sub.queue.PollRequest()
		if !ok {
			sub.queue.RegisterLate(sub.id)
			break
		}
		service = next
	}

	sub.savedCursor = c
}

// sendNotifications partitions gathered notifications by kind, assigns a
// fresh sequence number, retains the message, and hands the response to
// the caller.
func (sub *Subscription) sendNotifications(service PublishService, notifications []any) {
	var dataChanges []MonitoredItemNotification
	var events []EventFieldList

	for _, n := range notifications {
		switch v := n.(type) {
		case MonitoredItemNotification:
			dataChanges = append(dataChanges, v)
		case EventFieldList:
			events = append(events, v)
		}
	}

	var notificationData []any
	if len(dataChanges) > 0 {
		notificationData = append(notificationData, DataChangeNotification{MonitoredItems: dataChanges})
	}
	if len(events) > 0 {
		notificationData = append(notificationData, EventNotificationList{Events: events})
	}

	seq := sub.nextSequenceNumber()
	msg := NotificationMessage{
		SequenceNumber:   seq,
		PublishTime:      time.Now(),
		NotificationData: notificationData,
	}
	sub.availableMessages[seq] = msg

	response := PublishResponse{
		ResponseHeader:           ResponseHeader{Timestamp: time.Now(), RequestHandle: service.Request.RequestHandle},
		SubscriptionID:           sub.id,
		AvailableSequenceNumbers: sub.availableSequenceNumbersLocked(),
		MoreNotifications:        sub.moreNotifications,
		NotificationMessage:      msg,
		AcknowledgeResults:       sub.manager.AcknowledgeResults(service.Request.RequestHandle),
	}
	service.Respond(response)

	sub.log.Debug("returned notifications",
		zap.Uint32("subscription_id", sub.id),
		zap.Int("data_change_count", len(dataChanges)),
		zap.Int("event_count", len(events)),
		zap.Uint32("sequence_number", seq))
}

// returnKeepAlive sends an empty notification payload carrying the
// current, not-yet-consumed, sequence number.
func (sub *Subscription) returnKeepAlive(service PublishService) {
	seq := sub.currentSequenceNumber()
	msg := NotificationMessage{
		SequenceNumber: seq,
		PublishTime:    time.Now(),
	}

	response := PublishResponse{
		ResponseHeader:           ResponseHeader{Timestamp: time.Now(), RequestHandle: service.Request.RequestHandle},
		SubscriptionID:           sub.id,
		AvailableSequenceNumbers: sub.availableSequenceNumbersLocked(),
		MoreNotifications:        sub.moreNotifications,
		NotificationMessage:      msg,
		AcknowledgeResults:       sub.manager.AcknowledgeResults(service.Request.RequestHandle),
	}
	service.Respond(response)

	sub.log.Debug("returned keep-alive",
		zap.Uint32("subscription_id", sub.id), zap.Uint32("sequence_number", seq))
}

// returnStatusChangeNotification sends a single
// StatusChangeNotification(Bad_Timeout), consuming a fresh sequence
// number but leaving available_messages untouched.
func (sub *Subscription) returnStatusChangeNotification(service PublishService) {
	seq := sub.nextSequenceNumber()
	msg := NotificationMessage{
		SequenceNumber:   seq,
		PublishTime:      time.Now(),
		NotificationData: []any{StatusChangeNotification{Status: StatusBadTimeout}},
	}

	response := PublishResponse{
		ResponseHeader:      ResponseHeader{Timestamp: time.Now(), RequestHandle: service.Request.RequestHandle},
		SubscriptionID:      sub.id,
		NotificationMessage: msg,
		AcknowledgeResults:  sub.manager.AcknowledgeResults(service.Request.RequestHandle),
	}
	service.Respond(response)

	sub.log.Debug("returned status-change notification",
		zap.Uint32("subscription_id", sub.id), zap.Uint32("sequence_number", seq))
}
