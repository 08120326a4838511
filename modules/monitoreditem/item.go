// Package monitoreditem provides the engine's default MonitoredItem: a
// bounded, discard-oldest-or-newest FIFO with triggered-item propagation.
package monitoreditem

import (
	"sync"

	"github.com/gammazero/deque"

	"opcuasub/modules/subscription"
)

const maxQueueSize = 1024

// DataChangeItem implements subscription.MonitoredItem.
type DataChangeItem struct {
	mu sync.Mutex

	id            uint32
	clientHandle  uint32
	queueSize     uint32
	discardOldest bool

	queue deque.Deque[any]

	triggeredItems []*DataChangeItem
	triggered      bool
}

// New constructs a DataChangeItem. queueSize is clamped to [1, 1024].
func New(id, clientHandle, queueSize uint32, discardOldest bool) *DataChangeItem {
	if queueSize > maxQueueSize {
		queueSize = maxQueueSize
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &DataChangeItem{
		id:            id,
		clientHandle:  clientHandle,
		queueSize:     queueSize,
		discardOldest: discardOldest,
	}
}

func (mi *DataChangeItem) ID() uint32 { return mi.id }

func (mi *DataChangeItem) HasNotifications() bool {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	return mi.queue.Len() > 0
}

func (mi *DataChangeItem) IsTriggered() bool {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	return mi.triggered
}

// SetTriggered is invoked by whatever drives sampling once it decides
// this item's triggering items fired.
func (mi *DataChangeItem) SetTriggered(triggered bool) {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	mi.triggered = triggered
}

// EnqueueValue wraps value as a MonitoredItemNotification addressed at
// this item's client handle and enqueues it.
func (mi *DataChangeItem) EnqueueValue(value any) {
	mi.Enqueue(subscription.MonitoredItemNotification{ClientHandle: mi.clientHandle, Value: value})
}

// Enqueue records a pre-built notification (MonitoredItemNotification or
// EventFieldList), applying the bounded discard-oldest/discard-newest
// overflow policy, and fans triggering out to every registered triggered
// item.
func (mi *DataChangeItem) Enqueue(notification any) {
	mi.mu.Lock()
	if mi.queue.Len() >= int(mi.queueSize) {
		if !mi.discardOldest {
			// discard-newest: the incoming notification itself is the one
			// dropped, the existing backlog is left untouched.
			mi.mu.Unlock()
			return
		}
		for mi.queue.Len() >= int(mi.queueSize) {
			mi.queue.PopFront()
		}
	}
	mi.queue.PushBack(notification)
	triggeredItems := append([]*DataChangeItem(nil), mi.triggeredItems...)
	mi.mu.Unlock()

	for _, item := range triggeredItems {
		item.SetTriggered(true)
	}
}

// Drain implements subscription.MonitoredItem: it writes up to limit
// notifications into the gather buffer and reports whether the item
// has nothing left (true) or still holds a residue (false).
func (mi *DataChangeItem) Drain(limit int) (notifications []any, itemDrained bool) {
	mi.mu.Lock()
	defer mi.mu.Unlock()

	notifications = make([]any, 0, limit)
	for len(notifications) < limit && mi.queue.Len() > 0 {
		notifications = append(notifications, mi.queue.PopFront())
	}
	if mi.queue.Len() == 0 {
		mi.triggered = false
	}
	return notifications, mi.queue.Len() == 0
}

// AddTriggeredItem registers item to be marked triggered whenever this
// item receives a new sample.
func (mi *DataChangeItem) AddTriggeredItem(item *DataChangeItem) {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	mi.triggeredItems = append(mi.triggeredItems, item)
}

// RemoveTriggeredItem undoes AddTriggeredItem.
func (mi *DataChangeItem) RemoveTriggeredItem(item *DataChangeItem) {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	for i, existing := range mi.triggeredItems {
		if existing == item {
			mi.triggeredItems = append(mi.triggeredItems[:i], mi.triggeredItems[i+1:]...)
			return
		}
	}
}
