package subscription

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Subscription is the per-subscription OPC UA state machine. A single
// mutex serialises every event handler and mutation operation; nothing
// inside the lock blocks on I/O.
type Subscription struct {
	mu sync.Mutex

	id       uint32
	log      *zap.Logger
	manager  Manager
	queue    PublishQueue
	scheduler Scheduler
	stateListener StateListener

	params Parameters

	publishingEnabled bool
	priority          uint8
	state             State

	sequenceNumber   uint32
	keepAliveCounter uint32
	lifetimeCounter  uint32
	messageSent      bool
	moreNotifications bool

	itemOrder []uint32
	items     map[uint32]MonitoredItem

	availableMessages map[uint32]NotificationMessage

	savedCursor *cursor
}

// Option configures a Subscription at construction time.
type Option func(*Subscription)

// WithStateListener attaches an observer notified on every transition.
func WithStateListener(l StateListener) Option {
	return func(s *Subscription) { s.stateListener = l }
}

// WithPriority sets the subscription's priority; the engine itself
// doesn't act on it.
func WithPriority(p uint8) Option {
	return func(s *Subscription) { s.priority = p }
}

// New constructs a Subscription with client-requested parameters revised
// against server limits, starting in State Normal with counters freshly
// reset.
func New(id uint32, manager Manager, queue PublishQueue, scheduler Scheduler, log *zap.Logger, requested Parameters, publishingEnabled bool, opts ...Option) *Subscription {
	sub := &Subscription{
		id:                id,
		log:               log,
		manager:           manager,
		queue:             queue,
		scheduler:         scheduler,
		params:            revise(requested),
		publishingEnabled: publishingEnabled,
		state:             StateNormal,
		sequenceNumber:    1,
		items:             make(map[uint32]MonitoredItem),
		availableMessages: make(map[uint32]NotificationMessage),
	}

	for _, opt := range opts {
		opt(sub)
	}

	sub.resetKeepAliveCounter()
	sub.resetLifetimeCounter()

	sub.log.Debug("subscription created",
		zap.Uint32("subscription_id", id),
		zap.Float64("publishing_interval", sub.params.PublishingInterval),
		zap.Uint32("max_keep_alive_count", sub.params.MaxKeepAliveCount),
		zap.Uint32("lifetime_count", sub.params.LifetimeCount))

	return sub
}

func (sub *Subscription) ID() uint32 { return sub.id }

func (sub *Subscription) State() State {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.state
}

func (sub *Subscription) Parameters() Parameters {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.params
}

func (sub *Subscription) Priority() uint8 {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.priority
}

// Modify applies a fresh parameter revision and resets the lifetime
// counter, but not the keep-alive counter.
func (sub *Subscription) Modify(requested Parameters, priority uint8) {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	sub.params = revise(requested)
	sub.priority = priority
	sub.resetLifetimeCounter()

	sub.log.Debug("subscription modified",
		zap.Uint32("subscription_id", sub.id),
		zap.Float64("publishing_interval", sub.params.PublishingInterval),
		zap.Uint32("max_keep_alive_count", sub.params.MaxKeepAliveCount),
		zap.Uint32("lifetime_count", sub.params.LifetimeCount))
}

// SetPublishingMode stores the enabled flag and resets the lifetime
// counter.
func (sub *Subscription) SetPublishingMode(enabled bool) {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	sub.publishingEnabled = enabled
	sub.resetLifetimeCounter()

	sub.log.Debug("publishing mode set",
		zap.Uint32("subscription_id", sub.id), zap.Bool("enabled", enabled))
}

func (sub *Subscription) PublishingEnabled() bool {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.publishingEnabled
}

// Start schedules the first publishing-timer tick; every tick thereafter
// reschedules itself from inside OnTimer.
func (sub *Subscription) Start() {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	sub.reschedule()
}

// AddItems registers items by id, non-owning: the caller retains
// ownership and is responsible for tearing them down on RemoveItems or
// Delete. Resets the lifetime counter.
func (sub *Subscription) AddItems(newItems []MonitoredItem) {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	for _, item := range newItems {
		id := item.ID()
		if _, exists := sub.items[id]; !exists {
			sub.itemOrder = append(sub.itemOrder, id)
		}
		sub.items[id] = item
	}
	sub.resetLifetimeCounter()

	sub.log.Debug("monitored items added",
		zap.Uint32("subscription_id", sub.id), zap.Int("count", len(newItems)))
}

// RemoveItems unregisters items by id and returns them to the caller so
// it can tear them down. Resets the lifetime counter.
func (sub *Subscription) RemoveItems(ids []uint32) []MonitoredItem {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	removed := make([]MonitoredItem, 0, len(ids))
	for _, id := range ids {
		if item, ok := sub.items[id]; ok {
			removed = append(removed, item)
			delete(sub.items, id)
		}
	}
	sub.itemOrder = pruneOrder(sub.itemOrder, sub.items)
	sub.resetLifetimeCounter()

	sub.log.Debug("monitored items removed",
		zap.Uint32("subscription_id", sub.id), zap.Int("count", len(removed)))

	return removed
}

func pruneOrder(order []uint32, items map[uint32]MonitoredItem) []uint32 {
	kept := order[:0:0]
	for _, id := range order {
		if _, ok := items[id]; ok {
			kept = append(kept, id)
		}
	}
	return kept
}

// Delete transitions directly to Closed, bypassing Closing, and returns
// every currently-registered item so the caller (the Manager) can tear
// them down.
func (sub *Subscription) Delete() []MonitoredItem {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	remaining := make([]MonitoredItem, 0, len(sub.items))
	for _, id := range sub.itemOrder {
		if item, ok := sub.items[id]; ok {
			remaining = append(remaining, item)
		}
	}

	sub.setState(StateClosed)

	sub.log.Debug("subscription deleted", zap.Uint32("subscription_id", sub.id))

	return remaining
}

// Acknowledge removes and confirms a retained message.
func (sub *Subscription) Acknowledge(sequenceNumber uint32) error {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	if _, ok := sub.availableMessages[sequenceNumber]; ok {
		delete(sub.availableMessages, sequenceNumber)
		sub.log.Debug("sequence number acknowledged",
			zap.Uint32("subscription_id", sub.id), zap.Uint32("sequence_number", sequenceNumber))
		return nil
	}

	sub.log.Debug("sequence number unknown",
		zap.Uint32("subscription_id", sub.id), zap.Uint32("sequence_number", sequenceNumber))
	return &SequenceNumberUnknownError{SequenceNumber: sequenceNumber}
}

// Republish resets the lifetime counter and returns the retained message,
// if still present.
func (sub *Subscription) Republish(sequenceNumber uint32) (NotificationMessage, error) {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	sub.resetLifetimeCounter()

	msg, ok := sub.availableMessages[sequenceNumber]
	if !ok {
		return NotificationMessage{}, &MessageNotAvailableError{SequenceNumber: sequenceNumber}
	}
	return msg, nil
}

// AvailableSequenceNumbers returns the current retained-message key set,
// sorted ascending.
func (sub *Subscription) AvailableSequenceNumbers() []uint32 {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.availableSequenceNumbersLocked()
}

func (sub *Subscription) availableSequenceNumbersLocked() []uint32 {
	numbers := make([]uint32, 0, len(sub.availableMessages))
	for seq := range sub.availableMessages {
		numbers = append(numbers, seq)
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	return numbers
}

func (sub *Subscription) resetLifetimeCounter() {
	sub.lifetimeCounter = sub.params.LifetimeCount
}

func (sub *Subscription) resetKeepAliveCounter() {
	sub.keepAliveCounter = sub.params.MaxKeepAliveCount
}

func (sub *Subscription) currentSequenceNumber() uint32 {
	return sub.sequenceNumber
}

func (sub *Subscription) nextSequenceNumber() uint32 {
	n := sub.sequenceNumber
	sub.sequenceNumber++
	return n
}

// notificationsAvailable reports whether any registered item currently has
// something to say (the notifications_available condition).
func (sub *Subscription) notificationsAvailable() bool {
	for _, id := range sub.itemOrder {
		item, ok := sub.items[id]
		if !ok {
			continue
		}
		if item.HasNotifications() || item.IsTriggered() {
			return true
		}
	}
	return false
}

func (sub *Subscription) unhandled(event string) error {
	err := &unhandledTransitionError{state: sub.state, event: event}
	sub.log.Error("unhandled subscription state", zap.Error(err))
	panic(err)
}
