// Package manager implements subscription.Manager: the collaborator that
// owns a session's subscription set, the shared PublishQueue and
// Scheduler, and the acknowledge-results bookkeeping keyed by request
// handle.
package manager

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"opcuasub/modules/queue"
	"opcuasub/modules/scheduler"
	"opcuasub/modules/subscription"
	"opcuasub/modules/utils"
)

// Manager coordinates every Subscription belonging to one session. It
// satisfies subscription.Manager and subscription.StateListener.
type Manager struct {
	log       *zap.Logger
	db        *badger.DB
	queue     *queue.PublishQueue
	scheduler *scheduler.Scheduler
	sessionID string

	mu          sync.Mutex
	subs        map[uint32]*subscription.Subscription
	items       map[uint32][]subscription.MonitoredItem
	nextID      uint32
	rrCursor    int
	pendingAcks map[uint32][]subscription.StatusCode
}

// New opens the subscription-metadata registry at dbDir and returns a
// ready Manager bound to the given queue and scheduler.
func New(dbDir string, q *queue.PublishQueue, sch *scheduler.Scheduler, log *zap.Logger) (*Manager, error) {
	db, err := badger.Open(badger.DefaultOptions(dbDir))
	if err != nil {
		return nil, fmt.Errorf("opening subscription registry: %w", err)
	}

	m := &Manager{
		log:         log,
		db:          db,
		queue:       q,
		scheduler:   sch,
		sessionID:   uuid.NewString(),
		subs:        make(map[uint32]*subscription.Subscription),
		items:       make(map[uint32][]subscription.MonitoredItem),
		nextID:      1,
		pendingAcks: make(map[uint32][]subscription.StatusCode),
	}
	return m, nil
}

func (m *Manager) Close() error {
	return m.db.Close()
}

func (m *Manager) SessionID() string { return m.sessionID }

// AcknowledgeResults returns and clears the acknowledge results computed
// for requestHandle when the request was dispatched.
func (m *Manager) AcknowledgeResults(requestHandle uint32) []subscription.StatusCode {
	m.mu.Lock()
	defer m.mu.Unlock()

	results := m.pendingAcks[requestHandle]
	delete(m.pendingAcks, requestHandle)
	return results
}

// OnStateChange implements subscription.StateListener: once a
// subscription reaches Closed, its entry is dropped from the active set
// and its persisted record is removed.
func (m *Manager) OnStateChange(subscriptionID uint32, previous, next subscription.State) {
	if next != subscription.StateClosed {
		return
	}

	m.mu.Lock()
	delete(m.subs, subscriptionID)
	delete(m.items, subscriptionID)
	m.mu.Unlock()

	if err := m.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(m.key(subscriptionID))
	}); err != nil {
		m.log.Error("failed to remove closed subscription record", zap.Error(err), zap.Uint32("subscription_id", subscriptionID))
	}

	m.log.Info("subscription closed", zap.Uint32("subscription_id", subscriptionID), zap.String("previous_state", previous.String()))
}

// CreateSubscription allocates a fresh Subscription, starts its
// publishing timer, and persists its revised parameters.
func (m *Manager) CreateSubscription(requested subscription.Parameters, publishingEnabled bool, priority uint8) *subscription.Subscription {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.mu.Unlock()

	sub := subscription.New(id, m, m.queue, m.scheduler, m.log, requested, publishingEnabled,
		subscription.WithPriority(priority),
		subscription.WithStateListener(m),
	)

	m.mu.Lock()
	m.subs[id] = sub
	m.mu.Unlock()

	m.persist(sub)
	sub.Start()

	return sub
}

// ModifySubscription applies new parameters to an existing subscription.
func (m *Manager) ModifySubscription(id uint32, requested subscription.Parameters, priority uint8) error {
	sub, err := m.lookup(id)
	if err != nil {
		return err
	}
	sub.Modify(requested, priority)
	m.persist(sub)
	return nil
}

// SetPublishingMode enables or disables publishing on the given
// subscriptions.
func (m *Manager) SetPublishingMode(ids []uint32, enabled bool) error {
	for _, id := range ids {
		sub, err := m.lookup(id)
		if err != nil {
			return err
		}
		sub.SetPublishingMode(enabled)
		m.persist(sub)
	}
	return nil
}

// AddMonitoredItems registers items on a subscription and mirrors them
// into the manager's own ownership registry.
func (m *Manager) AddMonitoredItems(id uint32, newItems []subscription.MonitoredItem) error {
	sub, err := m.lookup(id)
	if err != nil {
		return err
	}
	sub.AddItems(newItems)

	m.mu.Lock()
	m.items[id] = append(m.items[id], newItems...)
	m.mu.Unlock()
	return nil
}

// RemoveMonitoredItems unregisters items and returns the removed ones so
// the caller can tear them down.
func (m *Manager) RemoveMonitoredItems(id uint32, itemIDs []uint32) ([]subscription.MonitoredItem, error) {
	sub, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	removed := sub.RemoveItems(itemIDs)

	removedSet := make(map[uint32]bool, len(removed))
	for _, item := range removed {
		removedSet[item.ID()] = true
	}

	m.mu.Lock()
	kept := m.items[id][:0:0]
	for _, item := range m.items[id] {
		if !removedSet[item.ID()] {
			kept = append(kept, item)
		}
	}
	m.items[id] = kept
	m.mu.Unlock()

	return removed, nil
}

// DeleteSubscription tears a subscription down immediately, bypassing
// Closing, and returns its remaining items.
func (m *Manager) DeleteSubscription(id uint32) ([]subscription.MonitoredItem, error) {
	sub, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	remaining := sub.Delete()

	m.mu.Lock()
	delete(m.subs, id)
	delete(m.items, id)
	m.mu.Unlock()

	if err := m.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(m.key(id))
	}); err != nil {
		m.log.Error("failed to remove deleted subscription record", zap.Error(err), zap.Uint32("subscription_id", id))
	}

	return remaining, nil
}

// Republish returns a previously-emitted message, if it's still retained.
func (m *Manager) Republish(id, sequenceNumber uint32) (subscription.NotificationMessage, error) {
	sub, err := m.lookup(id)
	if err != nil {
		return subscription.NotificationMessage{}, err
	}
	return sub.Republish(sequenceNumber)
}

// Publish is the session's single entrypoint for an inbound Publish
// request. It selects a target subscription (preferring one registered
// as late over the generic round-robin), resolves the request's
// acknowledgements against that subscription, and dispatches.
func (m *Manager) Publish(service subscription.PublishService) {
	target := m.selectTarget()
	if target == nil {
		service.Respond(subscription.PublishResponse{
			Diagnostics: []string{"Bad_NoSubscription"},
		})
		return
	}

	results := make([]subscription.StatusCode, len(service.Request.SubscriptionAcknowledgements))
	for i, ack := range service.Request.SubscriptionAcknowledgements {
		if err := target.Acknowledge(ack.SequenceNumber); err != nil {
			results[i] = subscription.StatusBadSequenceNumberUnknown
		} else {
			results[i] = subscription.StatusGood
		}
	}

	m.mu.Lock()
	m.pendingAcks[service.Request.RequestHandle] = results
	m.mu.Unlock()

	if target.State() == subscription.StateClosed {
		service.Respond(subscription.PublishResponse{
			SubscriptionID:     target.ID(),
			AcknowledgeResults: results,
			Diagnostics:        []string{"Bad_NoSubscription"},
		})
		return
	}

	target.OnPublish(service)
}

// selectTarget prefers whichever subscription the queue has registered
// as late; absent one, it round-robins across the active set. Late
// subscriptions are taken in registration order; subscription priority is
// not consulted.
func (m *Manager) selectTarget() *subscription.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.queue.NextLateSubscription(); ok {
		if sub, exists := m.subs[id]; exists {
			return sub
		}
	}

	if len(m.subs) == 0 {
		return nil
	}

	ids := make([]uint32, 0, len(m.subs))
	for id := range m.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for i := 0; i < len(ids); i++ {
		idx := (m.rrCursor + i) % len(ids)
		if sub, ok := m.subs[ids[idx]]; ok {
			m.rrCursor = (idx + 1) % len(ids)
			return sub
		}
	}
	return nil
}

func (m *Manager) lookup(id uint32) (*subscription.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subs[id]
	if !ok {
		return nil, fmt.Errorf("subscription %d: %w", id, subscription.ErrNoSubscription)
	}
	return sub, nil
}

func (m *Manager) key(id uint32) []byte {
	return utils.NewCompositeKey("subscription").AddUint64(uint64(id)).Build()
}

func (m *Manager) persist(sub *subscription.Subscription) {
	rec := record{
		ID:                sub.ID(),
		Parameters:        sub.Parameters(),
		PublishingEnabled: sub.PublishingEnabled(),
		Priority:          sub.Priority(),
		State:             sub.State(),
	}

	data, err := json.Marshal(rec)
	if err != nil {
		m.log.Error("failed to serialize subscription record", zap.Error(err), zap.Uint32("subscription_id", rec.ID))
		return
	}

	if err := m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(m.key(rec.ID), data)
	}); err != nil {
		m.log.Error("failed to persist subscription record", zap.Error(err), zap.Uint32("subscription_id", rec.ID))
	}
}
