package subscription

import (
	"sync"
	"testing"

	"go.uber.org/zap"
)

// fakeItem is a minimal MonitoredItem test double: a plain slice buffer,
// no sampling or filtering, matching the engine's non-owning contract.
type fakeItem struct {
	id uint32

	mu        sync.Mutex
	buffered  []any
	triggered bool
}

func newFakeItem(id uint32) *fakeItem { return &fakeItem{id: id} }

func (f *fakeItem) ID() uint32 { return f.id }

func (f *fakeItem) HasNotifications() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.buffered) > 0
}

func (f *fakeItem) IsTriggered() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.triggered
}

func (f *fakeItem) Drain(limit int) (notifications []any, itemDrained bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := limit
	if n > len(f.buffered) {
		n = len(f.buffered)
	}
	notifications = append([]any(nil), f.buffered[:n]...)
	f.buffered = f.buffered[n:]
	return notifications, len(f.buffered) == 0
}

// push enqueues values the way a real DataChangeItem's EnqueueValue does:
// wrapped as a MonitoredItemNotification carrying this item's handle.
func (f *fakeItem) push(values ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range values {
		f.buffered = append(f.buffered, MonitoredItemNotification{ClientHandle: f.id, Value: v})
	}
}

// fakeQueue is an in-memory PublishQueue test double.
type fakeQueue struct {
	mu      sync.Mutex
	pending []PublishService
	late    []uint32
}

func newFakeQueue() *fakeQueue { return &fakeQueue{} }

func (q *fakeQueue) EnqueueRequest(service PublishService) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, service)
}

func (q *fakeQueue) PollRequest() (PublishService, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return PublishService{}, false
	}
	service := q.pending[0]
	q.pending = q.pending[1:]
	return service, true
}

func (q *fakeQueue) IsNotEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending) > 0
}

func (q *fakeQueue) RegisterLate(subscriptionID uint32) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.late = append(q.late, subscriptionID)
}

// fakeScheduler counts every ScheduleAfter call and never runs the
// callback; tests drive ticks explicitly by calling Subscription.OnTimer.
type fakeScheduler struct {
	mu        sync.Mutex
	scheduled int
}

func (s *fakeScheduler) ScheduleAfter(intervalMS float64, callback func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled++
}

// fakeManager is a no-op Manager test double; AcknowledgeResults returns
// whatever was stashed for a given request handle.
type fakeManager struct {
	mu      sync.Mutex
	results map[uint32][]StatusCode
}

func newFakeManager() *fakeManager {
	return &fakeManager{results: make(map[uint32][]StatusCode)}
}

func (m *fakeManager) AcknowledgeResults(requestHandle uint32) []StatusCode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.results[requestHandle]
}

func (m *fakeManager) SessionID() string { return "test-session" }

// newTestSubscription builds a Subscription wired to fresh fakes, with
// generous defaults so tests can focus on the behavior under test.
func newTestSubscription(t *testing.T, requested Parameters) (*Subscription, *fakeQueue, *fakeScheduler, *fakeManager) {
	t.Helper()

	q := newFakeQueue()
	sch := &fakeScheduler{}
	mgr := newFakeManager()

	sub := New(1, mgr, q, sch, zap.NewNop(), requested, true)
	return sub, q, sch, mgr
}

// capture returns a PublishService whose Respond writes into *out.
func capture(requestHandle uint32, out *PublishResponse) PublishService {
	return PublishService{
		Request: PublishRequest{RequestHandle: requestHandle},
		Respond: func(r PublishResponse) { *out = r },
	}
}
