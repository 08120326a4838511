// Package queue implements subscription.PublishQueue: the
// cross-subscription collaborator that holds pending Publish requests and
// the set of subscriptions currently registered as late.
package queue

import (
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"opcuasub/modules/subscription"
	"opcuasub/modules/utils"
)

// PublishQueue is the shared, process-wide implementation every
// subscription polls and registers against. Pending requests live purely
// in memory — a PublishService carries a live response closure that
// cannot be marshalled — while the late-subscription registry is
// pebble-backed using a head/tail pointer pair, so it survives a restart.
type PublishQueue struct {
	log *zap.Logger

	mu      sync.Mutex
	pending []subscription.PublishService

	db     *pebble.DB
	prefix string
	head   uint64
	tail   uint64
	lateSet map[uint32]bool
}

// New opens (or creates) the late-subscription registry at dir and
// returns a ready PublishQueue.
func New(dir, prefix string, log *zap.Logger) (*PublishQueue, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("opening publish queue registry: %w", err)
	}

	q := &PublishQueue{
		log:     log,
		db:      db,
		prefix:  prefix,
		lateSet: make(map[uint32]bool),
	}
	if err := q.loadPointers(); err != nil {
		db.Close()
		return nil, fmt.Errorf("loading publish queue pointers: %w", err)
	}
	if err := q.rehydrateLateSet(); err != nil {
		db.Close()
		return nil, fmt.Errorf("rehydrating late-subscription set: %w", err)
	}

	return q, nil
}

func (q *PublishQueue) Close() error {
	return q.db.Close()
}

// EnqueueRequest appends a Publish request to the shared pending pool, for
// whichever subscription's OnTimer next polls it.
func (q *PublishQueue) EnqueueRequest(service subscription.PublishService) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, service)
}

// PollRequest removes and returns the oldest pending request, if any.
func (q *PublishQueue) PollRequest() (subscription.PublishService, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return subscription.PublishService{}, false
	}
	service := q.pending[0]
	q.pending = q.pending[1:]
	return service, true
}

// IsNotEmpty reports whether any request is pending.
func (q *PublishQueue) IsNotEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending) > 0
}

// RegisterLate records subscriptionID as awaiting the next Publish
// arrival. Idempotent: re-registering an already-late subscription is a
// no-op, since the registry is a set, not a multiset.
func (q *PublishQueue) RegisterLate(subscriptionID uint32) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.lateSet[subscriptionID] {
		return
	}
	q.lateSet[subscriptionID] = true

	key := q.keyForIndex(q.tail)
	if err := q.db.Set(key, utils.Uint32ToBytes(subscriptionID), pebble.Sync); err != nil {
		q.log.Error("failed to persist late subscription", zap.Error(err), zap.Uint32("subscription_id", subscriptionID))
		return
	}
	q.tail++
	if err := q.storePointers(); err != nil {
		q.log.Error("failed to persist late queue pointers", zap.Error(err))
	}
}

// NextLateSubscription pops the oldest registered late subscription id,
// for the manager to route a freshly-arrived Publish request to in
// preference to the generic pending pool.
func (q *PublishQueue) NextLateSubscription() (uint32, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.head != q.tail {
		key := q.keyForIndex(q.head)
		value, closer, err := q.db.Get(key)
		if err != nil {
			q.head++
			continue
		}
		id, convErr := utils.BytesToUint32(value)
		closer.Close()

		q.db.Delete(key, pebble.Sync)
		q.head++
		q.storePointers()

		if convErr != nil {
			continue
		}
		if !q.lateSet[id] {
			// already consumed via a concurrent path; skip.
			continue
		}
		delete(q.lateSet, id)
		return id, true
	}
	return 0, false
}

func (q *PublishQueue) keyForIndex(index uint64) []byte {
	return utils.NewCompositeKey(q.prefix).AddString("late").AddUint64(index).Build()
}

func (q *PublishQueue) loadPointers() error {
	headKey := utils.NewCompositeKey(q.prefix).AddString("head").Build()
	tailKey := utils.NewCompositeKey(q.prefix).AddString("tail").Build()

	if v, closer, err := q.db.Get(headKey); err == nil {
		q.head, _ = utils.BytesToUint(v)
		closer.Close()
	} else if err != pebble.ErrNotFound {
		return err
	}

	if v, closer, err := q.db.Get(tailKey); err == nil {
		q.tail, _ = utils.BytesToUint(v)
		closer.Close()
	} else if err != pebble.ErrNotFound {
		return err
	}

	return nil
}

func (q *PublishQueue) storePointers() error {
	headKey := utils.NewCompositeKey(q.prefix).AddString("head").Build()
	tailKey := utils.NewCompositeKey(q.prefix).AddString("tail").Build()

	if err := q.db.Set(headKey, utils.UintToBytes(q.head), pebble.Sync); err != nil {
		return err
	}
	return q.db.Set(tailKey, utils.UintToBytes(q.tail), pebble.Sync)
}

// rehydrateLateSet walks the persisted range once at startup so lateSet
// (used for idempotent RegisterLate checks) reflects whatever survived a
// restart.
func (q *PublishQueue) rehydrateLateSet() error {
	for i := q.head; i < q.tail; i++ {
		value, closer, err := q.db.Get(q.keyForIndex(i))
		if err == pebble.ErrNotFound {
			continue
		}
		if err != nil {
			return err
		}
		id, convErr := utils.BytesToUint32(value)
		closer.Close()
		if convErr == nil {
			q.lateSet[id] = true
		}
	}
	return nil
}
