package monitoreditem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opcuasub/modules/subscription"
)

func TestNewClampsQueueSize(t *testing.T) {
	assert.Equal(t, uint32(1), New(1, 1, 0, true).queueSize)
	assert.Equal(t, uint32(maxQueueSize), New(1, 1, 5000, true).queueSize)
	assert.Equal(t, uint32(10), New(1, 1, 10, true).queueSize)
}

func TestEnqueueValueWrapsNotification(t *testing.T) {
	item := New(1, 77, 10, true)
	assert.False(t, item.HasNotifications())

	item.EnqueueValue("hello")
	require.True(t, item.HasNotifications())

	notifications, drained := item.Drain(10)
	require.Len(t, notifications, 1)
	n, ok := notifications[0].(subscription.MonitoredItemNotification)
	require.True(t, ok)
	assert.Equal(t, uint32(77), n.ClientHandle)
	assert.Equal(t, "hello", n.Value)
	assert.True(t, drained)
	assert.False(t, item.HasNotifications())
}

func TestDiscardOldestDropsEarliestOnOverflow(t *testing.T) {
	item := New(1, 1, 2, true)
	item.EnqueueValue(1)
	item.EnqueueValue(2)
	item.EnqueueValue(3) // queue size 2 -> drops 1

	notifications, drained := item.Drain(10)
	require.Len(t, notifications, 2)
	assert.Equal(t, 2, notifications[0].(subscription.MonitoredItemNotification).Value)
	assert.Equal(t, 3, notifications[1].(subscription.MonitoredItemNotification).Value)
	assert.True(t, drained)
}

func TestDiscardNewestDropsLatestOnOverflow(t *testing.T) {
	item := New(1, 1, 2, false)
	item.EnqueueValue(1)
	item.EnqueueValue(2)
	item.EnqueueValue(3) // discard-newest: 3 is dropped, not 1

	notifications, _ := item.Drain(10)
	require.Len(t, notifications, 2)
	assert.Equal(t, 1, notifications[0].(subscription.MonitoredItemNotification).Value)
	assert.Equal(t, 2, notifications[1].(subscription.MonitoredItemNotification).Value)
}

func TestDrainRespectsLimitAndReportsResidue(t *testing.T) {
	item := New(1, 1, 10, true)
	item.EnqueueValue(1)
	item.EnqueueValue(2)
	item.EnqueueValue(3)

	first, drained := item.Drain(2)
	require.Len(t, first, 2)
	assert.False(t, drained, "one value still buffered")
	assert.True(t, item.HasNotifications())

	second, drained := item.Drain(2)
	require.Len(t, second, 1)
	assert.True(t, drained)
	assert.False(t, item.HasNotifications())
}

func TestTriggeredItemPropagation(t *testing.T) {
	trigger := New(1, 1, 10, true)
	triggered := New(2, 2, 10, true)
	trigger.AddTriggeredItem(triggered)

	assert.False(t, triggered.IsTriggered())
	trigger.EnqueueValue(1)
	assert.True(t, triggered.IsTriggered())

	// draining the triggered item's own (empty) queue clears the flag.
	_, drained := triggered.Drain(10)
	assert.True(t, drained)
	assert.False(t, triggered.IsTriggered())

	trigger.RemoveTriggeredItem(triggered)
	trigger.EnqueueValue(2)
	assert.False(t, triggered.IsTriggered(), "no longer registered, must not fire")
}
