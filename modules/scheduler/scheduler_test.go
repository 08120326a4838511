package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestScheduleAfterInvokesCallbackOnce(t *testing.T) {
	sch, err := New(zap.NewNop())
	require.NoError(t, err)
	defer sch.Shutdown()

	fired := make(chan struct{}, 2)
	sch.ScheduleAfter(20, func() { fired <- struct{}{} })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("callback never fired")
	}

	select {
	case <-fired:
		t.Fatal("callback fired more than once for a one-shot job")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestScheduleAfterRunsConcurrentJobsIndependently(t *testing.T) {
	sch, err := New(zap.NewNop())
	require.NoError(t, err)
	defer sch.Shutdown()

	results := make(chan string, 2)
	sch.ScheduleAfter(10, func() { results <- "a" })
	sch.ScheduleAfter(10, func() { results <- "b" })

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case r := <-results:
			seen[r] = true
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for scheduled jobs")
		}
	}
	assert.True(t, seen["a"])
	assert.True(t, seen["b"])
}
