package subscription

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRevisePublishingIntervalClampsToBounds(t *testing.T) {
	assert.Equal(t, MinPublishingInterval, revisePublishingInterval(0))
	assert.Equal(t, MinPublishingInterval, revisePublishingInterval(-5))
	assert.Equal(t, MinPublishingInterval, revisePublishingInterval(math.NaN()))
	assert.Equal(t, MinPublishingInterval, revisePublishingInterval(math.Inf(1)))
	assert.Equal(t, MaxPublishingInterval, revisePublishingInterval(999_999))
	assert.Equal(t, 500.0, revisePublishingInterval(500))
}

func TestReviseMaxKeepAliveCountDefaultsAndClamps(t *testing.T) {
	assert.Equal(t, uint32(3), reviseMaxKeepAliveCount(0, 1000))

	// 1000 * 10000 = 10_000_000 > MaxLifetime(3_600_000) -> ceil(3_600_000/1000) = 3600,
	// but that still exceeds MaxPublishingInterval(60_000) at this interval, so the
	// second clamp re-derives from 60_000 instead: ceil(60_000/1000) = 60.
	assert.Equal(t, uint32(60), reviseMaxKeepAliveCount(10_000, 1000))

	// 100 * 60_000 exceeds MaxLifetime -> ceil(3_600_000/60_000) = 60, which still
	// exceeds MaxPublishingInterval -> ceil(60_000/60_000) = 1.
	assert.Equal(t, uint32(1), reviseMaxKeepAliveCount(100, 60_000))
}

func TestReviseLifetimeCountEnforcesTripleKeepAlive(t *testing.T) {
	// requested count smaller than 3x keep-alive must be raised.
	count := reviseLifetimeCount(1, 10, 1000)
	assert.Equal(t, uint32(30), count)
}

func TestReviseLifetimeCountCapsAtMaxLifetime(t *testing.T) {
	count := reviseLifetimeCount(1_000_000, 3, 1000)
	assert.Equal(t, uint32(3600), count) // ceil(3_600_000/1000)
}

// TestReviseLifetimeCountSkipsMinimumClampOnLargeInterval pins the
// preserved open-question behavior: the minimum-lifetime floor only
// applies when the publishing interval itself is below MinLifetime. At
// a 20s interval, three keep-alives (60s) already exceeds the 10s floor,
// and the interval itself exceeds it too, so the clamp never fires.
func TestReviseLifetimeCountSkipsMinimumClampOnLargeInterval(t *testing.T) {
	interval := 20_000.0
	maxKeepAlive := reviseMaxKeepAliveCount(0, interval) // defaults to 3
	count := reviseLifetimeCount(0, maxKeepAlive, interval)

	// 3 * 20_000 = 60_000, already >= MinLifetime(10_000), so the count
	// comes entirely from the 3x keep-alive floor, not the minimum-lifetime
	// clamp.
	assert.Equal(t, uint32(9), count)
	assert.Greater(t, float64(count)*interval, MinLifetime)
}

// TestReviseLifetimeCountAppliesMinimumClampOnSmallInterval is the
// contrasting case: a small interval where the keep-alive floor alone
// lands below MinLifetime, so the clamp raises it further.
func TestReviseLifetimeCountAppliesMinimumClampOnSmallInterval(t *testing.T) {
	interval := 100.0
	count := reviseLifetimeCount(0, 3, interval) // keep-alive floor -> 9, 9*100=900 < 10_000

	assert.Equal(t, uint32(100), count) // ceil(10_000/100)
}

func TestReviseMaxNotificationsClampsToUint16Max(t *testing.T) {
	assert.Equal(t, uint32(MaxNotifications), reviseMaxNotifications(0))
	assert.Equal(t, uint32(MaxNotifications), reviseMaxNotifications(100_000))
	assert.Equal(t, uint32(500), reviseMaxNotifications(500))
}

func TestReviseNeverFails(t *testing.T) {
	out := revise(Parameters{
		PublishingInterval:         math.NaN(),
		MaxKeepAliveCount:          0,
		LifetimeCount:              0,
		MaxNotificationsPerPublish: 0,
	})
	assert.Equal(t, MinPublishingInterval, out.PublishingInterval)
	assert.Equal(t, uint32(3), out.MaxKeepAliveCount)
	assert.GreaterOrEqual(t, out.LifetimeCount, 3*out.MaxKeepAliveCount)
	assert.Equal(t, uint32(MaxNotifications), out.MaxNotificationsPerPublish)
}

func TestCeilDivIsExact(t *testing.T) {
	assert.Equal(t, uint32(3), ceilDiv(3_600_000, 1_200_000))
	assert.Equal(t, uint32(4), ceilDiv(3_600_001, 1_200_000))
}
