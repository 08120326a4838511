package subscription

import "math"

const (
	MinPublishingInterval = 100.0
	MaxPublishingInterval = 60_000.0
	MinLifetime           = 10_000.0
	MaxLifetime           = 3_600_000.0
	MaxNotifications      = 0xFFFF

	maxCounter = math.MaxUint32
)

// Parameters is the set of client-revisable knobs on a Subscription.
type Parameters struct {
	PublishingInterval         float64
	MaxKeepAliveCount          uint32
	LifetimeCount              uint32
	MaxNotificationsPerPublish uint32
}

// revise clamps requested against the protocol bounds: interval, then
// keep-alive count, then lifetime count (which depends on the revised
// keep-alive count), then max-notifications. It never fails.
func revise(requested Parameters) Parameters {
	var out Parameters

	out.PublishingInterval = revisePublishingInterval(requested.PublishingInterval)
	out.MaxKeepAliveCount = reviseMaxKeepAliveCount(requested.MaxKeepAliveCount, out.PublishingInterval)
	out.LifetimeCount = reviseLifetimeCount(requested.LifetimeCount, out.MaxKeepAliveCount, out.PublishingInterval)
	out.MaxNotificationsPerPublish = reviseMaxNotifications(requested.MaxNotificationsPerPublish)

	return out
}

func revisePublishingInterval(requested float64) float64 {
	if math.IsNaN(requested) || math.IsInf(requested, 0) || requested < MinPublishingInterval {
		requested = MinPublishingInterval
	}
	if requested > MaxPublishingInterval {
		requested = MaxPublishingInterval
	}
	return requested
}

// ceilDiv returns ceil(numerator / interval), exact: it only adds 1 when
// the division isn't exact.
func ceilDiv(numerator, interval float64) uint32 {
	quotient := numerator / interval
	count := uint64(quotient)
	if float64(count)*interval < numerator {
		count++
	}
	if count > maxCounter {
		return maxCounter
	}
	return uint32(count)
}

func reviseMaxKeepAliveCount(requested uint32, interval float64) uint32 {
	count := requested
	if count == 0 {
		count = 3
	}

	keepAliveInterval := float64(count) * interval

	// the keep-alive interval cannot exceed the max subscription lifetime.
	if keepAliveInterval > MaxLifetime {
		count = ceilDiv(MaxLifetime, interval)
		keepAliveInterval = float64(count) * interval
	}

	// the time between publishes cannot exceed the max publishing interval.
	if keepAliveInterval > MaxPublishingInterval {
		count = ceilDiv(MaxPublishingInterval, interval)
	}

	return count
}

func reviseLifetimeCount(requested uint32, maxKeepAliveCount uint32, interval float64) uint32 {
	count := requested
	lifetimeInterval := float64(count) * interval

	// the lifetime cannot exceed the max subscription lifetime.
	if lifetimeInterval > MaxLifetime {
		count = ceilDiv(MaxLifetime, interval)
		lifetimeInterval = float64(count) * interval
	}

	// the lifetime must be at least 3x the keep-alive count, unless that
	// multiplication would overflow the 32-bit counter representation.
	if maxKeepAliveCount < maxCounter/3 {
		minFromKeepAlive := maxKeepAliveCount * 3
		if minFromKeepAlive > count {
			count = minFromKeepAlive
			lifetimeInterval = float64(count) * interval
		}
	} else {
		count = maxCounter
		lifetimeInterval = math.MaxFloat64
	}

	// apply the minimum lifetime, but only when both the publishing
	// interval and the lifetime interval are themselves below it — on a
	// large publishing interval this condition is skipped.
	if MinLifetime > interval && MinLifetime > lifetimeInterval {
		count = ceilDiv(MinLifetime, interval)
	}

	return count
}

func reviseMaxNotifications(requested uint32) uint32 {
	if requested == 0 || requested > MaxNotifications {
		return MaxNotifications
	}
	return requested
}
