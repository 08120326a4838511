package subscription

import "go.uber.org/zap"

// State is one of the five states of the OPC UA Part 4 Subscription State
// Table.
type State int

const (
	StateNormal State = iota
	StateKeepAlive
	StateLate
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNormal:
		return "Normal"
	case StateKeepAlive:
		return "KeepAlive"
	case StateLate:
		return "Late"
	case StateClosing:
		return "Closing"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

func (sub *Subscription) setState(next State) {
	prev := sub.state
	sub.state = next

	sub.log.Debug("state transition",
		zap.Uint32("subscription_id", sub.id), zap.String("from", prev.String()), zap.String("to", next.String()))

	if sub.stateListener != nil {
		sub.stateListener.OnStateChange(sub.id, prev, next)
	}
}
