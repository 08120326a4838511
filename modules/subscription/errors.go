package subscription

import (
	"errors"
	"fmt"
)

// ErrNoSubscription is the sentinel a Manager wraps when a request names
// a subscription id it doesn't (or no longer) hold — the Bad_NoSubscription
// condition from OPC UA Part 4.
var ErrNoSubscription = errors.New("no such subscription")

// SequenceNumberUnknownError is returned by Acknowledge when the sequence
// number is not (or is no longer) present in available_messages.
type SequenceNumberUnknownError struct {
	SequenceNumber uint32
}

func (e *SequenceNumberUnknownError) Error() string {
	return fmt.Sprintf("sequence number unknown: %d", e.SequenceNumber)
}

// MessageNotAvailableError is returned by Republish when the requested
// sequence number was never retained, or has already been acknowledged.
type MessageNotAvailableError struct {
	SequenceNumber uint32
}

func (e *MessageNotAvailableError) Error() string {
	return fmt.Sprintf("message not available: %d", e.SequenceNumber)
}

// unhandledTransitionError marks a state/event combination the transition
// table doesn't cover. The table is total by construction; hitting this
// is an engine bug, not a client-visible condition.
type unhandledTransitionError struct {
	state State
	event string
}

func (e *unhandledTransitionError) Error() string {
	return fmt.Sprintf("unhandled subscription state %s for event %s", e.state, e.event)
}
