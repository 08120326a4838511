package manager

import "opcuasub/modules/subscription"

// record is the durable projection of a subscription's parameters and
// lifecycle state — never notification content — persisted to badger on
// create, modify and set-publishing-mode, and removed on close or delete.
// New does not read existing records back, so a restarted manager starts
// with an empty subscription set.
type record struct {
	ID                uint32                  `json:"id"`
	Parameters        subscription.Parameters `json:"parameters"`
	PublishingEnabled bool                    `json:"publishing_enabled"`
	Priority          uint8                   `json:"priority"`
	State             subscription.State      `json:"state"`
}
