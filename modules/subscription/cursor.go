package subscription

// cursor is a resumable, insertion-ordered walk over a snapshot of item
// ids. It is rebuilt fresh at the start of every gather (from whatever the
// previous cursor left unconsumed, plus newly-ready items) and saved back
// onto the subscription at the end. The saved cursor can outlive a
// remove_items call; since it's an index into a snapshot of ids, not a live
// reference, an id whose item was removed is simply skipped when gathering.
type cursor struct {
	ids []uint32
	pos int
}

func newCursor(ids []uint32) *cursor {
	return &cursor{ids: ids}
}

func (c *cursor) hasNext() bool {
	return c != nil && c.pos < len(c.ids)
}

func (c *cursor) peek() (uint32, bool) {
	if !c.hasNext() {
		return 0, false
	}
	return c.ids[c.pos], true
}

func (c *cursor) advance() {
	if c.pos < len(c.ids) {
		c.pos++
	}
}

// remaining returns the ids this cursor has not yet visited, in order —
// used to seed the next gather's working set.
func (c *cursor) remaining() []uint32 {
	if c == nil {
		return nil
	}
	return append([]uint32(nil), c.ids[c.pos:]...)
}

// buildWorkingSet forms the deduplicated, insertion-ordered working set
// for a gather pass: the saved cursor's residue first, then every item in
// registry order that has something to say and isn't already present.
func buildWorkingSet(saved *cursor, registryOrder []uint32, ready map[uint32]bool) []uint32 {
	seen := make(map[uint32]bool, len(registryOrder))
	working := make([]uint32, 0, len(registryOrder))

	for _, id := range saved.remaining() {
		if !seen[id] {
			seen[id] = true
			working = append(working, id)
		}
	}
	for _, id := range registryOrder {
		if ready[id] && !seen[id] {
			seen[id] = true
			working = append(working, id)
		}
	}
	return working
}
