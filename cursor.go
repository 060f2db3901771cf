package drift

// cursor holds the subscribe loop's time tokens: current drives the next
// long-poll, last is a one-slot history used for catch-up across membership
// changes and reconnects. Guarded by the owning Subscriber's lock.
type cursor struct {
	current uint64
	last    uint64
}

func (c *cursor) reset() {
	c.current = 0
	c.last = 0
}

// promoteToLast saves the current position for a later catch-up and rewinds
// current to the initial-subscribe sentinel.
func (c *cursor) promoteToLast() {
	if c.current > 0 {
		c.last = c.current
	}
	c.current = 0
}

// advance moves the cursor to the token a subscribe response returned. The
// previous position, if any, becomes the catch-up slot. Re-delivery of the
// same token leaves the cursor untouched.
func (c *cursor) advance(tt uint64) {
	if tt == c.current {
		return
	}
	if c.current != 0 {
		c.last = c.current
	}
	c.current = tt
	if c.last == c.current {
		c.last = 0
	}
}
