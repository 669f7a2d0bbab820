package core

import "time"

// IDSource hands out entry identifiers.
type IDSource interface {
	// Next returns a fresh identifier.
	Next() int64
	// Observe records an identifier already in use so later ones do not reuse it.
	Observe(id int64)
}

// ClockIDs derives identifiers from a millisecond clock. Two calls within the
// same millisecond would collide, so the value is bumped past the last one issued.
type ClockIDs struct {
	Now  func() time.Time
	last int64
}

// NewClockIDs returns an id source backed by the wall clock.
func NewClockIDs() *ClockIDs {
	return &ClockIDs{Now: time.Now}
}

func (c *ClockIDs) Next() int64 {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	id := now().UnixMilli()
	if id <= c.last {
		id = c.last + 1
	}
	c.last = id
	return id
}

func (c *ClockIDs) Observe(id int64) {
	if id > c.last {
		c.last = id
	}
}
