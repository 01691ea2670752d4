package testutil

import (
	"sync"
	"time"
)

// Epoch is where a new Clock starts: a weekday afternoon, so formatted
// timestamps exercise the pm branch of the console's date style.
var Epoch = time.Date(2026, time.March, 5, 14, 7, 0, 0, time.UTC)

// Clock is a manual time source. Pass Clock.Now wherever a func() time.Time
// is accepted.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a Clock at start, or at Epoch when start is omitted.
func NewClock(start ...time.Time) *Clock {
	c := &Clock{now: Epoch}
	if len(start) > 0 {
		c.now = start[0]
	}
	return c
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new time.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
