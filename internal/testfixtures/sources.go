package testfixtures

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Clock is a manual time source for services built in tests. A zero start
// means ReferenceTime.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NowFunc returns c.Now, or time.Now for a nil clock.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Advance moves the clock forward and returns the new instant.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// SteppingNowFunc returns the current instant and then advances by step, so
// sessions created in one reconciliation get strictly increasing created_at.
func (c *Clock) SteppingNowFunc(step time.Duration) func() time.Time {
	return func() time.Time {
		c.mu.Lock()
		defer c.mu.Unlock()
		now := c.now
		c.now = c.now.Add(step)
		return now
	}
}

// IDGenerator issues "<prefix>-0001", "<prefix>-0002", and so on. The padding
// keeps lexical order equal to issue order, which matters for the id
// tie-break between sessions created in the same millisecond.
type IDGenerator struct {
	prefix string
	issued atomic.Uint64
}

func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

func (g *IDGenerator) Next() string {
	return fmt.Sprintf("%s-%04d", g.prefix, g.issued.Add(1))
}

// NextFunc returns g.Next for injection into services.
func (g *IDGenerator) NextFunc() func() string {
	return g.Next
}

// Issued reports how many ids have been handed out.
func (g *IDGenerator) Issued() uint64 {
	return g.issued.Load()
}
