package shared

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// IDGenerator hands out identifiers for new entities.
type IDGenerator interface {
	NewID() uuid.UUID
}

// UUIDGenerator generates random (v4) UUIDs.
type UUIDGenerator struct{}

// NewID implements IDGenerator
func (UUIDGenerator) NewID() uuid.UUID {
	return uuid.New()
}

// Clock abstracts wall-clock reads so age-based rules can be tested.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real time in UTC.
type SystemClock struct{}

// Now implements Clock
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock is a settable clock for tests and replays.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock creates a clock frozen at t
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{now: t}
}

// Now implements Clock
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t
func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
