package memory

import (
	"context"
	"sync"
	"time"
)

// Cooldowns tracks when each user may write again.
type Cooldowns struct {
	mu    sync.Mutex
	until map[string]time.Time
	now   func() time.Time
}

func NewCooldowns() *Cooldowns {
	return &Cooldowns{until: make(map[string]time.Time), now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (c *Cooldowns) WithClock(now func() time.Time) *Cooldowns {
	c.now = now
	return c
}

// Remaining returns how long user must still wait, or 0.
func (c *Cooldowns) Remaining(_ context.Context, user string) (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.remainingLocked(user, c.now()), nil
}

// Acquire starts a cooldown of length d for user unless one is running.
// It returns the time left on a running cooldown, or 0 when it started a new one.
func (c *Cooldowns) Acquire(_ context.Context, user string, d time.Duration) (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if left := c.remainingLocked(user, now); left > 0 {
		return left, nil
	}
	if d > 0 {
		c.until[user] = now.Add(d)
	}
	return 0, nil
}

// Release ends user's cooldown early.
func (c *Cooldowns) Release(_ context.Context, user string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.until, user)
	return nil
}

func (c *Cooldowns) remainingLocked(user string, now time.Time) time.Duration {
	until, ok := c.until[user]
	if !ok {
		return 0
	}
	left := until.Sub(now)
	if left <= 0 {
		delete(c.until, user)
		return 0
	}
	return left
}
