package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cooldownPrefix = "cooldown:"

// Cooldowns keeps one expiring key per user; its TTL is the time left.
type Cooldowns struct {
	client *redis.Client
}

func NewCooldowns(client *redis.Client) *Cooldowns {
	return &Cooldowns{client: client}
}

// CooldownKey returns the key that marks user as cooling down.
func CooldownKey(user string) string {
	return cooldownPrefix + user
}

func (c *Cooldowns) Remaining(ctx context.Context, user string) (time.Duration, error) {
	ttl, err := c.client.PTTL(ctx, CooldownKey(user)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis.Cooldowns.Remaining: %w", err)
	}
	// Missing keys report negative sentinels.
	if ttl <= 0 {
		return 0, nil
	}
	return ttl, nil
}

// Acquire starts a cooldown of length d for user unless one is running and
// returns the time left on the running one, or 0. SET NX PX and PTTL run in
// one transaction so the answer never races the key's expiry. d <= 0
// disables cooldowns and writes no key.
func (c *Cooldowns) Acquire(ctx context.Context, user string, d time.Duration) (time.Duration, error) {
	if d <= 0 {
		return 0, nil
	}

	key := CooldownKey(user)
	var (
		set *redis.BoolCmd
		ttl *redis.DurationCmd
	)
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		set = p.SetNX(ctx, key, "", d)
		ttl = p.PTTL(ctx, key)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis.Cooldowns.Acquire: %w", err)
	}
	if set.Val() {
		return 0, nil
	}
	if left := ttl.Val(); left > 0 {
		return left, nil
	}

	// A key without expiry never ends; replace it with a bounded one.
	if err := c.client.Set(ctx, key, "", d).Err(); err != nil {
		return 0, fmt.Errorf("redis.Cooldowns.Acquire: %w", err)
	}
	return 0, nil
}

// Release ends user's cooldown early.
func (c *Cooldowns) Release(ctx context.Context, user string) error {
	if err := c.client.Del(ctx, CooldownKey(user)).Err(); err != nil {
		return fmt.Errorf("redis.Cooldowns.Release: %w", err)
	}
	return nil
}
