// Package redis backs the dev server with Redis: pub/sub fan-out of board
// updates, the packed canvas bitfield and per-user cooldown keys.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// BoardUpdateChannel carries every accepted pixel write as {"x","y","color"}.
const BoardUpdateChannel = "BoardUpdate"

const subscriberBuffer = 64

// PubSub relays accepted pixel writes between dev server instances. Every
// instance publishes on BoardUpdateChannel and each websocket connection
// holds its own subscription, so an update reaches clients of all instances.
type PubSub struct {
	client *redis.Client
}

// New connects to Redis and pings it. The client is shared with the canvas
// and cooldown stores through Client.
func New(ctx context.Context, addr, password string, db int) (*PubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis.New: ping: %w", err)
	}

	return &PubSub{client: client}, nil
}

// Close releases the connection pool, including the one the canvas and
// cooldown stores use.
func (ps *PubSub) Close() error {
	if err := ps.client.Close(); err != nil {
		return fmt.Errorf("redis.PubSub.Close: %w", err)
	}
	return nil
}

// Publish fans payload out to every subscriber of channel. Subscribers that
// are not connected at publish time never see it; clients recover through
// the periodic snapshot.
func (ps *PubSub) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := ps.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis.PubSub.Publish: %w", err)
	}
	return nil
}

// Subscribe returns the payloads published on channel in publish order. The
// channel closes when ctx is done or Redis drops the subscription; cleanup
// unsubscribes and must be called once the caller stops reading.
func (ps *PubSub) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	sub := ps.client.Subscribe(ctx, channel)

	// Wait for subscription confirmation.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis.PubSub.Subscribe: receive confirmation: %w", err)
	}

	out := make(chan []byte, subscriberBuffer)
	redisCh := sub.Channel()

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-redisCh:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	cleanup := func() {
		_ = sub.Close()
	}

	return out, cleanup, nil
}

// Client exposes the underlying connection so the canvas and cooldown stores
// share it.
func (ps *PubSub) Client() *redis.Client {
	return ps.client
}
