package memory

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

const subscriberBuffer = 64

// Broker fans published payloads out to every subscriber of a channel.
// Subscribers that fall behind lose messages rather than block publishers.
type Broker struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]chan []byte
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[int]chan []byte)}
}

func (b *Broker) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs[channel] {
		msg := append([]byte(nil), payload...)
		select {
		case ch <- msg:
		default:
			log.Warn().Str("channel", channel).Int("subscriber", id).Msg("subscriber lagging, message dropped")
		}
	}
	return nil
}

// Subscribe registers a subscriber. The returned channel closes when ctx is
// done or cleanup is called.
func (b *Broker) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	ch := make(chan []byte, subscriberBuffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[int]chan []byte)
	}
	b.subs[channel][id] = ch
	b.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			close(done)
			b.mu.Lock()
			delete(b.subs[channel], id)
			if len(b.subs[channel]) == 0 {
				delete(b.subs, channel)
			}
			b.mu.Unlock()
			close(ch)
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			cleanup()
		case <-done:
		}
	}()

	return ch, cleanup, nil
}

// Subscribers reports how many subscribers a channel has.
func (b *Broker) Subscribers(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[channel])
}
