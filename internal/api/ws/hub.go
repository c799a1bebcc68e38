package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// PubSub is the fan-out the hub relays from. *redis.PubSub and
// *memory.Broker satisfy this interface.
type PubSub interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}

// Hub relays one pub/sub channel to every connected WebSocket client.
type Hub struct {
	pubsub         PubSub
	channel        string
	originPatterns []string
}

// NewHub creates a hub relaying channel. originPatterns is passed to
// websocket.Accept; "*" accepts any origin.
func NewHub(pubsub PubSub, channel string, originPatterns []string) *Hub {
	return &Hub{pubsub: pubsub, channel: channel, originPatterns: originPatterns}
}

// ServeUpdates streams every message published on the hub channel to the
// client as a text frame. Inbound frames are liveness probes and are
// discarded.
func (h *Hub) ServeUpdates(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	logger := log.With().Str("conn", uuid.NewString()).Str("remote", r.RemoteAddr).Logger()
	logger.Debug().Msg("websocket connected")

	messages, cleanup, err := h.pubsub.Subscribe(ctx, h.channel)
	if err != nil {
		logger.Error().Err(err).Msg("websocket subscribe")
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer cleanup()

	go func() {
		defer cancel()
		for {
			if _, _, readErr := conn.Read(ctx); readErr != nil {
				if websocket.CloseStatus(readErr) == -1 && !errors.Is(readErr, context.Canceled) {
					logger.Debug().Err(readErr).Msg("websocket read")
				}
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			logger.Debug().Msg("websocket disconnected")
			return
		case msg, msgOK := <-messages:
			if !msgOK {
				_ = conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}
			if writeErr := conn.Write(ctx, websocket.MessageText, msg); writeErr != nil {
				logger.Debug().Err(writeErr).Msg("websocket write")
				return
			}
		}
	}
}

// Publish sends a payload on the hub channel. API handlers call it after
// accepting a write.
func (h *Hub) Publish(ctx context.Context, payload []byte) error {
	if err := h.pubsub.Publish(ctx, h.channel, payload); err != nil {
		return fmt.Errorf("ws.Hub.Publish: %w", err)
	}
	return nil
}
