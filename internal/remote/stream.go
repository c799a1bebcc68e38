package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/pixelboard/internal/domain"
)

const (
	defaultPingInterval = 2 * time.Second
	defaultPingMessage  = "ping"
	defaultBuffer       = 256
	pingWriteTimeout    = 5 * time.Second
	maxMessageSize      = 4096
)

// StreamOptions configures the push channel. Zero values take defaults.
type StreamOptions struct {
	// PingInterval is how often the liveness probe is sent.
	PingInterval time.Duration
	// PingMessage is the probe text.
	PingMessage string
	// Buffer is the capacity of the Updates channel.
	Buffer int
	// HTTPClient is used for the upgrade handshake.
	HTTPClient *http.Client
}

func (o *StreamOptions) withDefaults() {
	if o.PingInterval <= 0 {
		o.PingInterval = defaultPingInterval
	}
	if o.PingMessage == "" {
		o.PingMessage = defaultPingMessage
	}
	if o.Buffer <= 0 {
		o.Buffer = defaultBuffer
	}
}

// Stream is a live push channel. Updates are delivered on a single channel in
// the order the backend sent them. Nothing is buffered across a disconnect,
// so a new Stream must be followed by a fresh snapshot fetch.
type Stream struct {
	conn    *websocket.Conn
	updates chan domain.PixelUpdate
	done    chan struct{}
	cancel  context.CancelFunc

	closeOnce sync.Once
	closing   atomic.Bool
	mu        sync.Mutex
	err       error
}

// Dial opens the push channel at url and starts the keepalive and read loops.
// The stream stops when ctx is cancelled, Close is called, or the connection
// fails.
func Dial(ctx context.Context, url string, opts StreamOptions) (*Stream, error) {
	opts.withDefaults()

	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPClient: opts.HTTPClient})
	if err != nil {
		return nil, fmt.Errorf("remote.Dial: %w: %w", domain.ErrNetwork, err)
	}
	conn.SetReadLimit(maxMessageSize)

	streamCtx, cancel := context.WithCancel(ctx)
	s := &Stream{
		conn:    conn,
		updates: make(chan domain.PixelUpdate, opts.Buffer),
		done:    make(chan struct{}),
		cancel:  cancel,
	}

	go s.keepalive(streamCtx, opts.PingInterval, opts.PingMessage)
	go s.readLoop(streamCtx)

	return s, nil
}

// Updates returns the receive side of the update queue. It is closed when the
// stream ends; Err then reports why.
func (s *Stream) Updates() <-chan domain.PixelUpdate {
	return s.updates
}

// Done is closed once the read loop has exited.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that ended the stream, or nil for a clean close.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close shuts the connection down and waits for the read loop to exit.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.closing.Store(true)
		_ = s.conn.Close(websocket.StatusNormalClosure, "client closing")
		s.cancel()
	})
	<-s.done
	return nil
}

func (s *Stream) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *Stream) keepalive(ctx context.Context, interval time.Duration, msg string) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			writeCtx, cancel := context.WithTimeout(ctx, pingWriteTimeout)
			err := s.conn.Write(writeCtx, websocket.MessageText, []byte(msg))
			cancel()
			if err != nil {
				if ctx.Err() == nil {
					log.Debug().Err(err).Msg("remote: ping failed")
				}
				return
			}
		}
	}
}

func (s *Stream) readLoop(ctx context.Context) {
	defer close(s.done)
	defer close(s.updates)
	defer s.cancel()

	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			if !s.closing.Load() && !isCleanClose(ctx, err) {
				s.setErr(fmt.Errorf("remote.Stream: %w: %w", domain.ErrNetwork, err))
			}
			return
		}

		u, err := domain.ParsePixelUpdate(data)
		if err != nil {
			log.Warn().Err(err).Bytes("payload", truncate(data, 128)).Msg("remote: dropped malformed update")
			continue
		}

		select {
		case s.updates <- u:
		case <-ctx.Done():
			return
		}
	}
}

func isCleanClose(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return errors.Is(err, context.Canceled)
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
