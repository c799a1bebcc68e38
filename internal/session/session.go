// Package session drives one client session: it owns the board, viewport and
// renderer and serializes every mutation onto a single goroutine.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/gosuda/pixelboard/internal/board"
	"github.com/gosuda/pixelboard/internal/domain"
	"github.com/gosuda/pixelboard/internal/remote"
	"github.com/gosuda/pixelboard/internal/render"
	"github.com/gosuda/pixelboard/internal/viewport"
)

// Backend is the request/response side of the remote authority.
type Backend interface {
	FetchSnapshot(ctx context.Context) (*domain.Snapshot, error)
	WritePixel(ctx context.Context, w domain.WriteRequest) error
	UserCooldown(ctx context.Context, user string) (time.Duration, error)
	PixelInfo(ctx context.Context, x, y int) (*domain.PixelInfo, error)
}

// Stream is a live push channel.
type Stream interface {
	Updates() <-chan domain.PixelUpdate
	Err() error
	Close() error
}

// Dialer opens a push channel.
type Dialer func(ctx context.Context) (Stream, error)

// RemoteDialer dials the websocket push channel at url.
func RemoteDialer(url string, opts remote.StreamOptions) Dialer {
	return func(ctx context.Context) (Stream, error) {
		s, err := remote.Dial(ctx, url, opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// Options configures a Session.
type Options struct {
	User           string
	Dimension      int
	Zoom           float64
	ResyncInterval time.Duration
	Reconnect      bool
	ReconnectDelay time.Duration
	WriteRate      float64
	WriteBurst     int
	// Surface is the render target; nil uses a gg software context.
	Surface render.Surface
}

const (
	inboxSize = 64

	// Snapshots that change at most this many cells are repainted cell by cell.
	incrementalRedrawLimit = 4096
)

type fetchResult struct {
	snap *domain.Snapshot
	err  error
}

type writeResult struct {
	req domain.WriteRequest
	err error
}

// Session is the explicit context that replaces process-wide board, renderer
// and socket globals. Everything below the inbox is owned by Run's goroutine.
type Session struct {
	id      uuid.UUID
	opts    Options
	backend Backend
	dial    Dialer
	inbox   chan Input
	logger  zerolog.Logger
	limiter *rate.Limiter

	board    *board.Board
	view     *viewport.Viewport
	renderer *render.Renderer
	color    domain.Code

	stream    Stream
	updates   <-chan domain.PixelUpdate
	connected bool
	retry     *time.Timer
	retryC    <-chan time.Time

	fetches chan fetchResult
	writes  chan writeResult

	stats View
}

// New builds a session with a default-initialized board. Nothing touches the
// network until Run.
func New(backend Backend, dial Dialer, opts Options) (*Session, error) {
	if opts.ResyncInterval <= 0 {
		return nil, fmt.Errorf("session.New: resync interval must be positive, got %s", opts.ResyncInterval)
	}
	if opts.WriteRate <= 0 {
		opts.WriteRate = 1
	}
	if opts.WriteBurst < 1 {
		opts.WriteBurst = 1
	}

	b, err := board.New(opts.Dimension)
	if err != nil {
		return nil, fmt.Errorf("session.New: %w", err)
	}

	view := viewport.New(opts.Zoom)
	var r *render.Renderer
	if opts.Surface != nil {
		r = render.New(opts.Surface, b, view.Zoom())
	} else {
		r = render.NewSoftware(b, view.Zoom())
	}

	id := uuid.New()
	return &Session{
		id:       id,
		opts:     opts,
		backend:  backend,
		dial:     dial,
		inbox:    make(chan Input, inboxSize),
		logger:   log.With().Str("session", id.String()).Str("user", opts.User).Logger(),
		limiter:  rate.NewLimiter(rate.Limit(opts.WriteRate), opts.WriteBurst),
		board:    b,
		view:     view,
		renderer: r,
		color:    1,
		fetches:  make(chan fetchResult, 4),
		writes:   make(chan writeResult, 4),
	}, nil
}

// ID identifies the session in logs.
func (s *Session) ID() uuid.UUID { return s.id }

// Inbox accepts inputs for the loop.
func (s *Session) Inbox() chan<- Input { return s.inbox }

// Send queues an input, giving up when ctx ends.
func (s *Session) Send(ctx context.Context, in Input) error {
	select {
	case s.inbox <- in:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Inspect returns a copy of the current state through the loop.
func (s *Session) Inspect(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := s.Send(ctx, Inspect{Reply: reply}); err != nil {
		return View{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

// Run waits for ready, connects the push channel, fetches the first snapshot
// and then processes events until ctx is cancelled. Inputs sent before ready
// is closed are queued, not dropped.
func (s *Session) Run(ctx context.Context, ready <-chan struct{}) error {
	select {
	case <-ready:
	case <-ctx.Done():
		return nil
	}

	s.logger.Info().Int("dimension", s.board.Dimension()).Float64("zoom", s.view.Zoom()).Msg("session starting")

	if err := s.renderer.FullRedraw(); err != nil {
		s.logger.Error().Err(err).Msg("initial redraw failed")
	}
	s.connect(ctx)
	s.startFetch(ctx)

	ticker := time.NewTicker(s.opts.ResyncInterval)
	defer ticker.Stop()
	defer s.disconnect()
	defer func() { _ = s.renderer.Close() }()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("session stopped")
			return nil

		case <-ticker.C:
			s.startFetch(ctx)

		case res := <-s.fetches:
			s.applySnapshot(res)

		case u, ok := <-s.updates:
			if !ok {
				s.onDisconnect()
				continue
			}
			s.applyUpdate(u)

		case res := <-s.writes:
			s.onWriteResult(res)

		case <-s.retryC:
			s.retry, s.retryC = nil, nil
			if s.connect(ctx) {
				// Updates were not buffered while away.
				s.startFetch(ctx)
			}

		case in := <-s.inbox:
			s.handle(ctx, in)
		}
	}
}

func (s *Session) handle(ctx context.Context, in Input) {
	switch msg := in.(type) {
	case PointerDown:
		s.view.PointerDown(msg.P)

	case PointerMove:
		s.view.PointerMove(msg.P)

	case PointerUp:
		if !s.view.PointerUp(msg.P) {
			return
		}
		cell, ok := s.view.CellAt(msg.P, s.board.Dimension())
		if !ok {
			s.logger.Debug().Int("x", cell.X).Int("y", cell.Y).Msg("click outside board")
			return
		}
		s.place(ctx, cell.X, cell.Y)

	case Pinch:
		if s.view.Pinch(msg.A, msg.B) {
			s.rescale()
		}

	case Scroll:
		if s.view.Scroll(msg.DeltaY) {
			s.rescale()
		}

	case Zoom:
		if s.view.AdjustZoom(msg.Delta) {
			s.rescale()
		}

	case SelectColor:
		var err error
		if s.board.Palette().Valid(msg.Code) {
			s.color = msg.Code
		} else {
			err = fmt.Errorf("session.SelectColor: %w: %d", domain.ErrUnknownColorCode, msg.Code)
		}
		reply(msg.Reply, err)

	case Place:
		s.place(ctx, msg.X, msg.Y)

	case Resync:
		s.startFetch(ctx)

	case Export:
		reply(msg.Reply, s.renderer.WritePNG(msg.W, msg.MaxSide))

	case Lookup:
		go func() {
			info, err := s.backend.PixelInfo(ctx, msg.X, msg.Y)
			select {
			case msg.Reply <- LookupResult{Info: info, Err: err}:
			case <-ctx.Done():
			}
		}()

	case Identify:
		s.opts.User = msg.User
		s.logger = log.With().Str("session", s.id.String()).Str("user", msg.User).Logger()

	case Inspect:
		reply(msg.Reply, s.snapshotView())
	}
}

func reply[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
	}
}

// rescale follows a zoom change: new cell size means a new surface size.
func (s *Session) rescale() {
	s.renderer.SetScale(s.view.Zoom())
	if err := s.renderer.FullRedraw(); err != nil {
		s.logger.Error().Err(err).Msg("redraw after zoom failed")
		return
	}
	s.stats.Redraws++
}

func (s *Session) startFetch(ctx context.Context) {
	go func() {
		snap, err := s.backend.FetchSnapshot(ctx)
		select {
		case s.fetches <- fetchResult{snap: snap, err: err}:
		case <-ctx.Done():
		}
	}()
}

// applySnapshot runs for every completed fetch in completion order, so the
// last one to finish is the one that sticks.
func (s *Session) applySnapshot(res fetchResult) {
	if res.err != nil {
		s.logger.Warn().Err(res.err).Msg("snapshot fetch failed")
		return
	}
	snap := res.snap

	resized := false
	if snap.Width != 0 || snap.Height != 0 {
		if snap.Width != snap.Height {
			s.logger.Error().Int("width", snap.Width).Int("height", snap.Height).Msg("non-square snapshot rejected")
			return
		}
		if snap.Width != s.board.Dimension() {
			if s.stats.Snapshots > 0 {
				s.logger.Error().Int("dimension", snap.Width).Int("board", s.board.Dimension()).
					Msg("snapshot dimension changed mid-session, rejected")
				return
			}
			b, err := board.New(snap.Width, board.WithPalette(s.board.Palette()))
			if err != nil {
				s.logger.Error().Err(err).Msg("snapshot dimension rejected")
				return
			}
			prev := s.board
			s.board = b
			if _, err := s.board.DecodeSnapshot(snap.Pixels); err != nil {
				s.board = prev
				s.logger.Warn().Err(err).Msg("snapshot decode failed")
				return
			}
			s.renderer.SetSource(s.board)
			resized = true
		}
	}

	if !resized {
		before := s.board.Cells()
		changed, err := s.board.DecodeSnapshot(snap.Pixels)
		if err != nil {
			s.logger.Warn().Err(err).Int("bytes", len(snap.Pixels)).Msg("snapshot decode failed")
			return
		}
		s.repaint(before, changed)
	} else if err := s.renderer.FullRedraw(); err != nil {
		s.logger.Error().Err(err).Msg("redraw after resize failed")
	} else {
		s.stats.Redraws++
	}

	s.stats.Snapshots++
	s.stats.LastSnapshot = time.Now()
	s.logger.Debug().Int("snapshots", s.stats.Snapshots).Msg("snapshot applied")
}

func (s *Session) repaint(before []domain.Code, changed int) {
	switch {
	case changed == 0:
		return
	case changed > incrementalRedrawLimit:
		if err := s.renderer.FullRedraw(); err != nil {
			s.logger.Error().Err(err).Msg("redraw after snapshot failed")
			return
		}
		s.stats.Redraws++
		return
	}

	d := s.board.Dimension()
	after := s.board.Cells()
	for i := range after {
		if after[i] == before[i] {
			continue
		}
		if err := s.renderer.RedrawCell(i%d, i/d); err != nil {
			s.logger.Error().Err(err).Msg("cell redraw failed")
			return
		}
	}
}

func (s *Session) applyUpdate(u domain.PixelUpdate) {
	if err := s.board.ApplyUpdate(u); err != nil {
		s.stats.Dropped++
		s.logger.Warn().Err(err).Int("x", u.X).Int("y", u.Y).Uint8("color", uint8(u.Color)).Msg("update dropped")
		return
	}
	s.stats.Updates++
	if err := s.renderer.RedrawCell(u.X, u.Y); err != nil {
		s.logger.Error().Err(err).Msg("cell redraw failed")
	}
}

// place sends a write for (x, y). The board is not touched; the change
// arrives later as a pushed update.
func (s *Session) place(ctx context.Context, x, y int) {
	if !s.board.InBounds(x, y) {
		s.logger.Warn().Int("x", x).Int("y", y).Msg("write outside board ignored")
		return
	}
	if s.opts.User == "" {
		s.logger.Warn().Err(domain.ErrNoIdentity).Int("x", x).Int("y", y).Msg("write without identity ignored")
		return
	}
	if !s.limiter.Allow() {
		s.logger.Warn().Int("x", x).Int("y", y).Msg("write throttled")
		return
	}

	req := domain.WriteRequest{X: x, Y: y, Col: s.color, User: s.opts.User}
	s.stats.WritesSent++

	go func() {
		err := s.write(ctx, req)
		select {
		case s.writes <- writeResult{req: req, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (s *Session) write(ctx context.Context, req domain.WriteRequest) error {
	wait, err := s.backend.UserCooldown(ctx, req.User)
	if err != nil {
		return fmt.Errorf("session.write: %w", err)
	}
	if wait > 0 {
		return fmt.Errorf("session.write: %w: %s remaining", domain.ErrCooldown, wait.Round(time.Second))
	}
	if err := s.backend.WritePixel(ctx, req); err != nil {
		return fmt.Errorf("session.write: %w", err)
	}
	return nil
}

func (s *Session) onWriteResult(res writeResult) {
	if res.err != nil {
		s.stats.WritesRejected++
		s.logger.Warn().Err(res.err).
			Bool("cooldown", errors.Is(res.err, domain.ErrCooldown)).
			Int("x", res.req.X).Int("y", res.req.Y).
			Msg("write rejected")
		return
	}
	s.stats.WritesAccepted++
	s.logger.Info().Int("x", res.req.X).Int("y", res.req.Y).Uint8("color", uint8(res.req.Col)).Msg("write accepted")
}

func (s *Session) connect(ctx context.Context) bool {
	stream, err := s.dial(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("push channel dial failed")
		s.scheduleReconnect()
		return false
	}
	s.stream = stream
	s.updates = stream.Updates()
	s.connected = true
	s.logger.Info().Msg("push channel connected")
	return true
}

func (s *Session) onDisconnect() {
	err := s.stream.Err()
	s.disconnect()
	s.logger.Warn().Err(err).Bool("reconnect", s.opts.Reconnect).Msg("push channel closed")
	s.scheduleReconnect()
}

func (s *Session) disconnect() {
	if s.stream != nil {
		_ = s.stream.Close()
	}
	s.stream, s.updates, s.connected = nil, nil, false
	if s.retry != nil {
		s.retry.Stop()
		s.retry, s.retryC = nil, nil
	}
}

func (s *Session) scheduleReconnect() {
	if !s.opts.Reconnect || s.retry != nil {
		return
	}
	s.retry = time.NewTimer(s.opts.ReconnectDelay)
	s.retryC = s.retry.C
}

func (s *Session) snapshotView() View {
	v := s.stats
	v.ID = s.id
	v.User = s.opts.User
	v.Dimension = s.board.Dimension()
	v.Cells = s.board.Cells()
	v.Color = s.color
	v.Zoom = s.view.Zoom()
	v.Offset = s.view.Offset()
	v.State = s.view.State()
	v.Connected = s.connected
	return v
}
