package v1_test

import (
	"context"
	"sync"
	"time"

	"github.com/gosuda/pixelboard/internal/domain"
)

// ---------------------------------------------------------------------------
// Mock Canvas
// ---------------------------------------------------------------------------

type mockCanvas struct {
	dimension    int
	snapshotFunc func(ctx context.Context) (*domain.Snapshot, error)
	writeFunc    func(ctx context.Context, req domain.WriteRequest) (domain.PixelUpdate, error)
	pixelFunc    func(ctx context.Context, x, y int) (*domain.PixelInfo, error)
}

func (m *mockCanvas) Dimension() int { return m.dimension }

func (m *mockCanvas) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	return m.snapshotFunc(ctx)
}

func (m *mockCanvas) Write(ctx context.Context, req domain.WriteRequest) (domain.PixelUpdate, error) {
	return m.writeFunc(ctx, req)
}

func (m *mockCanvas) Pixel(ctx context.Context, x, y int) (*domain.PixelInfo, error) {
	return m.pixelFunc(ctx, x, y)
}

// echoWrite returns a writeFunc that accepts every request.
func echoWrite(_ context.Context, req domain.WriteRequest) (domain.PixelUpdate, error) {
	return domain.PixelUpdate{X: req.X, Y: req.Y, Color: req.Col}, nil
}

// ---------------------------------------------------------------------------
// Mock Cooldowns
// ---------------------------------------------------------------------------

type mockCooldowns struct {
	remainingFunc func(ctx context.Context, user string) (time.Duration, error)
	acquireFunc   func(ctx context.Context, user string, d time.Duration) (time.Duration, error)
	releaseFunc   func(ctx context.Context, user string) error
}

func (m *mockCooldowns) Remaining(ctx context.Context, user string) (time.Duration, error) {
	return m.remainingFunc(ctx, user)
}

func (m *mockCooldowns) Acquire(ctx context.Context, user string, d time.Duration) (time.Duration, error) {
	return m.acquireFunc(ctx, user, d)
}

func (m *mockCooldowns) Release(ctx context.Context, user string) error {
	return m.releaseFunc(ctx, user)
}

func freeCooldowns() *mockCooldowns {
	return &mockCooldowns{
		remainingFunc: func(context.Context, string) (time.Duration, error) { return 0, nil },
		acquireFunc:   func(context.Context, string, time.Duration) (time.Duration, error) { return 0, nil },
		releaseFunc:   func(context.Context, string) error { return nil },
	}
}

// ---------------------------------------------------------------------------
// Mock Publisher
// ---------------------------------------------------------------------------

type mockPublisher struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
}

func (m *mockPublisher) Publish(_ context.Context, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads = append(m.payloads, payload)
	return m.err
}

func (m *mockPublisher) published() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.payloads...)
}
