package v1

import (
	"context"
	"time"

	"github.com/gosuda/pixelboard/internal/domain"
)

// Canvas abstracts board storage for handler testing.
// *memory.Canvas and *redis.Canvas satisfy this interface.
type Canvas interface {
	Dimension() int
	Snapshot(ctx context.Context) (*domain.Snapshot, error)
	Write(ctx context.Context, req domain.WriteRequest) (domain.PixelUpdate, error)
	Pixel(ctx context.Context, x, y int) (*domain.PixelInfo, error)
}

// Cooldowns abstracts the per-user write cooldown.
// *memory.Cooldowns and *redis.Cooldowns satisfy this interface.
type Cooldowns interface {
	Remaining(ctx context.Context, user string) (time.Duration, error)
	Acquire(ctx context.Context, user string, d time.Duration) (time.Duration, error)
	Release(ctx context.Context, user string) error
}

// Publisher broadcasts accepted writes to push-channel subscribers.
// *ws.Hub satisfies this interface.
type Publisher interface {
	Publish(ctx context.Context, payload []byte) error
}
