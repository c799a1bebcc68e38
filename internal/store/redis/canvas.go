package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/gosuda/pixelboard/internal/board"
	"github.com/gosuda/pixelboard/internal/domain"
)

const (
	// BitfieldKey holds the packed board: bits 4i..4i+3 are cell i in
	// row-major order, most significant bit first, so GET returns the
	// snapshot payload as is.
	BitfieldKey = "BoardBitfield"
	pixelPrefix = "pixel:"
	cellBits    = 4
)

// Canvas stores the board in a Redis bitfield and the last writer of each
// cell in a hash.
type Canvas struct {
	client    *redis.Client
	dimension int
}

func NewCanvas(client *redis.Client, dimension int) (*Canvas, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("redis.NewCanvas: %w: %d", domain.ErrInvalidDimension, dimension)
	}
	return &Canvas{client: client, dimension: dimension}, nil
}

// PixelKey returns the hash key holding the last write to cell (x, y).
func PixelKey(x, y int) string {
	return pixelPrefix + strconv.Itoa(x) + ":" + strconv.Itoa(y)
}

func (c *Canvas) Dimension() int {
	return c.dimension
}

// Snapshot reads the bitfield. A missing or short value is padded with
// zero bytes, which decode as the default color.
func (c *Canvas) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	raw, err := c.client.Get(ctx, BitfieldKey).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis.Canvas.Snapshot: %w", err)
	}

	want := board.PackedLen(c.dimension)
	pixels := make([]byte, want)
	copy(pixels, raw)

	return &domain.Snapshot{Pixels: pixels, Width: c.dimension, Height: c.dimension}, nil
}

func (c *Canvas) Write(ctx context.Context, req domain.WriteRequest) (domain.PixelUpdate, error) {
	if err := c.check(req.X, req.Y); err != nil {
		return domain.PixelUpdate{}, fmt.Errorf("redis.Canvas.Write: %w", err)
	}
	if !domain.DefaultPalette().Valid(req.Col) {
		return domain.PixelUpdate{}, fmt.Errorf("redis.Canvas.Write: %w: %d", domain.ErrUnknownColorCode, req.Col)
	}

	// Same layout as BITFIELD SET u4 #i: bit 0 is the MSB of byte 0.
	first := int64(req.Y*c.dimension+req.X) * cellBits
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for bit := range int64(cellBits) {
			p.SetBit(ctx, BitfieldKey, first+bit, int(req.Col>>(cellBits-1-bit))&1)
		}
		p.HSet(ctx, PixelKey(req.X, req.Y), "col", int(req.Col), "user", req.User)
		return nil
	})
	if err != nil {
		return domain.PixelUpdate{}, fmt.Errorf("redis.Canvas.Write: %w", err)
	}

	return domain.PixelUpdate{X: req.X, Y: req.Y, Color: req.Col}, nil
}

func (c *Canvas) Pixel(ctx context.Context, x, y int) (*domain.PixelInfo, error) {
	if err := c.check(x, y); err != nil {
		return nil, fmt.Errorf("redis.Canvas.Pixel: %w", err)
	}

	vals, err := c.client.HGetAll(ctx, PixelKey(x, y)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis.Canvas.Pixel: %w", err)
	}

	info := &domain.PixelInfo{X: x, Y: y, User: vals["user"]}
	if col, ok := vals["col"]; ok {
		n, err := strconv.Atoi(col)
		if err != nil {
			return nil, fmt.Errorf("redis.Canvas.Pixel: parse col: %w", err)
		}
		info.Col = domain.Code(n)
	}
	return info, nil
}

func (c *Canvas) check(x, y int) error {
	if x < 0 || y < 0 || x >= c.dimension || y >= c.dimension {
		return fmt.Errorf("%w: (%d,%d) on %d", domain.ErrOutOfBounds, x, y, c.dimension)
	}
	return nil
}
