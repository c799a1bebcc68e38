// Package memory keeps dev server state in process: the canvas, per-user
// cooldowns and update fan-out.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/gosuda/pixelboard/internal/board"
	"github.com/gosuda/pixelboard/internal/domain"
)

// Canvas is a mutex-guarded board with last-writer bookkeeping.
type Canvas struct {
	mu     sync.RWMutex
	board  *board.Board
	owners map[int]string
}

func NewCanvas(dimension int) (*Canvas, error) {
	b, err := board.New(dimension)
	if err != nil {
		return nil, fmt.Errorf("memory.NewCanvas: %w", err)
	}
	return &Canvas{board: b, owners: make(map[int]string)}, nil
}

func (c *Canvas) Dimension() int {
	return c.board.Dimension()
}

func (c *Canvas) Snapshot(_ context.Context) (*domain.Snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d := c.board.Dimension()
	return &domain.Snapshot{Pixels: c.board.Encode(), Width: d, Height: d}, nil
}

// Write applies req unconditionally (last write wins) and returns the
// update to broadcast.
func (c *Canvas) Write(_ context.Context, req domain.WriteRequest) (domain.PixelUpdate, error) {
	u := domain.PixelUpdate{X: req.X, Y: req.Y, Color: req.Col}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.board.ApplyUpdate(u); err != nil {
		return domain.PixelUpdate{}, fmt.Errorf("memory.Canvas.Write: %w", err)
	}
	c.owners[req.Y*c.board.Dimension()+req.X] = req.User
	return u, nil
}

// Pixel reports the current code of a cell and who last wrote it. User is
// empty for cells nobody has written.
func (c *Canvas) Pixel(_ context.Context, x, y int) (*domain.PixelInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	code, err := c.board.CodeAt(x, y)
	if err != nil {
		return nil, fmt.Errorf("memory.Canvas.Pixel: %w", err)
	}
	return &domain.PixelInfo{
		X:    x,
		Y:    y,
		Col:  code,
		User: c.owners[y*c.board.Dimension()+x],
	}, nil
}
