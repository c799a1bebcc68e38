// Package board holds the client-side model of the shared pixel grid.
//
// A Board is mutated only by a full snapshot decode or a single-cell update.
// It is not safe for concurrent use; the session loop owns it.
package board

import (
	"fmt"

	"github.com/gosuda/pixelboard/internal/domain"
)

// Board is a dimension x dimension grid of palette codes, indexed y*dimension+x.
type Board struct {
	dimension int
	palette   domain.Palette
	cells     []domain.Code
}

// Option configures a Board at construction.
type Option func(*Board)

// WithPalette replaces the default 16-color palette. Palettes longer than
// domain.MaxPaletteSize are truncated because a nibble cannot address them.
func WithPalette(p domain.Palette) Option {
	return func(b *Board) {
		if len(p) > domain.MaxPaletteSize {
			p = p[:domain.MaxPaletteSize]
		}
		b.palette = p
	}
}

// New allocates a board with every cell set to domain.DefaultCode.
func New(dimension int, opts ...Option) (*Board, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("board.New: %w: %d", domain.ErrInvalidDimension, dimension)
	}

	b := &Board{
		dimension: dimension,
		palette:   domain.DefaultPalette(),
		cells:     make([]domain.Code, dimension*dimension),
	}
	for _, opt := range opts {
		opt(b)
	}
	if len(b.palette) == 0 {
		return nil, fmt.Errorf("board.New: %w: empty palette", domain.ErrUnknownColorCode)
	}
	return b, nil
}

// Dimension returns the side length of the grid.
func (b *Board) Dimension() int {
	return b.dimension
}

// Palette returns the color mapping used by this board.
func (b *Board) Palette() domain.Palette {
	return b.palette
}

// InBounds reports whether (x, y) addresses a cell.
func (b *Board) InBounds(x, y int) bool {
	return x >= 0 && x < b.dimension && y >= 0 && y < b.dimension
}

// CodeAt returns the palette code stored at (x, y).
func (b *Board) CodeAt(x, y int) (domain.Code, error) {
	if !b.InBounds(x, y) {
		return 0, fmt.Errorf("board.Board.CodeAt: %w: (%d,%d)", domain.ErrOutOfBounds, x, y)
	}
	return b.cells[y*b.dimension+x], nil
}

// ColorAt returns the display color of the cell at (x, y).
func (b *Board) ColorAt(x, y int) (domain.Color, error) {
	code, err := b.CodeAt(x, y)
	if err != nil {
		return "", fmt.Errorf("board.Board.ColorAt: %w", err)
	}
	color, _ := b.palette.Color(code)
	return color, nil
}

// Cells returns a copy of the cell sequence in row-major order.
func (b *Board) Cells() []domain.Code {
	out := make([]domain.Code, len(b.cells))
	copy(out, b.cells)
	return out
}

// ApplyUpdate overwrites exactly one cell. Out-of-range coordinates and unknown
// codes are rejected and leave the board untouched.
func (b *Board) ApplyUpdate(u domain.PixelUpdate) error {
	if !b.InBounds(u.X, u.Y) {
		return fmt.Errorf("board.Board.ApplyUpdate: %w: (%d,%d) on %dx%d",
			domain.ErrOutOfBounds, u.X, u.Y, b.dimension, b.dimension)
	}
	if !b.palette.Valid(u.Color) {
		return fmt.Errorf("board.Board.ApplyUpdate: %w: %d", domain.ErrUnknownColorCode, u.Color)
	}
	b.cells[u.Y*b.dimension+u.X] = u.Color
	return nil
}
