// Package render paints a board onto a raster surface at a given scale.
package render

import (
	"fmt"
	"image"
	"io"
	"math"

	"github.com/gogpu/gg"

	"github.com/gosuda/pixelboard/internal/domain"
)

const (
	gridColor = "#d3d3d3"
	gridWidth = 0.5

	// Below this scale cell borders would swamp the fill color.
	minGridScale = 2.0
)

// Surface is the drawing target. *gg.Context satisfies it.
type Surface interface {
	Resize(width, height int) error
	Clear()
	SetHexColor(hex string)
	SetLineWidth(width float64)
	DrawRectangle(x, y, w, h float64)
	Fill() error
	Stroke() error
	Image() image.Image
}

// Source is the read-only view of a board the renderer needs.
type Source interface {
	Dimension() int
	ColorAt(x, y int) (domain.Color, error)
}

// Renderer paints every cell of a Source as a filled, thin-bordered square.
// It is not safe for concurrent use.
type Renderer struct {
	surface Surface
	source  Source
	scale   float64
}

// New wraps an existing surface.
func New(surface Surface, source Source, scale float64) *Renderer {
	return &Renderer{surface: surface, source: source, scale: scale}
}

// NewSoftware returns a renderer backed by a gg software rasterizer sized for
// the source at the given scale.
func NewSoftware(source Source, scale float64) *Renderer {
	w, h := SurfaceSize(source.Dimension(), scale)
	return New(gg.NewContext(w, h), source, scale)
}

// SurfaceSize is the pixel size of the output for a board of the given
// dimension drawn at scale. It is never smaller than 1x1.
func SurfaceSize(dimension int, scale float64) (int, int) {
	side := int(math.Ceil(float64(dimension) * scale))
	if side < 1 {
		side = 1
	}
	return side, side
}

// Scale returns the pixels-per-cell factor.
func (r *Renderer) Scale() float64 { return r.scale }

// SetScale changes the pixels-per-cell factor. The surface keeps its old
// contents until the next FullRedraw.
func (r *Renderer) SetScale(scale float64) { r.scale = scale }

// SetSource points the renderer at a different board. Call FullRedraw after.
func (r *Renderer) SetSource(source Source) { r.source = source }

// Image returns the current surface contents.
func (r *Renderer) Image() image.Image { return r.surface.Image() }

// FullRedraw resizes the surface to match the board and scale, clears it and
// paints every cell in row-major order.
func (r *Renderer) FullRedraw() error {
	d := r.source.Dimension()
	w, h := SurfaceSize(d, r.scale)
	if err := r.surface.Resize(w, h); err != nil {
		return fmt.Errorf("render.Renderer.FullRedraw: %w", err)
	}
	r.surface.Clear()

	for y := 0; y < d; y++ {
		for x := 0; x < d; x++ {
			if err := r.paint(x, y); err != nil {
				return fmt.Errorf("render.Renderer.FullRedraw: %w", err)
			}
		}
	}
	return nil
}

// RedrawCell repaints the single cell at (x, y) from the board's current color.
func (r *Renderer) RedrawCell(x, y int) error {
	if err := r.paint(x, y); err != nil {
		return fmt.Errorf("render.Renderer.RedrawCell: %w", err)
	}
	return nil
}

func (r *Renderer) paint(x, y int) error {
	color, err := r.source.ColorAt(x, y)
	if err != nil {
		return err
	}

	px, py, side := float64(x)*r.scale, float64(y)*r.scale, r.scale

	r.surface.SetHexColor(string(color))
	r.surface.DrawRectangle(px, py, side, side)
	if err := r.surface.Fill(); err != nil {
		return err
	}

	if r.scale < minGridScale {
		return nil
	}
	r.surface.SetHexColor(gridColor)
	r.surface.SetLineWidth(gridWidth)
	r.surface.DrawRectangle(px, py, side, side)
	return r.surface.Stroke()
}

// Close releases the surface if it holds resources.
func (r *Renderer) Close() error {
	if c, ok := r.surface.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
