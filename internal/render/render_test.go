package render_test

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/pixelboard/internal/board"
	"github.com/gosuda/pixelboard/internal/domain"
	"github.com/gosuda/pixelboard/internal/render"
)

// recordingSurface logs every drawing call so tests can assert geometry
// without rasterizing.
type recordingSurface struct {
	width, height int
	calls         []string
	rects         []rectCall
	color         string
	resizeErr     error
}

type rectCall struct {
	x, y, w, h float64
	color      string
}

func (s *recordingSurface) Resize(w, h int) error {
	if s.resizeErr != nil {
		return s.resizeErr
	}
	s.width, s.height = w, h
	s.calls = append(s.calls, fmt.Sprintf("resize %dx%d", w, h))
	return nil
}

func (s *recordingSurface) Clear() { s.calls = append(s.calls, "clear") }

func (s *recordingSurface) SetHexColor(hex string) { s.color = hex }

func (s *recordingSurface) SetLineWidth(float64) {}

func (s *recordingSurface) DrawRectangle(x, y, w, h float64) {
	s.rects = append(s.rects, rectCall{x: x, y: y, w: w, h: h, color: s.color})
}

func (s *recordingSurface) Fill() error {
	s.calls = append(s.calls, "fill")
	return nil
}

func (s *recordingSurface) Stroke() error {
	s.calls = append(s.calls, "stroke")
	return nil
}

func (s *recordingSurface) Image() image.Image {
	return image.NewRGBA(image.Rect(0, 0, s.width, s.height))
}

func (s *recordingSurface) fills() []rectCall {
	var out []rectCall
	for _, r := range s.rects {
		if r.color != "#d3d3d3" {
			out = append(out, r)
		}
	}
	return out
}

func newBoard(t *testing.T, d int) *board.Board {
	t.Helper()
	b, err := board.New(d)
	require.NoError(t, err)
	return b
}

func TestSurfaceSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dimension int
		scale     float64
		want      int
	}{
		{1000, 10, 10000},
		{1000, 0.1, 100},
		{3, 1.5, 5},
		{1, 0.1, 1},
		{0, 10, 1},
	}
	for _, tt := range tests {
		w, h := render.SurfaceSize(tt.dimension, tt.scale)
		assert.Equalf(t, tt.want, w, "dimension %d scale %v", tt.dimension, tt.scale)
		assert.Equal(t, w, h)
	}
}

func TestFullRedraw_PaintsEveryCellRowMajor(t *testing.T) {
	t.Parallel()

	b := newBoard(t, 3)
	require.NoError(t, b.ApplyUpdate(domain.PixelUpdate{X: 2, Y: 1, Color: 4}))

	s := &recordingSurface{}
	r := render.New(s, b, 10)
	require.NoError(t, r.FullRedraw())

	assert.Equal(t, 30, s.width)
	assert.Equal(t, 30, s.height)
	require.GreaterOrEqual(t, len(s.calls), 2)
	assert.Equal(t, []string{"resize 30x30", "clear"}, s.calls[:2])

	fills := s.fills()
	require.Len(t, fills, 9)
	for i, f := range fills {
		x, y := i%3, i/3
		assert.Equal(t, float64(x*10), f.x)
		assert.Equal(t, float64(y*10), f.y)
		assert.Equal(t, 10.0, f.w)
		assert.Equal(t, 10.0, f.h)

		want, err := b.ColorAt(x, y)
		require.NoError(t, err)
		assert.Equal(t, string(want), f.color)
	}

	// One fill and one border per cell.
	assert.Len(t, s.rects, 18)
}

func TestFullRedraw_SkipsGridAtSmallScale(t *testing.T) {
	t.Parallel()

	s := &recordingSurface{}
	r := render.New(s, newBoard(t, 4), 1)
	require.NoError(t, r.FullRedraw())

	assert.Len(t, s.rects, 16)
	assert.NotContains(t, s.calls, "stroke")
}

func TestFullRedraw_FollowsScaleChanges(t *testing.T) {
	t.Parallel()

	s := &recordingSurface{}
	r := render.New(s, newBoard(t, 10), 10)
	require.NoError(t, r.FullRedraw())
	assert.Equal(t, 100, s.width)

	r.SetScale(2.5)
	assert.InDelta(t, 2.5, r.Scale(), 0)
	require.NoError(t, r.FullRedraw())
	assert.Equal(t, 25, s.width)
	assert.Equal(t, 25, s.height)
}

func TestFullRedraw_ResizeError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	r := render.New(&recordingSurface{resizeErr: boom}, newBoard(t, 2), 10)

	err := r.FullRedraw()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestRedrawCell_PaintsOnlyThatCell(t *testing.T) {
	t.Parallel()

	b := newBoard(t, 5)
	s := &recordingSurface{}
	r := render.New(s, b, 4)

	require.NoError(t, b.ApplyUpdate(domain.PixelUpdate{X: 3, Y: 2, Color: 2}))
	require.NoError(t, r.RedrawCell(3, 2))

	fills := s.fills()
	require.Len(t, fills, 1)
	assert.Equal(t, rectCall{x: 12, y: 8, w: 4, h: 4, color: "#2450a4"}, fills[0])
	assert.NotContains(t, s.calls, "clear")
}

func TestRedrawCell_OutOfBounds(t *testing.T) {
	t.Parallel()

	r := render.New(&recordingSurface{}, newBoard(t, 2), 10)
	err := r.RedrawCell(2, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrOutOfBounds)
}

func TestSetSource(t *testing.T) {
	t.Parallel()

	s := &recordingSurface{}
	r := render.New(s, newBoard(t, 2), 10)
	r.SetSource(newBoard(t, 4))
	require.NoError(t, r.FullRedraw())
	assert.Equal(t, 40, s.width)
}

// ---------------------------------------------------------------------------
// Rasterized output through gg
// ---------------------------------------------------------------------------

func assertNear(t *testing.T, want color.RGBA, got color.Color) {
	t.Helper()
	r, g, b, _ := got.RGBA()
	const tol = 8
	diff := func(a uint8, v uint32) int {
		d := int(a) - int(v>>8)
		if d < 0 {
			d = -d
		}
		return d
	}
	assert.LessOrEqualf(t, diff(want.R, r), tol, "red: want %v got %v", want, got)
	assert.LessOrEqualf(t, diff(want.G, g), tol, "green: want %v got %v", want, got)
	assert.LessOrEqualf(t, diff(want.B, b), tol, "blue: want %v got %v", want, got)
}

func TestSoftware_CellCentersHaveCellColor(t *testing.T) {
	t.Parallel()

	b := newBoard(t, 4)
	require.NoError(t, b.ApplyUpdate(domain.PixelUpdate{X: 1, Y: 0, Color: 1}))
	require.NoError(t, b.ApplyUpdate(domain.PixelUpdate{X: 3, Y: 3, Color: 4}))

	r := render.NewSoftware(b, 10)
	t.Cleanup(func() { _ = r.Close() })
	require.NoError(t, r.FullRedraw())

	img := r.Image()
	assert.Equal(t, image.Rect(0, 0, 40, 40), img.Bounds())

	assertNear(t, color.RGBA{R: 0xff, G: 0xff, B: 0xff}, img.At(5, 5))
	assertNear(t, color.RGBA{R: 0x00, G: 0x00, B: 0x00}, img.At(15, 5))
	assertNear(t, color.RGBA{R: 0xbe, G: 0x00, B: 0x39}, img.At(35, 35))

	// Incremental path: recolor one cell, neighbours untouched.
	require.NoError(t, b.ApplyUpdate(domain.PixelUpdate{X: 1, Y: 0, Color: 3}))
	require.NoError(t, r.RedrawCell(1, 0))

	img = r.Image()
	assertNear(t, color.RGBA{R: 0x00, G: 0xa3, B: 0x68}, img.At(15, 5))
	assertNear(t, color.RGBA{R: 0xff, G: 0xff, B: 0xff}, img.At(25, 5))
}

func TestWritePNG(t *testing.T) {
	t.Parallel()

	b := newBoard(t, 20)
	r := render.NewSoftware(b, 10)
	t.Cleanup(func() { _ = r.Close() })
	require.NoError(t, r.FullRedraw())

	t.Run("full size", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, r.WritePNG(&buf, 0))

		img, err := png.Decode(&buf)
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 200, 200), img.Bounds())
	})

	t.Run("downscaled", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, r.WritePNG(&buf, 50))

		img, err := png.Decode(&buf)
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 50, 50), img.Bounds())
	})
}

func TestDownscale_PreservesAspect(t *testing.T) {
	t.Parallel()

	src := image.NewRGBA(image.Rect(0, 0, 400, 100))
	out := render.Downscale(src, 100)
	assert.Equal(t, image.Rect(0, 0, 100, 25), out.Bounds())

	same := render.Downscale(src, 1000)
	assert.Same(t, src, same)
}
