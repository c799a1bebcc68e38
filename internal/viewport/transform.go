// Package viewport maps between screen pointer positions and board cells and
// tracks the pan and zoom state driven by pointer gestures.
package viewport

import "math"

// Zoom limits in screen pixels per cell.
const (
	MinZoom = 0.1
	MaxZoom = 15.0
)

// Point is a position in screen pixels.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle in screen pixels.
type Rect struct {
	Left, Top, Width, Height float64
}

// Contains reports whether p lies inside r. The right and bottom edges are exclusive.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left && p.X < r.Left+r.Width && p.Y >= r.Top && p.Y < r.Top+r.Height
}

// Center returns the midpoint of r.
func (r Rect) Center() Point {
	return Point{X: r.Left + r.Width/2, Y: r.Top + r.Height/2}
}

// Cell is a grid coordinate. It is not necessarily inside any board.
type Cell struct {
	X, Y int
}

// PointerToCell converts a pointer position to the cell under it on a canvas
// placed at bounds and drawn at scale pixels per cell. The result must still
// be bounds-checked against the board.
func PointerToCell(p Point, bounds Rect, scale float64) Cell {
	return Cell{
		X: int(math.Floor((p.X - bounds.Left) / scale)),
		Y: int(math.Floor((p.Y - bounds.Top) / scale)),
	}
}

// CellRect is the screen rectangle painted for c. PointerToCell maps every
// point inside it back to c.
func CellRect(c Cell, bounds Rect, scale float64) Rect {
	return Rect{
		Left:   bounds.Left + float64(c.X)*scale,
		Top:    bounds.Top + float64(c.Y)*scale,
		Width:  scale,
		Height: scale,
	}
}

// ClampZoom limits v to [MinZoom, MaxZoom]. NaN collapses to MinZoom.
func ClampZoom(v float64) float64 {
	switch {
	case math.IsNaN(v), v < MinZoom:
		return MinZoom
	case v > MaxZoom:
		return MaxZoom
	default:
		return v
	}
}

func squaredDistance(a, b Point) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx + dy*dy
}
