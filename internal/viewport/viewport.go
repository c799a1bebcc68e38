package viewport

import "math"

const (
	// ScrollSensitivity converts wheel delta to zoom delta.
	ScrollSensitivity = 0.01
	// ButtonStep is the zoom delta of a single zoom-in or zoom-out control.
	ButtonStep = 100 * ScrollSensitivity
	// ClickSlop is how far in screen pixels the pointer may travel between
	// down and up and still count as a click rather than a pan.
	ClickSlop = 3.0
)

// State is the gesture the viewport is currently tracking.
type State int

const (
	Idle State = iota
	Dragging
	Pinching
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Pinching:
		return "pinching"
	default:
		return "unknown"
	}
}

// Viewport holds the pan offset (in cells) and zoom level (pixels per cell).
// The zero value is not usable; call New.
type Viewport struct {
	offset    Point
	zoom      float64
	committed float64 // zoom at the end of the last gesture, base for pinch

	state  State
	anchor Point
	downAt Point
	travel float64

	pinchBase float64
}

// New returns an idle viewport at the given zoom, clamped to the valid range.
func New(zoom float64) *Viewport {
	z := ClampZoom(zoom)
	return &Viewport{zoom: z, committed: z}
}

// Zoom returns the current pixels-per-cell scale.
func (v *Viewport) Zoom() float64 { return v.zoom }

// Offset returns the pan offset in cell units.
func (v *Viewport) Offset() Point { return v.offset }

// State returns the active gesture.
func (v *Viewport) State() State { return v.state }

// Bounds is where a board of the given dimension sits on screen.
func (v *Viewport) Bounds(dimension int) Rect {
	side := float64(dimension) * v.zoom
	return Rect{
		Left:   v.offset.X * v.zoom,
		Top:    v.offset.Y * v.zoom,
		Width:  side,
		Height: side,
	}
}

// CellAt maps a pointer to a cell on a board of the given dimension. ok is
// false when the pointer is outside the board.
func (v *Viewport) CellAt(p Point, dimension int) (Cell, bool) {
	c := PointerToCell(p, v.Bounds(dimension), v.zoom)
	ok := c.X >= 0 && c.X < dimension && c.Y >= 0 && c.Y < dimension
	return c, ok
}

// PointerDown starts a drag anchored at p.
func (v *Viewport) PointerDown(p Point) {
	v.state = Dragging
	v.anchor = Point{X: p.X/v.zoom - v.offset.X, Y: p.Y/v.zoom - v.offset.Y}
	v.downAt = p
	v.travel = 0
}

// PointerMove pans while dragging. It reports whether the offset changed.
func (v *Viewport) PointerMove(p Point) bool {
	if v.state != Dragging {
		return false
	}
	v.travel = math.Max(v.travel, math.Sqrt(squaredDistance(p, v.downAt)))

	next := Point{X: p.X/v.zoom - v.anchor.X, Y: p.Y/v.zoom - v.anchor.Y}
	if next == v.offset {
		return false
	}
	v.offset = next
	return true
}

// PointerUp ends any gesture and resets the pinch baseline. It reports whether
// the gesture was a click: a drag that never left the ClickSlop radius.
func (v *Viewport) PointerUp(p Point) bool {
	click := false
	if v.state == Dragging {
		v.travel = math.Max(v.travel, math.Sqrt(squaredDistance(p, v.downAt)))
		click = v.travel <= ClickSlop
	}
	v.state = Idle
	v.pinchBase = 0
	v.committed = v.zoom
	return click
}

// Pinch handles one frame of a two-point gesture. The first frame records the
// baseline; later frames scale the committed zoom by the ratio of squared
// distances. Any drag in progress is abandoned. It reports whether zoom changed.
func (v *Viewport) Pinch(a, b Point) bool {
	if v.state != Pinching {
		v.state = Pinching
		v.pinchBase = 0
	}

	d := squaredDistance(a, b)
	if v.pinchBase == 0 {
		v.pinchBase = d
		return false
	}
	return v.setZoom(ClampZoom(v.committed * d / v.pinchBase))
}

// AdjustZoom changes zoom by delta relative to the current level.
func (v *Viewport) AdjustZoom(delta float64) bool {
	changed := v.setZoom(ClampZoom(v.zoom + delta))
	if v.state != Pinching {
		v.committed = v.zoom
	}
	return changed
}

// Scroll zooms in for negative wheel deltas and out for positive ones.
func (v *Viewport) Scroll(deltaY float64) bool {
	return v.AdjustZoom(-deltaY * ScrollSensitivity)
}

func (v *Viewport) setZoom(z float64) bool {
	if z == v.zoom {
		return false
	}
	v.zoom = z
	return true
}
