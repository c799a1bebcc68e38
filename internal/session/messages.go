package session

import (
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/pixelboard/internal/domain"
	"github.com/gosuda/pixelboard/internal/viewport"
)

// Input is a message handled by the session loop.
type Input interface{ isInput() }

// PointerDown starts a drag or a click.
type PointerDown struct{ P viewport.Point }

// PointerMove pans while dragging.
type PointerMove struct{ P viewport.Point }

// PointerUp ends a gesture. A pointer that stayed within the click slop
// writes the selected color to the cell under it.
type PointerUp struct{ P viewport.Point }

// Pinch is one frame of a two-point gesture.
type Pinch struct{ A, B viewport.Point }

// Scroll is a wheel event; negative DeltaY zooms in.
type Scroll struct{ DeltaY float64 }

// Zoom changes zoom by a relative amount, as the zoom buttons do.
type Zoom struct{ Delta float64 }

// SelectColor picks the code used by subsequent writes.
type SelectColor struct {
	Code  domain.Code
	Reply chan error
}

// Place writes the selected color to a cell directly, bypassing the pointer.
type Place struct{ X, Y int }

// Resync requests an immediate snapshot fetch.
type Resync struct{}

// Export encodes the rendered board as PNG into W.
type Export struct {
	W       io.Writer
	MaxSide int
	Reply   chan error
}

// Lookup asks the backend who last wrote a cell.
type Lookup struct {
	X, Y  int
	Reply chan LookupResult
}

// LookupResult answers a Lookup.
type LookupResult struct {
	Info *domain.PixelInfo
	Err  error
}

// Identify sets the user that writes are attributed to.
type Identify struct{ User string }

// Inspect returns a consistent copy of the session state. Reply channels on
// every message must have room for one value; the loop does not wait.
type Inspect struct {
	Reply chan View
}

func (PointerDown) isInput() {}
func (PointerMove) isInput() {}
func (PointerUp) isInput()   {}
func (Pinch) isInput()       {}
func (Scroll) isInput()      {}
func (Zoom) isInput()        {}
func (SelectColor) isInput() {}
func (Place) isInput()       {}
func (Resync) isInput()      {}
func (Export) isInput()      {}
func (Lookup) isInput()      {}
func (Identify) isInput()    {}
func (Inspect) isInput()     {}

// View is a point-in-time copy of the session state.
type View struct {
	ID        uuid.UUID
	User      string
	Dimension int
	Cells     []domain.Code
	Color     domain.Code

	Zoom   float64
	Offset viewport.Point
	State  viewport.State

	Connected    bool
	Snapshots    int
	LastSnapshot time.Time
	Updates      int
	Dropped      int
	Redraws      int

	WritesSent     int
	WritesAccepted int
	WritesRejected int
}
