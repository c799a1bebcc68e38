package domain

import (
	"encoding/json"
	"fmt"
)

// PixelUpdate is one authoritative cell change pushed by the backend.
type PixelUpdate struct {
	X     int  `json:"x"`
	Y     int  `json:"y"`
	Color Code `json:"color"`
}

// WriteRequest proposes a cell change. The backend decides whether it becomes a PixelUpdate.
type WriteRequest struct {
	X    int    `json:"X"`
	Y    int    `json:"Y"`
	Col  Code   `json:"Col"`
	User string `json:"User"`
}

// UserStateRequest asks for the remaining cooldown of a user.
type UserStateRequest struct {
	User string `json:"User"`
}

// PixelQuery addresses one cell for an owner lookup.
type PixelQuery struct {
	X int `json:"X"`
	Y int `json:"Y"`
}

// PixelInfo describes the last accepted write to a cell.
type PixelInfo struct {
	X    int    `json:"pixel_x"`
	Y    int    `json:"pixel_y"`
	Col  Code   `json:"col"`
	User string `json:"user"`
}

// Snapshot is the full-board payload: two codes per byte, high nibble first, row-major.
// Width and Height are zero when the transport did not report them.
type Snapshot struct {
	Pixels []byte `json:"Pixels"`
	Width  int    `json:"Width"`
	Height int    `json:"Height"`
}

type rawPixelUpdate struct {
	X     *int `json:"x"`
	Y     *int `json:"y"`
	Color *int `json:"color"`
}

// ParsePixelUpdate decodes one push-channel message. All three fields are required.
func ParsePixelUpdate(data []byte) (PixelUpdate, error) {
	var raw rawPixelUpdate
	if err := json.Unmarshal(data, &raw); err != nil {
		return PixelUpdate{}, fmt.Errorf("%w: %w", ErrMalformedUpdate, err)
	}
	if raw.X == nil || raw.Y == nil || raw.Color == nil {
		return PixelUpdate{}, fmt.Errorf("%w: missing field in %q", ErrMalformedUpdate, data)
	}
	if *raw.Color < 0 || *raw.Color >= MaxPaletteSize {
		return PixelUpdate{}, fmt.Errorf("%w: color %d", ErrUnknownColorCode, *raw.Color)
	}
	return PixelUpdate{X: *raw.X, Y: *raw.Y, Color: Code(*raw.Color)}, nil
}
