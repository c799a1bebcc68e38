package domain

import "strings"

// Code is a palette index. On the wire it occupies one nibble.
type Code uint8

// Color is a display color in "#rrggbb" form.
type Color string

// MaxPaletteSize is the number of codes a nibble can address.
const MaxPaletteSize = 16

// DefaultCode is the background every cell starts with (white).
const DefaultCode Code = 0

// Palette maps codes 0..N-1 to display colors.
type Palette []Color

var defaultPalette = Palette{ //nolint:gochecknoglobals // fixed process-wide table
	"#ffffff", // white
	"#000000", // black
	"#2450a4", // blue
	"#00a368", // green
	"#be0039", // red
	"#ffa800", // orange
	"#ffff00", // yellow
	"#6d482f", // brown
	"#811e9f", // purple
	"#b44ac0", // pink
	"#7eed56", // light green
	"#3690ea", // light blue
	"#be0049", // light red
	"#ffd631", // light yellow
	"#6d001a", // maroon
	"#e4abff", // violet
}

// DefaultPalette returns a copy of the shared 16-color table.
func DefaultPalette() Palette {
	p := make(Palette, len(defaultPalette))
	copy(p, defaultPalette)
	return p
}

// Color returns the display color for c.
func (p Palette) Color(c Code) (Color, bool) {
	if int(c) >= len(p) {
		return "", false
	}
	return p[c], true
}

// Valid reports whether c is a key of the palette.
func (p Palette) Valid(c Code) bool {
	return int(c) < len(p)
}

// Lookup finds the code for a display color. Matching ignores case.
func (p Palette) Lookup(color Color) (Code, bool) {
	for i, c := range p {
		if strings.EqualFold(string(c), string(color)) {
			return Code(i), true
		}
	}
	return 0, false
}
