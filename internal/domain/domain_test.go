package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/pixelboard/internal/domain"
)

// ---------------------------------------------------------------------------
// 1. Palette lookups.
// ---------------------------------------------------------------------------

func TestDefaultPalette(t *testing.T) {
	t.Parallel()

	p := domain.DefaultPalette()
	require.Len(t, p, domain.MaxPaletteSize)

	white, ok := p.Color(domain.DefaultCode)
	require.True(t, ok)
	assert.Equal(t, domain.Color("#ffffff"), white)

	violet, ok := p.Color(15)
	require.True(t, ok)
	assert.Equal(t, domain.Color("#e4abff"), violet)

	_, ok = p.Color(16)
	assert.False(t, ok)
}

func TestDefaultPalette_ReturnsCopy(t *testing.T) {
	t.Parallel()

	p := domain.DefaultPalette()
	p[0] = "#123456"

	again := domain.DefaultPalette()
	assert.Equal(t, domain.Color("#ffffff"), again[0])
}

func TestPalette_Lookup(t *testing.T) {
	t.Parallel()

	p := domain.DefaultPalette()

	tests := []struct {
		name  string
		color domain.Color
		want  domain.Code
		found bool
	}{
		{name: "black", color: "#000000", want: 1, found: true},
		{name: "case insensitive", color: "#FFFF00", want: 6, found: true},
		{name: "last entry", color: "#e4abff", want: 15, found: true},
		{name: "missing", color: "#010203", found: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, ok := p.Lookup(tc.color)
			assert.Equal(t, tc.found, ok)
			if tc.found {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestPalette_Valid(t *testing.T) {
	t.Parallel()

	small := domain.Palette{"#ffffff", "#000000"}
	assert.True(t, small.Valid(0))
	assert.True(t, small.Valid(1))
	assert.False(t, small.Valid(2))
}

// ---------------------------------------------------------------------------
// 2. Push-channel message parsing.
// ---------------------------------------------------------------------------

func TestParsePixelUpdate(t *testing.T) {
	t.Parallel()

	t.Run("valid message", func(t *testing.T) {
		t.Parallel()

		got, err := domain.ParsePixelUpdate([]byte(`{"x":5,"y":7,"color":3}`))
		require.NoError(t, err)
		assert.Equal(t, domain.PixelUpdate{X: 5, Y: 7, Color: 3}, got)
	})

	t.Run("extra fields ignored", func(t *testing.T) {
		t.Parallel()

		got, err := domain.ParsePixelUpdate([]byte(`{"x":0,"y":0,"color":0,"user":"bob"}`))
		require.NoError(t, err)
		assert.Equal(t, domain.PixelUpdate{}, got)
	})

	malformed := []struct {
		name string
		data string
	}{
		{name: "not json", data: `ping`},
		{name: "missing color", data: `{"x":1,"y":2}`},
		{name: "missing x", data: `{"y":2,"color":1}`},
		{name: "wrong type", data: `{"x":"a","y":2,"color":1}`},
		{name: "empty object", data: `{}`},
	}
	for _, tc := range malformed {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := domain.ParsePixelUpdate([]byte(tc.data))
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrMalformedUpdate)
		})
	}

	t.Run("color outside nibble range", func(t *testing.T) {
		t.Parallel()

		_, err := domain.ParsePixelUpdate([]byte(`{"x":1,"y":2,"color":16}`))
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrUnknownColorCode)
	})
}
