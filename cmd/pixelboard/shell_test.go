package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/pixelboard/internal/domain"
	"github.com/gosuda/pixelboard/internal/session"
	"github.com/gosuda/pixelboard/internal/viewport"
)

type fakeSession struct {
	mu     sync.Mutex
	inputs []session.Input
	view   session.View
	lookup session.LookupResult
}

func (f *fakeSession) Send(_ context.Context, in session.Input) error {
	f.mu.Lock()
	f.inputs = append(f.inputs, in)
	f.mu.Unlock()

	switch msg := in.(type) {
	case session.SelectColor:
		if !domain.DefaultPalette().Valid(msg.Code) {
			msg.Reply <- domain.ErrUnknownColorCode
			return nil
		}
		msg.Reply <- nil
	case session.Lookup:
		msg.Reply <- f.lookup
	case session.Export:
		_, err := msg.W.Write([]byte("png"))
		msg.Reply <- err
	}
	return nil
}

func (f *fakeSession) Inspect(context.Context) (session.View, error) {
	return f.view, nil
}

func (f *fakeSession) sent() []session.Input {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]session.Input(nil), f.inputs...)
}

func TestParseInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line string
		want session.Input
	}{
		{line: "down 10 20", want: session.PointerDown{P: viewport.Point{X: 10, Y: 20}}},
		{line: "move 1.5 -2", want: session.PointerMove{P: viewport.Point{X: 1.5, Y: -2}}},
		{line: "up 0 0", want: session.PointerUp{P: viewport.Point{}}},
		{line: "pinch 0 0 30 40", want: session.Pinch{A: viewport.Point{}, B: viewport.Point{X: 30, Y: 40}}},
		{line: "scroll -100", want: session.Scroll{DeltaY: -100}},
		{line: "zoom +", want: session.Zoom{Delta: viewport.ButtonStep}},
		{line: "zoom -", want: session.Zoom{Delta: -viewport.ButtonStep}},
		{line: "place 3 4", want: session.Place{X: 3, Y: 4}},
		{line: "resync", want: session.Resync{}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			t.Parallel()

			got, err := parseInput(strings.Fields(tt.line))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseInput_Errors(t *testing.T) {
	t.Parallel()

	tests := []string{
		"down 1",
		"move a b",
		"pinch 1 2 3",
		"scroll",
		"zoom 2",
		"place 1.5 2",
		"place 1",
	}

	for _, line := range tests {
		t.Run(line, func(t *testing.T) {
			t.Parallel()

			_, err := parseInput(strings.Fields(line))
			require.ErrorIs(t, err, errUsage)
		})
	}

	t.Run("unknown command", func(t *testing.T) {
		t.Parallel()

		_, err := parseInput([]string{"paint"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown command")
	})
}

func TestParseColor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		arg     string
		want    domain.Code
		wantErr bool
	}{
		{arg: "0", want: 0},
		{arg: "15", want: 15},
		{arg: "#000000", want: 1},
		{arg: "#FFFFFF", want: 0},
		{arg: "#123456", wantErr: true},
		{arg: "x", wantErr: true},
		{arg: "256", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			t.Parallel()

			got, err := parseColor(tt.arg)
			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrUnknownColorCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShell_Exec(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("forwards inputs", func(t *testing.T) {
		t.Parallel()

		fs := &fakeSession{}
		sh := &shell{session: fs, out: &bytes.Buffer{}}

		quit, err := sh.exec(ctx, "place 1 2\n")
		require.NoError(t, err)
		assert.False(t, quit)
		assert.Equal(t, []session.Input{session.Place{X: 1, Y: 2}}, fs.sent())
	})

	t.Run("blank line is ignored", func(t *testing.T) {
		t.Parallel()

		fs := &fakeSession{}
		sh := &shell{session: fs, out: &bytes.Buffer{}}

		quit, err := sh.exec(ctx, "   \n")
		require.NoError(t, err)
		assert.False(t, quit)
		assert.Empty(t, fs.sent())
	})

	t.Run("quit", func(t *testing.T) {
		t.Parallel()

		sh := &shell{session: &fakeSession{}, out: &bytes.Buffer{}}
		quit, err := sh.exec(ctx, "quit")
		require.NoError(t, err)
		assert.True(t, quit)
	})

	t.Run("color rejected by session", func(t *testing.T) {
		t.Parallel()

		sh := &shell{session: &fakeSession{}, out: &bytes.Buffer{}}
		_, err := sh.exec(ctx, "color 15")
		require.NoError(t, err)

		_, err = sh.exec(ctx, "color 16")
		require.ErrorIs(t, err, domain.ErrUnknownColorCode)
	})

	t.Run("info prints owner", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		fs := &fakeSession{lookup: session.LookupResult{Info: &domain.PixelInfo{X: 3, Y: 4, Col: 1, User: "ada"}}}
		sh := &shell{session: fs, out: &out}

		_, err := sh.exec(ctx, "info 3 4")
		require.NoError(t, err)
		assert.Equal(t, "(3,4) color 1 #000000 by ada\n", out.String())
	})

	t.Run("info surfaces lookup error", func(t *testing.T) {
		t.Parallel()

		fs := &fakeSession{lookup: session.LookupResult{Err: domain.ErrNetwork}}
		sh := &shell{session: fs, out: &bytes.Buffer{}}

		_, err := sh.exec(ctx, "info 3 4")
		require.ErrorIs(t, err, domain.ErrNetwork)
	})

	t.Run("status", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		fs := &fakeSession{view: session.View{User: "ada", Dimension: 4, Zoom: 10, Connected: true, Snapshots: 2, WritesSent: 1}}
		sh := &shell{session: fs, out: &out}

		_, err := sh.exec(ctx, "status")
		require.NoError(t, err)
		assert.Contains(t, out.String(), "user ada  board 4x4")
		assert.Contains(t, out.String(), "connected true  snapshots 2 (last never)")
		assert.Contains(t, out.String(), "writes sent 1")
	})

	t.Run("save writes file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "board.png")
		fs := &fakeSession{}
		sh := &shell{session: fs, out: &bytes.Buffer{}}

		_, err := sh.exec(ctx, "save "+path+" 256")
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "png", string(data))

		sent := fs.sent()
		require.Len(t, sent, 1)
		export, ok := sent[0].(session.Export)
		require.True(t, ok)
		assert.Equal(t, 256, export.MaxSide)
	})

	t.Run("save usage", func(t *testing.T) {
		t.Parallel()

		sh := &shell{session: &fakeSession{}, out: &bytes.Buffer{}}
		_, err := sh.exec(ctx, "save")
		require.ErrorIs(t, err, errUsage)

		_, err = sh.exec(ctx, "save out.png zero")
		require.ErrorIs(t, err, errUsage)
	})
}

func TestAwait_Timeout(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := await(ctx, make(chan error))
	require.True(t, errors.Is(err, context.Canceled))
}
