package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gosuda/pixelboard/internal/domain"
	"github.com/gosuda/pixelboard/internal/session"
	"github.com/gosuda/pixelboard/internal/viewport"
)

const (
	replyTimeout  = 15 * time.Second
	defaultMaxPNG = 4096
)

var errUsage = errors.New("usage")

const helpText = `commands:
  down sx sy | move sx sy | up sx sy   pointer events in screen pixels
  pinch ax ay bx by                    two-finger pinch
  scroll dy                            wheel delta
  zoom + | zoom -                      zoom buttons
  color n | color #rrggbb              select palette color
  place x y                            write the selected color at a cell
  resync                               fetch a fresh snapshot
  info x y                             who last wrote a cell
  status                               session state
  save file [maxSide]                  export the canvas as PNG
  quit`

// sessionClient is the part of *session.Session the shell drives.
type sessionClient interface {
	Send(ctx context.Context, in session.Input) error
	Inspect(ctx context.Context) (session.View, error)
}

type shell struct {
	session sessionClient
	out     io.Writer
}

// exec runs one command line. It reports whether the shell should exit.
func (sh *shell) exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	switch fields[0] {
	case "quit", "exit":
		return true, nil
	case "help":
		fmt.Fprintln(sh.out, helpText)
		return false, nil
	case "status":
		return false, sh.status(ctx)
	case "info":
		return false, sh.info(ctx, fields[1:])
	case "save":
		return false, sh.save(ctx, fields[1:])
	case "color":
		return false, sh.color(ctx, fields[1:])
	}

	in, err := parseInput(fields)
	if err != nil {
		return false, err
	}
	return false, sh.session.Send(ctx, in)
}

// parseInput maps fire-and-forget commands to session inputs.
func parseInput(fields []string) (session.Input, error) {
	args := fields[1:]
	switch fields[0] {
	case "down", "move", "up":
		p, err := parsePoint(args)
		if err != nil {
			return nil, fmt.Errorf("%w: %s sx sy", errUsage, fields[0])
		}
		switch fields[0] {
		case "down":
			return session.PointerDown{P: p}, nil
		case "move":
			return session.PointerMove{P: p}, nil
		default:
			return session.PointerUp{P: p}, nil
		}
	case "pinch":
		if len(args) != 4 {
			return nil, fmt.Errorf("%w: pinch ax ay bx by", errUsage)
		}
		a, errA := parsePoint(args[:2])
		b, errB := parsePoint(args[2:])
		if errA != nil || errB != nil {
			return nil, fmt.Errorf("%w: pinch ax ay bx by", errUsage)
		}
		return session.Pinch{A: a, B: b}, nil
	case "scroll":
		dy, err := parseFloats(args, 1)
		if err != nil {
			return nil, fmt.Errorf("%w: scroll dy", errUsage)
		}
		return session.Scroll{DeltaY: dy[0]}, nil
	case "zoom":
		if len(args) != 1 || (args[0] != "+" && args[0] != "-") {
			return nil, fmt.Errorf("%w: zoom + | zoom -", errUsage)
		}
		if args[0] == "+" {
			return session.Zoom{Delta: viewport.ButtonStep}, nil
		}
		return session.Zoom{Delta: -viewport.ButtonStep}, nil
	case "place":
		x, y, err := parseCell(args)
		if err != nil {
			return nil, fmt.Errorf("%w: place x y", errUsage)
		}
		return session.Place{X: x, Y: y}, nil
	case "resync":
		return session.Resync{}, nil
	}
	return nil, fmt.Errorf("unknown command %q, try help", fields[0])
}

// parseColor accepts a palette index or a "#rrggbb" palette color.
func parseColor(arg string) (domain.Code, error) {
	if strings.HasPrefix(arg, "#") {
		code, ok := domain.DefaultPalette().Lookup(domain.Color(strings.ToLower(arg)))
		if !ok {
			return 0, fmt.Errorf("%w: %s", domain.ErrUnknownColorCode, arg)
		}
		return code, nil
	}
	n, err := strconv.ParseUint(arg, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", domain.ErrUnknownColorCode, arg)
	}
	return domain.Code(n), nil
}

func parsePoint(args []string) (viewport.Point, error) {
	v, err := parseFloats(args, 2)
	if err != nil {
		return viewport.Point{}, err
	}
	return viewport.Point{X: v[0], Y: v[1]}, nil
}

func parseCell(args []string) (int, int, error) {
	if len(args) != 2 {
		return 0, 0, errUsage
	}
	x, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, err
	}
	y, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func parseFloats(args []string, n int) ([]float64, error) {
	if len(args) != n {
		return nil, errUsage
	}
	out := make([]float64, n)
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (sh *shell) color(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: color n | color #rrggbb", errUsage)
	}
	code, err := parseColor(args[0])
	if err != nil {
		return err
	}
	reply := make(chan error, 1)
	if err := sh.session.Send(ctx, session.SelectColor{Code: code, Reply: reply}); err != nil {
		return err
	}
	return await(ctx, reply)
}

func (sh *shell) info(ctx context.Context, args []string) error {
	x, y, err := parseCell(args)
	if err != nil {
		return fmt.Errorf("%w: info x y", errUsage)
	}
	reply := make(chan session.LookupResult, 1)
	if err := sh.session.Send(ctx, session.Lookup{X: x, Y: y, Reply: reply}); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()
	select {
	case res := <-reply:
		if res.Err != nil {
			return res.Err
		}
		user := res.Info.User
		if user == "" {
			user = "-"
		}
		color, _ := domain.DefaultPalette().Color(res.Info.Col)
		fmt.Fprintf(sh.out, "(%d,%d) color %d %s by %s\n", res.Info.X, res.Info.Y, res.Info.Col, color, user)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (sh *shell) status(ctx context.Context) error {
	v, err := sh.session.Inspect(ctx)
	if err != nil {
		return err
	}
	last := "never"
	if !v.LastSnapshot.IsZero() {
		last = v.LastSnapshot.Format(time.RFC3339)
	}
	fmt.Fprintf(sh.out, "user %s  board %dx%d  color %d\n", v.User, v.Dimension, v.Dimension, v.Color)
	fmt.Fprintf(sh.out, "zoom %.2f  offset (%.1f,%.1f)  %s\n", v.Zoom, v.Offset.X, v.Offset.Y, v.State)
	fmt.Fprintf(sh.out, "connected %t  snapshots %d (last %s)  updates %d  dropped %d  redraws %d\n",
		v.Connected, v.Snapshots, last, v.Updates, v.Dropped, v.Redraws)
	fmt.Fprintf(sh.out, "writes sent %d  accepted %d  rejected %d\n", v.WritesSent, v.WritesAccepted, v.WritesRejected)
	return nil
}

func (sh *shell) save(ctx context.Context, args []string) (err error) {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: save file [maxSide]", errUsage)
	}
	maxSide := defaultMaxPNG
	if len(args) == 2 {
		if maxSide, err = strconv.Atoi(args[1]); err != nil || maxSide < 1 {
			return fmt.Errorf("%w: save file [maxSide]", errUsage)
		}
	}

	f, err := os.Create(args[0])
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()

	reply := make(chan error, 1)
	if err := sh.session.Send(ctx, session.Export{W: f, MaxSide: maxSide, Reply: reply}); err != nil {
		return err
	}
	if err := await(ctx, reply); err != nil {
		return err
	}
	fmt.Fprintln(sh.out, "saved", args[0])
	return nil
}

func await(ctx context.Context, reply <-chan error) error {
	ctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
