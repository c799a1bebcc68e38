package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/pixelboard/internal/config"
	"github.com/gosuda/pixelboard/internal/identity"
	"github.com/gosuda/pixelboard/internal/remote"
	"github.com/gosuda/pixelboard/internal/session"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("pixelboard failed")
	}
}

func run() error {
	// Logs go to stderr; stdout carries command output.
	level, parseErr := zerolog.ParseLevel(os.Getenv("PIXELBOARD_LOG_LEVEL"))
	if parseErr != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if os.Getenv("PIXELBOARD_LOG_FORMAT") == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	client := remote.NewClient(cfg.API.BaseURL, cfg.API.HTTPTimeout)
	dial := session.RemoteDialer(cfg.API.WSURL, remote.StreamOptions{PingInterval: cfg.Sync.PingInterval})

	s, err := session.New(client, dial, session.Options{
		Dimension:      cfg.Board.Dimension,
		Zoom:           cfg.Board.PixelScale,
		ResyncInterval: cfg.Sync.ResyncInterval,
		Reconnect:      cfg.Sync.Reconnect,
		ReconnectDelay: cfg.Sync.ReconnectDelay,
		WriteRate:      cfg.Write.Rate,
		WriteBurst:     cfg.Write.Burst,
	})
	if err != nil {
		return err
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, ready) }()

	path := cfg.Identity.File
	if path == "" {
		if path, err = identity.DefaultPath(); err != nil {
			return err
		}
	}

	in := bufio.NewReader(os.Stdin)
	user, err := identity.NewStore(path).Resolve(cfg.Identity.User, in, os.Stderr)
	if err != nil {
		return err
	}
	if err := s.Send(ctx, session.Identify{User: user}); err != nil {
		return nil
	}
	close(ready)
	log.Info().Str("user", user).Str("api", cfg.API.BaseURL).Msg("pixelboard ready")

	lines := make(chan string)
	go readLines(ctx, in, lines)

	repl := &shell{session: s, out: os.Stdout}
	for {
		select {
		case <-ctx.Done():
			return <-done
		case err := <-done:
			return err
		case line, ok := <-lines:
			if !ok {
				cancel()
				return <-done
			}
			quit, cmdErr := repl.exec(ctx, line)
			if cmdErr != nil {
				fmt.Fprintln(os.Stdout, "error:", cmdErr)
			}
			if quit {
				cancel()
				return <-done
			}
		}
	}
}

func readLines(ctx context.Context, in *bufio.Reader, out chan<- string) {
	defer close(out)
	for {
		line, err := in.ReadString('\n')
		if line != "" {
			select {
			case out <- line:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Error().Err(err).Msg("read stdin")
			}
			return
		}
	}
}
