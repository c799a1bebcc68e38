package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/pixelboard/internal/config"
	"github.com/gosuda/pixelboard/internal/server"
	"github.com/gosuda/pixelboard/internal/store/memory"
	redisstore "github.com/gosuda/pixelboard/internal/store/redis"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// Initialize structured logging from environment.
	logLevel := os.Getenv("PIXELBOARD_LOG_LEVEL")
	level, parseErr := zerolog.ParseLevel(logLevel)
	if parseErr != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logFormat := os.Getenv("PIXELBOARD_LOG_FORMAT")
	if logFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	backend, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	// Create HTTP server with all routes wired.
	srv := server.New(ctx, cfg, backend)

	// Start server in background goroutine.
	go func() {
		log.Info().Str("addr", cfg.Dev.Addr).Msg("starting dev server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
			cancel()
		}
	}()

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	log.Info().Msg("stopped")
	return nil
}

// openBackend connects to Redis when configured and otherwise keeps all
// state in process.
func openBackend(ctx context.Context, cfg *config.Config) (server.Backend, func(), error) {
	if cfg.Redis.Addr == "" {
		canvas, err := memory.NewCanvas(cfg.Dev.Dimension)
		if err != nil {
			return server.Backend{}, nil, err
		}
		log.Info().Msg("using in-process board state")
		return server.Backend{
			Canvas:    canvas,
			Cooldowns: memory.NewCooldowns(),
			PubSub:    memory.NewBroker(),
		}, func() {}, nil
	}

	pubsub, err := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return server.Backend{}, nil, err
	}
	canvas, err := redisstore.NewCanvas(pubsub.Client(), cfg.Dev.Dimension)
	if err != nil {
		_ = pubsub.Close()
		return server.Backend{}, nil, err
	}
	log.Info().Str("addr", cfg.Redis.Addr).Msg("using redis board state")

	backend := server.Backend{
		Canvas:    canvas,
		Cooldowns: redisstore.NewCooldowns(pubsub.Client()),
		PubSub:    pubsub,
	}
	closeFn := func() {
		if err := pubsub.Close(); err != nil {
			log.Warn().Err(err).Msg("close redis")
		}
	}
	return backend, closeFn, nil
}
