package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	v1 "github.com/gosuda/pixelboard/internal/api/v1"
	"github.com/gosuda/pixelboard/internal/api/ws"
	"github.com/gosuda/pixelboard/internal/config"
	"github.com/gosuda/pixelboard/internal/server/middleware"
	redisstore "github.com/gosuda/pixelboard/internal/store/redis"
)

// Backend is the state behind the dev server. The in-process stores and the
// Redis stores are interchangeable.
type Backend struct {
	Canvas    v1.Canvas
	Cooldowns v1.Cooldowns
	PubSub    ws.PubSub
}

// Server is the HTTP server that wires all application routes and middleware.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	wsHub      *ws.Hub
	cfg        *config.Config
}

// New creates a Server with all routes wired. ctx bounds background
// middleware work such as limiter cleanup.
func New(ctx context.Context, cfg *config.Config, backend Backend) *Server {
	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.Dev.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}).Handler)

	hub := ws.NewHub(backend.PubSub, redisstore.BoardUpdateChannel, cfg.Dev.CORSOrigins)

	s := &Server{
		router: router,
		wsHub:  hub,
		cfg:    cfg,
		httpServer: &http.Server{
			Addr:         cfg.Dev.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Dev.ReadTimeout,
			WriteTimeout: cfg.Dev.WriteTimeout,
		},
	}

	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(ctx, cfg.Dev.Rate, cfg.Dev.Burst))

		apiConfig := huma.DefaultConfig("Pixelboard API", "1.0.0")
		apiConfig.Servers = []*huma.Server{
			{URL: "/api"},
		}
		api := humachi.New(r, apiConfig)
		registerAPIRoutes(api, backend, hub, cfg)
	})

	// WebSocket push channel.
	router.Route("/ws", func(r chi.Router) {
		registerWSRoutes(r, hub)
	})

	// Health check.
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	log.Info().
		Int("dimension", backend.Canvas.Dimension()).
		Dur("cooldown", cfg.Dev.Cooldown).
		Msg("dev server routes registered")

	return s
}

// Handler exposes the router, mainly for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
