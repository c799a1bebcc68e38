package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/gosuda/pixelboard/internal/api/v1"
	"github.com/gosuda/pixelboard/internal/api/ws"
	"github.com/gosuda/pixelboard/internal/config"
)

func registerAPIRoutes(api huma.API, backend Backend, hub *ws.Hub, cfg *config.Config) {
	v1.RegisterPixelRoutes(api, backend.Canvas, backend.Cooldowns, hub, cfg.Dev.Cooldown)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/", hub.ServeUpdates)
}
