package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type RouterConfig struct {
	Service ScheduleService
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Calendar data endpoints the widget polls on navigation
	r.Route("/activities/{id}", func(r chi.Router) {
		r.Get("/unavailable-dates", unavailableDatesHandler(cfg.Service))
		r.Get("/business-hours", businessHoursHandler(cfg.Service))
		r.Get("/display-bounds", displayBoundsHandler(cfg.Service))

		// Selection endpoints the widget calls on drag gestures
		r.Post("/selections/evaluate", evaluateSelectionHandler(cfg.Service))
		r.Post("/selections", commitSelectionHandler(cfg.Service))
		r.Get("/selections/{clientID}", currentSelectionHandler(cfg.Service))
	})

	r.Post("/selections/{id}/confirm", confirmSelectionHandler(cfg.Service))

	return r
}
