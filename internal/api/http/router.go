// Package http exposes the webhook endpoint and the management API.
package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
)

// RouterConfig collects what the router mounts. Schedules may be nil when
// schedule management is disabled.
type RouterConfig struct {
	WebhookPath string
	Webhook     http.Handler
	Schedules   *ScheduleHandler
	Results     *ResultHandler
	Logger      *slog.Logger
}

// NewRouter builds the service's HTTP routes.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(instrument(otel.Tracer("stashed-tasks-api")))

	r.Handle(cfg.WebhookPath, cfg.Webhook)

	if cfg.Schedules != nil {
		cfg.Schedules.RegisterRoutes(r)
	}
	if cfg.Results != nil {
		cfg.Results.RegisterRoutes(r)
	}

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	cfg.Logger.Debug("routes registered", "webhook_path", cfg.WebhookPath)
	return r
}
