package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"multisig/internal/multisig/handler"
	"multisig/internal/platform/metrics"
	"multisig/pkg/platform/httputil"
	"multisig/pkg/platform/middleware/auth"
	"multisig/pkg/platform/middleware/request"
	"multisig/pkg/platform/middleware/requesttime"
)

// healthCheck reports whether one backing dependency is reachable.
type healthCheck func(ctx context.Context) error

type routerDeps struct {
	logger  *slog.Logger
	handler *handler.Handler
	callers auth.CallerValidator
	metrics *metrics.HTTP
	health  map[string]healthCheck
	// metricsHandler serves /metrics; defaults to the global registry.
	metricsHandler http.Handler
}

func newRouter(deps routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(request.Recovery(deps.logger))
	r.Use(request.Logger(deps.logger))
	if deps.metrics != nil {
		r.Use(deps.metrics.Middleware)
	}

	metricsHandler := deps.metricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{}
		code := http.StatusOK
		for name, check := range deps.health {
			if err := check(r.Context()); err != nil {
				status[name] = err.Error()
				code = http.StatusServiceUnavailable
				continue
			}
			status[name] = "ok"
		}
		httputil.WriteJSON(w, code, map[string]any{"status": http.StatusText(code), "checks": status})
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireCaller(deps.callers, deps.logger))
		deps.handler.Register(r)
	})
	return r
}
