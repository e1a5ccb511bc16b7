package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"stashed-tasks/internal/metrics"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// instrumentedResponseWriter captures the status code.
type instrumentedResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *instrumentedResponseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// instrument wraps every routed request in a span and counts it by route pattern.
func instrument(tracer trace.Tracer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracer.Start(r.Context(), "HTTP "+r.Method, trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
			))
			defer span.End()

			iw := &instrumentedResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(iw, r.WithContext(ctx))

			// The pattern is only complete once chi has finished routing.
			route := "unmatched"
			if rctx := chi.RouteContext(ctx); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			span.SetName("HTTP " + r.Method + " " + route)
			metrics.HttpRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(iw.statusCode)).Inc()

			span.SetAttributes(attribute.Int("http.status_code", iw.statusCode), attribute.String("http.route", route))
			if iw.statusCode >= 500 {
				span.SetStatus(codes.Error, "Server Error")
			}
		})
	}
}

func respondJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to write response", "error", err)
	}
}

func respondError(w http.ResponseWriter, logger *slog.Logger, status int, msg string, details ...string) {
	respondJSON(w, logger, status, errorResponse{Error: msg, Details: details})
}
