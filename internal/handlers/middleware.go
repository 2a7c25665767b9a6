package handlers

import (
	"net/http"

	"github.com/rs/cors"

	"github.com/menuslot/api/internal/platform/httpx"
	"github.com/menuslot/api/internal/platform/ratelimit"
)

// CORSMiddleware allows browser calls from origins. An empty list allows any origin
// without credentials.
func CORSMiddleware(origins []string, idempotencyHeader string) func(http.Handler) http.Handler {
	allowed := []string{"Content-Type", "X-Request-ID", "X-Cloud-Trace-Context"}
	if idempotencyHeader != "" {
		allowed = append(allowed, idempotencyHeader)
	}
	opts := cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: allowed,
		ExposedHeaders: []string{"X-Request-ID", "Retry-After"},
		MaxAge:         600,
	}
	if len(origins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	} else {
		opts.AllowCredentials = true
	}
	return cors.New(opts).Handler
}

// RateLimitMiddleware throttles each client IP and answers 429 with the error envelope.
func RateLimitMiddleware(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return ratelimit.Middleware(limiter, ratelimit.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteError(r.Context(), w, httpx.NewError("rate_limited", "too many requests, slow down", http.StatusTooManyRequests))
	})
}
