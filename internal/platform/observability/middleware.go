package observability

import (
	"net"
	"net/http"
	"runtime/debug"
	"time"
	"unicode"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/menuslot/api/internal/platform/httpx"
	"github.com/menuslot/api/internal/platform/requestctx"
)

// routeFields maps chi URL parameters onto the log fields attached to a completed request.
var routeFields = map[string]string{
	"id":        "item_id",
	"bookingId": "booking_id",
}

// InjectLoggerMiddleware puts logger on every request context.
func InjectLoggerMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(requestctx.WithLogger(r.Context(), logger)))
		})
	}
}

// RequestLoggerMiddleware scopes the context logger to the request and logs its completion.
// 4xx responses log at warn and 5xx or panics at error. The value of idempotencyHeader is
// attached when present.
func RequestLoggerMiddleware(idempotencyHeader string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			info, _ := requestctx.Trace(ctx)
			fields := []zap.Field{
				zap.String("request_id", middleware.GetReqID(ctx)),
				zap.String("method", clean(r.Method, 10)),
				zap.String("trace_id", info.TraceID),
			}
			if info.ProjectID != "" && info.TraceID != "" {
				fields = append(fields, zap.String("logging.googleapis.com/trace", "projects/"+info.ProjectID+"/traces/"+info.TraceID))
			}
			if ip := remoteIP(r.RemoteAddr); ip != "" {
				fields = append(fields, zap.String("remote_ip", ip))
			}
			if idempotencyHeader != "" {
				if key := clean(r.Header.Get(idempotencyHeader), 128); key != "" {
					fields = append(fields, zap.String("idempotency_key", key))
				}
			}
			logger := requestctx.Logger(ctx).With(fields...)
			r = r.WithContext(requestctx.WithLogger(ctx, logger))

			sw := &statusWriter{ResponseWriter: w}
			start := time.Now()
			panicked := true
			defer func() {
				finishRequest(r, logger, sw, time.Since(start), panicked)
			}()

			next.ServeHTTP(sw, r)
			panicked = false
		})
	}
}

func finishRequest(r *http.Request, logger *zap.Logger, sw *statusWriter, latency time.Duration, panicked bool) {
	status := sw.code()
	if panicked && status < http.StatusInternalServerError {
		status = http.StatusInternalServerError
	}
	route := "/"
	rctx := chi.RouteContext(r.Context())
	if rctx != nil && rctx.RoutePattern() != "" {
		route = rctx.RoutePattern()
	} else if r.URL.Path != "" {
		route = r.URL.Path
	}
	route = clean(route, 180)

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(semconv.HTTPResponseStatusCode(status), semconv.HTTPRoute(route))
	if status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(status))
	} else {
		span.SetStatus(codes.Ok, "")
	}

	fields := []zap.Field{
		zap.String("route", route),
		zap.Int("status", status),
		zap.Duration("latency", latency),
		zap.Int64("bytes", sw.written),
	}
	if rctx != nil {
		for param, field := range routeFields {
			if value := rctx.URLParam(param); value != "" {
				fields = append(fields, zap.String(field, clean(value, 64)))
			}
		}
	}

	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request completed", fields...)
	case status >= http.StatusBadRequest:
		logger.Warn("request completed", fields...)
	default:
		logger.Info("request completed", fields...)
	}
}

// RecoveryMiddleware turns a panic into a logged stack trace and a 500 error envelope.
func RecoveryMiddleware(fallback *zap.Logger) func(http.Handler) http.Handler {
	if fallback == nil {
		fallback = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				ctx := r.Context()
				logger := requestctx.Logger(ctx)
				if logger == requestctx.NoopLogger() {
					logger = fallback
				}
				logger.Error("panic recovered", zap.Any("panic", rec), zap.ByteString("stack", debug.Stack()))
				httpx.WriteError(ctx, w, httpx.NewError("internal_server_error", "internal server error", http.StatusInternalServerError))
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func remoteIP(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	return clean(addr, 64)
}

// clean strips control characters from client supplied values and caps their length.
func clean(value string, limit int) string {
	out := make([]rune, 0, len(value))
	for _, r := range value {
		if unicode.IsControl(r) {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, r)
	}
	return string(out)
}

type statusWriter struct {
	http.ResponseWriter
	status  int
	written int64
}

func (w *statusWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.written += int64(n)
	return n, err
}

func (w *statusWriter) code() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}
