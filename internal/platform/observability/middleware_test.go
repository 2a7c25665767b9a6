package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/menuslot/api/internal/platform/requestctx"
)

func TestRequestLoggerMiddlewareRecordsRouteFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	router := chi.NewRouter()
	router.Use(InjectLoggerMiddleware(logger), RequestLoggerMiddleware("Idempotency-Key"))
	router.Post("/api/v1/items/{id}/book", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/items/item-7/book", nil)
	req.Header.Set("Idempotency-Key", "key-1")
	router.ServeHTTP(httptest.NewRecorder(), req)

	completed := logs.FilterMessage("request completed").All()
	if len(completed) != 1 {
		t.Fatalf("expected one completion entry, got %d", len(completed))
	}
	entry := completed[0]
	if entry.Level != zapcore.WarnLevel {
		t.Fatalf("expected warn for 4xx, got %s", entry.Level)
	}
	fields := entry.ContextMap()
	if fields["status"] != int64(http.StatusConflict) {
		t.Fatalf("unexpected status field %v", fields["status"])
	}
	if fields["item_id"] != "item-7" {
		t.Fatalf("expected item_id field, got %v", fields["item_id"])
	}
	if fields["idempotency_key"] != "key-1" {
		t.Fatalf("expected idempotency key field, got %v", fields["idempotency_key"])
	}
}

func TestRecoveryMiddlewareWritesErrorEnvelope(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	handler := RecoveryMiddleware(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"success":false`) {
		t.Fatalf("expected error envelope, got %s", rr.Body.String())
	}
	if logs.FilterMessage("panic recovered").Len() != 1 {
		t.Fatalf("expected panic to be logged")
	}
}

func TestServiceLoggerPrefersRequestLogger(t *testing.T) {
	fallbackCore, fallbackLogs := observer.New(zapcore.DebugLevel)
	scopedCore, scopedLogs := observer.New(zapcore.DebugLevel)

	hook := ServiceLogger(zap.New(fallbackCore))
	hook(context.Background(), "booking.created", map[string]any{"bookingID": "b-1"})
	ctx := requestctx.WithLogger(context.Background(), zap.New(scopedCore))
	hook(ctx, "item_cache.read_failed", map[string]any{"error": "timeout"})

	if fallbackLogs.Len() != 1 || fallbackLogs.All()[0].ContextMap()["bookingID"] != "b-1" {
		t.Fatalf("expected fallback entry, got %+v", fallbackLogs.All())
	}
	entries := scopedLogs.All()
	if len(entries) != 1 || entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("expected scoped warn entry, got %+v", entries)
	}
}

func TestTraceMiddlewareHonoursCloudTraceHeader(t *testing.T) {
	var got requestctx.TraceInfo
	handler := TraceMiddleware("demo-project")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = requestctx.Trace(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(cloudTraceHeader, "105445aa7843bc8bf206b12000100000/1;o=1")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if got.TraceID != "105445aa7843bc8bf206b12000100000" {
		t.Fatalf("expected trace id from header, got %q", got.TraceID)
	}
	if got.ProjectID != "demo-project" {
		t.Fatalf("expected project id, got %q", got.ProjectID)
	}
	if rr.Header().Get(cloudTraceHeader) == "" {
		t.Fatalf("expected trace header to be echoed")
	}
}
