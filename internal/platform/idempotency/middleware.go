package idempotency

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/menuslot/api/internal/platform/httpx"
)

const (
	defaultHeaderName = "Idempotency-Key"
	replayHeaderName  = "X-Idempotent-Replay"
)

// Logger receives persistence failures that do not change the response.
type Logger func(ctx context.Context, event string, fields map[string]any)

// MiddlewareOption customises Middleware.
type MiddlewareOption func(*guard)

// WithHeader sets the request header carrying the key.
func WithHeader(name string) MiddlewareOption {
	return func(g *guard) {
		if name = strings.TrimSpace(name); name != "" {
			g.header = name
		}
	}
}

// WithTTL sets how long reservations and stored responses are kept.
func WithTTL(ttl time.Duration) MiddlewareOption {
	return func(g *guard) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

// WithMethods replaces the guarded HTTP methods.
func WithMethods(methods ...string) MiddlewareOption {
	return func(g *guard) {
		if len(methods) == 0 {
			return
		}
		g.methods = make(map[string]bool, len(methods))
		for _, method := range methods {
			if method = strings.ToUpper(strings.TrimSpace(method)); method != "" {
				g.methods[method] = true
			}
		}
	}
}

// WithRequiredKey rejects guarded requests without a key instead of passing them through.
func WithRequiredKey() MiddlewareOption {
	return func(g *guard) { g.requireKey = true }
}

func WithLogger(logger Logger) MiddlewareOption {
	return func(g *guard) {
		if logger != nil {
			g.log = logger
		}
	}
}

func WithClock(clock func() time.Time) MiddlewareOption {
	return func(g *guard) {
		if clock != nil {
			g.now = clock
		}
	}
}

type guard struct {
	store      Store
	next       http.Handler
	header     string
	ttl        time.Duration
	methods    map[string]bool
	requireKey bool
	now        func() time.Time
	log        Logger
}

// Middleware makes booking retries safe. The first request with a key runs and its response
// is stored; a retry with the same key and body gets the stored response back, while the same
// key with a different request yields 422. 5xx responses release the key so the client can
// retry them.
func Middleware(store Store, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	if store == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	proto := guard{
		store:   store,
		header:  defaultHeaderName,
		ttl:     DefaultTTL,
		methods: map[string]bool{http.MethodPost: true, http.MethodPut: true, http.MethodPatch: true},
		now:     time.Now,
		log:     func(context.Context, string, map[string]any) {},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&proto)
		}
	}
	return func(next http.Handler) http.Handler {
		g := proto
		g.next = next
		return &g
	}
}

func (g *guard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := strings.TrimSpace(r.Header.Get(g.header))
	switch {
	case !g.methods[r.Method]:
		g.next.ServeHTTP(w, r)
		return
	case key == "" && g.requireKey:
		httpx.WriteError(ctx, w, httpx.NewError("idempotency_key_required", "missing idempotency key header", http.StatusBadRequest))
		return
	case key == "":
		g.next.ServeHTTP(w, r)
		return
	}

	body, err := bufferBody(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("idempotency_read_body_failed", "unable to read request body", http.StatusBadRequest))
		return
	}
	// Keys are scoped to the route so one key cannot replay another endpoint.
	scoped := key + "|" + r.URL.Path
	fp := fingerprint(r, body)

	reservation, err := g.store.Reserve(ctx, scoped, fp, g.now().UTC(), g.ttl)
	if errors.Is(err, ErrFingerprintMismatch) {
		httpx.WriteError(ctx, w, httpx.NewError("idempotency_key_reused", "idempotency key already used for a different request", http.StatusUnprocessableEntity))
		return
	}
	if err != nil {
		g.log(ctx, "idempotency.store_failed", map[string]any{"error": err.Error()})
		httpx.WriteError(ctx, w, httpx.NewError("idempotency_unavailable", "unable to process idempotency key", http.StatusServiceUnavailable))
		return
	}

	switch reservation.Outcome {
	case Replay:
		replay(w, reservation.Record)
		return
	case InFlight:
		httpx.WriteError(ctx, w, httpx.NewError("idempotency_in_progress", "another request is processing this idempotency key", http.StatusConflict))
		return
	}

	rec := &recorder{header: make(http.Header)}
	g.next.ServeHTTP(rec, r)

	if rec.status() >= http.StatusInternalServerError {
		g.release(ctx, scoped, fp)
	} else {
		resp := Response{Status: rec.status(), Headers: rec.header.Clone(), Body: rec.body.Bytes()}
		if err := g.store.SaveResponse(ctx, scoped, fp, resp, g.now().UTC(), g.ttl); err != nil {
			g.log(ctx, "idempotency.save_failed", map[string]any{"error": err.Error(), "status": resp.Status})
			g.release(ctx, scoped, fp)
		}
	}
	if err := rec.flush(w); err != nil {
		g.log(ctx, "idempotency.flush_failed", map[string]any{"error": err.Error()})
	}
}

func (g *guard) release(ctx context.Context, key, fp string) {
	if err := g.store.Release(ctx, key, fp); err != nil {
		g.log(ctx, "idempotency.release_failed", map[string]any{"error": err.Error()})
	}
}

func bufferBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(data))
	return data, nil
}

// fingerprint identifies the request a key was first used for.
func fingerprint(r *http.Request, body []byte) string {
	h := sha256.New()
	for _, part := range []string{strings.ToUpper(r.Method), r.URL.Path, r.URL.RawQuery, r.Header.Get("Content-Type")} {
		_, _ = io.WriteString(h, part)
		_, _ = h.Write([]byte{'|'})
	}
	_, _ = h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func replay(w http.ResponseWriter, record Record) {
	dst := w.Header()
	clear(dst)
	for name, values := range record.header() {
		dst[name] = values
	}
	dst.Set(replayHeaderName, "true")

	status := record.ResponseStatus
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write(record.ResponseBody)
}

// recorder holds the handler response until it has been stored.
type recorder struct {
	header http.Header
	code   int
	body   bytes.Buffer
}

func (r *recorder) Header() http.Header { return r.header }

func (r *recorder) WriteHeader(status int) {
	if r.code == 0 {
		r.code = status
	}
}

func (r *recorder) Write(data []byte) (int, error) {
	if r.code == 0 {
		r.code = http.StatusOK
	}
	return r.body.Write(data)
}

func (r *recorder) status() int {
	if r.code <= 0 {
		return http.StatusOK
	}
	return r.code
}

func (r *recorder) flush(w http.ResponseWriter) error {
	dst := w.Header()
	for name, values := range r.header {
		dst[name] = values
	}
	w.WriteHeader(r.status())
	if r.body.Len() == 0 {
		return nil
	}
	_, err := w.Write(r.body.Bytes())
	return err
}
