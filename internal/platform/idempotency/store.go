package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"
)

// DefaultTTL is how long a reservation or stored response is kept when no TTL is configured.
const DefaultTTL = 24 * time.Hour

// Status is the lifecycle of a record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Outcome tells the middleware what to do with a request after Reserve.
type Outcome int

const (
	// Acquired means the caller owns the key and must run the handler.
	Acquired Outcome = iota
	// Replay means a stored response exists for the same request.
	Replay
	// InFlight means another request with the same key has not finished yet.
	InFlight
)

// Reservation is the result of Reserve.
type Reservation struct {
	Outcome Outcome
	Record  Record
}

// Record is the persisted state of one key. Key is the client value; stores index by its hash.
type Record struct {
	Key             string              `json:"key" firestore:"key"`
	Fingerprint     string              `json:"fingerprint" firestore:"fingerprint"`
	Status          Status              `json:"status" firestore:"status"`
	ResponseStatus  int                 `json:"responseStatus,omitempty" firestore:"responseStatus"`
	ResponseHeaders map[string][]string `json:"responseHeaders,omitempty" firestore:"responseHeaders"`
	ResponseBody    []byte              `json:"responseBody,omitempty" firestore:"responseBody"`
	CreatedAt       time.Time           `json:"createdAt" firestore:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt" firestore:"updatedAt"`
	ExpiresAt       time.Time           `json:"expiresAt" firestore:"expiresAt"`
}

// Response is what the middleware captured from the handler.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// Store persists reservations and the responses replayed for retried bookings.
type Store interface {
	Reserve(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Reservation, error)
	SaveResponse(ctx context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error
	Release(ctx context.Context, key, fingerprint string) error
	CleanupExpired(ctx context.Context, now time.Time, limit int) (int, error)
}

// ErrFingerprintMismatch is returned when a key is reused for a different request.
var ErrFingerprintMismatch = errors.New("idempotency: key reserved for different request fingerprint")

func storageID(key string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(key)))
	return hex.EncodeToString(sum[:])
}

func effectiveTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}

func pending(key, fingerprint string, now time.Time, ttl time.Duration) Record {
	return Record{
		Key:         key,
		Fingerprint: fingerprint,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
}

// classify turns a live record into the reservation seen by a second caller.
func classify(record Record, fingerprint string) (Reservation, error) {
	if record.Fingerprint != fingerprint {
		return Reservation{}, ErrFingerprintMismatch
	}
	if record.Status == StatusCompleted {
		return Reservation{Outcome: Replay, Record: record}, nil
	}
	return Reservation{Outcome: InFlight, Record: record}, nil
}

// complete stores resp on the record and restarts its TTL.
func (r *Record) complete(resp Response, now time.Time, ttl time.Duration) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.Status = StatusCompleted
	r.ResponseStatus = resp.Status
	r.ResponseHeaders = replayableHeaders(resp.Headers)
	r.ResponseBody = nil
	if len(resp.Body) > 0 {
		r.ResponseBody = slices.Clone(resp.Body)
	}
	r.UpdatedAt = now
	r.ExpiresAt = now.Add(ttl)
}

func (r Record) expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

var hopByHop = map[string]bool{
	"Connection":          true,
	"Content-Length":      true,
	"Date":                true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailers":            true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

// replayableHeaders drops the headers the server recomputes on replay.
func replayableHeaders(header http.Header) map[string][]string {
	out := make(map[string][]string, len(header))
	for name, values := range header {
		canonical := http.CanonicalHeaderKey(name)
		if hopByHop[canonical] {
			continue
		}
		out[canonical] = slices.Clone(values)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (r Record) header() http.Header {
	header := make(http.Header, len(r.ResponseHeaders))
	for name, values := range r.ResponseHeaders {
		header[name] = slices.Clone(values)
	}
	return header
}
