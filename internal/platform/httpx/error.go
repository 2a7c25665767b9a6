package httpx

import (
	"context"
	"maps"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/menuslot/api/internal/platform/requestctx"
)

const (
	codeLimit    = 80
	messageLimit = 512
	idLimit      = 80
)

// Error is the failure envelope every endpoint answers with:
//
//	{"success":false,"error":"slot_conflict","message":"...","status":400,"request_id":"...","trace_id":"..."}
//
// Details are merged into the top level, which is how validation failures expose "fields".
type Error struct {
	Code      string
	Message   string
	Status    int
	RequestID string
	TraceID   string
	Details   map[string]any
}

// NewError builds an envelope; a zero status means 500.
func NewError(code, message string, status int) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Error{Code: oneLine(code, codeLimit), Message: oneLine(message, messageLimit), Status: status}
}

func (e Error) Error() string { return e.Code + ": " + e.Message }

func (e Error) WithRequestID(id string) Error {
	e.RequestID = oneLine(id, idLimit)
	return e
}

func (e Error) WithTraceID(id string) Error {
	e.TraceID = oneLine(id, idLimit)
	return e
}

// WithDetails merges extra top-level members into the envelope.
func (e Error) WithDetails(details map[string]any) Error {
	if len(details) > 0 {
		e.Details = maps.Clone(details)
	}
	return e
}

// WriteError renders err, filling request and trace ids from ctx when unset.
func WriteError(ctx context.Context, w http.ResponseWriter, err Error) {
	if err.Status == 0 {
		err.Status = http.StatusInternalServerError
	}
	if err.RequestID == "" {
		err.RequestID = oneLine(middleware.GetReqID(ctx), idLimit)
	}
	if err.TraceID == "" {
		err.TraceID = oneLine(requestctx.TraceID(ctx), idLimit)
	}

	body := make(map[string]any, len(err.Details)+6)
	maps.Copy(body, err.Details)
	body["success"] = false
	body["error"] = err.Code
	body["message"] = err.Message
	body["status"] = err.Status
	if err.RequestID != "" {
		body["request_id"] = err.RequestID
	}
	if err.TraceID != "" {
		body["trace_id"] = err.TraceID
	}
	WriteJSON(w, err.Status, body)
}

// oneLine flattens line breaks so client supplied text cannot split log lines or headers.
func oneLine(value string, limit int) string {
	value = strings.TrimSpace(strings.NewReplacer("\r", " ", "\n", " ").Replace(value))
	if len(value) > limit {
		value = value[:limit]
	}
	return value
}
