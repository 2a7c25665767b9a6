package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	domain "github.com/menuslot/api/internal/domain"
	"github.com/menuslot/api/internal/platform/httpx"
	"github.com/menuslot/api/internal/platform/pagination"
	"github.com/menuslot/api/internal/platform/validation"
	"github.com/menuslot/api/internal/repositories"
	"github.com/menuslot/api/internal/services"
)

const maxBodySize = 64 * 1024

var (
	errEmptyBody    = errors.New("request body is required")
	errBodyTooLarge = errors.New("request body too large")
)

var listOptions = pagination.Options{
	DefaultLimit:      domain.DefaultPageLimit,
	MaxLimit:          domain.MaxPageLimit,
	AllowedSortFields: []string{"createdAt", "updatedAt", "name"},
}

type successEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type pageEnvelope struct {
	Success    bool              `json:"success"`
	Data       any               `json:"data"`
	Pagination paginationPayload `json:"pagination"`
}

type paginationPayload struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

func writeData(w http.ResponseWriter, status int, data any) {
	httpx.WriteJSON(w, status, successEnvelope{Success: true, Data: data})
}

func writePage[T any, P any](w http.ResponseWriter, page domain.Page[T], build func(T) P) {
	items := make([]P, 0, len(page.Items))
	for _, item := range page.Items {
		items = append(items, build(item))
	}
	totalPages := 0
	if page.Limit > 0 {
		totalPages = (page.Total + page.Limit - 1) / page.Limit
	}
	httpx.WriteJSON(w, http.StatusOK, pageEnvelope{
		Success: true,
		Data:    items,
		Pagination: paginationPayload{
			Page:       page.Page,
			Limit:      page.Limit,
			Total:      page.Total,
			TotalPages: totalPages,
		},
	})
}

// decodeBody reads a size-limited JSON body into dst and runs struct validation on it.
func decodeBody(r *http.Request, dst any) error {
	body, err := readLimitedBody(r, maxBodySize)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: invalid JSON payload", domain.ErrInvalidInput)
	}
	return validation.Struct(dst)
}

// decodePatch is decodeBody for PATCH requests. The returned map holds the raw value of
// every key present in the body so explicit nulls can be told apart from omitted fields.
func decodePatch(r *http.Request, dst any) (map[string]json.RawMessage, error) {
	body, err := readLimitedBody(r, maxBodySize)
	if err != nil {
		return nil, err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON payload", domain.ErrInvalidInput)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: no updatable fields supplied", domain.ErrInvalidInput)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON payload", domain.ErrInvalidInput)
	}
	if err := validation.Struct(dst); err != nil {
		return nil, err
	}
	return raw, nil
}

func isJSONNull(value json.RawMessage) bool {
	return strings.TrimSpace(string(value)) == "null"
}

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	var fieldErr *validation.Error
	if errors.As(err, &fieldErr) {
		details := make(map[string]any, len(fieldErr.Fields))
		for field, msg := range fieldErr.Fields {
			details[field] = msg
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", fieldErr.Error(), http.StatusBadRequest).
			WithDetails(map[string]any{"fields": details}))
		return
	}

	var bookingErr *services.BookingError
	if errors.As(err, &bookingErr) {
		status := http.StatusBadRequest
		if errors.Is(bookingErr, services.ErrNotFound) {
			status = http.StatusNotFound
		}
		httpx.WriteError(ctx, w, httpx.NewError(string(bookingErr.Reason), bookingErr.Message, status))
		return
	}

	switch {
	case errors.Is(err, errEmptyBody):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is required", http.StatusBadRequest))
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
	case pagination.IsInvalid(err):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_pagination", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", trimSentinel(err), http.StatusNotFound))
	case errors.Is(err, services.ErrInvalidPricing):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_pricing", trimSentinel(err), http.StatusBadRequest))
	case errors.Is(err, services.ErrInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", trimSentinel(err), http.StatusBadRequest))
	case errors.Is(err, services.ErrInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_state", trimSentinel(err), http.StatusBadRequest))
	case errors.Is(err, services.ErrValidation):
		httpx.WriteError(ctx, w, httpx.NewError("validation_failed", trimSentinel(err), http.StatusBadRequest))
	case errors.Is(err, services.ErrConflict):
		httpx.WriteError(ctx, w, httpx.NewError("conflict", trimSentinel(err), http.StatusConflict))
	case errors.Is(err, services.ErrUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "a backing service is unavailable", http.StatusServiceUnavailable))
	default:
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsUnavailable() {
			httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "a backing service is unavailable", http.StatusServiceUnavailable))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "failed to process request", http.StatusInternalServerError))
	}
}

// trimSentinel drops the "<sentinel>: " prefix added when wrapping with %w.
func trimSentinel(err error) string {
	msg := err.Error()
	if idx := strings.Index(msg, ": "); idx >= 0 && idx+2 < len(msg) {
		return msg[idx+2:]
	}
	return msg
}

// serviceReady answers 503 when a handler was built without its service.
func serviceReady(ctx context.Context, w http.ResponseWriter, ok bool, name string) bool {
	if ok {
		return true
	}
	httpx.WriteError(ctx, w, httpx.NewError(name+"_service_unavailable", name+" service unavailable", http.StatusServiceUnavailable))
	return false
}

func invalidQuery(ctx context.Context, w http.ResponseWriter, message string) {
	httpx.WriteError(ctx, w, httpx.NewError("invalid_request", message, http.StatusBadRequest))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTimestamp accepts RFC 3339 timestamps, with or without fractional seconds.
func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("timestamp is empty")
	}
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, err
	}
	return ts, nil
}

// parseDate accepts YYYY-MM-DD in loc or a full RFC 3339 timestamp.
func parseDate(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if loc == nil {
		loc = time.UTC
	}
	if day, err := time.ParseInLocation("2006-01-02", value, loc); err == nil {
		return day, nil
	}
	return parseTimestamp(value)
}

func cloneStringPointer(value *string) *string {
	if value == nil {
		return nil
	}
	copy := *value
	return &copy
}
