package handlers

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	domain "github.com/menuslot/api/internal/domain"
	"github.com/menuslot/api/internal/platform/httpx"
	"github.com/menuslot/api/internal/services"
)

// HealthHandlers serves liveness, readiness and the public health endpoint.
type HealthHandlers struct {
	system services.SystemService
	build  services.BuildInfo
	clock  func() time.Time
}

// HealthOption customises HealthHandlers.
type HealthOption func(*HealthHandlers)

// WithHealthSystemService sets the service that runs dependency checks for /readyz.
func WithHealthSystemService(svc services.SystemService) HealthOption {
	return func(h *HealthHandlers) {
		h.system = svc
	}
}

// WithHealthBuildInfo sets the build metadata echoed by /healthz.
func WithHealthBuildInfo(info services.BuildInfo) HealthOption {
	return func(h *HealthHandlers) {
		h.build = info
	}
}

// WithHealthClock overrides the clock, mostly for tests.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if clock != nil {
			h.clock = clock
		}
	}
}

func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	if h.build.StartedAt.IsZero() {
		h.build.StartedAt = h.clock()
	}
	return h
}

type livenessPayload struct {
	Status      string `json:"status"`
	Version     string `json:"version,omitempty"`
	CommitSHA   string `json:"commitSha,omitempty"`
	Environment string `json:"environment,omitempty"`
	Uptime      string `json:"uptime"`
	Timestamp   string `json:"timestamp"`
}

type readinessPayload struct {
	Status      string                  `json:"status"`
	Version     string                  `json:"version,omitempty"`
	CommitSHA   string                  `json:"commitSha,omitempty"`
	Environment string                  `json:"environment,omitempty"`
	Uptime      string                  `json:"uptime,omitempty"`
	Timestamp   string                  `json:"timestamp"`
	Checks      map[string]checkPayload `json:"checks"`
	Details     []string                `json:"details,omitempty"`
}

type checkPayload struct {
	Status    string  `json:"status"`
	LatencyMS float64 `json:"latencyMs"`
	Detail    string  `json:"detail,omitempty"`
	Error     string  `json:"error,omitempty"`
	CheckedAt string  `json:"checkedAt,omitempty"`
}

// Healthz reports that the process is up. It never touches dependencies.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	now := h.clock().UTC()
	httpx.WriteJSON(w, http.StatusOK, livenessPayload{
		Status:      domain.HealthStatusOK,
		Version:     h.build.Version,
		CommitSHA:   h.build.CommitSHA,
		Environment: h.build.Environment,
		Uptime:      now.Sub(h.build.StartedAt).Round(time.Second).String(),
		Timestamp:   now.Format(time.RFC3339),
	})
}

// Readyz runs the dependency checks. A failing required dependency answers 503; a failing
// optional one only degrades the report.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := h.clock().UTC()
	if h.system == nil {
		httpx.WriteJSON(w, http.StatusOK, readinessPayload{
			Status:    domain.HealthStatusOK,
			Timestamp: now.Format(time.RFC3339),
			Checks:    map[string]checkPayload{},
		})
		return
	}

	report, err := h.system.HealthReport(ctx)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("health_check_failed", err.Error(), http.StatusServiceUnavailable))
		return
	}

	payload := readinessPayload{
		Status:      report.Status,
		Version:     report.Version,
		CommitSHA:   report.CommitSHA,
		Environment: report.Environment,
		Timestamp:   now.Format(time.RFC3339),
		Checks:      make(map[string]checkPayload, len(report.Checks)),
	}
	if report.Uptime > 0 {
		payload.Uptime = report.Uptime.Round(time.Second).String()
	}

	names := make([]string, 0, len(report.Checks))
	for name := range report.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		check := report.Checks[name]
		payload.Checks[name] = checkPayload{
			Status:    check.Status,
			LatencyMS: float64(check.Latency) / float64(time.Millisecond),
			Detail:    check.Detail,
			Error:     check.Error,
			CheckedAt: formatTime(check.CheckedAt),
		}
		if check.Error != "" {
			payload.Details = append(payload.Details, fmt.Sprintf("%s: %s", name, check.Error))
		}
	}

	status := http.StatusOK
	if report.Status == domain.HealthStatusError {
		status = http.StatusServiceUnavailable
	}
	httpx.WriteJSON(w, status, payload)
}

// Status is the public API health endpoint.
func (h *HealthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "OK",
		"timestamp": h.clock().UTC().Format(time.RFC3339Nano),
	})
}
