package services

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/menuslot/api/internal/domain"
	"github.com/menuslot/api/internal/repositories"
)

// BuildInfo is the release metadata reported next to the dependency checks.
type BuildInfo struct {
	Version     string
	CommitSHA   string
	Environment string
	StartedAt   time.Time
}

type SystemServiceDeps struct {
	HealthRepository repositories.HealthRepository
	Clock            func() time.Time
	Build            BuildInfo
}

type systemService struct {
	health repositories.HealthRepository
	now    func() time.Time
	build  BuildInfo
}

var _ SystemService = (*systemService)(nil)

func NewSystemService(deps SystemServiceDeps) (SystemService, error) {
	if deps.HealthRepository == nil {
		return nil, errors.New("system service: health repository is required")
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	build := deps.Build
	if build.StartedAt.IsZero() {
		build.StartedAt = now()
	}
	build.StartedAt = build.StartedAt.UTC()
	return &systemService{health: deps.HealthRepository, now: now, build: build}, nil
}

// HealthReport collects the dependency checks and fills whatever the repository left
// empty from the build metadata. Values set by the repository are kept.
func (s *systemService) HealthReport(ctx context.Context) (domain.HealthReport, error) {
	report, err := s.health.Collect(ctx)
	if err != nil {
		return domain.HealthReport{}, err
	}
	now := s.now().UTC()

	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = now
	}
	report.GeneratedAt = report.GeneratedAt.UTC()
	if report.StartedAt.IsZero() {
		report.StartedAt = s.build.StartedAt
	}
	if report.Uptime <= 0 {
		report.Uptime = now.Sub(s.build.StartedAt)
	}
	fill(&report.Version, s.build.Version)
	fill(&report.CommitSHA, s.build.CommitSHA)
	fill(&report.Environment, s.build.Environment)

	if report.Checks == nil {
		report.Checks = map[string]domain.HealthCheck{}
	}
	if strings.TrimSpace(report.Status) == "" {
		report.Status = deriveStatus(report.Checks)
	}
	return report, nil
}

func fill(dst *string, fallback string) {
	if strings.TrimSpace(*dst) == "" {
		*dst = fallback
	}
}

var statusRank = map[string]int{
	"":                          0,
	domain.HealthStatusOK:       0,
	domain.HealthStatusDegraded: 1,
	domain.HealthStatusError:    2,
}

// deriveStatus reports the worst check status. Unknown statuses count as degraded.
func deriveStatus(checks map[string]domain.HealthCheck) string {
	worst := 0
	for _, check := range checks {
		rank, known := statusRank[check.Status]
		if !known {
			rank = 1
		}
		worst = max(worst, rank)
	}
	return [...]string{domain.HealthStatusOK, domain.HealthStatusDegraded, domain.HealthStatusError}[worst]
}
