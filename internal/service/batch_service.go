package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/campus-dsi/pointage-api/internal/models"
	appErrors "github.com/campus-dsi/pointage-api/pkg/errors"
	"github.com/campus-dsi/pointage-api/pkg/jobs"
)

type tenantProcessor interface {
	ProcessTenant(ctx context.Context, tenantID string, opts RunOptions) (TenantStats, error)
}

// BatchParams are the batch trigger knobs exposed on the CLI.
type BatchParams struct {
	CutoffHours int
	// Date switches to backfill mode for that day, ignoring the cutoff.
	Date *time.Time
	// Kind filters session types: course, exam or both.
	Kind string
}

// TenantWarning reports a tenant skipped during a run.
type TenantWarning struct {
	TenantID string `json:"tenant_id"`
	Reason   string `json:"reason"`
}

// BatchReport aggregates a full run across tenants.
type BatchReport struct {
	TotalCreated int             `json:"total_created"`
	TotalUpdated int             `json:"total_updated"`
	TotalErrors  int             `json:"total_errors"`
	Tenants      []TenantStats   `json:"tenants"`
	Warnings     []TenantWarning `json:"warnings,omitempty"`
}

// BatchService is the batch trigger: it selects due sessions across every
// tenant and drives fetch → reconcile → materialize. Tenants run in parallel
// on the worker pool; one tenant's failure becomes a warning, never a batch
// failure. Re-running over unchanged data is a no-op thanks to the upsert key.
type BatchService struct {
	tenantIDs []string
	processor tenantProcessor
	runner    *jobs.Runner
	logger    *zap.Logger
}

// NewBatchService constructs the batch trigger over the tenant registry.
func NewBatchService(tenantIDs []string, processor tenantProcessor, runner *jobs.Runner, logger *zap.Logger) *BatchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if runner == nil {
		runner = jobs.NewRunner(jobs.RunnerConfig{Logger: logger})
	}
	return &BatchService{tenantIDs: tenantIDs, processor: processor, runner: runner, logger: logger}
}

// Run executes one batch pass and blocks until all tenants finished or the
// context was cancelled. Cancellation is safe: sessions not yet materialized
// are picked up by the next run.
func (s *BatchService) Run(ctx context.Context, params BatchParams) (*BatchReport, error) {
	kinds, err := parseKindFilter(params.Kind)
	if err != nil {
		return nil, err
	}
	cutoff := time.Duration(params.CutoffHours) * time.Hour
	if params.CutoffHours <= 0 {
		cutoff = time.Hour
	}
	opts := RunOptions{
		Now:    time.Now(),
		Cutoff: cutoff,
		Date:   params.Date,
		Kinds:  kinds,
	}

	report := &BatchReport{}
	statsByTenant := make(map[string]TenantStats, len(s.tenantIDs))
	warnings := make(map[string]string)

	var mu sync.Mutex
	s.runner.Run(ctx, s.tenantIDs, func(ctx context.Context, tenantID string) error {
		stats, err := s.processor.ProcessTenant(ctx, tenantID, opts)
		mu.Lock()
		statsByTenant[tenantID] = stats
		if err != nil {
			warnings[tenantID] = appErrors.FromError(err).Message
		} else {
			delete(warnings, tenantID)
		}
		mu.Unlock()
		// Tenant unavailability is terminal for this run; retrying at the
		// runner level would only repeat the credential failure.
		if appErrors.Is(err, appErrors.ErrTenantUnavailable) {
			return nil
		}
		return err
	})

	for _, id := range s.tenantIDs {
		stats := statsByTenant[id]
		report.Tenants = append(report.Tenants, stats)
		report.TotalCreated += stats.Created
		report.TotalUpdated += stats.Updated
		report.TotalErrors += stats.Errors
		if reason, ok := warnings[id]; ok {
			report.Warnings = append(report.Warnings, TenantWarning{TenantID: id, Reason: reason})
		}
	}
	sort.Slice(report.Warnings, func(i, j int) bool { return report.Warnings[i].TenantID < report.Warnings[j].TenantID })

	s.logger.Sugar().Infow("batch run finished",
		"created", report.TotalCreated,
		"updated", report.TotalUpdated,
		"errors", report.TotalErrors,
		"warnings", len(report.Warnings))
	return report, nil
}

// parseKindFilter maps the CLI type filter onto session kinds. Make-up
// sessions follow course rules, so the course filter includes them.
func parseKindFilter(kind string) ([]models.SessionKind, error) {
	switch kind {
	case "", "both":
		return nil, nil
	case "course":
		return []models.SessionKind{models.SessionCourse, models.SessionMakeup}, nil
	case "exam":
		return []models.SessionKind{models.SessionExam}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown session type filter: "+kind)
	}
}
