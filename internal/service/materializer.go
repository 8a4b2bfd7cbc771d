package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/campus-dsi/pointage-api/internal/models"
	"github.com/campus-dsi/pointage-api/internal/reconcile"
)

type absenceUpserter interface {
	Upsert(ctx context.Context, rec *models.AttendanceRecord) (bool, error)
}

// MaterializeStats counts what one session's materialization did.
type MaterializeStats struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Errors  int `json:"errors"`
}

// Materializer turns finalized reconciliation results into ledger rows. It is
// idempotent by construction: the upsert key absorbs re-runs, and a corrected
// result simply refreshes the derived columns on the existing row.
type Materializer struct {
	logger *zap.Logger
}

// NewMaterializer constructs the materializer.
func NewMaterializer(logger *zap.Logger) *Materializer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Materializer{logger: logger}
}

// Apply persists every final result whose status is in the tenant's persist
// set. A single student's failure is logged and counted, never fatal for the
// rest of the session.
func (m *Materializer) Apply(ctx context.Context, absences absenceUpserter, session models.Session, results []reconcile.Result, persist map[models.AttendanceStatus]bool) MaterializeStats {
	var stats MaterializeStats
	for _, res := range results {
		if !res.Status.Final() || !persist[res.Status] {
			continue
		}
		rec := &models.AttendanceRecord{
			SessionKind: session.Kind,
			SessionID:   session.ID,
			Matricule:   res.Matricule,
			Date:        session.Date,
			Status:      res.Status,
			MinutesLate: res.MinutesLate,
		}
		created, err := absences.Upsert(ctx, rec)
		if err != nil {
			stats.Errors++
			m.logger.Sugar().Errorw("absence upsert failed",
				"session", session.ID, "matricule", res.Matricule, "error", err)
			continue
		}
		if created {
			stats.Created++
		} else {
			stats.Updated++
		}
	}
	return stats
}
