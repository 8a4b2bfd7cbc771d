package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/campus-dsi/pointage-api/internal/models"
	"github.com/campus-dsi/pointage-api/internal/punch"
	"github.com/campus-dsi/pointage-api/internal/reconcile"
	"github.com/campus-dsi/pointage-api/internal/repository"
	"github.com/campus-dsi/pointage-api/internal/tenant"
	appErrors "github.com/campus-dsi/pointage-api/pkg/errors"
)

type sessionCatalog interface {
	DueForCutoff(ctx context.Context, now time.Time, cutoff, lookback time.Duration, kinds []models.SessionKind) ([]models.Session, error)
	ByDate(ctx context.Context, date time.Time, kinds []models.SessionKind) ([]models.Session, error)
	Roster(ctx context.Context, session models.Session) ([]models.Student, error)
}

type deviceDirectory interface {
	ListByRooms(ctx context.Context, roomIDs []string) ([]models.Device, error)
}

type qrEventSource interface {
	EventsForSession(ctx context.Context, sessionID string) ([]models.PunchEvent, error)
}

// TenantDeps bundles everything the engine needs for one tenant's run.
type TenantDeps struct {
	Sessions sessionCatalog
	Devices  deviceDirectory
	Absences absenceUpserter
	QR       qrEventSource
	Source   punch.Source
	Persist  map[models.AttendanceStatus]bool
	Dedup    time.Duration
}

// RunOptions selects which sessions one run covers.
type RunOptions struct {
	Now    time.Time
	Cutoff time.Duration
	// Date switches to backfill mode: all sessions of that date, cutoff
	// ignored.
	Date  *time.Time
	Kinds []models.SessionKind
}

// SessionStats reports one session's outcome.
type SessionStats struct {
	SessionID string `json:"session_id"`
	MaterializeStats
	Malformed int  `json:"malformed"`
	Skipped   bool `json:"skipped"`
}

// TenantStats aggregates a tenant's run.
type TenantStats struct {
	TenantID  string `json:"tenant_id"`
	Created   int    `json:"created"`
	Updated   int    `json:"updated"`
	Errors    int    `json:"errors"`
	Sessions  int    `json:"sessions"`
	Skipped   int    `json:"skipped"`
	Malformed int    `json:"malformed"`
}

// Engine drives fetch → reconcile → materialize for one tenant at a time.
// Tenants share nothing; the batch service runs engines in parallel.
type Engine struct {
	dir          *tenant.Directory
	loc          *time.Location
	policy       reconcile.Policy
	lookback     time.Duration
	materializer *Materializer
	metrics      *MetricsService
	logger       *zap.Logger

	// depsFor is swappable in tests; the default builds repositories over the
	// tenant's pool and a vendor client from its credentials.
	depsFor func(h *tenant.Handle) (*TenantDeps, error)
}

// NewEngine constructs the production engine.
func NewEngine(dir *tenant.Directory, loc *time.Location, policy reconcile.Policy, metrics *MetricsService, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		dir:          dir,
		loc:          loc,
		policy:       policy,
		lookback:     48 * time.Hour,
		materializer: NewMaterializer(logger),
		metrics:      metrics,
		logger:       logger,
	}
	e.depsFor = e.buildDeps
	return e
}

func (e *Engine) buildDeps(h *tenant.Handle) (*TenantDeps, error) {
	db, err := h.DB()
	if err != nil {
		return nil, err
	}
	cfg := h.Config()
	qrRepo := repository.NewQRRepository(db)
	return &TenantDeps{
		Sessions: repository.NewSessionRepository(db, e.loc),
		Devices:  repository.NewDeviceRepository(db),
		Absences: repository.NewAbsenceRepository(db),
		QR:       punch.NewQRSource(qrRepo),
		Source:   punch.NewVendorClient(cfg, e.loc, e.logger.With(zap.String("tenant", cfg.ID))),
		Persist:  h.PersistSet(),
		Dedup:    cfg.DedupWindow,
	}, nil
}

// ProcessTenant reconciles every selected session of one tenant. A missing or
// unreachable tenant returns a TENANT_UNAVAILABLE error; the caller records it
// as a warning and moves on.
func (e *Engine) ProcessTenant(ctx context.Context, tenantID string, opts RunOptions) (TenantStats, error) {
	stats := TenantStats{TenantID: tenantID}

	h, ok := e.dir.Resolve(tenantID)
	if !ok {
		if e.metrics != nil {
			e.metrics.ObserveTenantWarning(tenantID)
		}
		return stats, appErrors.Clone(appErrors.ErrTenantUnavailable, "tenant "+tenantID+" not configured")
	}
	deps, err := e.depsFor(h)
	if err != nil {
		return stats, err
	}

	var sessions []models.Session
	if opts.Date != nil {
		sessions, err = deps.Sessions.ByDate(ctx, *opts.Date, opts.Kinds)
	} else {
		sessions, err = deps.Sessions.DueForCutoff(ctx, opts.Now, opts.Cutoff, e.lookback, opts.Kinds)
	}
	if err != nil {
		return stats, err
	}

	for _, session := range sessions {
		if ctx.Err() != nil {
			// Unprocessed sessions stay re-processable on the next run.
			return stats, ctx.Err()
		}
		sess, err := e.ProcessSession(ctx, deps, session, opts.Now)
		if err != nil {
			if appErrors.Is(err, appErrors.ErrTenantUnavailable) {
				if e.metrics != nil {
					e.metrics.ObserveTenantWarning(tenantID)
				}
				return stats, err
			}
			stats.Errors++
			e.logger.Sugar().Errorw("session reconciliation failed",
				"tenant", tenantID, "session", session.ID, "error", err)
			continue
		}
		stats.Created += sess.Created
		stats.Updated += sess.Updated
		stats.Errors += sess.Errors
		stats.Malformed += sess.Malformed
		if sess.Skipped {
			stats.Skipped++
		} else {
			stats.Sessions++
		}
	}

	if e.metrics != nil {
		e.metrics.ObserveTenantRun(tenantID, stats.Created, stats.Updated, stats.Malformed)
	}
	return stats, nil
}

// ProcessSession runs the full pipeline for one session: roster, device set,
// punch fetch, dedup, QR merge, per-student reconciliation, materialization.
func (e *Engine) ProcessSession(ctx context.Context, deps *TenantDeps, session models.Session, now time.Time) (SessionStats, error) {
	stats := SessionStats{SessionID: session.ID}

	roster, err := deps.Sessions.Roster(ctx, session)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrEmptyScope) {
			stats.Skipped = true
			return stats, nil
		}
		return stats, err
	}

	devices, err := deps.Devices.ListByRooms(ctx, session.RoomIDs)
	if err != nil {
		return stats, err
	}
	deviceIDs := make([]string, 0, len(devices))
	for _, d := range devices {
		deviceIDs = append(deviceIDs, d.VendorID)
	}

	window := punch.Window{From: session.PointageAt, To: session.EndAt.Add(e.policy.Grace)}
	events, diag, err := deps.Source.FetchEvents(ctx, deviceIDs, window)
	if err != nil {
		return stats, err
	}
	stats.Malformed = diag.Malformed

	events, _ = punch.Coalesce(events, deps.Dedup)

	qrEvents, err := deps.QR.EventsForSession(ctx, session.ID)
	if err != nil {
		return stats, err
	}
	events = append(events, qrEvents...)

	grouped := punch.ByStudent(events)
	results := make([]reconcile.Result, 0, len(roster))
	for _, student := range roster {
		res, ok := reconcile.Reconcile(session, student.Matricule, grouped[student.Matricule], now, e.policy)
		if !ok {
			continue
		}
		results = append(results, res)
	}

	stats.MaterializeStats = e.materializer.Apply(ctx, deps.Absences, session, results, deps.Persist)
	return stats, nil
}
