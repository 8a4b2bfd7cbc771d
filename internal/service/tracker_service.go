package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/campus-dsi/pointage-api/internal/models"
	"github.com/campus-dsi/pointage-api/internal/punch"
	"github.com/campus-dsi/pointage-api/internal/reconcile"
	"github.com/campus-dsi/pointage-api/internal/repository"
	"github.com/campus-dsi/pointage-api/internal/tenant"
	appErrors "github.com/campus-dsi/pointage-api/pkg/errors"
	"github.com/campus-dsi/pointage-api/pkg/export"
)

type trackerCatalog interface {
	ForStudentInRange(ctx context.Context, matricule string, from, to time.Time) ([]models.Session, error)
}

type trackerLedger interface {
	List(ctx context.Context, filter models.AttendanceRecordFilter) ([]models.AttendanceRecord, int, error)
}

// TrackerDeps bundles one tenant's dependencies for the on-demand path.
type TrackerDeps struct {
	Sessions trackerCatalog
	Devices  deviceDirectory
	Source   punch.Source
	QR       qrEventSource
	Ledger   trackerLedger
	Dedup    time.Duration
}

// TrackerRequest scopes an on-demand query.
type TrackerRequest struct {
	Matricule string
	From      time.Time
	To        time.Time
	// Status optionally narrows the response to one status value.
	Status string
}

// TrackerEntry is the per-session detail returned to reporting consumers.
type TrackerEntry struct {
	SessionID   string                  `json:"session_id"`
	Kind        models.SessionKind      `json:"kind"`
	Date        time.Time               `json:"date"`
	StartAt     time.Time               `json:"start_at"`
	EndAt       time.Time               `json:"end_at"`
	Status      models.AttendanceStatus `json:"status"`
	Provisional models.AttendanceStatus `json:"provisional,omitempty"`
	Entry       *time.Time              `json:"entry,omitempty"`
	Exit        *time.Time              `json:"exit,omitempty"`
	EntryDevice string                  `json:"entry_device,omitempty"`
	ExitDevice  string                  `json:"exit_device,omitempty"`
	MinutesLate int                     `json:"minutes_late"`
	LeftEarly   bool                    `json:"left_early"`
	PunchCount  int                     `json:"punch_count"`
	Justified   bool                    `json:"justified"`
}

// TrackerService recomputes attendance live for a single student without ever
// persisting. It calls the exact same Reconcile function as the batch trigger,
// so the live view and the persisted ledger cannot disagree.
type TrackerService struct {
	dir      *tenant.Directory
	loc      *time.Location
	policy   reconcile.Policy
	cache    *redis.Client
	cacheTTL time.Duration
	logger   *zap.Logger

	depsFor func(h *tenant.Handle) (*TrackerDeps, error)
}

// NewTrackerService constructs the tracker. cache may be nil.
func NewTrackerService(dir *tenant.Directory, loc *time.Location, policy reconcile.Policy, cache *redis.Client, cacheTTL time.Duration, logger *zap.Logger) *TrackerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &TrackerService{dir: dir, loc: loc, policy: policy, cache: cache, cacheTTL: cacheTTL, logger: logger}
	s.depsFor = s.buildDeps
	return s
}

func (s *TrackerService) buildDeps(h *tenant.Handle) (*TrackerDeps, error) {
	db, err := h.DB()
	if err != nil {
		return nil, err
	}
	cfg := h.Config()
	return &TrackerDeps{
		Sessions: repository.NewSessionRepository(db, s.loc),
		Devices:  repository.NewDeviceRepository(db),
		Source:   punch.NewVendorClient(cfg, s.loc, s.logger.With(zap.String("tenant", cfg.ID))),
		QR:       punch.NewQRSource(repository.NewQRRepository(db)),
		Ledger:   repository.NewAbsenceRepository(db),
		Dedup:    cfg.DedupWindow,
	}, nil
}

// Track returns live per-session detail for a student across a date range.
func (s *TrackerService) Track(ctx context.Context, tenantID string, req TrackerRequest, now time.Time) ([]TrackerEntry, error) {
	if req.Matricule == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "matricule is required")
	}
	if req.To.Before(req.From) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date range is inverted")
	}

	cacheKey := fmt.Sprintf("tracker:%s:%s:%s:%s:%s",
		tenantID, req.Matricule, req.From.Format("2006-01-02"), req.To.Format("2006-01-02"), req.Status)
	if cached, ok := s.fromCache(ctx, cacheKey); ok {
		return cached, nil
	}

	h, ok := s.dir.Resolve(tenantID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrTenantUnavailable, "tenant "+tenantID+" not configured")
	}
	deps, err := s.depsFor(h)
	if err != nil {
		return nil, err
	}

	sessions, err := deps.Sessions.ForStudentInRange(ctx, req.Matricule, req.From, req.To)
	if err != nil {
		return nil, err
	}

	ledger := s.ledgerBySession(ctx, deps, req)

	entries := make([]TrackerEntry, 0, len(sessions))
	for _, session := range sessions {
		entry, ok, err := s.trackSession(ctx, deps, session, req.Matricule, now)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if rec, found := ledger[session.ID]; found && rec.Justified {
			entry.Status = models.StatusExcused
			entry.Justified = true
		}
		if req.Status != "" && string(entry.Status) != req.Status {
			continue
		}
		entries = append(entries, entry)
	}

	s.toCache(ctx, cacheKey, entries)
	return entries, nil
}

func (s *TrackerService) trackSession(ctx context.Context, deps *TrackerDeps, session models.Session, matricule string, now time.Time) (TrackerEntry, bool, error) {
	devices, err := deps.Devices.ListByRooms(ctx, session.RoomIDs)
	if err != nil {
		return TrackerEntry{}, false, err
	}
	deviceIDs := make([]string, 0, len(devices))
	names := make(map[string]string, len(devices))
	for _, d := range devices {
		deviceIDs = append(deviceIDs, d.VendorID)
		names[d.VendorID] = d.Name
	}

	window := punch.Window{From: session.PointageAt, To: session.EndAt.Add(s.policy.Grace)}
	events, _, err := deps.Source.FetchEvents(ctx, deviceIDs, window)
	if err != nil {
		return TrackerEntry{}, false, err
	}
	events, _ = punch.Coalesce(events, deps.Dedup)

	qrEvents, err := deps.QR.EventsForSession(ctx, session.ID)
	if err != nil {
		return TrackerEntry{}, false, err
	}
	events = append(events, qrEvents...)

	own := punch.ByStudent(events)[matricule]
	res, decided := reconcile.Reconcile(session, matricule, own, now, s.policy)
	if !decided {
		return TrackerEntry{}, false, nil
	}

	entry := TrackerEntry{
		SessionID:   session.ID,
		Kind:        session.Kind,
		Date:        session.Date,
		StartAt:     session.StartAt,
		EndAt:       session.EndAt,
		Status:      res.Status,
		Provisional: res.Provisional,
		Entry:       res.Entry,
		Exit:        res.Exit,
		MinutesLate: res.MinutesLate,
		LeftEarly:   res.LeftEarly,
		PunchCount:  res.PunchCount,
	}
	entry.EntryDevice = deviceNameAt(own, res.Entry, names)
	entry.ExitDevice = deviceNameAt(own, res.Exit, names)
	return entry, true, nil
}

func (s *TrackerService) ledgerBySession(ctx context.Context, deps *TrackerDeps, req TrackerRequest) map[string]models.AttendanceRecord {
	out := make(map[string]models.AttendanceRecord)
	records, _, err := deps.Ledger.List(ctx, models.AttendanceRecordFilter{
		Matricule: req.Matricule,
		DateFrom:  &req.From,
		DateTo:    &req.To,
		PageSize:  200,
	})
	if err != nil {
		s.logger.Sugar().Warnw("ledger lookup failed, excused mapping skipped", "error", err)
		return out
	}
	for _, rec := range records {
		out[rec.SessionID] = rec
	}
	return out
}

func (s *TrackerService) fromCache(ctx context.Context, key string) ([]TrackerEntry, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var entries []TrackerEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false
	}
	return entries, true
}

func (s *TrackerService) toCache(ctx context.Context, key string, entries []TrackerEntry) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL).Err(); err != nil {
		s.logger.Sugar().Debugw("tracker cache write failed", "error", err)
	}
}

// Export renders the tracked detail as a CSV or PDF report for the reporting
// layer.
func (s *TrackerService) Export(ctx context.Context, tenantID string, req TrackerRequest, now time.Time, format string) ([]byte, string, error) {
	entries, err := s.Track(ctx, tenantID, req, now)
	if err != nil {
		return nil, "", err
	}

	table := export.Table{
		Title:   "attendance " + req.Matricule,
		Columns: []string{"session_id", "kind", "date", "status", "entry", "exit", "minutes_late"},
	}
	for _, e := range entries {
		row := map[string]string{
			"session_id":   e.SessionID,
			"kind":         string(e.Kind),
			"date":         e.Date.Format("2006-01-02"),
			"status":       string(e.Status),
			"minutes_late": fmt.Sprintf("%d", e.MinutesLate),
		}
		if e.Entry != nil {
			row["entry"] = e.Entry.Format("15:04")
		}
		if e.Exit != nil {
			row["exit"] = e.Exit.Format("15:04")
		}
		table.Rows = append(table.Rows, row)
	}

	switch format {
	case "pdf":
		out, err := export.PDF(table)
		return out, "application/pdf", err
	case "", "csv":
		out, err := export.CSV(table)
		return out, "text/csv", err
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unknown export format: "+format)
	}
}

func deviceNameAt(events []models.PunchEvent, at *time.Time, names map[string]string) string {
	if at == nil {
		return ""
	}
	for _, ev := range events {
		if ev.At.Equal(*at) {
			if ev.DeviceID == punch.QRDeviceID {
				return "qr"
			}
			return names[ev.DeviceID]
		}
	}
	return ""
}
