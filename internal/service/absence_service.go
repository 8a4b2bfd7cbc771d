package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campus-dsi/pointage-api/internal/models"
	"github.com/campus-dsi/pointage-api/internal/repository"
	"github.com/campus-dsi/pointage-api/internal/tenant"
	appErrors "github.com/campus-dsi/pointage-api/pkg/errors"
)

type absenceLedger interface {
	List(ctx context.Context, filter models.AttendanceRecordFilter) ([]models.AttendanceRecord, int, error)
	Summary(ctx context.Context, matricule string, from, to *time.Time) (*models.AbsenceSummary, error)
	UpdateJustification(ctx context.Context, id string, justified bool, motif, justificatif *string) (*models.AttendanceRecord, error)
}

// AbsenceService is the query surface over the persisted ledger, plus the one
// mutable operation: justification edits. Reconciliation-derived fields are
// never written through this service.
type AbsenceService struct {
	dir       *tenant.Directory
	validator *validator.Validate
	logger    *zap.Logger

	ledgerFor func(h *tenant.Handle) (absenceLedger, error)
}

// NewAbsenceService constructs the service.
func NewAbsenceService(dir *tenant.Directory, validate *validator.Validate, logger *zap.Logger) *AbsenceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AbsenceService{dir: dir, validator: validate, logger: logger}
	s.ledgerFor = func(h *tenant.Handle) (absenceLedger, error) {
		db, err := h.DB()
		if err != nil {
			return nil, err
		}
		return repository.NewAbsenceRepository(db), nil
	}
	return s
}

// ListRequest filters the ledger listing.
type ListRequest struct {
	Matricule   string
	SessionKind string `validate:"omitempty,oneof=course exam makeup"`
	DateFrom    *time.Time
	DateTo      *time.Time
	Justified   *bool
	Page        int
	PageSize    int
}

// List returns ledger rows with pagination metadata.
func (s *AbsenceService) List(ctx context.Context, tenantID string, req ListRequest) ([]models.AttendanceRecord, *models.Pagination, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid list request")
	}
	ledger, err := s.resolveLedger(tenantID)
	if err != nil {
		return nil, nil, err
	}

	filter := models.AttendanceRecordFilter{
		Matricule:   req.Matricule,
		SessionKind: models.SessionKind(req.SessionKind),
		DateFrom:    req.DateFrom,
		DateTo:      req.DateTo,
		Justified:   req.Justified,
		Page:        req.Page,
		PageSize:    req.PageSize,
	}
	rows, total, err := ledger.List(ctx, filter)
	if err != nil {
		return nil, nil, err
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	size := req.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	return rows, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Summary aggregates absence counts for one student.
func (s *AbsenceService) Summary(ctx context.Context, tenantID, matricule string, from, to *time.Time) (*models.AbsenceSummary, error) {
	if matricule == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "matricule is required")
	}
	ledger, err := s.resolveLedger(tenantID)
	if err != nil {
		return nil, err
	}
	return ledger.Summary(ctx, matricule, from, to)
}

// JustifyRequest edits the justification columns of one ledger row.
type JustifyRequest struct {
	Justified    bool    `json:"justified"`
	Motif        *string `json:"motif" validate:"omitempty,max=500"`
	Justificatif *string `json:"justificatif" validate:"omitempty,max=255"`
}

// Justify updates justified/motif/justificatif on a record and nothing else.
func (s *AbsenceService) Justify(ctx context.Context, tenantID, recordID string, req JustifyRequest) (*models.AttendanceRecord, error) {
	if recordID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "record id is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid justification")
	}
	ledger, err := s.resolveLedger(tenantID)
	if err != nil {
		return nil, err
	}
	return ledger.UpdateJustification(ctx, recordID, req.Justified, req.Motif, req.Justificatif)
}

func (s *AbsenceService) resolveLedger(tenantID string) (absenceLedger, error) {
	h, ok := s.dir.Resolve(tenantID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrTenantUnavailable, "tenant "+tenantID+" not configured")
	}
	return s.ledgerFor(h)
}
