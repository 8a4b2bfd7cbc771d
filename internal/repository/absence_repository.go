package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campus-dsi/pointage-api/internal/models"
	appErrors "github.com/campus-dsi/pointage-api/pkg/errors"
)

// AbsenceRepository persists the attendance ledger. The unique key on
// (matricule, session_id) is the only concurrency control: concurrent or
// repeated materialization runs converge through the upsert.
type AbsenceRepository struct {
	db *sqlx.DB
}

// NewAbsenceRepository constructs the repository over a tenant pool.
func NewAbsenceRepository(db *sqlx.DB) *AbsenceRepository {
	return &AbsenceRepository{db: db}
}

// Upsert inserts or refreshes the ledger row for (matricule, session).
// Reconciliation-derived columns are updated in place; justified, motif and
// justificatif belong to manual edits and are deliberately absent from the
// update list. The returned flag is true when a new row was created.
func (r *AbsenceRepository) Upsert(ctx context.Context, rec *models.AttendanceRecord) (bool, error) {
	now := time.Now().UTC()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	// xmax = 0 only holds for freshly inserted tuples, which distinguishes
	// created from updated without a second round trip.
	query := `INSERT INTO absences (id, session_kind, session_id, matricule, date, status, minutes_late, justified, motif, justificatif, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, false, NULL, NULL, $8, $9)
ON CONFLICT (matricule, session_id)
DO UPDATE SET session_kind = EXCLUDED.session_kind, date = EXCLUDED.date,
    status = EXCLUDED.status, minutes_late = EXCLUDED.minutes_late, updated_at = EXCLUDED.updated_at
RETURNING (xmax = 0) AS created`
	var created bool
	if err := r.db.GetContext(ctx, &created, query,
		rec.ID, rec.SessionKind, rec.SessionID, rec.Matricule, rec.Date,
		rec.Status, rec.MinutesLate, rec.CreatedAt, rec.UpdatedAt); err != nil {
		return false, fmt.Errorf("upsert absence: %w", err)
	}
	return created, nil
}

// List returns ledger rows matching the filter with pagination.
func (r *AbsenceRepository) List(ctx context.Context, filter models.AttendanceRecordFilter) ([]models.AttendanceRecord, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.Matricule != "" {
		where = append(where, fmt.Sprintf("matricule = $%d", len(args)+1))
		args = append(args, filter.Matricule)
	}
	if filter.SessionKind != "" {
		where = append(where, fmt.Sprintf("session_kind = $%d", len(args)+1))
		args = append(args, filter.SessionKind)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	if filter.Justified != nil {
		where = append(where, fmt.Sprintf("justified = $%d", len(args)+1))
		args = append(args, *filter.Justified)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, session_kind, session_id, matricule, date, status, minutes_late, justified, motif, justificatif, created_at, updated_at
FROM absences WHERE %s
ORDER BY date DESC, matricule
LIMIT %d OFFSET %d`, whereClause, size, offset)

	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list absences: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM absences WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count absences: %w", err)
	}
	return rows, total, nil
}

// Summary aggregates ledger counts for a student within a date range.
func (r *AbsenceRepository) Summary(ctx context.Context, matricule string, from, to *time.Time) (*models.AbsenceSummary, error) {
	where := []string{"matricule = $1"}
	args := []interface{}{matricule}
	if from != nil {
		where = append(where, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *from)
	}
	if to != nil {
		where = append(where, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *to)
	}
	query := fmt.Sprintf(`SELECT status, justified, COUNT(*) AS cnt FROM absences WHERE %s GROUP BY status, justified`, strings.Join(where, " AND "))

	rows := []struct {
		Status    string `db:"status"`
		Justified bool   `db:"justified"`
		Count     int    `db:"cnt"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("absence summary: %w", err)
	}

	summary := &models.AbsenceSummary{}
	for _, row := range rows {
		switch models.AttendanceStatus(row.Status) {
		case models.StatusAbsent:
			summary.Absences += row.Count
		case models.StatusLate:
			summary.Lates += row.Count
		}
		if row.Justified {
			summary.Justified += row.Count
		} else {
			summary.Unjustified += row.Count
		}
		summary.Total += row.Count
	}
	return summary, nil
}

// UpdateJustification mutates only the justification columns of a ledger row.
// The reconciliation-derived fields are never part of this statement.
func (r *AbsenceRepository) UpdateJustification(ctx context.Context, id string, justified bool, motif, justificatif *string) (*models.AttendanceRecord, error) {
	query := `UPDATE absences
SET justified = $2, motif = $3, justificatif = $4, updated_at = $5
WHERE id = $1
RETURNING id, session_kind, session_id, matricule, date, status, minutes_late, justified, motif, justificatif, created_at, updated_at`
	var rec models.AttendanceRecord
	err := r.db.GetContext(ctx, &rec, query, id, justified, motif, justificatif, time.Now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "absence record not found")
		}
		return nil, fmt.Errorf("update justification: %w", err)
	}
	return &rec, nil
}
