package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campus-dsi/pointage-api/internal/models"
	appErrors "github.com/campus-dsi/pointage-api/pkg/errors"
)

// QRRepository persists the QR presence channel: issued QR sessions and their
// scans. Scan dedup per (qr_session, matricule) is enforced by the unique key.
type QRRepository struct {
	db *sqlx.DB
}

// NewQRRepository constructs the repository over a tenant pool.
func NewQRRepository(db *sqlx.DB) *QRRepository {
	return &QRRepository{db: db}
}

// CreateSession stores a freshly issued QR session.
func (r *QRRepository) CreateSession(ctx context.Context, qr *models.QRSession) error {
	if qr.ID == "" {
		qr.ID = uuid.NewString()
	}
	if qr.CreatedAt.IsZero() {
		qr.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO qr_sessions (id, session_id, token, expires_at, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, qr.ID, qr.SessionID, qr.Token, qr.ExpiresAt, qr.CreatedAt); err != nil {
		return fmt.Errorf("create qr session: %w", err)
	}
	return nil
}

// FindSession returns a QR session by id.
func (r *QRRepository) FindSession(ctx context.Context, id string) (*models.QRSession, error) {
	query := `SELECT id, session_id, token, expires_at, created_at FROM qr_sessions WHERE id = $1`
	var qr models.QRSession
	if err := r.db.GetContext(ctx, &qr, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "qr session not found")
		}
		return nil, fmt.Errorf("find qr session: %w", err)
	}
	return &qr, nil
}

// InsertScan records one accepted scan. A duplicate scan for the same student
// in the same QR session hits the unique key and reports QR_DUPLICATE; the
// constraint, not any lock, is what makes scans idempotent.
func (r *QRRepository) InsertScan(ctx context.Context, scan *models.QRScan) error {
	if scan.ID == "" {
		scan.ID = uuid.NewString()
	}
	query := `INSERT INTO qr_scans (id, qr_session_id, matricule, scanned_at, status)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (qr_session_id, matricule) DO NOTHING
RETURNING id`
	var insertedID string
	err := r.db.GetContext(ctx, &insertedID, query, scan.ID, scan.QRSessionID, scan.Matricule, scan.ScannedAt, scan.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrQRDuplicate, "")
		}
		return fmt.Errorf("insert qr scan: %w", err)
	}
	return nil
}

// AcceptedScans lists accepted scans for a scheduled session, joining through
// every QR session issued for it.
func (r *QRRepository) AcceptedScans(ctx context.Context, sessionID string) ([]models.QRScan, error) {
	query := `SELECT sc.id, sc.qr_session_id, sc.matricule, sc.scanned_at, sc.status
FROM qr_scans sc
JOIN qr_sessions qs ON qs.id = sc.qr_session_id
WHERE qs.session_id = $1 AND sc.status = $2
ORDER BY sc.scanned_at`
	var scans []models.QRScan
	if err := r.db.SelectContext(ctx, &scans, query, sessionID, models.QRScanAccepted); err != nil {
		return nil, fmt.Errorf("list accepted scans: %w", err)
	}
	return scans, nil
}
