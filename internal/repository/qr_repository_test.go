package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-dsi/pointage-api/internal/models"
	appErrors "github.com/campus-dsi/pointage-api/pkg/errors"
)

func TestQRRepositoryCreateSession(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewQRRepository(db)

	mock.ExpectExec("INSERT INTO qr_sessions").
		WithArgs(sqlmock.AnyArg(), "sess-1", "signed-token", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	qr := &models.QRSession{
		SessionID: "sess-1",
		Token:     "signed-token",
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}
	require.NoError(t, repo.CreateSession(context.Background(), qr))
	assert.NotEmpty(t, qr.ID)
	assert.False(t, qr.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQRRepositoryFindSessionNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewQRRepository(db)

	mock.ExpectQuery("SELECT id, session_id, token, expires_at, created_at FROM qr_sessions").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindSession(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQRRepositoryInsertScan(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewQRRepository(db)

	mock.ExpectQuery("INSERT INTO qr_scans").
		WithArgs(sqlmock.AnyArg(), "qr-1", "E12345", sqlmock.AnyArg(), "accepted").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("scan-1"))

	scan := &models.QRScan{
		QRSessionID: "qr-1",
		Matricule:   "E12345",
		ScannedAt:   time.Now(),
		Status:      models.QRScanAccepted,
	}
	require.NoError(t, repo.InsertScan(context.Background(), scan))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQRRepositoryInsertScanDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewQRRepository(db)

	// ON CONFLICT DO NOTHING returns no row for a duplicate.
	mock.ExpectQuery("INSERT INTO qr_scans").
		WithArgs(sqlmock.AnyArg(), "qr-1", "E12345", sqlmock.AnyArg(), "accepted").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	scan := &models.QRScan{
		QRSessionID: "qr-1",
		Matricule:   "E12345",
		ScannedAt:   time.Now(),
		Status:      models.QRScanAccepted,
	}
	err := repo.InsertScan(context.Background(), scan)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrQRDuplicate))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQRRepositoryAcceptedScans(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewQRRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "qr_session_id", "matricule", "scanned_at", "status"}).
		AddRow("scan-1", "qr-1", "E12345", now, "accepted").
		AddRow("scan-2", "qr-1", "E67890", now.Add(time.Minute), "accepted")
	mock.ExpectQuery("SELECT sc.id, sc.qr_session_id").
		WithArgs("sess-1", "accepted").
		WillReturnRows(rows)

	scans, err := repo.AcceptedScans(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, scans, 2)
	assert.Equal(t, "E12345", scans[0].Matricule)
	assert.NoError(t, mock.ExpectationsWereMet())
}
