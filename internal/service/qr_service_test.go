package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-dsi/pointage-api/internal/models"
	"github.com/campus-dsi/pointage-api/internal/tenant"
	"github.com/campus-dsi/pointage-api/pkg/config"
	appErrors "github.com/campus-dsi/pointage-api/pkg/errors"
)

type mockQRStore struct {
	sessions map[string]*models.QRSession
	scanned  map[string]bool
	scans    []models.QRScan
}

func (m *mockQRStore) CreateSession(ctx context.Context, qr *models.QRSession) error {
	if m.sessions == nil {
		m.sessions = make(map[string]*models.QRSession)
	}
	m.sessions[qr.ID] = qr
	return nil
}

func (m *mockQRStore) FindSession(ctx context.Context, id string) (*models.QRSession, error) {
	if qr, ok := m.sessions[id]; ok {
		return qr, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "qr session not found")
}

func (m *mockQRStore) InsertScan(ctx context.Context, scan *models.QRScan) error {
	key := scan.QRSessionID + "|" + scan.Matricule
	if m.scanned == nil {
		m.scanned = make(map[string]bool)
	}
	if m.scanned[key] {
		return appErrors.Clone(appErrors.ErrQRDuplicate, "")
	}
	m.scanned[key] = true
	m.scans = append(m.scans, *scan)
	return nil
}

func newTestQRService(store *mockQRStore, ttl time.Duration) *QRService {
	dir := tenant.NewDirectory([]config.TenantConfig{{ID: "campus-a"}}, nil)
	s := NewQRService(dir, "test-secret", ttl, nil, nil)
	s.storeFor = func(h *tenant.Handle) (qrStore, error) { return store, nil }
	return s
}

func TestQRIssueAndScan(t *testing.T) {
	store := &mockQRStore{}
	svc := newTestQRService(store, 10*time.Minute)

	now := time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC)
	qr, err := svc.Issue(context.Background(), "campus-a", "sess-1", now)
	require.NoError(t, err)
	assert.NotEmpty(t, qr.Token)
	assert.Equal(t, now.Add(10*time.Minute), qr.ExpiresAt)
	// The stored row carries the signed token.
	assert.Equal(t, qr.Token, store.sessions[qr.ID].Token)

	scan, err := svc.Scan(context.Background(), "campus-a", qr.Token, "E12345", now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, models.QRScanAccepted, scan.Status)
	assert.Equal(t, "E12345", scan.Matricule)
	assert.Equal(t, qr.ID, scan.QRSessionID)
}

func TestQRScanExpiredToken(t *testing.T) {
	store := &mockQRStore{}
	svc := newTestQRService(store, 10*time.Minute)

	now := time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC)
	qr, err := svc.Issue(context.Background(), "campus-a", "sess-1", now)
	require.NoError(t, err)

	_, err = svc.Scan(context.Background(), "campus-a", qr.Token, "E12345", now.Add(11*time.Minute))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrQRExpired))
	assert.Empty(t, store.scans)
}

func TestQRScanDuplicateStudent(t *testing.T) {
	store := &mockQRStore{}
	svc := newTestQRService(store, 10*time.Minute)

	now := time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC)
	qr, err := svc.Issue(context.Background(), "campus-a", "sess-1", now)
	require.NoError(t, err)

	_, err = svc.Scan(context.Background(), "campus-a", qr.Token, "E12345", now.Add(time.Minute))
	require.NoError(t, err)

	_, err = svc.Scan(context.Background(), "campus-a", qr.Token, "E12345", now.Add(2*time.Minute))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrQRDuplicate))
	assert.Len(t, store.scans, 1)

	// A different student on the same token is still accepted.
	_, err = svc.Scan(context.Background(), "campus-a", qr.Token, "E67890", now.Add(3*time.Minute))
	require.NoError(t, err)
}

func TestQRScanTamperedToken(t *testing.T) {
	store := &mockQRStore{}
	svc := newTestQRService(store, 10*time.Minute)

	now := time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC)
	qr, err := svc.Issue(context.Background(), "campus-a", "sess-1", now)
	require.NoError(t, err)

	_, err = svc.Scan(context.Background(), "campus-a", qr.Token+"x", "E12345", now)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestQRIssueRequiresSession(t *testing.T) {
	svc := newTestQRService(&mockQRStore{}, 10*time.Minute)
	_, err := svc.Issue(context.Background(), "campus-a", "", time.Now())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestQRScanUnknownTenant(t *testing.T) {
	svc := newTestQRService(&mockQRStore{}, 10*time.Minute)
	now := time.Now()
	qr, err := svc.Issue(context.Background(), "campus-a", "sess-1", now)
	require.NoError(t, err)

	_, err = svc.Scan(context.Background(), "ghost", qr.Token, "E12345", now)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrTenantUnavailable))
}
