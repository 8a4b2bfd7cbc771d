package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/campus-dsi/pointage-api/internal/models"
	"github.com/campus-dsi/pointage-api/internal/repository"
	"github.com/campus-dsi/pointage-api/internal/tenant"
	appErrors "github.com/campus-dsi/pointage-api/pkg/errors"
)

type qrStore interface {
	CreateSession(ctx context.Context, qr *models.QRSession) error
	FindSession(ctx context.Context, id string) (*models.QRSession, error)
	InsertScan(ctx context.Context, scan *models.QRScan) error
}

type qrClaims struct {
	QRSessionID string `json:"qid"`
	SessionID   string `json:"sid"`
	jwt.RegisteredClaims
}

// QRService issues short-lived signed tokens for the QR presence channel and
// records scans against them. Scans after expiry are rejected; duplicates per
// student are absorbed once by Redis and authoritatively by the unique key.
type QRService struct {
	dir    *tenant.Directory
	secret []byte
	ttl    time.Duration
	redis  *redis.Client
	logger *zap.Logger

	storeFor func(h *tenant.Handle) (qrStore, error)
}

// NewQRService constructs the QR service. redis may be nil.
func NewQRService(dir *tenant.Directory, secret string, ttl time.Duration, rdb *redis.Client, logger *zap.Logger) *QRService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &QRService{dir: dir, secret: []byte(secret), ttl: ttl, redis: rdb, logger: logger}
	s.storeFor = func(h *tenant.Handle) (qrStore, error) {
		db, err := h.DB()
		if err != nil {
			return nil, err
		}
		return repository.NewQRRepository(db), nil
	}
	return s
}

// Issue creates a QR session for a scheduled session and returns the signed
// token with its expiry.
func (s *QRService) Issue(ctx context.Context, tenantID, sessionID string, now time.Time) (*models.QRSession, error) {
	if sessionID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session id is required")
	}
	store, err := s.resolveStore(tenantID)
	if err != nil {
		return nil, err
	}

	qr := &models.QRSession{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		ExpiresAt: now.Add(s.ttl),
	}

	// The token carries its own expiry; the stored row mirrors it so that
	// reporting can audit issued sessions.
	claims := qrClaims{
		QRSessionID: qr.ID,
		SessionID:   sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(qr.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign qr token: %w", err)
	}
	qr.Token = token

	if err := store.CreateSession(ctx, qr); err != nil {
		return nil, err
	}
	return qr, nil
}

// Scan records a student's scan of a QR token. Expired tokens yield
// QR_EXPIRED; a second scan by the same student yields QR_DUPLICATE.
func (s *QRService) Scan(ctx context.Context, tenantID, token, matricule string, now time.Time) (*models.QRScan, error) {
	if matricule == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "matricule is required")
	}
	claims, err := s.verify(token, now)
	if err != nil {
		return nil, err
	}
	store, err := s.resolveStore(tenantID)
	if err != nil {
		return nil, err
	}

	qr, err := store.FindSession(ctx, claims.QRSessionID)
	if err != nil {
		return nil, err
	}
	if now.After(qr.ExpiresAt) {
		return nil, appErrors.Clone(appErrors.ErrQRExpired, "")
	}

	if s.redis != nil {
		key := fmt.Sprintf("qrscan:%s:%s:%s", tenantID, qr.ID, matricule)
		set, err := s.redis.SetNX(ctx, key, 1, s.ttl).Result()
		if err == nil && !set {
			return nil, appErrors.Clone(appErrors.ErrQRDuplicate, "")
		}
	}

	scan := &models.QRScan{
		QRSessionID: qr.ID,
		Matricule:   matricule,
		ScannedAt:   now,
		Status:      models.QRScanAccepted,
	}
	if err := store.InsertScan(ctx, scan); err != nil {
		return nil, err
	}
	return scan, nil
}

func (s *QRService) verify(token string, now time.Time) (*qrClaims, error) {
	claims := &qrClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrQRExpired, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid qr token")
	}
	if !parsed.Valid || claims.QRSessionID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid qr token")
	}
	return claims, nil
}

func (s *QRService) resolveStore(tenantID string) (qrStore, error) {
	h, ok := s.dir.Resolve(tenantID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrTenantUnavailable, "tenant "+tenantID+" not configured")
	}
	return s.storeFor(h)
}
