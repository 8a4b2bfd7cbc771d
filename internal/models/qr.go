package models

import "time"

// QRSession is an alternate presence channel for a scheduled session: a
// short-lived token that students scan instead of punching a reader.
type QRSession struct {
	ID        string    `db:"id" json:"id"`
	SessionID string    `db:"session_id" json:"session_id"`
	Token     string    `db:"token" json:"token"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// QRScanStatus records the outcome of a scan attempt.
type QRScanStatus string

const (
	QRScanAccepted  QRScanStatus = "accepted"
	QRScanExpired   QRScanStatus = "expired"
	QRScanDuplicate QRScanStatus = "duplicate"
)

// QRScan is one accepted (or rejected) scan. Accepted scans feed the same
// reconciliation status space as device punches.
type QRScan struct {
	ID          string       `db:"id" json:"id"`
	QRSessionID string       `db:"qr_session_id" json:"qr_session_id"`
	Matricule   string       `db:"matricule" json:"matricule"`
	ScannedAt   time.Time    `db:"scanned_at" json:"scanned_at"`
	Status      QRScanStatus `db:"status" json:"status"`
}
