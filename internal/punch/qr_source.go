package punch

import (
	"context"

	"github.com/campus-dsi/pointage-api/internal/models"
)

// QRDeviceID marks events originating from the QR channel rather than a
// physical reader.
const QRDeviceID = "qr"

type qrScanLister interface {
	AcceptedScans(ctx context.Context, sessionID string) ([]models.QRScan, error)
}

// QRSource exposes accepted QR scans as punch events so the secondary
// presence channel feeds the exact same reconciliation status space.
type QRSource struct {
	scans qrScanLister
}

// NewQRSource constructs the adapter.
func NewQRSource(scans qrScanLister) *QRSource {
	return &QRSource{scans: scans}
}

// EventsForSession returns one punch event per accepted scan of the session.
func (s *QRSource) EventsForSession(ctx context.Context, sessionID string) ([]models.PunchEvent, error) {
	scans, err := s.scans.AcceptedScans(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	events := make([]models.PunchEvent, 0, len(scans))
	for _, scan := range scans {
		events = append(events, models.PunchEvent{
			Matricule: scan.Matricule,
			DeviceID:  QRDeviceID,
			At:        scan.ScannedAt,
		})
	}
	return events, nil
}
