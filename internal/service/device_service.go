package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/campus-dsi/pointage-api/internal/models"
	"github.com/campus-dsi/pointage-api/internal/repository"
	"github.com/campus-dsi/pointage-api/internal/tenant"
	appErrors "github.com/campus-dsi/pointage-api/pkg/errors"
	"github.com/campus-dsi/pointage-api/pkg/export"
)

type deviceLister interface {
	ListAll(ctx context.Context) ([]models.Device, error)
}

// DeviceService exposes a tenant's device directory for operational
// verification against the vendor console.
type DeviceService struct {
	dir    *tenant.Directory
	logger *zap.Logger

	devicesFor func(h *tenant.Handle) (deviceLister, error)
}

// NewDeviceService constructs the service.
func NewDeviceService(dir *tenant.Directory, logger *zap.Logger) *DeviceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &DeviceService{dir: dir, logger: logger}
	s.devicesFor = func(h *tenant.Handle) (deviceLister, error) {
		db, err := h.DB()
		if err != nil {
			return nil, err
		}
		return repository.NewDeviceRepository(db), nil
	}
	return s
}

// List returns the tenant's devices.
func (s *DeviceService) List(ctx context.Context, tenantID string) ([]models.Device, error) {
	h, ok := s.dir.Resolve(tenantID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrTenantUnavailable, "tenant "+tenantID+" not configured")
	}
	devices, err := s.devicesFor(h)
	if err != nil {
		return nil, err
	}
	return devices.ListAll(ctx)
}

// ExportCSV dumps the device directory as (device_id, device_name) rows.
func (s *DeviceService) ExportCSV(ctx context.Context, tenantID string) ([]byte, error) {
	devices, err := s.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	table := export.Table{Columns: []string{"device_id", "device_name"}}
	for _, d := range devices {
		table.Rows = append(table.Rows, map[string]string{
			"device_id":   d.VendorID,
			"device_name": d.Name,
		})
	}
	return export.CSV(table)
}
