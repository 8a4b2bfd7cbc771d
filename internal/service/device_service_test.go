package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-dsi/pointage-api/internal/models"
	"github.com/campus-dsi/pointage-api/internal/tenant"
	"github.com/campus-dsi/pointage-api/pkg/config"
	appErrors "github.com/campus-dsi/pointage-api/pkg/errors"
)

type mockDeviceLister struct {
	devices []models.Device
}

func (m *mockDeviceLister) ListAll(ctx context.Context) ([]models.Device, error) {
	return m.devices, nil
}

func newTestDeviceService(lister *mockDeviceLister) *DeviceService {
	dir := tenant.NewDirectory([]config.TenantConfig{{ID: "campus-a"}}, nil)
	s := NewDeviceService(dir, nil)
	s.devicesFor = func(h *tenant.Handle) (deviceLister, error) { return lister, nil }
	return s
}

func TestDeviceExportCSV(t *testing.T) {
	svc := newTestDeviceService(&mockDeviceLister{devices: []models.Device{
		{VendorID: "dev-1", Name: "Entrance A"},
		{VendorID: "dev-2", Name: "Entrance B"},
	}})

	payload, err := svc.ExportCSV(context.Background(), "campus-a")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "device_id,device_name", lines[0])
	assert.Equal(t, "dev-1,Entrance A", lines[1])
	assert.Equal(t, "dev-2,Entrance B", lines[2])
}

func TestDeviceListUnknownTenant(t *testing.T) {
	svc := newTestDeviceService(&mockDeviceLister{})
	_, err := svc.List(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrTenantUnavailable))
}
