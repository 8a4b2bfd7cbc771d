package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/campus-dsi/pointage-api/internal/models"
)

// DeviceRepository maps rooms to the biometric devices that serve them.
type DeviceRepository struct {
	db *sqlx.DB
}

// NewDeviceRepository constructs the repository over a tenant pool.
func NewDeviceRepository(db *sqlx.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// ListByRooms returns every device owned by any of the given rooms. Multi-room
// sessions accept punches from any of their rooms' devices.
func (r *DeviceRepository) ListByRooms(ctx context.Context, roomIDs []string) ([]models.Device, error) {
	if len(roomIDs) == 0 {
		return nil, nil
	}
	query := `SELECT id, vendor_id, name, room_id, tenant_id FROM devices WHERE room_id = ANY($1) ORDER BY room_id, id`
	var devices []models.Device
	if err := r.db.SelectContext(ctx, &devices, query, pq.Array(roomIDs)); err != nil {
		return nil, fmt.Errorf("list devices by rooms: %w", err)
	}
	return devices, nil
}

// ListAll returns the tenant's full device directory, for operational
// verification against the vendor console.
func (r *DeviceRepository) ListAll(ctx context.Context) ([]models.Device, error) {
	query := `SELECT id, vendor_id, name, room_id, tenant_id FROM devices ORDER BY id`
	var devices []models.Device
	if err := r.db.SelectContext(ctx, &devices, query); err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return devices, nil
}
