package models

// Device is a biometric reader owned by a room. A room may own several
// devices, for instance separate entry and exit readers.
type Device struct {
	ID       string `db:"id" json:"id"`
	VendorID string `db:"vendor_id" json:"vendor_id"`
	Name     string `db:"name" json:"name"`
	RoomID   string `db:"room_id" json:"room_id"`
	TenantID string `db:"tenant_id" json:"tenant_id"`
}
