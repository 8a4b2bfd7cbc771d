// Package tenant resolves a tenant id to its device-API credentials and
// storage pool. Tenant scoping is always explicit: a Handle is threaded into
// every repository call, so no query can silently cross tenants through
// ambient state.
package tenant

import (
	"sync"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campus-dsi/pointage-api/internal/models"
	"github.com/campus-dsi/pointage-api/pkg/config"
	"github.com/campus-dsi/pointage-api/pkg/database"
	appErrors "github.com/campus-dsi/pointage-api/pkg/errors"
)

// Handle is the explicit tenant context: configuration plus a lazily opened
// storage pool. Handles are safe for concurrent use.
type Handle struct {
	cfg    config.TenantConfig
	logger *zap.Logger

	mu sync.Mutex
	db *sqlx.DB
}

// ID returns the tenant identifier.
func (h *Handle) ID() string { return h.cfg.ID }

// Config exposes the tenant configuration (device API credentials, policy).
func (h *Handle) Config() config.TenantConfig { return h.cfg }

// DB returns the tenant's storage pool, opening it on first use. A missing or
// unreachable DSN yields a TENANT_UNAVAILABLE error, never a panic.
func (h *Handle) DB() (*sqlx.DB, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.db != nil {
		return h.db, nil
	}
	if h.cfg.DatabaseDSN == "" {
		return nil, appErrors.Clone(appErrors.ErrTenantUnavailable, "tenant "+h.cfg.ID+" has no storage configured")
	}
	db, err := database.Open(h.cfg.DatabaseDSN, database.Options{
		MaxOpenConns: h.cfg.MaxOpenConns,
		MaxIdleConns: h.cfg.MaxIdleConns,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTenantUnavailable.Code, appErrors.ErrTenantUnavailable.Status, "tenant "+h.cfg.ID+" storage unreachable")
	}
	h.db = db
	return h.db, nil
}

// PersistSet returns the statuses this tenant materializes into ledger rows.
func (h *Handle) PersistSet() map[models.AttendanceStatus]bool {
	set := make(map[models.AttendanceStatus]bool, len(h.cfg.PersistStatus))
	for _, s := range h.cfg.PersistStatus {
		set[models.AttendanceStatus(s)] = true
	}
	return set
}

// Close releases the storage pool if it was opened.
func (h *Handle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.db != nil {
		_ = h.db.Close()
		h.db = nil
	}
}

// Directory maps tenant ids to handles built from the static registry.
type Directory struct {
	order   []string
	handles map[string]*Handle
}

// NewDirectory builds handles for every configured tenant. Tenants with
// incomplete configuration are still listed; their handles report unavailable
// lazily so that the batch can surface them as warnings.
func NewDirectory(cfgs []config.TenantConfig, logger *zap.Logger) *Directory {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Directory{handles: make(map[string]*Handle, len(cfgs))}
	for _, cfg := range cfgs {
		d.order = append(d.order, cfg.ID)
		d.handles[cfg.ID] = &Handle{cfg: cfg, logger: logger.With(zap.String("tenant", cfg.ID))}
	}
	return d
}

// Resolve returns the handle for a tenant id. The boolean miss is the only
// signal for a missing tenant; callers branch on it rather than on errors.
func (d *Directory) Resolve(id string) (*Handle, bool) {
	h, ok := d.handles[id]
	return h, ok
}

// IDs lists tenants in registry order.
func (d *Directory) IDs() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// Close releases every opened tenant pool.
func (d *Directory) Close() {
	for _, h := range d.handles {
		h.Close()
	}
}
