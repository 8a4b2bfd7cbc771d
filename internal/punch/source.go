// Package punch fetches and normalizes raw presence events. The
// reconciliation engine never performs I/O itself; it consumes events handed
// over by a Source implementation.
package punch

import (
	"context"
	"time"

	"github.com/campus-dsi/pointage-api/internal/models"
)

// Window bounds a fetch to [From, To].
type Window struct {
	From time.Time
	To   time.Time
}

// Diagnostics counts events dropped during normalization. Malformed events
// never fail a session; they are dropped, counted and reported.
type Diagnostics struct {
	Malformed int `json:"malformed"`
	Coalesced int `json:"coalesced"`
}

// Source yields normalized punch events for a device set and time window,
// ordered by timestamp.
type Source interface {
	FetchEvents(ctx context.Context, deviceIDs []string, window Window) ([]models.PunchEvent, Diagnostics, error)
}
