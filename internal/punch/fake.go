package punch

import (
	"context"

	"github.com/campus-dsi/pointage-api/internal/models"
)

// Fake is an in-memory Source for deterministic tests: it returns canned
// events restricted to the requested device set and window, or a fixed error.
type Fake struct {
	Events []models.PunchEvent
	Diag   Diagnostics
	Err    error

	Calls int
}

// FetchEvents implements Source.
func (f *Fake) FetchEvents(_ context.Context, deviceIDs []string, window Window) ([]models.PunchEvent, Diagnostics, error) {
	f.Calls++
	if f.Err != nil {
		return nil, f.Diag, f.Err
	}
	devices := make(map[string]bool, len(deviceIDs))
	for _, id := range deviceIDs {
		devices[id] = true
	}
	out := make([]models.PunchEvent, 0, len(f.Events))
	for _, ev := range f.Events {
		if len(devices) > 0 && !devices[ev.DeviceID] {
			continue
		}
		if ev.At.Before(window.From) || ev.At.After(window.To) {
			continue
		}
		out = append(out, ev)
	}
	return out, f.Diag, nil
}
