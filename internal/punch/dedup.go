package punch

import (
	"time"

	"github.com/campus-dsi/pointage-api/internal/models"
)

// Coalesce collapses duplicate taps: repeated events from the same student on
// the same device within the dedup window keep only the first. Input must be
// ordered by timestamp; output keeps that order.
func Coalesce(events []models.PunchEvent, window time.Duration) ([]models.PunchEvent, int) {
	if window <= 0 || len(events) < 2 {
		return events, 0
	}

	type key struct {
		matricule string
		device    string
	}
	lastKept := make(map[key]time.Time)
	out := make([]models.PunchEvent, 0, len(events))
	dropped := 0
	for _, ev := range events {
		k := key{matricule: ev.Matricule, device: ev.DeviceID}
		if prev, ok := lastKept[k]; ok && ev.At.Sub(prev) < window {
			dropped++
			continue
		}
		lastKept[k] = ev.At
		out = append(out, ev)
	}
	return out, dropped
}

// ByStudent groups events per matricule, preserving timestamp order.
func ByStudent(events []models.PunchEvent) map[string][]models.PunchEvent {
	grouped := make(map[string][]models.PunchEvent)
	for _, ev := range events {
		grouped[ev.Matricule] = append(grouped[ev.Matricule], ev)
	}
	return grouped
}
