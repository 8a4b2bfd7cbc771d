package reconcile

import (
	"time"

	"github.com/campus-dsi/pointage-api/internal/models"
)

// SessionPhase classifies a session relative to now. Every caller shares this
// one function instead of re-deriving clock comparisons per session type.
func SessionPhase(session models.Session, now time.Time) models.SessionPhase {
	switch {
	case now.Before(session.StartAt):
		return models.PhaseUpcoming
	case now.After(session.EndAt):
		return models.PhasePast
	default:
		return models.PhaseOngoing
	}
}

// DueForCutoff reports whether a session's cutoff has elapsed, making absent
// students finalizable.
func DueForCutoff(session models.Session, now time.Time, cutoff time.Duration) bool {
	return !now.Before(session.EndAt.Add(cutoff))
}
