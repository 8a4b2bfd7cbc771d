package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/campus-dsi/pointage-api/internal/models"
)

func TestSessionPhase(t *testing.T) {
	session := testSession()

	assert.Equal(t, models.PhaseUpcoming, SessionPhase(session, at(session, 8, 0)))
	assert.Equal(t, models.PhaseOngoing, SessionPhase(session, at(session, 9, 0)))
	assert.Equal(t, models.PhaseOngoing, SessionPhase(session, at(session, 10, 30)))
	assert.Equal(t, models.PhaseOngoing, SessionPhase(session, at(session, 11, 0)))
	assert.Equal(t, models.PhasePast, SessionPhase(session, at(session, 11, 1)))
}

func TestDueForCutoff(t *testing.T) {
	session := testSession()
	cutoff := time.Hour

	assert.False(t, DueForCutoff(session, at(session, 11, 59), cutoff))
	assert.True(t, DueForCutoff(session, at(session, 12, 0), cutoff))
	assert.True(t, DueForCutoff(session, at(session, 13, 0), cutoff))
}
