package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-dsi/pointage-api/internal/models"
)

var testLoc = time.UTC

func testSession() models.Session {
	day := time.Date(2026, 3, 16, 0, 0, 0, 0, testLoc)
	return models.Session{
		ID:           "sess-1",
		TenantID:     "campus-a",
		Kind:         models.SessionCourse,
		Date:         day,
		StartAt:      day.Add(9 * time.Hour),
		EndAt:        day.Add(11 * time.Hour),
		PointageAt:   day.Add(8*time.Hour + 30*time.Minute),
		ToleranceMin: 15,
	}
}

func testPolicy() Policy {
	return Policy{
		Grace:          30 * time.Minute,
		Cutoff:         time.Hour,
		EarlyThreshold: 30 * time.Minute,
	}
}

func at(session models.Session, hour, minute int) time.Time {
	return time.Date(session.Date.Year(), session.Date.Month(), session.Date.Day(), hour, minute, 0, 0, testLoc)
}

func punches(session models.Session, times ...[2]int) []models.PunchEvent {
	events := make([]models.PunchEvent, 0, len(times))
	for _, hm := range times {
		events = append(events, models.PunchEvent{
			Matricule: "E12345",
			DeviceID:  "dev-1",
			At:        at(session, hm[0], hm[1]),
		})
	}
	return events
}

func TestReconcileOnTimeEntry(t *testing.T) {
	session := testSession()
	now := at(session, 12, 30)

	res, ok := Reconcile(session, "E12345", punches(session, [2]int{9, 10}, [2]int{11, 0}), now, testPolicy())
	require.True(t, ok)
	assert.Equal(t, models.StatusPresent, res.Status)
	assert.Equal(t, 0, res.MinutesLate)
	assert.False(t, res.LeftEarly)
	require.NotNil(t, res.Entry)
	assert.Equal(t, at(session, 9, 10), *res.Entry)
	require.NotNil(t, res.Exit)
	assert.Equal(t, at(session, 11, 0), *res.Exit)
}

func TestReconcileLateEntry(t *testing.T) {
	session := testSession()
	now := at(session, 12, 30)

	res, ok := Reconcile(session, "E12345", punches(session, [2]int{9, 20}, [2]int{11, 0}), now, testPolicy())
	require.True(t, ok)
	assert.Equal(t, models.StatusLate, res.Status)
	assert.Equal(t, 5, res.MinutesLate)
}

func TestReconcileToleranceBoundaryIsInclusive(t *testing.T) {
	session := testSession()
	now := at(session, 12, 30)

	// Entry exactly at start + tolerance is still on time.
	res, ok := Reconcile(session, "E12345", punches(session, [2]int{9, 15}, [2]int{11, 0}), now, testPolicy())
	require.True(t, ok)
	assert.Equal(t, models.StatusPresent, res.Status)
	assert.Equal(t, 0, res.MinutesLate)

	res, ok = Reconcile(session, "E12345", punches(session, [2]int{9, 16}, [2]int{11, 0}), now, testPolicy())
	require.True(t, ok)
	assert.Equal(t, models.StatusLate, res.Status)
	assert.Equal(t, 1, res.MinutesLate)
}

func TestReconcileNoPunchBeforeCutoff(t *testing.T) {
	session := testSession()
	// Cutoff is end + 1h = 12:00; at 11:45 the student is not decidable yet.
	now := at(session, 11, 45)

	res, ok := Reconcile(session, "E12345", nil, now, testPolicy())
	assert.False(t, ok)
	assert.Empty(t, res.Status)
}

func TestReconcileNoPunchAfterCutoff(t *testing.T) {
	session := testSession()
	now := at(session, 12, 0)

	res, ok := Reconcile(session, "E12345", nil, now, testPolicy())
	require.True(t, ok)
	assert.Equal(t, models.StatusAbsent, res.Status)
	assert.Equal(t, "E12345", res.Matricule)
	assert.Equal(t, "sess-1", res.SessionID)
	assert.Equal(t, 0, res.PunchCount)
}

func TestReconcileWindowFiltering(t *testing.T) {
	session := testSession()
	now := at(session, 12, 30)

	// 08:00 is before pointage (08:30) and 11:40 is past end + grace (11:30);
	// with both filtered out nothing remains and the student is absent.
	res, ok := Reconcile(session, "E12345", punches(session, [2]int{8, 0}, [2]int{11, 40}), now, testPolicy())
	require.True(t, ok)
	assert.Equal(t, models.StatusAbsent, res.Status)
	assert.Equal(t, 0, res.PunchCount)
}

func TestReconcileLoneEntryBeforeGraceIsPending(t *testing.T) {
	session := testSession()
	now := at(session, 11, 10)

	res, ok := Reconcile(session, "E12345", punches(session, [2]int{9, 5}), now, testPolicy())
	require.True(t, ok)
	assert.Equal(t, models.StatusPendingExit, res.Status)
	assert.Equal(t, models.StatusPresent, res.Provisional)
	assert.Nil(t, res.Exit)
}

func TestReconcileLoneEntryAfterGraceFinalizes(t *testing.T) {
	session := testSession()
	now := at(session, 11, 30)

	res, ok := Reconcile(session, "E12345", punches(session, [2]int{9, 20}), now, testPolicy())
	require.True(t, ok)
	assert.Equal(t, models.StatusLate, res.Status)
	assert.Equal(t, 5, res.MinutesLate)
	assert.Nil(t, res.Exit)
}

func TestReconcileOnlyPostEndPunches(t *testing.T) {
	session := testSession()
	now := at(session, 12, 30)

	res, ok := Reconcile(session, "E12345", punches(session, [2]int{11, 10}), now, testPolicy())
	require.True(t, ok)
	assert.Equal(t, models.StatusPendingEntry, res.Status)
	assert.Nil(t, res.Entry)
}

func TestReconcileExitBeforeStart(t *testing.T) {
	session := testSession()
	now := at(session, 12, 30)

	// Both punches sit in the pointage window but before the session starts:
	// the pairing is broken and the student is not yet present.
	res, ok := Reconcile(session, "E12345", punches(session, [2]int{8, 35}, [2]int{8, 50}), now, testPolicy())
	require.True(t, ok)
	assert.Equal(t, models.StatusPendingEntry, res.Status)
	assert.Equal(t, models.StatusPresent, res.Provisional)
}

func TestReconcileManyPunchesUsesFirstAndLast(t *testing.T) {
	session := testSession()
	now := at(session, 12, 30)

	res, ok := Reconcile(session, "E12345",
		punches(session, [2]int{9, 5}, [2]int{9, 40}, [2]int{10, 15}, [2]int{11, 5}),
		now, testPolicy())
	require.True(t, ok)
	assert.Equal(t, models.StatusPresent, res.Status)
	require.NotNil(t, res.Entry)
	assert.Equal(t, at(session, 9, 5), *res.Entry)
	require.NotNil(t, res.Exit)
	assert.Equal(t, at(session, 11, 5), *res.Exit)
	assert.Equal(t, 4, res.PunchCount)
}

func TestReconcileLeftEarly(t *testing.T) {
	session := testSession()
	now := at(session, 12, 30)

	res, ok := Reconcile(session, "E12345", punches(session, [2]int{9, 0}, [2]int{10, 0}), now, testPolicy())
	require.True(t, ok)
	assert.Equal(t, models.StatusPresent, res.Status)
	assert.True(t, res.LeftEarly)

	res, ok = Reconcile(session, "E12345", punches(session, [2]int{9, 0}, [2]int{10, 45}), now, testPolicy())
	require.True(t, ok)
	assert.False(t, res.LeftEarly)
}

func TestReconcileOrderIndependent(t *testing.T) {
	session := testSession()
	now := at(session, 12, 30)

	ordered := punches(session, [2]int{9, 5}, [2]int{10, 0}, [2]int{11, 5})
	shuffled := []models.PunchEvent{ordered[2], ordered[0], ordered[1]}

	first, ok1 := Reconcile(session, "E12345", ordered, now, testPolicy())
	second, ok2 := Reconcile(session, "E12345", shuffled, now, testPolicy())
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, first, second)
}

func TestReconcileDeterministic(t *testing.T) {
	session := testSession()
	now := at(session, 12, 30)
	events := punches(session, [2]int{9, 20}, [2]int{11, 10})

	first, _ := Reconcile(session, "E12345", events, now, testPolicy())
	for i := 0; i < 10; i++ {
		again, _ := Reconcile(session, "E12345", events, now, testPolicy())
		assert.Equal(t, first, again)
	}
}

func TestMinutesCeil(t *testing.T) {
	assert.Equal(t, 0, minutesCeil(0))
	assert.Equal(t, 0, minutesCeil(-time.Minute))
	assert.Equal(t, 1, minutesCeil(30*time.Second))
	assert.Equal(t, 1, minutesCeil(time.Minute))
	assert.Equal(t, 5, minutesCeil(4*time.Minute+10*time.Second))
}
