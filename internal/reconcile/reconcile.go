// Package reconcile turns a session definition and its raw punch events into a
// per-student attendance status. Everything here is pure: `now` is always a
// parameter and no I/O happens, which keeps the batch trigger and the
// on-demand tracker byte-for-byte consistent.
package reconcile

import (
	"sort"
	"time"

	"github.com/campus-dsi/pointage-api/internal/models"
)

// Policy holds the timing knobs shared by every reconciliation run.
type Policy struct {
	// Grace extends the punch window past session end; exits recorded during
	// grace still pair with their entry.
	Grace time.Duration
	// Cutoff is how long after session end a student with no punch is
	// finalized as absent.
	Cutoff time.Duration
	// EarlyThreshold flags exits happening well before session end.
	EarlyThreshold time.Duration
}

// Result is the ephemeral outcome for one (session, student) pair. It is
// never persisted as-is; the materializer decides what becomes a ledger row.
type Result struct {
	SessionID   string
	Matricule   string
	Status      models.AttendanceStatus
	Provisional models.AttendanceStatus
	Entry       *time.Time
	Exit        *time.Time
	MinutesLate int
	LeftEarly   bool
	PunchCount  int
}

// Reconcile computes the attendance status of one student for one session.
// punches must be the student's own events, already scoped to the session's
// device set; window filtering and timestamp ordering happen here, with device
// identity discarded. The second return value is false when the student is not
// yet decidable: no punch was recorded and the cutoff has not passed, so the
// student is neither present nor absent in this run.
func Reconcile(session models.Session, matricule string, punches []models.PunchEvent, now time.Time, p Policy) (Result, bool) {
	res := Result{SessionID: session.ID, Matricule: matricule}

	windowEnd := session.EndAt.Add(p.Grace)
	inWindow := make([]models.PunchEvent, 0, len(punches))
	for _, ev := range punches {
		if ev.At.Before(session.PointageAt) || ev.At.After(windowEnd) {
			continue
		}
		inWindow = append(inWindow, ev)
	}
	sort.SliceStable(inWindow, func(i, j int) bool { return inWindow[i].At.Before(inWindow[j].At) })
	res.PunchCount = len(inWindow)

	if len(inWindow) == 0 {
		if now.Before(session.EndAt.Add(p.Cutoff)) {
			return Result{}, false
		}
		res.Status = models.StatusAbsent
		return res, true
	}

	// Entry is the earliest punch before session end; exit the latest punch
	// strictly after it. Punches in between carry no status weight.
	var entry *models.PunchEvent
	for i := range inWindow {
		if inWindow[i].At.Before(session.EndAt) {
			entry = &inWindow[i]
			break
		}
	}
	if entry == nil {
		// Only punches past the session end exist: an exit with no valid
		// entry. Conservatively not-yet-present.
		res.Status = models.StatusPendingEntry
		return res, true
	}
	res.Entry = &entry.At

	var exit *models.PunchEvent
	for i := len(inWindow) - 1; i >= 0; i-- {
		if inWindow[i].At.After(entry.At) {
			exit = &inWindow[i]
			break
		}
	}

	base := models.StatusPresent
	if entry.At.After(session.LateThreshold()) {
		base = models.StatusLate
		res.MinutesLate = minutesCeil(entry.At.Sub(session.LateThreshold()))
	}

	if exit != nil && exit.At.Before(session.StartAt) {
		// Exit recorded before the session even started: entry pairing is
		// broken, treat as not-yet-present.
		res.Status = models.StatusPendingEntry
		res.Provisional = base
		return res, true
	}

	if exit == nil {
		if now.Before(session.EndAt.Add(p.Grace)) {
			res.Status = models.StatusPendingExit
			res.Provisional = base
			return res, true
		}
		// Grace elapsed with a lone entry punch: finalize on the entry.
		res.Status = base
		return res, true
	}

	res.Exit = &exit.At
	res.Status = base
	if p.EarlyThreshold > 0 && exit.At.Before(session.EndAt.Add(-p.EarlyThreshold)) {
		res.LeftEarly = true
	}
	return res, true
}

func minutesCeil(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Minute - 1) / time.Minute)
}
