package clock

import (
	"fmt"
	"time"
)

// NowFunc supplies the current time. Core logic never reads the wall clock
// directly; it receives a NowFunc (or an explicit time.Time) so that the
// Absent/Pending boundary stays deterministic and testable.
type NowFunc func() time.Time

// System returns the real clock in the given location.
func System(loc *time.Location) NowFunc {
	return func() time.Time { return time.Now().In(loc) }
}

// Fixed returns a clock frozen at t.
func Fixed(t time.Time) NowFunc {
	return func() time.Time { return t }
}

// Compose builds the local time for a session date plus a wall-clock reading
// in the canonical location, rejecting times made ambiguous or non-existent by
// a DST transition. A silently shifted hour would flip a Present into an
// Absent, so these cases fail validation instead of resolving arbitrarily.
func Compose(date time.Time, hour, minute int, loc *time.Location) (time.Time, error) {
	t := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, loc)

	// Spring-forward gap: the requested wall time does not exist and
	// time.Date normalised it past the gap.
	if t.Hour() != hour || t.Minute() != minute {
		return time.Time{}, fmt.Errorf("local time %02d:%02d on %s does not exist in %s", hour, minute, date.Format("2006-01-02"), loc)
	}

	// Fall-back overlap: the same wall time occurs at two instants one hour
	// apart; an instant one hour away rendering the identical wall clock
	// reveals it.
	if sameWall(t, t.Add(-time.Hour)) || sameWall(t, t.Add(time.Hour)) {
		return time.Time{}, fmt.Errorf("local time %02d:%02d on %s is ambiguous in %s", hour, minute, date.Format("2006-01-02"), loc)
	}

	return t, nil
}

func sameWall(a, b time.Time) bool {
	return a.Day() == b.Day() && a.Hour() == b.Hour() && a.Minute() == b.Minute()
}
