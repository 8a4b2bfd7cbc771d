package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parisLocation(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	return loc
}

func TestFixed(t *testing.T) {
	instant := time.Date(2026, 3, 16, 10, 0, 0, 0, time.UTC)
	now := Fixed(instant)
	assert.Equal(t, instant, now())
	assert.Equal(t, instant, now())
}

func TestComposeRegularTime(t *testing.T) {
	loc := parisLocation(t)
	date := time.Date(2026, 3, 16, 0, 0, 0, 0, loc)

	composed, err := Compose(date, 9, 30, loc)
	require.NoError(t, err)
	assert.Equal(t, 9, composed.Hour())
	assert.Equal(t, 30, composed.Minute())
	assert.Equal(t, date.Day(), composed.Day())
}

func TestComposeRejectsNonExistentTime(t *testing.T) {
	loc := parisLocation(t)
	// Paris springs forward on 2026-03-29: 02:00 jumps to 03:00.
	date := time.Date(2026, 3, 29, 0, 0, 0, 0, loc)

	_, err := Compose(date, 2, 30, loc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestComposeRejectsAmbiguousTime(t *testing.T) {
	loc := parisLocation(t)
	// Paris falls back on 2026-10-25: 03:00 returns to 02:00, so 02:30
	// happens twice.
	date := time.Date(2026, 10, 25, 0, 0, 0, 0, loc)

	_, err := Compose(date, 2, 30, loc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambiguous")
}

func TestComposeAroundTransitionEdges(t *testing.T) {
	loc := parisLocation(t)
	spring := time.Date(2026, 3, 29, 0, 0, 0, 0, loc)

	before, err := Compose(spring, 1, 30, loc)
	require.NoError(t, err)
	assert.Equal(t, 1, before.Hour())

	after, err := Compose(spring, 3, 30, loc)
	require.NoError(t, err)
	assert.Equal(t, 3, after.Hour())
}

func TestComposeUTCNeverAmbiguous(t *testing.T) {
	date := time.Date(2026, 10, 25, 0, 0, 0, 0, time.UTC)
	composed, err := Compose(date, 2, 30, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 2, composed.Hour())
}
