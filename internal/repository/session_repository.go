package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/campus-dsi/pointage-api/internal/models"
	"github.com/campus-dsi/pointage-api/pkg/clock"
	appErrors "github.com/campus-dsi/pointage-api/pkg/errors"
)

// SessionRepository reads the session catalog of one tenant. Session times are
// stored as local wall-clock values; composing them against the canonical
// timezone happens here so that DST anomalies fail loudly on read instead of
// silently shifting a classification by an hour.
type SessionRepository struct {
	db  *sqlx.DB
	loc *time.Location
}

// NewSessionRepository constructs the repository over a tenant pool.
func NewSessionRepository(db *sqlx.DB, loc *time.Location) *SessionRepository {
	return &SessionRepository{db: db, loc: loc}
}

type sessionRow struct {
	ID           string         `db:"id"`
	TenantID     string         `db:"tenant_id"`
	Kind         string         `db:"kind"`
	Date         time.Time      `db:"date"`
	StartTime    string         `db:"start_time"`
	EndTime      string         `db:"end_time"`
	PointageTime string         `db:"pointage_time"`
	ToleranceMin int            `db:"tolerance_min"`
	AudienceKind string         `db:"audience_kind"`
	AudienceRef  string         `db:"audience_ref"`
	AcademicYear string         `db:"academic_year"`
	RoomIDs      pq.StringArray `db:"room_ids"`
}

const sessionColumns = `se.id, se.tenant_id, se.kind, se.date, se.start_time, se.end_time, se.pointage_time,
        se.tolerance_min, se.audience_kind, se.audience_ref, se.academic_year,
        COALESCE(array_agg(sr.room_id) FILTER (WHERE sr.room_id IS NOT NULL), '{}') AS room_ids`

const sessionFrom = `FROM sessions se
LEFT JOIN session_rooms sr ON sr.session_id = se.id`

// DueForCutoff selects sessions whose end lies at or before now minus the
// cutoff, bounded by a lookback so reruns stay cheap.
func (r *SessionRepository) DueForCutoff(ctx context.Context, now time.Time, cutoff, lookback time.Duration, kinds []models.SessionKind) ([]models.Session, error) {
	deadline := now.Add(-cutoff)
	floor := now.Add(-lookback)

	where := []string{
		"se.date >= $1::date",
		"(se.date + se.end_time::time) <= $2",
	}
	args := []interface{}{floor, deadline}
	if len(kinds) > 0 {
		where = append(where, fmt.Sprintf("se.kind = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(kindStrings(kinds)))
	}

	query := fmt.Sprintf(`SELECT %s %s WHERE %s GROUP BY se.id ORDER BY se.date, se.start_time`,
		sessionColumns, sessionFrom, strings.Join(where, " AND "))
	return r.selectSessions(ctx, query, args...)
}

// ByDate selects every session of a given date regardless of cutoff, for
// manual backfill runs.
func (r *SessionRepository) ByDate(ctx context.Context, date time.Time, kinds []models.SessionKind) ([]models.Session, error) {
	where := []string{"se.date = $1::date"}
	args := []interface{}{date}
	if len(kinds) > 0 {
		where = append(where, fmt.Sprintf("se.kind = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(kindStrings(kinds)))
	}
	query := fmt.Sprintf(`SELECT %s %s WHERE %s GROUP BY se.id ORDER BY se.start_time`,
		sessionColumns, sessionFrom, strings.Join(where, " AND "))
	return r.selectSessions(ctx, query, args...)
}

// ForStudentInRange returns the sessions whose audience scope covers the
// student within [from, to], for the on-demand tracker.
func (r *SessionRepository) ForStudentInRange(ctx context.Context, matricule string, from, to time.Time) ([]models.Session, error) {
	query := fmt.Sprintf(`SELECT %s %s
WHERE se.date BETWEEN $1::date AND $2::date
AND EXISTS (
    SELECT 1 FROM students s
    JOIN groups g ON g.id = s.group_id
    WHERE s.matricule = $3
      AND ((se.audience_kind = 'group' AND se.audience_ref = s.group_id)
        OR (se.audience_kind = 'promotion' AND se.audience_ref = g.promotion_id)
        OR (se.audience_kind = 'option' AND se.audience_ref = g.option_id)
        OR (se.audience_kind = 'establishment' AND se.audience_ref = g.establishment_id)
        OR se.audience_kind = 'tenant')
)
GROUP BY se.id ORDER BY se.date, se.start_time`, sessionColumns, sessionFrom)
	return r.selectSessions(ctx, query, from, to, matricule)
}

// Roster resolves a session's audience scope to its student list. An empty
// roster is reported as EMPTY_SCOPE so callers can skip with zero statistics.
func (r *SessionRepository) Roster(ctx context.Context, session models.Session) ([]models.Student, error) {
	base := `SELECT s.matricule, s.full_name, s.group_id FROM students s`
	var (
		query string
		args  []interface{}
	)
	switch session.Audience.Kind {
	case models.AudienceGroup:
		query = base + ` WHERE s.group_id = $1`
		args = []interface{}{session.Audience.RefID}
	case models.AudiencePromotion:
		query = base + ` JOIN groups g ON g.id = s.group_id WHERE g.promotion_id = $1`
		args = []interface{}{session.Audience.RefID}
	case models.AudienceOption:
		query = base + ` JOIN groups g ON g.id = s.group_id WHERE g.option_id = $1`
		args = []interface{}{session.Audience.RefID}
	case models.AudienceEstablishment:
		query = base + ` JOIN groups g ON g.id = s.group_id WHERE g.establishment_id = $1`
		args = []interface{}{session.Audience.RefID}
	case models.AudienceTenant:
		query = base
	default:
		return nil, fmt.Errorf("session %s: unknown audience kind %q", session.ID, session.Audience.Kind)
	}
	query += " ORDER BY s.matricule"

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("resolve roster: %w", err)
	}
	if len(students) == 0 {
		return nil, appErrors.Clone(appErrors.ErrEmptyScope, "session "+session.ID+" scope matches no students")
	}
	return students, nil
}

func (r *SessionRepository) selectSessions(ctx context.Context, query string, args ...interface{}) ([]models.Session, error) {
	var rows []sessionRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("select sessions: %w", err)
	}
	sessions := make([]models.Session, 0, len(rows))
	for _, row := range rows {
		s, err := r.compose(row)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// compose materializes wall-clock columns into concrete instants and enforces
// the catalog invariants.
func (r *SessionRepository) compose(row sessionRow) (models.Session, error) {
	start, err := r.composeTime(row.Date, row.StartTime)
	if err != nil {
		return models.Session{}, fmt.Errorf("session %s start: %w", row.ID, err)
	}
	end, err := r.composeTime(row.Date, row.EndTime)
	if err != nil {
		return models.Session{}, fmt.Errorf("session %s end: %w", row.ID, err)
	}
	pointage, err := r.composeTime(row.Date, row.PointageTime)
	if err != nil {
		return models.Session{}, fmt.Errorf("session %s pointage: %w", row.ID, err)
	}

	s := models.Session{
		ID:           row.ID,
		TenantID:     row.TenantID,
		Kind:         models.SessionKind(row.Kind),
		Date:         row.Date,
		StartAt:      start,
		EndAt:        end,
		PointageAt:   pointage,
		ToleranceMin: row.ToleranceMin,
		RoomIDs:      []string(row.RoomIDs),
		Audience: models.AudienceScope{
			Kind:  models.AudienceKind(row.AudienceKind),
			RefID: row.AudienceRef,
		},
		AcademicYear: row.AcademicYear,
	}
	if err := s.Validate(); err != nil {
		return models.Session{}, err
	}
	return s, nil
}

func (r *SessionRepository) composeTime(date time.Time, wall string) (time.Time, error) {
	parts := strings.SplitN(wall, ":", 3)
	if len(parts) < 2 {
		return time.Time{}, fmt.Errorf("malformed time %q", wall)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed hour in %q", wall)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed minute in %q", wall)
	}
	t, err := clock.Compose(date, hour, minute, r.loc)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrAmbiguousTime.Code, appErrors.ErrAmbiguousTime.Status, appErrors.ErrAmbiguousTime.Message)
	}
	return t, nil
}

func kindStrings(kinds []models.SessionKind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}
