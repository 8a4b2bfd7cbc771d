package models

import (
	"fmt"
	"time"
)

// SessionKind discriminates the scheduled session types. Make-up sessions
// follow the same reconciliation rules as regular courses.
type SessionKind string

const (
	SessionCourse SessionKind = "course"
	SessionExam   SessionKind = "exam"
	SessionMakeup SessionKind = "makeup"
)

// Valid returns true when the kind is a supported value.
func (k SessionKind) Valid() bool {
	switch k {
	case SessionCourse, SessionExam, SessionMakeup:
		return true
	default:
		return false
	}
}

// AudienceKind scopes which students a session applies to.
type AudienceKind string

const (
	AudienceGroup         AudienceKind = "group"
	AudiencePromotion     AudienceKind = "promotion"
	AudienceOption        AudienceKind = "option"
	AudienceEstablishment AudienceKind = "establishment"
	AudienceTenant        AudienceKind = "tenant"
)

// AudienceScope identifies the student population of a session.
type AudienceScope struct {
	Kind  AudienceKind `db:"audience_kind" json:"kind"`
	RefID string       `db:"audience_ref" json:"ref_id"`
}

// Session is a scheduled academic session with its pointage window.
type Session struct {
	ID           string      `db:"id" json:"id"`
	TenantID     string      `db:"tenant_id" json:"tenant_id"`
	Kind         SessionKind `db:"kind" json:"kind"`
	Date         time.Time   `db:"date" json:"date"`
	StartAt      time.Time   `db:"-" json:"start_at"`
	EndAt        time.Time   `db:"-" json:"end_at"`
	PointageAt   time.Time   `db:"-" json:"pointage_at"`
	ToleranceMin int         `db:"tolerance_min" json:"tolerance_min"`
	RoomIDs      []string    `db:"-" json:"room_ids"`
	Audience     AudienceScope
	AcademicYear string `db:"academic_year" json:"academic_year"`
}

// LateThreshold is the latest instant a punch still counts as on time.
func (s Session) LateThreshold() time.Time {
	return s.StartAt.Add(time.Duration(s.ToleranceMin) * time.Minute)
}

// Validate enforces the catalog invariants on a session read from storage.
func (s Session) Validate() error {
	if !s.Kind.Valid() {
		return fmt.Errorf("session %s: unknown kind %q", s.ID, s.Kind)
	}
	if s.ToleranceMin < 0 {
		return fmt.Errorf("session %s: negative tolerance", s.ID)
	}
	if s.PointageAt.After(s.StartAt) {
		return fmt.Errorf("session %s: pointage start after session start", s.ID)
	}
	if s.StartAt.After(s.EndAt) {
		return fmt.Errorf("session %s: start after end", s.ID)
	}
	return nil
}

// SessionPhase classifies a session relative to an instant.
type SessionPhase string

const (
	PhaseUpcoming SessionPhase = "upcoming"
	PhaseOngoing  SessionPhase = "ongoing"
	PhasePast     SessionPhase = "past"
)
