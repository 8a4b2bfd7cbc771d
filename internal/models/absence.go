package models

import "time"

// AttendanceStatus is the per-student outcome of reconciling one session.
type AttendanceStatus string

const (
	StatusPresent      AttendanceStatus = "present"
	StatusLate         AttendanceStatus = "late"
	StatusAbsent       AttendanceStatus = "absent"
	StatusPendingExit  AttendanceStatus = "pending_exit"
	StatusPendingEntry AttendanceStatus = "pending_entry"
	StatusExcused      AttendanceStatus = "excused"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case StatusPresent, StatusLate, StatusAbsent, StatusPendingExit, StatusPendingEntry, StatusExcused:
		return true
	default:
		return false
	}
}

// Final reports whether the status may be materialized; pending statuses wait
// for more punch data.
func (s AttendanceStatus) Final() bool {
	return s != StatusPendingExit && s != StatusPendingEntry
}

// AttendanceRecord is the persisted absence ledger row. At most one row exists
// per (matricule, session), enforced by the upsert key. The justification
// columns are owned by manual edits and never touched by reconciliation.
type AttendanceRecord struct {
	ID           string           `db:"id" json:"id"`
	SessionKind  SessionKind      `db:"session_kind" json:"session_kind"`
	SessionID    string           `db:"session_id" json:"session_id"`
	Matricule    string           `db:"matricule" json:"matricule"`
	Date         time.Time        `db:"date" json:"date"`
	Status       AttendanceStatus `db:"status" json:"status"`
	MinutesLate  int              `db:"minutes_late" json:"minutes_late"`
	Justified    bool             `db:"justified" json:"justified"`
	Motif        *string          `db:"motif" json:"motif,omitempty"`
	Justificatif *string          `db:"justificatif" json:"justificatif,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceRecordFilter scopes ledger listing queries.
type AttendanceRecordFilter struct {
	Matricule   string
	SessionKind SessionKind
	DateFrom    *time.Time
	DateTo      *time.Time
	Justified   *bool
	Page        int
	PageSize    int
}

// AbsenceSummary aggregates ledger counts for a student.
type AbsenceSummary struct {
	Absences    int `json:"absences"`
	Lates       int `json:"lates"`
	Justified   int `json:"justified"`
	Unjustified int `json:"unjustified"`
	Total       int `json:"total"`
}
