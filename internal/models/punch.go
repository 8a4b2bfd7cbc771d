package models

import "time"

// PunchEvent is a normalized device scan: who, where, when. Vendors report no
// reliable direction flag, so none is carried.
type PunchEvent struct {
	Matricule string    `json:"matricule"`
	DeviceID  string    `json:"device_id"`
	At        time.Time `json:"at"`
}

// Student is a roster entry resolved from a session's audience scope.
type Student struct {
	Matricule string `db:"matricule" json:"matricule"`
	FullName  string `db:"full_name" json:"full_name"`
	GroupID   string `db:"group_id" json:"group_id"`
}
