package models

import (
	"time"

	"github.com/google/uuid"
)

// AttendanceState is the per-(identity, day) state machine:
// NOT_MARKED -> CHECKED_IN -> CHECKED_OUT, terminal for that day.
type AttendanceState string

const (
	AttendanceNotMarked  AttendanceState = "not_marked"
	AttendanceCheckedIn  AttendanceState = "checked_in"
	AttendanceCheckedOut AttendanceState = "checked_out"
)

// AttendanceRecord is one row per (identity, calendar day). Day is a date
// in the fixed reporting timezone, formatted 2006-01-02.
type AttendanceRecord struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	IdentityID uuid.UUID       `json:"identity_id" db:"identity_id"`
	Day        string          `json:"day" db:"day"`
	CheckInAt  *time.Time      `json:"check_in_at,omitempty" db:"check_in_at"`
	CheckOutAt *time.Time      `json:"check_out_at,omitempty" db:"check_out_at"`
	Status     AttendanceState `json:"status" db:"status"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// AttendanceWithIdentity is one listing row: the day's record joined with
// its owner.
type AttendanceWithIdentity struct {
	Record   AttendanceRecord `json:"record"`
	Identity Identity         `json:"identity"`
}
