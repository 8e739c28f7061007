package dto

import "github.com/google/uuid"

type AttendanceMarkRequest struct {
	Region   string `json:"region" binding:"required"`
	Identity string `json:"identity" binding:"required"` // id, external id, or name
}

type AttendanceResponse struct {
	IdentityID       uuid.UUID `json:"identity_id"`
	Name             string    `json:"name"`
	Day              string    `json:"day"`
	Status           string    `json:"status"`
	CheckInAt        string    `json:"check_in_at,omitempty"`
	CheckOutAt       string    `json:"check_out_at,omitempty"`
	AlreadyMarked    bool      `json:"already_marked,omitempty"`
	AlreadyCompleted bool      `json:"already_completed,omitempty"`
}

type AttendanceStatusResponse struct {
	IdentityID uuid.UUID `json:"identity_id"`
	Name       string    `json:"name"`
	Day        string    `json:"day"`
	Status     string    `json:"status"`
	CheckInAt  string    `json:"check_in_at,omitempty"`
	CheckOutAt string    `json:"check_out_at,omitempty"`
}

type AttendanceListResponse struct {
	Day     string               `json:"day"`
	Region  string               `json:"region"`
	Entries []AttendanceResponse `json:"entries"`
	Total   int                  `json:"total"`
}

type AttendanceQuery struct {
	Region   string `form:"region"`
	Identity string `form:"identity"`
	Day      string `form:"day"`
}
