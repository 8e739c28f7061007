package dto

import "github.com/google/uuid"

type EnrollResponse struct {
	IdentityID uuid.UUID `json:"identity_id"`
	FaceID     uuid.UUID `json:"face_id"`
	Name       string    `json:"name"`
	Region     string    `json:"region"`
	Quality    float32   `json:"quality"`
	Created    bool      `json:"created"`
}

type BatchItemResponse struct {
	Index   int       `json:"index"`
	Name    string    `json:"name"`
	OK      bool      `json:"ok"`
	Skipped bool      `json:"skipped,omitempty"`
	Error   string    `json:"error,omitempty"`
	FaceID  uuid.UUID `json:"face_id,omitempty"`
	Quality float32   `json:"quality,omitempty"`
}

type BatchEnrollResponse struct {
	IdentityID uuid.UUID           `json:"identity_id"`
	Name       string              `json:"name"`
	Region     string              `json:"region"`
	Items      []BatchItemResponse `json:"items"`
	Succeeded  int                 `json:"succeeded"`
	Failed     int                 `json:"failed"`
	Aborted    bool                `json:"aborted"`
}

type DuplicateCheckResponse struct {
	Status     string     `json:"status"` // clear, duplicate
	IdentityID *uuid.UUID `json:"identity_id,omitempty"`
	Name       string     `json:"name,omitempty"`
	Similarity float64    `json:"similarity,omitempty"`
	Score      float64    `json:"score,omitempty"`
}
