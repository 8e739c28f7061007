package dto

import "github.com/google/uuid"

type CreateIdentityRequest struct {
	Region      string `json:"region" binding:"required"`
	ExternalID  string `json:"external_id"`
	Name        string `json:"name" binding:"required"`
	Rank        string `json:"rank"`
	Description string `json:"description"`
}

type UpdateIdentityRequest struct {
	Name        string `json:"name"`
	Rank        string `json:"rank"`
	Description string `json:"description"`
}

type IdentityResponse struct {
	ID          uuid.UUID `json:"id"`
	Region      string    `json:"region"`
	ExternalID  string    `json:"external_id,omitempty"`
	Name        string    `json:"name"`
	Rank        string    `json:"rank,omitempty"`
	Description string    `json:"description,omitempty"`
	FaceCount   int       `json:"face_count"`
	CreatedAt   string    `json:"created_at"`
	UpdatedAt   string    `json:"updated_at"`
}

type IdentityListResponse struct {
	Identities []IdentityResponse `json:"identities"`
	Total      int                `json:"total"`
}

type FaceRecordResponse struct {
	ID         uuid.UUID `json:"id"`
	IdentityID uuid.UUID `json:"identity_id"`
	Confidence float32   `json:"confidence"`
	Quality    float32   `json:"quality"`
	ImageKey   string    `json:"image_key,omitempty"`
	CreatedAt  string    `json:"created_at"`
}
