package models

import (
	"time"

	"github.com/google/uuid"
)

// Identity is one enrolled person. (Region, ExternalID) is unique.
type Identity struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Region      string    `json:"region" db:"region"`
	ExternalID  string    `json:"external_id" db:"external_id"`
	Name        string    `json:"name" db:"name"`
	Rank        string    `json:"rank" db:"rank"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// FaceRecord is one persisted embedding owned by exactly one identity.
// Region is denormalized from the owner so gallery queries never cross
// region boundaries.
type FaceRecord struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	IdentityID uuid.UUID  `json:"identity_id" db:"identity_id"`
	Region     string     `json:"region" db:"region"`
	Embedding  []float32  `json:"-" db:"embedding"`
	Confidence float32    `json:"confidence" db:"confidence"`
	Quality    float32    `json:"quality" db:"quality"`
	ImageKey   string     `json:"image_key,omitempty" db:"image_key"`
	BBox       [4]float32 `json:"bbox" db:"bbox"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}
