package dto

import "github.com/google/uuid"

type RecognizeCandidate struct {
	IdentityID uuid.UUID `json:"identity_id"`
	Name       string    `json:"name"`
	Similarity float64   `json:"similarity"`
	Score      float64   `json:"score"`
	Distance   float64   `json:"distance"`
}

type RecognizeFace struct {
	BBox       [4]float32           `json:"bbox"`
	Confidence float32              `json:"confidence"`
	Quality    float32              `json:"quality"`
	Matches    []RecognizeCandidate `json:"matches"`
}

type RecognizeResponse struct {
	FacesDetected int             `json:"faces_detected"`
	Faces         []RecognizeFace `json:"faces"`
}
