package dto

import (
	"encoding/json"

	"github.com/google/uuid"
)

type EventResponse struct {
	ID         uuid.UUID       `json:"id"`
	IdentityID uuid.UUID       `json:"identity_id"`
	Region     string          `json:"region"`
	Kind       string          `json:"kind"`
	OccurredAt string          `json:"occurred_at"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
}

type EventListResponse struct {
	Events []EventResponse `json:"events"`
	Total  int             `json:"total"`
}

type EventQuery struct {
	Region string `form:"region"`
	From   string `form:"from"`
	To     string `form:"to"`
	Limit  int    `form:"limit"`
}

// WSEvent is a WebSocket message for the real-time attendance feed.
type WSEvent struct {
	Type string          `json:"type"` // enrollment, check_in, check_out
	Data json.RawMessage `json:"data"`
}
