package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventEnrollment EventKind = "enrollment"
	EventCheckIn    EventKind = "check_in"
	EventCheckOut   EventKind = "check_out"
)

// AnalyticsEvent is an append-only occurrence record. Rows are never
// mutated; retention cleanup happens outside this service.
type AnalyticsEvent struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	IdentityID uuid.UUID       `json:"identity_id" db:"identity_id"`
	Region     string          `json:"region" db:"region"`
	Kind       EventKind       `json:"kind" db:"kind"`
	OccurredAt time.Time       `json:"occurred_at" db:"occurred_at"`
	Metadata   json.RawMessage `json:"metadata,omitempty" db:"metadata"`
}
