// Package match implements the identity-matching core: the duplicate guard
// that blocks re-enrollment of an already-known face, the recognition
// orchestrator, and the threshold configuration both share.
package match

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kalaburagitech/face-recognition-sub000/internal/gallery"
)

type DuplicateStatus string

const (
	StatusClear     DuplicateStatus = "clear"
	StatusDuplicate DuplicateStatus = "duplicate"
)

// Decision is the outcome of a duplicate check. IdentityID, Name and
// Similarity are set only when Status is duplicate.
type Decision struct {
	Status     DuplicateStatus `json:"status"`
	IdentityID uuid.UUID       `json:"matched_identity,omitempty"`
	Name       string          `json:"matched_name,omitempty"`
	Similarity float64         `json:"similarity,omitempty"`
}

// Guard decides at enrollment time whether an embedding already belongs to
// a known identity other than the one being enrolled.
type Guard struct {
	gallery  gallery.Store
	settings *Settings
}

func NewGuard(g gallery.Store, settings *Settings) *Guard {
	return &Guard{gallery: g, settings: settings}
}

// Threshold returns the duplicate threshold currently in force.
func (g *Guard) Threshold() float64 {
	return g.settings.Current().Duplicate
}

// Check queries the region's gallery for the single nearest face record,
// skipping records owned by excluding (so more photos can be added to the
// same person without self-triggering). An empty gallery is always clear.
func (g *Guard) Check(ctx context.Context, region string, embedding []float32, excluding *uuid.UUID) (Decision, error) {
	matches, err := g.gallery.Nearest(ctx, region, embedding, 1, excluding)
	if err != nil {
		return Decision{}, fmt.Errorf("gallery nearest: %w", err)
	}
	if len(matches) == 0 {
		return Decision{Status: StatusClear}, nil
	}

	nearest := matches[0]
	if nearest.Similarity >= g.settings.Current().Duplicate {
		return Decision{
			Status:     StatusDuplicate,
			IdentityID: nearest.IdentityID,
			Name:       nearest.Name,
			Similarity: nearest.Similarity,
		}, nil
	}
	return Decision{Status: StatusClear}, nil
}
