// Package gallery defines the region-partitioned vector gallery contract:
// insert a face record, query the k nearest records by cosine similarity,
// delete a record. Matching never crosses region boundaries.
package gallery

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kalaburagitech/face-recognition-sub000/internal/models"
)

// Match is one nearest-neighbor result. Similarity is cosine similarity in
// [-1, 1]; callers convert to display scores.
type Match struct {
	RecordID   uuid.UUID
	IdentityID uuid.UUID
	Name       string
	Similarity float64
	Quality    float32
	CreatedAt  time.Time
}

// Store is the gallery query contract. Nearest returns matches ordered by
// similarity descending, quality descending, creation time ascending; the
// ordering must be deterministic for identical inputs. When excluding is
// non-nil, records owned by that identity are not returned.
type Store interface {
	Insert(ctx context.Context, rec *models.FaceRecord) error
	Nearest(ctx context.Context, region string, embedding []float32, k int, excluding *uuid.UUID) ([]Match, error)
	Delete(ctx context.Context, recordID uuid.UUID) error
}
