package enroll

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"

	"github.com/kalaburagitech/face-recognition-sub000/internal/models"
)

// BatchPolicy controls what happens after a duplicate or mismatch inside a
// batch. Fail-fast aborts the remaining items; skip records the failure
// and continues. Either way, items already persisted stay persisted.
type BatchPolicy string

const (
	PolicyFailFast BatchPolicy = "fail_fast"
	PolicySkip     BatchPolicy = "skip"
)

// BatchOrder fixes the processing order: lexicographic by image name for
// file uploads, or the order given for video frames.
type BatchOrder string

const (
	OrderFilename BatchOrder = "filename"
	OrderGiven    BatchOrder = "given"
)

type BatchImage struct {
	Name        string
	Data        []byte
	ContentType string
}

type BatchRequest struct {
	Region      string
	ExternalID  string
	Name        string
	Rank        string
	Description string
	Images      []BatchImage
	Policy      BatchPolicy
	Order       BatchOrder
}

// BatchItem is the per-image outcome, in processing order.
type BatchItem struct {
	Index   int       `json:"index"`
	Name    string    `json:"name"`
	OK      bool      `json:"ok"`
	Skipped bool      `json:"skipped,omitempty"`
	Error   string    `json:"error,omitempty"`
	FaceID  uuid.UUID `json:"face_id,omitempty"`
	Quality float32   `json:"quality,omitempty"`
}

type BatchOutcome struct {
	Identity  *models.Identity `json:"identity,omitempty"`
	Items     []BatchItem      `json:"items"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Aborted   bool             `json:"aborted"`
}

// EnrollBatch processes images strictly sequentially under one region lock
// so the in-batch seen set needs no locking of its own. Accepted items are
// persisted immediately; a failure never rolls earlier items back.
func (e *Enroller) EnrollBatch(ctx context.Context, req BatchRequest) (*BatchOutcome, error) {
	if req.Policy == "" {
		req.Policy = PolicyFailFast
	}
	if req.Order == "" {
		req.Order = OrderFilename
	}

	images := append([]BatchImage(nil), req.Images...)
	if req.Order == OrderFilename {
		sort.SliceStable(images, func(i, j int) bool {
			return images[i].Name < images[j].Name
		})
	}

	release, err := e.lockRegion(ctx, req.Region)
	if err != nil {
		return nil, err
	}
	defer release()

	outcome := &BatchOutcome{Items: make([]BatchItem, 0, len(images))}
	var seen [][]float32

	for i, img := range images {
		item := BatchItem{Index: i, Name: img.Name}

		if outcome.Aborted {
			item.Skipped = true
			outcome.Items = append(outcome.Items, item)
			continue
		}

		single := Request{
			Region:      req.Region,
			ExternalID:  req.ExternalID,
			Name:        req.Name,
			Rank:        req.Rank,
			Description: req.Description,
			Image:       img.Data,
			ImageName:   img.Name,
			ContentType: img.ContentType,
		}

		// Later items target the identity the batch already resolved or
		// created, so the guard excludes the batch's own faces.
		res, err := e.enrollOne(ctx, single, outcome.Identity, seen)
		if err != nil {
			item.Error = err.Error()
			outcome.Failed++
			if req.Policy == PolicyFailFast && isDuplicateKind(err) {
				outcome.Aborted = true
			}
			outcome.Items = append(outcome.Items, item)
			continue
		}

		item.OK = true
		item.FaceID = res.Face.ID
		item.Quality = res.Quality
		outcome.Items = append(outcome.Items, item)
		outcome.Succeeded++
		outcome.Identity = res.Identity
		seen = append(seen, res.Face.Embedding)
	}

	return outcome, nil
}

// enrollOne is the in-lock path for one batch item: validate, then guard
// and write against the batch identity with the accepted seen set.
func (e *Enroller) enrollOne(ctx context.Context, req Request, identity *models.Identity, seen [][]float32) (*Outcome, error) {
	obs, err := e.observe(ctx, req.Region, req.Image)
	if err != nil {
		return nil, err
	}
	return e.enrollLocked(ctx, req, obs, identity, seen)
}

// isDuplicateKind reports whether the error is a duplicate-type failure
// that aborts a fail-fast batch. Quality failures only fail their item.
func isDuplicateKind(err error) bool {
	var dup *DuplicateError
	var mismatch *BatchMismatchError
	return errors.As(err, &dup) || errors.As(err, &mismatch)
}
