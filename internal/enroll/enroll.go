// Package enroll implements the enrollment orchestrator: quality
// validation, duplicate guarding, identity find-or-create, and face record
// persistence, for single images and ordered batches.
package enroll

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kalaburagitech/face-recognition-sub000/internal/gallery"
	"github.com/kalaburagitech/face-recognition-sub000/internal/match"
	"github.com/kalaburagitech/face-recognition-sub000/internal/models"
	"github.com/kalaburagitech/face-recognition-sub000/internal/observability"
	"github.com/kalaburagitech/face-recognition-sub000/internal/vision"
)

// IdentityStore resolves and creates identities keyed by (region,
// external id).
type IdentityStore interface {
	GetIdentityByExternalID(ctx context.Context, region, externalID string) (*models.Identity, error)
	CreateIdentity(ctx context.Context, id *models.Identity) error
	DeleteIdentity(ctx context.Context, id uuid.UUID) error
}

// ImageStore persists the raw enrollment image. Optional; a nil store
// skips image archival.
type ImageStore interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	DeleteObject(ctx context.Context, key string) error
}

// RegionLocker provides a cross-instance mutual exclusion lock for a
// region, typically a Postgres advisory lock. Optional.
type RegionLocker interface {
	LockRegion(ctx context.Context, region string) (func(), error)
}

// Recorder receives successful enrollments for the analytics stream.
// Optional.
type Recorder interface {
	Enrolled(ctx context.Context, identity *models.Identity, faceID uuid.UUID, quality float32)
}

// Enroller wires the embedding provider, duplicate guard, gallery and
// identity store into the enrollment flows.
type Enroller struct {
	provider    vision.Provider
	guard       *match.Guard
	gallery     gallery.Store
	identities  IdentityStore
	images      ImageStore
	dbLock      RegionLocker
	recorder    Recorder
	floor       float64
	lockTimeout time.Duration
	locks       *regionLocks
}

type Options struct {
	QualityFloor float64
	LockTimeout  time.Duration
	Images       ImageStore
	DBLock       RegionLocker
	Recorder     Recorder
}

func New(provider vision.Provider, guard *match.Guard, g gallery.Store, identities IdentityStore, opts Options) *Enroller {
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 5 * time.Second
	}
	return &Enroller{
		provider:    provider,
		guard:       guard,
		gallery:     g,
		identities:  identities,
		images:      opts.Images,
		dbLock:      opts.DBLock,
		recorder:    opts.Recorder,
		floor:       opts.QualityFloor,
		lockTimeout: opts.LockTimeout,
		locks:       newRegionLocks(),
	}
}

// Request is a single-image enrollment.
type Request struct {
	Region      string
	ExternalID  string
	Name        string
	Rank        string
	Description string
	Image       []byte
	ImageName   string
	ContentType string
}

// Outcome reports a persisted enrollment.
type Outcome struct {
	Identity        *models.Identity   `json:"identity"`
	Face            *models.FaceRecord `json:"face"`
	Dim             int                `json:"dim"`
	Quality         float32            `json:"quality"`
	BBox            [4]float32         `json:"bbox"`
	IdentityCreated bool               `json:"identity_created"`
}

// Enroll validates the image, runs the duplicate guard inside the region
// critical section, and persists the face record. Nothing is written when
// any check fails.
func (e *Enroller) Enroll(ctx context.Context, req Request) (*Outcome, error) {
	obs, err := e.observe(ctx, req.Region, req.Image)
	if err != nil {
		observability.Enrollments.WithLabelValues(req.Region, "rejected").Inc()
		return nil, err
	}

	release, err := e.lockRegion(ctx, req.Region)
	if err != nil {
		observability.Enrollments.WithLabelValues(req.Region, "conflict").Inc()
		return nil, err
	}
	defer release()

	outcome, err := e.enrollLocked(ctx, req, obs, nil, nil)
	if err != nil {
		return nil, err
	}
	observability.Enrollments.WithLabelValues(req.Region, "accepted").Inc()
	return outcome, nil
}

// observe runs detection and applies the exactly-one-usable-face rule and
// the quality floor. No writes happen here.
func (e *Enroller) observe(ctx context.Context, region string, image []byte) (*models.FaceObservation, error) {
	observations, err := e.provider.Detect(image)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}
	observability.FacesDetected.WithLabelValues(region).Add(float64(len(observations)))

	if len(observations) == 0 {
		return nil, ErrNoFaceDetected
	}

	usable := make([]models.FaceObservation, 0, len(observations))
	for _, o := range observations {
		if float64(o.Quality) >= e.floor {
			usable = append(usable, o)
		}
	}
	switch {
	case len(usable) == 0:
		best := observations[0]
		for _, o := range observations[1:] {
			if o.Quality > best.Quality {
				best = o
			}
		}
		return nil, &LowQualityError{Quality: best.Quality, Floor: e.floor}
	case len(usable) > 1:
		return nil, ErrMultipleFaces
	}

	obs := usable[0]
	return &obs, nil
}

// enrollLocked performs the guard check and the write. Callers must hold
// the region lock. identity is the already-resolved target when the caller
// knows it (later batch items); seen is the in-batch accepted set, nil for
// single enrollment.
func (e *Enroller) enrollLocked(ctx context.Context, req Request, obs *models.FaceObservation, identity *models.Identity, seen [][]float32) (*Outcome, error) {
	if identity == nil && req.ExternalID != "" {
		existing, err := e.identities.GetIdentityByExternalID(ctx, req.Region, req.ExternalID)
		if err != nil {
			return nil, fmt.Errorf("resolve identity: %w", err)
		}
		identity = existing
	}

	var excluding *uuid.UUID
	if identity != nil {
		excluding = &identity.ID
	}

	decision, err := e.guard.Check(ctx, req.Region, obs.Embedding, excluding)
	if err != nil {
		return nil, fmt.Errorf("duplicate check: %w", err)
	}
	if decision.Status == match.StatusDuplicate {
		observability.DuplicatesBlocked.WithLabelValues(req.Region).Inc()
		observability.Enrollments.WithLabelValues(req.Region, "duplicate").Inc()
		return nil, &DuplicateError{
			IdentityID: decision.IdentityID,
			Name:       decision.Name,
			Similarity: decision.Similarity,
		}
	}

	// Intra-batch consistency: every accepted image in a batch must be
	// the same physical face.
	if len(seen) > 0 {
		bestSim := -1.0
		for _, prev := range seen {
			if sim := gallery.CosineSimilarity(obs.Embedding, prev); sim > bestSim {
				bestSim = sim
			}
		}
		threshold := e.guardThreshold()
		if bestSim < threshold {
			observability.Enrollments.WithLabelValues(req.Region, "mismatch").Inc()
			return nil, &BatchMismatchError{Similarity: bestSim, Threshold: threshold}
		}
	}

	created := false
	if identity == nil {
		identity = &models.Identity{
			ID:          uuid.New(),
			Region:      req.Region,
			ExternalID:  req.ExternalID,
			Name:        req.Name,
			Rank:        req.Rank,
			Description: req.Description,
		}
		if err := e.identities.CreateIdentity(ctx, identity); err != nil {
			return nil, fmt.Errorf("create identity: %w", err)
		}
		created = true
	}

	face := &models.FaceRecord{
		ID:         uuid.New(),
		IdentityID: identity.ID,
		Region:     req.Region,
		Embedding:  obs.Embedding,
		Confidence: obs.Confidence,
		Quality:    obs.Quality,
		BBox:       obs.BBox,
		CreatedAt:  time.Now(),
	}

	if e.images != nil && len(req.Image) > 0 {
		key := fmt.Sprintf("faces/%s/%s/%s_%s", req.Region, identity.ID, face.ID, req.ImageName)
		if err := e.images.PutObject(ctx, key, req.Image, req.ContentType); err != nil {
			slog.Warn("store enrollment image", "error", err, "key", key)
		} else {
			face.ImageKey = key
		}
	}

	if err := e.gallery.Insert(ctx, face); err != nil {
		// Undo the writes that preceded the failed insert so a rejected
		// enrollment leaves no faceless identity or orphaned image.
		if e.images != nil && face.ImageKey != "" {
			if derr := e.images.DeleteObject(ctx, face.ImageKey); derr != nil {
				slog.Warn("remove orphaned enrollment image", "error", derr, "key", face.ImageKey)
			}
		}
		if created {
			if derr := e.identities.DeleteIdentity(ctx, identity.ID); derr != nil {
				slog.Warn("remove identity after failed face insert", "error", derr, "identity_id", identity.ID)
			}
		}
		return nil, fmt.Errorf("insert face record: %w", err)
	}

	if e.recorder != nil {
		e.recorder.Enrolled(ctx, identity, face.ID, face.Quality)
	}

	return &Outcome{
		Identity:        identity,
		Face:            face,
		Dim:             e.provider.Dim(),
		Quality:         obs.Quality,
		BBox:            obs.BBox,
		IdentityCreated: created,
	}, nil
}

// CheckDuplicate runs detection and the duplicate guard without taking
// the region lock or writing anything. A non-empty externalID names an
// identity whose own faces are excluded, so adding another photo to that
// identity can be pre-checked without matching itself. The answer is
// advisory; it can go stale the moment it is returned.
func (e *Enroller) CheckDuplicate(ctx context.Context, region, externalID string, image []byte) (match.Decision, error) {
	obs, err := e.observe(ctx, region, image)
	if err != nil {
		return match.Decision{}, err
	}
	var excluding *uuid.UUID
	if externalID != "" {
		identity, err := e.identities.GetIdentityByExternalID(ctx, region, externalID)
		if err != nil {
			return match.Decision{}, fmt.Errorf("resolve identity: %w", err)
		}
		if identity != nil {
			excluding = &identity.ID
		}
	}
	return e.guard.Check(ctx, region, obs.Embedding, excluding)
}

func (e *Enroller) guardThreshold() float64 {
	// The guard and the in-batch seen set use the same strictness.
	return e.guard.Threshold()
}

// lockRegion takes the in-process region lock and, when configured, the
// database advisory lock behind it.
func (e *Enroller) lockRegion(ctx context.Context, region string) (func(), error) {
	release, err := e.locks.acquire(ctx, region, e.lockTimeout)
	if err != nil {
		return nil, err
	}
	if e.dbLock == nil {
		return release, nil
	}

	dbRelease, err := e.dbLock.LockRegion(ctx, region)
	if err != nil {
		release()
		return nil, fmt.Errorf("region advisory lock: %w", err)
	}
	return func() {
		dbRelease()
		release()
	}, nil
}
