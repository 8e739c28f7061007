package enroll

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrNoFaceDetected means the provider found zero faces in the image.
	ErrNoFaceDetected = errors.New("no face detected")

	// ErrMultipleFaces means more than one usable face was found, so the
	// enrollment target is ambiguous.
	ErrMultipleFaces = errors.New("multiple faces detected, enrollment image must contain exactly one")

	// ErrEnrollmentConflict means the per-region critical section could
	// not be acquired in time. Retryable by the caller.
	ErrEnrollmentConflict = errors.New("concurrent enrollment conflict, retry")
)

// LowQualityError reports a face below the configured quality floor.
type LowQualityError struct {
	Quality float32
	Floor   float64
}

func (e *LowQualityError) Error() string {
	return fmt.Sprintf("face quality %.2f below floor %.2f", e.Quality, e.Floor)
}

// DuplicateError reports an embedding that already matches a different
// enrolled identity.
type DuplicateError struct {
	IdentityID uuid.UUID
	Name       string
	Similarity float64
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("face already enrolled as %q (similarity %.2f)", e.Name, e.Similarity)
}

// BatchMismatchError reports a batch image that does not match the faces
// already accepted in the same batch, meaning the batch mixes two
// different people under one name.
type BatchMismatchError struct {
	Similarity float64
	Threshold  float64
}

func (e *BatchMismatchError) Error() string {
	return fmt.Sprintf("image does not match faces accepted earlier in this batch (similarity %.2f < %.2f)",
		e.Similarity, e.Threshold)
}
