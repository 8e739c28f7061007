// Package attendance drives the per-(identity, day) state machine:
// NOT_MARKED -> CHECKED_IN -> CHECKED_OUT, terminal for the day. All day
// boundaries use one fixed reporting timezone.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kalaburagitech/face-recognition-sub000/internal/models"
	"github.com/kalaburagitech/face-recognition-sub000/internal/observability"
)

const dayFormat = "2006-01-02"

var (
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrNotCheckedIn rejects a check-out with no prior check-in rather
	// than creating an orphaned check-out-only record.
	ErrNotCheckedIn = errors.New("no check-in recorded for this day")
)

// Store is the persistence contract for attendance records. InsertCheckIn
// must be conditional on the (identity, day) key so two concurrent
// confirmations cannot both create a record; CompleteCheckOut must only
// update a record whose check-out is still unset.
type Store interface {
	ResolveIdentity(ctx context.Context, region, ref string) (*models.Identity, error)
	GetAttendance(ctx context.Context, identityID uuid.UUID, day string) (*models.AttendanceRecord, error)
	InsertCheckIn(ctx context.Context, rec *models.AttendanceRecord) (bool, error)
	CompleteCheckOut(ctx context.Context, identityID uuid.UUID, day string, at time.Time) (*models.AttendanceRecord, bool, error)
	ListAttendanceDay(ctx context.Context, region, day string) ([]models.AttendanceWithIdentity, error)
	DeleteAttendance(ctx context.Context, identityID uuid.UUID, day string) error
}

// Recorder receives completed transitions for the analytics stream.
// Optional.
type Recorder interface {
	CheckedIn(ctx context.Context, identity *models.Identity, rec *models.AttendanceRecord)
	CheckedOut(ctx context.Context, identity *models.Identity, rec *models.AttendanceRecord)
}

// Tracker applies attendance transitions after operator confirmation.
type Tracker struct {
	store    Store
	loc      *time.Location
	recorder Recorder
	now      func() time.Time
}

func NewTracker(store Store, timezone string, recorder Recorder) (*Tracker, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load reporting timezone %q: %w", timezone, err)
	}
	return &Tracker{store: store, loc: loc, recorder: recorder, now: time.Now}, nil
}

// Result reports a transition. AlreadyMarked and AlreadyCompleted are
// successful no-op flags, not errors.
type Result struct {
	Identity         *models.Identity         `json:"identity"`
	Record           *models.AttendanceRecord `json:"record"`
	AlreadyMarked    bool                     `json:"already_marked"`
	AlreadyCompleted bool                     `json:"already_completed"`
}

// Today returns the current calendar day in the reporting timezone.
func (t *Tracker) Today() string {
	return t.now().In(t.loc).Format(dayFormat)
}

// CheckIn records the NOT_MARKED -> CHECKED_IN transition for today.
// Idempotent: a repeat confirmation returns the existing record with
// already_marked set.
func (t *Tracker) CheckIn(ctx context.Context, region, ref string) (*Result, error) {
	identity, err := t.resolve(ctx, region, ref)
	if err != nil {
		return nil, err
	}

	now := t.now().In(t.loc)
	day := now.Format(dayFormat)

	rec := &models.AttendanceRecord{
		ID:         uuid.New(),
		IdentityID: identity.ID,
		Day:        day,
		CheckInAt:  &now,
		Status:     models.AttendanceCheckedIn,
	}

	created, err := t.store.InsertCheckIn(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("insert check-in: %w", err)
	}
	if !created {
		existing, err := t.store.GetAttendance(ctx, identity.ID, day)
		if err != nil {
			return nil, fmt.Errorf("load attendance: %w", err)
		}
		return &Result{
			Identity:         identity,
			Record:           existing,
			AlreadyMarked:    true,
			AlreadyCompleted: existing.Status == models.AttendanceCheckedOut,
		}, nil
	}

	observability.AttendanceMarks.WithLabelValues(region, "check_in").Inc()
	if t.recorder != nil {
		t.recorder.CheckedIn(ctx, identity, rec)
	}
	return &Result{Identity: identity, Record: rec}, nil
}

// CheckOut records the CHECKED_IN -> CHECKED_OUT transition for today.
// Idempotent on repeat; rejected with ErrNotCheckedIn when no check-in
// exists for the day.
func (t *Tracker) CheckOut(ctx context.Context, region, ref string) (*Result, error) {
	identity, err := t.resolve(ctx, region, ref)
	if err != nil {
		return nil, err
	}

	now := t.now().In(t.loc)
	day := now.Format(dayFormat)

	rec, updated, err := t.store.CompleteCheckOut(ctx, identity.ID, day, now)
	if err != nil {
		return nil, fmt.Errorf("complete check-out: %w", err)
	}
	if updated {
		observability.AttendanceMarks.WithLabelValues(region, "check_out").Inc()
		if t.recorder != nil {
			t.recorder.CheckedOut(ctx, identity, rec)
		}
		return &Result{Identity: identity, Record: rec}, nil
	}

	existing, err := t.store.GetAttendance(ctx, identity.ID, day)
	if err != nil {
		return nil, fmt.Errorf("load attendance: %w", err)
	}
	if existing == nil {
		return nil, ErrNotCheckedIn
	}
	// Record exists but the conditional update matched nothing: the day
	// is already completed.
	return &Result{
		Identity:         identity,
		Record:           existing,
		AlreadyCompleted: true,
	}, nil
}

// Status reports the state for a day, defaulting to today.
func (t *Tracker) Status(ctx context.Context, region, ref, day string) (models.AttendanceState, *models.AttendanceRecord, error) {
	identity, err := t.resolve(ctx, region, ref)
	if err != nil {
		return "", nil, err
	}
	if day == "" {
		day = t.Today()
	} else if _, err := time.ParseInLocation(dayFormat, day, t.loc); err != nil {
		return "", nil, fmt.Errorf("parse day %q: %w", day, err)
	}

	rec, err := t.store.GetAttendance(ctx, identity.ID, day)
	if err != nil {
		return "", nil, fmt.Errorf("load attendance: %w", err)
	}
	if rec == nil {
		return models.AttendanceNotMarked, nil, nil
	}
	return rec.Status, rec, nil
}

// ListDay returns all attendance records for a region and day, defaulting
// to today.
func (t *Tracker) ListDay(ctx context.Context, region, day string) ([]models.AttendanceWithIdentity, error) {
	if day == "" {
		day = t.Today()
	}
	entries, err := t.store.ListAttendanceDay(ctx, region, day)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return entries, nil
}

// Delete removes one identity's record for a day (operator action).
func (t *Tracker) Delete(ctx context.Context, region, ref, day string) error {
	identity, err := t.resolve(ctx, region, ref)
	if err != nil {
		return err
	}
	if day == "" {
		day = t.Today()
	}
	return t.store.DeleteAttendance(ctx, identity.ID, day)
}

// resolve accepts an identity id, an external employee id, or an exact
// display name, in that order. Name lookup is a documented-ambiguous
// fallback: the earliest-created match wins.
func (t *Tracker) resolve(ctx context.Context, region, ref string) (*models.Identity, error) {
	identity, err := t.store.ResolveIdentity(ctx, region, ref)
	if err != nil {
		return nil, fmt.Errorf("resolve identity: %w", err)
	}
	if identity == nil {
		return nil, ErrIdentityNotFound
	}
	return identity, nil
}
