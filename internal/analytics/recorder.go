// Package analytics appends occurrence events (enrollment, check-in,
// check-out) to the events table and publishes them to JetStream for live
// consumers. Events are never mutated after the fact.
package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kalaburagitech/face-recognition-sub000/internal/models"
)

// EventStore persists append-only analytics rows.
type EventStore interface {
	InsertAnalyticsEvent(ctx context.Context, ev *models.AnalyticsEvent) error
}

// Publisher pushes events to the message stream. Optional; publishing is
// best-effort and never fails the originating request.
type Publisher interface {
	PublishEvent(ctx context.Context, region string, data interface{}) error
}

type Recorder struct {
	store     EventStore
	publisher Publisher
}

func NewRecorder(store EventStore, publisher Publisher) *Recorder {
	return &Recorder{store: store, publisher: publisher}
}

func (r *Recorder) Enrolled(ctx context.Context, identity *models.Identity, faceID uuid.UUID, quality float32) {
	meta, _ := json.Marshal(map[string]interface{}{
		"face_id": faceID,
		"quality": quality,
	})
	r.record(ctx, identity, models.EventEnrollment, meta)
}

func (r *Recorder) CheckedIn(ctx context.Context, identity *models.Identity, rec *models.AttendanceRecord) {
	meta, _ := json.Marshal(map[string]interface{}{
		"day":         rec.Day,
		"check_in_at": rec.CheckInAt,
	})
	r.record(ctx, identity, models.EventCheckIn, meta)
}

func (r *Recorder) CheckedOut(ctx context.Context, identity *models.Identity, rec *models.AttendanceRecord) {
	meta, _ := json.Marshal(map[string]interface{}{
		"day":          rec.Day,
		"check_out_at": rec.CheckOutAt,
	})
	r.record(ctx, identity, models.EventCheckOut, meta)
}

func (r *Recorder) record(ctx context.Context, identity *models.Identity, kind models.EventKind, meta json.RawMessage) {
	ev := &models.AnalyticsEvent{
		ID:         uuid.New(),
		IdentityID: identity.ID,
		Region:     identity.Region,
		Kind:       kind,
		OccurredAt: time.Now(),
		Metadata:   meta,
	}

	if err := r.store.InsertAnalyticsEvent(ctx, ev); err != nil {
		slog.Error("store analytics event", "error", err, "kind", kind)
	}

	if r.publisher != nil {
		if err := r.publisher.PublishEvent(ctx, ev.Region, ev); err != nil {
			slog.Warn("publish analytics event", "error", err, "kind", kind)
		}
	}
}
