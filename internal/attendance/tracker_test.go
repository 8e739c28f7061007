package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kalaburagitech/face-recognition-sub000/internal/models"
)

// fakeStore is an in-memory attendance.Store with the same conditional
// insert/update semantics as the SQL backend.
type fakeStore struct {
	identities map[string]*models.Identity         // region/ref -> identity
	records    map[string]*models.AttendanceRecord // identityID/day -> record
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		identities: make(map[string]*models.Identity),
		records:    make(map[string]*models.AttendanceRecord),
	}
}

func (f *fakeStore) addIdentity(region, ref, name string) *models.Identity {
	id := &models.Identity{ID: uuid.New(), Region: region, ExternalID: ref, Name: name}
	f.identities[region+"/"+ref] = id
	return id
}

func (f *fakeStore) ResolveIdentity(_ context.Context, region, ref string) (*models.Identity, error) {
	return f.identities[region+"/"+ref], nil
}

func (f *fakeStore) GetAttendance(_ context.Context, identityID uuid.UUID, day string) (*models.AttendanceRecord, error) {
	rec, ok := f.records[identityID.String()+"/"+day]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeStore) InsertCheckIn(_ context.Context, rec *models.AttendanceRecord) (bool, error) {
	key := rec.IdentityID.String() + "/" + rec.Day
	if _, exists := f.records[key]; exists {
		return false, nil
	}
	cp := *rec
	f.records[key] = &cp
	return true, nil
}

func (f *fakeStore) CompleteCheckOut(_ context.Context, identityID uuid.UUID, day string, at time.Time) (*models.AttendanceRecord, bool, error) {
	key := identityID.String() + "/" + day
	rec, ok := f.records[key]
	if !ok || rec.CheckInAt == nil || rec.CheckOutAt != nil {
		return nil, false, nil
	}
	rec.CheckOutAt = &at
	rec.Status = models.AttendanceCheckedOut
	cp := *rec
	return &cp, true, nil
}

func (f *fakeStore) ListAttendanceDay(_ context.Context, region, day string) ([]models.AttendanceWithIdentity, error) {
	var out []models.AttendanceWithIdentity
	for _, id := range f.identities {
		if id.Region != region {
			continue
		}
		if rec, ok := f.records[id.ID.String()+"/"+day]; ok {
			out = append(out, models.AttendanceWithIdentity{Record: *rec, Identity: *id})
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteAttendance(_ context.Context, identityID uuid.UUID, day string) error {
	key := identityID.String() + "/" + day
	if _, ok := f.records[key]; !ok {
		return errors.New("attendance record not found")
	}
	delete(f.records, key)
	return nil
}

type recordedEvent struct {
	kind string
	id   uuid.UUID
}

type fakeRecorder struct {
	events []recordedEvent
}

func (f *fakeRecorder) CheckedIn(_ context.Context, identity *models.Identity, _ *models.AttendanceRecord) {
	f.events = append(f.events, recordedEvent{kind: "check_in", id: identity.ID})
}

func (f *fakeRecorder) CheckedOut(_ context.Context, identity *models.Identity, _ *models.AttendanceRecord) {
	f.events = append(f.events, recordedEvent{kind: "check_out", id: identity.ID})
}

func newTestTracker(t *testing.T, store *fakeStore, recorder Recorder) *Tracker {
	t.Helper()
	tracker, err := NewTracker(store, "UTC", recorder)
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}
	return tracker
}

func TestCheckInFirstTime(t *testing.T) {
	store := newFakeStore()
	alice := store.addIdentity("hq", "E-1", "Alice")
	recorder := &fakeRecorder{}
	tracker := newTestTracker(t, store, recorder)

	res, err := tracker.CheckIn(context.Background(), "hq", "E-1")
	if err != nil {
		t.Fatalf("check-in: %v", err)
	}

	if res.AlreadyMarked {
		t.Error("first check-in must not report already_marked")
	}
	if res.Record.Status != models.AttendanceCheckedIn {
		t.Errorf("expected checked_in, got %s", res.Record.Status)
	}
	if res.Record.CheckInAt == nil {
		t.Error("check_in_at not set")
	}
	if res.Identity.ID != alice.ID {
		t.Error("wrong identity resolved")
	}
	if len(recorder.events) != 1 || recorder.events[0].kind != "check_in" {
		t.Errorf("expected one check_in event, got %+v", recorder.events)
	}
}

func TestCheckInIdempotent(t *testing.T) {
	store := newFakeStore()
	store.addIdentity("hq", "E-1", "Alice")
	recorder := &fakeRecorder{}
	tracker := newTestTracker(t, store, recorder)

	first, err := tracker.CheckIn(context.Background(), "hq", "E-1")
	if err != nil {
		t.Fatalf("first check-in: %v", err)
	}
	second, err := tracker.CheckIn(context.Background(), "hq", "E-1")
	if err != nil {
		t.Fatalf("second check-in: %v", err)
	}

	if !second.AlreadyMarked {
		t.Error("repeat check-in must report already_marked")
	}
	if second.AlreadyCompleted {
		t.Error("already_completed must be false before check-out")
	}
	if !second.Record.CheckInAt.Equal(*first.Record.CheckInAt) {
		t.Errorf("repeat check-in changed the timestamp: %v vs %v",
			second.Record.CheckInAt, first.Record.CheckInAt)
	}
	// The no-op repeat produces no second analytics event.
	if len(recorder.events) != 1 {
		t.Errorf("expected 1 event, got %d", len(recorder.events))
	}
}

func TestCheckOutCompletesDay(t *testing.T) {
	store := newFakeStore()
	store.addIdentity("hq", "E-1", "Alice")
	recorder := &fakeRecorder{}
	tracker := newTestTracker(t, store, recorder)

	if _, err := tracker.CheckIn(context.Background(), "hq", "E-1"); err != nil {
		t.Fatalf("check-in: %v", err)
	}
	res, err := tracker.CheckOut(context.Background(), "hq", "E-1")
	if err != nil {
		t.Fatalf("check-out: %v", err)
	}

	if res.Record.Status != models.AttendanceCheckedOut {
		t.Errorf("expected checked_out, got %s", res.Record.Status)
	}
	if res.Record.CheckOutAt == nil {
		t.Error("check_out_at not set")
	}
	if res.AlreadyCompleted {
		t.Error("first check-out must not report already_completed")
	}
	if len(recorder.events) != 2 || recorder.events[1].kind != "check_out" {
		t.Errorf("expected check_in then check_out events, got %+v", recorder.events)
	}
}

func TestCheckOutIdempotent(t *testing.T) {
	store := newFakeStore()
	store.addIdentity("hq", "E-1", "Alice")
	recorder := &fakeRecorder{}
	tracker := newTestTracker(t, store, recorder)

	if _, err := tracker.CheckIn(context.Background(), "hq", "E-1"); err != nil {
		t.Fatalf("check-in: %v", err)
	}
	first, err := tracker.CheckOut(context.Background(), "hq", "E-1")
	if err != nil {
		t.Fatalf("first check-out: %v", err)
	}
	second, err := tracker.CheckOut(context.Background(), "hq", "E-1")
	if err != nil {
		t.Fatalf("second check-out: %v", err)
	}

	if !second.AlreadyCompleted {
		t.Error("repeat check-out must report already_completed")
	}
	if !second.Record.CheckOutAt.Equal(*first.Record.CheckOutAt) {
		t.Error("repeat check-out changed the timestamp")
	}
	if len(recorder.events) != 2 {
		t.Errorf("expected 2 events, got %d", len(recorder.events))
	}
}

func TestCheckOutWithoutCheckIn(t *testing.T) {
	store := newFakeStore()
	store.addIdentity("hq", "E-1", "Alice")
	tracker := newTestTracker(t, store, nil)

	_, err := tracker.CheckOut(context.Background(), "hq", "E-1")
	if !errors.Is(err, ErrNotCheckedIn) {
		t.Fatalf("expected ErrNotCheckedIn, got %v", err)
	}
}

func TestCheckInAfterCheckOut(t *testing.T) {
	store := newFakeStore()
	store.addIdentity("hq", "E-1", "Alice")
	tracker := newTestTracker(t, store, nil)

	if _, err := tracker.CheckIn(context.Background(), "hq", "E-1"); err != nil {
		t.Fatalf("check-in: %v", err)
	}
	if _, err := tracker.CheckOut(context.Background(), "hq", "E-1"); err != nil {
		t.Fatalf("check-out: %v", err)
	}

	// A confirmation arriving after the day is completed is a no-op.
	res, err := tracker.CheckIn(context.Background(), "hq", "E-1")
	if err != nil {
		t.Fatalf("late check-in: %v", err)
	}
	if !res.AlreadyMarked || !res.AlreadyCompleted {
		t.Errorf("expected already_marked and already_completed, got %+v", res)
	}
	if res.Record.Status != models.AttendanceCheckedOut {
		t.Errorf("late check-in must not reopen the day, status %s", res.Record.Status)
	}
}

func TestUnknownIdentity(t *testing.T) {
	store := newFakeStore()
	tracker := newTestTracker(t, store, nil)

	if _, err := tracker.CheckIn(context.Background(), "hq", "nobody"); !errors.Is(err, ErrIdentityNotFound) {
		t.Errorf("check-in: expected ErrIdentityNotFound, got %v", err)
	}
	if _, err := tracker.CheckOut(context.Background(), "hq", "nobody"); !errors.Is(err, ErrIdentityNotFound) {
		t.Errorf("check-out: expected ErrIdentityNotFound, got %v", err)
	}
	if _, _, err := tracker.Status(context.Background(), "hq", "nobody", ""); !errors.Is(err, ErrIdentityNotFound) {
		t.Errorf("status: expected ErrIdentityNotFound, got %v", err)
	}
}

func TestStatusLifecycle(t *testing.T) {
	store := newFakeStore()
	store.addIdentity("hq", "E-1", "Alice")
	tracker := newTestTracker(t, store, nil)
	ctx := context.Background()

	state, rec, err := tracker.Status(ctx, "hq", "E-1", "")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if state != models.AttendanceNotMarked || rec != nil {
		t.Errorf("expected not_marked with no record, got %s", state)
	}

	if _, err := tracker.CheckIn(ctx, "hq", "E-1"); err != nil {
		t.Fatalf("check-in: %v", err)
	}
	state, rec, err = tracker.Status(ctx, "hq", "E-1", "")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if state != models.AttendanceCheckedIn || rec == nil {
		t.Errorf("expected checked_in with record, got %s", state)
	}

	if _, err := tracker.CheckOut(ctx, "hq", "E-1"); err != nil {
		t.Fatalf("check-out: %v", err)
	}
	state, _, err = tracker.Status(ctx, "hq", "E-1", "")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if state != models.AttendanceCheckedOut {
		t.Errorf("expected checked_out, got %s", state)
	}
}

func TestStatusRejectsBadDay(t *testing.T) {
	store := newFakeStore()
	store.addIdentity("hq", "E-1", "Alice")
	tracker := newTestTracker(t, store, nil)

	if _, _, err := tracker.Status(context.Background(), "hq", "E-1", "31-12-2026"); err == nil {
		t.Error("expected error for malformed day")
	}
}

func TestDayBoundaryResetsState(t *testing.T) {
	store := newFakeStore()
	store.addIdentity("hq", "E-1", "Alice")
	tracker := newTestTracker(t, store, nil)

	base := time.Date(2026, 8, 31, 23, 50, 0, 0, time.UTC)
	tracker.now = func() time.Time { return base }

	if _, err := tracker.CheckIn(context.Background(), "hq", "E-1"); err != nil {
		t.Fatalf("check-in: %v", err)
	}

	// Past midnight the same identity is not marked again.
	tracker.now = func() time.Time { return base.Add(20 * time.Minute) }

	state, _, err := tracker.Status(context.Background(), "hq", "E-1", "")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if state != models.AttendanceNotMarked {
		t.Errorf("expected not_marked on the new day, got %s", state)
	}

	res, err := tracker.CheckIn(context.Background(), "hq", "E-1")
	if err != nil {
		t.Fatalf("next-day check-in: %v", err)
	}
	if res.AlreadyMarked {
		t.Error("next-day check-in must be a fresh record")
	}
}

func TestListDay(t *testing.T) {
	store := newFakeStore()
	store.addIdentity("hq", "E-1", "Alice")
	store.addIdentity("hq", "E-2", "Bob")
	store.addIdentity("remote", "E-3", "Carol")
	tracker := newTestTracker(t, store, nil)
	ctx := context.Background()

	for _, ref := range []string{"E-1", "E-2"} {
		if _, err := tracker.CheckIn(ctx, "hq", ref); err != nil {
			t.Fatalf("check-in %s: %v", ref, err)
		}
	}
	if _, err := tracker.CheckIn(ctx, "remote", "E-3"); err != nil {
		t.Fatalf("check-in carol: %v", err)
	}

	entries, err := tracker.ListDay(ctx, "hq", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 hq entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Identity.Region != "hq" {
			t.Errorf("entry from wrong region: %s", e.Identity.Region)
		}
	}
}

func TestDeleteAllowsRemark(t *testing.T) {
	store := newFakeStore()
	store.addIdentity("hq", "E-1", "Alice")
	tracker := newTestTracker(t, store, nil)
	ctx := context.Background()

	if _, err := tracker.CheckIn(ctx, "hq", "E-1"); err != nil {
		t.Fatalf("check-in: %v", err)
	}
	if err := tracker.Delete(ctx, "hq", "E-1", ""); err != nil {
		t.Fatalf("delete: %v", err)
	}

	res, err := tracker.CheckIn(ctx, "hq", "E-1")
	if err != nil {
		t.Fatalf("re-check-in: %v", err)
	}
	if res.AlreadyMarked {
		t.Error("check-in after delete must create a fresh record")
	}
}
