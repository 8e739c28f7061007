package gallery

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kalaburagitech/face-recognition-sub000/internal/models"
)

func insertRecord(t *testing.T, store *MemoryStore, region string, identityID uuid.UUID, embedding []float32, quality float32, createdAt time.Time) *models.FaceRecord {
	t.Helper()
	rec := &models.FaceRecord{
		ID:         uuid.New(),
		IdentityID: identityID,
		Region:     region,
		Embedding:  embedding,
		Confidence: 0.9,
		Quality:    quality,
		CreatedAt:  createdAt,
	}
	if err := store.Insert(context.Background(), rec); err != nil {
		t.Fatalf("insert: %v", err)
	}
	return rec
}

func TestMemoryStoreNearest(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()

	alice := uuid.New()
	bob := uuid.New()
	store.SetIdentityName(alice, "Alice")
	store.SetIdentityName(bob, "Bob")

	insertRecord(t, store, "hq", alice, []float32{1, 0, 0}, 0.9, now)
	insertRecord(t, store, "hq", bob, []float32{0, 1, 0}, 0.8, now)

	matches, err := store.Nearest(context.Background(), "hq", []float32{0.99, 0.1, 0}, 1, nil)
	if err != nil {
		t.Fatalf("nearest: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].IdentityID != alice {
		t.Errorf("expected Alice as nearest, got %s", matches[0].Name)
	}
	if matches[0].Name != "Alice" {
		t.Errorf("expected name Alice, got %q", matches[0].Name)
	}
	if matches[0].Similarity < 0.9 {
		t.Errorf("expected high similarity, got %v", matches[0].Similarity)
	}
}

func TestMemoryStoreRegionIsolation(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()

	insertRecord(t, store, "north", uuid.New(), []float32{1, 0, 0}, 0.9, now)

	matches, err := store.Nearest(context.Background(), "south", []float32{1, 0, 0}, 5, nil)
	if err != nil {
		t.Fatalf("nearest: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected no matches in other region, got %d", len(matches))
	}
}

func TestMemoryStoreExcluding(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()

	self := uuid.New()
	other := uuid.New()
	insertRecord(t, store, "hq", self, []float32{1, 0, 0}, 0.9, now)
	insertRecord(t, store, "hq", other, []float32{0.9, 0.1, 0}, 0.9, now)

	matches, err := store.Nearest(context.Background(), "hq", []float32{1, 0, 0}, 5, &self)
	if err != nil {
		t.Fatalf("nearest: %v", err)
	}
	for _, m := range matches {
		if m.IdentityID == self {
			t.Errorf("excluded identity %s appeared in matches", self)
		}
	}
	if len(matches) != 1 || matches[0].IdentityID != other {
		t.Errorf("expected only the other identity, got %d matches", len(matches))
	}
}

func TestMemoryStoreDeletedRecordStopsMatching(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()

	rec := insertRecord(t, store, "hq", uuid.New(), []float32{1, 0, 0}, 0.9, now)
	if err := store.Delete(context.Background(), rec.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	matches, err := store.Nearest(context.Background(), "hq", []float32{1, 0, 0}, 5, nil)
	if err != nil {
		t.Fatalf("nearest: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected no matches after delete, got %d", len(matches))
	}
	if store.Count("hq") != 0 {
		t.Errorf("expected count 0 after delete, got %d", store.Count("hq"))
	}
}

func TestMemoryStoreTieBreaks(t *testing.T) {
	store := NewMemoryStore()
	older := time.Now().Add(-time.Hour)
	newer := time.Now()

	embedding := []float32{1, 0, 0}

	highQ := uuid.New()
	lowQ := uuid.New()
	// Same similarity, different quality.
	insertRecord(t, store, "hq", lowQ, embedding, 0.5, older)
	insertRecord(t, store, "hq", highQ, embedding, 0.9, newer)

	matches, err := store.Nearest(context.Background(), "hq", embedding, 2, nil)
	if err != nil {
		t.Fatalf("nearest: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].IdentityID != highQ {
		t.Errorf("expected higher quality record first")
	}

	// Same similarity and quality, different age.
	store2 := NewMemoryStore()
	first := insertRecord(t, store2, "hq", uuid.New(), embedding, 0.7, older)
	insertRecord(t, store2, "hq", uuid.New(), embedding, 0.7, newer)

	matches, err = store2.Nearest(context.Background(), "hq", embedding, 2, nil)
	if err != nil {
		t.Fatalf("nearest: %v", err)
	}
	if matches[0].RecordID != first.ID {
		t.Errorf("expected older record first on quality tie")
	}
}

func TestMemoryStoreDeterministicOrdering(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()

	for i := 0; i < 5; i++ {
		insertRecord(t, store, "hq", uuid.New(), []float32{1, float32(i) * 0.1, 0}, 0.7, now)
	}

	query := []float32{1, 0.05, 0}
	first, err := store.Nearest(context.Background(), "hq", query, 5, nil)
	if err != nil {
		t.Fatalf("nearest: %v", err)
	}
	for run := 0; run < 5; run++ {
		again, err := store.Nearest(context.Background(), "hq", query, 5, nil)
		if err != nil {
			t.Fatalf("nearest: %v", err)
		}
		if len(again) != len(first) {
			t.Fatalf("run %d: result size changed", run)
		}
		for i := range again {
			if again[i].RecordID != first[i].RecordID {
				t.Fatalf("run %d: ordering changed at position %d", run, i)
			}
		}
	}
}
