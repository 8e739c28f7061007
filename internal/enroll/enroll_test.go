package enroll

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kalaburagitech/face-recognition-sub000/internal/gallery"
	"github.com/kalaburagitech/face-recognition-sub000/internal/match"
	"github.com/kalaburagitech/face-recognition-sub000/internal/models"
)

// fakeProvider maps image payloads to canned observations.
type fakeProvider struct {
	observations map[string][]models.FaceObservation
}

func (f *fakeProvider) Detect(imageData []byte) ([]models.FaceObservation, error) {
	return f.observations[string(imageData)], nil
}

func (f *fakeProvider) Dim() int { return 3 }

type fakeIdentityStore struct {
	mu         sync.Mutex
	byExternal map[string]*models.Identity
	created    []*models.Identity
}

func newFakeIdentityStore() *fakeIdentityStore {
	return &fakeIdentityStore{byExternal: make(map[string]*models.Identity)}
}

func (f *fakeIdentityStore) GetIdentityByExternalID(_ context.Context, region, externalID string) (*models.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byExternal[region+"/"+externalID], nil
}

func (f *fakeIdentityStore) CreateIdentity(_ context.Context, id *models.Identity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	id.CreatedAt = time.Now()
	id.UpdatedAt = id.CreatedAt
	if id.ExternalID != "" {
		f.byExternal[id.Region+"/"+id.ExternalID] = id
	}
	f.created = append(f.created, id)
	return nil
}

func (f *fakeIdentityStore) DeleteIdentity(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, identity := range f.byExternal {
		if identity.ID == id {
			delete(f.byExternal, key)
		}
	}
	for i, identity := range f.created {
		if identity.ID == id {
			f.created = append(f.created[:i], f.created[i+1:]...)
			break
		}
	}
	return nil
}

func obs(embedding []float32, quality float32) models.FaceObservation {
	return models.FaceObservation{
		BBox:       [4]float32{10, 10, 100, 100},
		Confidence: 0.95,
		Quality:    quality,
		Embedding:  embedding,
	}
}

type testEnv struct {
	enroller   *Enroller
	provider   *fakeProvider
	store      *gallery.MemoryStore
	identities *fakeIdentityStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	settings, err := match.NewSettings(match.Thresholds{Recognition: 0.35, Duplicate: 0.80})
	if err != nil {
		t.Fatalf("new settings: %v", err)
	}
	store := gallery.NewMemoryStore()
	provider := &fakeProvider{observations: make(map[string][]models.FaceObservation)}
	identities := newFakeIdentityStore()
	enroller := New(provider, match.NewGuard(store, settings), store, identities, Options{
		QualityFloor: 0.45,
		LockTimeout:  time.Second,
	})
	return &testEnv{enroller: enroller, provider: provider, store: store, identities: identities}
}

func (env *testEnv) image(name string, observations ...models.FaceObservation) []byte {
	env.provider.observations[name] = observations
	return []byte(name)
}

func TestEnrollCreatesIdentityAndFace(t *testing.T) {
	env := newTestEnv(t)
	img := env.image("alice.jpg", obs([]float32{1, 0, 0}, 0.9))

	outcome, err := env.enroller.Enroll(context.Background(), Request{
		Region:     "hq",
		ExternalID: "E-1",
		Name:       "Alice",
		Image:      img,
		ImageName:  "alice.jpg",
	})
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}

	if !outcome.IdentityCreated {
		t.Error("expected a new identity")
	}
	if outcome.Identity.Name != "Alice" || outcome.Identity.Region != "hq" {
		t.Errorf("unexpected identity: %+v", outcome.Identity)
	}
	if outcome.Face.IdentityID != outcome.Identity.ID {
		t.Error("face not linked to identity")
	}
	if outcome.Quality != 0.9 {
		t.Errorf("expected quality 0.9, got %v", outcome.Quality)
	}
	if env.store.Count("hq") != 1 {
		t.Errorf("expected 1 gallery record, got %d", env.store.Count("hq"))
	}
}

func TestEnrollNoFace(t *testing.T) {
	env := newTestEnv(t)
	img := env.image("empty.jpg")

	_, err := env.enroller.Enroll(context.Background(), Request{Region: "hq", Name: "Alice", Image: img})
	if !errors.Is(err, ErrNoFaceDetected) {
		t.Fatalf("expected ErrNoFaceDetected, got %v", err)
	}
	if env.store.Count("hq") != 0 {
		t.Error("rejected enrollment must not persist")
	}
	if len(env.identities.created) != 0 {
		t.Error("rejected enrollment must not create an identity")
	}
}

func TestEnrollLowQuality(t *testing.T) {
	env := newTestEnv(t)
	// Two faces, both under the floor. The error reports the best one.
	img := env.image("blurry.jpg",
		obs([]float32{1, 0, 0}, 0.20),
		obs([]float32{0, 1, 0}, 0.40),
	)

	_, err := env.enroller.Enroll(context.Background(), Request{Region: "hq", Name: "Alice", Image: img})
	var lowQ *LowQualityError
	if !errors.As(err, &lowQ) {
		t.Fatalf("expected LowQualityError, got %v", err)
	}
	if lowQ.Quality != 0.40 {
		t.Errorf("expected best quality 0.40 in error, got %v", lowQ.Quality)
	}
	if env.store.Count("hq") != 0 {
		t.Error("rejected enrollment must not persist")
	}
}

func TestEnrollMultipleUsableFaces(t *testing.T) {
	env := newTestEnv(t)
	img := env.image("group.jpg",
		obs([]float32{1, 0, 0}, 0.9),
		obs([]float32{0, 1, 0}, 0.8),
	)

	_, err := env.enroller.Enroll(context.Background(), Request{Region: "hq", Name: "Alice", Image: img})
	if !errors.Is(err, ErrMultipleFaces) {
		t.Fatalf("expected ErrMultipleFaces, got %v", err)
	}
}

func TestEnrollOneUsableFaceAmongLowQuality(t *testing.T) {
	env := newTestEnv(t)
	// A bystander under the floor does not make the image ambiguous.
	img := env.image("street.jpg",
		obs([]float32{1, 0, 0}, 0.9),
		obs([]float32{0, 1, 0}, 0.2),
	)

	outcome, err := env.enroller.Enroll(context.Background(), Request{Region: "hq", Name: "Alice", Image: img})
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if outcome.Quality != 0.9 {
		t.Errorf("expected the usable face enrolled, got quality %v", outcome.Quality)
	}
}

func TestEnrollBlocksDuplicate(t *testing.T) {
	env := newTestEnv(t)

	aliceImg := env.image("alice.jpg", obs([]float32{1, 0, 0}, 0.9))
	first, err := env.enroller.Enroll(context.Background(), Request{Region: "hq", Name: "Alice", Image: aliceImg})
	if err != nil {
		t.Fatalf("enroll alice: %v", err)
	}

	// Same face under a different name.
	impostorImg := env.image("impostor.jpg", obs([]float32{0.99, 0.05, 0}, 0.9))
	_, err = env.enroller.Enroll(context.Background(), Request{Region: "hq", Name: "Mallory", Image: impostorImg})

	var dup *DuplicateError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateError, got %v", err)
	}
	if dup.IdentityID != first.Identity.ID {
		t.Errorf("duplicate should point at Alice, got %s", dup.Name)
	}
	if dup.Similarity < 0.80 {
		t.Errorf("reported similarity %v below threshold", dup.Similarity)
	}
	if env.store.Count("hq") != 1 {
		t.Errorf("blocked duplicate must not persist, count %d", env.store.Count("hq"))
	}
}

func TestEnrollSamePersonMorePhotos(t *testing.T) {
	env := newTestEnv(t)

	img1 := env.image("a1.jpg", obs([]float32{1, 0, 0}, 0.9))
	first, err := env.enroller.Enroll(context.Background(), Request{Region: "hq", ExternalID: "E-1", Name: "Alice", Image: img1})
	if err != nil {
		t.Fatalf("enroll first: %v", err)
	}

	// The same external id adds a near-identical photo: the guard excludes
	// the identity itself, so this is not a duplicate.
	img2 := env.image("a2.jpg", obs([]float32{0.99, 0.05, 0}, 0.85))
	second, err := env.enroller.Enroll(context.Background(), Request{Region: "hq", ExternalID: "E-1", Name: "Alice", Image: img2})
	if err != nil {
		t.Fatalf("enroll second: %v", err)
	}

	if second.IdentityCreated {
		t.Error("second enrollment must reuse the identity")
	}
	if second.Identity.ID != first.Identity.ID {
		t.Error("second face attached to a different identity")
	}
	if env.store.Count("hq") != 2 {
		t.Errorf("expected 2 gallery records, got %d", env.store.Count("hq"))
	}
}

func TestEnrollSameFaceOtherRegionIsClear(t *testing.T) {
	env := newTestEnv(t)

	img1 := env.image("north.jpg", obs([]float32{1, 0, 0}, 0.9))
	if _, err := env.enroller.Enroll(context.Background(), Request{Region: "north", Name: "Alice", Image: img1}); err != nil {
		t.Fatalf("enroll north: %v", err)
	}

	img2 := env.image("south.jpg", obs([]float32{1, 0, 0}, 0.9))
	if _, err := env.enroller.Enroll(context.Background(), Request{Region: "south", Name: "Alice", Image: img2}); err != nil {
		t.Fatalf("enroll south: %v", err)
	}
}

func TestCheckDuplicateIsReadOnly(t *testing.T) {
	env := newTestEnv(t)

	img := env.image("alice.jpg", obs([]float32{1, 0, 0}, 0.9))
	if _, err := env.enroller.Enroll(context.Background(), Request{Region: "hq", Name: "Alice", Image: img}); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	probe := env.image("probe.jpg", obs([]float32{0.99, 0.05, 0}, 0.9))
	decision, err := env.enroller.CheckDuplicate(context.Background(), "hq", "", probe)
	if err != nil {
		t.Fatalf("check duplicate: %v", err)
	}
	if decision.Status != match.StatusDuplicate {
		t.Errorf("expected duplicate, got %s", decision.Status)
	}
	if env.store.Count("hq") != 1 {
		t.Errorf("probe must not persist, count %d", env.store.Count("hq"))
	}

	clearProbe := env.image("clear.jpg", obs([]float32{0, 0, 1}, 0.9))
	decision, err = env.enroller.CheckDuplicate(context.Background(), "hq", "", clearProbe)
	if err != nil {
		t.Fatalf("check duplicate: %v", err)
	}
	if decision.Status != match.StatusClear {
		t.Errorf("expected clear, got %s", decision.Status)
	}
}

func TestCheckDuplicateExcludesOwnIdentity(t *testing.T) {
	env := newTestEnv(t)

	img := env.image("alice.jpg", obs([]float32{1, 0, 0}, 0.9))
	if _, err := env.enroller.Enroll(context.Background(), Request{Region: "hq", ExternalID: "E-1", Name: "Alice", Image: img}); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	// Pre-checking another photo of Alice against her own faces is clear.
	probe := env.image("probe.jpg", obs([]float32{0.99, 0.05, 0}, 0.9))
	decision, err := env.enroller.CheckDuplicate(context.Background(), "hq", "E-1", probe)
	if err != nil {
		t.Fatalf("check duplicate: %v", err)
	}
	if decision.Status != match.StatusClear {
		t.Errorf("expected clear when excluding own identity, got %s", decision.Status)
	}

	// The same probe without the exclusion is a duplicate.
	decision, err = env.enroller.CheckDuplicate(context.Background(), "hq", "", probe)
	if err != nil {
		t.Fatalf("check duplicate: %v", err)
	}
	if decision.Status != match.StatusDuplicate {
		t.Errorf("expected duplicate without exclusion, got %s", decision.Status)
	}

	// An unknown external id excludes nothing.
	decision, err = env.enroller.CheckDuplicate(context.Background(), "hq", "E-404", probe)
	if err != nil {
		t.Fatalf("check duplicate: %v", err)
	}
	if decision.Status != match.StatusDuplicate {
		t.Errorf("expected duplicate for unknown external id, got %s", decision.Status)
	}
}

// failingGallery rejects inserts so the cleanup branch can be observed.
type failingGallery struct {
	*gallery.MemoryStore
}

func (f *failingGallery) Insert(context.Context, *models.FaceRecord) error {
	return errors.New("insert failed")
}

type fakeImageStore struct {
	objects map[string][]byte
}

func (f *fakeImageStore) PutObject(_ context.Context, key string, data []byte, _ string) error {
	f.objects[key] = data
	return nil
}

func (f *fakeImageStore) DeleteObject(_ context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

func TestEnrollInsertFailureLeavesNoPartialState(t *testing.T) {
	settings, err := match.NewSettings(match.Thresholds{Recognition: 0.35, Duplicate: 0.80})
	if err != nil {
		t.Fatalf("new settings: %v", err)
	}
	store := &failingGallery{MemoryStore: gallery.NewMemoryStore()}
	provider := &fakeProvider{observations: make(map[string][]models.FaceObservation)}
	identities := newFakeIdentityStore()
	images := &fakeImageStore{objects: make(map[string][]byte)}
	enroller := New(provider, match.NewGuard(store, settings), store, identities, Options{
		QualityFloor: 0.45,
		LockTimeout:  time.Second,
		Images:       images,
	})

	provider.observations["alice.jpg"] = []models.FaceObservation{obs([]float32{1, 0, 0}, 0.9)}
	_, err = enroller.Enroll(context.Background(), Request{
		Region:    "hq",
		Name:      "Alice",
		Image:     []byte("alice.jpg"),
		ImageName: "alice.jpg",
	})
	if err == nil {
		t.Fatal("expected enroll to fail")
	}

	if len(identities.created) != 0 {
		t.Errorf("created identity left behind after failed insert: %d", len(identities.created))
	}
	if len(images.objects) != 0 {
		t.Errorf("uploaded image left behind after failed insert: %d", len(images.objects))
	}
}
