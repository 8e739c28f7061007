package gallery

import (
	"context"
	"sort"
	"sync"

	"github.com/coder/hnsw"
	"github.com/google/uuid"

	"github.com/kalaburagitech/face-recognition-sub000/internal/models"
)

const memoryMaxNeighbors = 16

// MemoryStore is an in-process gallery backend: one HNSW graph per region
// plus a record map for metadata and exact re-scoring. It backs tests and
// index-free deployments where Postgres/pgvector is not available.
type MemoryStore struct {
	mu      sync.RWMutex
	graphs  map[string]*hnsw.Graph[string]
	records map[string]*models.FaceRecord // record id -> record
	names   map[uuid.UUID]string          // identity id -> display name
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		graphs:  make(map[string]*hnsw.Graph[string]),
		records: make(map[string]*models.FaceRecord),
		names:   make(map[uuid.UUID]string),
	}
}

// SetIdentityName registers the display name reported in matches for an
// identity. The Postgres backend gets this from a join; here it is fed by
// the caller.
func (m *MemoryStore) SetIdentityName(identityID uuid.UUID, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names[identityID] = name
}

func (m *MemoryStore) Insert(_ context.Context, rec *models.FaceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.graphs[rec.Region]
	if !ok {
		g = hnsw.NewGraph[string]()
		g.M = memoryMaxNeighbors
		g.Ml = 1.0 / float64(memoryMaxNeighbors)
		g.Distance = hnsw.CosineDistance
		m.graphs[rec.Region] = g
	}

	cp := *rec
	cp.Embedding = append([]float32(nil), rec.Embedding...)
	g.Add(hnsw.MakeNode(cp.ID.String(), cp.Embedding))
	m.records[cp.ID.String()] = &cp
	return nil
}

func (m *MemoryStore) Nearest(_ context.Context, region string, embedding []float32, k int, excluding *uuid.UUID) ([]Match, error) {
	if k <= 0 {
		k = 1
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.graphs[region]
	if !ok {
		return nil, nil
	}

	// Over-fetch so that deleted or excluded records do not starve the
	// result set, then re-score exactly and order deterministically.
	neighbors := g.Search(embedding, k+memoryMaxNeighbors)

	matches := make([]Match, 0, len(neighbors))
	for _, n := range neighbors {
		rec, ok := m.records[n.Key]
		if !ok || rec.Region != region {
			continue
		}
		if excluding != nil && rec.IdentityID == *excluding {
			continue
		}
		matches = append(matches, Match{
			RecordID:   rec.ID,
			IdentityID: rec.IdentityID,
			Name:       m.names[rec.IdentityID],
			Similarity: CosineSimilarity(embedding, rec.Embedding),
			Quality:    rec.Quality,
			CreatedAt:  rec.CreatedAt,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		if matches[i].Quality != matches[j].Quality {
			return matches[i].Quality > matches[j].Quality
		}
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.Before(matches[j].CreatedAt)
		}
		return matches[i].RecordID.String() < matches[j].RecordID.String()
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Delete removes the record from the metadata map. The HNSW graph keeps the
// node, but Nearest filters through the map so the record stops matching.
func (m *MemoryStore) Delete(_ context.Context, recordID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, recordID.String())
	return nil
}

// Count returns the number of live records in a region.
func (m *MemoryStore) Count(region string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, rec := range m.records {
		if rec.Region == region {
			n++
		}
	}
	return n
}
