// Package inmemory is a process-local vector index for tests and local
// development without a Qdrant instance.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sweetpotato0/kgpgpt/vector"
)

// Store implements vector.Store with brute-force cosine search.
type Store struct {
	mu        sync.RWMutex
	points    map[string]vector.Point
	order     []string
	dimension int
}

// New creates an empty store. The collection counts as missing until
// EnsureCollection or Upsert is called.
func New() *Store {
	return &Store{points: make(map[string]vector.Point)}
}

// EnsureCollection records the dimension for later checks.
func (s *Store) EnsureCollection(ctx context.Context, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dimension == 0 {
		s.dimension = dimension
	}
	return nil
}

// Upsert inserts or replaces points by ID.
func (s *Store) Upsert(ctx context.Context, points []vector.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range points {
		if p.ID == "" {
			return fmt.Errorf("point ID cannot be empty")
		}
		if len(p.Vector) == 0 {
			return fmt.Errorf("point %s has an empty vector", p.ID)
		}
		if s.dimension == 0 {
			s.dimension = len(p.Vector)
		}
		if err := vector.CheckDimension(p.Vector, s.dimension); err != nil {
			return fmt.Errorf("point %s: %w", p.ID, err)
		}
		if _, exists := s.points[p.ID]; !exists {
			s.order = append(s.order, p.ID)
		}
		s.points[p.ID] = p
	}
	return nil
}

// Search ranks every stored point by cosine similarity. Ties keep insertion
// order.
func (s *Store) Search(ctx context.Context, query []float32, limit int) ([]vector.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(query) == 0 {
		return nil, fmt.Errorf("query vector cannot be empty")
	}
	if limit <= 0 {
		limit = 10
	}

	hits := make([]vector.Hit, 0, len(s.points))
	for _, id := range s.order {
		p := s.points[id]
		if len(p.Vector) != len(query) {
			continue
		}
		hits = append(hits, vector.Hit{
			ID:      p.ID,
			Score:   vector.CosineSimilarity(query, p.Vector),
			Payload: p.Payload,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Status is green once the collection exists.
func (s *Store) Status(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dimension == 0 {
		return "missing", nil
	}
	return vector.StatusReady, nil
}

// Count returns the number of stored points.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.points)
}
