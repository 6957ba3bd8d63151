package memory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"biorag/internal/domain"
	"biorag/internal/vectorstore"
)

// Storage is an in-memory collection using brute-force similarity search.
// Points keep their insertion order; scans and score ties follow it.
type Storage struct {
	mu        sync.RWMutex
	exists    bool
	dimension int
	distance  domain.Distance
	order     []string
	points    map[string]domain.Point
}

func NewStorage() *Storage { return &Storage{} }

func (s *Storage) CollectionExists(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exists, nil
}

// CreateCollection is a no-op when the collection already exists with the
// same vector size, matching how the remote store treats repeated creation.
func (s *Storage) CreateCollection(_ context.Context, dimension int, distance domain.Distance) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exists {
		if s.dimension != dimension {
			return fmt.Errorf("%w: collection exists with size %d, requested %d", vectorstore.ErrDimensionMismatch, s.dimension, dimension)
		}
		return nil
	}
	s.exists = true
	s.dimension = dimension
	s.distance = distance
	s.points = make(map[string]domain.Point)
	s.order = nil
	return nil
}

func (s *Storage) DropCollection(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exists = false
	s.points = nil
	s.order = nil
	s.dimension = 0
	return nil
}

func (s *Storage) Scroll(_ context.Context, filter domain.TextMatch, limit int) ([]domain.Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.exists {
		return nil, domain.ErrCollectionMissing
	}
	var out []domain.Point
	for _, id := range s.order {
		p := s.points[id]
		if filter.Field != "" && !filter.Matches(fieldValue(p.Record, filter.Field)) {
			continue
		}
		out = append(out, clonePoint(p))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Storage) Search(_ context.Context, vector []float32, topK int) ([]domain.ScoredPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.exists {
		return nil, domain.ErrCollectionMissing
	}
	if err := vectorstore.CheckDimension(vector, s.dimension); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 5
	}
	hits := make([]domain.ScoredPoint, 0, len(s.order))
	for _, id := range s.order {
		p := s.points[id]
		hits = append(hits, domain.ScoredPoint{
			Point: clonePoint(p),
			Score: vectorstore.Score(s.distance, p.Vector, vector),
		})
	}
	return vectorstore.Rank(s.distance, hits, topK), nil
}

// Upsert validates the whole batch before applying any of it.
func (s *Storage) Upsert(_ context.Context, points []domain.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.exists {
		return domain.ErrCollectionMissing
	}
	for _, p := range points {
		if p.ID == "" {
			return errors.New("point without id")
		}
		if err := vectorstore.CheckDimension(p.Vector, s.dimension); err != nil {
			return err
		}
	}
	for _, p := range points {
		if _, ok := s.points[p.ID]; !ok {
			s.order = append(s.order, p.ID)
		}
		s.points[p.ID] = clonePoint(p)
	}
	return nil
}

func (s *Storage) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.exists {
		return 0, domain.ErrCollectionMissing
	}
	return len(s.points), nil
}

func fieldValue(r domain.ToolRecord, field string) string {
	switch field {
	case domain.FieldIdentityKey:
		return r.IdentityKey
	case domain.FieldName:
		return r.Name
	case domain.FieldDescription:
		return r.Description
	case domain.FieldHomepage:
		return r.Homepage
	}
	return ""
}

func clonePoint(p domain.Point) domain.Point {
	p.Vector = slices.Clone(p.Vector)
	p.Record.Topics = slices.Clone(p.Record.Topics)
	p.Record.Operations = slices.Clone(p.Record.Operations)
	return p
}
