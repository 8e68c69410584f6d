package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"docqa/internal/domain"
	"docqa/internal/vectorstore"
)

type point struct {
	id      string
	vector  []float32
	payload map[string]any
}

// Store is an in-process vector store using brute-force cosine similarity.
// Safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	dimension int
	points    []point
	byID      map[string]int
}

func NewStore() *Store {
	return &Store{byID: make(map[string]int)}
}

// EnsureCollection fixes the collection's vector size. Idempotent; calling it
// again with a different size is a mismatch.
func (s *Store) EnsureCollection(ctx context.Context, vectorSize int) error {
	if vectorSize <= 0 {
		return fmt.Errorf("%w: vector size %d", vectorstore.ErrCollectionMismatch, vectorSize)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension != 0 && s.dimension != vectorSize {
		return fmt.Errorf("%w: collection has size %d, requested %d", vectorstore.ErrCollectionMismatch, s.dimension, vectorSize)
	}
	s.dimension = vectorSize
	return nil
}

// Upsert writes one point per (id, vector, payload) triple. An existing id is
// replaced, not merged.
func (s *Store) Upsert(ctx context.Context, ids []string, vectors [][]float32, payloads []map[string]any) error {
	if len(ids) != len(vectors) || len(ids) != len(payloads) {
		return fmt.Errorf("%w: ids/vectors/payloads lengths %d/%d/%d", vectorstore.ErrCollectionMismatch, len(ids), len(vectors), len(payloads))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		return fmt.Errorf("%w: collection not created", vectorstore.ErrUnavailable)
	}
	for _, v := range vectors {
		if len(v) != s.dimension {
			return fmt.Errorf("%w: vector size %d, collection size %d", vectorstore.ErrCollectionMismatch, len(v), s.dimension)
		}
	}
	for i, id := range ids {
		p := point{id: id, vector: vectors[i], payload: payloads[i]}
		if j, ok := s.byID[id]; ok {
			s.points[j] = p
			continue
		}
		s.byID[id] = len(s.points)
		s.points = append(s.points, p)
	}
	return nil
}

// Search returns the topK points ranked by cosine similarity. The filter, when
// present, matches qdrant's must/key/match shape against payload values.
func (s *Store) Search(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]domain.RetrievalResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query size %d, collection size %d", vectorstore.ErrCollectionMismatch, len(vector), s.dimension)
	}
	if topK <= 0 {
		topK = 5
	}
	results := make([]domain.RetrievalResult, 0, len(s.points))
	for _, p := range s.points {
		if !matchesFilter(p.payload, filter) {
			continue
		}
		results = append(results, domain.RetrievalResult{
			ID:      p.id,
			Score:   cosine(vector, p.vector),
			Payload: p.payload,
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

func matchesFilter(payload, filter map[string]any) bool {
	if len(filter) == 0 {
		return true
	}
	for _, cond := range mustConditions(filter["must"]) {
		key, _ := cond["key"].(string)
		match, _ := cond["match"].(map[string]any)
		if key == "" || match == nil {
			continue
		}
		if payload[key] != match["value"] {
			return false
		}
	}
	return true
}

// mustConditions accepts both in-process filters ([]map[string]any) and the
// []any shape the same filter takes after a JSON round trip.
func mustConditions(must any) []map[string]any {
	switch v := must.(type) {
	case []map[string]any:
		return v
	case []any:
		conds := make([]map[string]any, 0, len(v))
		for _, e := range v {
			if m, ok := e.(map[string]any); ok {
				conds = append(conds, m)
			}
		}
		return conds
	default:
		return nil
	}
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
