package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"GoEstateAI/app/domain"
)

var _ VectorStore = &MemoryStore{}

// MemoryStore is a brute-force in-process index, used for local runs and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

type memoryCollection struct {
	dimension int
	metric    domain.Metric
	records   []domain.VectorRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

func (s *MemoryStore) CreateCollection(_ context.Context, name string, dimension int, metric domain.Metric) error {
	if dimension <= 0 {
		return domain.ConfigError("create_collection", fmt.Sprintf("dimension must be positive, got %d", dimension))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; ok {
		return nil
	}
	s.collections[name] = &memoryCollection{dimension: dimension, metric: metric}
	return nil
}

func (s *MemoryStore) Upsert(_ context.Context, collection string, record domain.VectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[collection]
	if !ok {
		return domain.StoreWriteError("upsert", fmt.Sprintf("collection %q does not exist", collection), nil)
	}
	if len(record.Vector) != c.dimension {
		return domain.StoreWriteError("upsert",
			fmt.Sprintf("dimension mismatch: expected=%d got=%d", c.dimension, len(record.Vector)), nil)
	}
	for i := range c.records {
		if c.records[i].ID == record.ID {
			c.records[i] = record
			return nil
		}
	}
	c.records = append(c.records, record)
	return nil
}

func (s *MemoryStore) Search(_ context.Context, collection string, vector domain.EmbeddingVector, topK int) (domain.RetrievalResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[collection]
	if !ok || len(c.records) == 0 || topK <= 0 {
		return domain.RetrievalResult{}, nil
	}
	if len(vector) != c.dimension {
		return nil, domain.StoreQueryError("search",
			fmt.Errorf("query dimension mismatch: expected=%d got=%d", c.dimension, len(vector)))
	}

	out := make(domain.RetrievalResult, 0, len(c.records))
	for _, r := range c.records {
		src, ord := recordMetadata(r)
		out = append(out, domain.ScoredText{
			Text:      r.Text,
			SourceURL: src,
			Ordinal:   ord,
			Score:     score(c.metric, vector, r.Vector),
		})
	}
	higher := c.metric.HigherIsBetter()
	sort.SliceStable(out, func(i, j int) bool {
		if higher {
			return out[i].Score > out[j].Score
		}
		return out[i].Score < out[j].Score
	})
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (s *MemoryStore) DeleteBySource(_ context.Context, collection, sourceURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[collection]
	if !ok {
		return nil
	}
	kept := c.records[:0]
	for _, r := range c.records {
		if src, _ := recordMetadata(r); src != sourceURL {
			kept = append(kept, r)
		}
	}
	c.records = kept
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func score(metric domain.Metric, a, b []float32) float64 {
	var dot, na, nb, dist float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
		dist += (x - y) * (x - y)
	}
	switch metric {
	case domain.MetricEuclid:
		return math.Sqrt(dist)
	case domain.MetricCosine:
		if na == 0 || nb == 0 {
			return 0
		}
		return dot / (math.Sqrt(na) * math.Sqrt(nb))
	default:
		return dot
	}
}
