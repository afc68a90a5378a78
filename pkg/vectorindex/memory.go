package vectorindex

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
)

// Record is one stored vector with its metadata.
type Record struct {
	Id       string
	Vector   []float32
	Metadata Metadata
}

// MemoryIndex is a brute-force cosine index, used for local runs and tests.
type MemoryIndex struct {
	mu         sync.RWMutex
	namespaces map[string][]Record
}

var _ Index = &MemoryIndex{}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{namespaces: make(map[string][]Record)}
}

func (m *MemoryIndex) Upsert(namespace string, records ...Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.namespaces[namespace]
	for _, rec := range records {
		if len(rec.Vector) == 0 {
			return errors.New("empty vector")
		}
		if len(existing) > 0 && len(existing[0].Vector) != len(rec.Vector) {
			return errors.New("vector dimension mismatch")
		}
		replaced := false
		for i := range existing {
			if existing[i].Id == rec.Id {
				existing[i] = rec
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, rec)
		}
	}
	m.namespaces[namespace] = existing
	return nil
}

func (m *MemoryIndex) Query(ctx context.Context, namespace string, vector []float32, topK int, filter *Filter) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 5
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []Match
	for _, rec := range m.namespaces[namespace] {
		if !filter.allowsKnowledgeBase(rec.Metadata.KnowledgeBaseId) {
			continue
		}
		score := cosine(vector, rec.Vector)
		if score < filter.minScore() {
			continue
		}
		matches = append(matches, Match{Id: rec.Id, Score: score, Metadata: rec.Metadata})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
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
