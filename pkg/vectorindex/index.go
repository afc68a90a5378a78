package vectorindex

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Index is the nearest-neighbour boundary used for answer retrieval. A namespace isolates one
// tenant's knowledge base.
type Index interface {
	Query(ctx context.Context, namespace string, vector []float32, topK int, filter *Filter) ([]Match, error)
}

type Filter struct {
	KnowledgeBaseIds []uuid.UUID
	MinScore         float64
}

type Match struct {
	Id       string
	Score    float64
	Metadata Metadata
}

type Metadata struct {
	KnowledgeBaseId string
	DocumentId      string
	DocumentTitle   string
	Content         string
	Authority       string
	SourceUpdatedAt *time.Time
}

func (f *Filter) allowsKnowledgeBase(id string) bool {
	if f == nil || len(f.KnowledgeBaseIds) == 0 {
		return true
	}
	for _, kb := range f.KnowledgeBaseIds {
		if kb.String() == id {
			return true
		}
	}
	return false
}

func (f *Filter) minScore() float64 {
	if f == nil {
		return 0
	}
	return f.MinScore
}
