package vectorindex

import (
	"context"
	"fmt"

	"rfp-answer-engine/internal/repository/contract"

	"github.com/google/uuid"
)

// ChunkSearcher is the pgvector-backed knowledge chunk search.
type ChunkSearcher interface {
	SearchSimilarWithScore(ctx context.Context, orgId uuid.UUID, knowledgeBaseIds []uuid.UUID, embedding []float32, limit int, threshold float64) ([]*contract.ScoredKnowledgeChunk, error)
}

// PgIndex serves queries from the knowledge_chunks table. The namespace is the org id.
type PgIndex struct {
	chunks ChunkSearcher
}

var _ Index = &PgIndex{}

func NewPgIndex(chunks ChunkSearcher) *PgIndex {
	return &PgIndex{chunks: chunks}
}

func (p *PgIndex) Query(ctx context.Context, namespace string, vector []float32, topK int, filter *Filter) ([]Match, error) {
	orgId, err := uuid.Parse(namespace)
	if err != nil {
		return nil, fmt.Errorf("invalid namespace %q: %w", namespace, err)
	}

	var kbIds []uuid.UUID
	if filter != nil {
		kbIds = filter.KnowledgeBaseIds
	}

	scored, err := p.chunks.SearchSimilarWithScore(ctx, orgId, kbIds, vector, topK, filter.minScore())
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(scored))
	for _, s := range scored {
		c := s.Chunk
		matches = append(matches, Match{
			Id:    c.Id.String(),
			Score: s.Similarity,
			Metadata: Metadata{
				KnowledgeBaseId: c.KnowledgeBaseId.String(),
				DocumentId:      c.DocumentId.String(),
				DocumentTitle:   c.DocumentTitle,
				Content:         c.Content,
				Authority:       c.Authority,
				SourceUpdatedAt: c.SourceUpdatedAt,
			},
		})
	}
	return matches, nil
}
