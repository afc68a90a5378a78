package contract

import (
	"context"

	"rfp-answer-engine/internal/entity"
	"rfp-answer-engine/internal/repository/specification"

	"github.com/google/uuid"
)

type ScoredKnowledgeChunk struct {
	Chunk      *entity.KnowledgeChunk
	Similarity float64
}

type KnowledgeChunkRepository interface {
	CreateBulk(ctx context.Context, chunks []*entity.KnowledgeChunk) error
	DeleteByDocumentId(ctx context.Context, orgId, documentId uuid.UUID) error
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	SearchSimilarWithScore(ctx context.Context, orgId uuid.UUID, knowledgeBaseIds []uuid.UUID, embedding []float32, limit int, threshold float64) ([]*ScoredKnowledgeChunk, error)
}
