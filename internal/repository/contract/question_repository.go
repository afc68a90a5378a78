package contract

import (
	"context"

	"rfp-answer-engine/internal/entity"
	"rfp-answer-engine/internal/repository/specification"

	"github.com/google/uuid"
)

// ScoredQuestion wraps a Question with its cosine similarity to the query vector.
type ScoredQuestion struct {
	Question   *entity.Question
	Similarity float64
}

type QuestionRepository interface {
	CreateBulk(ctx context.Context, questions []*entity.Question) error
	Update(ctx context.Context, question *entity.Question) error
	UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error
	// ApplyAssignments rewrites the cluster fields of every listed question.
	ApplyAssignments(ctx context.Context, projectId uuid.UUID, questions []*entity.Question) error
	ClearAssignments(ctx context.Context, projectId uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Question, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Question, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	SearchSimilarWithScore(ctx context.Context, projectId, excludeId uuid.UUID, embedding []float32, limit int, threshold float64) ([]*ScoredQuestion, error)
}
