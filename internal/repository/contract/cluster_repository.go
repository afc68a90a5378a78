package contract

import (
	"context"

	"rfp-answer-engine/internal/entity"
	"rfp-answer-engine/internal/repository/specification"

	"github.com/google/uuid"
)

type QuestionClusterRepository interface {
	CreateBulk(ctx context.Context, clusters []*entity.QuestionCluster) error
	Update(ctx context.Context, cluster *entity.QuestionCluster) error
	DeleteByProjectId(ctx context.Context, projectId uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.QuestionCluster, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.QuestionCluster, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	ReplaceSuggestions(ctx context.Context, projectId uuid.UUID, suggestions []entity.SimilarQuestion) error
	FindSuggestions(ctx context.Context, projectId uuid.UUID) ([]entity.SimilarQuestion, error)
}
