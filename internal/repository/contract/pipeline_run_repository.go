package contract

import (
	"context"

	"rfp-answer-engine/internal/entity"
	"rfp-answer-engine/internal/repository/specification"

	"github.com/google/uuid"
)

type PipelineRunRepository interface {
	Save(ctx context.Context, run *entity.PipelineRun) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.PipelineRun, error)
	FindLatestByProjectId(ctx context.Context, projectId uuid.UUID) (*entity.PipelineRun, error)
}
