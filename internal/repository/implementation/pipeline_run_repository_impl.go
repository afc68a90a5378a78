package implementation

import (
	"context"
	"errors"

	"rfp-answer-engine/internal/entity"
	"rfp-answer-engine/internal/mapper"
	"rfp-answer-engine/internal/model"
	"rfp-answer-engine/internal/repository/contract"
	"rfp-answer-engine/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PipelineRunRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.PipelineRunMapper
}

func NewPipelineRunRepository(db *gorm.DB) contract.PipelineRunRepository {
	return &PipelineRunRepositoryImpl{
		db:     db,
		mapper: mapper.NewPipelineRunMapper(),
	}
}

// Save inserts or fully replaces the run row.
func (r *PipelineRunRepositoryImpl) Save(ctx context.Context, run *entity.PipelineRun) error {
	return r.db.WithContext(ctx).Save(r.mapper.ToModel(run)).Error
}

func (r *PipelineRunRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.PipelineRun, error) {
	var m model.PipelineRun
	query := r.db.WithContext(ctx)
	for _, spec := range specs {
		query = spec.Apply(query)
	}
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *PipelineRunRepositoryImpl) FindLatestByProjectId(ctx context.Context, projectId uuid.UUID) (*entity.PipelineRun, error) {
	return r.FindOne(ctx,
		specification.ByProjectID{ProjectID: projectId},
		specification.OrderBy{Field: "started_at", Desc: true},
	)
}
