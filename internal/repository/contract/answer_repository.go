package contract

import (
	"context"

	"rfp-answer-engine/internal/entity"
	"rfp-answer-engine/internal/repository/specification"
)

type AnswerRepository interface {
	// Upsert inserts the answer or replaces the existing one for the same question.
	Upsert(ctx context.Context, answer *entity.Answer) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Answer, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Answer, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
