package unitofwork

import (
	"context"

	"rfp-answer-engine/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	QuestionRepository() contract.QuestionRepository
	QuestionClusterRepository() contract.QuestionClusterRepository
	AnswerRepository() contract.AnswerRepository
	PipelineRunRepository() contract.PipelineRunRepository
	KnowledgeChunkRepository() contract.KnowledgeChunkRepository
	TenantSettingsRepository() contract.TenantSettingsRepository
}
