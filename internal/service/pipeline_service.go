package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rfp-answer-engine/internal/dto"
	"rfp-answer-engine/internal/entity"
	"rfp-answer-engine/internal/pkg/logger"
	"rfp-answer-engine/internal/repository/contract"
	"rfp-answer-engine/internal/repository/specification"
	"rfp-answer-engine/internal/repository/unitofwork"
	"rfp-answer-engine/pkg/pipeline"
	"rfp-answer-engine/pkg/propagation"

	"github.com/google/uuid"
)

type IPipelineService interface {
	RunAnswerGeneration(ctx context.Context, req *dto.RunAnswerGenerationRequest) (*dto.PipelineRunResponse, error)
	GetPipelineRun(ctx context.Context, projectId, orgId uuid.UUID) (*dto.PipelineRunResponse, error)
	// ExecuteRun drives a created run to a terminal stage and releases the project lock.
	ExecuteRun(ctx context.Context, msg *dto.PublishRunPipelineMessage) error
}

type PipelineServiceConfig struct {
	Orchestrator pipeline.Config
	LockTTL      time.Duration
}

type pipelineService struct {
	uowFactory       unitofwork.RepositoryFactory
	store            *rfpStore
	orchestrator     *pipeline.Orchestrator
	publisherService IPublisherService
	locks            contract.RunLockRepository
	lockTTL          time.Duration
	logger           logger.ILogger
}

func NewPipelineService(
	uowFactory unitofwork.RepositoryFactory,
	preparer pipeline.Preparer,
	generator pipeline.Generator,
	publisherService IPublisherService,
	locks contract.RunLockRepository,
	notifiers []pipeline.Notifier,
	cfg PipelineServiceConfig,
	log logger.ILogger,
) IPipelineService {
	store := newRFPStore(uowFactory)
	orchestrator := pipeline.NewOrchestrator(pipeline.Deps{
		Runs:       store,
		Preparer:   preparer,
		Questions:  store,
		Generator:  generator,
		Answers:    store,
		Propagator: propagation.NewPropagator(store, log),
		Notifiers:  notifiers,
	}, cfg.Orchestrator, log)

	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		// outlive the run budget so the lock never lapses under a live run
		lockTTL = orchestratorBudget(cfg.Orchestrator) + 5*time.Minute
	}

	return &pipelineService{
		uowFactory:       uowFactory,
		store:            store,
		orchestrator:     orchestrator,
		publisherService: publisherService,
		locks:            locks,
		lockTTL:          lockTTL,
		logger:           log,
	}
}

func orchestratorBudget(cfg pipeline.Config) time.Duration {
	if cfg.RunTimeout > 0 {
		return cfg.RunTimeout
	}
	return pipeline.DefaultConfig().RunTimeout
}

func runLockKey(projectId uuid.UUID) string {
	return "pipeline:lock:" + projectId.String()
}

func (s *pipelineService) RunAnswerGeneration(ctx context.Context, req *dto.RunAnswerGenerationRequest) (*dto.PipelineRunResponse, error) {
	if err := authorizeProject(ctx, s.uowFactory, req.ProjectId, req.OrgId); err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	total, err := uow.QuestionRepository().Count(ctx,
		specification.ByProjectID{ProjectID: req.ProjectId},
		specification.ActiveQuestions{},
	)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, pipeline.ErrNoQuestions
	}

	token := uuid.NewString()
	ok, err := s.locks.Acquire(ctx, runLockKey(req.ProjectId), token, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire project lock: %w", err)
	}
	if !ok {
		return nil, ErrRunInProgress
	}

	run := &entity.PipelineRun{
		Id:               uuid.New(),
		ProjectId:        req.ProjectId,
		OrgId:            req.OrgId,
		KnowledgeBaseIds: req.KnowledgeBaseIds,
		Stage:            entity.PipelineStagePreparing,
		QuestionsTotal:   int(total),
		StartedAt:        time.Now(),
	}
	if err := s.store.SaveRun(ctx, run); err != nil {
		s.releaseLock(ctx, req.ProjectId, token)
		return nil, err
	}

	payload, err := json.Marshal(dto.PublishRunPipelineMessage{
		RunId:     run.Id,
		ProjectId: run.ProjectId,
		LockToken: token,
	})
	if err == nil {
		err = s.publisherService.Publish(ctx, payload)
	}
	if err != nil {
		s.abandon(ctx, run, token, err)
		return nil, fmt.Errorf("dispatch run: %w", err)
	}

	s.logger.Info("Pipeline", "Run queued", map[string]interface{}{
		"run_id":     run.Id,
		"project_id": run.ProjectId,
		"questions":  total,
	})
	return dto.NewPipelineRunResponse(run), nil
}

func (s *pipelineService) GetPipelineRun(ctx context.Context, projectId, orgId uuid.UUID) (*dto.PipelineRunResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	run, err := uow.PipelineRunRepository().FindLatestByProjectId(ctx, projectId)
	if err != nil {
		return nil, err
	}
	if run == nil || run.OrgId != orgId {
		return nil, ErrRunNotFound
	}
	return dto.NewPipelineRunResponse(run), nil
}

func (s *pipelineService) ExecuteRun(ctx context.Context, msg *dto.PublishRunPipelineMessage) error {
	defer s.releaseLock(ctx, msg.ProjectId, msg.LockToken)

	uow := s.uowFactory.NewUnitOfWork(ctx)
	run, err := uow.PipelineRunRepository().FindOne(ctx, specification.ByID{ID: msg.RunId})
	if err != nil {
		return err
	}
	if run == nil {
		return ErrRunNotFound
	}

	_, err = s.orchestrator.Execute(ctx, run)
	if errors.Is(err, pipeline.ErrRunAlreadyFinal) {
		// redelivered trigger for a run that already finished
		return nil
	}
	return err
}

// abandon records a run that could not be dispatched so pollers do not wait on it forever.
func (s *pipelineService) abandon(ctx context.Context, run *entity.PipelineRun, token string, cause error) {
	now := time.Now()
	run.Stage = entity.PipelineStageFailed
	run.ErrorMessage = "dispatch failed: " + cause.Error()
	run.CompletedAt = &now
	if err := s.store.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		s.logger.Error("Pipeline", "Failed to record undispatched run", map[string]interface{}{
			"run_id": run.Id,
			"error":  err.Error(),
		})
	}
	s.releaseLock(ctx, run.ProjectId, token)
}

func (s *pipelineService) releaseLock(ctx context.Context, projectId uuid.UUID, token string) {
	if err := s.locks.Release(context.WithoutCancel(ctx), runLockKey(projectId), token); err != nil {
		s.logger.Warn("Pipeline", "Failed to release project lock", map[string]interface{}{
			"project_id": projectId,
			"error":      err.Error(),
		})
	}
}
