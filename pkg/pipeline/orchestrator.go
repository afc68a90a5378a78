package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rfp-answer-engine/internal/entity"
	"rfp-answer-engine/internal/pkg/logger"
	"rfp-answer-engine/pkg/answer"
	"rfp-answer-engine/pkg/propagation"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNoQuestions      = errors.New("project has no questions to answer")
	ErrBudgetExhausted  = errors.New("pipeline run exceeded its time budget")
	ErrRunAlreadyFinal  = errors.New("pipeline run is already terminal")
	ErrInvalidRunRecord = errors.New("pipeline run has no project")
)

var tracer = otel.Tracer("rfp-answer-engine/pipeline")

// Preparation is the persisted outcome of the PREPARING stage.
type Preparation struct {
	QuestionIds     []uuid.UUID
	ClustersCreated int
	Failures        []entity.FailedQuestion
}

type RunStore interface {
	SaveRun(ctx context.Context, run *entity.PipelineRun) error
}

// Preparer loads the project's questions, embeds the ones missing a vector and persists a fresh
// clustering. It must not return before the cluster assignment is durable.
type Preparer interface {
	Prepare(ctx context.Context, projectId, orgId uuid.UUID) (*Preparation, error)
}

// QuestionSource reads a question with its persisted cluster assignment.
type QuestionSource interface {
	FindQuestion(ctx context.Context, projectId, questionId uuid.UUID) (*entity.Question, error)
}

type Generator interface {
	GenerateAnswer(ctx context.Context, q *entity.Question, opts ...answer.Option) (*answer.Result, error)
}

type AnswerSink interface {
	SaveAnswer(ctx context.Context, a *entity.Answer) error
}

type Propagator interface {
	Propagate(ctx context.Context, projectId uuid.UUID) (*propagation.Summary, error)
}

// Notifier receives a snapshot of the run after every stage change and progress update.
type Notifier interface {
	Notify(ctx context.Context, run *entity.PipelineRun)
}

type Deps struct {
	Runs       RunStore
	Preparer   Preparer
	Questions  QuestionSource
	Generator  Generator
	Answers    AnswerSink
	Propagator Propagator
	Notifiers  []Notifier
}

type Config struct {
	Concurrency int
	RunTimeout  time.Duration
	UnitTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Concurrency: 5,
		RunTimeout:  60 * time.Minute,
		UnitTimeout: 3 * time.Minute,
	}
}

type Orchestrator struct {
	deps   Deps
	cfg    Config
	logger logger.ILogger
}

func NewOrchestrator(deps Deps, cfg Config, log logger.ILogger) *Orchestrator {
	def := DefaultConfig()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = def.RunTimeout
	}
	if cfg.UnitTimeout <= 0 {
		cfg.UnitTimeout = def.UnitTimeout
	}
	return &Orchestrator{deps: deps, cfg: cfg, logger: log}
}

// Execute drives run through PREPARING, GENERATING and PROPAGATING. Per-question failures are
// recorded on the run and never fail it; a stage error or an exhausted budget ends it in FAILED
// with committed answers kept. The returned error is the cause of a FAILED run.
func (o *Orchestrator) Execute(ctx context.Context, run *entity.PipelineRun) (*entity.PipelineRun, error) {
	if run == nil || run.ProjectId == uuid.Nil {
		return nil, ErrInvalidRunRecord
	}
	if run.IsTerminal() {
		return run, ErrRunAlreadyFinal
	}

	ctx, span := tracer.Start(ctx, "pipeline.run")
	span.SetAttributes(
		attribute.String("run.id", run.Id.String()),
		attribute.String("project.id", run.ProjectId.String()),
	)
	defer span.End()

	runCtx, cancel := context.WithTimeout(ctx, o.cfg.RunTimeout)
	defer cancel()

	t := &tracker{o: o, run: run}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if err := t.transition(ctx, entity.PipelineStagePreparing); err != nil {
		return run, fmt.Errorf("save run: %w", err)
	}

	prep, err := o.prepare(runCtx, run)
	if err != nil {
		return o.fail(ctx, t, span, o.budgetCause(runCtx, err))
	}
	run.QuestionsTotal = len(prep.QuestionIds)
	run.ClustersCreated = prep.ClustersCreated
	run.FailedQuestions = append([]entity.FailedQuestion(nil), prep.Failures...)

	if err := t.transition(ctx, entity.PipelineStageGenerating); err != nil {
		return o.fail(ctx, t, span, err)
	}
	results := o.generate(runCtx, t, prep.QuestionIds)
	t.mergeFailures(prep.Failures, results)
	if runCtx.Err() != nil {
		return o.fail(ctx, t, span, o.budgetCause(runCtx, runCtx.Err()))
	}

	if err := t.transition(ctx, entity.PipelineStagePropagating); err != nil {
		return o.fail(ctx, t, span, err)
	}
	summary, err := o.propagate(runCtx, run.ProjectId)
	if err != nil {
		return o.fail(ctx, t, span, o.budgetCause(runCtx, err))
	}
	run.AnswersPropagated = summary.Applied
	run.QuestionsAnswered = summary.Answered

	now := time.Now()
	run.CompletedAt = &now
	if err := t.transition(context.WithoutCancel(ctx), entity.PipelineStageDone); err != nil {
		o.logger.Error("Pipeline", "Failed to persist completed run", map[string]interface{}{
			"run_id": run.Id,
			"error":  err.Error(),
		})
	}

	o.logger.Info("Pipeline", "Run finished", map[string]interface{}{
		"run_id":     run.Id,
		"project_id": run.ProjectId,
		"summary":    run.Summary(),
		"failed":     len(run.FailedQuestions),
		"duration":   now.Sub(run.StartedAt).String(),
	})
	return run, nil
}

func (o *Orchestrator) prepare(ctx context.Context, run *entity.PipelineRun) (*Preparation, error) {
	ctx, span := tracer.Start(ctx, "pipeline.prepare")
	defer span.End()

	prep, err := o.deps.Preparer.Prepare(ctx, run.ProjectId, run.OrgId)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("prepare: %w", err)
	}
	if len(prep.QuestionIds) == 0 {
		return nil, ErrNoQuestions
	}
	span.SetAttributes(attribute.Int("questions", len(prep.QuestionIds)), attribute.Int("clusters", prep.ClustersCreated))
	return prep, nil
}

func (o *Orchestrator) propagate(ctx context.Context, projectId uuid.UUID) (*propagation.Summary, error) {
	ctx, span := tracer.Start(ctx, "pipeline.propagate")
	defer span.End()

	summary, err := o.deps.Propagator.Propagate(ctx, projectId)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("propagate: %w", err)
	}
	return summary, nil
}

// generate fans out one unit per question and waits for every started unit to finish.
func (o *Orchestrator) generate(ctx context.Context, t *tracker, questionIds []uuid.UUID) []unitResult {
	ctx, span := tracer.Start(ctx, "pipeline.generate")
	defer span.End()

	results := make([]unitResult, len(questionIds))
	var g errgroup.Group
	g.SetLimit(o.cfg.Concurrency)

	for i, id := range questionIds {
		i, id := i, id
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = o.runUnit(ctx, t.run, id)
			t.unitDone(ctx, results[i])
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (o *Orchestrator) runUnit(ctx context.Context, run *entity.PipelineRun, questionId uuid.UUID) (res unitResult) {
	res = unitResult{questionId: questionId}
	ctx, cancel := context.WithTimeout(ctx, o.cfg.UnitTimeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, "pipeline.unit")
	span.SetAttributes(attribute.String("question.id", questionId.String()))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			res.outcome = outcomeFailed
			res.err = fmt.Errorf("panic: %v", r)
		}
		if res.err != nil {
			span.SetStatus(codes.Error, res.err.Error())
			o.logger.Warn("Pipeline", "Question failed", map[string]interface{}{
				"run_id":      run.Id,
				"question_id": questionId,
				"error":       res.err.Error(),
			})
		}
	}()

	q, err := o.deps.Questions.FindQuestion(ctx, run.ProjectId, questionId)
	if err != nil {
		res.outcome, res.err = outcomeFailed, fmt.Errorf("load question: %w", err)
		return res
	}

	out, err := o.deps.Generator.GenerateAnswer(ctx, q, answer.WithKnowledgeBases(run.KnowledgeBaseIds...))
	if err != nil {
		res.outcome, res.err = outcomeFailed, err
		return res
	}
	if out.Status == answer.StatusSkipped {
		res.outcome = outcomeSkipped
		return res
	}

	if err := o.deps.Answers.SaveAnswer(ctx, out.Answer); err != nil {
		res.outcome, res.err = outcomeFailed, fmt.Errorf("save answer: %w", err)
		return res
	}
	res.outcome = outcomeGenerated
	return res
}

func (o *Orchestrator) fail(ctx context.Context, t *tracker, span trace.Span, cause error) (*entity.PipelineRun, error) {
	run := t.run
	now := time.Now()
	run.ErrorMessage = cause.Error()
	run.CompletedAt = &now
	if run.QuestionsAnswered < run.AnswersGenerated {
		run.QuestionsAnswered = run.AnswersGenerated
	}

	span.RecordError(cause)
	span.SetStatus(codes.Error, cause.Error())

	// the run context may be gone; the terminal state must still be recorded
	if err := t.transition(context.WithoutCancel(ctx), entity.PipelineStageFailed); err != nil {
		o.logger.Error("Pipeline", "Failed to persist failed run", map[string]interface{}{
			"run_id": run.Id,
			"error":  err.Error(),
		})
	}
	o.logger.Error("Pipeline", "Run failed", map[string]interface{}{
		"run_id":     run.Id,
		"project_id": run.ProjectId,
		"error":      cause.Error(),
		"answered":   run.QuestionsAnswered,
	})
	return run, cause
}

func (o *Orchestrator) budgetCause(runCtx context.Context, err error) error {
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrBudgetExhausted, o.cfg.RunTimeout)
	}
	return err
}
