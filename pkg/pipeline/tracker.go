package pipeline

import (
	"context"
	"sync"

	"rfp-answer-engine/internal/entity"

	"github.com/google/uuid"
)

type outcome int

const (
	outcomeNotStarted outcome = iota
	outcomeGenerated
	outcomeSkipped
	outcomeFailed
)

// unitResult is the tagged outcome of one generation unit.
type unitResult struct {
	questionId uuid.UUID
	outcome    outcome
	err        error
}

// tracker is the single writer of the run record while units complete concurrently.
// saveMu is taken before mu and held through the save, so snapshots reach the store and
// the notifiers in the order they were taken.
type tracker struct {
	o      *Orchestrator
	saveMu sync.Mutex
	mu     sync.Mutex
	run    *entity.PipelineRun
}

func (t *tracker) transition(ctx context.Context, stage string) error {
	t.saveMu.Lock()
	defer t.saveMu.Unlock()

	t.mu.Lock()
	t.run.Stage = stage
	snapshot := cloneRun(t.run)
	t.mu.Unlock()

	t.o.logger.Info("Pipeline", "Stage changed", map[string]interface{}{
		"run_id":     snapshot.Id,
		"project_id": snapshot.ProjectId,
		"stage":      stage,
	})
	return t.save(ctx, snapshot)
}

func (t *tracker) unitDone(ctx context.Context, res unitResult) {
	t.saveMu.Lock()
	defer t.saveMu.Unlock()

	t.mu.Lock()
	t.run.QuestionsProcessed++
	switch res.outcome {
	case outcomeGenerated:
		t.run.AnswersGenerated++
	case outcomeFailed:
		t.run.FailedQuestions = upsertFailure(t.run.FailedQuestions, res.questionId, res.err.Error())
	}
	snapshot := cloneRun(t.run)
	t.mu.Unlock()

	if err := t.save(context.WithoutCancel(ctx), snapshot); err != nil {
		t.o.logger.Warn("Pipeline", "Failed to save run progress", map[string]interface{}{
			"run_id": snapshot.Id,
			"error":  err.Error(),
		})
	}
}

// mergeFailures settles the failure list after the fan-out has drained. Preparation failures
// stay only for questions that did not get an answer generated.
func (t *tracker) mergeFailures(prepared []entity.FailedQuestion, results []unitResult) {
	t.mu.Lock()
	defer t.mu.Unlock()

	byId := make(map[uuid.UUID]unitResult, len(results))
	for _, r := range results {
		if r.outcome != outcomeNotStarted {
			byId[r.questionId] = r
		}
	}

	var failures []entity.FailedQuestion
	for _, f := range prepared {
		if r, ok := byId[f.QuestionId]; ok && r.outcome != outcomeSkipped {
			continue
		}
		failures = append(failures, f)
	}
	for _, r := range results {
		if r.outcome == outcomeFailed {
			failures = append(failures, entity.FailedQuestion{QuestionId: r.questionId, Reason: r.err.Error()})
		}
	}
	t.run.FailedQuestions = failures
}

func (t *tracker) save(ctx context.Context, snapshot *entity.PipelineRun) error {
	if err := t.o.deps.Runs.SaveRun(ctx, snapshot); err != nil {
		return err
	}
	for _, n := range t.o.deps.Notifiers {
		n.Notify(ctx, snapshot)
	}
	return nil
}

func upsertFailure(list []entity.FailedQuestion, questionId uuid.UUID, reason string) []entity.FailedQuestion {
	for i := range list {
		if list[i].QuestionId == questionId {
			list[i].Reason = reason
			return list
		}
	}
	return append(list, entity.FailedQuestion{QuestionId: questionId, Reason: reason})
}

func cloneRun(run *entity.PipelineRun) *entity.PipelineRun {
	c := *run
	c.KnowledgeBaseIds = append([]uuid.UUID(nil), run.KnowledgeBaseIds...)
	c.FailedQuestions = append([]entity.FailedQuestion(nil), run.FailedQuestions...)
	return &c
}
