package events

import (
	"time"

	"rfp-answer-engine/internal/entity"
)

const (
	PipelineCompleted = "PIPELINE_COMPLETED"
	PipelineFailed    = "PIPELINE_FAILED"
)

// NewPipelineEvent builds the terminal event for a run. It returns false while the run is
// still in progress.
func NewPipelineEvent(run *entity.PipelineRun) (Event, bool) {
	var eventType string
	switch run.Stage {
	case entity.PipelineStageDone:
		eventType = PipelineCompleted
	case entity.PipelineStageFailed:
		eventType = PipelineFailed
	default:
		return nil, false
	}

	occurredAt := time.Now()
	if run.CompletedAt != nil {
		occurredAt = *run.CompletedAt
	}

	failed := make([]string, 0, len(run.FailedQuestions))
	for _, f := range run.FailedQuestions {
		failed = append(failed, f.QuestionId.String())
	}

	return BaseEvent{
		Type: eventType,
		Data: map[string]interface{}{
			"run_id":              run.Id.String(),
			"project_id":          run.ProjectId.String(),
			"org_id":              run.OrgId.String(),
			"stage":               run.Stage,
			"questions_total":     run.QuestionsTotal,
			"questions_answered":  run.QuestionsAnswered,
			"clusters_created":    run.ClustersCreated,
			"answers_generated":   run.AnswersGenerated,
			"answers_propagated":  run.AnswersPropagated,
			"failed_question_ids": failed,
			"error":               run.ErrorMessage,
			"summary":             run.Summary(),
			"occurred_at":         occurredAt.Format(time.RFC3339),
		},
		OccurredAt: occurredAt,
	}, true
}
