package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	PipelineStagePreparing   = "PREPARING"
	PipelineStageGenerating  = "GENERATING"
	PipelineStagePropagating = "PROPAGATING"
	PipelineStageDone        = "DONE"
	PipelineStageFailed      = "FAILED"
)

type PipelineRun struct {
	Id                 uuid.UUID
	ProjectId          uuid.UUID
	OrgId              uuid.UUID
	KnowledgeBaseIds   []uuid.UUID
	Stage              string
	QuestionsTotal     int
	QuestionsProcessed int
	ClustersCreated    int
	AnswersGenerated   int
	AnswersPropagated  int
	QuestionsAnswered  int
	FailedQuestions    []FailedQuestion
	ErrorMessage       string
	StartedAt          time.Time
	CompletedAt        *time.Time
}

type FailedQuestion struct {
	QuestionId uuid.UUID `json:"question_id"`
	Reason     string    `json:"reason"`
}

func (r *PipelineRun) IsTerminal() bool {
	return r.Stage == PipelineStageDone || r.Stage == PipelineStageFailed
}

// Summary renders the user-facing progress line. A DONE run with failures is still a success.
func (r *PipelineRun) Summary() string {
	switch r.Stage {
	case PipelineStageFailed:
		return fmt.Sprintf("Run failed: %s (%d of %d questions answered)", r.ErrorMessage, r.QuestionsAnswered, r.QuestionsTotal)
	case PipelineStageDone:
		return fmt.Sprintf("%d of %d questions answered", r.QuestionsAnswered, r.QuestionsTotal)
	default:
		return fmt.Sprintf("%s: %d of %d questions processed", r.Stage, r.QuestionsProcessed, r.QuestionsTotal)
	}
}
