package entity

import (
	"time"

	"github.com/google/uuid"
)

type QuestionCluster struct {
	Id                 uuid.UUID
	ProjectId          uuid.UUID
	OpportunityId      *uuid.UUID
	MasterQuestionId   uuid.UUID
	MasterQuestionText string
	Members            []ClusterMember
	QuestionCount      int
	AvgSimilarity      float64
	CreatedAt          time.Time
	UpdatedAt          *time.Time
}

// ClusterMember is the denormalized view of a question inside its cluster.
// The master is listed as a member with similarity 1.0.
type ClusterMember struct {
	QuestionId    uuid.UUID `json:"question_id"`
	QuestionText  string    `json:"question_text"`
	Similarity    float64   `json:"similarity"`
	IsMaster      bool      `json:"is_master"`
	HasAnswer     bool      `json:"has_answer"`
	AnswerPreview string    `json:"answer_preview,omitempty"`
}

// MemberIds returns the ids of every question in the cluster, master first.
func (c *QuestionCluster) MemberIds() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.Members))
	for _, m := range c.Members {
		ids = append(ids, m.QuestionId)
	}
	return ids
}

// SimilarQuestion is a "similar but not clustered" suggestion between two questions.
type SimilarQuestion struct {
	QuestionId        uuid.UUID `json:"question_id"`
	QuestionText      string    `json:"question_text"`
	SimilarQuestionId uuid.UUID `json:"similar_question_id"`
	SimilarText       string    `json:"similar_question_text"`
	Similarity        float64   `json:"similarity"`
}
