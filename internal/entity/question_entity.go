package entity

import (
	"time"

	"github.com/google/uuid"
)

// Question is a single RFP question. Cluster fields are owned by the clustering stage and are
// rewritten every time a project is re-clustered.
type Question struct {
	Id                 uuid.UUID
	ProjectId          uuid.UUID
	OrgId              uuid.UUID
	Text               string
	SectionId          *string
	SectionTitle       string
	Embedding          []float32
	ClusterId          *uuid.UUID
	IsClusterMaster    bool
	MasterQuestionId   *uuid.UUID
	SimilarityToMaster float64
	IsArchived         bool
	CreatedAt          time.Time
	UpdatedAt          *time.Time
}

func (q *Question) HasEmbedding() bool {
	return len(q.Embedding) > 0
}
