package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	ConfidenceBandHigh   = "high"
	ConfidenceBandMedium = "medium"
	ConfidenceBandLow    = "low"
)

type Answer struct {
	Id                   uuid.UUID
	QuestionId           uuid.UUID
	ProjectId            uuid.UUID
	Text                 string
	Sources              []AnswerSource
	Confidence           float64
	ConfidenceBand       string
	ConfidenceBreakdown  ConfidenceBreakdown
	ClonedFromQuestionId *uuid.UUID
	IsManualOverride     bool
	CreatedAt            time.Time
	UpdatedAt            *time.Time
}

// IsClone reports whether the answer arrived via propagation or override rather than generation.
func (a *Answer) IsClone() bool {
	return a.ClonedFromQuestionId != nil
}

// Preview returns at most n runes of the answer text.
func (a *Answer) Preview(n int) string {
	r := []rune(a.Text)
	if len(r) <= n {
		return a.Text
	}
	return string(r[:n]) + "..."
}

type AnswerSource struct {
	ChunkId         string     `json:"chunk_id"`
	DocumentId      string     `json:"document_id"`
	DocumentTitle   string     `json:"document_title"`
	Excerpt         string     `json:"excerpt"`
	Score           float64    `json:"score"`
	Authority       string     `json:"authority,omitempty"`
	SourceUpdatedAt *time.Time `json:"source_updated_at,omitempty"`
}

// ConfidenceBreakdown holds the five scored factors, each normalized to 0-100.
type ConfidenceBreakdown struct {
	ContextRelevance float64 `json:"context_relevance"`
	SourceRecency    float64 `json:"source_recency"`
	AnswerCoverage   float64 `json:"answer_coverage"`
	SourceAuthority  float64 `json:"source_authority"`
	Consistency      float64 `json:"consistency"`
}
