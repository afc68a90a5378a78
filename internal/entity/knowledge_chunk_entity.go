package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	AuthorityOfficial   = "official"
	AuthorityApproved   = "approved"
	AuthorityReference  = "reference"
	AuthorityUnverified = "unverified"
)

// KnowledgeChunk is one indexed passage of an organization's knowledge base.
type KnowledgeChunk struct {
	Id              uuid.UUID
	OrgId           uuid.UUID
	KnowledgeBaseId uuid.UUID
	DocumentId      uuid.UUID
	DocumentTitle   string
	Content         string
	Embedding       []float32
	Authority       string
	ChunkIndex      int
	SourceUpdatedAt *time.Time
	CreatedAt       time.Time
}
