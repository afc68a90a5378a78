package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type KnowledgeChunk struct {
	Id              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrgId           uuid.UUID       `gorm:"type:uuid;not null;index:idx_knowledge_chunks_org_kb,priority:1"`
	KnowledgeBaseId uuid.UUID       `gorm:"type:uuid;not null;index:idx_knowledge_chunks_org_kb,priority:2"`
	DocumentId      uuid.UUID       `gorm:"type:uuid;not null;index"`
	DocumentTitle   string          `gorm:"type:varchar(255)"`
	Content         string          `gorm:"type:text;not null"`
	EmbeddingValue  pgvector.Vector `gorm:"type:vector"`
	Authority       string          `gorm:"type:varchar(20);default:'reference'"`
	ChunkIndex      int             `gorm:"default:0"` // 0-based position inside the document
	SourceUpdatedAt *time.Time
	CreatedAt       time.Time      `gorm:"autoCreateTime"`
	DeletedAt       gorm.DeletedAt `gorm:"index"`
}

func (KnowledgeChunk) TableName() string {
	return "knowledge_chunks"
}
