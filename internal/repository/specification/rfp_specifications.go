package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByProjectID struct {
	ProjectID uuid.UUID
}

func (s ByProjectID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("project_id = ?", s.ProjectID)
}

type ByOrgID struct {
	OrgID uuid.UUID
}

func (s ByOrgID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("org_id = ?", s.OrgID)
}

type ByQuestionIDs struct {
	QuestionIDs []uuid.UUID
}

func (s ByQuestionIDs) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("question_id IN ?", s.QuestionIDs)
}

type ByQuestionID struct {
	QuestionID uuid.UUID
}

func (s ByQuestionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("question_id = ?", s.QuestionID)
}

// ActiveQuestions excludes archived questions, which never take part in clustering.
type ActiveQuestions struct{}

func (s ActiveQuestions) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("is_archived = ?", false)
}

// CreationOrder is the stable input order for clustering: creation time, then id.
type CreationOrder struct{}

func (s CreationOrder) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC").Order("id ASC")
}

type ClusterMasters struct{}

func (s ClusterMasters) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("is_cluster_master = ?", true)
}

type Unclustered struct{}

func (s Unclustered) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("cluster_id IS NULL")
}

type ByStages struct {
	Stages []string
}

func (s ByStages) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("stage IN ?", s.Stages)
}
