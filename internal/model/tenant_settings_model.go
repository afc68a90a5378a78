package model

import (
	"time"

	"github.com/google/uuid"
)

type TenantSettings struct {
	OrgId            uuid.UUID `gorm:"type:uuid;primaryKey"`
	ClusterThreshold float64   `gorm:"not null;default:0.9"`
	SimilarThreshold float64   `gorm:"not null;default:0.8"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime"`
}

func (TenantSettings) TableName() string {
	return "tenant_settings"
}
