package dto

import (
	"time"

	"github.com/google/uuid"
)

type UpdateClusteringSettingsRequest struct {
	OrgId            uuid.UUID
	ClusterThreshold *float64 `json:"cluster_threshold" validate:"required,gte=0,lte=1"`
	SimilarThreshold *float64 `json:"similar_threshold" validate:"required,gte=0,lte=1"`
}

type ClusteringSettingsResponse struct {
	ClusterThreshold float64    `json:"cluster_threshold"`
	SimilarThreshold float64    `json:"similar_threshold"`
	IsDefault        bool       `json:"is_default"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
}
