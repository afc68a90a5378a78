package entity

import (
	"time"

	"github.com/google/uuid"
)

type TenantSettings struct {
	OrgId            uuid.UUID
	ClusterThreshold float64
	SimilarThreshold float64
	UpdatedAt        time.Time
}
