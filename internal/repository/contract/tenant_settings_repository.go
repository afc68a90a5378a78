package contract

import (
	"context"

	"rfp-answer-engine/internal/entity"

	"github.com/google/uuid"
)

type TenantSettingsRepository interface {
	FindByOrgId(ctx context.Context, orgId uuid.UUID) (*entity.TenantSettings, error)
	Upsert(ctx context.Context, settings *entity.TenantSettings) error
}
