package implementation

import (
	"context"
	"errors"

	"rfp-answer-engine/internal/entity"
	"rfp-answer-engine/internal/mapper"
	"rfp-answer-engine/internal/model"
	"rfp-answer-engine/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TenantSettingsRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.TenantSettingsMapper
}

func NewTenantSettingsRepository(db *gorm.DB) contract.TenantSettingsRepository {
	return &TenantSettingsRepositoryImpl{
		db:     db,
		mapper: mapper.NewTenantSettingsMapper(),
	}
}

func (r *TenantSettingsRepositoryImpl) FindByOrgId(ctx context.Context, orgId uuid.UUID) (*entity.TenantSettings, error) {
	var m model.TenantSettings
	if err := r.db.WithContext(ctx).Where("org_id = ?", orgId).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *TenantSettingsRepositoryImpl) Upsert(ctx context.Context, settings *entity.TenantSettings) error {
	m := r.mapper.ToModel(settings)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "org_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"cluster_threshold", "similar_threshold", "updated_at"}),
	}).Create(m).Error
	if err != nil {
		return err
	}
	*settings = *r.mapper.ToEntity(m)
	return nil
}
