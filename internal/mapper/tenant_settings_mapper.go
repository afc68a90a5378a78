package mapper

import (
	"rfp-answer-engine/internal/entity"
	"rfp-answer-engine/internal/model"
)

type TenantSettingsMapper struct{}

func NewTenantSettingsMapper() *TenantSettingsMapper {
	return &TenantSettingsMapper{}
}

func (m *TenantSettingsMapper) ToEntity(s *model.TenantSettings) *entity.TenantSettings {
	if s == nil {
		return nil
	}
	return &entity.TenantSettings{
		OrgId:            s.OrgId,
		ClusterThreshold: s.ClusterThreshold,
		SimilarThreshold: s.SimilarThreshold,
		UpdatedAt:        s.UpdatedAt,
	}
}

func (m *TenantSettingsMapper) ToModel(s *entity.TenantSettings) *model.TenantSettings {
	if s == nil {
		return nil
	}
	return &model.TenantSettings{
		OrgId:            s.OrgId,
		ClusterThreshold: s.ClusterThreshold,
		SimilarThreshold: s.SimilarThreshold,
		UpdatedAt:        s.UpdatedAt,
	}
}
