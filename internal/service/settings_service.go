package service

import (
	"context"
	"time"

	"rfp-answer-engine/internal/dto"
	"rfp-answer-engine/internal/entity"
	"rfp-answer-engine/internal/repository/unitofwork"
	"rfp-answer-engine/pkg/clustering"

	"github.com/google/uuid"
)

type ISettingsService interface {
	GetClusteringSettings(ctx context.Context, orgId uuid.UUID) (*dto.ClusteringSettingsResponse, error)
	UpdateClusteringSettings(ctx context.Context, req *dto.UpdateClusteringSettingsRequest) (*dto.ClusteringSettingsResponse, error)
	Thresholds(ctx context.Context, orgId uuid.UUID) (clustering.Thresholds, error)
}

type settingsService struct {
	uowFactory unitofwork.RepositoryFactory
	defaults   clustering.Thresholds
}

// NewSettingsService falls back to defaults for organizations without stored settings.
// Invalid defaults are clamped the same way stored values are.
func NewSettingsService(uowFactory unitofwork.RepositoryFactory, defaults clustering.Thresholds) ISettingsService {
	th, err := clustering.NewThresholds(defaults.Cluster, defaults.Similar)
	if err != nil {
		th = clustering.DefaultThresholds()
	}
	return &settingsService{uowFactory: uowFactory, defaults: th}
}

func (s *settingsService) Thresholds(ctx context.Context, orgId uuid.UUID) (clustering.Thresholds, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	settings, err := uow.TenantSettingsRepository().FindByOrgId(ctx, orgId)
	if err != nil {
		return clustering.Thresholds{}, err
	}
	if settings == nil {
		return s.defaults, nil
	}
	// rows written before validation existed may still hold similar > cluster
	return clustering.NewThresholds(settings.ClusterThreshold, settings.SimilarThreshold)
}

func (s *settingsService) GetClusteringSettings(ctx context.Context, orgId uuid.UUID) (*dto.ClusteringSettingsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	settings, err := uow.TenantSettingsRepository().FindByOrgId(ctx, orgId)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		return &dto.ClusteringSettingsResponse{
			ClusterThreshold: s.defaults.Cluster,
			SimilarThreshold: s.defaults.Similar,
			IsDefault:        true,
		}, nil
	}

	th, err := clustering.NewThresholds(settings.ClusterThreshold, settings.SimilarThreshold)
	if err != nil {
		return nil, err
	}
	updatedAt := settings.UpdatedAt
	return &dto.ClusteringSettingsResponse{
		ClusterThreshold: th.Cluster,
		SimilarThreshold: th.Similar,
		UpdatedAt:        &updatedAt,
	}, nil
}

func (s *settingsService) UpdateClusteringSettings(ctx context.Context, req *dto.UpdateClusteringSettingsRequest) (*dto.ClusteringSettingsResponse, error) {
	if req.ClusterThreshold == nil || req.SimilarThreshold == nil {
		return nil, clustering.ErrInvalidThresholds
	}
	th := clustering.Thresholds{Cluster: *req.ClusterThreshold, Similar: *req.SimilarThreshold}
	if err := th.Validate(); err != nil {
		return nil, err
	}

	settings := &entity.TenantSettings{
		OrgId:            req.OrgId,
		ClusterThreshold: th.Cluster,
		SimilarThreshold: th.Similar,
		UpdatedAt:        time.Now(),
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.TenantSettingsRepository().Upsert(ctx, settings); err != nil {
		return nil, err
	}

	updatedAt := settings.UpdatedAt
	return &dto.ClusteringSettingsResponse{
		ClusterThreshold: th.Cluster,
		SimilarThreshold: th.Similar,
		UpdatedAt:        &updatedAt,
	}, nil
}
