package service

import (
	"context"
	"math"
	"testing"
	"time"

	"rfp-answer-engine/internal/dto"
	"rfp-answer-engine/internal/entity"
	"rfp-answer-engine/pkg/clustering"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func TestSettingsDefaultsAndUpdate(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	orgId := uuid.New()

	got, err := env.settings.GetClusteringSettings(ctx, orgId)
	require.NoError(t, err)
	assert.True(t, got.IsDefault)
	assert.Equal(t, 0.90, got.ClusterThreshold)
	assert.Equal(t, 0.80, got.SimilarThreshold)

	updated, err := env.settings.UpdateClusteringSettings(ctx, &dto.UpdateClusteringSettingsRequest{
		OrgId: orgId, ClusterThreshold: ptr(0.85), SimilarThreshold: ptr(0.7),
	})
	require.NoError(t, err)
	assert.False(t, updated.IsDefault)

	th, err := env.settings.Thresholds(ctx, orgId)
	require.NoError(t, err)
	assert.Equal(t, clustering.Thresholds{Cluster: 0.85, Similar: 0.7}, th)

	other, err := env.settings.Thresholds(ctx, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, clustering.DefaultThresholds(), other)
}

func TestSettingsUpdateRejectsInvalidThresholds(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	orgId := uuid.New()

	cases := []struct {
		name             string
		cluster, similar *float64
	}{
		{"similar above cluster", ptr(0.8), ptr(0.9)},
		{"cluster above one", ptr(1.2), ptr(0.8)},
		{"negative similar", ptr(0.9), ptr(-0.1)},
		{"missing value", nil, ptr(0.5)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.settings.UpdateClusteringSettings(ctx, &dto.UpdateClusteringSettingsRequest{
				OrgId: orgId, ClusterThreshold: tc.cluster, SimilarThreshold: tc.similar,
			})
			assert.ErrorIs(t, err, clustering.ErrInvalidThresholds)
		})
	}

	got, err := env.settings.GetClusteringSettings(ctx, orgId)
	require.NoError(t, err)
	assert.True(t, got.IsDefault, "nothing is persisted on rejection")
}

func TestSettingsClampStoredSimilarThreshold(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	orgId := uuid.New()
	require.NoError(t, env.db.NewUnitOfWork(ctx).TenantSettingsRepository().Upsert(ctx, &entity.TenantSettings{
		OrgId: orgId, ClusterThreshold: 0.75, SimilarThreshold: 0.95, UpdatedAt: time.Now(),
	}))

	th, err := env.settings.Thresholds(ctx, orgId)
	require.NoError(t, err)
	assert.Equal(t, 0.75, th.Similar)
}

func TestSettingsNaNDefaultsFallBack(t *testing.T) {
	env := newTestEnv()
	settings := NewSettingsService(env.db, clustering.Thresholds{Cluster: math.NaN(), Similar: 0.8})

	th, err := settings.Thresholds(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, clustering.DefaultThresholds(), th)
}
