package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formaplan/trainer-booking/internal/models"
	appErrors "github.com/formaplan/trainer-booking/pkg/errors"
)

func TestCompetencyServiceTrainersFor(t *testing.T) {
	repo := &trainerRepoStub{bySoftware: map[string][]models.Trainer{
		"soft-1": {{ID: "a", DisplayName: "Alice", Active: true}},
	}}
	svc := NewCompetencyService(repo, nil, 0, nil)

	trainers, err := svc.TrainersFor(context.Background(), "soft-1")
	require.NoError(t, err)
	assert.Len(t, trainers, 1)

	none, err := svc.TrainersFor(context.Background(), "soft-2")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	empty, err := svc.TrainersFor(context.Background(), "  ")
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.Equal(t, 2, repo.calls)
}

func TestCompetencyServiceUsesCache(t *testing.T) {
	repo := &trainerRepoStub{bySoftware: map[string][]models.Trainer{
		"soft-1": {{ID: "a", DisplayName: "Alice", Active: true}},
	}}
	store := newMemoryCache()
	metrics := NewMetricsService()
	cache := NewCacheService(store, metrics, 0, nil, true)
	svc := NewCompetencyService(repo, cache, 0, nil)

	first, err := svc.TrainersFor(context.Background(), "soft-1")
	require.NoError(t, err)
	second, err := svc.TrainersFor(context.Background(), "soft-1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.calls)

	require.NoError(t, svc.Invalidate(context.Background(), "soft-1"))
	assert.Equal(t, []string{"competency:software:soft-1"}, store.deleted)
	_, err = svc.TrainersFor(context.Background(), "soft-1")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)

	require.NoError(t, svc.Invalidate(context.Background(), ""))
	assert.Equal(t, "competency:software:*", store.deleted[1])
}

func TestCompetencyServiceCacheFailureFallsBackToStore(t *testing.T) {
	repo := &trainerRepoStub{bySoftware: map[string][]models.Trainer{"soft-1": {{ID: "a"}}}}
	store := newMemoryCache()
	store.getErr = errors.New("redis down")
	svc := NewCompetencyService(repo, NewCacheService(store, nil, 0, nil, true), 0, nil)

	trainers, err := svc.TrainersFor(context.Background(), "soft-1")
	require.NoError(t, err)
	assert.Len(t, trainers, 1)
}

func TestCompetencyServiceStoreFailure(t *testing.T) {
	svc := NewCompetencyService(&trainerRepoStub{err: errors.New("db down")}, nil, 0, nil)

	_, err := svc.TrainersFor(context.Background(), "soft-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrPersistence)
}
