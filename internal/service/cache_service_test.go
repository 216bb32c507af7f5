package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheServiceDisabled(t *testing.T) {
	repo := newFakeCacheRepo()
	svc := NewCacheService(repo, nil, time.Minute, nil, false)

	require.NoError(t, svc.Set(context.Background(), "k", map[string]int{"a": 1}, 0))
	var dest map[string]int
	assert.False(t, svc.Get(context.Background(), "k", &dest))
	assert.False(t, repo.has("k"))

	var nilService *CacheService
	assert.False(t, nilService.Enabled())
	assert.NoError(t, nilService.Invalidate(context.Background(), "k"))
}

func TestCacheServiceHitMissMetrics(t *testing.T) {
	repo := newFakeCacheRepo()
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, time.Minute, nil, true)
	ctx := context.Background()

	var dest map[string]int
	assert.False(t, svc.Get(ctx, "k", &dest))
	require.NoError(t, svc.Set(ctx, "k", map[string]int{"a": 1}, 0))
	assert.True(t, svc.Get(ctx, "k", &dest))
	assert.Equal(t, 1, dest["a"])

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheMisses))
	assert.Equal(t, 0.5, testutil.ToFloat64(metrics.cacheHitRatio))

	require.NoError(t, svc.Invalidate(ctx, "k", "other"))
	assert.Equal(t, []string{"k", "other"}, repo.deleted)
	assert.False(t, repo.has("k"))
}

func TestCacheServiceBackendErrorIsMiss(t *testing.T) {
	repo := newFakeCacheRepo()
	repo.getErr = assert.AnError
	svc := NewCacheService(repo, nil, time.Minute, nil, true)

	var dest map[string]int
	assert.False(t, svc.Get(context.Background(), "k", &dest))
}
