package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"brightsigns-workers/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) (*StatusCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewStatusCache(client, ttl), mr
}

func TestStatusCache_RecordAndGet(t *testing.T) {
	cache, mr := newTestCache(t, time.Hour)

	err := cache.RecordStatus(context.Background(), "est-1", models.StatusProcessing)
	require.NoError(t, err)

	status, ok, err := cache.GetStatus(context.Background(), "est-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.StatusProcessing, status)

	raw, err := mr.Get("quote:estimate:est-1:status")
	require.NoError(t, err)
	assert.Equal(t, "processing", raw)
}

func TestStatusCache_MissIsNotError(t *testing.T) {
	cache, _ := newTestCache(t, time.Hour)

	_, ok, err := cache.GetStatus(context.Background(), "unknown")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStatusCache_TTLSet(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)

	require.NoError(t, cache.RecordStatus(context.Background(), "est-2", models.StatusCompleted))
	assert.Equal(t, time.Minute, mr.TTL("quote:estimate:est-2:status"))
}

func TestStatusCache_DefaultTTL(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewStatusCache(client, 0)

	mock.ExpectSet("quote:estimate:est-4:status", "queued", 24*time.Hour).SetVal("OK")

	require.NoError(t, cache.RecordStatus(context.Background(), "est-4", models.StatusQueued))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusCache_RecordErrorSurfaces(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewStatusCache(client, time.Hour)

	mock.ExpectSet("quote:estimate:est-5:status", "failed", time.Hour).SetErr(errors.New("connection reset"))

	err := cache.RecordStatus(context.Background(), "est-5", models.StatusFailed)
	require.Error(t, err)
}

func TestStatusCache_OverwriteOnTransition(t *testing.T) {
	cache, _ := newTestCache(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, cache.RecordStatus(ctx, "est-3", models.StatusQueued))
	require.NoError(t, cache.RecordStatus(ctx, "est-3", models.StatusProcessing))

	status, ok, err := cache.GetStatus(ctx, "est-3")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.StatusProcessing, status)
}
