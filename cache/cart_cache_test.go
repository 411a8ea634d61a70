package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/models"
)

func setupTestRedis(t *testing.T) (*RedisCartCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCartCache(client, time.Minute), mr
}

func TestGet_Success(t *testing.T) {
	c, mr := setupTestRedis(t)

	cart := &models.Cart{
		UserID:  "user-1",
		Version: 2,
		Items: []models.CartItem{
			{ID: 1, ProductID: "vase", UnitPrice: 1000, Quantity: 2},
		},
	}
	data, _ := json.Marshal(cart)
	require.NoError(t, mr.Set(cacheKey("user-1"), string(data)))

	got, err := c.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "vase", got.Items[0].ProductID)
}

func TestGet_CacheMiss(t *testing.T) {
	c, _ := setupTestRedis(t)

	got, err := c.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, got)
}

func TestGet_InvalidJSON(t *testing.T) {
	c, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(cacheKey("user-1"), "{not json"))

	_, err := c.Get(context.Background(), "user-1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestSet_AppliesTTL(t *testing.T) {
	c, mr := setupTestRedis(t)

	err := c.Set(context.Background(), &models.Cart{UserID: "user-1", Version: 1})
	require.NoError(t, err)

	assert.True(t, mr.Exists(cacheKey("user-1")))
	ttl := mr.TTL(cacheKey("user-1"))
	assert.GreaterOrEqual(t, ttl, time.Minute)
	assert.LessOrEqual(t, ttl, time.Minute+20*time.Second)
}

func TestDelete(t *testing.T) {
	c, mr := setupTestRedis(t)
	require.NoError(t, c.Set(context.Background(), &models.Cart{UserID: "user-1"}))

	require.NoError(t, c.Delete(context.Background(), "user-1"))
	assert.False(t, mr.Exists(cacheKey("user-1")))
}

func TestRedisUnavailable(t *testing.T) {
	c, mr := setupTestRedis(t)
	mr.Close()

	_, err := c.Get(context.Background(), "user-1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestSet_KeepsNewerVersion(t *testing.T) {
	c, _ := setupTestRedis(t)
	ctx := context.Background()

	newer := &models.Cart{UserID: "user-1", Version: 3, Items: []models.CartItem{{ID: 2, ProductID: "lamp", Quantity: 1}}}
	older := &models.Cart{UserID: "user-1", Version: 2, Items: []models.CartItem{
		{ID: 1, ProductID: "vase", Quantity: 2}, {ID: 2, ProductID: "lamp", Quantity: 1},
	}}
	require.NoError(t, c.Set(ctx, newer))
	require.NoError(t, c.Set(ctx, older))

	got, err := c.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Version)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "lamp", got.Items[0].ProductID)

	same := &models.Cart{UserID: "user-1", Version: 3, Items: []models.CartItem{}}
	require.NoError(t, c.Set(ctx, same))
	got, err = c.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, got.Items)
}

func TestSet_OverwritesUnreadableEntry(t *testing.T) {
	c, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(cacheKey("user-1"), "{not json"))

	require.NoError(t, c.Set(context.Background(), &models.Cart{UserID: "user-1", Version: 1}))

	got, err := c.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
}
