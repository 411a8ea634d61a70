package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"storefront/models"
)

var ErrCacheMiss = errors.New("cache miss")

type CartCache interface {
	Get(ctx context.Context, userID string) (*models.Cart, error)
	Set(ctx context.Context, cart *models.Cart) error
	Delete(ctx context.Context, userID string) error
}

type RedisCartCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewRedisCartCache(client *redis.Client, ttl time.Duration) *RedisCartCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RedisCartCache{client: client, baseTTL: ttl}
}

func (r *RedisCartCache) Get(ctx context.Context, userID string) (*models.Cart, error) {
	data, err := r.client.Get(ctx, cacheKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cart models.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return &cart, nil
}

// setIfNotOlder writes ARGV[1] unless the cached cart carries a higher
// version than ARGV[2]. Returns 1 when written.
var setIfNotOlder = redis.NewScript(`
local cur = redis.call("GET", KEYS[1])
if cur then
	local ok, cached = pcall(cjson.decode, cur)
	if ok and type(cached) == "table" and tonumber(cached["version"]) ~= nil
		and tonumber(cached["version"]) > tonumber(ARGV[2]) then
		return 0
	end
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
return 1
`)

// Set stores the cart with a jittered TTL so entries written together do not
// expire together. A cart older than the cached one is dropped, so a slow
// read-through cannot overwrite the result of a later write.
func (r *RedisCartCache) Set(ctx context.Context, cart *models.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	jitter := time.Duration(rand.Int63n(int64(r.baseTTL/3) + 1))
	ttl := r.baseTTL + jitter
	err = setIfNotOlder.Run(ctx, r.client, []string{cacheKey(cart.UserID)},
		data, cart.Version, ttl.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCartCache) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// NopCartCache is used when no redis address is configured.
type NopCartCache struct{}

func (NopCartCache) Get(context.Context, string) (*models.Cart, error) { return nil, ErrCacheMiss }
func (NopCartCache) Set(context.Context, *models.Cart) error           { return nil }
func (NopCartCache) Delete(context.Context, string) error              { return nil }

func cacheKey(userID string) string {
	return fmt.Sprintf("cart:%s", userID)
}
