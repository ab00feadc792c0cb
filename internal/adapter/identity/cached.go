package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/fixora/leadflow/internal/domain"
	"github.com/fixora/leadflow/internal/infra/logger"
	"github.com/fixora/leadflow/internal/ports"
)

// ErrCacheMiss is returned by a Cache when the key is absent
var ErrCacheMiss = errors.New("identity cache miss")

// Cache stores serialized identities
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// redisCache implements Cache with Redis
type redisCache struct {
	client *redis.Client
}

// NewRedisCache wraps a Redis client as an identity Cache
func NewRedisCache(client *redis.Client) Cache {
	return &redisCache{client: client}
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to read identity cache: %w", err)
	}
	return data, nil
}

func (c *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write identity cache: %w", err)
	}
	return nil
}

// CachedResolver puts a read-through cache in front of another resolver.
// Cache failures degrade to the inner resolver and are only logged.
type CachedResolver struct {
	inner  ports.IdentityResolver
	cache  Cache
	ttl    time.Duration
	logger logger.Logger
}

// NewCachedResolver creates a read-through caching resolver
func NewCachedResolver(inner ports.IdentityResolver, cache Cache, ttl time.Duration, log logger.Logger) *CachedResolver {
	if log == nil {
		log = logger.NewNop()
	}
	return &CachedResolver{inner: inner, cache: cache, ttl: ttl, logger: log}
}

var _ ports.IdentityResolver = (*CachedResolver)(nil)

// ResolveIdentity returns the cached identity or loads and caches it
func (r *CachedResolver) ResolveIdentity(ctx context.Context, id string) (domain.Identity, error) {
	key := cacheKey(id)

	data, err := r.cache.Get(ctx, key)
	if err == nil {
		var identity domain.Identity
		if err := json.Unmarshal(data, &identity); err == nil {
			return identity, nil
		}
		r.logger.Warn(ctx, "Discarding corrupt identity cache entry", map[string]interface{}{"identity_id": id})
	} else if !errors.Is(err, ErrCacheMiss) {
		r.logger.Warn(ctx, "Identity cache unavailable", map[string]interface{}{
			"identity_id": id,
			"error":       err.Error(),
		})
	}

	identity, err := r.inner.ResolveIdentity(ctx, id)
	if err != nil {
		return domain.Identity{}, err
	}

	if data, err := json.Marshal(identity); err == nil {
		if err := r.cache.Set(ctx, key, data, r.ttl); err != nil {
			r.logger.Warn(ctx, "Failed to cache identity", map[string]interface{}{
				"identity_id": id,
				"error":       err.Error(),
			})
		}
	}
	return identity, nil
}

func cacheKey(id string) string {
	return "leadflow:identity:" + id
}
