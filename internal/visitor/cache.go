package visitor

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"funnel_backend/internal/capture"
	"funnel_backend/platform/config"

	"github.com/redis/go-redis/v9"
)

const (
	identityKeyPrefix = "funnel:identity:"
	identityTTL       = 180 * 24 * time.Hour
)

// NewRedisClient connects to the Redis shared with the job queue.
func NewRedisClient(cfg config.SchedulerConfig) (*redis.Client, error) {
	if cfg.GetRedisURL() == "" {
		return nil, fmt.Errorf("redis url not configured")
	}
	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, err
	}
	if cfg.GetRedisTLSInsecure() {
		if opt.TLSConfig == nil {
			opt.TLSConfig = &tls.Config{}
		}
		opt.TLSConfig.InsecureSkipVerify = true
	}
	return redis.NewClient(opt), nil
}

// RedisIdentityCache keeps identities per browser profile in Redis.
type RedisIdentityCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisIdentityCache(client redis.Cmdable) *RedisIdentityCache {
	return &RedisIdentityCache{client: client, ttl: identityTTL}
}

func (c *RedisIdentityCache) Get(ctx context.Context, profile string) (capture.Identity, bool, error) {
	data, err := c.client.Get(ctx, identityKeyPrefix+profile).Bytes()
	if errors.Is(err, redis.Nil) {
		return capture.Identity{}, false, nil
	}
	if err != nil {
		return capture.Identity{}, false, err
	}
	var id capture.Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return capture.Identity{}, false, fmt.Errorf("decode cached identity: %w", err)
	}
	return id, true, nil
}

func (c *RedisIdentityCache) Put(ctx context.Context, profile string, id capture.Identity) error {
	data, err := json.Marshal(id)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, identityKeyPrefix+profile, data, c.ttl).Err()
}

// MemoryIdentityCache is the single-process fallback when Redis is absent.
type MemoryIdentityCache struct {
	mu sync.RWMutex
	m  map[string]capture.Identity
}

func NewMemoryIdentityCache() *MemoryIdentityCache {
	return &MemoryIdentityCache{m: make(map[string]capture.Identity)}
}

func (c *MemoryIdentityCache) Get(_ context.Context, profile string) (capture.Identity, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.m[profile]
	return id, ok, nil
}

func (c *MemoryIdentityCache) Put(_ context.Context, profile string, id capture.Identity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[profile] = id
	return nil
}

var (
	_ capture.IdentityCache = (*RedisIdentityCache)(nil)
	_ capture.IdentityCache = (*MemoryIdentityCache)(nil)
)
