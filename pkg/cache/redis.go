package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores artifacts as JSON values under a namespaced criteria
// key, with the backend's TTL doing the expiry.
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// RedisConfig configures the redis cache backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedisCache connects to redis and verifies the connection.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{
		client:    client,
		keyPrefix: "sdexport:artifact:",
		ttl:       cfg.TTL,
	}, nil
}

func (r *RedisCache) Get(ctx context.Context, c Criteria) (Artifact, bool, error) {
	data, err := r.client.Get(ctx, r.keyPrefix+c.Key()).Bytes()
	if err == redis.Nil {
		return Artifact{}, false, nil
	}
	if err != nil {
		return Artifact{}, false, fmt.Errorf("redis get: %w", err)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		// A corrupt entry is treated as a miss; the pipeline recomputes
		// and the subsequent Put overwrites it.
		return Artifact{}, false, nil
	}
	return a, true, nil
}

func (r *RedisCache) Put(ctx context.Context, c Criteria, a Artifact) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}
	if err := r.client.Set(ctx, r.keyPrefix+c.Key(), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close releases the redis connection.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
