package cache

import (
	"context"
	"fmt"
	"time"
)

// Backend selects the artifact cache implementation.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendRedis  Backend = "redis"
	BackendS3     Backend = "s3"
)

// FactoryConfig carries the settings for every backend; only the selected
// one is consulted.
type FactoryConfig struct {
	Backend Backend
	TTL     time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	S3Bucket   string
	S3Region   string
	S3Endpoint string
	S3Prefix   string
}

// New creates the configured cache backend.
func New(ctx context.Context, cfg FactoryConfig) (Cache, error) {
	switch cfg.Backend {
	case BackendMemory, "":
		return NewMemoryCache(cfg.TTL), nil
	case BackendRedis:
		return NewRedisCache(ctx, RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.TTL,
		})
	case BackendS3:
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("CACHE_S3_BUCKET is required for the s3 cache backend")
		}
		region := cfg.S3Region
		if region == "" {
			region = "us-east-1"
		}
		return NewS3Cache(ctx, S3Config{
			Bucket:   cfg.S3Bucket,
			Region:   region,
			Endpoint: cfg.S3Endpoint,
			Prefix:   cfg.S3Prefix,
		})
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", cfg.Backend)
	}
}
