package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds server configuration.
type Config struct {
	Port          string
	LogLevel      string
	DatabaseURL   string
	SQLitePath    string
	PublicBaseURL string

	CacheBackend string
	CacheTTL     time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CacheS3Bucket   string
	CacheS3Region   string
	CacheS3Endpoint string
	CacheS3Prefix   string

	// ShapeDiver backend. The ticket is server-held and never accepted
	// from callers; the endpoint is only a default that a download
	// request may override.
	ShapeDiverTicket   string
	ShapeDiverEndpoint string
	JSONParamName      string

	RateLimitRPS   int
	RateLimitBurst int

	OTELEnabled  bool
	OTELEndpoint string
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		Port:               envOr("PORT", "3000"),
		LogLevel:           envOr("LOG_LEVEL", "INFO"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		SQLitePath:         envOr("SQLITE_PATH", "sdexport.db"),
		CacheBackend:       envOr("CACHE_BACKEND", "memory"),
		CacheTTL:           envDurationOr("CACHE_TTL", 24*time.Hour),
		RedisAddr:          envOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            envIntOr("REDIS_DB", 0),
		CacheS3Bucket:      os.Getenv("CACHE_S3_BUCKET"),
		CacheS3Region:      envOr("CACHE_S3_REGION", os.Getenv("AWS_REGION")),
		CacheS3Endpoint:    os.Getenv("CACHE_S3_ENDPOINT"),
		CacheS3Prefix:      os.Getenv("CACHE_S3_PREFIX"),
		ShapeDiverTicket:   os.Getenv("SHAPEDIVER_TICKET"),
		ShapeDiverEndpoint: envOr("SHAPEDIVER_ENDPOINT", "https://sdr7euc1.eu-central-1.shapediver.com"),
		JSONParamName:      envOr("SHAPEDIVER_JSON_PARAM", "JSON Input"),
		RateLimitRPS:       envIntOr("RATE_LIMIT_RPS", 20),
		RateLimitBurst:     envIntOr("RATE_LIMIT_BURST", 40),
		OTELEnabled:        os.Getenv("OTEL_ENABLED") == "1" || os.Getenv("OTEL_ENABLED") == "true",
		OTELEndpoint:       envOr("OTEL_ENDPOINT", "localhost:4317"),
	}

	cfg.PublicBaseURL = envOr("PUBLIC_BASE_URL", fmt.Sprintf("http://localhost:%s", cfg.Port))
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
