// Package config reads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the hivemind service.
type Config struct {
	DatabaseURL  string
	RedisURL     string
	RulesPath    string
	Port         string
	LogLevel     string
	LogFormat    string
	CacheTTL     time.Duration
	OTLPEndpoint string
	ServiceName  string
}

// Load reads configuration from environment variables with sensible
// defaults. RedisURL is optional; without it the dashboard cache stays
// in-process. A non-empty OTEL_EXPORTER_OTLP_ENDPOINT switches logging
// to the OTLP bridge.
func Load() *Config {
	return &Config{
		DatabaseURL:  getEnv("DATABASE_URL", "postgres://localhost:5432/hivemind?sslmode=disable"),
		RedisURL:     os.Getenv("REDIS_URL"),
		RulesPath:    getEnv("RULES_PATH", "rules.yaml"),
		Port:         getEnv("PORT", "8080"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "json"),
		CacheTTL:     time.Duration(getEnvInt("CACHE_TTL_SECONDS", 300)) * time.Second,
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ServiceName:  getEnv("OTEL_SERVICE_NAME", "hivemind"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
