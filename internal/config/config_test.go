package config

import (
	"strings"
	"testing"
	"time"
)

func baseConfig() *Config {
	return &Config{
		Env:                       "test",
		HTTPPort:                  "8080",
		DatabaseURL:               "postgres://localhost/facegate",
		JWTIssuer:                 "facegate",
		JWTAudience:               "facegate-api",
		AssertionSecret:           strings.Repeat("s", 32),
		AssertionTTL:              15 * time.Minute,
		SimilarityThreshold:       0.75,
		EmbedderURL:               "http://localhost:9090",
		EmbedderTimeout:           30 * time.Second,
		MaxUploadBytes:            10 << 20,
		AuthRateLimitPerMin:       30,
		APIRateLimitPerMin:        120,
		ReadinessProbeTimeout:     2 * time.Second,
		OTELExporterOTLPEndpoint:  "localhost:4317",
		OTELTraceSamplingRatio:    1.0,
		OTELMetricsExportInterval: 10 * time.Second,
		OTELLogLevel:              "info",
	}
}

func TestValidateMatrix(t *testing.T) {
	t.Run("valid baseline", func(t *testing.T) {
		if err := baseConfig().Validate(); err != nil {
			t.Fatalf("expected valid config, got %v", err)
		}
	})

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing database url", func(c *Config) { c.DatabaseURL = "" }, "DATABASE_URL"},
		{"short assertion secret", func(c *Config) { c.AssertionSecret = "short" }, "ASSERTION_SECRET"},
		{"assertion ttl too long", func(c *Config) { c.AssertionTTL = 2 * time.Hour }, "ASSERTION_TTL"},
		{"assertion ttl non-positive", func(c *Config) { c.AssertionTTL = 0 }, "ASSERTION_TTL"},
		{"threshold above one", func(c *Config) { c.SimilarityThreshold = 1.2 }, "SIMILARITY_THRESHOLD"},
		{"threshold zero", func(c *Config) { c.SimilarityThreshold = 0 }, "SIMILARITY_THRESHOLD"},
		{"missing embedder url", func(c *Config) { c.EmbedderURL = "" }, "EMBEDDER_URL"},
		{"redis required when enabled", func(c *Config) { c.RateLimitRedisEnabled = true; c.RedisAddr = "" }, "REDIS_ADDR"},
		{"minio required when archive enabled", func(c *Config) { c.ArchiveEnabled = true }, "MINIO_ENDPOINT"},
		{"bad log level", func(c *Config) { c.OTELLogLevel = "verbose" }, "OTEL_LOG_LEVEL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := baseConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error mentioning %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/facegate")
	t.Setenv("ASSERTION_SECRET", strings.Repeat("s", 32))
	t.Setenv("EMBEDDER_URL", "http://localhost:9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AssertionTTL != 15*time.Minute {
		t.Fatalf("default assertion ttl = %v, want 15m", cfg.AssertionTTL)
	}
	if cfg.SimilarityThreshold != 0.75 {
		t.Fatalf("default threshold = %v, want 0.75", cfg.SimilarityThreshold)
	}
	if cfg.JWTIssuer != "facegate" || cfg.JWTAudience != "facegate-api" {
		t.Fatalf("unexpected issuer/audience: %q/%q", cfg.JWTIssuer, cfg.JWTAudience)
	}
}
