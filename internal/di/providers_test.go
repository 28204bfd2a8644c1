package di

import (
	"testing"
	"time"

	"github.com/facegate-io/facegate/internal/config"
	"github.com/facegate-io/facegate/internal/http/router"
)

func TestProvideHTTPServer(t *testing.T) {
	cfg := &config.Config{HTTPPort: "9999"}
	srv := provideHTTPServer(cfg, nil)
	if srv.Addr != ":9999" {
		t.Fatalf("unexpected addr: %s", srv.Addr)
	}
	if srv.ReadTimeout != 30*time.Second {
		t.Fatalf("unexpected read timeout: %v", srv.ReadTimeout)
	}
}

func TestProvideRouterDependencies(t *testing.T) {
	cfg := &config.Config{
		CORSAllowedOrigins:  []string{"http://localhost:3000"},
		AuthRateLimitPerMin: 10,
		APIRateLimitPerMin:  100,
		MaxUploadBytes:      10 << 20,
		OTELMetricsEnabled:  true,
	}
	dep := provideRouterDependencies(nil, nil, nil, nil, nil, nil, cfg)
	if dep.AuthRateLimitRPM != 10 || dep.APIRateLimitRPM != 100 {
		t.Fatalf("unexpected rate limits: %+v", dep)
	}
	if !dep.EnableOTelHTTP {
		t.Fatal("expected otel http enabled")
	}
	if len(dep.CORSOrigins) != 1 || dep.CORSOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected cors origins: %+v", dep.CORSOrigins)
	}
	_ = router.Dependencies(dep)
}

func TestProvideSampleArchiveDisabled(t *testing.T) {
	archive, err := provideSampleArchive(&config.Config{ArchiveEnabled: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if archive != nil {
		t.Fatal("expected nil archive when disabled")
	}
}

func TestProvideRedisClientDisabled(t *testing.T) {
	if c := provideRedisClient(&config.Config{RateLimitRedisEnabled: false}); c != nil {
		t.Fatal("expected nil client when redis rate limiting is disabled")
	}
}
