package health

import (
	"context"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// EmbedderProber is the slice of the embedding provider readiness cares about.
type EmbedderProber interface {
	Healthy(ctx context.Context) error
}

// EmbedderChecker reports whether the embedding sidecar answers its health
// probe. An unreachable embedder makes enrollment and verification fail, so
// readiness gates on it.
type EmbedderChecker struct {
	prober EmbedderProber
}

func NewEmbedderChecker(prober EmbedderProber) Checker {
	if prober == nil {
		return nil
	}
	return &EmbedderChecker{prober: prober}
}

func (c *EmbedderChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "embedder", Healthy: true}
	if err := c.prober.Healthy(ctx); err != nil {
		res.Healthy = false
		res.Error = err.Error()
	}
	return res
}

type DBChecker struct {
	db *gorm.DB
}

func NewDBChecker(db *gorm.DB) Checker {
	if db == nil {
		return nil
	}
	return &DBChecker{db: db}
}

func (c *DBChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "db", Healthy: true}
	if c.db == nil {
		res.Healthy = false
		res.Error = "db not configured"
		return res
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		res.Healthy = false
		res.Error = err.Error()
		return res
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		res.Healthy = false
		res.Error = err.Error()
	}
	return res
}

type RedisChecker struct {
	client redis.UniversalClient
}

func NewRedisChecker(client redis.UniversalClient) Checker {
	if client == nil {
		return nil
	}
	return &RedisChecker{client: client}
}

func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "redis", Healthy: true}
	if c.client == nil {
		res.Healthy = false
		res.Error = "redis not configured"
		return res
	}
	if err := c.client.Ping(ctx).Err(); err != nil {
		res.Healthy = false
		res.Error = err.Error()
	}
	return res
}
