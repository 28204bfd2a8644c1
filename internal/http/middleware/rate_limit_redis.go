package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter increment and expiry must be atomic: two racing logins on separate
// API replicas would otherwise both create the window and one would never
// expire.
var fixedWindowScript = redis.NewScript(`
local hits = redis.call("INCR", KEYS[1])
if hits == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {hits, redis.call("PTTL", KEYS[1])}
`)

// RedisFixedWindowLimiter is a shared fixed-window counter. It backs the auth
// endpoints across replicas so credential-guessing cannot be spread over the
// fleet to dodge the per-instance limiter.
type RedisFixedWindowLimiter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisFixedWindowLimiter(client redis.UniversalClient, prefix string) *RedisFixedWindowLimiter {
	if prefix == "" {
		prefix = "rl"
	}
	return &RedisFixedWindowLimiter{client: client, prefix: prefix}
}

func (l *RedisFixedWindowLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	if l.client == nil {
		return false, window, errors.New("redis client is nil")
	}
	if key == "" {
		key = "unknown"
	}
	windowMS := window.Milliseconds()
	if windowMS <= 0 {
		windowMS = 1000
	}

	raw, err := fixedWindowScript.Run(ctx, l.client, []string{l.prefix + ":" + key}, windowMS).Result()
	if err != nil {
		return false, window, err
	}
	hits, ttlMS, err := decodeWindowReply(raw)
	if err != nil {
		return false, window, err
	}

	// PTTL reports -1/-2 when the key expired between INCR and the read.
	if ttlMS <= 0 {
		ttlMS = windowMS
	}
	return hits <= int64(limit), time.Duration(ttlMS) * time.Millisecond, nil
}

func decodeWindowReply(raw any) (hits, ttlMS int64, err error) {
	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return 0, 0, fmt.Errorf("unexpected redis script reply %T", raw)
	}
	nums := make([]int64, 2)
	for i, v := range values {
		switch n := v.(type) {
		case int64:
			nums[i] = n
		case int:
			nums[i] = int64(n)
		case uint64:
			nums[i] = int64(n)
		default:
			return 0, 0, fmt.Errorf("unexpected redis reply element %T", v)
		}
	}
	return nums[0], nums[1], nil
}
