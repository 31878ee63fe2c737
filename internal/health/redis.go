package health

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisChecker pings the Redis deployment backing the token store. Its
// failure degrades the service rather than taking it down.
type RedisChecker struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisChecker(client redis.UniversalClient, prefix string) *RedisChecker {
	return &RedisChecker{client: client, prefix: prefix}
}

func (r *RedisChecker) Name() string { return "token_store" }

func (r *RedisChecker) Optional() bool { return true }

func (r *RedisChecker) Details() map[string]interface{} {
	return map[string]interface{}{"backend": "redis", "key_prefix": r.prefix}
}

func (r *RedisChecker) Check(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}
