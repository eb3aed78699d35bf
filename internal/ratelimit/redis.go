package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "assessment:quota:"

// RedisStore shares daily counters between replicas. Keys are scoped by day
// and expire shortly after the day ends, so no sweep is needed.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a Redis-backed store. If rdb is nil, every request is
// admitted (fail open).
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Name() string { return "redis" }

// admitScript atomically reads the counter and increments it while under limit.
// KEYS[1] = counter key for client and day
// ARGV[1] = limit
// ARGV[2] = expiry as unix seconds
// Returns: [count, 1=allowed/0=denied]
var admitScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local expire_at = tonumber(ARGV[2])

local count = tonumber(redis.call('GET', key) or '0')
if count >= limit then
    return {count, 0}
end

count = redis.call('INCR', key)
redis.call('EXPIREAT', key, expire_at)
return {count, 1}
`)

func redisKey(key, day string) string {
	return fmt.Sprintf("%s%s:%s", redisKeyPrefix, day, key)
}

func (s *RedisStore) Admit(ctx context.Context, key, day string, limit int64, expireAt time.Time) (int64, bool, error) {
	if s.rdb == nil {
		return 0, true, nil
	}

	result, err := admitScript.Run(ctx, s.rdb, []string{redisKey(key, day)},
		limit, expireAt.Unix(),
	).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("redis quota script: %w", err)
	}
	if len(result) != 2 {
		return 0, false, fmt.Errorf("redis quota script: unexpected reply %v", result)
	}
	return result[0], result[1] == 1, nil
}
