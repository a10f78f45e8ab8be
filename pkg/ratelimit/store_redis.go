package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix is the key prefix used when RedisStoreConfig.Prefix is empty.
const DefaultRedisPrefix = "agency:rl:"

// checkScript applies the fixed-window decision atomically on a hash with
// "count" and "reset_at" (epoch milliseconds) fields.
var checkScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local new_reset = ARGV[4]

local count = tonumber(redis.call("HGET", key, "count"))
local reset_at = tonumber(redis.call("HGET", key, "reset_at"))

if count == nil or reset_at == nil or now_ms >= reset_at then
  redis.call("HSET", key, "count", 1, "reset_at", new_reset)
  redis.call("PEXPIRE", key, window_ms)
  return {1, 1, new_reset}
end

if count >= limit then
  return {0, count, redis.call("HGET", key, "reset_at")}
end

count = redis.call("HINCRBY", key, "count", 1)
return {1, count, redis.call("HGET", key, "reset_at")}
`)

// sweepScript deletes a key only if its window has ended, so a concurrent
// check that just recreated the entry is never lost.
var sweepScript = redis.NewScript(`
local reset_at = tonumber(redis.call("HGET", KEYS[1], "reset_at"))
if reset_at ~= nil and tonumber(ARGV[1]) >= reset_at then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

var errUnexpectedRedisResponse = errors.New("unexpected redis response")

// RedisStore is a Store backed by Redis hashes, for deployments where several
// processes must share the same quotas.
//
// Each entry also carries a Redis TTL equal to the window, so Redis reclaims
// abandoned identifiers on its own. MaxEntries is not enforced here; bound
// memory with the server's maxmemory policy instead.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// RedisStoreConfig holds configuration for RedisStore.
type RedisStoreConfig struct {
	// Prefix is prepended to every identifier to form the Redis key.
	// Default: DefaultRedisPrefix
	Prefix string
}

// NewRedisStore creates a Redis-backed store using client.
func NewRedisStore(client redis.UniversalClient, config RedisStoreConfig) *RedisStore {
	if config.Prefix == "" {
		config.Prefix = DefaultRedisPrefix
	}
	return &RedisStore{
		client: client,
		prefix: config.Prefix,
	}
}

func (s *RedisStore) key(identifier string) string {
	return s.prefix + identifier
}

// CheckAndIncrement implements Store.
func (s *RedisStore) CheckAndIncrement(ctx context.Context, identifier string, now time.Time, window time.Duration, limit int) (Entry, bool, error) {
	windowMS := window.Milliseconds()
	if windowMS <= 0 {
		return Entry{}, false, fmt.Errorf("invalid rate limit window: %s", window)
	}

	nowMS := now.UnixMilli()
	newReset := strconv.FormatInt(nowMS+windowMS, 10)

	res, err := checkScript.Run(ctx, s.client, []string{s.key(identifier)}, nowMS, windowMS, limit, newReset).Result()
	if err != nil {
		return Entry{}, false, fmt.Errorf("redis check %q: %w", identifier, err)
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 3 {
		return Entry{}, false, errUnexpectedRedisResponse
	}

	allowed, err := toInt64(vals[0])
	if err != nil {
		return Entry{}, false, err
	}
	count, err := toInt64(vals[1])
	if err != nil {
		return Entry{}, false, err
	}
	resetMS, err := toInt64(vals[2])
	if err != nil {
		return Entry{}, false, err
	}

	return Entry{
		Identifier: identifier,
		Count:      int(count),
		ResetAt:    time.UnixMilli(resetMS),
	}, allowed == 1, nil
}

// Peek implements Store.
func (s *RedisStore) Peek(ctx context.Context, identifier string) (Entry, bool, error) {
	vals, err := s.client.HMGet(ctx, s.key(identifier), "count", "reset_at").Result()
	if err != nil {
		return Entry{}, false, fmt.Errorf("redis peek %q: %w", identifier, err)
	}
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return Entry{}, false, nil
	}

	count, err := toInt64(vals[0])
	if err != nil {
		return Entry{}, false, err
	}
	resetMS, err := toInt64(vals[1])
	if err != nil {
		return Entry{}, false, err
	}

	return Entry{
		Identifier: identifier,
		Count:      int(count),
		ResetAt:    time.UnixMilli(resetMS),
	}, true, nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, identifier string) error {
	if err := s.client.Del(ctx, s.key(identifier)).Err(); err != nil {
		return fmt.Errorf("redis delete %q: %w", identifier, err)
	}
	return nil
}

// Len implements Store by scanning the key prefix. It is intended for
// metrics and admin use, not the request path.
func (s *RedisStore) Len(ctx context.Context) (int, error) {
	n := 0
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan: %w", err)
	}
	return n, nil
}

// Sweep implements Store.
func (s *RedisStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	removed := 0
	nowMS := now.UnixMilli()

	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n, err := sweepScript.Run(ctx, s.client, []string{iter.Val()}, nowMS).Int()
		if err != nil {
			return removed, fmt.Errorf("redis sweep: %w", err)
		}
		removed += n
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("redis scan: %w", err)
	}
	return removed, nil
}

func toInt64(v interface{}) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", errUnexpectedRedisResponse, err)
		}
		return n, nil
	default:
		return 0, errUnexpectedRedisResponse
	}
}

// Compile-time interface check
var _ Store = (*RedisStore)(nil)
