package ratelimit

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"
)

// incrScript starts a window on the first hit and reports the remaining TTL.
var incrScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisStore shares counters between every instance pointed at the same
// Redis. Identifiers (usually client IPs) are hashed before use as keys.
type RedisStore struct {
	client redis.Scripter
	prefix string
}

func NewRedisStore(client redis.Scripter, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(identifier string) string {
	sum := blake2b.Sum256([]byte(identifier))
	return s.prefix + ":" + hex.EncodeToString(sum[:16])
}

func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration, now time.Time) (Record, error) {
	res, err := incrScript.Run(ctx, s.client, []string{s.key(key)}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Record{}, fmt.Errorf("rate limit increment: %w", err)
	}
	if len(res) != 2 {
		return Record{}, fmt.Errorf("rate limit increment: unexpected reply %v", res)
	}

	return Record{
		Identifier: key,
		Count:      int(res[0]),
		ResetAt:    now.Add(time.Duration(res[1]) * time.Millisecond),
	}, nil
}
