package limiter

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConnectionLimiter throttles anonymous websocket connection attempts with a
// Redis fixed window, keyed per client address.
type ConnectionLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
}

func NewConnectionLimiter(rdb *redis.Client, limit int, window time.Duration) *ConnectionLimiter {
	return &ConnectionLimiter{rdb: rdb, limit: limit, window: window}
}

// INCR and EXPIRE must be atomic, otherwise a crashed client could leave a
// counter with no TTL.
const fixedWindowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
	return 0
end
return 1
`

// Allow reports whether the key is still under its per-window limit. On a
// Redis error it fails open rather than refusing connections.
func (l *ConnectionLimiter) Allow(ctx context.Context, key string) bool {
	if l == nil || l.rdb == nil {
		return true
	}

	result, err := l.rdb.Eval(ctx, fixedWindowScript, []string{key}, l.limit, int(l.window.Seconds())).Int()
	if err != nil {
		return true
	}
	return result == 1
}
