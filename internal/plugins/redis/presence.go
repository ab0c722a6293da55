package redis

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

type RedisPresenceTracker struct {
	rdb *redis.Client
}

func NewRedisPresenceTracker(rdb *redis.Client) *RedisPresenceTracker {
	return &RedisPresenceTracker{
		rdb: rdb,
	}
}

func sessionsCountKey(userID int64) string {
	return "sessions_count:" + strconv.FormatInt(userID, 10)
}

// MarkOnline increments the user's open-connection counter. INCR is atomic,
// so concurrent connections of the same user on different instances never
// lose an increment.
func (p *RedisPresenceTracker) MarkOnline(ctx context.Context, userID int64) error {
	return p.rdb.Incr(ctx, sessionsCountKey(userID)).Err()
}

// MarkOffline decrements the counter and removes the key once no connection
// remains, so "key exists" stays equivalent to "user online".
func (p *RedisPresenceTracker) MarkOffline(ctx context.Context, userID int64) error {
	key := sessionsCountKey(userID)
	n, err := p.rdb.Decr(ctx, key).Result()
	if err != nil {
		return err
	}
	if n <= 0 {
		return p.rdb.Del(ctx, key).Err()
	}
	return nil
}

func (p *RedisPresenceTracker) IsOnline(ctx context.Context, userID int64) (bool, error) {
	n, err := p.rdb.Exists(ctx, sessionsCountKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
