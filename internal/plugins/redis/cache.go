package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Aleksey-Sartakov/messenger/internal/core/domain"

	"github.com/redis/go-redis/v9"
)

// RedisMessageCache keeps one JSON-encoded window of recent messages per
// dialog direction. The key is direction-aware: each participant's reads
// refresh only their own entry.
type RedisMessageCache struct {
	rdb       *redis.Client
	ttl       time.Duration
	maxWindow int
}

func NewRedisMessageCache(rdb *redis.Client, ttl time.Duration, maxWindow int) *RedisMessageCache {
	return &RedisMessageCache{
		rdb:       rdb,
		ttl:       ttl,
		maxWindow: maxWindow,
	}
}

func messagesCacheKey(askerID, otherID int64) string {
	return fmt.Sprintf("messages_cache:%d:%d", askerID, otherID)
}

func (c *RedisMessageCache) ReadWindow(
	ctx context.Context,
	askerID, otherID int64,
) ([]domain.MessageRead, error) {
	raw, err := c.rdb.Get(ctx, messagesCacheKey(askerID, otherID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var messages []domain.MessageRead
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (c *RedisMessageCache) WriteWindow(
	ctx context.Context,
	askerID, otherID int64,
	messages []domain.MessageRead,
) error {
	messages = c.trim(messages)
	raw, err := json.Marshal(messages)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, messagesCacheKey(askerID, otherID), raw, c.ttl).Err()
}

// Append adds the message to the tail of an existing entry. A missing entry
// stays missing: live sends never materialize a window the user has not
// asked for.
func (c *RedisMessageCache) Append(
	ctx context.Context,
	askerID, otherID int64,
	message domain.MessageRead,
	refreshTTL bool,
) error {
	key := messagesCacheKey(askerID, otherID)
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return err
	}
	var messages []domain.MessageRead
	if err := json.Unmarshal(raw, &messages); err != nil {
		return err
	}
	messages = c.trim(append(messages, message))
	raw, err = json.Marshal(messages)
	if err != nil {
		return err
	}
	if refreshTTL {
		return c.rdb.Set(ctx, key, raw, c.ttl).Err()
	}
	return c.rdb.Set(ctx, key, raw, redis.KeepTTL).Err()
}

func (c *RedisMessageCache) RefreshTTL(ctx context.Context, askerID, otherID int64) error {
	return c.rdb.Expire(ctx, messagesCacheKey(askerID, otherID), c.ttl).Err()
}

// trim keeps only the newest maxWindow messages of the window.
func (c *RedisMessageCache) trim(messages []domain.MessageRead) []domain.MessageRead {
	if c.maxWindow > 0 && len(messages) > c.maxWindow {
		return messages[len(messages)-c.maxWindow:]
	}
	return messages
}
