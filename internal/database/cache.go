package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"llm-dispatch/internal/shared"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CachedStore serves GetMessage from redis when it can. Records only change
// through UpdateImageURL and DeleteMessage, which replace the cached copy with
// a tombstone. Fills use SET NX, so a read that started before a write can
// never put the old record back while the tombstone lives.
type CachedStore struct {
	*MessageStore
	redis *redis.Client
	ttl   time.Duration
	log   *zap.SugaredLogger
}

func NewCachedStore(store *MessageStore, redisClient *redis.Client, log *zap.SugaredLogger) *CachedStore {
	return &CachedStore{
		MessageStore: store,
		redis:        redisClient,
		ttl:          shared.MessageCacheTTL,
		log:          log,
	}
}

const messageTombstone = "tombstone"

func messageCacheKey(id string) string {
	return fmt.Sprintf("v1:message:%s", id)
}

func (c *CachedStore) GetMessage(ctx context.Context, id string) (*shared.ChatRecord, error) {
	id, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	key := messageCacheKey(id)

	cached, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil && cached == messageTombstone:
		c.log.Debugw("Message recently written, skipping cache", "key", key)
	case err == nil:
		var record shared.ChatRecord
		uerr := json.Unmarshal([]byte(cached), &record)
		if uerr == nil {
			return &record, nil
		}
		c.log.Errorw("Error unmarshalling cached message", "error", uerr, "key", key)
	case errors.Is(err, redis.Nil):
		c.log.Debugw("Message cache miss", "key", key)
	default:
		c.log.Warnw("Message cache read failed", "error", err, "key", key)
	}

	start := time.Now()
	record, err := c.MessageStore.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	if time.Since(start) >= shared.MessageTombstoneTTL {
		// A tombstone written during this read may already be gone
		return record, nil
	}

	payload, err := json.Marshal(record)
	if err != nil {
		c.log.Errorw("Error marshalling message for cache", "error", err)
		return record, nil
	}
	if err := c.redis.SetNX(ctx, key, payload, c.ttl).Err(); err != nil {
		c.log.Warnw("Message cache write failed", "error", err, "key", key)
	}
	return record, nil
}

func (c *CachedStore) UpdateImageURL(ctx context.Context, id string, url string) (int64, error) {
	n, err := c.MessageStore.UpdateImageURL(ctx, id, url)
	if err != nil {
		return n, err
	}
	c.evict(ctx, id)
	return n, nil
}

func (c *CachedStore) DeleteMessage(ctx context.Context, id string) error {
	err := c.MessageStore.DeleteMessage(ctx, id)
	if err != nil && !errors.Is(err, ErrNoDocument) {
		return err
	}
	c.evict(ctx, id)
	return err
}

func (c *CachedStore) evict(ctx context.Context, id string) {
	id, err := ParseID(id)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, messageCacheKey(id), messageTombstone, shared.MessageTombstoneTTL).Err(); err != nil {
		c.log.Warnw("Message cache evict failed", "error", err, "message_id", id)
	}
}
