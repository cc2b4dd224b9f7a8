// Package cache holds short-lived QR artifacts so any gateway instance can
// serve the latest code for a session that is waiting to be linked.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type QRCache interface {
	Set(ctx context.Context, sessionID, qr string) error
	Get(ctx context.Context, sessionID string) (string, bool, error)
	Delete(ctx context.Context, sessionID string) error
}

const qrKeyPrefix = "wagate:qr:"

type RedisQRCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisQRCache(rdb *redis.Client, ttl time.Duration) *RedisQRCache {
	return &RedisQRCache{rdb: rdb, ttl: ttl}
}

func (c *RedisQRCache) Set(ctx context.Context, sessionID, qr string) error {
	if err := c.rdb.Set(ctx, qrKeyPrefix+sessionID, qr, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache qr for %s: %w", sessionID, err)
	}
	return nil
}

func (c *RedisQRCache) Get(ctx context.Context, sessionID string) (string, bool, error) {
	qr, err := c.rdb.Get(ctx, qrKeyPrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read cached qr for %s: %w", sessionID, err)
	}
	return qr, true, nil
}

func (c *RedisQRCache) Delete(ctx context.Context, sessionID string) error {
	if err := c.rdb.Del(ctx, qrKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("clear cached qr for %s: %w", sessionID, err)
	}
	return nil
}

// MemoryQRCache is the single-instance fallback used when redis is not
// configured.
type MemoryQRCache struct {
	mu    sync.Mutex
	items map[string]memoryItem
	ttl   time.Duration
	now   func() time.Time
}

type memoryItem struct {
	qr      string
	expires time.Time
}

func NewMemoryQRCache(ttl time.Duration) *MemoryQRCache {
	return &MemoryQRCache{
		items: make(map[string]memoryItem),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (c *MemoryQRCache) Set(_ context.Context, sessionID, qr string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	item := memoryItem{qr: qr}
	if c.ttl > 0 {
		item.expires = c.now().Add(c.ttl)
	}
	c.items[sessionID] = item
	return nil
}

func (c *MemoryQRCache) Get(_ context.Context, sessionID string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[sessionID]
	if !ok {
		return "", false, nil
	}
	if !item.expires.IsZero() && c.now().After(item.expires) {
		delete(c.items, sessionID)
		return "", false, nil
	}
	return item.qr, true, nil
}

func (c *MemoryQRCache) Delete(_ context.Context, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, sessionID)
	return nil
}
