package waf

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// TokenCache 按来源站点缓存通过挑战后拿到的令牌
type TokenCache interface {
	Get(ctx context.Context, origin string) (string, bool)
	Set(ctx context.Context, origin, token string, ttl time.Duration)
}

type cachedToken struct {
	token   string
	expires time.Time
}

// MemoryCache 是进程内的令牌缓存
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]cachedToken
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]cachedToken), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, origin string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[origin]
	if !ok {
		return "", false
	}
	if !e.expires.After(c.now()) {
		delete(c.entries, origin)
		return "", false
	}
	return e.token, true
}

func (c *MemoryCache) Set(_ context.Context, origin, token string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[origin] = cachedToken{token: token, expires: c.now().Add(ttl)}
}

// RedisCache 把令牌放到 Redis，多个实例共享，过期交给 Redis TTL
type RedisCache struct {
	Client redis.Cmdable
	Prefix string
}

func (c *RedisCache) key(origin string) string {
	prefix := c.Prefix
	if prefix == "" {
		prefix = "waf:token:"
	}
	return prefix + origin
}

func (c *RedisCache) Get(ctx context.Context, origin string) (string, bool) {
	if c.Client == nil {
		return "", false
	}
	v, err := c.Client.Get(ctx, c.key(origin)).Result()
	if err != nil || v == "" {
		return "", false
	}
	return v, true
}

func (c *RedisCache) Set(ctx context.Context, origin, token string, ttl time.Duration) {
	if c.Client == nil {
		return
	}
	if err := c.Client.Set(ctx, c.key(origin), token, ttl).Err(); err != nil {
		log.WithField("origin", origin).Warnf("waf: cache token in redis: %v", err)
	}
}
