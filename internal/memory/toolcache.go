// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"research-collab/pkg/config"
	"research-collab/pkg/errors"
)

// DefaultCacheTTL 工具缓存默认过期时间
const DefaultCacheTTL = 5 * time.Minute

// ToolCache 按 channel+tool 缓存工具结果，条目在 TTL 后过期
type ToolCache interface {
	Get(ctx context.Context, channelID, tool string) (string, bool, error)
	Put(ctx context.Context, channelID, tool, result string) error
	Close() error
}

// NewToolCache 根据配置创建缓存；ttl <=0 时用默认值
func NewToolCache(cfg config.CacheConfig, ttl time.Duration) (ToolCache, error) {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	switch cfg.Type {
	case "", "memory":
		return NewMemToolCache(ttl), nil
	case "redis":
		return NewRedisToolCache(cfg, ttl), nil
	default:
		return nil, errors.Wrapf(errors.ErrUnsupported, "cache type %q", cfg.Type)
	}
}

func cacheKey(channelID, tool string) string {
	return channelID + "/" + tool
}

// MemToolCache 内存实现
type MemToolCache struct {
	mu    sync.RWMutex
	items map[string]ToolCacheEntry
	ttl   time.Duration
	now   func() time.Time // 测试可注入
}

// NewMemToolCache 创建内存工具缓存
func NewMemToolCache(ttl time.Duration) *MemToolCache {
	return &MemToolCache{
		items: make(map[string]ToolCacheEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Get 读取缓存；不存在或已过期时 ok 为 false
func (c *MemToolCache) Get(ctx context.Context, channelID, tool string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.items[cacheKey(channelID, tool)]
	if !ok {
		return "", false, nil
	}
	if c.now().Sub(entry.Timestamp) > c.ttl {
		return "", false, nil
	}
	return entry.Result, true, nil
}

// Put 写入缓存
func (c *MemToolCache) Put(ctx context.Context, channelID, tool, result string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[cacheKey(channelID, tool)] = ToolCacheEntry{Result: result, Timestamp: c.now()}
	return nil
}

// Close 无资源需要释放
func (c *MemToolCache) Close() error { return nil }

// RedisToolCache Redis 实现：TTL 由 Redis 过期键承担
type RedisToolCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisToolCache 创建 Redis 工具缓存
func NewRedisToolCache(cfg config.CacheConfig, ttl time.Duration) *RedisToolCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		DB:       cfg.DB,
		Password: cfg.Password,
	})
	return &RedisToolCache{client: client, ttl: ttl}
}

// Get 读取缓存
func (c *RedisToolCache) Get(ctx context.Context, channelID, tool string) (string, bool, error) {
	val, err := c.client.Get(ctx, "toolcache:"+cacheKey(channelID, tool)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", false, nil
		}
		return "", false, err
	}
	return val, true, nil
}

// Put 写入缓存并设置过期
func (c *RedisToolCache) Put(ctx context.Context, channelID, tool, result string) error {
	return c.client.Set(ctx, "toolcache:"+cacheKey(channelID, tool), result, c.ttl).Err()
}

// Close 关闭 Redis 连接
func (c *RedisToolCache) Close() error {
	return c.client.Close()
}
