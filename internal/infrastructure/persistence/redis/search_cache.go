// Package redis 提供 Redis 缓存实现
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"creator-kb-api/internal/application/knowledge"
	"creator-kb-api/pkg/logger"
)

// defaultSearchCacheTTL 检索结果缓存默认过期时间
const defaultSearchCacheTTL = 5 * time.Minute

// SearchCache 检索结果缓存，实现检索引擎的缓存依赖。
// 缓存层故障只降级为未命中，从不影响检索结果。
type SearchCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewSearchCache 创建检索结果缓存
func NewSearchCache(cache *Cache, ttl time.Duration) *SearchCache {
	if ttl <= 0 {
		ttl = defaultSearchCacheTTL
	}
	return &SearchCache{cache: cache, ttl: ttl}
}

var _ knowledge.SearchCache = (*SearchCache)(nil)

// Get 读取缓存的检索结果
func (c *SearchCache) Get(ctx context.Context, tenantID, key string) ([]knowledge.HybridSearchResult, bool) {
	if c == nil || c.cache == nil {
		return nil, false
	}

	raw, err := c.cache.Get(ctx, searchKey(tenantID, key))
	if err != nil {
		if !IsNil(err) {
			logger.Warn(ctx, "search cache read failed", "error", err.Error())
		}
		return nil, false
	}

	var results []knowledge.HybridSearchResult
	if err := json.Unmarshal(raw, &results); err != nil {
		logger.Warn(ctx, "search cache entry corrupt, dropping", "error", err.Error())
		_ = c.cache.Delete(ctx, searchKey(tenantID, key))
		return nil, false
	}
	return results, true
}

// Set 写入检索结果
func (c *SearchCache) Set(ctx context.Context, tenantID, key string, results []knowledge.HybridSearchResult) {
	if c == nil || c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, searchKey(tenantID, key), results, c.ttl); err != nil {
		logger.Warn(ctx, "search cache write failed", "error", err.Error())
	}
}

// InvalidateTenant 失效租户的全部检索缓存（索引变更后调用）
func (c *SearchCache) InvalidateTenant(ctx context.Context, tenantID string) error {
	if c == nil || c.cache == nil {
		return nil
	}
	return c.cache.InvalidateTenant(ctx, tenantID)
}

// searchKey 查询参数哈希后入键，避免任意查询文本直接出现在键名里
func searchKey(tenantID, key string) string {
	sum := sha256.Sum256([]byte(key))
	return fmt.Sprintf("search:%s:%s", tenantID, hex.EncodeToString(sum[:16]))
}
