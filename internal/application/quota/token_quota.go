// Package quota 提供租户配额相关能力
package quota

import (
	"context"
	"fmt"
	"time"

	"creator-kb-api/internal/config"
	"creator-kb-api/internal/domain/repository"
)

// TokenQuotaExceededError 表示租户 Token 日配额已耗尽
type TokenQuotaExceededError struct {
	TenantID string
	Max      int64
	Used     int64
}

func (e TokenQuotaExceededError) Error() string {
	return fmt.Sprintf("token quota exceeded: tenant=%s used=%d max=%d", e.TenantID, e.Used, e.Max)
}

// TokenQuotaChecker 用于检查租户 Token 日配额。
// 构建运行前调用，防止单个租户把共享的模型额度打穿。
type TokenQuotaChecker struct {
	usageRepo repository.UsageEventRepository
	cfg       config.QuotaConfig
	now       func() time.Time
}

func NewTokenQuotaChecker(usageRepo repository.UsageEventRepository, cfg config.QuotaConfig) *TokenQuotaChecker {
	return &TokenQuotaChecker{
		usageRepo: usageRepo,
		cfg:       cfg,
		now:       time.Now,
	}
}

// CheckDailyTokens 检查租户是否还有当日 Token 配额。
// 返回 used/max（便于客户端展示），超额时返回 TokenQuotaExceededError。
func (c *TokenQuotaChecker) CheckDailyTokens(ctx context.Context, tenantID string) (used int64, max int64, err error) {
	if c == nil || !c.cfg.Enabled || c.cfg.MaxTokensPerDay <= 0 || c.usageRepo == nil {
		return 0, 0, nil
	}

	now := c.now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	used, err = c.usageRepo.GetTokenUsage(ctx, tenantID, start, end)
	if err != nil {
		return 0, c.cfg.MaxTokensPerDay, err
	}
	if used >= c.cfg.MaxTokensPerDay {
		return used, c.cfg.MaxTokensPerDay, TokenQuotaExceededError{
			TenantID: tenantID,
			Max:      c.cfg.MaxTokensPerDay,
			Used:     used,
		}
	}
	return used, c.cfg.MaxTokensPerDay, nil
}

// IsQuotaExceeded 判断错误是否为配额耗尽
func IsQuotaExceeded(err error) bool {
	_, ok := err.(TokenQuotaExceededError)
	return ok
}
