// Package repository 定义数据访问层接口
package repository

import (
	"context"
	"time"

	"creator-kb-api/internal/domain/entity"
)

// UsageEventRepository 模型用量流水仓储接口
type UsageEventRepository interface {
	// Create 写入一条用量流水
	Create(ctx context.Context, event *entity.UsageEvent) error

	// GetTokenUsage 统计租户在时间窗口内的 Token 用量
	GetTokenUsage(ctx context.Context, tenantID string, start, end time.Time) (int64, error)
}
