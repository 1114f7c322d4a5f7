// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"
	"time"

	"creator-kb-api/internal/domain/entity"
)

// UsageEventRepository 模型用量流水仓储实现
type UsageEventRepository struct {
	client *Client
}

// NewUsageEventRepository 创建用量流水仓储
func NewUsageEventRepository(client *Client) *UsageEventRepository {
	return &UsageEventRepository{client: client}
}

// Create 写入一条用量流水
func (r *UsageEventRepository) Create(ctx context.Context, event *entity.UsageEvent) error {
	ctx, span := tracer.Start(ctx, "postgres.UsageEventRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(event).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create usage event: %w", err)
	}
	return nil
}

// GetTokenUsage 统计租户在时间窗口内的 Token 用量
func (r *UsageEventRepository) GetTokenUsage(ctx context.Context, tenantID string, start, end time.Time) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.UsageEventRepository.GetTokenUsage")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var total int64
	err := db.Model(&entity.UsageEvent{}).
		Select("COALESCE(SUM(tokens_prompt + tokens_completion), 0)").
		Where("tenant_id = ? AND created_at >= ? AND created_at < ?", tenantID, start, end).
		Scan(&total).Error
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to sum token usage: %w", err)
	}
	return total, nil
}
