// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"creator-kb-api/internal/domain/entity"
)

// VideoFilter 视频过滤条件
type VideoFilter struct {
	CreatorID string
	Processed *bool
}

// VideoRepository 视频仓储接口
type VideoRepository interface {
	// Upsert 按 (tenant_id, platform_id) 创建或更新视频
	Upsert(ctx context.Context, video *entity.Video) error

	// GetByID 根据 ID 获取视频
	GetByID(ctx context.Context, id string) (*entity.Video, error)

	// GetByPlatformID 根据平台视频 ID 获取视频，不存在时返回 nil, nil
	GetByPlatformID(ctx context.Context, tenantID, platformID string) (*entity.Video, error)

	// List 获取租户视频列表
	List(ctx context.Context, tenantID string, filter *VideoFilter, pagination Pagination) (*PagedResult[*entity.Video], error)

	// MarkProcessed 标记视频处理完成并保存摘要
	MarkProcessed(ctx context.Context, video *entity.Video) error

	// Delete 删除视频
	Delete(ctx context.Context, id string) error
}
