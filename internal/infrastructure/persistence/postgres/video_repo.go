// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"creator-kb-api/internal/domain/entity"
	"creator-kb-api/internal/domain/repository"
)

// VideoRepository 视频仓储实现
type VideoRepository struct {
	client *Client
}

// NewVideoRepository 创建视频仓储
func NewVideoRepository(client *Client) *VideoRepository {
	return &VideoRepository{client: client}
}

// Upsert 按 (tenant_id, platform_id) 创建或更新视频
func (r *VideoRepository) Upsert(ctx context.Context, video *entity.Video) error {
	ctx, span := tracer.Start(ctx, "postgres.VideoRepository.Upsert")
	defer span.End()

	db := getDB(ctx, r.client.db)
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}, {Name: "platform_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "url", "duration", "language", "published_at", "updated_at",
		}),
	}).Create(video).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to upsert video: %w", err)
	}

	// 冲突更新时 gorm 不回填已有主键，补一次读取
	if video.ID == "" {
		stored, gerr := r.GetByPlatformID(ctx, video.TenantID, video.PlatformID)
		if gerr != nil {
			return gerr
		}
		if stored != nil {
			video.ID = stored.ID
			video.Processed = stored.Processed
			video.ProcessedAt = stored.ProcessedAt
		}
	}
	return nil
}

// GetByID 根据 ID 获取视频
func (r *VideoRepository) GetByID(ctx context.Context, id string) (*entity.Video, error) {
	ctx, span := tracer.Start(ctx, "postgres.VideoRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var video entity.Video
	if err := db.First(&video, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get video: %w", err)
	}
	return &video, nil
}

// GetByPlatformID 根据平台视频 ID 获取视频
func (r *VideoRepository) GetByPlatformID(ctx context.Context, tenantID, platformID string) (*entity.Video, error) {
	ctx, span := tracer.Start(ctx, "postgres.VideoRepository.GetByPlatformID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var video entity.Video
	err := db.Where("tenant_id = ? AND platform_id = ?", tenantID, platformID).First(&video).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get video by platform id: %w", err)
	}
	return &video, nil
}

// List 获取租户视频列表
func (r *VideoRepository) List(ctx context.Context, tenantID string, filter *repository.VideoFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.Video], error) {
	ctx, span := tracer.Start(ctx, "postgres.VideoRepository.List")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.Video{}).Where("tenant_id = ?", tenantID)

	if filter != nil {
		if filter.CreatorID != "" {
			query = query.Where("creator_id = ?", filter.CreatorID)
		}
		if filter.Processed != nil {
			query = query.Where("processed = ?", *filter.Processed)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count videos: %w", err)
	}

	var videos []*entity.Video
	if err := query.Order("published_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&videos).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}

	return repository.NewPagedResult(videos, total, pagination), nil
}

// MarkProcessed 标记视频处理完成并保存摘要
func (r *VideoRepository) MarkProcessed(ctx context.Context, video *entity.Video) error {
	ctx, span := tracer.Start(ctx, "postgres.VideoRepository.MarkProcessed")
	defer span.End()

	db := getDB(ctx, r.client.db)
	// 结构体更新走 gorm 序列化器，summary 才能落成 jsonb
	err := db.Model(&entity.Video{}).Where("id = ?", video.ID).
		Select("processed", "processed_at", "summary", "language", "updated_at").
		Updates(video).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to mark video processed: %w", err)
	}
	return nil
}

// Delete 删除视频
func (r *VideoRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.VideoRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.Video{}, "id = ?", id).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete video: %w", err)
	}
	return nil
}
