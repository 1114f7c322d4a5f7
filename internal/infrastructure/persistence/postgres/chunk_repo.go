// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"creator-kb-api/internal/domain/entity"
	"creator-kb-api/internal/domain/repository"
)

// chunkInsertBatch 批量写入的单批行数
const chunkInsertBatch = 200

// ChunkRepository 知识块仓储实现
type ChunkRepository struct {
	client *Client
}

// NewChunkRepository 创建知识块仓储
func NewChunkRepository(client *Client) *ChunkRepository {
	return &ChunkRepository{client: client}
}

// ReplaceForVideo 删除视频的旧知识块并写入新块。
// 调用方负责包在事务里，保证替换对读路径原子可见。
func (r *ChunkRepository) ReplaceForVideo(ctx context.Context, videoID string, chunks []*entity.KnowledgeChunk) error {
	ctx, span := tracer.Start(ctx, "postgres.ChunkRepository.ReplaceForVideo")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.KnowledgeChunk{}, "video_id = ?", videoID).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete old chunks: %w", err)
	}
	if len(chunks) == 0 {
		return nil
	}
	if err := db.CreateInBatches(chunks, chunkInsertBatch).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert chunks: %w", err)
	}
	return nil
}

// ListByTenant 获取租户的全部知识块
func (r *ChunkRepository) ListByTenant(ctx context.Context, tenantID string) ([]*entity.KnowledgeChunk, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChunkRepository.ListByTenant")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chunks []*entity.KnowledgeChunk
	if err := db.Where("tenant_id = ?", tenantID).
		Order("video_id ASC, level ASC, chunk_index ASC").
		Find(&chunks).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list chunks by tenant: %w", err)
	}
	return chunks, nil
}

// ListByVideo 获取视频的全部知识块
func (r *ChunkRepository) ListByVideo(ctx context.Context, videoID string) ([]*entity.KnowledgeChunk, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChunkRepository.ListByVideo")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chunks []*entity.KnowledgeChunk
	if err := db.Where("video_id = ?", videoID).
		Order("level ASC, chunk_index ASC").
		Find(&chunks).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list chunks by video: %w", err)
	}
	return chunks, nil
}

// GetByID 根据 ID 获取知识块
func (r *ChunkRepository) GetByID(ctx context.Context, id string) (*entity.KnowledgeChunk, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChunkRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chunk entity.KnowledgeChunk
	if err := db.First(&chunk, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get chunk: %w", err)
	}
	return &chunk, nil
}

// DeleteByVideo 删除视频的全部知识块
func (r *ChunkRepository) DeleteByVideo(ctx context.Context, videoID string) error {
	ctx, span := tracer.Start(ctx, "postgres.ChunkRepository.DeleteByVideo")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.KnowledgeChunk{}, "video_id = ?", videoID).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

// Stats 统计租户的知识块分布
func (r *ChunkRepository) Stats(ctx context.Context, tenantID string) (*repository.ChunkStats, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChunkRepository.Stats")
	defer span.End()

	db := getDB(ctx, r.client.db)
	stats := &repository.ChunkStats{
		ChunksByLevel:        make(map[entity.ChunkLevel]int64),
		LanguageDistribution: make(map[string]int64),
	}

	type levelRow struct {
		Level entity.ChunkLevel
		Count int64
	}
	var levels []levelRow
	if err := db.Model(&entity.KnowledgeChunk{}).
		Select("level, COUNT(*) AS count").
		Where("tenant_id = ?", tenantID).
		Group("level").
		Scan(&levels).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count chunks by level: %w", err)
	}
	for _, row := range levels {
		stats.ChunksByLevel[row.Level] = row.Count
		stats.TotalChunks += row.Count
	}

	type aggRow struct {
		TotalWords    int64
		AvgConfidence float64
	}
	var agg aggRow
	if err := db.Model(&entity.KnowledgeChunk{}).
		Select("COALESCE(SUM(array_length(regexp_split_to_array(trim(text), '\\s+'), 1)), 0) AS total_words, COALESCE(AVG(confidence), 0) AS avg_confidence").
		Where("tenant_id = ?", tenantID).
		Scan(&agg).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to aggregate chunk stats: %w", err)
	}
	stats.TotalWords = agg.TotalWords
	stats.AverageConfidence = agg.AvgConfidence

	type langRow struct {
		Language string
		Count    int64
	}
	var langs []langRow
	if err := db.Model(&entity.KnowledgeChunk{}).
		Select("language, COUNT(*) AS count").
		Where("tenant_id = ? AND language <> ''", tenantID).
		Group("language").
		Scan(&langs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count chunks by language: %w", err)
	}
	for _, row := range langs {
		stats.LanguageDistribution[row.Language] = row.Count
	}

	return stats, nil
}
