// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"creator-kb-api/internal/domain/entity"
)

// ChunkStats 知识块统计信息
type ChunkStats struct {
	TotalChunks          int64                        `json:"total_chunks"`
	ChunksByLevel        map[entity.ChunkLevel]int64  `json:"chunks_by_level"`
	TotalWords           int64                        `json:"total_words"`
	AverageConfidence    float64                      `json:"average_confidence"`
	LanguageDistribution map[string]int64             `json:"language_distribution"`
}

// ChunkRepository 知识块仓储接口
type ChunkRepository interface {
	// ReplaceForVideo 删除视频的旧知识块并写入新块（同一事务内）
	ReplaceForVideo(ctx context.Context, videoID string, chunks []*entity.KnowledgeChunk) error

	// ListByTenant 获取租户的全部知识块
	ListByTenant(ctx context.Context, tenantID string) ([]*entity.KnowledgeChunk, error)

	// ListByVideo 获取视频的全部知识块（按层级、序号排序）
	ListByVideo(ctx context.Context, videoID string) ([]*entity.KnowledgeChunk, error)

	// GetByID 根据 ID 获取知识块
	GetByID(ctx context.Context, id string) (*entity.KnowledgeChunk, error)

	// DeleteByVideo 删除视频的全部知识块
	DeleteByVideo(ctx context.Context, videoID string) error

	// Stats 统计租户的知识块分布
	Stats(ctx context.Context, tenantID string) (*ChunkStats, error)
}
