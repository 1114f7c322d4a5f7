package dto

import (
	"creator-kb-api/internal/domain/repository"
)

// StatsResponse 知识库统计响应
type StatsResponse struct {
	TotalChunks          int64            `json:"total_chunks"`
	ChunksByLevel        map[string]int64 `json:"chunks_by_level"`
	TotalWords           int64            `json:"total_words"`
	AverageConfidence    float64          `json:"average_confidence"`
	LanguageDistribution map[string]int64 `json:"language_distribution,omitempty"`
}

// NewStatsResponse 从统计结果构造响应
func NewStatsResponse(stats *repository.ChunkStats) *StatsResponse {
	if stats == nil {
		return &StatsResponse{ChunksByLevel: map[string]int64{}}
	}
	byLevel := make(map[string]int64, len(stats.ChunksByLevel))
	for level, count := range stats.ChunksByLevel {
		byLevel[string(level)] = count
	}
	return &StatsResponse{
		TotalChunks:          stats.TotalChunks,
		ChunksByLevel:        byLevel,
		TotalWords:           stats.TotalWords,
		AverageConfidence:    stats.AverageConfidence,
		LanguageDistribution: stats.LanguageDistribution,
	}
}
