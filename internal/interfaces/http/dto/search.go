// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"creator-kb-api/internal/application/knowledge"
	"creator-kb-api/internal/domain/entity"
)

// SearchRequest 混合检索请求
type SearchRequest struct {
	Query  string   `json:"query" binding:"required"`
	Limit  int      `json:"limit,omitempty"`
	Levels []string `json:"levels,omitempty"`
}

// ToInput 转换为应用层检索输入
func (r *SearchRequest) ToInput(tenantID string) knowledge.SearchInput {
	levels := make([]entity.ChunkLevel, 0, len(r.Levels))
	for _, l := range r.Levels {
		levels = append(levels, entity.ChunkLevel(l))
	}
	return knowledge.SearchInput{
		TenantID: tenantID,
		Query:    r.Query,
		Limit:    r.Limit,
		Levels:   levels,
	}
}

// SearchResultItem 单条检索结果
type SearchResultItem struct {
	ChunkID       string   `json:"chunk_id"`
	VideoID       string   `json:"video_id"`
	VideoTitle    string   `json:"video_title"`
	Level         string   `json:"level"`
	Text          string   `json:"text"`
	StartTime     float64  `json:"start_time"`
	EndTime       float64  `json:"end_time"`
	Topics        []string `json:"topics,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`
	VectorScore   float64  `json:"vector_score"`
	BM25Score     float64  `json:"bm25_score"`
	CombinedScore float64  `json:"combined_score"`
	VideoURL      string   `json:"video_url,omitempty"`
	TimestampURL  string   `json:"timestamp_url,omitempty"`
}

// SearchResponse 混合检索响应
type SearchResponse struct {
	Query   string             `json:"query"`
	Results []SearchResultItem `json:"results"`
	Count   int                `json:"count"`
}

// NewSearchResponse 从应用层检索结果构造响应
func NewSearchResponse(query string, results []knowledge.HybridSearchResult) *SearchResponse {
	items := make([]SearchResultItem, 0, len(results))
	for _, r := range results {
		if r.Chunk == nil {
			continue
		}
		items = append(items, SearchResultItem{
			ChunkID:       r.Chunk.ID,
			VideoID:       r.Chunk.VideoID,
			VideoTitle:    r.Chunk.VideoTitle,
			Level:         string(r.Chunk.Level),
			Text:          r.Chunk.Text,
			StartTime:     r.Chunk.StartTime,
			EndTime:       r.Chunk.EndTime,
			Topics:        r.Chunk.Topics,
			Keywords:      r.Chunk.Keywords,
			VectorScore:   r.VectorScore,
			BM25Score:     r.BM25Score,
			CombinedScore: r.CombinedScore,
			VideoURL:      r.VideoURL,
			TimestampURL:  r.TimestampURL,
		})
	}
	return &SearchResponse{
		Query:   query,
		Results: items,
		Count:   len(items),
	}
}
