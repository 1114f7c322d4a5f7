package dto

import (
	"time"

	"creator-kb-api/internal/domain/entity"
)

// VideoResponse 视频详情响应
type VideoResponse struct {
	ID          string     `json:"id"`
	CreatorID   string     `json:"creator_id"`
	PlatformID  string     `json:"platform_id"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Duration    float64    `json:"duration"`
	Language    string     `json:"language,omitempty"`
	PublishedAt time.Time  `json:"published_at"`
	Processed   bool       `json:"processed"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`

	Summary *VideoSummaryResponse `json:"summary,omitempty"`
}

// VideoSummaryResponse 视频摘要响应
type VideoSummaryResponse struct {
	OverallSummary string                 `json:"overall_summary"`
	Keywords       []string               `json:"keywords,omitempty"`
	Language       string                 `json:"language,omitempty"`
	TopicSegments  []TopicSegmentResponse `json:"topic_segments,omitempty"`
}

// TopicSegmentResponse 主题分段响应
type TopicSegmentResponse struct {
	StartTime float64  `json:"start_time"`
	EndTime   float64  `json:"end_time"`
	Topic     string   `json:"topic"`
	Summary   string   `json:"summary,omitempty"`
	Keywords  []string `json:"keywords,omitempty"`
}

// VideoListResponse 视频列表响应
type VideoListResponse struct {
	Videos []*VideoResponse `json:"videos"`
}

// NewVideoResponse 从实体构造视频响应
func NewVideoResponse(v *entity.Video) *VideoResponse {
	if v == nil {
		return nil
	}
	resp := &VideoResponse{
		ID:          v.ID,
		CreatorID:   v.CreatorID,
		PlatformID:  v.PlatformID,
		Title:       v.Title,
		URL:         v.URL,
		Duration:    v.Duration,
		Language:    v.Language,
		PublishedAt: v.PublishedAt,
		Processed:   v.Processed,
		ProcessedAt: v.ProcessedAt,
	}
	if v.Summary != nil {
		summary := &VideoSummaryResponse{
			OverallSummary: v.Summary.OverallSummary,
			Keywords:       v.Summary.Keywords,
			Language:       v.Summary.Language,
		}
		for _, seg := range v.Summary.TopicSegments {
			summary.TopicSegments = append(summary.TopicSegments, TopicSegmentResponse{
				StartTime: seg.StartTime,
				EndTime:   seg.EndTime,
				Topic:     seg.Topic,
				Summary:   seg.Summary,
				Keywords:  seg.Keywords,
			})
		}
		resp.Summary = summary
	}
	return resp
}

// NewVideoListResponse 从实体列表构造响应
func NewVideoListResponse(videos []*entity.Video) *VideoListResponse {
	out := &VideoListResponse{Videos: make([]*VideoResponse, 0, len(videos))}
	for _, v := range videos {
		out.Videos = append(out.Videos, NewVideoResponse(v))
	}
	return out
}

// ChunkResponse 知识块响应
type ChunkResponse struct {
	ID            string   `json:"id"`
	Level         string   `json:"level"`
	ChunkIndex    int      `json:"chunk_index"`
	ParentChunkID string   `json:"parent_chunk_id,omitempty"`
	StartTime     float64  `json:"start_time"`
	EndTime       float64  `json:"end_time"`
	Text          string   `json:"text"`
	Keywords      []string `json:"keywords,omitempty"`
	Topics        []string `json:"topics,omitempty"`
	Confidence    float64  `json:"confidence"`
	Language      string   `json:"language,omitempty"`
	HasEmbedding  bool     `json:"has_embedding"`
	TimestampURL  string   `json:"timestamp_url,omitempty"`
}

// ChunkListResponse 知识块列表响应
type ChunkListResponse struct {
	Chunks []*ChunkResponse `json:"chunks"`
}

// NewChunkListResponse 从实体列表构造知识块响应
func NewChunkListResponse(chunks []*entity.KnowledgeChunk) *ChunkListResponse {
	out := &ChunkListResponse{Chunks: make([]*ChunkResponse, 0, len(chunks))}
	for _, chunk := range chunks {
		out.Chunks = append(out.Chunks, &ChunkResponse{
			ID:            chunk.ID,
			Level:         string(chunk.Level),
			ChunkIndex:    chunk.ChunkIndex,
			ParentChunkID: chunk.ParentChunkID,
			StartTime:     chunk.StartTime,
			EndTime:       chunk.EndTime,
			Text:          chunk.Text,
			Keywords:      chunk.Keywords,
			Topics:        chunk.Topics,
			Confidence:    chunk.Confidence,
			Language:      chunk.Language,
			HasEmbedding:  chunk.HasEmbedding(),
			TimestampURL:  chunk.TimestampURL(),
		})
	}
	return out
}
