// Package knowledge 实现知识库构建与混合检索核心逻辑
package knowledge

import (
	"time"

	"creator-kb-api/internal/domain/entity"
)

// 切块与打分默认参数
const (
	defaultSectionWindowSeconds   = 600.0
	defaultRetrievalWindowSeconds = 180.0
	defaultOverlapFraction        = 0.15
	defaultMaxKeywords            = 10
	defaultEmbeddingBatch         = 50
	defaultMaxTranscriptChars     = 8000

	defaultVectorWeight  = 0.7
	defaultKeywordWeight = 0.3
	defaultScoreFloor    = 0.1
	defaultSearchLimit   = 5
	maxSearchLimit       = 50

	// 各层级知识块的启发式质量分
	confidenceVideo     = 0.9
	confidenceSection   = 0.85
	confidenceRetrieval = 0.8
)

// ChunkingParams 切块窗口参数
type ChunkingParams struct {
	SectionWindowSeconds   float64
	RetrievalWindowSeconds float64
	OverlapFraction        float64
	MaxKeywords            int
}

// DefaultChunkingParams 返回默认切块参数
func DefaultChunkingParams() ChunkingParams {
	return ChunkingParams{
		SectionWindowSeconds:   defaultSectionWindowSeconds,
		RetrievalWindowSeconds: defaultRetrievalWindowSeconds,
		OverlapFraction:        defaultOverlapFraction,
		MaxKeywords:            defaultMaxKeywords,
	}
}

func (p ChunkingParams) normalized() ChunkingParams {
	if p.SectionWindowSeconds <= 0 {
		p.SectionWindowSeconds = defaultSectionWindowSeconds
	}
	if p.RetrievalWindowSeconds <= 0 {
		p.RetrievalWindowSeconds = defaultRetrievalWindowSeconds
	}
	if p.OverlapFraction < 0 || p.OverlapFraction >= 1 {
		p.OverlapFraction = defaultOverlapFraction
	}
	if p.MaxKeywords <= 0 {
		p.MaxKeywords = defaultMaxKeywords
	}
	return p
}

// ScoringParams 混合打分参数
type ScoringParams struct {
	VectorWeight  float64
	KeywordWeight float64
	ScoreFloor    float64
	DefaultLimit  int
	MaxLimit      int
}

// DefaultScoringParams 返回默认打分参数
func DefaultScoringParams() ScoringParams {
	return ScoringParams{
		VectorWeight:  defaultVectorWeight,
		KeywordWeight: defaultKeywordWeight,
		ScoreFloor:    defaultScoreFloor,
		DefaultLimit:  defaultSearchLimit,
		MaxLimit:      maxSearchLimit,
	}
}

func (p ScoringParams) normalized() ScoringParams {
	if p.VectorWeight <= 0 && p.KeywordWeight <= 0 {
		p.VectorWeight = defaultVectorWeight
		p.KeywordWeight = defaultKeywordWeight
	}
	if p.ScoreFloor < 0 {
		p.ScoreFloor = 0
	}
	if p.DefaultLimit <= 0 {
		p.DefaultLimit = defaultSearchLimit
	}
	if p.MaxLimit <= 0 {
		p.MaxLimit = maxSearchLimit
	}
	return p
}

// SearchInput 混合检索输入
type SearchInput struct {
	TenantID string
	Query    string
	Limit    int

	// Levels 为空表示不过滤；非空则仅检索指定层级。
	Levels []entity.ChunkLevel
}

// HybridSearchResult 单条检索结果，仅在查询期构造，不落库
type HybridSearchResult struct {
	Chunk         *entity.KnowledgeChunk `json:"chunk"`
	VectorScore   float64                `json:"vector_score"`
	BM25Score     float64                `json:"bm25_score"`
	CombinedScore float64                `json:"combined_score"`
	VideoURL      string                 `json:"video_url"`
	TimestampURL  string                 `json:"timestamp_url"`
}

// CatalogVideo 目录协作方返回的候选视频
type CatalogVideo struct {
	PlatformID  string
	Title       string
	URL         string
	Duration    float64
	Language    string
	PublishedAt time.Time
}

// IngestInput 一次知识库构建的输入
type IngestInput struct {
	TenantID  string
	CreatorID string

	// MaxVideos 本次最多处理的视频数，0 使用配置默认值
	MaxVideos int
	// Force 为 true 时重建已处理视频的索引
	Force bool
}

// IngestReport 一次构建的结果汇总
// 单个视频失败不会中断整个目录；配额耗尽会提前终止并置 QuotaLimited。
type IngestReport struct {
	TenantID     string        `json:"tenant_id"`
	CreatorID    string        `json:"creator_id"`
	Candidates   int           `json:"candidates"`
	Processed    int           `json:"processed"`
	Skipped      int           `json:"skipped"`
	Failed       int           `json:"failed"`
	ChunksTotal  int           `json:"chunks_total"`
	Errors       []string      `json:"errors,omitempty"`
	QuotaLimited bool          `json:"quota_limited"`
	Elapsed      time.Duration `json:"elapsed"`
}
