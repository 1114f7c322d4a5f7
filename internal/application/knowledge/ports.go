package knowledge

import (
	"context"

	"creator-kb-api/internal/domain/entity"
)

// TranscriptSource 定义应用层对字幕来源的依赖（port）。
// 没有可用字幕时返回 ErrNoTranscript。
type TranscriptSource interface {
	GetTranscript(ctx context.Context, videoID, lang string) (*entity.Transcript, error)
}

// CatalogSource 定义应用层对视频目录来源的依赖（port）。
type CatalogSource interface {
	ListVideos(ctx context.Context, creatorID string) ([]CatalogVideo, error)
}

// SummaryProvider 定义应用层对摘要生成的依赖（port）。
// 实现必须保证永不失败：外部服务异常时返回兜底摘要。
type SummaryProvider interface {
	Summarize(ctx context.Context, video *entity.Video, transcript *entity.Transcript) *entity.VideoSummary
}

// PatternAnalyzer 定义下游说话风格分析的依赖（port）。
// 分析失败不影响构建结果。
type PatternAnalyzer interface {
	Analyze(ctx context.Context, tenantID, creatorID string, videoIDs []string) error
}

// Pacer 定义外部调用的节流依赖（port）。
// Wait 在同一 key 上阻塞直到允许下一次调用，或 ctx 取消。
type Pacer interface {
	Wait(ctx context.Context, key string) error
}

// CandidateRecall 定义可选的 ANN 候选召回依赖（port），由 Milvus 实现。
// 召回失败时引擎退化为全量余弦计算，不影响检索可用性。
type CandidateRecall interface {
	Enabled() bool
	EnsureCollection(ctx context.Context) error
	SearchCandidates(ctx context.Context, tenantID string, queryVector []float32, topK int) ([]string, error)
	UpsertChunks(ctx context.Context, tenantID string, chunks []*entity.KnowledgeChunk) error
	DeleteByVideo(ctx context.Context, tenantID, videoID string) error
}

// SearchCache 定义检索结果缓存的依赖（port），由 Redis 实现。
// 缓存故障只降级，不影响检索结果。
type SearchCache interface {
	Get(ctx context.Context, tenantID, key string) ([]HybridSearchResult, bool)
	Set(ctx context.Context, tenantID, key string, results []HybridSearchResult)
	InvalidateTenant(ctx context.Context, tenantID string) error
}
