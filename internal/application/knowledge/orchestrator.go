package knowledge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"creator-kb-api/internal/domain/entity"
	"creator-kb-api/internal/domain/repository"
	"creator-kb-api/pkg/logger"
	"creator-kb-api/pkg/metrics"
)

// errAlreadyProcessed 视频已处理且未要求重建
var errAlreadyProcessed = errors.New("video already processed")

// nonConversationalMarkers 标题命中即认为不是对话类内容，跳过构建
var nonConversationalMarkers = []string{
	"instrumental",
	"official music video",
	"lyric video",
	"soundtrack",
	"asmr",
	"#shorts",
	"trailer",
	"teaser",
	"compilation",
}

// OrchestratorConfig 编排器配置
type OrchestratorConfig struct {
	MaxVideosPerRun int
	MinVideoSeconds float64
	MaxVideoSeconds float64
	BatchSize       int
}

func (c OrchestratorConfig) normalized() OrchestratorConfig {
	if c.MaxVideosPerRun <= 0 {
		c.MaxVideosPerRun = 25
	}
	if c.MinVideoSeconds <= 0 {
		c.MinVideoSeconds = 10
	}
	if c.MaxVideoSeconds <= 0 {
		c.MaxVideoSeconds = 7200
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 5
	}
	return c
}

// Orchestrator 驱动单个创作者的完整知识库构建流水线：
// 目录过滤 -> 摘要 -> 切块 -> 向量化 -> 落库，严格串行处理，
// 视频之间与批次之间通过 Pacer 节流以避开第三方限流。
// 单个视频失败只记录错误继续；配额耗尽提前终止整个运行。
type Orchestrator struct {
	catalog     CatalogSource
	transcripts TranscriptSource
	summarizer  SummaryProvider
	builder     *Builder
	embedder    *ChunkEmbedder
	writer      *IndexWriter
	videos      repository.VideoRepository
	analyzer    PatternAnalyzer
	pacer       Pacer
	cfg         OrchestratorConfig
}

// NewOrchestrator 创建编排器。analyzer 与 pacer 可为 nil。
func NewOrchestrator(
	catalog CatalogSource,
	transcripts TranscriptSource,
	summarizer SummaryProvider,
	builder *Builder,
	embedder *ChunkEmbedder,
	writer *IndexWriter,
	videos repository.VideoRepository,
	analyzer PatternAnalyzer,
	pacer Pacer,
	cfg OrchestratorConfig,
) *Orchestrator {
	return &Orchestrator{
		catalog:     catalog,
		transcripts: transcripts,
		summarizer:  summarizer,
		builder:     builder,
		embedder:    embedder,
		writer:      writer,
		videos:      videos,
		analyzer:    analyzer,
		pacer:       pacer,
		cfg:         cfg.normalized(),
	}
}

// ProcessCatalog 处理创作者的完整视频目录并返回结果汇总。
// 取消在视频边界协作式检查，不会打断单个视频的处理。
func (o *Orchestrator) ProcessCatalog(ctx context.Context, in IngestInput) (*IngestReport, error) {
	in.TenantID = strings.TrimSpace(in.TenantID)
	in.CreatorID = strings.TrimSpace(in.CreatorID)
	if in.TenantID == "" || in.CreatorID == "" {
		return nil, fmt.Errorf("tenant_id and creator_id are required")
	}

	start := time.Now()
	ctx = logger.WithContext(ctx, logger.TenantIDKey, in.TenantID)
	ctx = logger.WithContext(ctx, logger.CreatorIDKey, in.CreatorID)

	all, err := o.catalog.ListVideos(ctx, in.CreatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list creator catalog: %w", err)
	}

	candidates := o.selectCandidates(all, in.MaxVideos)
	report := &IngestReport{
		TenantID:   in.TenantID,
		CreatorID:  in.CreatorID,
		Candidates: len(candidates),
	}

	processedIDs := make([]string, 0, len(candidates))
	for i, cv := range candidates {
		if ctxErr := ctx.Err(); ctxErr != nil {
			report.Elapsed = time.Since(start)
			return report, ctxErr
		}
		if i > 0 && o.pacer != nil {
			key := PaceKeyVideo
			if i%o.cfg.BatchSize == 0 {
				key = PaceKeyBatch
			}
			if perr := o.pacer.Wait(ctx, key); perr != nil {
				report.Elapsed = time.Since(start)
				return report, perr
			}
		}

		video, chunkCount, perr := o.ProcessVideo(ctx, in.TenantID, in.CreatorID, cv, in.Force)
		switch {
		case perr == nil:
			report.Processed++
			report.ChunksTotal += chunkCount
			processedIDs = append(processedIDs, video.ID)
			metrics.IngestVideosTotal.WithLabelValues(in.TenantID, "success").Inc()
		case errors.Is(perr, errAlreadyProcessed):
			report.Skipped++
			metrics.IngestVideosTotal.WithLabelValues(in.TenantID, "skipped").Inc()
		case errors.Is(perr, ErrNoTranscript):
			report.Skipped++
			metrics.IngestVideosTotal.WithLabelValues(in.TenantID, "no_transcript").Inc()
			logger.Info(ctx, "video skipped, no transcript available", "platform_id", cv.PlatformID)
		case IsQuotaExhausted(perr):
			report.Failed++
			report.QuotaLimited = true
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", cv.PlatformID, perr))
			metrics.IngestVideosTotal.WithLabelValues(in.TenantID, "quota").Inc()
			logger.Warn(ctx, "quota exhausted, halting ingestion run", "platform_id", cv.PlatformID, "error", perr.Error())
		default:
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", cv.PlatformID, perr))
			metrics.IngestVideosTotal.WithLabelValues(in.TenantID, "error").Inc()
			logger.Error(ctx, "video ingestion failed, continuing with next", perr, "platform_id", cv.PlatformID)
		}

		if report.QuotaLimited {
			break
		}
	}

	// 下游风格分析尽力而为：失败只记日志，不影响构建结果
	if report.Processed > 0 && o.analyzer != nil {
		if aerr := o.analyzer.Analyze(ctx, in.TenantID, in.CreatorID, processedIDs); aerr != nil {
			logger.Warn(ctx, "pattern analysis trigger failed", "error", aerr.Error())
		}
	}

	report.Elapsed = time.Since(start)
	logger.Info(ctx, "catalog ingestion finished",
		"candidates", report.Candidates,
		"processed", report.Processed,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"quota_limited", report.QuotaLimited,
	)
	return report, nil
}

// ProcessVideo 处理单个视频：字幕 -> 摘要 -> 切块 -> 向量化 -> 落库。
// 幂等：重跑产生相同的块 ID 集合，整体替换而非追加。
func (o *Orchestrator) ProcessVideo(ctx context.Context, tenantID, creatorID string, cv CatalogVideo, force bool) (*entity.Video, int, error) {
	ctx = logger.WithContext(ctx, logger.VideoIDKey, cv.PlatformID)
	start := time.Now()

	// 仓储约定：不存在返回 nil, nil；非空错误是真实查询故障，中止本视频
	existing, err := o.videos.GetByPlatformID(ctx, tenantID, cv.PlatformID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to look up video record: %w", err)
	}
	if existing != nil && existing.Processed && !force {
		return existing, 0, errAlreadyProcessed
	}

	video := existing
	if video == nil {
		video = &entity.Video{
			TenantID:   tenantID,
			CreatorID:  creatorID,
			PlatformID: cv.PlatformID,
		}
	}
	video.Title = cv.Title
	video.URL = cv.URL
	video.Duration = cv.Duration
	video.Language = cv.Language
	video.PublishedAt = cv.PublishedAt
	if err := o.videos.Upsert(ctx, video); err != nil {
		return nil, 0, fmt.Errorf("failed to upsert video: %w", err)
	}

	transcript, err := o.transcripts.GetTranscript(ctx, cv.PlatformID, cv.Language)
	if err != nil {
		if errors.Is(err, ErrNoTranscript) {
			return video, 0, ErrNoTranscript
		}
		return video, 0, fmt.Errorf("failed to fetch transcript: %w", err)
	}

	summary := o.summarizer.Summarize(ctx, video, transcript)
	video.Summary = summary
	if video.Language == "" {
		video.Language = transcript.Language
	}

	chunks := o.builder.Build(video, transcript, summary)

	failures, err := o.embedder.EmbedChunks(ctx, chunks)
	if err != nil {
		return video, 0, err
	}
	if len(failures) > 0 {
		logger.Warn(ctx, "some chunks missing embeddings", "failed_batches", len(failures))
	}

	if err := o.writer.WriteVideo(ctx, video, chunks); err != nil {
		return video, 0, err
	}

	metrics.IngestVideoDuration.WithLabelValues(tenantID).Observe(time.Since(start).Seconds())
	logger.Info(ctx, "video indexed",
		"chunks", len(chunks),
		"embedding_failures", len(failures),
		"elapsed", time.Since(start).String(),
	)
	return video, len(chunks), nil
}

// selectCandidates 过滤不适合构建的视频并按发布时间倒序截断。
// 过滤条件：过短（无实质内容）、过长（超出处理预算）、标题疑似非对话内容。
func (o *Orchestrator) selectCandidates(all []CatalogVideo, maxVideos int) []CatalogVideo {
	if maxVideos <= 0 || maxVideos > o.cfg.MaxVideosPerRun {
		maxVideos = o.cfg.MaxVideosPerRun
	}

	filtered := make([]CatalogVideo, 0, len(all))
	for _, cv := range all {
		if cv.Duration < o.cfg.MinVideoSeconds || cv.Duration > o.cfg.MaxVideoSeconds {
			continue
		}
		if titleLooksNonConversational(cv.Title) {
			continue
		}
		filtered = append(filtered, cv)
	}

	sort.Slice(filtered, func(a, b int) bool {
		return filtered[a].PublishedAt.After(filtered[b].PublishedAt)
	})
	if len(filtered) > maxVideos {
		filtered = filtered[:maxVideos]
	}
	return filtered
}

// titleLooksNonConversational 标题启发式：音乐/预告等无对话内容
func titleLooksNonConversational(title string) bool {
	t := strings.ToLower(title)
	for _, marker := range nonConversationalMarkers {
		if strings.Contains(t, marker) {
			return true
		}
	}
	return false
}
