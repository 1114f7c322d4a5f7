package knowledge

import (
	"context"
	"fmt"

	"creator-kb-api/internal/domain/entity"
	"creator-kb-api/internal/domain/repository"
	"creator-kb-api/pkg/logger"
	"creator-kb-api/pkg/metrics"
)

// IndexWriter 把一个视频的知识块集合持久化到索引。
// 写入按“先删后插”整体替换，块 ID 确定性生成，重跑同一视频不会产生重复记录。
// processed 标记与块集合在同一事务内提交：消费方看不到半索引状态的“已处理”视频。
type IndexWriter struct {
	videos repository.VideoRepository
	chunks repository.ChunkRepository
	tx     repository.Transactor
	recall CandidateRecall
	cache  SearchCache
}

// NewIndexWriter 创建索引写入器。recall 与 cache 可为 nil。
func NewIndexWriter(videos repository.VideoRepository, chunks repository.ChunkRepository, tx repository.Transactor, recall CandidateRecall, cache SearchCache) *IndexWriter {
	return &IndexWriter{
		videos: videos,
		chunks: chunks,
		tx:     tx,
		recall: recall,
		cache:  cache,
	}
}

// WriteVideo 提交一个视频的完整块集合并翻转 processed 标记。
// Milvus 候选召回镜像与缓存失效都是尽力而为：失败只记日志，不影响写入结果。
func (w *IndexWriter) WriteVideo(ctx context.Context, video *entity.Video, chunks []*entity.KnowledgeChunk) error {
	if video == nil {
		return fmt.Errorf("video is nil")
	}
	if w == nil || w.videos == nil || w.chunks == nil {
		return fmt.Errorf("index writer not configured")
	}

	commit := func(ctx context.Context) error {
		if err := w.chunks.ReplaceForVideo(ctx, video.ID, chunks); err != nil {
			return err
		}
		video.MarkProcessed()
		return w.videos.MarkProcessed(ctx, video)
	}

	var err error
	if w.tx != nil {
		err = w.tx.WithTransaction(ctx, commit)
	} else {
		err = commit(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to commit chunk set: %w", err)
	}

	for _, c := range chunks {
		metrics.ChunksIndexed.WithLabelValues(c.TenantID, string(c.Level)).Inc()
	}

	w.mirrorCandidates(ctx, video, chunks)

	if w.cache != nil {
		if err := w.cache.InvalidateTenant(ctx, video.TenantID); err != nil {
			logger.Warn(ctx, "failed to invalidate search cache", "tenant_id", video.TenantID, "error", err.Error())
		}
	}
	return nil
}

// DeleteVideo 移除视频及其全部知识块
func (w *IndexWriter) DeleteVideo(ctx context.Context, video *entity.Video) error {
	if video == nil {
		return fmt.Errorf("video is nil")
	}

	commit := func(ctx context.Context) error {
		if err := w.chunks.DeleteByVideo(ctx, video.ID); err != nil {
			return err
		}
		return w.videos.Delete(ctx, video.ID)
	}

	var err error
	if w.tx != nil {
		err = w.tx.WithTransaction(ctx, commit)
	} else {
		err = commit(ctx)
	}
	if err != nil {
		return err
	}

	if w.recall != nil && w.recall.Enabled() {
		if rerr := w.recall.DeleteByVideo(ctx, video.TenantID, video.ID); rerr != nil {
			logger.Warn(ctx, "failed to delete candidate mirror", "video_id", video.ID, "error", rerr.Error())
		}
	}
	if w.cache != nil {
		_ = w.cache.InvalidateTenant(ctx, video.TenantID)
	}
	return nil
}

// mirrorCandidates 把带向量的 retrieval 层块镜像到 ANN 召回索引
func (w *IndexWriter) mirrorCandidates(ctx context.Context, video *entity.Video, chunks []*entity.KnowledgeChunk) {
	if w.recall == nil || !w.recall.Enabled() {
		return
	}
	if err := w.recall.EnsureCollection(ctx); err != nil {
		logger.Warn(ctx, "candidate recall unavailable", "error", err.Error())
		return
	}
	if err := w.recall.DeleteByVideo(ctx, video.TenantID, video.ID); err != nil {
		logger.Warn(ctx, "failed to clear candidate mirror", "video_id", video.ID, "error", err.Error())
		return
	}

	embedded := make([]*entity.KnowledgeChunk, 0, len(chunks))
	for _, c := range chunks {
		if c.Level == entity.ChunkLevelRetrieval && c.HasEmbedding() {
			embedded = append(embedded, c)
		}
	}
	if len(embedded) == 0 {
		return
	}
	if err := w.recall.UpsertChunks(ctx, video.TenantID, embedded); err != nil {
		logger.Warn(ctx, "failed to mirror chunks to candidate recall", "video_id", video.ID, "error", err.Error())
	}
}
