package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/embedding"

	"creator-kb-api/internal/domain/entity"
	"creator-kb-api/pkg/logger"
	"creator-kb-api/pkg/metrics"
)

// PaceKeyEmbedding 嵌入批次间的节流 key
const PaceKeyEmbedding = "embedding"

// ChunkEmbedder 批量获取知识块的稠密向量。
// 失败策略是局部降级：某一批失败只让该批块缺失向量（仍可关键词检索），
// 不中断整个视频的构建。
type ChunkEmbedder struct {
	embedder  embedding.Embedder
	pacer     Pacer
	batchSize int
}

// NewChunkEmbedder 创建块向量化器
func NewChunkEmbedder(embedder embedding.Embedder, pacer Pacer, batchSize int) *ChunkEmbedder {
	if batchSize <= 0 {
		batchSize = defaultEmbeddingBatch
	}
	return &ChunkEmbedder{
		embedder:  embedder,
		pacer:     pacer,
		batchSize: batchSize,
	}
}

// EmbedChunks 就地写入向量，返回每个失败批次的错误描述。
// 配额耗尽类错误直接返回 error，调用方据此终止整个构建运行。
func (e *ChunkEmbedder) EmbedChunks(ctx context.Context, chunks []*entity.KnowledgeChunk) ([]string, error) {
	if e == nil || e.embedder == nil {
		return []string{"embedder not configured"}, nil
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	var failures []string
	for start := 0; start < len(chunks); start += e.batchSize {
		end := start + e.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		if start > 0 && e.pacer != nil {
			if err := e.pacer.Wait(ctx, PaceKeyEmbedding); err != nil {
				return failures, err
			}
		}

		texts := make([]string, 0, len(batch))
		for _, c := range batch {
			texts = append(texts, embedText(c))
		}

		vectors, err := e.embedder.EmbedStrings(ctx, texts)
		if err != nil {
			if IsQuotaExhausted(err) {
				return failures, fmt.Errorf("embedding batch %d: %w", start/e.batchSize, err)
			}
			metrics.EmbeddingBatchTotal.WithLabelValues("error").Inc()
			msg := fmt.Sprintf("embedding batch %d failed: %v", start/e.batchSize, err)
			logger.Warn(ctx, "embedding batch failed, chunks stay keyword-only", "batch", start/e.batchSize, "error", err.Error())
			failures = append(failures, msg)
			continue
		}
		if len(vectors) != len(batch) {
			metrics.EmbeddingBatchTotal.WithLabelValues("error").Inc()
			failures = append(failures, fmt.Sprintf("embedding batch %d returned %d vectors for %d inputs", start/e.batchSize, len(vectors), len(batch)))
			continue
		}

		for i, vec := range vectors {
			f32 := make([]float32, 0, len(vec))
			for _, x := range vec {
				f32 = append(f32, float32(x))
			}
			batch[i].SetEmbedding(f32)
		}
		metrics.EmbeddingBatchTotal.WithLabelValues("success").Inc()
	}
	return failures, nil
}

// embedText 向量化输入带上视频标题，给短块补充全局语境
func embedText(c *entity.KnowledgeChunk) string {
	title := strings.TrimSpace(c.VideoTitle)
	if title == "" {
		return c.Text
	}
	return title + ": " + c.Text
}
