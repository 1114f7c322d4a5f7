package milvus

import (
	"context"

	"creator-kb-api/internal/application/knowledge"
	"creator-kb-api/internal/domain/entity"
)

// CandidateRecallAdapter 把 Milvus 仓储适配成检索引擎的候选召回依赖。
// 未配置（repo 为 nil）时 Enabled 返回 false，引擎退化为全量余弦计算。
type CandidateRecallAdapter struct {
	repo *Repository
}

// NewCandidateRecallAdapter 创建候选召回适配器
func NewCandidateRecallAdapter(repo *Repository) *CandidateRecallAdapter {
	return &CandidateRecallAdapter{repo: repo}
}

var _ knowledge.CandidateRecall = (*CandidateRecallAdapter)(nil)

// Enabled 是否启用 ANN 召回
func (a *CandidateRecallAdapter) Enabled() bool {
	return a != nil && a.repo != nil
}

// EnsureCollection 确保集合与索引可用
func (a *CandidateRecallAdapter) EnsureCollection(ctx context.Context) error {
	if !a.Enabled() {
		return nil
	}
	return a.repo.EnsureKnowledgeChunksCollection(ctx)
}

// SearchCandidates 返回与查询向量最近的 topK 个块 ID
func (a *CandidateRecallAdapter) SearchCandidates(ctx context.Context, tenantID string, queryVector []float32, topK int) ([]string, error) {
	if !a.Enabled() {
		return nil, nil
	}
	return a.repo.SearchChunks(ctx, tenantID, queryVector, topK)
}

// UpsertChunks 镜像带向量的知识块
func (a *CandidateRecallAdapter) UpsertChunks(ctx context.Context, tenantID string, chunks []*entity.KnowledgeChunk) error {
	if !a.Enabled() || len(chunks) == 0 {
		return nil
	}

	rows := make([]*ChunkVector, 0, len(chunks))
	for _, c := range chunks {
		if c == nil || !c.HasEmbedding() {
			continue
		}
		rows = append(rows, &ChunkVector{
			ID:       c.ID,
			Vector:   c.EmbeddingSlice(),
			TenantID: c.TenantID,
			VideoID:  c.VideoID,
			Level:    string(c.Level),
		})
	}
	return a.repo.InsertChunks(ctx, tenantID, rows)
}

// DeleteByVideo 移除视频的全部向量行
func (a *CandidateRecallAdapter) DeleteByVideo(ctx context.Context, tenantID, videoID string) error {
	if !a.Enabled() {
		return nil
	}
	return a.repo.DeleteChunksByVideo(ctx, tenantID, videoID)
}
