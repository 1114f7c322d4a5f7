package knowledge

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/embedding"

	"creator-kb-api/internal/domain/entity"
	"creator-kb-api/internal/domain/repository"
	"creator-kb-api/pkg/metrics"
)

// candidateRecallFactor 候选召回数量相对 limit 的放大倍数
const (
	candidateRecallFactor = 10
	candidateRecallCap    = 200
)

// Engine 混合检索引擎：稠密向量相似度与 BM25 词法相关度的加权融合。
// 读路径无副作用，可被任意多调用方并发使用；构建写入与检索读取可交错，
// 重建中的视频在新块集合提交前仍以旧的完整块集合对外服务。
type Engine struct {
	embedder embedding.Embedder
	chunks   repository.ChunkRepository
	recall   CandidateRecall
	cache    SearchCache
	params   ScoringParams
}

// NewEngine 创建检索引擎。recall 与 cache 可为 nil。
func NewEngine(embedder embedding.Embedder, chunks repository.ChunkRepository, recall CandidateRecall, cache SearchCache, params ScoringParams) *Engine {
	return &Engine{
		embedder: embedder,
		chunks:   chunks,
		recall:   recall,
		cache:    cache,
		params:   params.normalized(),
	}
}

// Search 执行混合检索，结果按融合分降序且不超过 limit。
// 租户没有任何知识块时返回空结果而不是错误；
// 查询向量化失败则整体失败——静默退化为纯关键词检索会让调用方
// 无法区分“没有结果”与“检索不可用”。
func (e *Engine) Search(ctx context.Context, in SearchInput) ([]HybridSearchResult, error) {
	in.TenantID = strings.TrimSpace(in.TenantID)
	in.Query = strings.TrimSpace(in.Query)
	if in.TenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}
	if in.Query == "" {
		return nil, ErrEmptyQuery
	}
	if in.Limit <= 0 {
		in.Limit = e.params.DefaultLimit
	}
	if in.Limit > e.params.MaxLimit {
		in.Limit = e.params.MaxLimit
	}

	start := time.Now()
	cacheKey := searchCacheKey(in)
	if e.cache != nil {
		if cached, ok := e.cache.Get(ctx, in.TenantID, cacheKey); ok {
			metrics.SearchTotal.WithLabelValues(in.TenantID, "cache_hit").Inc()
			return cached, nil
		}
	}

	queryVector, err := e.embedQuery(ctx, in.Query)
	if err != nil {
		metrics.SearchTotal.WithLabelValues(in.TenantID, "error").Inc()
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	chunks, err := e.loadChunks(ctx, in)
	if err != nil {
		metrics.SearchTotal.WithLabelValues(in.TenantID, "error").Inc()
		return nil, err
	}
	if len(chunks) == 0 {
		metrics.SearchTotal.WithLabelValues(in.TenantID, "empty").Inc()
		return []HybridSearchResult{}, nil
	}

	candidates := e.recallCandidates(ctx, in, queryVector)

	results := e.score(in, chunks, queryVector, candidates)

	metrics.SearchTotal.WithLabelValues(in.TenantID, "success").Inc()
	metrics.SearchDuration.WithLabelValues(in.TenantID).Observe(time.Since(start).Seconds())
	metrics.SearchResultCount.WithLabelValues(in.TenantID).Observe(float64(len(results)))

	if e.cache != nil {
		e.cache.Set(ctx, in.TenantID, cacheKey, results)
	}
	return results, nil
}

// score 对全部块打分、过滤、排序并截断
func (e *Engine) score(in SearchInput, chunks []*entity.KnowledgeChunk, queryVector []float32, candidates map[string]struct{}) []HybridSearchResult {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	corpus := newBM25Corpus(texts)
	queryTokens := tokenize(in.Query)

	results := make([]HybridSearchResult, 0, len(chunks))
	for i, c := range chunks {
		vectorScore := 0.0
		if c.HasEmbedding() {
			// 候选召回启用时只对候选块算精确余弦，其余块靠 BM25 兜底
			if candidates == nil {
				vectorScore = cosineSimilarity(queryVector, c.EmbeddingSlice())
			} else if _, ok := candidates[c.ID]; ok {
				vectorScore = cosineSimilarity(queryVector, c.EmbeddingSlice())
			}
		}
		bm25Score := corpus.Score(queryTokens, i)

		// 向量相似度主导（语义/同义改写），词法项作为精确词命中的加分
		combined := e.params.VectorWeight*vectorScore + e.params.KeywordWeight*bm25Score
		if combined < e.params.ScoreFloor {
			continue
		}

		results = append(results, HybridSearchResult{
			Chunk:         c,
			VectorScore:   vectorScore,
			BM25Score:     bm25Score,
			CombinedScore: combined,
			VideoURL:      c.VideoURL,
			TimestampURL:  c.TimestampURL(),
		})
	}

	sort.Slice(results, func(a, b int) bool {
		if results[a].CombinedScore != results[b].CombinedScore {
			return results[a].CombinedScore > results[b].CombinedScore
		}
		return results[a].Chunk.ID < results[b].Chunk.ID
	})
	if len(results) > in.Limit {
		results = results[:in.Limit]
	}
	return results
}

// loadChunks 加载租户全部知识块，可按层级过滤
func (e *Engine) loadChunks(ctx context.Context, in SearchInput) ([]*entity.KnowledgeChunk, error) {
	all, err := e.chunks.ListByTenant(ctx, in.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}
	if len(in.Levels) == 0 {
		return all, nil
	}
	wanted := make(map[entity.ChunkLevel]struct{}, len(in.Levels))
	for _, l := range in.Levels {
		wanted[l] = struct{}{}
	}
	filtered := make([]*entity.KnowledgeChunk, 0, len(all))
	for _, c := range all {
		if _, ok := wanted[c.Level]; ok {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}

// recallCandidates 尝试 ANN 候选召回；失败或未启用时返回 nil（退化为全量余弦）
func (e *Engine) recallCandidates(ctx context.Context, in SearchInput, queryVector []float32) map[string]struct{} {
	if e.recall == nil || !e.recall.Enabled() {
		return nil
	}
	topK := in.Limit * candidateRecallFactor
	if topK > candidateRecallCap {
		topK = candidateRecallCap
	}
	ids, err := e.recall.SearchCandidates(ctx, in.TenantID, queryVector, topK)
	if err != nil || len(ids) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (e *Engine) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if e == nil || e.embedder == nil {
		return nil, fmt.Errorf("embedder not configured")
	}
	v64, err := e.embedder.EmbedStrings(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(v64) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	vec := v64[0]
	out := make([]float32, 0, len(vec))
	for _, x := range vec {
		out = append(out, float32(x))
	}
	return out, nil
}

// searchCacheKey 同租户下由查询参数唯一决定
func searchCacheKey(in SearchInput) string {
	levels := make([]string, 0, len(in.Levels))
	for _, l := range in.Levels {
		levels = append(levels, string(l))
	}
	sort.Strings(levels)
	return fmt.Sprintf("%d|%s|%s", in.Limit, strings.Join(levels, ","), strings.ToLower(in.Query))
}
