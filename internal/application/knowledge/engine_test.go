package knowledge

import (
	"context"
	"errors"
	"testing"

	"creator-kb-api/internal/domain/entity"
)

func seedChunk(repo *fakeChunkRepo, id, videoID, text string, level entity.ChunkLevel, vec []float32) *entity.KnowledgeChunk {
	c := &entity.KnowledgeChunk{
		ID:       id,
		TenantID: "tenant-1",
		VideoID:  videoID,
		VideoURL: "https://videos.example.com/watch?v=" + videoID,
		Level:    level,
		Text:     text,
	}
	c.SetEmbedding(vec)
	repo.byVideo[videoID] = append(repo.byVideo[videoID], c)
	return c
}

// queryEmbedder 对任意查询返回固定向量
func queryEmbedder(vec []float64) *fakeEmbedder {
	return &fakeEmbedder{fn: func(texts []string) ([][]float64, error) {
		out := make([][]float64, len(texts))
		for i := range texts {
			out[i] = vec
		}
		return out, nil
	}}
}

func TestEngineSearchRanksVectorMatchFirst(t *testing.T) {
	repo := newFakeChunkRepo()
	seedChunk(repo, "chunk-a", "vid-1", "kneading dough until smooth", entity.ChunkLevelRetrieval, []float32{1, 0, 0})
	seedChunk(repo, "chunk-b", "vid-2", "pasta pasta with tomato pasta", entity.ChunkLevelRetrieval, []float32{0, 1, 0})

	engine := NewEngine(queryEmbedder([]float64{1, 0, 0}), repo, nil, nil, DefaultScoringParams())

	results, err := engine.Search(context.Background(), SearchInput{TenantID: "tenant-1", Query: "pasta"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("no results")
	}
	// chunk-a：余弦 1 -> 0.7；chunk-b：只有词法分 0.3*bm25 < 0.7
	if results[0].Chunk.ID != "chunk-a" {
		t.Errorf("top result = %s, want chunk-a", results[0].Chunk.ID)
	}
	if results[0].VectorScore < 0.999 {
		t.Errorf("vector score = %v, want ~1", results[0].VectorScore)
	}
	if results[0].CombinedScore < results[len(results)-1].CombinedScore {
		t.Error("results not sorted by combined score")
	}
	if results[0].TimestampURL == "" {
		t.Error("missing timestamp url")
	}
}

func TestEngineSearchKeywordOnlyChunk(t *testing.T) {
	repo := newFakeChunkRepo()
	// 无向量的块仍可通过词法分进入结果
	c := seedChunk(repo, "chunk-k", "vid-1", "pasta pasta pasta pasta pasta pasta", entity.ChunkLevelRetrieval, nil)
	if c.HasEmbedding() {
		t.Fatal("chunk should have no embedding")
	}

	params := DefaultScoringParams()
	params.ScoreFloor = 0.01
	engine := NewEngine(queryEmbedder([]float64{1, 0, 0}), repo, nil, nil, params)

	results, err := engine.Search(context.Background(), SearchInput{TenantID: "tenant-1", Query: "pasta"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	if results[0].VectorScore != 0 {
		t.Errorf("vector score = %v, want 0", results[0].VectorScore)
	}
	if results[0].BM25Score <= 0 {
		t.Errorf("bm25 score = %v, want > 0", results[0].BM25Score)
	}
}

func TestEngineSearchScoreFloorFiltersNoise(t *testing.T) {
	repo := newFakeChunkRepo()
	seedChunk(repo, "chunk-n", "vid-1", "totally unrelated content", entity.ChunkLevelRetrieval, []float32{0, 1, 0})

	engine := NewEngine(queryEmbedder([]float64{1, 0, 0}), repo, nil, nil, DefaultScoringParams())

	results, err := engine.Search(context.Background(), SearchInput{TenantID: "tenant-1", Query: "pasta"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results = %d, want 0 (below floor)", len(results))
	}
}

func TestEngineSearchEmptyTenant(t *testing.T) {
	engine := NewEngine(queryEmbedder([]float64{1}), newFakeChunkRepo(), nil, nil, DefaultScoringParams())

	results, err := engine.Search(context.Background(), SearchInput{TenantID: "tenant-1", Query: "anything"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("results = %v, want empty non-nil slice", results)
	}
}

func TestEngineSearchEmbedFailureIsHardError(t *testing.T) {
	repo := newFakeChunkRepo()
	seedChunk(repo, "chunk-a", "vid-1", "pasta", entity.ChunkLevelRetrieval, []float32{1})

	embedder := &fakeEmbedder{fn: func([]string) ([][]float64, error) {
		return nil, errors.New("provider down")
	}}
	engine := NewEngine(embedder, repo, nil, nil, DefaultScoringParams())

	if _, err := engine.Search(context.Background(), SearchInput{TenantID: "tenant-1", Query: "pasta"}); err == nil {
		t.Fatal("expected error when query embedding fails")
	}
}

func TestEngineSearchValidation(t *testing.T) {
	engine := NewEngine(queryEmbedder([]float64{1}), newFakeChunkRepo(), nil, nil, DefaultScoringParams())

	if _, err := engine.Search(context.Background(), SearchInput{Query: "x"}); err == nil {
		t.Error("expected error for missing tenant")
	}
	if _, err := engine.Search(context.Background(), SearchInput{TenantID: "t", Query: "   "}); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("err = %v, want ErrEmptyQuery", err)
	}
}

func TestEngineSearchLimit(t *testing.T) {
	repo := newFakeChunkRepo()
	for i := 0; i < 5; i++ {
		seedChunk(repo, ChunkID("vid-1", entity.ChunkLevelRetrieval, i), "vid-1",
			"pasta cooking tips", entity.ChunkLevelRetrieval, []float32{1, 0, 0})
	}

	engine := NewEngine(queryEmbedder([]float64{1, 0, 0}), repo, nil, nil, DefaultScoringParams())

	results, err := engine.Search(context.Background(), SearchInput{TenantID: "tenant-1", Query: "pasta", Limit: 2})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("results = %d, want 2", len(results))
	}
}

func TestEngineSearchLevelFilter(t *testing.T) {
	repo := newFakeChunkRepo()
	seedChunk(repo, "chunk-v", "vid-1", "pasta overview", entity.ChunkLevelVideo, []float32{1, 0, 0})
	seedChunk(repo, "chunk-r", "vid-1", "pasta detail", entity.ChunkLevelRetrieval, []float32{1, 0, 0})

	engine := NewEngine(queryEmbedder([]float64{1, 0, 0}), repo, nil, nil, DefaultScoringParams())

	results, err := engine.Search(context.Background(), SearchInput{
		TenantID: "tenant-1",
		Query:    "pasta",
		Levels:   []entity.ChunkLevel{entity.ChunkLevelRetrieval},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range results {
		if r.Chunk.Level != entity.ChunkLevelRetrieval {
			t.Errorf("unexpected level %s in filtered results", r.Chunk.Level)
		}
	}
	if len(results) != 1 {
		t.Errorf("results = %d, want 1", len(results))
	}
}

func TestEngineSearchCache(t *testing.T) {
	repo := newFakeChunkRepo()
	seedChunk(repo, "chunk-a", "vid-1", "pasta cooking", entity.ChunkLevelRetrieval, []float32{1, 0, 0})

	embedder := queryEmbedder([]float64{1, 0, 0})
	cache := newFakeSearchCache()
	engine := NewEngine(embedder, repo, nil, cache, DefaultScoringParams())

	in := SearchInput{TenantID: "tenant-1", Query: "pasta"}
	if _, err := engine.Search(context.Background(), in); err != nil {
		t.Fatalf("first search: %v", err)
	}
	if _, err := engine.Search(context.Background(), in); err != nil {
		t.Fatalf("second search: %v", err)
	}
	// 第二次命中缓存，不再调用向量服务
	if got := len(embedder.calls); got != 1 {
		t.Errorf("embedder calls = %d, want 1", got)
	}
}

func TestEngineSearchCandidateRecall(t *testing.T) {
	repo := newFakeChunkRepo()
	seedChunk(repo, "chunk-in", "vid-1", "kneading dough", entity.ChunkLevelRetrieval, []float32{1, 0, 0})
	seedChunk(repo, "chunk-out", "vid-2", "slicing onions", entity.ChunkLevelRetrieval, []float32{1, 0, 0})

	recall := &fakeRecall{enabled: true, candidates: []string{"chunk-in"}}
	engine := NewEngine(queryEmbedder([]float64{1, 0, 0}), repo, recall, nil, DefaultScoringParams())

	results, err := engine.Search(context.Background(), SearchInput{TenantID: "tenant-1", Query: "dough"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	// 候选外的块不算余弦，只剩词法分，被分数下限过滤
	if len(results) != 1 || results[0].Chunk.ID != "chunk-in" {
		t.Fatalf("results = %+v, want only chunk-in", results)
	}
}

func TestEngineSearchRecallFailureFallsBack(t *testing.T) {
	repo := newFakeChunkRepo()
	seedChunk(repo, "chunk-a", "vid-1", "kneading dough", entity.ChunkLevelRetrieval, []float32{1, 0, 0})

	recall := &fakeRecall{enabled: true, searchErr: errors.New("milvus unavailable")}
	engine := NewEngine(queryEmbedder([]float64{1, 0, 0}), repo, recall, nil, DefaultScoringParams())

	results, err := engine.Search(context.Background(), SearchInput{TenantID: "tenant-1", Query: "dough"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1 (brute-force fallback)", len(results))
	}
	if results[0].VectorScore < 0.999 {
		t.Errorf("vector score = %v, want full cosine", results[0].VectorScore)
	}
}

func TestEngineStats(t *testing.T) {
	repo := newFakeChunkRepo()
	seedChunk(repo, "chunk-a", "vid-1", "one two three", entity.ChunkLevelRetrieval, nil)
	seedChunk(repo, "chunk-b", "vid-1", "four five", entity.ChunkLevelVideo, nil)

	engine := NewEngine(queryEmbedder([]float64{1}), repo, nil, nil, DefaultScoringParams())

	stats, err := engine.Stats(context.Background(), "tenant-1")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalChunks != 2 {
		t.Errorf("total = %d, want 2", stats.TotalChunks)
	}
	if stats.TotalWords != 5 {
		t.Errorf("words = %d, want 5", stats.TotalWords)
	}

	if _, err := engine.Stats(context.Background(), " "); err == nil {
		t.Error("expected error for empty tenant")
	}
}
