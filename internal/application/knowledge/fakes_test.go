package knowledge

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cloudwego/eino/components/embedding"

	"creator-kb-api/internal/domain/entity"
	"creator-kb-api/internal/domain/repository"
)

type fakeEmbedder struct {
	mu    sync.Mutex
	calls [][]string
	fn    func(texts []string) ([][]float64, error)
}

func (f *fakeEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	f.mu.Lock()
	f.calls = append(f.calls, texts)
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(texts)
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = hashVector(t)
	}
	return out, nil
}

// hashVector 根据文本生成确定性的伪向量，相同文本相同向量
func hashVector(text string) []float64 {
	v := make([]float64, 8)
	for i, r := range text {
		v[i%8] += float64(r%13) + 1
	}
	return v
}

type fakeChunkRepo struct {
	mu       sync.Mutex
	byVideo  map[string][]*entity.KnowledgeChunk
	replaces int
	listErr  error
}

func newFakeChunkRepo() *fakeChunkRepo {
	return &fakeChunkRepo{byVideo: make(map[string][]*entity.KnowledgeChunk)}
}

func (r *fakeChunkRepo) ReplaceForVideo(_ context.Context, videoID string, chunks []*entity.KnowledgeChunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replaces++
	r.byVideo[videoID] = append([]*entity.KnowledgeChunk(nil), chunks...)
	return nil
}

func (r *fakeChunkRepo) ListByTenant(_ context.Context, tenantID string) ([]*entity.KnowledgeChunk, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.KnowledgeChunk
	for _, chunks := range r.byVideo {
		for _, c := range chunks {
			if c.TenantID == tenantID {
				out = append(out, c)
			}
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (r *fakeChunkRepo) ListByVideo(_ context.Context, videoID string) ([]*entity.KnowledgeChunk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*entity.KnowledgeChunk(nil), r.byVideo[videoID]...), nil
}

func (r *fakeChunkRepo) GetByID(_ context.Context, id string) (*entity.KnowledgeChunk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, chunks := range r.byVideo {
		for _, c := range chunks {
			if c.ID == id {
				return c, nil
			}
		}
	}
	return nil, fmt.Errorf("chunk %s not found", id)
}

func (r *fakeChunkRepo) DeleteByVideo(_ context.Context, videoID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byVideo, videoID)
	return nil
}

func (r *fakeChunkRepo) Stats(_ context.Context, tenantID string) (*repository.ChunkStats, error) {
	chunks, _ := r.ListByTenant(context.Background(), tenantID)
	stats := &repository.ChunkStats{
		ChunksByLevel:        make(map[entity.ChunkLevel]int64),
		LanguageDistribution: make(map[string]int64),
	}
	var confSum float64
	for _, c := range chunks {
		stats.TotalChunks++
		stats.ChunksByLevel[c.Level]++
		stats.TotalWords += int64(c.WordCount())
		confSum += c.Confidence
		if c.Language != "" {
			stats.LanguageDistribution[c.Language]++
		}
	}
	if stats.TotalChunks > 0 {
		stats.AverageConfidence = confSum / float64(stats.TotalChunks)
	}
	return stats, nil
}

type fakeVideoRepo struct {
	mu      sync.Mutex
	videos  map[string]*entity.Video // key: tenantID/platformID
	deleted []string
	getErr  error
}

func newFakeVideoRepo() *fakeVideoRepo {
	return &fakeVideoRepo{videos: make(map[string]*entity.Video)}
}

func videoKey(tenantID, platformID string) string {
	return tenantID + "/" + platformID
}

func (r *fakeVideoRepo) Upsert(_ context.Context, video *entity.Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if video.ID == "" {
		video.ID = "vid-" + video.PlatformID
	}
	cp := *video
	r.videos[videoKey(video.TenantID, video.PlatformID)] = &cp
	return nil
}

func (r *fakeVideoRepo) GetByID(_ context.Context, id string) (*entity.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.videos {
		if v.ID == id {
			cp := *v
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("video %s not found", id)
}

// GetByPlatformID 与真实仓储同约定：不存在返回 nil, nil
func (r *fakeVideoRepo) GetByPlatformID(_ context.Context, tenantID, platformID string) (*entity.Video, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[videoKey(tenantID, platformID)]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (r *fakeVideoRepo) List(_ context.Context, tenantID string, _ *repository.VideoFilter, p repository.Pagination) (*repository.PagedResult[*entity.Video], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []*entity.Video
	for _, v := range r.videos {
		if v.TenantID == tenantID {
			cp := *v
			items = append(items, &cp)
		}
	}
	return repository.NewPagedResult(items, int64(len(items)), p), nil
}

func (r *fakeVideoRepo) MarkProcessed(_ context.Context, video *entity.Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *video
	r.videos[videoKey(video.TenantID, video.PlatformID)] = &cp
	return nil
}

func (r *fakeVideoRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range r.videos {
		if v.ID == id {
			delete(r.videos, k)
			r.deleted = append(r.deleted, id)
			return nil
		}
	}
	return nil
}

type fakeTransactor struct {
	calls int
}

func (t *fakeTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

type fakeTranscriptSource struct {
	transcripts map[string]*entity.Transcript
	errs        map[string]error
}

func (s *fakeTranscriptSource) GetTranscript(_ context.Context, videoID, _ string) (*entity.Transcript, error) {
	if err, ok := s.errs[videoID]; ok {
		return nil, err
	}
	if t, ok := s.transcripts[videoID]; ok {
		return t, nil
	}
	return nil, ErrNoTranscript
}

type fakeCatalogSource struct {
	videos []CatalogVideo
	err    error
}

func (s *fakeCatalogSource) ListVideos(_ context.Context, _ string) ([]CatalogVideo, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.videos, nil
}

type fakeSummaryProvider struct{}

func (fakeSummaryProvider) Summarize(_ context.Context, video *entity.Video, transcript *entity.Transcript) *entity.VideoSummary {
	sum := entity.FallbackSummary(video.ID, video.Title, video.Duration)
	sum.TopicSegments = []entity.TopicSegment{
		{StartTime: 0, EndTime: transcript.LastSegmentEnd(), Topic: "general", Keywords: []string{"general"}},
	}
	return sum
}

type fakeAnalyzer struct {
	mu       sync.Mutex
	calls    int
	videoIDs []string
	err      error
}

func (a *fakeAnalyzer) Analyze(_ context.Context, _, _ string, videoIDs []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	a.videoIDs = append([]string(nil), videoIDs...)
	return a.err
}

type fakeRecall struct {
	enabled   bool
	candidates []string
	searchErr error
	upserts   int
	deletes   int
}

func (r *fakeRecall) Enabled() bool                               { return r.enabled }
func (r *fakeRecall) EnsureCollection(context.Context) error      { return nil }
func (r *fakeRecall) SearchCandidates(_ context.Context, _ string, _ []float32, _ int) ([]string, error) {
	if r.searchErr != nil {
		return nil, r.searchErr
	}
	return r.candidates, nil
}
func (r *fakeRecall) UpsertChunks(_ context.Context, _ string, _ []*entity.KnowledgeChunk) error {
	r.upserts++
	return nil
}
func (r *fakeRecall) DeleteByVideo(_ context.Context, _, _ string) error {
	r.deletes++
	return nil
}

type fakeSearchCache struct {
	mu          sync.Mutex
	store       map[string][]HybridSearchResult
	invalidated int
}

func newFakeSearchCache() *fakeSearchCache {
	return &fakeSearchCache{store: make(map[string][]HybridSearchResult)}
}

func (c *fakeSearchCache) Get(_ context.Context, tenantID, key string) ([]HybridSearchResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.store[tenantID+"|"+key]
	return v, ok
}

func (c *fakeSearchCache) Set(_ context.Context, tenantID, key string, results []HybridSearchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[tenantID+"|"+key] = results
}

func (c *fakeSearchCache) InvalidateTenant(_ context.Context, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
	c.store = make(map[string][]HybridSearchResult)
	return nil
}

// makeTranscript 生成 0 到 total 秒、每段 step 秒的均匀字幕
func makeTranscript(videoID string, total, step float64, text string) *entity.Transcript {
	t := &entity.Transcript{VideoID: videoID, Language: "en"}
	for start := 0.0; start < total; start += step {
		end := start + step
		if end > total {
			end = total
		}
		t.Segments = append(t.Segments, entity.TranscriptSegment{
			Start:    start,
			End:      end,
			Duration: end - start,
			Text:     text,
		})
	}
	return t
}
