package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"creator-kb-api/internal/domain/entity"
	"creator-kb-api/internal/domain/repository"
	"creator-kb-api/internal/interfaces/http/dto"
)

type stubVideoRepo struct {
	videos map[string]*entity.Video
}

func (r *stubVideoRepo) Upsert(_ context.Context, video *entity.Video) error {
	r.videos[video.ID] = video
	return nil
}

func (r *stubVideoRepo) GetByID(_ context.Context, id string) (*entity.Video, error) {
	return r.videos[id], nil
}

func (r *stubVideoRepo) GetByPlatformID(_ context.Context, tenantID, platformID string) (*entity.Video, error) {
	for _, v := range r.videos {
		if v.TenantID == tenantID && v.PlatformID == platformID {
			return v, nil
		}
	}
	return nil, nil
}

func (r *stubVideoRepo) List(_ context.Context, tenantID string, _ *repository.VideoFilter, p repository.Pagination) (*repository.PagedResult[*entity.Video], error) {
	var items []*entity.Video
	for _, v := range r.videos {
		if v.TenantID == tenantID {
			items = append(items, v)
		}
	}
	return repository.NewPagedResult(items, int64(len(items)), p), nil
}

func (r *stubVideoRepo) MarkProcessed(_ context.Context, video *entity.Video) error {
	r.videos[video.ID] = video
	return nil
}

func (r *stubVideoRepo) Delete(_ context.Context, id string) error {
	delete(r.videos, id)
	return nil
}

type stubChunkRepo struct {
	byVideo map[string][]*entity.KnowledgeChunk
}

func (r *stubChunkRepo) ReplaceForVideo(_ context.Context, videoID string, chunks []*entity.KnowledgeChunk) error {
	r.byVideo[videoID] = chunks
	return nil
}

func (r *stubChunkRepo) ListByTenant(_ context.Context, _ string) ([]*entity.KnowledgeChunk, error) {
	return nil, nil
}

func (r *stubChunkRepo) ListByVideo(_ context.Context, videoID string) ([]*entity.KnowledgeChunk, error) {
	return r.byVideo[videoID], nil
}

func (r *stubChunkRepo) GetByID(_ context.Context, _ string) (*entity.KnowledgeChunk, error) {
	return nil, nil
}

func (r *stubChunkRepo) DeleteByVideo(_ context.Context, videoID string) error {
	delete(r.byVideo, videoID)
	return nil
}

func (r *stubChunkRepo) Stats(_ context.Context, _ string) (*repository.ChunkStats, error) {
	return &repository.ChunkStats{}, nil
}

func newVideoTestRouter(videos *stubVideoRepo, chunks *stubChunkRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		c.Set("tenant_id", "tenant-1")
		c.Next()
	})

	h := NewVideoHandler(videos, chunks, nil)
	group := engine.Group("/v1/videos")
	group.GET("/:vid", h.GetVideo)
	group.GET("/:vid/chunks", h.ListVideoChunks)
	return engine
}

func TestGetVideoBindsURIAndScopesTenant(t *testing.T) {
	videos := &stubVideoRepo{videos: map[string]*entity.Video{
		"vid-1": {ID: "vid-1", TenantID: "tenant-1", PlatformID: "p1", Title: "Episode 1"},
		"vid-2": {ID: "vid-2", TenantID: "tenant-other", PlatformID: "p2", Title: "Episode 2"},
	}}
	chunks := &stubChunkRepo{byVideo: make(map[string][]*entity.KnowledgeChunk)}
	engine := newVideoTestRouter(videos, chunks)

	// 本租户视频正常返回
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/videos/vid-1", nil)
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp dto.Response[dto.VideoResponse]
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Data.ID != "vid-1" || resp.Data.Title != "Episode 1" {
		t.Errorf("data = %+v", resp.Data)
	}

	// 其他租户的视频不可见
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/v1/videos/vid-2", nil)
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("cross-tenant status = %d, want 404", w.Code)
	}

	// 不存在的视频返回 404
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/v1/videos/missing", nil)
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing status = %d, want 404", w.Code)
	}
}

func TestListVideoChunksReturnsChunks(t *testing.T) {
	videos := &stubVideoRepo{videos: map[string]*entity.Video{
		"vid-1": {ID: "vid-1", TenantID: "tenant-1", PlatformID: "p1", URL: "https://videos.example.com/watch?v=p1"},
	}}
	chunks := &stubChunkRepo{byVideo: map[string][]*entity.KnowledgeChunk{
		"vid-1": {
			{ID: "c1", VideoID: "vid-1", TenantID: "tenant-1", Level: entity.ChunkLevelVideo, Text: "overview"},
			{ID: "c2", VideoID: "vid-1", TenantID: "tenant-1", Level: entity.ChunkLevelSection, Text: "details", ChunkIndex: 1},
		},
	}}
	engine := newVideoTestRouter(videos, chunks)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/videos/vid-1/chunks", nil)
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp dto.Response[dto.ChunkListResponse]
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Data.Chunks) != 2 {
		t.Fatalf("chunks = %d, want 2", len(resp.Data.Chunks))
	}
	if resp.Data.Chunks[0].Level != string(entity.ChunkLevelVideo) {
		t.Errorf("first chunk level = %s", resp.Data.Chunks[0].Level)
	}
}
