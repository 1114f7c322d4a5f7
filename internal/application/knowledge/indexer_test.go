package knowledge

import (
	"context"
	"testing"

	"creator-kb-api/internal/domain/entity"
)

func TestIndexWriterWriteVideo(t *testing.T) {
	videos := newFakeVideoRepo()
	chunks := newFakeChunkRepo()
	tx := &fakeTransactor{}
	cache := newFakeSearchCache()
	recall := &fakeRecall{enabled: true}

	video := testVideo()
	if err := videos.Upsert(context.Background(), video); err != nil {
		t.Fatal(err)
	}

	set := []*entity.KnowledgeChunk{
		{ID: ChunkID(video.ID, entity.ChunkLevelVideo, 0), TenantID: video.TenantID, VideoID: video.ID, Level: entity.ChunkLevelVideo, Text: "overview"},
		{ID: ChunkID(video.ID, entity.ChunkLevelRetrieval, 0), TenantID: video.TenantID, VideoID: video.ID, Level: entity.ChunkLevelRetrieval, Text: "detail"},
	}
	set[1].SetEmbedding([]float32{1, 2, 3})

	w := NewIndexWriter(videos, chunks, tx, recall, cache)
	if err := w.WriteVideo(context.Background(), video, set); err != nil {
		t.Fatalf("WriteVideo: %v", err)
	}

	if tx.calls != 1 {
		t.Errorf("transaction calls = %d, want 1", tx.calls)
	}
	if !video.Processed || video.ProcessedAt == nil {
		t.Error("video not marked processed")
	}
	stored, _ := chunks.ListByVideo(context.Background(), video.ID)
	if len(stored) != 2 {
		t.Errorf("stored chunks = %d, want 2", len(stored))
	}
	// 只有带向量的 retrieval 层块进入候选召回镜像
	if recall.upserts != 1 {
		t.Errorf("recall upserts = %d, want 1", recall.upserts)
	}
	if cache.invalidated != 1 {
		t.Errorf("cache invalidations = %d, want 1", cache.invalidated)
	}
}

func TestIndexWriterRewriteReplacesChunkSet(t *testing.T) {
	videos := newFakeVideoRepo()
	chunks := newFakeChunkRepo()
	video := testVideo()
	_ = videos.Upsert(context.Background(), video)

	w := NewIndexWriter(videos, chunks, &fakeTransactor{}, nil, nil)

	first := []*entity.KnowledgeChunk{
		{ID: "c1", TenantID: video.TenantID, VideoID: video.ID, Text: "old a"},
		{ID: "c2", TenantID: video.TenantID, VideoID: video.ID, Text: "old b"},
		{ID: "c3", TenantID: video.TenantID, VideoID: video.ID, Text: "old c"},
	}
	if err := w.WriteVideo(context.Background(), video, first); err != nil {
		t.Fatal(err)
	}

	second := []*entity.KnowledgeChunk{
		{ID: "c1", TenantID: video.TenantID, VideoID: video.ID, Text: "new a"},
	}
	if err := w.WriteVideo(context.Background(), video, second); err != nil {
		t.Fatal(err)
	}

	stored, _ := chunks.ListByVideo(context.Background(), video.ID)
	if len(stored) != 1 {
		t.Fatalf("stored chunks = %d, want old set fully replaced", len(stored))
	}
	if stored[0].Text != "new a" {
		t.Errorf("chunk text = %q", stored[0].Text)
	}
}

func TestIndexWriterDeleteVideo(t *testing.T) {
	videos := newFakeVideoRepo()
	chunks := newFakeChunkRepo()
	recall := &fakeRecall{enabled: true}
	video := testVideo()
	_ = videos.Upsert(context.Background(), video)

	w := NewIndexWriter(videos, chunks, &fakeTransactor{}, recall, nil)
	set := []*entity.KnowledgeChunk{{ID: "c1", TenantID: video.TenantID, VideoID: video.ID, Text: "x"}}
	if err := w.WriteVideo(context.Background(), video, set); err != nil {
		t.Fatal(err)
	}

	if err := w.DeleteVideo(context.Background(), video); err != nil {
		t.Fatalf("DeleteVideo: %v", err)
	}
	if stored, _ := chunks.ListByVideo(context.Background(), video.ID); len(stored) != 0 {
		t.Errorf("chunks remain after delete: %d", len(stored))
	}
	if _, err := videos.GetByID(context.Background(), video.ID); err == nil {
		t.Error("video remains after delete")
	}
	if recall.deletes == 0 {
		t.Error("candidate mirror not cleared")
	}
}

func TestIndexWriterNilVideo(t *testing.T) {
	w := NewIndexWriter(newFakeVideoRepo(), newFakeChunkRepo(), nil, nil, nil)
	if err := w.WriteVideo(context.Background(), nil, nil); err == nil {
		t.Error("expected error for nil video")
	}
	if err := w.DeleteVideo(context.Background(), nil); err == nil {
		t.Error("expected error for nil video")
	}
}
