package knowledge

import (
	"context"
	"errors"
	"sync"
	"testing"

	"creator-kb-api/internal/domain/entity"
)

func makeChunks(n int) []*entity.KnowledgeChunk {
	out := make([]*entity.KnowledgeChunk, n)
	for i := range out {
		out[i] = &entity.KnowledgeChunk{
			ID:         ChunkID("vid-1", entity.ChunkLevelRetrieval, i),
			VideoTitle: "Some video",
			Text:       "segment text",
		}
	}
	return out
}

type countingPacer struct {
	mu    sync.Mutex
	waits []string
}

func (p *countingPacer) Wait(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.waits = append(p.waits, key)
	return nil
}

func TestEmbedChunksBatches(t *testing.T) {
	embedder := &fakeEmbedder{}
	pacer := &countingPacer{}
	e := NewChunkEmbedder(embedder, pacer, 50)

	chunks := makeChunks(120)
	failures, err := e.EmbedChunks(context.Background(), chunks)
	if err != nil {
		t.Fatalf("EmbedChunks: %v", err)
	}
	if len(failures) != 0 {
		t.Errorf("failures = %v", failures)
	}
	// 120 块按 50 一批：3 批
	if got := len(embedder.calls); got != 3 {
		t.Errorf("batches = %d, want 3", got)
	}
	if len(embedder.calls[0]) != 50 || len(embedder.calls[2]) != 20 {
		t.Errorf("batch sizes = %d/%d/%d", len(embedder.calls[0]), len(embedder.calls[1]), len(embedder.calls[2]))
	}
	// 首批前不节流，后续每批前节流一次
	if len(pacer.waits) != 2 {
		t.Errorf("pacer waits = %v, want 2", pacer.waits)
	}
	for _, c := range chunks {
		if !c.HasEmbedding() {
			t.Fatal("chunk missing embedding after successful run")
		}
	}
}

func TestEmbedChunksPartialFailure(t *testing.T) {
	call := 0
	embedder := &fakeEmbedder{fn: func(texts []string) ([][]float64, error) {
		call++
		if call == 2 {
			return nil, errors.New("transient upstream error")
		}
		out := make([][]float64, len(texts))
		for i := range texts {
			out[i] = []float64{1, 2, 3}
		}
		return out, nil
	}}
	e := NewChunkEmbedder(embedder, nil, 10)

	chunks := makeChunks(30)
	failures, err := e.EmbedChunks(context.Background(), chunks)
	if err != nil {
		t.Fatalf("EmbedChunks: %v", err)
	}
	if len(failures) != 1 {
		t.Fatalf("failures = %v, want 1", failures)
	}
	// 失败批次的块无向量，其余批次正常
	for i, c := range chunks {
		want := i < 10 || i >= 20
		if c.HasEmbedding() != want {
			t.Errorf("chunk %d embedding presence = %v, want %v", i, c.HasEmbedding(), want)
		}
	}
}

func TestEmbedChunksQuotaErrorPropagates(t *testing.T) {
	embedder := &fakeEmbedder{fn: func([]string) ([][]float64, error) {
		return nil, errors.New("insufficient_quota")
	}}
	e := NewChunkEmbedder(embedder, nil, 10)

	_, err := e.EmbedChunks(context.Background(), makeChunks(5))
	if err == nil {
		t.Fatal("expected quota error to propagate")
	}
	if !IsQuotaExhausted(err) {
		t.Errorf("err = %v, not recognized as quota", err)
	}
}

func TestEmbedChunksLengthMismatch(t *testing.T) {
	embedder := &fakeEmbedder{fn: func(texts []string) ([][]float64, error) {
		return [][]float64{{1}}, nil
	}}
	e := NewChunkEmbedder(embedder, nil, 10)

	failures, err := e.EmbedChunks(context.Background(), makeChunks(3))
	if err != nil {
		t.Fatalf("EmbedChunks: %v", err)
	}
	if len(failures) != 1 {
		t.Errorf("failures = %v, want length mismatch recorded", failures)
	}
}

func TestEmbedChunksEmptyInput(t *testing.T) {
	e := NewChunkEmbedder(&fakeEmbedder{}, nil, 10)
	failures, err := e.EmbedChunks(context.Background(), nil)
	if err != nil || failures != nil {
		t.Errorf("EmbedChunks(nil) = %v, %v", failures, err)
	}
}

func TestEmbedTextIncludesTitle(t *testing.T) {
	c := &entity.KnowledgeChunk{VideoTitle: "Pasta 101", Text: "boiling water"}
	if got := embedText(c); got != "Pasta 101: boiling water" {
		t.Errorf("embedText = %q", got)
	}
	c.VideoTitle = "  "
	if got := embedText(c); got != "boiling water" {
		t.Errorf("embedText without title = %q", got)
	}
}
