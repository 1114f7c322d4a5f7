package knowledge

import (
	"context"
	"errors"
	"testing"
	"time"

	"creator-kb-api/internal/domain/entity"
)

type orchFixture struct {
	catalog     *fakeCatalogSource
	transcripts *fakeTranscriptSource
	videos      *fakeVideoRepo
	chunks      *fakeChunkRepo
	embedder    *fakeEmbedder
	analyzer    *fakeAnalyzer
	orch        *Orchestrator
}

func newOrchFixture() *orchFixture {
	f := &orchFixture{
		catalog: &fakeCatalogSource{},
		transcripts: &fakeTranscriptSource{
			transcripts: make(map[string]*entity.Transcript),
			errs:        make(map[string]error),
		},
		videos:   newFakeVideoRepo(),
		chunks:   newFakeChunkRepo(),
		embedder: &fakeEmbedder{},
		analyzer: &fakeAnalyzer{},
	}
	writer := NewIndexWriter(f.videos, f.chunks, &fakeTransactor{}, nil, nil)
	f.orch = NewOrchestrator(
		f.catalog,
		f.transcripts,
		fakeSummaryProvider{},
		NewBuilder(DefaultChunkingParams()),
		NewChunkEmbedder(f.embedder, nil, 0),
		writer,
		f.videos,
		f.analyzer,
		NopPacer{},
		OrchestratorConfig{},
	)
	return f
}

func (f *orchFixture) addVideo(platformID string, duration float64, publishedAt time.Time) {
	f.catalog.videos = append(f.catalog.videos, CatalogVideo{
		PlatformID:  platformID,
		Title:       "Episode " + platformID,
		URL:         "https://videos.example.com/watch?v=" + platformID,
		Duration:    duration,
		Language:    "en",
		PublishedAt: publishedAt,
	})
	f.transcripts.transcripts[platformID] = makeTranscript(platformID, duration, 10, "talking about making pasta")
}

func TestProcessCatalogHappyPath(t *testing.T) {
	f := newOrchFixture()
	now := time.Now()
	f.addVideo("v1", 600, now.Add(-time.Hour))
	f.addVideo("v2", 900, now)

	report, err := f.orch.ProcessCatalog(context.Background(), IngestInput{TenantID: "tenant-1", CreatorID: "creator-1"})
	if err != nil {
		t.Fatalf("ProcessCatalog: %v", err)
	}
	if report.Candidates != 2 || report.Processed != 2 || report.Failed != 0 || report.Skipped != 0 {
		t.Fatalf("report = %+v", report)
	}
	if report.QuotaLimited {
		t.Error("quota limited on healthy run")
	}
	if report.ChunksTotal == 0 {
		t.Error("no chunks indexed")
	}

	for _, id := range []string{"v1", "v2"} {
		v, err := f.videos.GetByPlatformID(context.Background(), "tenant-1", id)
		if err != nil || v == nil {
			t.Fatalf("video %s not stored: %v", id, err)
		}
		if !v.Processed || v.ProcessedAt == nil {
			t.Errorf("video %s not marked processed", id)
		}
		if v.Summary == nil {
			t.Errorf("video %s missing summary", id)
		}
		chunks, _ := f.chunks.ListByVideo(context.Background(), v.ID)
		if len(chunks) == 0 {
			t.Errorf("video %s has no chunks", id)
		}
	}

	if f.analyzer.calls != 1 || len(f.analyzer.videoIDs) != 2 {
		t.Errorf("analyzer calls = %d, ids = %v", f.analyzer.calls, f.analyzer.videoIDs)
	}
}

func TestProcessCatalogFiltersCandidates(t *testing.T) {
	f := newOrchFixture()
	now := time.Now()
	f.addVideo("keep", 600, now)

	// 过短、过长、标题非对话内容：都不进入候选
	f.catalog.videos = append(f.catalog.videos,
		CatalogVideo{PlatformID: "short", Duration: 5, Title: "Clip", PublishedAt: now},
		CatalogVideo{PlatformID: "long", Duration: 9000, Title: "Marathon", PublishedAt: now},
		CatalogVideo{PlatformID: "music", Duration: 300, Title: "My Song (Official Music Video)", PublishedAt: now},
	)

	report, err := f.orch.ProcessCatalog(context.Background(), IngestInput{TenantID: "tenant-1", CreatorID: "creator-1"})
	if err != nil {
		t.Fatalf("ProcessCatalog: %v", err)
	}
	if report.Candidates != 1 || report.Processed != 1 {
		t.Errorf("report = %+v, want 1 candidate processed", report)
	}
}

func TestProcessCatalogMaxVideosNewestFirst(t *testing.T) {
	f := newOrchFixture()
	base := time.Now()
	f.addVideo("old", 600, base.Add(-48*time.Hour))
	f.addVideo("mid", 600, base.Add(-24*time.Hour))
	f.addVideo("new", 600, base)

	report, err := f.orch.ProcessCatalog(context.Background(), IngestInput{
		TenantID: "tenant-1", CreatorID: "creator-1", MaxVideos: 2,
	})
	if err != nil {
		t.Fatalf("ProcessCatalog: %v", err)
	}
	if report.Candidates != 2 || report.Processed != 2 {
		t.Fatalf("report = %+v", report)
	}

	if v, _ := f.videos.GetByPlatformID(context.Background(), "tenant-1", "old"); v != nil {
		t.Error("oldest video should be cut by max videos")
	}
	if v, _ := f.videos.GetByPlatformID(context.Background(), "tenant-1", "new"); v == nil {
		t.Error("newest video should be processed")
	}
}

func TestProcessCatalogSkipsMissingTranscript(t *testing.T) {
	f := newOrchFixture()
	now := time.Now()
	f.addVideo("ok", 600, now)
	f.catalog.videos = append(f.catalog.videos, CatalogVideo{
		PlatformID: "silent", Title: "Episode silent", Duration: 600, PublishedAt: now,
	})

	report, err := f.orch.ProcessCatalog(context.Background(), IngestInput{TenantID: "tenant-1", CreatorID: "creator-1"})
	if err != nil {
		t.Fatalf("ProcessCatalog: %v", err)
	}
	if report.Processed != 1 || report.Skipped != 1 || report.Failed != 0 {
		t.Errorf("report = %+v, want 1 processed 1 skipped", report)
	}
}

func TestProcessCatalogSkipsProcessedUnlessForced(t *testing.T) {
	f := newOrchFixture()
	f.addVideo("v1", 600, time.Now())

	in := IngestInput{TenantID: "tenant-1", CreatorID: "creator-1"}
	if _, err := f.orch.ProcessCatalog(context.Background(), in); err != nil {
		t.Fatalf("first run: %v", err)
	}

	report, err := f.orch.ProcessCatalog(context.Background(), in)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if report.Skipped != 1 || report.Processed != 0 {
		t.Errorf("rerun report = %+v, want skip", report)
	}

	in.Force = true
	report, err = f.orch.ProcessCatalog(context.Background(), in)
	if err != nil {
		t.Fatalf("forced run: %v", err)
	}
	if report.Processed != 1 {
		t.Errorf("forced report = %+v, want reprocess", report)
	}
	if f.chunks.replaces != 2 {
		t.Errorf("chunk replaces = %d, want 2 (initial + forced)", f.chunks.replaces)
	}
}

func TestProcessCatalogQuotaHaltsRun(t *testing.T) {
	f := newOrchFixture()
	now := time.Now()
	f.addVideo("v1", 600, now)
	f.addVideo("v2", 600, now.Add(-time.Hour))
	f.addVideo("v3", 600, now.Add(-2*time.Hour))
	f.embedder.fn = func([]string) ([][]float64, error) {
		return nil, errors.New("upstream returned 429")
	}

	report, err := f.orch.ProcessCatalog(context.Background(), IngestInput{TenantID: "tenant-1", CreatorID: "creator-1"})
	if err != nil {
		t.Fatalf("ProcessCatalog: %v", err)
	}
	if !report.QuotaLimited {
		t.Fatal("quota limit not reported")
	}
	// 第一个视频触发配额错误后立即停止，剩余视频不再处理
	if report.Failed != 1 || report.Processed != 0 {
		t.Errorf("report = %+v, want exactly one failure", report)
	}
	if len(f.embedder.calls) != 1 {
		t.Errorf("embedder calls = %d, want 1", len(f.embedder.calls))
	}
	if f.analyzer.calls != 0 {
		t.Error("analyzer should not run after quota halt")
	}
}

func TestProcessCatalogContinuesAfterVideoFailure(t *testing.T) {
	f := newOrchFixture()
	now := time.Now()
	f.addVideo("v1", 600, now)
	f.addVideo("v2", 600, now.Add(-time.Hour))
	f.transcripts.errs["v1"] = errors.New("transcript service exploded")

	report, err := f.orch.ProcessCatalog(context.Background(), IngestInput{TenantID: "tenant-1", CreatorID: "creator-1"})
	if err != nil {
		t.Fatalf("ProcessCatalog: %v", err)
	}
	if report.Failed != 1 || report.Processed != 1 {
		t.Errorf("report = %+v, want 1 failed 1 processed", report)
	}
	if len(report.Errors) != 1 {
		t.Errorf("errors = %v", report.Errors)
	}
}

func TestProcessCatalogVideoLookupFailure(t *testing.T) {
	f := newOrchFixture()
	f.addVideo("v1", 600, time.Now())
	f.videos.getErr = errors.New("connection reset by peer")

	report, err := f.orch.ProcessCatalog(context.Background(), IngestInput{TenantID: "tenant-1", CreatorID: "creator-1"})
	if err != nil {
		t.Fatalf("ProcessCatalog: %v", err)
	}
	// 查询故障不能被当作"视频不存在"走建库流程
	if report.Failed != 1 || report.Processed != 0 {
		t.Errorf("report = %+v, want lookup failure recorded", report)
	}
	if len(report.Errors) != 1 {
		t.Fatalf("errors = %v", report.Errors)
	}
	if f.chunks.replaces != 0 {
		t.Errorf("chunk replaces = %d, want none after lookup failure", f.chunks.replaces)
	}
	if len(f.videos.videos) != 0 {
		t.Error("video row should not be created when the lookup itself failed")
	}
}

func TestProcessCatalogAnalyzerFailureIsNonFatal(t *testing.T) {
	f := newOrchFixture()
	f.addVideo("v1", 600, time.Now())
	f.analyzer.err = errors.New("analysis queue down")

	report, err := f.orch.ProcessCatalog(context.Background(), IngestInput{TenantID: "tenant-1", CreatorID: "creator-1"})
	if err != nil {
		t.Fatalf("ProcessCatalog: %v", err)
	}
	if report.Processed != 1 {
		t.Errorf("report = %+v", report)
	}
}

func TestProcessCatalogCancellation(t *testing.T) {
	f := newOrchFixture()
	f.addVideo("v1", 600, time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := f.orch.ProcessCatalog(ctx, IngestInput{TenantID: "tenant-1", CreatorID: "creator-1"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if report == nil || report.Processed != 0 {
		t.Errorf("report = %+v", report)
	}
}

func TestProcessCatalogValidation(t *testing.T) {
	f := newOrchFixture()
	if _, err := f.orch.ProcessCatalog(context.Background(), IngestInput{CreatorID: "c"}); err == nil {
		t.Error("expected error for missing tenant")
	}
	if _, err := f.orch.ProcessCatalog(context.Background(), IngestInput{TenantID: "t"}); err == nil {
		t.Error("expected error for missing creator")
	}
}

func TestProcessCatalogListError(t *testing.T) {
	f := newOrchFixture()
	f.catalog.err = errors.New("platform api down")
	if _, err := f.orch.ProcessCatalog(context.Background(), IngestInput{TenantID: "t", CreatorID: "c"}); err == nil {
		t.Error("expected hard error when catalog listing fails")
	}
}
