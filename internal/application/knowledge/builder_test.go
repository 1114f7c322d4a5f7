package knowledge

import (
	"strings"
	"testing"

	"creator-kb-api/internal/domain/entity"
)

func testVideo() *entity.Video {
	return &entity.Video{
		ID:       "vid-1",
		TenantID: "tenant-1",
		Title:    "Cooking pasta at home",
		URL:      "https://videos.example.com/watch?v=abc",
		Duration: 1200,
		Language: "en",
	}
}

func testSummary(video *entity.Video) *entity.VideoSummary {
	return &entity.VideoSummary{
		VideoID:        video.ID,
		Title:          video.Title,
		OverallSummary: "How to cook pasta from scratch",
		Duration:       video.Duration,
		Keywords:       []string{"pasta", "cooking"},
		TopicSegments: []entity.TopicSegment{
			{StartTime: 0, EndTime: 700, Topic: "ingredients", Keywords: []string{"flour", "eggs"}},
			{StartTime: 700, EndTime: 1200, Topic: "boiling", Keywords: []string{"water", "salt"}},
		},
	}
}

func TestBuilderThreeLevels(t *testing.T) {
	video := testVideo()
	transcript := makeTranscript(video.ID, 1200, 10, "rolling the pasta dough evenly")
	summary := testSummary(video)

	b := NewBuilder(DefaultChunkingParams())
	chunks := b.Build(video, transcript, summary)

	byLevel := map[entity.ChunkLevel][]*entity.KnowledgeChunk{}
	for _, c := range chunks {
		byLevel[c.Level] = append(byLevel[c.Level], c)
	}

	if got := len(byLevel[entity.ChunkLevelVideo]); got != 1 {
		t.Fatalf("video chunks = %d, want 1", got)
	}
	// 1200s，600s 窗口，步长 510：起点 0/510/1020
	if got := len(byLevel[entity.ChunkLevelSection]); got != 3 {
		t.Fatalf("section chunks = %d, want 3", got)
	}
	// 180s 窗口，步长 153：起点 0..1071
	if got := len(byLevel[entity.ChunkLevelRetrieval]); got != 8 {
		t.Fatalf("retrieval chunks = %d, want 8", got)
	}

	videoChunk := byLevel[entity.ChunkLevelVideo][0]
	if !strings.Contains(videoChunk.Text, video.Title) {
		t.Errorf("video chunk text missing title: %q", videoChunk.Text)
	}
	if !strings.Contains(videoChunk.Text, "ingredients") {
		t.Errorf("video chunk text missing topics: %q", videoChunk.Text)
	}
	if videoChunk.StartTime != 0 || videoChunk.EndTime != 1200 {
		t.Errorf("video chunk span = [%v, %v], want [0, 1200]", videoChunk.StartTime, videoChunk.EndTime)
	}
	if videoChunk.Confidence != confidenceVideo {
		t.Errorf("video chunk confidence = %v", videoChunk.Confidence)
	}

	for _, sec := range byLevel[entity.ChunkLevelSection] {
		if sec.ParentChunkID != videoChunk.ID {
			t.Errorf("section %d parent = %q, want video chunk", sec.ChunkIndex, sec.ParentChunkID)
		}
		if sec.EndTime > 1200 {
			t.Errorf("section %d end %v exceeds transcript end", sec.ChunkIndex, sec.EndTime)
		}
		if sec.Confidence != confidenceSection {
			t.Errorf("section confidence = %v", sec.Confidence)
		}
	}

	sectionIDs := map[string]bool{}
	for _, sec := range byLevel[entity.ChunkLevelSection] {
		sectionIDs[sec.ID] = true
	}
	for _, rc := range byLevel[entity.ChunkLevelRetrieval] {
		if !sectionIDs[rc.ParentChunkID] {
			t.Errorf("retrieval %d parent %q is not a section chunk", rc.ChunkIndex, rc.ParentChunkID)
		}
		if rc.Text == "" {
			t.Errorf("retrieval %d has empty text", rc.ChunkIndex)
		}
		if len(rc.Keywords) == 0 {
			t.Errorf("retrieval %d has no keywords", rc.ChunkIndex)
		}
	}

	// 第一个 section 落在第一个主题分段内，继承 AI 关键词
	first := byLevel[entity.ChunkLevelSection][0]
	if len(first.Topics) != 1 || first.Topics[0] != "ingredients" {
		t.Errorf("first section topics = %v", first.Topics)
	}
}

func TestBuilderDeterministicIDs(t *testing.T) {
	video := testVideo()
	transcript := makeTranscript(video.ID, 1200, 10, "some spoken text here")
	summary := testSummary(video)

	b := NewBuilder(DefaultChunkingParams())
	first := b.Build(video, transcript, summary)
	second := b.Build(video, transcript, summary)

	if len(first) != len(second) {
		t.Fatalf("rebuild produced %d chunks, want %d", len(second), len(first))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("chunk %d id changed on rebuild: %s vs %s", i, first[i].ID, second[i].ID)
		}
	}

	seen := map[string]bool{}
	for _, c := range first {
		if seen[c.ID] {
			t.Errorf("duplicate chunk id %s", c.ID)
		}
		seen[c.ID] = true
	}
}

func TestBuilderEmptyTranscript(t *testing.T) {
	video := testVideo()
	b := NewBuilder(DefaultChunkingParams())

	chunks := b.Build(video, &entity.Transcript{VideoID: video.ID}, testSummary(video))
	if len(chunks) != 1 {
		t.Fatalf("chunks = %d, want only the video chunk", len(chunks))
	}
	if chunks[0].Level != entity.ChunkLevelVideo {
		t.Errorf("level = %s, want video", chunks[0].Level)
	}

	if got := b.Build(video, nil, nil); len(got) != 1 {
		t.Errorf("nil transcript chunks = %d, want 1", len(got))
	}
}

func TestBuilderShortVideo(t *testing.T) {
	video := testVideo()
	video.Duration = 120
	transcript := makeTranscript(video.ID, 120, 10, "short clip content")

	b := NewBuilder(DefaultChunkingParams())
	chunks := b.Build(video, transcript, nil)

	// 视频比两种窗口都短：每层各 1 块
	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(chunks))
	}
	for _, c := range chunks[1:] {
		if c.EndTime != 120 {
			t.Errorf("%s chunk end = %v, want clipped to 120", c.Level, c.EndTime)
		}
	}
}

func TestChunkIDDistinctAcrossLevels(t *testing.T) {
	a := ChunkID("vid-1", entity.ChunkLevelSection, 0)
	b := ChunkID("vid-1", entity.ChunkLevelRetrieval, 0)
	c := ChunkID("vid-2", entity.ChunkLevelSection, 0)
	if a == b || a == c {
		t.Errorf("chunk ids collide: %s %s %s", a, b, c)
	}
	if a != ChunkID("vid-1", entity.ChunkLevelSection, 0) {
		t.Error("chunk id not deterministic")
	}
}
