package knowledge

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"creator-kb-api/internal/domain/entity"
)

// chunkNamespace 知识块 ID 的 UUIDv5 命名空间。
// ID 只由 (videoID, level, index) 决定，重建索引得到完全相同的 ID 集合。
var chunkNamespace = uuid.MustParse("7a9c5c2e-4b1d-4f3a-9d60-8e2f1c6b5a04")

// ChunkID 生成确定性的知识块 ID
func ChunkID(videoID string, level entity.ChunkLevel, index int) string {
	name := fmt.Sprintf("%s/%s/%d", videoID, level, index)
	return uuid.NewSHA1(chunkNamespace, []byte(name)).String()
}

// Builder 把 (视频, 字幕, 摘要) 转换为三层知识块。
// 三层设计：video 层承接“这个视频讲了什么”类查询；section 层平衡上下文与噪声；
// retrieval 层提供足以“跳转到此刻”的时间精度。窗口重叠避免句子跨界后两边都检索不到。
type Builder struct {
	params ChunkingParams
}

// NewBuilder 创建切块器
func NewBuilder(params ChunkingParams) *Builder {
	return &Builder{params: params.normalized()}
}

// Build 生成一个视频的全部知识块，按 video -> section -> retrieval 顺序返回。
// 空字幕只产出 video 层块（仍承载标题与摘要语义）。
func (b *Builder) Build(video *entity.Video, transcript *entity.Transcript, summary *entity.VideoSummary) []*entity.KnowledgeChunk {
	if video == nil {
		return nil
	}

	language := video.Language
	if transcript != nil && transcript.Language != "" {
		language = transcript.Language
	}

	chunks := make([]*entity.KnowledgeChunk, 0, 16)

	videoChunk := b.buildVideoChunk(video, transcript, summary, language)
	chunks = append(chunks, videoChunk)

	if transcript == nil || len(transcript.Segments) == 0 {
		return chunks
	}

	sections := b.buildWindowChunks(video, transcript, summary, entity.ChunkLevelSection, language)
	for _, sec := range sections {
		sec.ParentChunkID = videoChunk.ID
	}
	chunks = append(chunks, sections...)

	retrievals := b.buildWindowChunks(video, transcript, summary, entity.ChunkLevelRetrieval, language)
	for _, rc := range retrievals {
		rc.ParentChunkID = enclosingChunkID(sections, rc)
	}
	chunks = append(chunks, retrievals...)

	return chunks
}

// buildVideoChunk 生成覆盖整个视频的单个粗粒度块
func (b *Builder) buildVideoChunk(video *entity.Video, transcript *entity.Transcript, summary *entity.VideoSummary, language string) *entity.KnowledgeChunk {
	title := strings.TrimSpace(video.Title)
	overall := ""
	var topics []string
	var keywords []string
	if summary != nil {
		overall = strings.TrimSpace(summary.OverallSummary)
		topics = summary.TopicList()
		keywords = summary.Keywords
	}

	text := fmt.Sprintf("%s. %s. Main topics: %s.", title, overall, strings.Join(topics, ", "))

	end := video.Duration
	if end <= 0 {
		end = transcript.LastSegmentEnd()
	}

	return &entity.KnowledgeChunk{
		ID:         ChunkID(video.ID, entity.ChunkLevelVideo, 0),
		TenantID:   video.TenantID,
		VideoID:    video.ID,
		VideoTitle: video.Title,
		VideoURL:   video.URL,
		Level:      entity.ChunkLevelVideo,
		ChunkIndex: 0,
		StartTime:  0,
		EndTime:    end,
		Text:       text,
		Keywords:   keywords,
		Topics:     topics,
		Confidence: confidenceVideo,
		Language:   language,
	}
}

// buildWindowChunks 以固定时长滑动窗口切块。
// 窗口步长 = 窗口时长 * (1 - 重叠比例)；窗口起点到达最后一个片段结束即停止；
// 某个窗口内没有任何完整落入的片段时终止循环（处理尾部空洞）。
func (b *Builder) buildWindowChunks(video *entity.Video, transcript *entity.Transcript, summary *entity.VideoSummary, level entity.ChunkLevel, language string) []*entity.KnowledgeChunk {
	window := b.params.SectionWindowSeconds
	confidence := confidenceSection
	if level == entity.ChunkLevelRetrieval {
		window = b.params.RetrievalWindowSeconds
		confidence = confidenceRetrieval
	}
	step := window * (1 - b.params.OverlapFraction)
	lastEnd := transcript.LastSegmentEnd()

	chunks := make([]*entity.KnowledgeChunk, 0, int(lastEnd/step)+1)
	index := 0
	for start := 0.0; start < lastEnd; start += step {
		end := start + window

		text := collectSegmentText(transcript.Segments, start, end)
		if text == "" {
			break
		}

		spanEnd := end
		if spanEnd > lastEnd {
			spanEnd = lastEnd
		}

		chunk := &entity.KnowledgeChunk{
			ID:         ChunkID(video.ID, level, index),
			TenantID:   video.TenantID,
			VideoID:    video.ID,
			VideoTitle: video.Title,
			VideoURL:   video.URL,
			Level:      level,
			ChunkIndex: index,
			StartTime:  start,
			EndTime:    spanEnd,
			Text:       text,
			Confidence: confidence,
			Language:   language,
		}

		if level == entity.ChunkLevelSection {
			// section 层继承 AI 主题分段的标签；retrieval 层基于块内文本本地提取
			if topic, ok := summary.TopicFor(start, end); ok {
				chunk.Topics = []string{topic.Topic}
				chunk.Keywords = topic.Keywords
			}
		} else {
			chunk.Keywords = extractKeywords(text, b.params.MaxKeywords)
		}

		chunks = append(chunks, chunk)
		index++
	}
	return chunks
}

// collectSegmentText 拼接完整落在 [start, end] 内的片段文本
func collectSegmentText(segments []entity.TranscriptSegment, start, end float64) string {
	parts := make([]string, 0, 8)
	for _, seg := range segments {
		if seg.Start >= start && seg.End <= end {
			if s := strings.TrimSpace(seg.Text); s != "" {
				parts = append(parts, s)
			}
		}
	}
	return strings.Join(parts, " ")
}

// enclosingChunkID 返回与给定块时间重叠最多的上层块 ID
func enclosingChunkID(parents []*entity.KnowledgeChunk, chunk *entity.KnowledgeChunk) string {
	bestID := ""
	bestOverlap := 0.0
	for _, p := range parents {
		overlap := overlapSeconds(p.StartTime, p.EndTime, chunk.StartTime, chunk.EndTime)
		if overlap > bestOverlap {
			bestOverlap = overlap
			bestID = p.ID
		}
	}
	return bestID
}

// overlapSeconds 计算两个时间区间的重叠秒数
func overlapSeconds(aStart, aEnd, bStart, bEnd float64) float64 {
	start := aStart
	if bStart > start {
		start = bStart
	}
	end := aEnd
	if bEnd < end {
		end = bEnd
	}
	if end <= start {
		return 0
	}
	return end - start
}
