// Package entity 定义领域实体
package entity

import (
	"strings"
)

// TranscriptSegment 字幕片段，由外部字幕源产出，按 start 升序排列
type TranscriptSegment struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
}

// Transcript 一个视频的完整字幕
type Transcript struct {
	VideoID    string              `json:"video_id"`
	Language   string              `json:"language"`
	ObtainedVia string             `json:"obtained_via,omitempty"`
	Segments   []TranscriptSegment `json:"segments"`
}

// LastSegmentEnd 返回最后一个片段的结束时间，空字幕返回 0
func (t *Transcript) LastSegmentEnd() float64 {
	if t == nil || len(t.Segments) == 0 {
		return 0
	}
	return t.Segments[len(t.Segments)-1].End
}

// FullText 拼接全部片段文本
func (t *Transcript) FullText() string {
	if t == nil {
		return ""
	}
	parts := make([]string, 0, len(t.Segments))
	for _, seg := range t.Segments {
		if s := strings.TrimSpace(seg.Text); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// TopicSegment 视频的粗粒度主题分段，只作为切块元数据，不直接参与检索
type TopicSegment struct {
	StartTime float64  `json:"start_time"`
	EndTime   float64  `json:"end_time"`
	Topic     string   `json:"topic"`
	Summary   string   `json:"summary,omitempty"`
	Keywords  []string `json:"keywords,omitempty"`
}

// Contains 判断给定窗口是否落在该主题分段内
func (s TopicSegment) Contains(start, end float64) bool {
	return s.StartTime <= start && end <= s.EndTime
}

// VideoSummary 视频摘要，每次重建知识库时整体重新生成
type VideoSummary struct {
	VideoID        string         `json:"video_id"`
	Title          string         `json:"title"`
	OverallSummary string         `json:"overall_summary"`
	TopicSegments  []TopicSegment `json:"topic_segments,omitempty"`
	Keywords       []string       `json:"keywords,omitempty"`
	Language       string         `json:"language,omitempty"`
	Duration       float64        `json:"duration"`
}

// FallbackSummary 外部摘要服务失败时的兜底摘要，保证构建流程不被阻塞
func FallbackSummary(videoID, title string, duration float64) *VideoSummary {
	return &VideoSummary{
		VideoID:        videoID,
		Title:          title,
		OverallSummary: "Discussion about " + title,
		Duration:       duration,
	}
}

// TopicList 返回主题标签列表
func (s *VideoSummary) TopicList() []string {
	if s == nil {
		return nil
	}
	topics := make([]string, 0, len(s.TopicSegments))
	for _, seg := range s.TopicSegments {
		if seg.Topic != "" {
			topics = append(topics, seg.Topic)
		}
	}
	return topics
}

// TopicFor 返回包含给定窗口的主题分段
func (s *VideoSummary) TopicFor(start, end float64) (TopicSegment, bool) {
	if s == nil {
		return TopicSegment{}, false
	}
	for _, seg := range s.TopicSegments {
		if seg.Contains(start, end) {
			return seg, true
		}
	}
	return TopicSegment{}, false
}

// wordCount 按空白切分估算词数
func wordCount(text string) int {
	return len(strings.Fields(text))
}
