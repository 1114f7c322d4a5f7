package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openaiopts "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"creator-kb-api/internal/domain/entity"
	"creator-kb-api/pkg/logger"
)

// Summarizer 调用外部文本生成服务产出视频摘要与主题分段。
// 这是协作方边界：核心只依赖结构化契约，不绑定具体模型。
// 任何失败（调用、解析、校验）都回退到兜底摘要，构建流程从不因摘要阻塞。
type Summarizer struct {
	chatModel          model.BaseChatModel
	maxTranscriptChars int
}

// NewSummarizer 创建摘要器
func NewSummarizer(chatModel model.BaseChatModel, maxTranscriptChars int) *Summarizer {
	if maxTranscriptChars <= 0 {
		maxTranscriptChars = defaultMaxTranscriptChars
	}
	return &Summarizer{
		chatModel:          chatModel,
		maxTranscriptChars: maxTranscriptChars,
	}
}

// summaryDocument 模型返回的结构化摘要文档
type summaryDocument struct {
	Summary       string `json:"summary"`
	TopicSegments []struct {
		StartTime float64  `json:"start_time"`
		EndTime   float64  `json:"end_time"`
		Topic     string   `json:"topic"`
		Summary   string   `json:"summary"`
		Keywords  []string `json:"keywords"`
	} `json:"topic_segments"`
	Keywords []string `json:"keywords"`
}

// Summarize 生成视频摘要。永不返回 nil：失败时返回兜底摘要。
func (s *Summarizer) Summarize(ctx context.Context, video *entity.Video, transcript *entity.Transcript) *entity.VideoSummary {
	if video == nil {
		return nil
	}
	fallback := entity.FallbackSummary(video.ID, video.Title, video.Duration)
	if s == nil || s.chatModel == nil {
		return fallback
	}

	doc, err := s.generate(ctx, video, transcript)
	if err != nil {
		logger.Warn(ctx, "summarize failed, using fallback summary",
			"video_id", video.ID,
			"error", err.Error(),
		)
		return fallback
	}

	out := s.validate(video, transcript, doc)
	if out == nil {
		logger.Warn(ctx, "summary document rejected, using fallback summary", "video_id", video.ID)
		return fallback
	}
	return out
}

func (s *Summarizer) generate(ctx context.Context, video *entity.Video, transcript *entity.Transcript) (*summaryDocument, error) {
	msgs := s.buildMessages(video, transcript)

	outMsg, err := s.chatModel.Generate(ctx, msgs, summaryModelOptions(true)...)
	if err != nil && isResponseFormatUnsupportedError(err) {
		logger.Warn(ctx, "llm json_schema not supported, fallback to prompt-only", "error", err.Error())
		outMsg, err = s.chatModel.Generate(ctx, msgs, summaryModelOptions(false)...)
	}
	if err != nil {
		return nil, err
	}
	if outMsg == nil || strings.TrimSpace(outMsg.Content) == "" {
		return nil, fmt.Errorf("empty llm response")
	}

	raw := extractJSONObject(outMsg.Content)
	var doc summaryDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("unparsable summary document: %w", err)
	}
	return &doc, nil
}

// validate 严格校验模型输出；不信任未校验字段，校验不过整体丢弃（由调用方回退）。
func (s *Summarizer) validate(video *entity.Video, transcript *entity.Transcript, doc *summaryDocument) *entity.VideoSummary {
	if doc == nil || strings.TrimSpace(doc.Summary) == "" {
		return nil
	}

	duration := video.Duration
	if duration <= 0 {
		duration = transcript.LastSegmentEnd()
	}

	out := &entity.VideoSummary{
		VideoID:        video.ID,
		Title:          video.Title,
		OverallSummary: strings.TrimSpace(doc.Summary),
		Keywords:       trimList(doc.Keywords),
		Language:       transcriptLanguage(video, transcript),
		Duration:       duration,
	}

	for _, seg := range doc.TopicSegments {
		topic := strings.TrimSpace(seg.Topic)
		if topic == "" || seg.EndTime <= seg.StartTime || seg.StartTime < 0 {
			continue
		}
		end := seg.EndTime
		if duration > 0 && end > duration {
			end = duration
		}
		out.TopicSegments = append(out.TopicSegments, entity.TopicSegment{
			StartTime: seg.StartTime,
			EndTime:   end,
			Topic:     topic,
			Summary:   strings.TrimSpace(seg.Summary),
			Keywords:  trimList(seg.Keywords),
		})
	}
	return out
}

func (s *Summarizer) buildMessages(video *entity.Video, transcript *entity.Transcript) []*schema.Message {
	text := transcript.FullText()
	if runes := []rune(text); len(runes) > s.maxTranscriptChars {
		text = string(runes[:s.maxTranscriptChars])
	}

	system := "You analyze video transcripts for a creator knowledge base. " +
		"Return a JSON document with a short overall summary, 3-5 topic segments " +
		"(each with start_time and end_time in seconds, a topic label, a one-sentence summary " +
		"and keywords), and a flat keyword list. Use only information from the transcript."

	user := fmt.Sprintf("Video title: %s\nDuration: %.0f seconds\n\nTranscript:\n%s",
		strings.TrimSpace(video.Title), video.Duration, text)

	return []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	}
}

func summaryModelOptions(enableSchema bool) []model.Option {
	opts := make([]model.Option, 0, 1)
	if enableSchema {
		opts = append(opts, openaiopts.WithExtraFields(map[string]any{
			"response_format": map[string]any{
				"type": "json_schema",
				"json_schema": map[string]any{
					"name":   "video_summary",
					"strict": false,
					"schema": summaryJSONSchema(),
				},
			},
		}))
	}
	return opts
}

func summaryJSONSchema() map[string]any {
	// 说明：schema 以“最小可用”为目标，避免过度约束导致模型输出失败。
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"summary", "topic_segments", "keywords"},
		"properties": map[string]any{
			"summary": map[string]any{"type": "string"},
			"topic_segments": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []any{"start_time", "end_time", "topic"},
					"properties": map[string]any{
						"start_time": map[string]any{"type": "number"},
						"end_time":   map[string]any{"type": "number"},
						"topic":      map[string]any{"type": "string"},
						"summary":    map[string]any{"type": "string"},
						"keywords":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					},
				},
			},
			"keywords": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
	}
}

func transcriptLanguage(video *entity.Video, transcript *entity.Transcript) string {
	if transcript != nil && transcript.Language != "" {
		return transcript.Language
	}
	return video.Language
}

func trimList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
