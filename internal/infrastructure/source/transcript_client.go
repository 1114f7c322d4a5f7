// Package source 提供外部内容平台的 HTTP 客户端
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"creator-kb-api/internal/application/knowledge"
	"creator-kb-api/internal/config"
	"creator-kb-api/internal/domain/entity"
)

var tracer = otel.Tracer("source")

// TranscriptClient 字幕服务客户端
type TranscriptClient struct {
	baseURL     string
	apiKey      string
	defaultLang string
	httpClient  *http.Client
}

// NewTranscriptClient 创建字幕服务客户端
func NewTranscriptClient(cfg *config.TranscriptSourceConfig) *TranscriptClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	lang := cfg.DefaultLanguage
	if lang == "" {
		lang = "en"
	}
	return &TranscriptClient{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		defaultLang: lang,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

var _ knowledge.TranscriptSource = (*TranscriptClient)(nil)

type transcriptResponse struct {
	VideoID     string                     `json:"video_id"`
	Language    string                     `json:"language"`
	ObtainedVia string                     `json:"obtained_via"`
	Segments    []transcriptSegmentPayload `json:"segments"`
}

type transcriptSegmentPayload struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
}

// GetTranscript 获取视频字幕，无可用字幕时返回 ErrNoTranscript
func (c *TranscriptClient) GetTranscript(ctx context.Context, videoID, lang string) (*entity.Transcript, error) {
	ctx, span := tracer.Start(ctx, "transcript.GetTranscript",
		trace.WithAttributes(attribute.String("video_id", videoID)))
	defer span.End()

	if lang == "" {
		lang = c.defaultLang
	}

	u := fmt.Sprintf("%s/v1/transcripts/%s?lang=%s", c.baseURL, url.PathEscape(videoID), url.QueryEscape(lang))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create transcript request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("transcript request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, knowledge.ErrNoTranscript
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("transcript service rate limit exceeded: status=429: %w", knowledge.ErrQuotaExhausted)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		err := fmt.Errorf("transcript request failed: status=%d", resp.StatusCode)
		span.RecordError(err)
		return nil, err
	}

	var payload transcriptResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to decode transcript response: %w", err)
	}

	if len(payload.Segments) == 0 {
		return nil, knowledge.ErrNoTranscript
	}

	transcript := &entity.Transcript{
		VideoID:     videoID,
		Language:    payload.Language,
		ObtainedVia: payload.ObtainedVia,
		Segments:    make([]entity.TranscriptSegment, 0, len(payload.Segments)),
	}
	if transcript.Language == "" {
		transcript.Language = lang
	}
	for _, seg := range payload.Segments {
		transcript.Segments = append(transcript.Segments, entity.TranscriptSegment{
			Start:    seg.Start,
			End:      seg.Start + seg.Duration,
			Duration: seg.Duration,
			Text:     seg.Text,
		})
	}

	span.SetAttributes(attribute.Int("transcript.segment_count", len(transcript.Segments)))
	return transcript, nil
}

func (c *TranscriptClient) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
