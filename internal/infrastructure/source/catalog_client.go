package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"creator-kb-api/internal/application/knowledge"
	"creator-kb-api/internal/config"
)

// CatalogClient 视频目录服务客户端
type CatalogClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewCatalogClient 创建视频目录客户端
func NewCatalogClient(cfg *config.CatalogSourceConfig) *CatalogClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CatalogClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

var _ knowledge.CatalogSource = (*CatalogClient)(nil)

type catalogResponse struct {
	Videos []catalogVideoPayload `json:"videos"`
}

type catalogVideoPayload struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Duration    float64   `json:"duration"`
	Language    string    `json:"language"`
	PublishedAt time.Time `json:"published_at"`
}

// ListVideos 列出创作者的全部视频
func (c *CatalogClient) ListVideos(ctx context.Context, creatorID string) ([]knowledge.CatalogVideo, error) {
	ctx, span := tracer.Start(ctx, "catalog.ListVideos",
		trace.WithAttributes(attribute.String("creator_id", creatorID)))
	defer span.End()

	u := fmt.Sprintf("%s/v1/creators/%s/videos", c.baseURL, url.PathEscape(creatorID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("catalog service rate limit exceeded: status=429: %w", knowledge.ErrQuotaExhausted)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		err := fmt.Errorf("catalog request failed: status=%d", resp.StatusCode)
		span.RecordError(err)
		return nil, err
	}

	var payload catalogResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to decode catalog response: %w", err)
	}

	videos := make([]knowledge.CatalogVideo, 0, len(payload.Videos))
	for _, v := range payload.Videos {
		videos = append(videos, knowledge.CatalogVideo{
			PlatformID:  v.ID,
			Title:       v.Title,
			URL:         v.URL,
			Duration:    v.Duration,
			Language:    v.Language,
			PublishedAt: v.PublishedAt,
		})
	}

	span.SetAttributes(attribute.Int("catalog.video_count", len(videos)))
	return videos, nil
}
