package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"creator-kb-api/internal/application/knowledge"
	"creator-kb-api/internal/config"
)

// AnalysisClient 下游说话风格分析服务客户端。
// 分析是尽力而为的旁路触发，调用方负责吞掉错误。
type AnalysisClient struct {
	enabled    bool
	baseURL    string
	httpClient *http.Client
}

// NewAnalysisClient 创建风格分析客户端
func NewAnalysisClient(cfg *config.AnalysisConfig) *AnalysisClient {
	return &AnalysisClient{
		enabled:    cfg.Enabled && cfg.BaseURL != "",
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

var _ knowledge.PatternAnalyzer = (*AnalysisClient)(nil)

type analysisRequest struct {
	TenantID  string   `json:"tenant_id"`
	CreatorID string   `json:"creator_id"`
	VideoIDs  []string `json:"video_ids"`
}

// Analyze 触发对新入库视频的说话风格分析
func (c *AnalysisClient) Analyze(ctx context.Context, tenantID, creatorID string, videoIDs []string) error {
	if !c.enabled {
		return nil
	}

	ctx, span := tracer.Start(ctx, "analysis.Analyze",
		trace.WithAttributes(
			attribute.String("creator_id", creatorID),
			attribute.Int("video_count", len(videoIDs)),
		))
	defer span.End()

	body, err := json.Marshal(&analysisRequest{
		TenantID:  tenantID,
		CreatorID: creatorID,
		VideoIDs:  videoIDs,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal analysis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/analyze", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create analysis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("analysis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("analysis request failed: status=%d", resp.StatusCode)
		span.RecordError(err)
		return err
	}
	return nil
}
