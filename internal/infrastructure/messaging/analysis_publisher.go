package messaging

import (
	"context"
	"fmt"

	"creator-kb-api/internal/application/knowledge"
)

// AnalysisPublisher 通过消息流异步触发说话风格分析。
// HTTP 直连之外的另一种实现：由 worker 消费后再调用分析服务。
type AnalysisPublisher struct {
	producer *Producer
}

// NewAnalysisPublisher 创建分析任务发布器
func NewAnalysisPublisher(producer *Producer) *AnalysisPublisher {
	return &AnalysisPublisher{producer: producer}
}

var _ knowledge.PatternAnalyzer = (*AnalysisPublisher)(nil)

// Analyze 把分析任务投递到消息流
func (p *AnalysisPublisher) Analyze(ctx context.Context, tenantID, creatorID string, videoIDs []string) error {
	if len(videoIDs) == 0 {
		return nil
	}
	_, err := p.producer.PublishPatternAnalysis(ctx, &PatternAnalysisMessage{
		TenantID:  tenantID,
		CreatorID: creatorID,
		VideoIDs:  videoIDs,
	})
	if err != nil {
		return fmt.Errorf("failed to publish analysis task: %w", err)
	}
	return nil
}
