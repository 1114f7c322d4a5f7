// Package messaging 提供消息队列实现
package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("messaging")

// Producer 消息生产者
type Producer struct {
	client *redis.Client
	maxLen int64
}

// NewProducer 创建消息生产者
func NewProducer(client *redis.Client, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = 100000
	}
	return &Producer{
		client: client,
		maxLen: maxLen,
	}
}

// Publish 发布消息到指定流
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", string(stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	result, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()

	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	span.SetAttributes(attribute.String("stream.message_id", result))
	return result, nil
}

// PublishIngestJob 发布知识库构建任务
func (p *Producer) PublishIngestJob(ctx context.Context, job *IngestJobMessage) (string, error) {
	msg, err := NewMessage(job.JobID, "kb_ingest", job.TenantID, job.CreatorID, job)
	if err != nil {
		return "", err
	}

	if job.IdempotencyKey != "" {
		msg.SetMetadata("idempotency_key", job.IdempotencyKey)
	}

	return p.Publish(ctx, StreamKBIngest, msg)
}

// PublishPatternAnalysis 发布内容模式分析任务
func (p *Producer) PublishPatternAnalysis(ctx context.Context, analysis *PatternAnalysisMessage) (string, error) {
	msg, err := NewMessage(analysis.CreatorID, "pattern_analysis", analysis.TenantID, analysis.CreatorID, analysis)
	if err != nil {
		return "", err
	}

	msg.SetMetadata("video_count", fmt.Sprintf("%d", len(analysis.VideoIDs)))
	return p.Publish(ctx, StreamPatternAnalysis, msg)
}

// IngestJobMessage 知识库构建任务消息
type IngestJobMessage struct {
	JobID          string `json:"job_id"`
	TenantID       string `json:"tenant_id"`
	CreatorID      string `json:"creator_id"`
	MaxVideos      int    `json:"max_videos,omitempty"`
	Force          bool   `json:"force,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// PatternAnalysisMessage 内容模式分析消息
type PatternAnalysisMessage struct {
	TenantID  string   `json:"tenant_id"`
	CreatorID string   `json:"creator_id"`
	VideoIDs  []string `json:"video_ids"`
}
