package dto

import (
	"creator-kb-api/internal/application/knowledge"
)

// IngestRequest 知识库构建请求
type IngestRequest struct {
	CreatorID string `json:"creator_id" binding:"required"`
	MaxVideos int    `json:"max_videos,omitempty"`
	Force     bool   `json:"force,omitempty"`
	// Async 为 true 时任务投递到队列，由 worker 异步执行
	Async bool `json:"async,omitempty"`
}

// ToInput 转换为应用层构建输入
func (r *IngestRequest) ToInput(tenantID string) knowledge.IngestInput {
	return knowledge.IngestInput{
		TenantID:  tenantID,
		CreatorID: r.CreatorID,
		MaxVideos: r.MaxVideos,
		Force:     r.Force,
	}
}

// IngestResponse 同步构建响应
type IngestResponse struct {
	TenantID     string   `json:"tenant_id"`
	CreatorID    string   `json:"creator_id"`
	Candidates   int      `json:"candidates"`
	Processed    int      `json:"processed"`
	Skipped      int      `json:"skipped"`
	Failed       int      `json:"failed"`
	ChunksTotal  int      `json:"chunks_total"`
	QuotaLimited bool     `json:"quota_limited"`
	ElapsedMs    int64    `json:"elapsed_ms"`
	Errors       []string `json:"errors,omitempty"`
}

// NewIngestResponse 从构建汇总构造响应
func NewIngestResponse(report *knowledge.IngestReport) *IngestResponse {
	if report == nil {
		return &IngestResponse{}
	}
	return &IngestResponse{
		TenantID:     report.TenantID,
		CreatorID:    report.CreatorID,
		Candidates:   report.Candidates,
		Processed:    report.Processed,
		Skipped:      report.Skipped,
		Failed:       report.Failed,
		ChunksTotal:  report.ChunksTotal,
		QuotaLimited: report.QuotaLimited,
		ElapsedMs:    report.Elapsed.Milliseconds(),
		Errors:       report.Errors,
	}
}

// IngestJobResponse 异步构建响应
type IngestJobResponse struct {
	JobID     string `json:"job_id"`
	CreatorID string `json:"creator_id"`
	Status    string `json:"status"`
}
