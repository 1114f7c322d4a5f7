package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"creator-kb-api/internal/application/knowledge"
	"creator-kb-api/internal/application/quota"
	"creator-kb-api/internal/infrastructure/messaging"
	"creator-kb-api/internal/interfaces/http/dto"
	"creator-kb-api/pkg/logger"
)

// IngestHandler 知识库构建处理器
type IngestHandler struct {
	orchestrator *knowledge.Orchestrator
	producer     *messaging.Producer
	quotaChecker *quota.TokenQuotaChecker
}

// NewIngestHandler 创建构建处理器。producer 与 quotaChecker 可为 nil。
func NewIngestHandler(orchestrator *knowledge.Orchestrator, producer *messaging.Producer, quotaChecker *quota.TokenQuotaChecker) *IngestHandler {
	return &IngestHandler{
		orchestrator: orchestrator,
		producer:     producer,
		quotaChecker: quotaChecker,
	}
}

// Ingest 构建创作者知识库
// @Summary 构建知识库
// @Description 拉取创作者视频目录，切块、向量化并写入知识库索引
// @Tags Knowledge
// @Accept json
// @Produce json
// @Param body body dto.IngestRequest true "构建请求"
// @Success 200 {object} dto.Response[dto.IngestResponse]
// @Success 202 {object} dto.Response[dto.IngestJobResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/knowledge/ingest [post]
func (h *IngestHandler) Ingest(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}

	var req dto.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	ctx := c.Request.Context()

	if h.quotaChecker != nil {
		if _, _, err := h.quotaChecker.CheckDailyTokens(ctx, tenantID); err != nil {
			respondError(c, err)
			return
		}
	}

	// 异步模式：投递到队列，由 worker 执行
	if req.Async && h.producer != nil {
		jobID := uuid.New().String()
		_, err := h.producer.PublishIngestJob(ctx, &messaging.IngestJobMessage{
			JobID:     jobID,
			TenantID:  tenantID,
			CreatorID: req.CreatorID,
			MaxVideos: req.MaxVideos,
			Force:     req.Force,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		dto.Accepted(c, dto.IngestJobResponse{
			JobID:     jobID,
			CreatorID: req.CreatorID,
			Status:    "queued",
		})
		return
	}

	report, err := h.orchestrator.ProcessCatalog(ctx, req.ToInput(tenantID))
	if err != nil {
		respondError(c, err)
		return
	}

	if report.QuotaLimited {
		logger.Warn(ctx, "ingestion halted early by quota",
			"creator_id", req.CreatorID,
			"processed", report.Processed,
		)
	}
	dto.Success(c, dto.NewIngestResponse(report))
}
