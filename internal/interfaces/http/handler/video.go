package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"creator-kb-api/internal/application/knowledge"
	"creator-kb-api/internal/domain/repository"
	"creator-kb-api/internal/interfaces/http/dto"
)

// VideoHandler 视频管理处理器
type VideoHandler struct {
	videos repository.VideoRepository
	chunks repository.ChunkRepository
	writer *knowledge.IndexWriter
}

// NewVideoHandler 创建视频处理器
func NewVideoHandler(videos repository.VideoRepository, chunks repository.ChunkRepository, writer *knowledge.IndexWriter) *VideoHandler {
	return &VideoHandler{
		videos: videos,
		chunks: chunks,
		writer: writer,
	}
}

// ListVideos 视频列表
// @Summary 视频列表
// @Description 按创作者、处理状态过滤的租户视频列表
// @Tags Video
// @Produce json
// @Param creator_id query string false "创作者 ID"
// @Param processed query bool false "是否已处理"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} dto.Response[dto.VideoListResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/videos [get]
func (h *VideoHandler) ListVideos(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}

	page := dto.BindPage(c)
	filter := &repository.VideoFilter{
		CreatorID: c.Query("creator_id"),
	}
	if raw := c.Query("processed"); raw != "" {
		processed, err := strconv.ParseBool(raw)
		if err != nil {
			dto.BadRequest(c, "invalid processed filter")
			return
		}
		filter.Processed = &processed
	}

	result, err := h.videos.List(c.Request.Context(), tenantID, filter, repository.NewPagination(page.Page, page.PageSize))
	if err != nil {
		respondError(c, err)
		return
	}

	dto.SuccessWithPage(c, dto.NewVideoListResponse(result.Items),
		dto.NewPageMeta(result.Page, result.PageSize, int(result.Total)))
}

// GetVideo 视频详情
// @Summary 视频详情
// @Tags Video
// @Produce json
// @Param vid path string true "视频 ID"
// @Success 200 {object} dto.Response[dto.VideoResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/videos/{vid} [get]
func (h *VideoHandler) GetVideo(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}

	var req dto.VideoIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		dto.BadRequest(c, "invalid video id")
		return
	}

	video, err := h.videos.GetByID(c.Request.Context(), req.VideoID)
	if err != nil {
		respondError(c, err)
		return
	}
	if video == nil || video.TenantID != tenantID {
		dto.NotFound(c, "video not found")
		return
	}

	dto.Success(c, dto.NewVideoResponse(video))
}

// ListVideoChunks 视频知识块列表
// @Summary 视频知识块列表
// @Description 按层级、序号排序返回视频的全部知识块
// @Tags Video
// @Produce json
// @Param vid path string true "视频 ID"
// @Success 200 {object} dto.Response[dto.ChunkListResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/videos/{vid}/chunks [get]
func (h *VideoHandler) ListVideoChunks(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}

	var req dto.VideoIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		dto.BadRequest(c, "invalid video id")
		return
	}

	video, err := h.videos.GetByID(c.Request.Context(), req.VideoID)
	if err != nil {
		respondError(c, err)
		return
	}
	if video == nil || video.TenantID != tenantID {
		dto.NotFound(c, "video not found")
		return
	}

	chunks, err := h.chunks.ListByVideo(c.Request.Context(), video.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	dto.Success(c, dto.NewChunkListResponse(chunks))
}

// DeleteVideo 删除视频及其索引
// @Summary 删除视频
// @Description 删除视频、知识块与向量候选，检索缓存整体失效
// @Tags Video
// @Param vid path string true "视频 ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/videos/{vid} [delete]
func (h *VideoHandler) DeleteVideo(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}

	var req dto.VideoIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		dto.BadRequest(c, "invalid video id")
		return
	}

	video, err := h.videos.GetByID(c.Request.Context(), req.VideoID)
	if err != nil {
		respondError(c, err)
		return
	}
	if video == nil || video.TenantID != tenantID {
		dto.NotFound(c, "video not found")
		return
	}

	if err := h.writer.DeleteVideo(c.Request.Context(), video); err != nil {
		respondError(c, err)
		return
	}

	dto.NoContent(c)
}
