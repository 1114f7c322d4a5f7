package handler

import (
	"github.com/gin-gonic/gin"

	"creator-kb-api/internal/application/knowledge"
	"creator-kb-api/internal/interfaces/http/dto"
)

// SearchHandler 混合检索处理器
type SearchHandler struct {
	engine *knowledge.Engine
}

// NewSearchHandler 创建检索处理器
func NewSearchHandler(engine *knowledge.Engine) *SearchHandler {
	return &SearchHandler{engine: engine}
}

// Search 混合检索
// @Summary 混合检索
// @Description 向量相似度与 BM25 关键词加权融合的知识库检索
// @Tags Knowledge
// @Accept json
// @Produce json
// @Param body body dto.SearchRequest true "检索请求"
// @Success 200 {object} dto.Response[dto.SearchResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/knowledge/search [post]
func (h *SearchHandler) Search(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}

	var req dto.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	results, err := h.engine.Search(c.Request.Context(), req.ToInput(tenantID))
	if err != nil {
		respondError(c, err)
		return
	}

	dto.Success(c, dto.NewSearchResponse(req.Query, results))
}
