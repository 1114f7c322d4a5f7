package handler

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"creator-kb-api/internal/application/knowledge"
	redisinfra "creator-kb-api/internal/infrastructure/persistence/redis"
	"creator-kb-api/internal/interfaces/http/dto"
)

// statsCacheTTL 统计结果缓存时间，索引写入时整体失效
const statsCacheTTL = 60 * time.Second

// StatsHandler 知识库统计处理器
type StatsHandler struct {
	engine *knowledge.Engine
	cache  *redisinfra.Cache
}

// NewStatsHandler 创建统计处理器。cache 可为 nil。
func NewStatsHandler(engine *knowledge.Engine, cache *redisinfra.Cache) *StatsHandler {
	return &StatsHandler{engine: engine, cache: cache}
}

// Stats 知识库统计
// @Summary 知识库统计
// @Description 按层级、语言统计租户知识库的块分布
// @Tags Knowledge
// @Produce json
// @Success 200 {object} dto.Response[dto.StatsResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/knowledge/stats [get]
func (h *StatsHandler) Stats(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	if h.cache != nil {
		key := fmt.Sprintf("stats:%s", tenantID)
		raw, err := h.cache.GetOrLoadSafe(ctx, key, statsCacheTTL, func() (interface{}, error) {
			stats, loadErr := h.engine.Stats(ctx, tenantID)
			if loadErr != nil {
				return nil, loadErr
			}
			return dto.NewStatsResponse(stats), nil
		})
		if err != nil {
			respondError(c, err)
			return
		}
		var resp dto.StatsResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			respondError(c, err)
			return
		}
		dto.Success(c, &resp)
		return
	}

	stats, err := h.engine.Stats(ctx, tenantID)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.NewStatsResponse(stats))
}
