// Package handler 提供 HTTP 请求处理器
package handler

import (
	stderrors "errors"

	"github.com/gin-gonic/gin"

	"creator-kb-api/internal/application/knowledge"
	"creator-kb-api/internal/application/quota"
	"creator-kb-api/internal/interfaces/http/dto"
	"creator-kb-api/internal/interfaces/http/middleware"
	"creator-kb-api/pkg/errors"
	"creator-kb-api/pkg/logger"
)

// requireTenant 取出请求租户，缺失时响应 400 并返回 false
func requireTenant(c *gin.Context) (string, bool) {
	tenantID := middleware.GetTenantIDFromGin(c)
	if tenantID == "" {
		dto.BadRequest(c, "tenant id is required")
		return "", false
	}
	return tenantID, true
}

// respondError 把应用层错误映射为 HTTP 响应
func respondError(c *gin.Context, err error) {
	switch {
	case err == nil:
		return
	case stderrors.Is(err, knowledge.ErrEmptyQuery):
		dto.BadRequest(c, err.Error())
	case knowledge.IsQuotaExhausted(err):
		dto.ErrorWithDetail(c, 429, "external quota exhausted", &dto.ErrorDetail{
			ErrorCode: string(errors.CodeQuotaExhausted),
			Details:   err.Error(),
		})
	case quota.IsQuotaExceeded(err):
		dto.ErrorWithDetail(c, 429, "daily token quota exceeded", &dto.ErrorDetail{
			ErrorCode: string(errors.CodeQuotaExhausted),
			Details:   err.Error(),
		})
	case errors.IsAppError(err):
		appErr := errors.AsAppError(err)
		dto.ErrorWithDetail(c, appErr.HTTPStatus, appErr.Message, &dto.ErrorDetail{
			ErrorCode: string(appErr.Code),
			Details:   appErr.Detail,
		})
	default:
		logger.Error(c.Request.Context(), "request failed", err, "path", c.FullPath())
		dto.InternalError(c, "internal server error")
	}
}
