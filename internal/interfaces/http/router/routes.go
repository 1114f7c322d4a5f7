// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h Handlers) {
	// 知识库构建与检索
	knowledgeGroup := v1.Group("/knowledge")
	{
		if h.Ingest != nil {
			knowledgeGroup.POST("/ingest", h.Ingest.Ingest)
		}
		if h.Search != nil {
			knowledgeGroup.POST("/search", h.Search.Search)
		}
		if h.Stats != nil {
			knowledgeGroup.GET("/stats", h.Stats.Stats)
		}
	}

	// 视频管理
	if h.Video != nil {
		videos := v1.Group("/videos")
		{
			videos.GET("", h.Video.ListVideos)
			videos.GET("/:vid", h.Video.GetVideo)
			videos.GET("/:vid/chunks", h.Video.ListVideoChunks)
			videos.DELETE("/:vid", h.Video.DeleteVideo)
		}
	}
}
