package api

import "github.com/gin-gonic/gin"

// SetupRouter 配置和返回一个 Gin 引擎实例。
func SetupRouter(h *Handler) *gin.Engine {
	// 使用默认中间件 (logger, recovery) 创建一个 Gin 引擎。
	r := gin.Default()

	r.GET("/health", h.Health)

	apiV1 := r.Group("/api/v1")
	{
		memories := apiV1.Group("/memories")
		{
			memories.POST("", h.CreateMemory)
			memories.POST("/ingest", h.IngestMemory)
			memories.GET("", h.ListMemories)
			memories.POST("/search", h.SearchMemories)
			memories.POST("/reindex", h.ReindexMemories)
			memories.PUT("/:id", h.UpdateMemory)
			memories.DELETE("/:id", h.DeleteMemory)
		}

		events := apiV1.Group("/events")
		{
			events.POST("", h.CreateEvent)
			events.GET("", h.FetchEvents)
			events.POST("/search", h.SearchEvents)
			events.POST("/reindex", h.ReindexEvents)
			events.PUT("/:id", h.UpdateEvent)
			events.DELETE("/:id", h.DeleteEvent)
		}
	}

	return r
}
