package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"shopify_feeds_v1_202608/internal/controller"
	"shopify_feeds_v1_202608/internal/middleware"
)

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine, feedCtl *controller.FeedController) {
	// 1. 产物下载 (公开，投放平台直接拉取)
	r.GET("/feeds/:filename", feedCtl.DownloadArtifact)

	// 2. API 路由组
	api := r.Group("/api")
	{
		feeds := api.Group("/feeds")
		{
			// POST /api/feeds/update 触发重新生成
			// 店铺级冷却在 Controller 内判定，这里只挡全局高频
			feeds.POST("/update",
				middleware.GlobalTriggerRateLimit(time.Second),
				feedCtl.TriggerUpdate,
			)

			// GET /api/feeds/status 查询任务状态
			feeds.GET("/status", feedCtl.GetStatus)

			// GET /api/feeds 列出全部任务槽位
			feeds.GET("", feedCtl.ListJobs)
		}

		// GET /api/collections 店铺集合列表
		api.GET("/collections", feedCtl.GetCollections)
	}
}
