package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shopify_feeds_v1_202608/internal/model"
)

// ==================== 触发限流中间件 ====================

// GlobalTriggerRateLimit 全局触发限流中间件
// 触发参数在 JSON body 里，店铺级冷却由 Controller 调 CheckTriggerAllowed 判定；
// 这里只挡住全局维度的高频触发
//
// 使用示例:
//
//	router.POST("/api/feeds/update",
//	    middleware.GlobalTriggerRateLimit(time.Second),
//	    feedCtl.TriggerUpdate,
//	)
func GlobalTriggerRateLimit(interval time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := GetLimiter().Check(GlobalTriggerKey(), interval)
		if !result.Allowed {
			retryAfter := int(result.RetryAfter.Seconds())
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code":    429,
				"message": formatRetryMessage(result.RetryAfter),
				"data": gin.H{
					"retry_after": retryAfter,
				},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// ==================== 辅助函数 ====================

// formatRetryMessage 格式化重试提示信息
func formatRetryMessage(d time.Duration) string {
	seconds := int(d.Seconds())
	if seconds < 1 {
		seconds = 1
	}

	if seconds < 60 {
		return fmt.Sprintf("触发冷却中，请 %d 秒后重试", seconds)
	}

	minutes := seconds / 60
	remainingSeconds := seconds % 60

	if remainingSeconds == 0 {
		return fmt.Sprintf("触发冷却中，请 %d 分钟后重试", minutes)
	}

	return fmt.Sprintf("触发冷却中，请 %d 分 %d 秒后重试", minutes, remainingSeconds)
}

// ==================== 手动限流检查（供 Controller 使用）====================

// CheckTriggerAllowed 检查并占用 (店铺, 产出类型) 冷却窗口
func CheckTriggerAllowed(storeID string, feedType model.FeedType, interval time.Duration) (bool, time.Duration) {
	if interval == 0 {
		interval = DefaultTriggerInterval
	}
	result := GetLimiter().Check(StoreTriggerKey(storeID, feedType), interval)
	return result.Allowed, result.RetryAfter
}

// ResetTriggerLimit 重置触发限流（任务失败后放行重试）
func ResetTriggerLimit(storeID string, feedType model.FeedType) {
	GetLimiter().Reset(StoreTriggerKey(storeID, feedType))
}
