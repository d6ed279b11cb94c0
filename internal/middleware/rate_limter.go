package middleware

import (
	"fmt"
	"sync"
	"time"

	"shopify_feeds_v1_202608/internal/model"
)

// ==================== TriggerRateLimiter 触发限流器 ====================

// TriggerRateLimiter 手动触发限流器
// 防止用户频繁触发 feed 重新生成导致对源站的重复全量抓取
type TriggerRateLimiter struct {
	locks sync.Map // key -> *lockEntry
}

// lockEntry 锁条目
type lockEntry struct {
	lastTime time.Time
	mu       sync.Mutex
}

// 全局限流器实例
var globalLimiter = &TriggerRateLimiter{}

// GetLimiter 获取全局限流器
func GetLimiter() *TriggerRateLimiter {
	return globalLimiter
}

// ==================== 限流检查 ====================

// CheckResult 检查结果
type CheckResult struct {
	Allowed    bool          // 是否允许
	RetryAfter time.Duration // 剩余冷却时间
}

// Check 检查是否允许执行，允许时顺带更新最后执行时间
// key: 限流键，如 "store:ab12cd34:google"
// interval: 冷却间隔
func (r *TriggerRateLimiter) Check(key string, interval time.Duration) CheckResult {
	actual, _ := r.locks.LoadOrStore(key, &lockEntry{})
	entry := actual.(*lockEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(entry.lastTime)

	if elapsed < interval {
		return CheckResult{
			Allowed:    false,
			RetryAfter: interval - elapsed,
		}
	}

	entry.lastTime = now
	return CheckResult{Allowed: true}
}

// Reset 重置指定 key 的限流
func (r *TriggerRateLimiter) Reset(key string) {
	r.locks.Delete(key)
}

// ==================== Key 生成工具 ====================

// StoreTriggerKey 生成 (店铺, 产出类型) 级触发 Key
func StoreTriggerKey(storeID string, feedType model.FeedType) string {
	return fmt.Sprintf("store:%s:%s", storeID, feedType)
}

// GlobalTriggerKey 生成全局触发 Key
func GlobalTriggerKey() string {
	return "global:trigger"
}

// ==================== 默认冷却间隔 ====================

// DefaultTriggerInterval 同一 (店铺, 产出类型) 的触发冷却
// 一次全量抓取本身就要数分钟，更短的间隔没有意义
const DefaultTriggerInterval = 10 * time.Minute
