package model

import (
	"fmt"
	"time"
)

// ==================== Feed 任务模型 ====================

// FeedType 产出类型
type FeedType string

const (
	FeedGoogle FeedType = "google"
	FeedBing   FeedType = "bing"
	FeedZbozi  FeedType = "zbozi"
	FeedCSV    FeedType = "csv"
)

// ParseFeedType 解析产出类型参数
func ParseFeedType(s string) (FeedType, error) {
	switch FeedType(s) {
	case FeedGoogle, FeedBing, FeedZbozi, FeedCSV:
		return FeedType(s), nil
	}
	return "", fmt.Errorf("invalid feed type: %q", s)
}

// Ext 产物文件扩展名
func (t FeedType) Ext() string {
	if t == FeedCSV {
		return ".csv"
	}
	return ".xml"
}

// JobState 任务状态
// 状态机: pending -> running -> {completed | failed}
type JobState string

const (
	JobPending   JobState = "pending"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

// RunSummary 单次运行的统计摘要
type RunSummary struct {
	Products       int `json:"products"`        // 规范化成功的商品数
	Variants       int `json:"variants"`        // 变体总数
	SkippedRecords int `json:"skipped_records"` // 缺失必填字段被丢弃的记录数
	FeedItems      int `json:"feed_items"`      // 写入 feed 的条目数
	FeedSkipped    int `json:"feed_skipped"`    // 因平台必填字段缺失被跳过的条目数
	ImagesOK       int `json:"images_ok"`
	ImagesFailed   int `json:"images_failed"`
}

// FeedJob 一次异步的抓取+导出任务
// 仅在进程内存中保留，进程重启后不保证存活
// 仅由执行它的 worker 修改，外部只读快照
type FeedJob struct {
	RunID          string   // 本次运行的 UUID
	StoreID        string   // 店铺标识 (URL 短哈希)
	StoreURL       string
	Type           FeedType
	State          JobState
	DownloadImages bool
	Collections    []string

	ArtifactPath string      // 完成后的产物路径
	Error        string      // 失败时的首个致命错误，逐字保留
	Summary      *RunSummary // 完成后的统计

	StartedAt  time.Time
	FinishedAt time.Time
}

// Key 任务槽位键：同一 (店铺, 产出类型) 同时只允许一个任务运行
func (j *FeedJob) Key() string {
	return j.StoreID + ":" + string(j.Type)
}
