package dto

import "time"

// ==================== 请求 DTO ====================

// TriggerFeedReq 触发一次 feed 重新生成
type TriggerFeedReq struct {
	URL            string   `json:"url" binding:"required,url"`                               // 店铺地址
	FeedType       string   `json:"feed_type" binding:"required,oneof=google bing zbozi csv"` // 产出类型
	Collections    []string `json:"collections" binding:"omitempty,dive,min=1"`               // 集合过滤，空为全量
	DownloadImages bool     `json:"download_images"`                                          // 是否本地化图片
}

// ==================== 响应 DTO ====================

// RunSummaryResp 运行统计
type RunSummaryResp struct {
	Products       int `json:"products"`
	Variants       int `json:"variants"`
	SkippedRecords int `json:"skipped_records"`
	FeedItems      int `json:"feed_items"`
	FeedSkipped    int `json:"feed_skipped"`
	ImagesOK       int `json:"images_ok"`
	ImagesFailed   int `json:"images_failed"`
}

// FeedJobResp 任务状态
type FeedJobResp struct {
	RunID       string   `json:"run_id"`
	StoreID     string   `json:"store_id"`
	StoreURL    string   `json:"store_url"`
	FeedType    string   `json:"feed_type"`
	State       string   `json:"state"`
	Collections []string `json:"collections,omitempty"`

	// 完成后产物的下载路径，如 /feeds/ab12cd34_google.xml
	Artifact string          `json:"artifact,omitempty"`
	Error    string          `json:"error,omitempty"`
	Summary  *RunSummaryResp `json:"summary,omitempty"`

	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// CollectionResp 店铺集合
type CollectionResp struct {
	Handle        string `json:"handle"`
	Title         string `json:"title"`
	ProductsCount int    `json:"products_count"`
}
