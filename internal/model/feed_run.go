package model

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// FeedRun 运行历史记录 (落库)
// 仅作审计与定时刷新的依据；实时任务状态以内存中的 FeedJob 为准
type FeedRun struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	RunID     string `gorm:"size:36;uniqueIndex"`
	StoreID   string `gorm:"size:16;index:idx_store_type"`
	StoreURL  string `gorm:"size:255"`
	FeedType  string `gorm:"size:16;index:idx_store_type"`
	Status    string `gorm:"size:16;index"`

	Collections pq.StringArray `gorm:"type:text[]"`
	Summary     datatypes.JSON

	ArtifactPath string `gorm:"size:255"`
	ErrorMsg     string `gorm:"type:text"`

	StartedAt  time.Time
	FinishedAt *time.Time
	CreatedAt  time.Time
}

func (FeedRun) TableName() string {
	return "feed_runs"
}
