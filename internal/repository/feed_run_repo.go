package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"shopify_feeds_v1_202608/internal/model"
)

// ==================== 仓储接口 ====================

// FeedRunRepo 运行历史仓储接口
// 历史表仅作审计与定时刷新依据，不承载实时任务状态
type FeedRunRepo interface {
	Record(ctx context.Context, job *model.FeedJob) error
	GetByRunID(ctx context.Context, runID string) (*model.FeedRun, error)
	ListByStore(ctx context.Context, storeID string, limit int) ([]model.FeedRun, error)

	// LatestCompleted 每个 (店铺, 产出类型) 最近一次成功运行，定时刷新用
	LatestCompleted(ctx context.Context) ([]model.FeedRun, error)

	// PruneBefore 历史保留策略，删除早于截止时间的记录
	PruneBefore(ctx context.Context, cutoff time.Time) error
}

// ==================== 仓储实现 ====================

type feedRunRepo struct {
	db *gorm.DB
}

// NewFeedRunRepo 创建运行历史仓储
func NewFeedRunRepo(db *gorm.DB) FeedRunRepo {
	return &feedRunRepo{db: db}
}

func (r *feedRunRepo) Record(ctx context.Context, job *model.FeedJob) error {
	run := &model.FeedRun{
		RunID:        job.RunID,
		StoreID:      job.StoreID,
		StoreURL:     job.StoreURL,
		FeedType:     string(job.Type),
		Status:       string(job.State),
		Collections:  pq.StringArray(job.Collections),
		ArtifactPath: job.ArtifactPath,
		ErrorMsg:     job.Error,
		StartedAt:    job.StartedAt,
	}

	if !job.FinishedAt.IsZero() {
		finished := job.FinishedAt
		run.FinishedAt = &finished
	}
	if job.Summary != nil {
		if data, err := json.Marshal(job.Summary); err == nil {
			run.Summary = data
		}
	}

	return r.db.WithContext(ctx).Create(run).Error
}

func (r *feedRunRepo) GetByRunID(ctx context.Context, runID string) (*model.FeedRun, error) {
	var run model.FeedRun
	if err := r.db.WithContext(ctx).Where("run_id = ?", runID).First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *feedRunRepo) ListByStore(ctx context.Context, storeID string, limit int) ([]model.FeedRun, error) {
	var runs []model.FeedRun
	err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}

func (r *feedRunRepo) LatestCompleted(ctx context.Context) ([]model.FeedRun, error) {
	var runs []model.FeedRun
	err := r.db.WithContext(ctx).
		Where("status = ?", string(model.JobCompleted)).
		Order("finished_at DESC").
		Find(&runs).Error
	if err != nil {
		return nil, err
	}

	// 按 (店铺, 产出类型) 去重，保留最近一次 (SQL 方言无关)
	seen := make(map[string]bool)
	var latest []model.FeedRun
	for _, run := range runs {
		key := run.StoreID + ":" + run.FeedType
		if seen[key] {
			continue
		}
		seen[key] = true
		latest = append(latest, run)
	}
	return latest, nil
}

// PruneBefore 删除早于截止时间的历史记录
func (r *feedRunRepo) PruneBefore(ctx context.Context, cutoff time.Time) error {
	return r.db.WithContext(ctx).
		Where("started_at < ?", cutoff).
		Delete(&model.FeedRun{}).Error
}
