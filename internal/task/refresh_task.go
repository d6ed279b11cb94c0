package task

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"

	"shopify_feeds_v1_202608/internal/model"
	"shopify_feeds_v1_202608/internal/repository"
	"shopify_feeds_v1_202608/internal/service"
	"shopify_feeds_v1_202608/pkg/logger"
)

// ==================== RefreshTask 定时刷新 ====================

// DefaultRefreshSpec 默认每天凌晨 3 点刷新
const DefaultRefreshSpec = "0 3 * * *"

// DefaultRetention 历史记录保留期
const DefaultRetention = 90 * 24 * time.Hour

// RefreshTask 定期重新生成曾经成功产出过的 feed
// 刷新目标来自历史表：每个 (店铺, 产出类型) 最近一次成功运行的参数
type RefreshTask struct {
	tracker   *JobTracker
	runs      repository.FeedRunRepo
	cron      *cron.Cron
	spec      string
	retention time.Duration
}

// NewRefreshTask 创建定时刷新任务
// spec 为空时使用默认调度
func NewRefreshTask(tracker *JobTracker, runs repository.FeedRunRepo, spec string) *RefreshTask {
	if spec == "" {
		spec = DefaultRefreshSpec
	}
	return &RefreshTask{
		tracker:   tracker,
		runs:      runs,
		cron:      cron.New(),
		spec:      spec,
		retention: DefaultRetention,
	}
}

// Start 注册调度并启动
func (t *RefreshTask) Start() error {
	if _, err := t.cron.AddFunc(t.spec, t.RefreshNow); err != nil {
		return err
	}
	t.cron.Start()
	logger.L().Infof("定时刷新已启动 (spec=%q)", t.spec)
	return nil
}

// Stop 停止调度，等待执行中的刷新结束
func (t *RefreshTask) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	logger.L().Info("定时刷新已停止")
}

// RefreshNow 立即执行一轮刷新
// 单个目标失败 (含槽位冲突) 只记录，不影响其余目标
func (t *RefreshTask) RefreshNow() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	targets, err := t.runs.LatestCompleted(ctx)
	if err != nil {
		logger.L().Errorf("刷新目标查询失败: %v", err)
		return
	}
	logger.L().Infof("定时刷新开始: %d 个目标", len(targets))

	for _, target := range targets {
		feedType, err := model.ParseFeedType(target.FeedType)
		if err != nil {
			logger.L().Warnf("历史记录携带未知产出类型 %q, 跳过", target.FeedType)
			continue
		}

		_, err = t.tracker.Submit(service.GenerateRequest{
			StoreURL:    target.StoreURL,
			Type:        feedType,
			Collections: target.Collections,
		})
		if errors.Is(err, ErrJobConflict) {
			logger.L().Infof("跳过刷新 %s %s: 已有任务在执行", target.StoreURL, feedType)
			continue
		}
		if err != nil {
			logger.L().Warnf("刷新提交失败 %s %s: %v", target.StoreURL, feedType, err)
		}
	}

	if err := t.runs.PruneBefore(ctx, time.Now().Add(-t.retention)); err != nil {
		logger.L().Warnf("历史记录清理失败: %v", err)
	}
}
