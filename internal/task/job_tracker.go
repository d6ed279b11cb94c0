package task

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"shopify_feeds_v1_202608/internal/model"
	"shopify_feeds_v1_202608/internal/repository"
	"shopify_feeds_v1_202608/internal/service"
	"shopify_feeds_v1_202608/pkg/logger"
	"shopify_feeds_v1_202608/pkg/utils"
)

// ==================== JobTracker 异步任务跟踪 ====================

var (
	// ErrJobConflict 同一 (店铺, 产出类型) 已有任务在执行
	ErrJobConflict = errors.New("job already running for this store and feed type")
	// ErrJobNotFound 查询不到对应任务
	ErrJobNotFound = errors.New("job not found")
)

// DefaultJobTimeout 单次任务的执行上限
const DefaultJobTimeout = 2 * time.Hour

// JobTracker 进程内任务登记表
// 槽位按 (店铺, 产出类型) 互斥：同槽任务未结束前拒绝重复提交
// 任务状态只在进程内存中，重启后丢失；历史记录另行持久化
type JobTracker struct {
	mu    sync.Mutex
	slots map[string]*model.FeedJob // 槽位键 -> 最近一次任务
	byRun map[string]*model.FeedJob // RunID -> 任务

	feeds   *service.FeedService
	runs    repository.FeedRunRepo // 可为 nil (纯内存模式)
	timeout time.Duration
}

// NewJobTracker 创建任务跟踪器
// runs 传 nil 时跳过历史持久化
func NewJobTracker(feeds *service.FeedService, runs repository.FeedRunRepo) *JobTracker {
	return &JobTracker{
		slots:   make(map[string]*model.FeedJob),
		byRun:   make(map[string]*model.FeedJob),
		feeds:   feeds,
		runs:    runs,
		timeout: DefaultJobTimeout,
	}
}

// Submit 登记并异步启动一次产出任务
// 返回的是任务快照；同槽位已有未结束任务时返回 ErrJobConflict
func (t *JobTracker) Submit(req service.GenerateRequest) (*model.FeedJob, error) {
	storeURL := utils.NormalizeStoreURL(req.StoreURL)
	req.StoreURL = storeURL

	job := &model.FeedJob{
		RunID:          uuid.NewString(),
		StoreID:        utils.StoreHash(storeURL),
		StoreURL:       storeURL,
		Type:           req.Type,
		State:          model.JobPending,
		DownloadImages: req.DownloadImages,
		Collections:    append([]string(nil), req.Collections...),
		StartedAt:      time.Now(),
	}

	t.mu.Lock()
	if existing, ok := t.slots[job.Key()]; ok && !finished(existing.State) {
		t.mu.Unlock()
		return nil, ErrJobConflict
	}
	t.slots[job.Key()] = job
	t.byRun[job.RunID] = job
	snapshot := cloneJob(job)
	t.mu.Unlock()

	go t.run(job, req)
	return snapshot, nil
}

// run 执行任务并推进状态机 pending -> running -> {completed | failed}
func (t *JobTracker) run(job *model.FeedJob, req service.GenerateRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	t.transition(job, func(j *model.FeedJob) {
		j.State = model.JobRunning
	})
	logger.L().Infof("任务启动: %s %s (run=%s)", job.StoreURL, job.Type, job.RunID)

	result, err := t.feeds.Generate(ctx, req)

	if err != nil {
		t.transition(job, func(j *model.FeedJob) {
			j.State = model.JobFailed
			// 首个致命错误逐字保留，供状态接口透出
			j.Error = err.Error()
			j.FinishedAt = time.Now()
		})
		logger.L().Errorf("任务失败: %s %s: %v", job.StoreURL, job.Type, err)
	} else {
		t.transition(job, func(j *model.FeedJob) {
			j.State = model.JobCompleted
			j.ArtifactPath = result.ArtifactPath
			j.Summary = &result.Summary
			j.FinishedAt = time.Now()
		})
		logger.L().Infof("任务完成: %s %s -> %s", job.StoreURL, job.Type, result.ArtifactPath)
	}

	t.persist(job)
}

// transition 持锁修改任务字段
func (t *JobTracker) transition(job *model.FeedJob, mutate func(*model.FeedJob)) {
	t.mu.Lock()
	mutate(job)
	t.mu.Unlock()
}

// persist 把结束态任务写入历史表，失败只告警
func (t *JobTracker) persist(job *model.FeedJob) {
	if t.runs == nil {
		return
	}
	t.mu.Lock()
	snapshot := cloneJob(job)
	t.mu.Unlock()

	// 任务 ctx 可能已取消，持久化用独立的短超时
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := t.runs.Record(ctx, snapshot); err != nil {
		logger.L().Warnf("任务历史写入失败 (run=%s): %v", snapshot.RunID, err)
	}
}

// Status 查询某店铺某产出类型的最近一次任务
func (t *JobTracker) Status(storeURL string, feedType model.FeedType) (*model.FeedJob, error) {
	key := utils.StoreHash(utils.NormalizeStoreURL(storeURL)) + ":" + string(feedType)

	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.slots[key]
	if !ok {
		return nil, ErrJobNotFound
	}
	return cloneJob(job), nil
}

// StatusByStore 返回某店铺全部槽位的最近任务
// 同一店铺的 google/bing/zbozi/csv 槽位互相独立，按店铺查询时一并返回
func (t *JobTracker) StatusByStore(storeURL string) []*model.FeedJob {
	storeID := utils.StoreHash(utils.NormalizeStoreURL(storeURL))

	t.mu.Lock()
	defer t.mu.Unlock()

	var jobs []*model.FeedJob
	for _, job := range t.slots {
		if job.StoreID == storeID {
			jobs = append(jobs, cloneJob(job))
		}
	}
	return jobs
}

// StatusByRun 按 RunID 查询任务
func (t *JobTracker) StatusByRun(runID string) (*model.FeedJob, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.byRun[runID]
	if !ok {
		return nil, ErrJobNotFound
	}
	return cloneJob(job), nil
}

// Snapshot 返回全部槽位的任务快照，不阻塞执行中的任务
func (t *JobTracker) Snapshot() []*model.FeedJob {
	t.mu.Lock()
	defer t.mu.Unlock()

	jobs := make([]*model.FeedJob, 0, len(t.slots))
	for _, job := range t.slots {
		jobs = append(jobs, cloneJob(job))
	}
	return jobs
}

func finished(state model.JobState) bool {
	return state == model.JobCompleted || state == model.JobFailed
}

// cloneJob 深拷贝任务，调用方可安全持有
func cloneJob(job *model.FeedJob) *model.FeedJob {
	clone := *job
	clone.Collections = append([]string(nil), job.Collections...)
	if job.Summary != nil {
		summary := *job.Summary
		clone.Summary = &summary
	}
	return &clone
}
