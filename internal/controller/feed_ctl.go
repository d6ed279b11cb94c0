package controller

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"shopify_feeds_v1_202608/internal/api/dto"
	"shopify_feeds_v1_202608/internal/middleware"
	"shopify_feeds_v1_202608/internal/model"
	"shopify_feeds_v1_202608/internal/service"
	"shopify_feeds_v1_202608/internal/task"
	"shopify_feeds_v1_202608/pkg/utils"
)

// FeedController feed 生成与状态查询接口
type FeedController struct {
	tracker    *task.JobTracker
	catalogSvc *service.CatalogService
	feedsDir   string
}

// NewFeedController 创建 feed 控制器
func NewFeedController(tracker *task.JobTracker, catalogSvc *service.CatalogService, feedsDir string) *FeedController {
	return &FeedController{tracker: tracker, catalogSvc: catalogSvc, feedsDir: feedsDir}
}

// ==================== 触发接口 ====================

// TriggerUpdate 触发一次 feed 重新生成
// @Summary 异步触发店铺目录抓取与 feed 生成
// @Tags Feed
// @Accept json
// @Produce json
// @Param body body dto.TriggerFeedReq true "触发参数"
// @Success 202 {object} dto.FeedJobResp
// @Router /api/feeds/update [post]
func (ctrl *FeedController) TriggerUpdate(c *gin.Context) {
	var req dto.TriggerFeedReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"code": 400, "message": "参数错误: " + err.Error()})
		return
	}

	feedType, err := model.ParseFeedType(req.FeedType)
	if err != nil {
		c.JSON(400, gin.H{"code": 400, "message": "无效的 feed_type"})
		return
	}

	storeID := utils.StoreHash(utils.NormalizeStoreURL(req.URL))
	if allowed, retryAfter := middleware.CheckTriggerAllowed(storeID, feedType, 0); !allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"code":    429,
			"message": "该店铺此类型 feed 刚刚生成过",
			"data":    gin.H{"retry_after": int(retryAfter.Seconds())},
		})
		return
	}

	job, err := ctrl.tracker.Submit(service.GenerateRequest{
		StoreURL:       req.URL,
		Type:           feedType,
		Collections:    req.Collections,
		DownloadImages: req.DownloadImages,
	})
	if errors.Is(err, task.ErrJobConflict) {
		c.JSON(http.StatusConflict, gin.H{"code": 409, "message": "同一店铺同类型任务正在执行"})
		return
	}
	if err != nil {
		// 提交失败不应占用冷却窗口
		middleware.ResetTriggerLimit(storeID, feedType)
		c.JSON(500, gin.H{"code": 500, "message": "提交失败: " + err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"code":    0,
		"message": "任务已提交",
		"data":    toJobResp(job),
	})
}

// ==================== 状态接口 ====================

// GetStatus 查询任务状态
// run_id 或 url+feed_type 返回单个任务；仅 url 返回该店铺全部槽位
// @Summary 按 run_id、店铺+类型或店铺查询任务状态
// @Tags Feed
// @Param url query string false "店铺地址"
// @Param feed_type query string false "产出类型，缺省返回该店铺全部槽位"
// @Param run_id query string false "运行 ID"
// @Success 200 {object} dto.FeedJobResp
// @Router /api/feeds/status [get]
func (ctrl *FeedController) GetStatus(c *gin.Context) {
	var job *model.FeedJob
	var err error

	runID := c.Query("run_id")
	storeURL := c.Query("url")
	rawType := c.Query("feed_type")

	switch {
	case runID != "":
		job, err = ctrl.tracker.StatusByRun(runID)
	case storeURL != "" && rawType != "":
		feedType, typeErr := model.ParseFeedType(rawType)
		if typeErr != nil {
			c.JSON(400, gin.H{"code": 400, "message": "无效的 feed_type"})
			return
		}
		job, err = ctrl.tracker.Status(storeURL, feedType)
	case storeURL != "":
		jobs := ctrl.tracker.StatusByStore(storeURL)
		if len(jobs) == 0 {
			c.JSON(404, gin.H{"code": 404, "message": "任务不存在"})
			return
		}
		resp := make([]*dto.FeedJobResp, 0, len(jobs))
		for _, j := range jobs {
			resp = append(resp, toJobResp(j))
		}
		c.JSON(200, gin.H{"code": 0, "message": "success", "data": resp})
		return
	default:
		c.JSON(400, gin.H{"code": 400, "message": "需要 run_id 或 url 参数"})
		return
	}

	if errors.Is(err, task.ErrJobNotFound) {
		c.JSON(404, gin.H{"code": 404, "message": "任务不存在"})
		return
	}

	c.JSON(200, gin.H{"code": 0, "message": "success", "data": toJobResp(job)})
}

// ListJobs 列出全部任务槽位
// @Summary 列出所有店铺的最近任务
// @Tags Feed
// @Success 200 {array} dto.FeedJobResp
// @Router /api/feeds [get]
func (ctrl *FeedController) ListJobs(c *gin.Context) {
	jobs := ctrl.tracker.Snapshot()

	resp := make([]*dto.FeedJobResp, 0, len(jobs))
	for _, job := range jobs {
		resp = append(resp, toJobResp(job))
	}
	c.JSON(200, gin.H{"code": 0, "message": "success", "data": resp})
}

// ==================== 集合接口 ====================

// GetCollections 列出店铺全部集合
// @Summary 列出店铺集合，供触发时选择过滤范围
// @Tags Feed
// @Param url query string true "店铺地址"
// @Success 200 {array} dto.CollectionResp
// @Router /api/collections [get]
func (ctrl *FeedController) GetCollections(c *gin.Context) {
	storeURL := c.Query("url")
	if storeURL == "" {
		c.JSON(400, gin.H{"code": 400, "message": "缺少 url 参数"})
		return
	}

	// 集合列表变化不频繁，短缓存避免前端反复触发远端翻页
	cacheKey := "collections:" + utils.StoreHash(utils.NormalizeStoreURL(storeURL))
	if cached, ok := utils.GetCache(cacheKey); ok {
		c.JSON(200, gin.H{"code": 0, "message": "success", "data": cached})
		return
	}

	collections, err := ctrl.catalogSvc.ListCollections(c.Request.Context(), storeURL)
	if err != nil {
		c.JSON(502, gin.H{"code": 502, "message": "集合查询失败: " + err.Error()})
		return
	}

	resp := make([]dto.CollectionResp, 0, len(collections))
	for _, col := range collections {
		resp = append(resp, dto.CollectionResp{
			Handle:        col.Handle,
			Title:         col.Title,
			ProductsCount: col.ProductsCount,
		})
	}

	utils.SetCache(cacheKey, resp, 10*time.Minute)
	c.JSON(200, gin.H{"code": 0, "message": "success", "data": resp})
}

// ==================== 产物下载 ====================

// DownloadArtifact 下载产物文件
// @Summary 下载已生成的 feed 文件
// @Tags Feed
// @Param filename path string true "产物文件名"
// @Success 200 {file} binary
// @Router /feeds/{filename} [get]
func (ctrl *FeedController) DownloadArtifact(c *gin.Context) {
	filename := c.Param("filename")

	// 只允许下载产物目录第一层的文件
	if filename == "" || strings.ContainsAny(filename, "/\\") || strings.Contains(filename, "..") {
		c.JSON(400, gin.H{"code": 400, "message": "无效的文件名"})
		return
	}

	path := filepath.Join(ctrl.feedsDir, filename)
	if _, err := os.Stat(path); err != nil {
		c.JSON(404, gin.H{"code": 404, "message": "产物不存在"})
		return
	}

	c.File(path)
}

// ==================== 响应转换 ====================

func toJobResp(job *model.FeedJob) *dto.FeedJobResp {
	resp := &dto.FeedJobResp{
		RunID:       job.RunID,
		StoreID:     job.StoreID,
		StoreURL:    job.StoreURL,
		FeedType:    string(job.Type),
		State:       string(job.State),
		Collections: job.Collections,
		Error:       job.Error,
		StartedAt:   job.StartedAt,
	}

	if job.ArtifactPath != "" {
		resp.Artifact = "/feeds/" + filepath.Base(job.ArtifactPath)
	}
	if !job.FinishedAt.IsZero() {
		finished := job.FinishedAt
		resp.FinishedAt = &finished
	}
	if job.Summary != nil {
		resp.Summary = &dto.RunSummaryResp{
			Products:       job.Summary.Products,
			Variants:       job.Summary.Variants,
			SkippedRecords: job.Summary.SkippedRecords,
			FeedItems:      job.Summary.FeedItems,
			FeedSkipped:    job.Summary.FeedSkipped,
			ImagesOK:       job.Summary.ImagesOK,
			ImagesFailed:   job.Summary.ImagesFailed,
		}
	}
	return resp
}
