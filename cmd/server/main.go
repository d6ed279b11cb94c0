package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"shopify_feeds_v1_202608/internal/controller"
	"shopify_feeds_v1_202608/internal/feed"
	"shopify_feeds_v1_202608/internal/model"
	"shopify_feeds_v1_202608/internal/repository"
	"shopify_feeds_v1_202608/internal/router"
	"shopify_feeds_v1_202608/internal/service"
	"shopify_feeds_v1_202608/internal/task"
	"shopify_feeds_v1_202608/pkg/database"
	"shopify_feeds_v1_202608/pkg/logger"
	"shopify_feeds_v1_202608/pkg/shopify"
)

func main() {
	// 1. 初始化日志
	if err := logger.Init(getEnvInt("LOG_VERBOSITY", 2), getEnv("LOG_FILE", "")); err != nil {
		panic(err)
	}

	// 2. 初始化数据库
	db := initDatabase()

	// 3. 初始化依赖
	deps := initDependencies(db)

	// 4. 启动定时刷新
	initTasks(deps)

	// 5. 初始化路由
	r := gin.Default()
	router.InitRoutes(r, deps.FeedCtl)

	// 6. 启动服务
	startServer(r, deps)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB      *gorm.DB
	Runs    repository.FeedRunRepo
	Tracker *task.JobTracker
	Refresh *task.RefreshTask
	FeedCtl *controller.FeedController
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库
func initDatabase() *gorm.DB {
	return database.InitDB(
		getEnv("DATABASE_DSN", "feeds.db"),
		&model.FeedRun{},
	)
}

// initDependencies 初始化所有依赖
func initDependencies(db *gorm.DB) *Dependencies {
	feedsDir := getEnv("FEEDS_DIR", "feeds")
	currency := getEnv("FEED_CURRENCY", "CZK")

	// -------- 抓取客户端 --------
	client := shopify.NewClient(shopify.Config{
		MaxRetries: getEnvInt("FETCH_MAX_RETRIES", 3),
		RetryDelay: time.Duration(getEnvInt("FETCH_RETRY_DELAY", 180)) * time.Second,
		RatePerSec: float64(getEnvInt("FETCH_RATE_PER_SEC", 2)),
	})

	// -------- Repo 层 --------
	runs := repository.NewFeedRunRepo(db)

	// -------- Service 层 --------
	catalogSvc := service.NewCatalogService(client, service.NewNormalizerService(currency))
	feedSvc := service.NewFeedService(
		catalogSvc,
		service.NewImageService(client),
		service.NewCsvService(),
		[]feed.Transformer{
			feed.NewGoogleTransformer(currency),
			feed.NewBingTransformer(currency),
			feed.NewZboziTransformer(currency),
		},
		feedsDir,
	)

	// -------- Task 层 --------
	tracker := task.NewJobTracker(feedSvc, runs)
	refresh := task.NewRefreshTask(tracker, runs, getEnv("REFRESH_CRON", ""))

	return &Dependencies{
		DB:      db,
		Runs:    runs,
		Tracker: tracker,
		Refresh: refresh,
		FeedCtl: controller.NewFeedController(tracker, catalogSvc, feedsDir),
	}
}

// ==================== 定时任务 ====================

// initTasks 启动定时刷新任务
func initTasks(deps *Dependencies) {
	if err := deps.Refresh.Start(); err != nil {
		logger.L().Fatalf("定时刷新启动失败: %v", err)
	}
}

// ==================== 服务启动 ====================

// startServer 启动服务
func startServer(r *gin.Engine, deps *Dependencies) {
	port := getEnv("SERVER_PORT", "8080")

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// 异步启动服务
	go func() {
		logger.L().Infof("服务启动在 :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.L().Info("正在关闭服务...")
	deps.Refresh.Stop()

	// 优雅关闭
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.L().Fatalf("服务强制关闭: %v", err)
	}

	logger.L().Info("服务已退出")
}

// ==================== 工具函数 ====================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
