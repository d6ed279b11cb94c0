package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"shopify_feeds_v1_202608/internal/feed"
	"shopify_feeds_v1_202608/internal/model"
	"shopify_feeds_v1_202608/pkg/logger"
	"shopify_feeds_v1_202608/pkg/utils"
)

// ==================== FeedService 流水线编排 ====================

// FeedService 串起单次产出流水线:
// 抓取目录 -> 转换 (或 CSV 导出) -> 落盘产物 -> 可选图片下载
type FeedService struct {
	catalog      *CatalogService
	images       *ImageService
	csv          *CsvService
	transformers map[model.FeedType]feed.Transformer
	feedsDir     string
}

// NewFeedService 创建流水线服务
// feedsDir 是产物根目录，不存在时首次产出自动创建
func NewFeedService(catalog *CatalogService, images *ImageService, csv *CsvService,
	transformers []feed.Transformer, feedsDir string) *FeedService {

	byType := make(map[model.FeedType]feed.Transformer, len(transformers))
	for _, tr := range transformers {
		byType[model.FeedType(tr.PlatformTag())] = tr
	}

	return &FeedService{
		catalog:      catalog,
		images:       images,
		csv:          csv,
		transformers: byType,
		feedsDir:     feedsDir,
	}
}

// GenerateRequest 单次产出请求
type GenerateRequest struct {
	StoreURL         string
	Type             model.FeedType
	Collections      []string
	DownloadImages   bool
	ImageConcurrency int
}

// GenerateResult 单次产出结果
type GenerateResult struct {
	ArtifactPath string
	Summary      model.RunSummary
}

// ArtifactName 产物文件名: <店铺短哈希>_<类型><扩展名>
// 同一店铺同一类型的新产出原子覆盖旧产物
func ArtifactName(storeURL string, feedType model.FeedType) string {
	return utils.StoreHash(utils.NormalizeStoreURL(storeURL)) + "_" + string(feedType) + feedType.Ext()
}

// ArtifactPath 产物完整路径
func (s *FeedService) ArtifactPath(storeURL string, feedType model.FeedType) string {
	return filepath.Join(s.feedsDir, ArtifactName(storeURL, feedType))
}

// Generate 执行完整产出流水线
// 图片下载失败不影响产物生成，仅计入摘要
func (s *FeedService) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	catalog, stats, err := s.catalog.BuildCatalog(ctx, req.StoreURL, req.Collections)
	if err != nil {
		return nil, err
	}

	summary := model.RunSummary{
		Products:       len(catalog.Products),
		Variants:       catalog.VariantCount(),
		SkippedRecords: stats.Skipped,
	}

	if err := os.MkdirAll(s.feedsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create feeds folder %s: %w", s.feedsDir, err)
	}
	artifactPath := s.ArtifactPath(req.StoreURL, req.Type)

	if req.Type == model.FeedCSV {
		if err := s.csv.WriteFile(catalog, artifactPath); err != nil {
			return nil, err
		}
		summary.FeedItems = summary.Variants
	} else {
		transformer, ok := s.transformers[req.Type]
		if !ok {
			return nil, fmt.Errorf("no transformer for feed type %q", req.Type)
		}

		result, err := transformer.Transform(catalog)
		if err != nil {
			return nil, fmt.Errorf("transform %s feed: %w", req.Type, err)
		}
		if err := writeAtomic(artifactPath, result.XML); err != nil {
			return nil, err
		}
		summary.FeedItems = result.Items
		summary.FeedSkipped = result.Skipped
	}

	logger.L().Infof("产物已生成: %s (%d 条)", artifactPath, summary.FeedItems)

	// 仅 Google 与 CSV 产出需要图片本地化
	if req.DownloadImages && (req.Type == model.FeedGoogle || req.Type == model.FeedCSV) {
		imagesDir := filepath.Join(s.feedsDir, "images", utils.StoreHash(catalog.StoreURL))
		report, err := s.images.DownloadAll(ctx, catalog, req.ImageConcurrency, imagesDir)
		if err != nil {
			logger.L().Warnf("图片下载未能执行: %v", err)
		} else {
			summary.ImagesOK = report.Succeeded
			summary.ImagesFailed = report.Failed
		}
	}

	return &GenerateResult{ArtifactPath: artifactPath, Summary: summary}, nil
}

// writeAtomic 先写临时文件再改名，避免读端看到半截产物
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write artifact %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("publish artifact %s: %w", path, err)
	}
	return nil
}
