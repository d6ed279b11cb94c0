package service

import (
	"context"
	"fmt"

	"shopify_feeds_v1_202608/internal/model"
	"shopify_feeds_v1_202608/pkg/logger"
	"shopify_feeds_v1_202608/pkg/shopify"
	"shopify_feeds_v1_202608/pkg/utils"
)

// ==================== CatalogService 目录抓取 ====================

// CatalogService 驱动分页抓取并产出规范化目录快照
// 每次 BuildCatalog 都是一次全新抓取 (从第 1 页开始)，调用方应把结果当作独立快照
type CatalogService struct {
	client     *shopify.Client
	normalizer *NormalizerService
}

// NewCatalogService 创建目录服务
func NewCatalogService(client *shopify.Client, normalizer *NormalizerService) *CatalogService {
	return &CatalogService{client: client, normalizer: normalizer}
}

// BuildStats 一次抓取的统计
type BuildStats struct {
	Pages       int // 实际请求的商品页数
	RawProducts int // 抓到的原始记录数 (去重前)
	Duplicates  int // 集合过滤去重丢弃数
	Skipped     int // 归一化丢弃数
}

// BuildCatalog 抓取并归一化整个目录
// collections 非空时逐个集合抓取并按商品 ID 去重 (保留首次出现，后续只追加集合归属)
// 仅当一个商品都没抓到且发生过抓取错误时才视为致命失败
func (s *CatalogService) BuildCatalog(ctx context.Context, storeURL string, collections []string) (*model.Catalog, *BuildStats, error) {
	storeURL = utils.NormalizeStoreURL(storeURL)
	stats := &BuildStats{}

	var raw []shopify.RawProduct
	var fetchErr error

	if len(collections) == 0 {
		raw, fetchErr = s.scrapeSequence(ctx, storeURL, "", stats)
	} else {
		raw, fetchErr = s.scrapeCollections(ctx, storeURL, collections, stats)
	}

	if len(raw) == 0 && fetchErr != nil {
		return nil, stats, fmt.Errorf("store %s unreachable: %w", storeURL, fetchErr)
	}
	if fetchErr != nil {
		// 拿到部分数据后出错：按截断处理，产出部分快照
		logger.L().Warnf("抓取中断，按已获取的 %d 条记录继续: %v", len(raw), fetchErr)
	}

	result := s.normalizer.NormalizeAll(raw)
	stats.Skipped = result.Skipped

	catalog := &model.Catalog{
		StoreURL: storeURL,
		Products: result.Products,
	}

	// 店铺名探测失败不影响目录产出
	if info, err := s.client.GetShopInfo(ctx, storeURL); err == nil {
		catalog.StoreName = info.Name
	}

	logger.L().Infof("目录抓取完成: %d 商品 / %d 变体 (跳过 %d, 去重 %d)",
		len(catalog.Products), catalog.VariantCount(), stats.Skipped, stats.Duplicates)
	return catalog, stats, nil
}

// ListCollections 列出店铺全部集合
func (s *CatalogService) ListCollections(ctx context.Context, storeURL string) ([]shopify.RawCollection, error) {
	return s.client.ListCollections(ctx, utils.NormalizeStoreURL(storeURL))
}

// scrapeSequence 抓取一个分页序列直到空页
func (s *CatalogService) scrapeSequence(ctx context.Context, storeURL, collection string, stats *BuildStats) ([]shopify.RawProduct, error) {
	var all []shopify.RawProduct
	paginator := shopify.NewPaginator(s.client, storeURL, collection)

	for {
		logger.L().Debugf("抓取 %s 第 %d 页", storeURL, paginator.Page())
		products, err := paginator.Next(ctx)
		if err != nil {
			return all, err
		}
		if len(products) == 0 {
			return all, nil
		}
		stats.Pages++
		stats.RawProducts += len(products)
		all = append(all, products...)
	}
}

// scrapeCollections 逐集合抓取并按商品 ID 去重
// 商品出现在多个集合时保留首次出现的记录，仅追加集合归属
func (s *CatalogService) scrapeCollections(ctx context.Context, storeURL string, handles []string, stats *BuildStats) ([]shopify.RawProduct, error) {
	var ordered []shopify.RawProduct
	seen := make(map[int64]int) // product ID -> ordered 下标
	membership := make(map[int64][]string)

	var lastErr error
	for _, handle := range handles {
		logger.L().Infof("抓取集合: %s", handle)
		products, err := s.scrapeSequence(ctx, storeURL, handle, stats)

		for _, p := range products {
			if _, ok := seen[p.ID]; ok {
				stats.Duplicates++
			} else {
				seen[p.ID] = len(ordered)
				ordered = append(ordered, p)
			}
			membership[p.ID] = append(membership[p.ID], handle)
		}

		if err != nil {
			// 单个集合失败不终止整次运行，继续下一个集合
			logger.L().Warnf("集合 %s 抓取失败: %v", handle, err)
			lastErr = err
		}
	}

	// 把集合归属写回原始记录，归一化时带入
	for i := range ordered {
		ordered[i].CollectionHandles = membership[ordered[i].ID]
	}
	return ordered, lastErr
}
