package service

import (
	"context"
	"crypto/md5"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"shopify_feeds_v1_202608/internal/model"
	"shopify_feeds_v1_202608/pkg/logger"
	"shopify_feeds_v1_202608/pkg/shopify"
)

// ==================== ImageService 图片下载 ====================

// DefaultImageConcurrency 默认下载并发
const DefaultImageConcurrency = 4

// ImageService 并发下载目录内商品图片
// 复用抓取客户端的重试策略；单张失败只记录，不中断整批
type ImageService struct {
	client *shopify.Client
}

// NewImageService 创建图片下载服务
func NewImageService(client *shopify.Client) *ImageService {
	return &ImageService{client: client}
}

// ImageOutcome 单张图片的下载结果
type ImageOutcome struct {
	URL      string
	Filename string
	Err      error
}

// DownloadReport 整批下载报告
type DownloadReport struct {
	Succeeded int
	Failed    int
	Outcomes  []ImageOutcome
}

// imageRef 待下载图片及其在目录中的全部引用
// 同一 URL 被多个商品/变体引用时只下载一次，结果回填到所有引用处
type imageRef struct {
	url      string
	filename string
	targets  []*model.Image
}

// DownloadAll 下载目录内全部商品图片
// concurrency 限定工作池大小，防止打爆源站；destDir 不存在时自动创建
// 文件名由 (商品 ID, 图片位置) 决定，目录不变时重跑产出完全相同的文件名
func (s *ImageService) DownloadAll(ctx context.Context, catalog *model.Catalog, concurrency int, destDir string) (*DownloadReport, error) {
	if concurrency <= 0 {
		concurrency = DefaultImageConcurrency
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("create images folder %s: %w", destDir, err)
	}

	refs := collectImageRefs(catalog)
	logger.L().Infof("待下载图片 %d 张 (去重后)，并发 %d", len(refs), concurrency)

	report := &DownloadReport{}
	if len(refs) == 0 {
		return report, nil
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)

	for _, ref := range refs {
		wg.Add(1)
		sem <- struct{}{}

		go func(ref *imageRef) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome := s.downloadOne(ctx, ref, destDir)

			mu.Lock()
			report.Outcomes = append(report.Outcomes, outcome)
			if outcome.Err != nil {
				report.Failed++
			} else {
				report.Succeeded++
			}
			done := report.Succeeded + report.Failed
			if done%10 == 0 || done == len(refs) {
				logger.L().Infof("图片下载进度 %d/%d", done, len(refs))
			}
			mu.Unlock()
		}(ref)
	}

	wg.Wait()
	logger.L().Infof("图片下载完成: 成功 %d / 失败 %d", report.Succeeded, report.Failed)
	return report, nil
}

// downloadOne 下载单张图片并回填所有引用
func (s *ImageService) downloadOne(ctx context.Context, ref *imageRef, destDir string) ImageOutcome {
	body, err := s.client.FetchBytes(ctx, ref.url, nil)
	if err != nil {
		logger.L().Warnf("图片下载失败 %s: %v", ref.url, err)
		return ImageOutcome{URL: ref.url, Err: err}
	}

	filePath := filepath.Join(destDir, ref.filename)
	if err := os.WriteFile(filePath, body, 0o644); err != nil {
		return ImageOutcome{URL: ref.url, Err: err}
	}

	hash := fmt.Sprintf("%x", md5.Sum(body))
	for _, img := range ref.targets {
		img.LocalPath = filePath
		img.ContentHash = hash
	}

	logger.L().Debugf("已下载图片: %s", ref.filename)
	return ImageOutcome{URL: ref.url, Filename: ref.filename}
}

// collectImageRefs 收集目录内全部图片并按 URL 去重
// 首次引用决定文件名 (商品 ID + 位置)，保证确定性
func collectImageRefs(catalog *model.Catalog) []*imageRef {
	byURL := make(map[string]*imageRef)
	var ordered []*imageRef

	for pi := range catalog.Products {
		product := &catalog.Products[pi]
		for ii := range product.Images {
			img := &product.Images[ii]
			if img.Src == "" {
				continue
			}

			ref, ok := byURL[img.Src]
			if !ok {
				ref = &imageRef{
					url:      img.Src,
					filename: imageFilename(product.ID, img.Position, img.Src),
				}
				byURL[img.Src] = ref
				ordered = append(ordered, ref)
			}
			ref.targets = append(ref.targets, img)
		}
	}
	return ordered
}

// imageFilename 确定性文件名: <商品ID>_<两位位置><扩展名>
func imageFilename(productID int64, position int, src string) string {
	ext := strings.ToLower(path.Ext(stripQuery(src)))
	if ext == "" || len(ext) > 5 {
		ext = ".jpg"
	}
	return fmt.Sprintf("%d_%02d%s", productID, position, ext)
}

func stripQuery(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		return u[:i]
	}
	return u
}
