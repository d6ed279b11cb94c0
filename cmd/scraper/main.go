package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"shopify_feeds_v1_202608/internal/feed"
	"shopify_feeds_v1_202608/internal/model"
	"shopify_feeds_v1_202608/internal/service"
	"shopify_feeds_v1_202608/pkg/logger"
	"shopify_feeds_v1_202608/pkg/shopify"
	"shopify_feeds_v1_202608/pkg/utils"
)

// 独立抓取模式：不起 HTTP 服务，一次抓取 -> CSV (+可选 feed / 图片) 后退出
// 退出码仅在无法产出任何结果时非零，局部失败只体现在摘要里
func main() {
	app := &cli.App{
		Name:      "scraper",
		Usage:     "抓取 Shopify 店铺目录并导出 CSV 与投放平台 feed",
		ArgsUsage: "<store-url>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "collection",
				Aliases: []string{"c"},
				Usage:   "集合 handle，可多次指定；不指定则抓取全量目录",
			},
			&cli.StringFlag{
				Name:    "output-folder",
				Aliases: []string{"o"},
				Value:   "output",
				Usage:   "产物输出目录",
			},
			&cli.StringFlag{
				Name:    "csv-filename",
				Aliases: []string{"f"},
				Value:   "products.csv",
				Usage:   "CSV 文件名",
			},
			&cli.StringSliceFlag{
				Name:    "feed",
				Aliases: []string{"t"},
				Usage:   "附加生成的平台 feed (google/bing/zbozi)，可多次指定",
			},
			&cli.BoolFlag{
				Name:    "images",
				Aliases: []string{"i"},
				Usage:   "下载商品图片到输出目录",
			},
			&cli.StringFlag{
				Name:    "log-filename",
				Aliases: []string{"l"},
				Usage:   "日志文件路径，为空只输出到控制台",
			},
			&cli.IntFlag{
				Name:    "max-retries",
				Aliases: []string{"r"},
				Value:   3,
				Usage:   "单个请求的最大重试次数",
			},
			&cli.IntFlag{
				Name:    "retry-delay",
				Aliases: []string{"d"},
				Value:   180,
				Usage:   "重试间隔 (秒)",
			},
			&cli.IntFlag{
				Name:    "verbosity",
				Aliases: []string{"v"},
				Value:   2,
				Usage:   "日志级别 1=error 2=info 3=debug",
			},
			&cli.StringFlag{
				Name:  "currency",
				Value: "CZK",
				Usage: "feed 价格币种",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("需要且仅需要一个店铺地址参数", 2)
	}
	storeURL := c.Args().First()

	if err := logger.Init(c.Int("verbosity"), c.String("log-filename")); err != nil {
		return cli.Exit(fmt.Sprintf("日志初始化失败: %v", err), 1)
	}

	// Ctrl-C 中止当前抓取
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	currency := c.String("currency")
	client := shopify.NewClient(shopify.Config{
		MaxRetries: c.Int("max-retries"),
		RetryDelay: time.Duration(c.Int("retry-delay")) * time.Second,
	})
	catalogSvc := service.NewCatalogService(client, service.NewNormalizerService(currency))

	// 1. 抓取目录 (致命失败在这里退出)
	catalog, stats, err := catalogSvc.BuildCatalog(ctx, storeURL, c.StringSlice("collection"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("抓取失败: %v", err), 1)
	}

	outDir := c.String("output-folder")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return cli.Exit(fmt.Sprintf("创建输出目录失败: %v", err), 1)
	}

	// 2. CSV 导出
	csvPath := filepath.Join(outDir, c.String("csv-filename"))
	if err := service.NewCsvService().WriteFile(catalog, csvPath); err != nil {
		return cli.Exit(fmt.Sprintf("CSV 导出失败: %v", err), 1)
	}
	logger.L().Infof("CSV 已导出: %s", csvPath)

	// 3. 可选平台 feed
	for _, name := range c.StringSlice("feed") {
		feedType, err := model.ParseFeedType(name)
		if err != nil || feedType == model.FeedCSV {
			logger.L().Warnf("忽略未知平台: %q", name)
			continue
		}
		if err := writeFeed(catalog, feedType, currency, outDir); err != nil {
			logger.L().Errorf("%s feed 生成失败: %v", feedType, err)
		}
	}

	// 4. 可选图片下载
	imagesFailed := 0
	if c.Bool("images") {
		report, err := service.NewImageService(client).
			DownloadAll(ctx, catalog, service.DefaultImageConcurrency, filepath.Join(outDir, "images"))
		if err != nil {
			logger.L().Errorf("图片下载未能执行: %v", err)
		} else {
			imagesFailed = report.Failed
		}
	}

	logger.L().Infof("店铺 %s 运行摘要: %d 商品 / %d 变体, 丢弃 %d 条记录, 图片失败 %d",
		utils.StoreName(storeURL), len(catalog.Products), catalog.VariantCount(), stats.Skipped, imagesFailed)
	return nil
}

// writeFeed 生成单个平台 feed 到输出目录
func writeFeed(catalog *model.Catalog, feedType model.FeedType, currency, outDir string) error {
	var transformer feed.Transformer
	switch feedType {
	case model.FeedGoogle:
		transformer = feed.NewGoogleTransformer(currency)
	case model.FeedBing:
		transformer = feed.NewBingTransformer(currency)
	case model.FeedZbozi:
		transformer = feed.NewZboziTransformer(currency)
	}

	result, err := transformer.Transform(catalog)
	if err != nil {
		return err
	}

	name := utils.StoreHash(catalog.StoreURL) + "_" + string(feedType) + feedType.Ext()
	path := filepath.Join(outDir, name)
	if err := os.WriteFile(path, result.XML, 0o644); err != nil {
		return err
	}

	logger.L().Infof("%s feed 已生成: %s (%d 条, 跳过 %d)", feedType, path, result.Items, result.Skipped)
	return nil
}
