package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"shopify_feeds_v1_202608/pkg/logger"
)

// ==================== 配置 ====================

const (
	// DefaultMaxRetries 默认重试次数 (不含首次请求)
	DefaultMaxRetries = 3

	// DefaultRetryDelay 默认重试间隔
	// 固定间隔而非指数退避：单店铺抓取规模小，不需要防雪崩逻辑
	DefaultRetryDelay = 180 * time.Second

	// DefaultUserAgent 模拟桌面浏览器 UA，部分店铺会拦截裸 UA
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_9_3) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/35.0.1916.47 Safari/537.36"
)

// Config 抓取客户端配置
type Config struct {
	MaxRetries int           // 重试次数上限，总请求数 = MaxRetries + 1
	RetryDelay time.Duration // 重试之间的固定等待
	UserAgent  string
	RatePerSec float64 // 对源站的限速 (req/s)，0 表示不限速
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
		UserAgent:  DefaultUserAgent,
	}
}

// ==================== 客户端 ====================

// Client 针对 Shopify 公开 JSON API 的抓取客户端
// 重试等待只阻塞当前调用方，不影响其它并发请求
type Client struct {
	http    *resty.Client
	cfg     Config
	limiter *rate.Limiter
}

// NewClient 创建抓取客户端
func NewClient(cfg Config) *Client {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	httpClient := resty.New().
		SetTimeout(30 * time.Second).
		SetHeader("User-Agent", cfg.UserAgent)

	c := &Client{http: httpClient, cfg: cfg}
	if cfg.RatePerSec > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1)
	}
	return c
}

// FetchBytes 带重试的 GET 请求，返回响应体
// 连接错误、429、5xx 会重试；其它 4xx 立即返回 StatusError
func (c *Client) FetchBytes(ctx context.Context, url string, params map[string]string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			logger.L().Infof("将在 %s 后重试 %s (第 %d/%d 次重试)", c.cfg.RetryDelay, url, attempt, c.cfg.MaxRetries)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.cfg.RetryDelay):
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		logger.L().Debugf("请求 %s (第 %d/%d 次)", url, attempt+1, c.cfg.MaxRetries+1)
		resp, err := c.http.R().SetContext(ctx).SetQueryParams(params).Get(url)
		if err != nil {
			lastErr = &NetworkError{URL: url, Err: err}
			logger.L().Warnf("请求失败: %v", lastErr)
			continue
		}

		status := resp.StatusCode()
		if status >= 400 {
			statusErr := &StatusError{URL: url, StatusCode: status}
			if !statusErr.Retryable() {
				return nil, statusErr
			}
			lastErr = statusErr
			logger.L().Warnf("请求失败: %v", lastErr)
			continue
		}

		return resp.Body(), nil
	}

	logger.L().Errorf("重试 %d 次后仍然失败: %v", c.cfg.MaxRetries, lastErr)
	return nil, fmt.Errorf("fetch %s failed after %d attempts: %w", url, c.cfg.MaxRetries+1, lastErr)
}

// FetchJSON 带重试的 GET 请求并解析 JSON
func (c *Client) FetchJSON(ctx context.Context, url string, params map[string]string, target interface{}) error {
	body, err := c.FetchBytes(ctx, url, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode response from %s: %w", url, err)
	}
	return nil
}

// ==================== Shopify 端点 ====================

// GetProductsPage 获取一页商品
// collectionHandle 非空时走集合端点
func (c *Client) GetProductsPage(ctx context.Context, storeURL string, page int, collectionHandle string) ([]RawProduct, error) {
	url := fmt.Sprintf("%s/products.json", storeURL)
	if collectionHandle != "" {
		url = fmt.Sprintf("%s/collections/%s/products.json", storeURL, collectionHandle)
	}

	var data ProductsPage
	err := c.FetchJSON(ctx, url, map[string]string{"page": fmt.Sprintf("%d", page)}, &data)
	if err != nil {
		return nil, err
	}
	return data.Products, nil
}

// ListCollections 获取店铺全部集合 (内部翻页)
func (c *Client) ListCollections(ctx context.Context, storeURL string) ([]RawCollection, error) {
	var all []RawCollection
	url := fmt.Sprintf("%s/collections.json", storeURL)

	for page := 1; ; page++ {
		var data CollectionsPage
		err := c.FetchJSON(ctx, url, map[string]string{"page": fmt.Sprintf("%d", page)}, &data)
		if err != nil {
			return nil, err
		}
		if len(data.Collections) == 0 {
			break
		}
		all = append(all, data.Collections...)
	}
	return all, nil
}

// GetShopInfo 探测店铺信息
// 公开 API 没有店铺端点，取首个商品的 vendor 作为店铺名
func (c *Client) GetShopInfo(ctx context.Context, storeURL string) (*ShopInfo, error) {
	var data ProductsPage
	url := fmt.Sprintf("%s/products.json", storeURL)
	if err := c.FetchJSON(ctx, url, map[string]string{"limit": "1"}, &data); err != nil {
		return nil, err
	}

	info := &ShopInfo{URL: storeURL}
	if len(data.Products) > 0 {
		info.Name = data.Products[0].Vendor
	}
	return info, nil
}
