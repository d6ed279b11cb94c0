package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ==================== 规范化目录模型 ====================
// 与来源 (Shopify) 和目标 (各投放平台) 均无关的中间表示
// 归一化完成后目录不可变，可被 CSV 导出 / 图片下载 / 三个 feed 转换器并发读取

// StockStatus 库存状态
type StockStatus string

const (
	StockInStock    StockStatus = "in_stock"
	StockOutOfStock StockStatus = "out_of_stock"
)

// Catalog 一次抓取得到的完整目录快照
type Catalog struct {
	StoreURL  string // 规范化后的店铺 URL
	StoreName string // 店铺名 (取首个商品 vendor，可能为空)
	Products  []Product
}

// VariantCount 目录内变体总数
func (c *Catalog) VariantCount() int {
	total := 0
	for i := range c.Products {
		total += len(c.Products[i].Variants)
	}
	return total
}

// Product 规范化商品
// 不变式：目录内 ID 唯一，至少包含一个变体
type Product struct {
	ID          int64
	Title       string
	Description string // 已去除 HTML 标签
	Handle      string
	Vendor      string
	ProductType string
	Tags        []string
	Collections []string // 归属集合 handle (仅集合过滤模式下填充)
	Available   bool
	Variants    []Variant
	Images      []Image
}

// URL 商品详情页地址
func (p *Product) URL(storeURL string) string {
	return fmt.Sprintf("%s/products/%s", storeURL, p.Handle)
}

// ImageURLs 按顺序返回全部图片地址
func (p *Product) ImageURLs() []string {
	urls := make([]string, 0, len(p.Images))
	for i := range p.Images {
		urls = append(urls, p.Images[i].Src)
	}
	return urls
}

// Variant 规范化变体
type Variant struct {
	ID        int64
	ProductID int64 // 父商品引用 (非所有权)
	Title     string
	SKU       string
	Barcode   string

	// 价格为空指针表示"未知" (上游字段缺失或无法解析)
	// 0 是合法的免费商品价格，绝不能与未知混淆
	Price          *decimal.Decimal
	CompareAtPrice *decimal.Decimal
	Currency       string

	Grams            int
	WeightUnit       string
	RequiresShipping bool
	Taxable          bool

	// 库存数量为空指针表示不限库存 (未启用库存跟踪)
	InventoryQty *int
	Stock        StockStatus

	// 变体选项值，与商品 Options 定义一一对应
	Options []OptionValue
}

// OptionValue 变体选项名值对
type OptionValue struct {
	Name  string
	Value string
}

// DisplayTitle 组合商品标题与变体标题
// Shopify 单变体商品的占位标题 "Default Title" 不应出现在输出中
func (v *Variant) DisplayTitle(productTitle string) string {
	if v.Title == "" || v.Title == "Default Title" {
		return productTitle
	}
	return strings.TrimSuffix(fmt.Sprintf("%s - %s", productTitle, v.Title), " - Default Title")
}

// Image 商品图片
// 下载器只负责填充 LocalPath 与 ContentHash，不修改 Src
type Image struct {
	ID         int64
	Src        string
	Position   int
	VariantIDs []int64

	LocalPath   string // 下载后的本地路径，未下载为空
	ContentHash string // 下载内容的 md5，用于去重
}
