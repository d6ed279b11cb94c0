package shopify

import (
	"encoding/json"
	"strings"
)

// ==================== Shopify 公开 JSON API 响应 DTO ====================

// ProductsPage /products.json 响应
type ProductsPage struct {
	Products []RawProduct `json:"products"`
}

// CollectionsPage /collections.json 响应
type CollectionsPage struct {
	Collections []RawCollection `json:"collections"`
}

// RawCollection 集合原始数据
type RawCollection struct {
	ID            int64  `json:"id"`
	Handle        string `json:"handle"`
	Title         string `json:"title"`
	ProductsCount int    `json:"products_count"`
}

// RawProduct 商品原始数据
type RawProduct struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Handle      string       `json:"handle"`
	BodyHTML    string       `json:"body_html"`
	Vendor      string       `json:"vendor"`
	ProductType string       `json:"product_type"`
	Tags        Tags         `json:"tags"`
	PublishedAt string       `json:"published_at"`
	CreatedAt   string       `json:"created_at"`
	UpdatedAt   string       `json:"updated_at"`
	Options     []RawOption  `json:"options"`
	Variants    []RawVariant `json:"variants"`
	Images      []RawImage   `json:"images"`

	// CollectionHandles 商品归属的集合 (非 API 字段，集合过滤抓取时由调用方回填)
	CollectionHandles []string `json:"-"`
}

// RawOption 商品选项定义 (如 颜色/尺寸)
type RawOption struct {
	Name string `json:"name"`
}

// RawVariant 变体原始数据
type RawVariant struct {
	ID                  int64   `json:"id"`
	Title               string  `json:"title"`
	SKU                 string  `json:"sku"`
	Price               string  `json:"price"`
	CompareAtPrice      *string `json:"compare_at_price"`
	Available           bool    `json:"available"`
	Grams               int     `json:"grams"`
	Barcode             string  `json:"barcode"`
	WeightUnit          string  `json:"weight_unit"`
	RequiresShipping    bool    `json:"requires_shipping"`
	Taxable             bool    `json:"taxable"`
	InventoryQuantity   *int    `json:"inventory_quantity"`
	InventoryManagement string  `json:"inventory_management"`
	InventoryPolicy     string  `json:"inventory_policy"`
	Option1             string  `json:"option1"`
	Option2             string  `json:"option2"`
	Option3             string  `json:"option3"`
	ImageID             *int64  `json:"image_id"`
}

// RawImage 图片原始数据
type RawImage struct {
	ID         int64   `json:"id"`
	Src        string  `json:"src"`
	Position   int     `json:"position"`
	VariantIDs []int64 `json:"variant_ids"`
}

// ShopInfo 店铺基础信息
// 公开 API 没有店铺信息端点，取第一个商品的 vendor 作为店铺名
type ShopInfo struct {
	Name string
	URL  string
}

// ==================== Tags 兼容解析 ====================

// Tags 商品标签
// 不同店铺主题下 tags 字段可能是字符串 ("a, b") 或数组 (["a","b"])，两种都要兼容
type Tags []string

func (t *Tags) UnmarshalJSON(data []byte) error {
	var asList []string
	if err := json.Unmarshal(data, &asList); err == nil {
		*t = asList
		return nil
	}

	var asString string
	if err := json.Unmarshal(data, &asString); err != nil {
		return err
	}
	if asString == "" {
		*t = nil
		return nil
	}

	parts := strings.Split(asString, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	*t = result
	return nil
}

// Join 以分隔符拼接标签
func (t Tags) Join(sep string) string {
	return strings.Join(t, sep)
}
