package feed

import (
	"encoding/xml"
	"fmt"

	"github.com/shopspring/decimal"

	"shopify_feeds_v1_202608/internal/model"
)

// ==================== Transformer 平台转换器 ====================

// Transformer 把规范化目录转换为某个投放平台的 XML feed
// 目录是只读输入，三个平台的转换器可以并发执行
type Transformer interface {
	// Transform 生成完整 XML 文档
	Transform(catalog *model.Catalog) (*Result, error)
	// PlatformTag 平台标识 (google / bing / zbozi)
	PlatformTag() string
}

// Result 转换结果
type Result struct {
	XML     []byte
	Items   int // 写入 feed 的条目数
	Skipped int // 因平台必填字段缺失被跳过的条目数
}

// ==================== 字段映射表 ====================
// 每个平台用一张数据化的规则表声明字段策略，而不是散落的分支判断
// 平台之间的核心行为差异就体现在这张表里，需逐平台独立测试

// MissingPolicy 字段缺失时的处理策略
type MissingPolicy int

const (
	// PolicySkipItem 缺失则整条跳过 (并计数)
	PolicySkipItem MissingPolicy = iota
	// PolicyDefault 缺失则写入兜底默认值
	PolicyDefault
)

// FieldRule 单个平台字段的映射规则
type FieldRule struct {
	Element   string        // 平台 XML 元素名
	OnMissing MissingPolicy // 缺失策略
	Default   string        // PolicyDefault 时的兜底值
}

// applyRules 按规则表校验并补全条目字段
// 返回 false 表示命中 PolicySkipItem，该条目应被跳过
func applyRules(rules []FieldRule, values map[string]string) bool {
	for _, rule := range rules {
		if values[rule.Element] != "" {
			continue
		}
		switch rule.OnMissing {
		case PolicySkipItem:
			return false
		case PolicyDefault:
			values[rule.Element] = rule.Default
		}
	}
	return true
}

// ==================== 共用工具 ====================

// marshalDoc 序列化为带声明头的 XML 文档
func marshalDoc(v interface{}) ([]byte, error) {
	body, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

// priceWithCurrency "1234.00 CZK" 格式 (Google 要求两位小数)
func priceWithCurrency(d *decimal.Decimal, currency string) string {
	if d == nil {
		return ""
	}
	return d.StringFixed(2) + " " + currency
}

// intPriceWithCurrency "1234 CZK" 格式 (Bing / Zbozi 用整数价)
func intPriceWithCurrency(d *decimal.Decimal, currency string) string {
	if d == nil {
		return ""
	}
	s := fmt.Sprintf("%d", d.IntPart())
	if currency == "" {
		return s
	}
	return s + " " + currency
}

// variantLink 带变体参数的商品链接
func variantLink(storeURL string, p *model.Product, variantID int64) string {
	return fmt.Sprintf("%s?variant=%d", p.URL(storeURL), variantID)
}

// formatID 数字 ID 转字符串
func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return fmt.Sprintf("%d", id)
}

// firstOrEmpty 取首图
func firstOrEmpty(urls []string) string {
	if len(urls) == 0 {
		return ""
	}
	return urls[0]
}

// shopName feed 频道头用的店铺名，探测失败时兜底
func shopName(catalog *model.Catalog) string {
	if catalog.StoreName != "" {
		return catalog.StoreName
	}
	return "E-shop"
}
