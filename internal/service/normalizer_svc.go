package service

import (
	"errors"

	"github.com/shopspring/decimal"

	"shopify_feeds_v1_202608/internal/model"
	"shopify_feeds_v1_202608/pkg/logger"
	"shopify_feeds_v1_202608/pkg/shopify"
	"shopify_feeds_v1_202608/pkg/utils"
)

// ==================== 归一化错误 ====================

var (
	// ErrMissingIdentifier 结构性缺失：商品没有 ID
	ErrMissingIdentifier = errors.New("product missing identifier")
	// ErrMissingTitle 结构性缺失：商品没有标题
	ErrMissingTitle = errors.New("product missing title")
	// ErrNoVariants 商品不含任何变体
	ErrNoVariants = errors.New("product has no variants")
)

// ==================== NormalizerService 商品归一化 ====================

// NormalizerService 把上游原始商品数据映射为规范化模型
// 纯计算，不发请求；单条记录失败只丢弃该记录，不中断整次运行
type NormalizerService struct {
	currency string
}

// NewNormalizerService 创建归一化服务
// currency: 上游价格未携带币种，由配置注入
func NewNormalizerService(currency string) *NormalizerService {
	return &NormalizerService{currency: currency}
}

// NormalizeResult 批量归一化结果
type NormalizeResult struct {
	Products []model.Product
	Skipped  int // 因结构性缺失被丢弃的记录数
}

// NormalizeAll 批量归一化
// 丢弃的记录记录原因后跳过，不致命
func (s *NormalizerService) NormalizeAll(raw []shopify.RawProduct) NormalizeResult {
	result := NormalizeResult{Products: make([]model.Product, 0, len(raw))}

	for i := range raw {
		product, err := s.Normalize(&raw[i])
		if err != nil {
			result.Skipped++
			logger.L().Warnf("丢弃商品记录 (id=%d): %v", raw[i].ID, err)
			continue
		}
		result.Products = append(result.Products, *product)
	}
	return result
}

// Normalize 归一化单个商品
func (s *NormalizerService) Normalize(raw *shopify.RawProduct) (*model.Product, error) {
	if raw.ID == 0 {
		return nil, ErrMissingIdentifier
	}
	if raw.Title == "" {
		return nil, ErrMissingTitle
	}
	if len(raw.Variants) == 0 {
		return nil, ErrNoVariants
	}

	product := &model.Product{
		ID:          raw.ID,
		Title:       raw.Title,
		Description: utils.RemoveHTMLTags(raw.BodyHTML, 0),
		Handle:      raw.Handle,
		Vendor:      raw.Vendor,
		ProductType: raw.ProductType,
		Tags:        raw.Tags,
		Collections: raw.CollectionHandles,
	}

	// 图片按来源顺序平铺 (商品级图片已含变体图，变体仅通过 image_id 引用)
	product.Images = make([]model.Image, 0, len(raw.Images))
	for i := range raw.Images {
		img := &raw.Images[i]
		position := img.Position
		if position == 0 {
			position = i + 1
		}
		product.Images = append(product.Images, model.Image{
			ID:         img.ID,
			Src:        img.Src,
			Position:   position,
			VariantIDs: img.VariantIDs,
		})
	}

	product.Variants = make([]model.Variant, 0, len(raw.Variants))
	for i := range raw.Variants {
		variant := s.normalizeVariant(raw, &raw.Variants[i])
		if variant.Stock == model.StockInStock {
			product.Available = true
		}
		product.Variants = append(product.Variants, variant)
	}

	return product, nil
}

func (s *NormalizerService) normalizeVariant(raw *shopify.RawProduct, rv *shopify.RawVariant) model.Variant {
	variant := model.Variant{
		ID:               rv.ID,
		ProductID:        raw.ID,
		Title:            rv.Title,
		SKU:              rv.SKU,
		Barcode:          rv.Barcode,
		Price:            parsePrice(rv.Price),
		Currency:         s.currency,
		Grams:            rv.Grams,
		WeightUnit:       rv.WeightUnit,
		RequiresShipping: rv.RequiresShipping,
		Taxable:          rv.Taxable,
		Stock:            deriveStock(rv),
		Options:          pairOptions(raw.Options, rv),
	}

	if rv.CompareAtPrice != nil {
		variant.CompareAtPrice = parsePrice(*rv.CompareAtPrice)
	}

	// 仅跟踪库存的变体携带数量；未跟踪 = 不限库存哨兵 (nil)
	if rv.InventoryManagement != "" && rv.InventoryQuantity != nil {
		qty := *rv.InventoryQuantity
		variant.InventoryQty = &qty
	}

	return variant
}

// parsePrice 解析价格字段
// 解析失败返回 nil ("未知" 哨兵)，绝不静默落到 0：0 是合法的免费商品价格
func parsePrice(s string) *decimal.Decimal {
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return nil
	}
	return &d
}

// deriveStock 推导库存状态
// 跟踪库存且数量 <= 0 视为缺货；未跟踪默认有货，
// 除非显式关闭了"缺货继续售卖"且数量 <= 0
func deriveStock(rv *shopify.RawVariant) model.StockStatus {
	tracked := rv.InventoryManagement != ""
	continueSelling := rv.InventoryPolicy == "continue"

	if tracked {
		if rv.InventoryQuantity != nil {
			if *rv.InventoryQuantity <= 0 && !continueSelling {
				return model.StockOutOfStock
			}
			return model.StockInStock
		}
		// 数量缺失时退回上游的可售标记
		if !rv.Available {
			return model.StockOutOfStock
		}
		return model.StockInStock
	}

	if rv.InventoryPolicy == "deny" && rv.InventoryQuantity != nil && *rv.InventoryQuantity <= 0 {
		return model.StockOutOfStock
	}
	return model.StockInStock
}

// pairOptions 把变体选项值与商品选项定义配对
func pairOptions(defs []shopify.RawOption, rv *shopify.RawVariant) []model.OptionValue {
	values := []string{rv.Option1, rv.Option2, rv.Option3}
	var options []model.OptionValue

	for i, value := range values {
		if value == "" {
			continue
		}
		name := "Variant"
		if i < len(defs) && defs[i].Name != "" {
			name = defs[i].Name
		}
		options = append(options, model.OptionValue{Name: name, Value: value})
	}
	return options
}
