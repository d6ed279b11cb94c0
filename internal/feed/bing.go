package feed

import (
	"encoding/xml"
	"fmt"

	"shopify_feeds_v1_202608/internal/model"
	"shopify_feeds_v1_202608/pkg/logger"
	"shopify_feeds_v1_202608/pkg/utils"
)

// ==================== Bing Shopping ====================

// bingDescriptionLimit Bing 描述长度上限
const bingDescriptionLimit = 10000

// bingRules Bing 字段策略表
// 与 Google 的关键差异：图片可选，缺图不跳条目
var bingRules = []FieldRule{
	{Element: "ProductID", OnMissing: PolicySkipItem},
	{Element: "Title", OnMissing: PolicySkipItem},
	{Element: "Link", OnMissing: PolicySkipItem},
	{Element: "Price", OnMissing: PolicySkipItem},
	{Element: "Availability", OnMissing: PolicyDefault, Default: "Out of Stock"},
	{Element: "Condition", OnMissing: PolicyDefault, Default: "New"},
}

// BingTransformer Bing Shopping feed 转换器
type BingTransformer struct {
	currency string
}

// NewBingTransformer 创建 Bing 转换器
func NewBingTransformer(currency string) *BingTransformer {
	return &BingTransformer{currency: currency}
}

func (t *BingTransformer) PlatformTag() string { return "bing" }

// ==================== XML 结构 ====================

type bingCatalog struct {
	XMLName     xml.Name      `xml:"Catalog"`
	Title       string        `xml:"Title"`
	Description string        `xml:"Description"`
	Link        string        `xml:"Link"`
	Products    []bingProduct `xml:"Product"`
}

type bingProduct struct {
	ProductID            string        `xml:"ProductID"`
	Title                string        `xml:"Title"`
	Description          string        `xml:"Description,omitempty"`
	Link                 string        `xml:"Link"`
	Price                string        `xml:"Price"`
	SalePrice            string        `xml:"SalePrice,omitempty"`
	Availability         string        `xml:"Availability"`
	Condition            string        `xml:"Condition"`
	Brand                string        `xml:"Brand,omitempty"`
	MPN                  string        `xml:"MPN,omitempty"`
	GTIN                 string        `xml:"GTIN,omitempty"`
	ImageLink            string        `xml:"ImageLink,omitempty"`
	AdditionalImageLinks []string      `xml:"AdditionalImageLink,omitempty"`
	ProductType          string        `xml:"ProductType,omitempty"`
	ItemGroupID          string        `xml:"ItemGroupID,omitempty"`
	ShippingWeight       string        `xml:"ShippingWeight,omitempty"`
	Shipping             *bingShipping `xml:"Shipping,omitempty"`
}

type bingShipping struct {
	Service string `xml:"Service"`
	Country string `xml:"Country"`
	Price   string `xml:"Price"`
}

// ==================== 转换 ====================

// Transform 生成 Bing Catalog/Product 文档
func (t *BingTransformer) Transform(catalog *model.Catalog) (*Result, error) {
	doc := bingCatalog{
		Title: shopName(catalog),
		Link:  catalog.StoreURL,
	}
	// 默认配送：PPL 国内免运费
	shipping := bingShipping{Service: "PPL", Country: "CZ", Price: "0 " + t.currency}

	skipped := 0
	for pi := range catalog.Products {
		product := &catalog.Products[pi]
		images := product.ImageURLs()

		for vi := range product.Variants {
			variant := &product.Variants[vi]

			values := map[string]string{
				"ProductID":    formatID(variant.ID),
				"Title":        variant.DisplayTitle(product.Title),
				"Link":         variantLink(catalog.StoreURL, product, variant.ID),
				"Price":        intPriceWithCurrency(variant.Price, t.currency),
				"Availability": bingAvailability(variant.Stock),
				"Condition":    "New",
			}

			if !applyRules(bingRules, values) {
				skipped++
				logger.L().Debugf("Bing feed 跳过变体 %d (必填字段缺失)", variant.ID)
				continue
			}

			item := bingProduct{
				ProductID:    values["ProductID"],
				Title:        values["Title"],
				Description:  utils.RemoveHTMLTags(product.Description, bingDescriptionLimit),
				Link:         values["Link"],
				Price:        values["Price"],
				SalePrice:    intPriceWithCurrency(variant.CompareAtPrice, t.currency),
				Availability: values["Availability"],
				Condition:    values["Condition"],
				Brand:        product.Vendor,
				MPN:          variant.SKU,
				GTIN:         variant.Barcode,
				ImageLink:    firstOrEmpty(images),
				ProductType:  product.ProductType,
				ItemGroupID:  formatID(product.ID),
				Shipping:     &shipping,
			}
			if len(images) > 1 {
				item.AdditionalImageLinks = images[1:]
			}
			if variant.Grams > 0 {
				item.ShippingWeight = fmt.Sprintf("%.2f kg", float64(variant.Grams)/1000)
			}
			doc.Products = append(doc.Products, item)
		}
	}

	body, err := marshalDoc(&doc)
	if err != nil {
		return nil, err
	}

	return &Result{XML: body, Items: len(doc.Products), Skipped: skipped}, nil
}

// bingAvailability Bing 可用性词表
func bingAvailability(stock model.StockStatus) string {
	if stock == model.StockInStock {
		return "In Stock"
	}
	return "Out of Stock"
}
