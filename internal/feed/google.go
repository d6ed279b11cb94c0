package feed

import (
	"encoding/xml"

	"shopify_feeds_v1_202608/internal/model"
	"shopify_feeds_v1_202608/pkg/logger"
	"shopify_feeds_v1_202608/pkg/utils"
)

// ==================== Google Merchant Center ====================

// googleDescriptionLimit Google 对描述长度的建议上限
const googleDescriptionLimit = 5000

// googleRules Google 字段策略表
// 图片是 GMC 硬性要求：缺图整条跳过；可用性与类目缺失走兜底
var googleRules = []FieldRule{
	{Element: "g:id", OnMissing: PolicySkipItem},
	{Element: "title", OnMissing: PolicySkipItem},
	{Element: "link", OnMissing: PolicySkipItem},
	{Element: "g:price", OnMissing: PolicySkipItem},
	{Element: "g:image_link", OnMissing: PolicySkipItem},
	{Element: "g:availability", OnMissing: PolicyDefault, Default: "out of stock"},
	{Element: "g:condition", OnMissing: PolicyDefault, Default: "new"},
	{Element: "g:google_product_category", OnMissing: PolicyDefault, Default: "Home & Garden"},
}

// GoogleTransformer GMC feed 转换器
type GoogleTransformer struct {
	currency string
}

// NewGoogleTransformer 创建 Google 转换器
func NewGoogleTransformer(currency string) *GoogleTransformer {
	return &GoogleTransformer{currency: currency}
}

func (t *GoogleTransformer) PlatformTag() string { return "google" }

// ==================== XML 结构 ====================

type googleFeed struct {
	XMLName xml.Name      `xml:"rss"`
	Version string        `xml:"version,attr"`
	XmlnsG  string        `xml:"xmlns:g,attr"`
	Channel googleChannel `xml:"channel"`
}

type googleChannel struct {
	Title       string       `xml:"title"`
	Link        string       `xml:"link"`
	Description string       `xml:"description"`
	Items       []googleItem `xml:"item"`
}

type googleItem struct {
	ID                    string          `xml:"g:id"`
	ItemGroupID           string          `xml:"g:item_group_id,omitempty"`
	Title                 string          `xml:"title"`
	Description           string          `xml:"description"`
	Link                  string          `xml:"link"`
	ImageLink             string          `xml:"g:image_link"`
	AdditionalImageLinks  []string        `xml:"g:additional_image_link,omitempty"`
	Price                 string          `xml:"g:price"`
	Availability          string          `xml:"g:availability"`
	Condition             string          `xml:"g:condition"`
	Brand                 string          `xml:"g:brand,omitempty"`
	GTIN                  string          `xml:"g:gtin,omitempty"`
	MPN                   string          `xml:"g:mpn,omitempty"`
	IdentifierExists      string          `xml:"g:identifier_exists"`
	ProductType           string          `xml:"g:product_type,omitempty"`
	GoogleProductCategory string          `xml:"g:google_product_category"`
	Shipping              *googleShipping `xml:"g:shipping,omitempty"`
}

type googleShipping struct {
	Country string `xml:"g:country"`
	Service string `xml:"g:service"`
	Price   string `xml:"g:price"`
}

// 默认运费设置，可在 Merchant Center 后台覆盖
var googleDefaultShipping = googleShipping{
	Country: "CZ",
	Service: "Standard",
	Price:   "0 CZK",
}

// ==================== 转换 ====================

// Transform 生成 GMC rss/channel/item 文档
func (t *GoogleTransformer) Transform(catalog *model.Catalog) (*Result, error) {
	channel := googleChannel{
		Title: shopName(catalog),
		Link:  catalog.StoreURL,
	}

	skipped := 0
	for pi := range catalog.Products {
		product := &catalog.Products[pi]
		images := product.ImageURLs()

		for vi := range product.Variants {
			variant := &product.Variants[vi]

			values := map[string]string{
				"g:id":           formatID(variant.ID),
				"title":          variant.DisplayTitle(product.Title),
				"link":           variantLink(catalog.StoreURL, product, variant.ID),
				"g:price":        priceWithCurrency(variant.Price, t.currency),
				"g:image_link":   firstOrEmpty(images),
				"g:availability": googleAvailability(variant.Stock),
				"g:condition":    "new",
			}

			if !applyRules(googleRules, values) {
				skipped++
				logger.L().Debugf("Google feed 跳过变体 %d (必填字段缺失)", variant.ID)
				continue
			}

			item := googleItem{
				ID:                    values["g:id"],
				Title:                 values["title"],
				GoogleProductCategory: values["g:google_product_category"],
				Description:           utils.RemoveHTMLTags(product.Description, googleDescriptionLimit),
				Link:                  values["link"],
				ImageLink:             values["g:image_link"],
				Price:                 values["g:price"],
				Availability:          values["g:availability"],
				Condition:             values["g:condition"],
				Brand:                 product.Vendor,
				ProductType:           product.ProductType,
				IdentifierExists:      "FALSE",
				Shipping:              &googleDefaultShipping,
			}

			if len(product.Variants) > 1 {
				item.ItemGroupID = formatID(product.ID)
			}

			// SKU 同时充当 GTIN 与 MPN；有任一标识时 identifier_exists 置 TRUE
			if variant.SKU != "" {
				item.GTIN = variant.SKU
				item.MPN = variant.SKU
				item.IdentifierExists = "TRUE"
			}

			if len(images) > 1 {
				item.AdditionalImageLinks = images[1:]
			}

			channel.Items = append(channel.Items, item)
		}
	}

	doc, err := marshalDoc(&googleFeed{
		Version: "2.0",
		XmlnsG:  "http://base.google.com/ns/1.0",
		Channel: channel,
	})
	if err != nil {
		return nil, err
	}

	return &Result{XML: doc, Items: len(channel.Items), Skipped: skipped}, nil
}

// googleAvailability GMC 可用性词表
func googleAvailability(stock model.StockStatus) string {
	if stock == model.StockInStock {
		return "in stock"
	}
	return "out of stock"
}
