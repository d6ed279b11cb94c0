package feed

import (
	"encoding/xml"
	"fmt"
	"strings"

	"shopify_feeds_v1_202608/internal/model"
	"shopify_feeds_v1_202608/pkg/logger"
	"shopify_feeds_v1_202608/pkg/utils"
)

// ==================== Zboží.cz ====================

// zboziDescriptionLimit Zboží 描述长度上限
const zboziDescriptionLimit = 5000

// zboziHandlePrefixLen PRODUCTNO 兜底值取 handle 的前缀长度
const zboziHandlePrefixLen = 10

// zboziRules Zboží 字段策略表
// PRODUCTNO 缺失时按 handle 生成，DELIVERY_DATE 按库存状态必定有值
var zboziRules = []FieldRule{
	{Element: "ITEM_ID", OnMissing: PolicySkipItem},
	{Element: "PRODUCTNAME", OnMissing: PolicySkipItem},
	{Element: "URL", OnMissing: PolicySkipItem},
	{Element: "PRICE_VAT", OnMissing: PolicySkipItem},
}

// ZboziTransformer Zboží.cz feed 转换器
type ZboziTransformer struct {
	currency string
}

// NewZboziTransformer 创建 Zboží 转换器
func NewZboziTransformer(currency string) *ZboziTransformer {
	return &ZboziTransformer{currency: currency}
}

func (t *ZboziTransformer) PlatformTag() string { return "zbozi" }

// ==================== XML 结构 ====================

type zboziShop struct {
	XMLName         xml.Name    `xml:"SHOP"`
	Xmlns           string      `xml:"xmlns,attr"`
	ShopName        string      `xml:"SHOP_NAME"`
	ShopDescription string      `xml:"SHOP_DESCRIPTION"`
	ShopURL         string      `xml:"SHOP_URL"`
	Items           []zboziItem `xml:"SHOPITEM"`
}

type zboziItem struct {
	ItemID             string          `xml:"ITEM_ID"`
	ItemGroupID        string          `xml:"ITEMGROUP_ID,omitempty"`
	ProductName        string          `xml:"PRODUCTNAME"`
	Product            string          `xml:"PRODUCT,omitempty"`
	Description        string          `xml:"DESCRIPTION,omitempty"`
	URL                string          `xml:"URL"`
	ImgURL             string          `xml:"IMGURL,omitempty"`
	ImgURLAlternatives []string        `xml:"IMGURL_ALTERNATIVE,omitempty"`
	PriceVAT           string          `xml:"PRICE_VAT"`
	PriceBeforeDisc    string          `xml:"PRICE_BEFORE_DISCOUNT,omitempty"`
	ProductNo          string          `xml:"PRODUCTNO"`
	EAN                string          `xml:"EAN,omitempty"`
	Manufacturer       string          `xml:"MANUFACTURER,omitempty"`
	Brand              string          `xml:"BRAND,omitempty"`
	CategoryText       string          `xml:"CATEGORYTEXT,omitempty"`
	Condition          string          `xml:"CONDITION"`
	DeliveryDate       string          `xml:"DELIVERY_DATE"`
	Params             []zboziParam    `xml:"PARAM,omitempty"`
	Deliveries         []zboziDelivery `xml:"DELIVERY,omitempty"`
}

type zboziParam struct {
	Name  string `xml:"PARAM_NAME"`
	Value string `xml:"VAL"`
}

type zboziDelivery struct {
	ID       string `xml:"DELIVERY_ID"`
	Price    string `xml:"DELIVERY_PRICE"`
	PriceCOD string `xml:"DELIVERY_PRICE_COD"`
}

// 默认配送方式，价格单位为店铺币种
var zboziDefaultDeliveries = []zboziDelivery{
	{ID: "ZASILKOVNA", Price: "59", PriceCOD: "0"},
	{ID: "PPL", Price: "59", PriceCOD: "0"},
}

// ==================== 转换 ====================

// Transform 生成 Zboží SHOP/SHOPITEM 文档
func (t *ZboziTransformer) Transform(catalog *model.Catalog) (*Result, error) {
	doc := zboziShop{
		Xmlns:    "http://www.zbozi.cz/ns/offer/1.0",
		ShopName: shopName(catalog),
		ShopURL:  catalog.StoreURL,
	}

	skipped := 0
	for pi := range catalog.Products {
		product := &catalog.Products[pi]
		images := product.ImageURLs()

		for vi := range product.Variants {
			variant := &product.Variants[vi]

			values := map[string]string{
				"ITEM_ID":       formatID(variant.ID),
				"PRODUCTNAME":   variant.DisplayTitle(product.Title),
				"URL":           variantLink(catalog.StoreURL, product, variant.ID),
				"PRICE_VAT":     intPriceWithCurrency(variant.Price, ""),
				"DELIVERY_DATE": zboziDeliveryDate(variant.Stock),
			}

			if !applyRules(zboziRules, values) {
				skipped++
				logger.L().Debugf("Zboží feed 跳过变体 %d (必填字段缺失)", variant.ID)
				continue
			}

			item := zboziItem{
				ItemID:          values["ITEM_ID"],
				ItemGroupID:     formatID(product.ID),
				ProductName:     values["PRODUCTNAME"],
				Product:         product.Title,
				Description:     utils.RemoveHTMLTags(product.Description, zboziDescriptionLimit),
				URL:             values["URL"],
				ImgURL:          firstOrEmpty(images),
				PriceVAT:        values["PRICE_VAT"],
				PriceBeforeDisc: intPriceWithCurrency(variant.CompareAtPrice, ""),
				ProductNo:       zboziProductNo(variant.SKU, product.Handle),
				EAN:             variant.Barcode,
				Manufacturer:    product.Vendor,
				Brand:           product.Vendor,
				CategoryText:    product.ProductType,
				Condition:       "new",
				DeliveryDate:    values["DELIVERY_DATE"],
				Params:          zboziParams(product, variant),
				Deliveries:      zboziDefaultDeliveries,
			}
			if len(images) > 1 {
				item.ImgURLAlternatives = images[1:]
			}

			doc.Items = append(doc.Items, item)
		}
	}

	body, err := marshalDoc(&doc)
	if err != nil {
		return nil, err
	}

	return &Result{XML: body, Items: len(doc.Items), Skipped: skipped}, nil
}

// zboziProductNo 商品编号，SKU 缺失时按 handle 生成
func zboziProductNo(sku, handle string) string {
	if sku != "" {
		return sku
	}
	prefix := handle
	if len(prefix) > zboziHandlePrefixLen {
		prefix = prefix[:zboziHandlePrefixLen]
	}
	return "MM-" + strings.ToUpper(prefix)
}

// zboziDeliveryDate 有货立发 (0)，缺货按补货周期报 14 天
func zboziDeliveryDate(stock model.StockStatus) string {
	if stock == model.StockInStock {
		return "0"
	}
	return "14"
}

// zboziParams 变体选项 + 重量 + 可用性拼装为 PARAM 块
func zboziParams(p *model.Product, v *model.Variant) []zboziParam {
	var params []zboziParam

	for _, opt := range v.Options {
		params = append(params, zboziParam{Name: opt.Name, Value: opt.Value})
	}

	if v.Grams > 0 {
		params = append(params, zboziParam{
			Name:  "Hmotnost",
			Value: fmt.Sprintf("%.2f kg", float64(v.Grams)/1000),
		})
	}

	availability := "skladem"
	if v.Stock != model.StockInStock {
		availability = "na objednávku"
	}
	params = append(params, zboziParam{Name: "Dostupnost", Value: availability})

	return params
}
