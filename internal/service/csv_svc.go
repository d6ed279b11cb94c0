package service

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"shopify_feeds_v1_202608/internal/model"
)

// ==================== CsvService 表格导出 ====================

// CsvHeaders 固定列集与顺序，下游工具依赖此顺序，不要调整
var CsvHeaders = []string{
	"PRODUCT_ID", "TITLE", "DESCRIPTION", "VENDOR", "PRODUCT_TYPE", "COLLECTIONS",
	"VARIANT_ID", "SKU", "PRICE", "COMPARE_AT_PRICE", "STOCK_STATUS", "IMAGE_URLS",
}

// CsvService 把规范化目录导出为 CSV
// 每个变体一行，父商品字段反规范化随行携带
type CsvService struct{}

// NewCsvService 创建 CSV 导出服务
func NewCsvService() *CsvService {
	return &CsvService{}
}

// Export 生成数据行 (不含表头)
func (s *CsvService) Export(catalog *model.Catalog) [][]string {
	var rows [][]string

	for pi := range catalog.Products {
		product := &catalog.Products[pi]
		imageURLs := strings.Join(product.ImageURLs(), ",")
		collections := strings.Join(product.Collections, ",")

		for vi := range product.Variants {
			variant := &product.Variants[vi]
			rows = append(rows, []string{
				fmt.Sprintf("%d", product.ID),
				product.Title,
				product.Description,
				product.Vendor,
				product.ProductType,
				collections,
				fmt.Sprintf("%d", variant.ID),
				variant.SKU,
				formatDecimal(variant.Price),
				formatDecimal(variant.CompareAtPrice),
				string(variant.Stock),
				imageURLs,
			})
		}
	}
	return rows
}

// WriteFile 导出目录到 CSV 文件 (含表头)
func (s *CsvService) WriteFile(catalog *model.Catalog, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(CsvHeaders); err != nil {
		return err
	}
	if err := w.WriteAll(s.Export(catalog)); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// formatDecimal 价格格式化；未知价格输出空串而不是 0
func formatDecimal(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.StringFixed(2)
}
