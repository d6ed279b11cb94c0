package feed

import (
	"encoding/xml"
	"testing"
)

func TestZboziTransform(t *testing.T) {
	result, err := NewZboziTransformer("CZK").Transform(testCatalog())
	if err != nil {
		t.Fatalf("转换失败: %v", err)
	}
	assertWellFormed(t, result.XML)

	var doc zboziShop
	if err := xml.Unmarshal(result.XML, &doc); err != nil {
		t.Fatalf("回读失败: %v", err)
	}

	if doc.ShopName != "Demo Store" {
		t.Fatalf("SHOP_NAME 错误: %q", doc.ShopName)
	}

	// 无图商品保留，价格未知商品跳过
	if len(doc.Items) != 3 {
		t.Fatalf("期望写入 3 条, got %d", len(doc.Items))
	}
	if result.Skipped != 1 {
		t.Fatalf("期望跳过 1 条, got %d", result.Skipped)
	}

	byID := make(map[string]zboziItem)
	for _, it := range doc.Items {
		byID[it.ItemID] = it
	}

	blue := byID["1001"]
	if blue.PriceVAT != "1234" {
		t.Fatalf("PRICE_VAT 应为不带币种的整数, got %q", blue.PriceVAT)
	}
	if blue.ProductNo != "MUG-BLUE" {
		t.Fatalf("有 SKU 时 PRODUCTNO 应取 SKU: %q", blue.ProductNo)
	}
	if blue.DeliveryDate != "0" {
		t.Fatalf("有货变体 DELIVERY_DATE 应为 0: %q", blue.DeliveryDate)
	}
	if len(blue.Deliveries) != 2 {
		t.Fatalf("应携带默认配送方式, got %d", len(blue.Deliveries))
	}
	if blue.Deliveries[0].ID != "ZASILKOVNA" || blue.Deliveries[0].Price != "59" {
		t.Fatalf("默认配送内容错误: %+v", blue.Deliveries[0])
	}
	if blue.ItemGroupID != "101" {
		t.Fatalf("ITEMGROUP_ID 应为商品 ID: %q", blue.ItemGroupID)
	}
	if blue.Condition != "new" {
		t.Fatalf("CONDITION 错误: %q", blue.Condition)
	}
	if len(blue.ImgURLAlternatives) != 1 {
		t.Fatalf("IMGURL_ALTERNATIVE 错误: %v", blue.ImgURLAlternatives)
	}

	// PARAM 块：选项 + 重量 + 可用性
	params := make(map[string]string)
	for _, p := range blue.Params {
		params[p.Name] = p.Value
	}
	if params["Color"] != "Blue" {
		t.Fatalf("变体选项应进入 PARAM: %v", params)
	}
	if params["Hmotnost"] != "0.35 kg" {
		t.Fatalf("重量 PARAM 错误: %q", params["Hmotnost"])
	}
	if params["Dostupnost"] != "skladem" {
		t.Fatalf("可用性 PARAM 错误: %q", params["Dostupnost"])
	}

	red := byID["1002"]
	if red.DeliveryDate != "14" {
		t.Fatalf("缺货变体 DELIVERY_DATE 应为 14: %q", red.DeliveryDate)
	}

	towel := byID["2001"]
	if towel.ProductNo != "MM-PLAIN-TOWE" {
		t.Fatalf("无 SKU 时 PRODUCTNO 应按 handle 生成: %q", towel.ProductNo)
	}

	if _, ok := byID["3001"]; ok {
		t.Fatal("价格未知的变体不应写入")
	}
}

func TestZboziProductNo(t *testing.T) {
	cases := []struct {
		sku, handle, want string
	}{
		{"SKU-1", "anything", "SKU-1"},
		{"", "short", "MM-SHORT"},
		{"", "very-long-handle-name", "MM-VERY-LONG-"},
	}
	for _, c := range cases {
		if got := zboziProductNo(c.sku, c.handle); got != c.want {
			t.Fatalf("zboziProductNo(%q, %q) = %q, want %q", c.sku, c.handle, got, c.want)
		}
	}
}
