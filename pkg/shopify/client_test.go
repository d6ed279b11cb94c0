package shopify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// ==================== 测试辅助 ====================

func newTestClient(maxRetries int, delay time.Duration) *Client {
	return NewClient(Config{
		MaxRetries: maxRetries,
		RetryDelay: delay,
	})
}

// ==================== 重试逻辑 ====================

func TestClient_RetryExhaustion(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(2, 10*time.Millisecond)
	_, err := client.FetchBytes(context.Background(), srv.URL, nil)
	if err == nil {
		t.Fatal("预期重试耗尽后返回错误")
	}

	// MaxRetries=2 时最多 3 次请求
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("请求次数 = %d, want 3", got)
	}
}

func TestClient_RetryDelayBetweenAttempts(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	delay := 50 * time.Millisecond
	client := newTestClient(2, delay)

	start := time.Now()
	_, err := client.FetchBytes(context.Background(), srv.URL, nil)
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("预期失败")
	}
	// 两次重试之间各等待一次固定间隔
	if elapsed < 2*delay {
		t.Errorf("总耗时 %v 小于两次固定间隔 %v", elapsed, 2*delay)
	}
}

func TestClient_NonRetryable4xx(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := newTestClient(3, 10*time.Millisecond)
	_, err := client.FetchBytes(context.Background(), srv.URL, nil)

	statusErr, ok := err.(*StatusError)
	if !ok {
		t.Fatalf("预期 *StatusError, got %T (%v)", err, err)
	}
	if statusErr.StatusCode != 404 {
		t.Errorf("StatusCode = %d, want 404", statusErr.StatusCode)
	}
	// 404 不应触发重试
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Errorf("请求次数 = %d, want 1", got)
	}
}

func TestClient_Retry429(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"products":[]}`))
	}))
	defer srv.Close()

	client := newTestClient(3, 10*time.Millisecond)
	body, err := client.FetchBytes(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("429 恢复后应成功: %v", err)
	}
	if string(body) != `{"products":[]}` {
		t.Errorf("响应体不符: %s", body)
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("请求次数 = %d, want 3", got)
	}
}

// ==================== 端点封装 ====================

func TestClient_GetProductsPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/plants/products.json" {
			t.Errorf("请求路径不符: %s", r.URL.Path)
		}
		if r.URL.Query().Get("page") != "2" {
			t.Errorf("page 参数不符: %s", r.URL.Query().Get("page"))
		}
		w.Write([]byte(`{"products":[{"id":1,"title":"Monstera","handle":"monstera"}]}`))
	}))
	defer srv.Close()

	client := newTestClient(0, time.Millisecond)
	products, err := client.GetProductsPage(context.Background(), srv.URL, 2, "plants")
	if err != nil {
		t.Fatalf("获取商品页失败: %v", err)
	}
	if len(products) != 1 || products[0].Title != "Monstera" {
		t.Errorf("商品数据不符: %+v", products)
	}
}

func TestClient_ListCollections(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "1":
			w.Write([]byte(`{"collections":[{"id":1,"handle":"plants","title":"Plants"},{"id":2,"handle":"pots","title":"Pots"}]}`))
		default:
			w.Write([]byte(`{"collections":[]}`))
		}
	}))
	defer srv.Close()

	client := newTestClient(0, time.Millisecond)
	collections, err := client.ListCollections(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("获取集合失败: %v", err)
	}
	if len(collections) != 2 {
		t.Fatalf("集合数量 = %d, want 2", len(collections))
	}
	if collections[0].Handle != "plants" || collections[1].Handle != "pots" {
		t.Errorf("集合数据不符: %+v", collections)
	}
}

func TestClient_GetShopInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"products":[{"id":1,"title":"P","vendor":"Listnato"}]}`))
	}))
	defer srv.Close()

	client := newTestClient(0, time.Millisecond)
	info, err := client.GetShopInfo(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("获取店铺信息失败: %v", err)
	}
	if info.Name != "Listnato" {
		t.Errorf("店铺名 = %s, want Listnato", info.Name)
	}
}

// ==================== Tags 兼容解析 ====================

func TestTags_UnmarshalBothForms(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want int
	}{
		{"数组形式", `{"tags":["a","b","c"]}`, 3},
		{"字符串形式", `{"tags":"a, b, c"}`, 3},
		{"空字符串", `{"tags":""}`, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var p RawProduct
			if err := json.Unmarshal([]byte(tc.in), &p); err != nil {
				t.Fatalf("解析失败: %v", err)
			}
			if len(p.Tags) != tc.want {
				t.Errorf("标签数量 = %d, want %d", len(p.Tags), tc.want)
			}
		})
	}
}
