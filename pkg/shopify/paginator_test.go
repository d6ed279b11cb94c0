package shopify

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// mockStore 构造一个分页商品接口
// pageSizes[i] 是第 i+1 页返回的商品数量
func mockStore(t *testing.T, pageSizes []int, requests *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(requests, 1)

		var page int
		fmt.Sscanf(r.URL.Query().Get("page"), "%d", &page)

		size := 0
		if page >= 1 && page <= len(pageSizes) {
			size = pageSizes[page-1]
		}

		body := `{"products":[`
		for i := 0; i < size; i++ {
			if i > 0 {
				body += ","
			}
			body += fmt.Sprintf(`{"id":%d,"title":"P%d","handle":"p%d"}`, (page-1)*1000+i, i, i)
		}
		body += `]}`
		w.Write([]byte(body))
	}))
}

func TestPaginator_StopsOnEmptyPage(t *testing.T) {
	var requests int32
	srv := mockStore(t, []int{10, 10, 0}, &requests)
	defer srv.Close()

	client := newTestClient(0, time.Millisecond)
	p := NewPaginator(client, srv.URL, "")

	total := 0
	for {
		products, err := p.Next(context.Background())
		if err != nil {
			t.Fatalf("分页失败: %v", err)
		}
		if len(products) == 0 {
			break
		}
		total += len(products)
	}

	// 10,10,0 三页：恰好 3 次请求，20 个商品
	if got := atomic.LoadInt32(&requests); got != 3 {
		t.Errorf("请求次数 = %d, want 3", got)
	}
	if total != 20 {
		t.Errorf("商品总数 = %d, want 20", total)
	}
}

func TestPaginator_NoRequestAfterDone(t *testing.T) {
	var requests int32
	srv := mockStore(t, []int{0}, &requests)
	defer srv.Close()

	client := newTestClient(0, time.Millisecond)
	p := NewPaginator(client, srv.URL, "")

	for i := 0; i < 3; i++ {
		products, err := p.Next(context.Background())
		if err != nil {
			t.Fatalf("分页失败: %v", err)
		}
		if len(products) != 0 {
			t.Fatal("空店铺不应返回商品")
		}
	}

	// 终止后的 Next 不应再发请求
	if got := atomic.LoadInt32(&requests); got != 1 {
		t.Errorf("请求次数 = %d, want 1", got)
	}
}

func TestPaginator_PropagatesError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := newTestClient(0, time.Millisecond)
	p := NewPaginator(client, srv.URL, "")

	if _, err := p.Next(context.Background()); err == nil {
		t.Fatal("预期首页失败返回错误")
	}

	// 出错后迭代器终止
	products, err := p.Next(context.Background())
	if err != nil || products != nil {
		t.Errorf("终止后的 Next 应返回 (nil, nil), got (%v, %v)", products, err)
	}
}
