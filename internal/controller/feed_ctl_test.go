package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"shopify_feeds_v1_202608/internal/feed"
	"shopify_feeds_v1_202608/internal/service"
	"shopify_feeds_v1_202608/internal/task"
	"shopify_feeds_v1_202608/pkg/shopify"
)

// ==================== 测试辅助 ====================

// setupFakeStore 假店铺：一页商品 + 集合列表
func setupFakeStore(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/collections.json"):
			if r.URL.Query().Get("page") == "1" {
				w.Write([]byte(`{"collections":[{"id":1,"handle":"summer","title":"Summer","products_count":3}]}`))
			} else {
				w.Write([]byte(`{"collections":[]}`))
			}
		case strings.HasSuffix(r.URL.Path, "/products.json"):
			if r.URL.Query().Get("page") == "1" {
				w.Write([]byte(`{"products":[{"id":1,"title":"Mug","handle":"mug",
					"variants":[{"id":11,"title":"Default Title","price":"100.00","available":true}],
					"images":[]}]}`))
			} else {
				w.Write([]byte(`{"products":[]}`))
			}
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func setupFeedCtlRouter(t *testing.T) (*gin.Engine, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := setupFakeStore(t)
	client := shopify.NewClient(shopify.Config{MaxRetries: 0, RetryDelay: time.Millisecond})
	catalogSvc := service.NewCatalogService(client, service.NewNormalizerService("CZK"))
	feedsDir := t.TempDir()

	feeds := service.NewFeedService(
		catalogSvc,
		service.NewImageService(client),
		service.NewCsvService(),
		[]feed.Transformer{feed.NewGoogleTransformer("CZK")},
		feedsDir,
	)
	tracker := task.NewJobTracker(feeds, nil)
	ctl := NewFeedController(tracker, catalogSvc, feedsDir)

	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/feeds/:filename", ctl.DownloadArtifact)
	api := r.Group("/api")
	{
		api.POST("/feeds/update", ctl.TriggerUpdate)
		api.GET("/feeds/status", ctl.GetStatus)
		api.GET("/feeds", ctl.ListJobs)
		api.GET("/collections", ctl.GetCollections)
	}
	return r, store
}

func doJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ==================== 触发与状态 ====================

func TestFeedCtl_TriggerAndDownload(t *testing.T) {
	r, store := setupFeedCtlRouter(t)

	w := doJSON(r, "POST", "/api/feeds/update", gin.H{
		"url": store.URL, "feed_type": "google",
	})
	if w.Code != http.StatusAccepted {
		t.Fatalf("触发应返回 202, got %d: %s", w.Code, w.Body.String())
	}

	var accepted struct {
		Data struct {
			RunID string `json:"run_id"`
			State string `json:"state"`
		} `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &accepted)
	if accepted.Data.RunID == "" || accepted.Data.State != "pending" {
		t.Fatalf("触发响应错误: %s", w.Body.String())
	}

	// 轮询状态直到完成
	var artifact string
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		w = doJSON(r, "GET", "/api/feeds/status?run_id="+accepted.Data.RunID, nil)
		if w.Code != 200 {
			t.Fatalf("状态查询失败: %d", w.Code)
		}
		var status struct {
			Data struct {
				State    string `json:"state"`
				Artifact string `json:"artifact"`
				Error    string `json:"error"`
			} `json:"data"`
		}
		json.Unmarshal(w.Body.Bytes(), &status)
		if status.Data.State == "failed" {
			t.Fatalf("任务不应失败: %s", status.Data.Error)
		}
		if status.Data.State == "completed" {
			artifact = status.Data.Artifact
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if artifact == "" {
		t.Fatal("任务未在限期内完成")
	}

	// 下载产物
	w = doJSON(r, "GET", artifact, nil)
	if w.Code != 200 {
		t.Fatalf("产物下载失败: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<rss") {
		t.Fatal("产物应为 Google XML feed")
	}

	// 任务列表应包含该槽位
	w = doJSON(r, "GET", "/api/feeds", nil)
	if w.Code != 200 || !strings.Contains(w.Body.String(), accepted.Data.RunID) {
		t.Fatalf("任务列表缺少槽位: %s", w.Body.String())
	}
}

func TestFeedCtl_TriggerValidation(t *testing.T) {
	r, store := setupFeedCtlRouter(t)

	// 缺少必填字段
	if w := doJSON(r, "POST", "/api/feeds/update", gin.H{"url": store.URL}); w.Code != 400 {
		t.Fatalf("缺 feed_type 应返回 400, got %d", w.Code)
	}
	// 非法类型
	if w := doJSON(r, "POST", "/api/feeds/update", gin.H{"url": store.URL, "feed_type": "amazon"}); w.Code != 400 {
		t.Fatalf("非法 feed_type 应返回 400, got %d", w.Code)
	}
	// 非法 URL
	if w := doJSON(r, "POST", "/api/feeds/update", gin.H{"url": "not a url", "feed_type": "csv"}); w.Code != 400 {
		t.Fatalf("非法 url 应返回 400, got %d", w.Code)
	}
}

func TestFeedCtl_TriggerCooldown(t *testing.T) {
	r, store := setupFeedCtlRouter(t)

	body := gin.H{"url": store.URL, "feed_type": "csv"}
	if w := doJSON(r, "POST", "/api/feeds/update", body); w.Code != http.StatusAccepted {
		t.Fatalf("首次触发应返回 202, got %d", w.Code)
	}
	// 冷却窗口内重复触发
	if w := doJSON(r, "POST", "/api/feeds/update", body); w.Code != http.StatusTooManyRequests {
		t.Fatalf("冷却期内应返回 429, got %d", w.Code)
	}
}

func TestFeedCtl_StatusByStoreOnly(t *testing.T) {
	r, store := setupFeedCtlRouter(t)

	if w := doJSON(r, "POST", "/api/feeds/update", gin.H{"url": store.URL, "feed_type": "csv"}); w.Code != http.StatusAccepted {
		t.Fatalf("触发应返回 202, got %d", w.Code)
	}

	// 仅带 url 返回该店铺全部槽位
	w := doJSON(r, "GET", "/api/feeds/status?url="+store.URL, nil)
	if w.Code != 200 {
		t.Fatalf("按店铺查询失败: %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Data []struct {
			FeedType string `json:"feed_type"`
		} `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Data) != 1 || resp.Data[0].FeedType != "csv" {
		t.Fatalf("店铺槽位响应错误: %s", w.Body.String())
	}

	// 没有任何任务的店铺返回 404
	if w := doJSON(r, "GET", "/api/feeds/status?url=https://nobody.example.com", nil); w.Code != 404 {
		t.Fatalf("无任务店铺应返回 404, got %d", w.Code)
	}
}

func TestFeedCtl_StatusErrors(t *testing.T) {
	r, _ := setupFeedCtlRouter(t)

	if w := doJSON(r, "GET", "/api/feeds/status", nil); w.Code != 400 {
		t.Fatalf("缺参数应返回 400, got %d", w.Code)
	}
	if w := doJSON(r, "GET", "/api/feeds/status?run_id=nope", nil); w.Code != 404 {
		t.Fatalf("未知 run_id 应返回 404, got %d", w.Code)
	}
}

// ==================== 集合与下载 ====================

func TestFeedCtl_GetCollections(t *testing.T) {
	r, store := setupFeedCtlRouter(t)

	w := doJSON(r, "GET", "/api/collections?url="+store.URL, nil)
	if w.Code != 200 {
		t.Fatalf("集合查询失败: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"handle":"summer"`) {
		t.Fatalf("集合响应错误: %s", w.Body.String())
	}

	if w := doJSON(r, "GET", "/api/collections", nil); w.Code != 400 {
		t.Fatalf("缺 url 应返回 400, got %d", w.Code)
	}
}

func TestFeedCtl_DownloadRejectsTraversal(t *testing.T) {
	r, _ := setupFeedCtlRouter(t)

	if w := doJSON(r, "GET", "/feeds/..%2Fsecret", nil); w.Code != 400 && w.Code != 404 {
		t.Fatalf("路径穿越应被拒绝, got %d", w.Code)
	}
	if w := doJSON(r, "GET", "/feeds/missing.xml", nil); w.Code != 404 {
		t.Fatalf("不存在的产物应返回 404, got %d", w.Code)
	}
}
