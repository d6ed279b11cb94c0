package utils

import (
	"testing"
	"time"
)

func TestCacheSetGet(t *testing.T) {
	SetCache("cache-test:basic", []string{"mugs", "towels"}, time.Minute)

	val, ok := GetCache("cache-test:basic")
	if !ok {
		t.Fatalf("写入后应能读到缓存")
	}
	handles, ok := val.([]string)
	if !ok || len(handles) != 2 || handles[0] != "mugs" {
		t.Fatalf("缓存值不符: %v", val)
	}

	if _, ok := GetCache("cache-test:missing"); ok {
		t.Fatalf("未写入的 key 不应命中")
	}
}

func TestCacheExpiry(t *testing.T) {
	// 过期时间是 Unix 秒粒度，用负 TTL 保证已过期
	SetCache("cache-test:expired", "stale", -2*time.Second)

	if _, ok := GetCache("cache-test:expired"); ok {
		t.Fatalf("过期条目不应命中")
	}
	// 懒删除后条目应已移除
	if _, loaded := memoryCache.Load("cache-test:expired"); loaded {
		t.Fatalf("过期条目读取后应被删除")
	}
}

func TestDeleteCache(t *testing.T) {
	SetCache("cache-test:delete", 42, time.Minute)
	DeleteCache("cache-test:delete")

	if _, ok := GetCache("cache-test:delete"); ok {
		t.Fatalf("删除后不应命中")
	}
	// 删除不存在的 key 不应出错
	DeleteCache("cache-test:never-set")
}
