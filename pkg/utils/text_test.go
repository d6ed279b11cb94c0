package utils

import (
	"testing"
	"unicode/utf8"
)

func TestRemoveHTMLTags(t *testing.T) {
	cases := []struct {
		name      string
		in        string
		maxLength int
		want      string
	}{
		{"普通标签", "<p>Hello <b>world</b></p>", 0, "Hello world"},
		{"嵌套与属性", `<div class="x"><span>a</span> b</div>`, 0, "a b"},
		{"空白折叠", "a\n\n  b\t c", 0, "a b c"},
		{"无标签原样", "plain text", 0, "plain text"},
		{"长度截断", "abcdefghij", 5, "abcde"},
		{"多字节按字符截断", "žžžžžžžžžž", 3, "žžž"},
		{"截断不切半个字符", "žluťoučký kůň", 4, "žluť"},
		{"空串", "", 0, ""},
	}

	for _, c := range cases {
		got := RemoveHTMLTags(c.in, c.maxLength)
		if got != c.want {
			t.Fatalf("%s: RemoveHTMLTags(%q, %d) = %q, want %q", c.name, c.in, c.maxLength, got, c.want)
		}
		if !utf8.ValidString(got) {
			t.Fatalf("%s: 截断产生非法 UTF-8: %q", c.name, got)
		}
	}
}

func TestNormalizeStoreURL(t *testing.T) {
	cases := []struct{ in, want string }{
		{"demo.myshopify.com", "https://demo.myshopify.com"},
		{"https://demo.myshopify.com/", "https://demo.myshopify.com"},
		{"http://demo.myshopify.com", "http://demo.myshopify.com"},
	}

	for _, c := range cases {
		if got := NormalizeStoreURL(c.in); got != c.want {
			t.Fatalf("NormalizeStoreURL(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestStoreHash(t *testing.T) {
	a := StoreHash("https://demo.myshopify.com")
	b := StoreHash("https://demo.myshopify.com")
	c := StoreHash("https://other.myshopify.com")

	if len(a) != 8 {
		t.Fatalf("哈希应为 8 个字符: %q", a)
	}
	if a != b {
		t.Fatal("同一地址哈希应稳定")
	}
	if a == c {
		t.Fatal("不同地址哈希应不同")
	}
}

func TestStoreName(t *testing.T) {
	if got := StoreName("https://demo-store.myshopify.com"); got != "demo-store" {
		t.Fatalf("StoreName = %q", got)
	}
}
