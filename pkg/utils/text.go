package utils

import (
	"crypto/md5"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// RemoveHTMLTags 去除 HTML 标签并压缩空白
// maxLength 按字符 (rune) 截断，<= 0 表示不限制 (Google 建议描述不超过 5000 字符)
// 截断必须落在字符边界上，多字节文本 (如捷克语描述) 不能切出半个字符
func RemoveHTMLTags(text string, maxLength int) string {
	if text == "" {
		return ""
	}

	cleaned := htmlTagRe.ReplaceAllString(text, "")
	cleaned = whitespaceRe.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)

	if maxLength > 0 && utf8.RuneCountInString(cleaned) > maxLength {
		cleaned = string([]rune(cleaned)[:maxLength])
	}
	return cleaned
}

// NormalizeStoreURL 规范化店铺 URL
// 补全协议头 (默认 https)，去除末尾斜杠
func NormalizeStoreURL(storeURL string) string {
	if storeURL == "" {
		return ""
	}
	if !strings.HasPrefix(storeURL, "http://") && !strings.HasPrefix(storeURL, "https://") {
		storeURL = "https://" + storeURL
	}
	return strings.TrimRight(storeURL, "/")
}

// StoreHash 根据店铺 URL 生成 8 位短哈希
// 用于产物文件的确定性命名: <hash>_<type>.xml
func StoreHash(storeURL string) string {
	sum := md5.Sum([]byte(storeURL))
	return fmt.Sprintf("%x", sum)[:8]
}

// StoreName 从店铺 URL 中提取店铺名 (host 的第一段)
func StoreName(storeURL string) string {
	parsed, err := url.Parse(NormalizeStoreURL(storeURL))
	if err != nil || parsed.Host == "" {
		return "store"
	}
	return strings.Split(parsed.Host, ".")[0]
}
