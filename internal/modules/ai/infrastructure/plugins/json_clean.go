package plugins

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"

	"MarketMind/internal/modules/ai/domain/rag"
)

// cleanJSONOutput 去掉模型常见的 Markdown 代码块包裹
func cleanJSONOutput(s string) string {
	out := strings.TrimSpace(s)
	if strings.HasPrefix(out, "```") {
		out = strings.TrimPrefix(out, "```json")
		out = strings.TrimPrefix(out, "```JSON")
		out = strings.TrimPrefix(out, "```")
		out = strings.TrimSuffix(strings.TrimSpace(out), "```")
	}
	return strings.TrimSpace(out)
}

// extractJSONSpan 截取第一个 open 到最后一个 close 之间的内容，兼容模型在 JSON 前后多说的话
func extractJSONSpan(s string, open, close byte) string {
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, close)
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}

// profileValue 取画像字段，缺失时返回占位
func profileValue(profile map[string]string, kind string) string {
	v := strings.TrimSpace(profile[kind])
	if v == "" {
		return "Not provided"
	}
	return v
}

// profileHash 对核心画像做稳定哈希，作为缓存 Key 的一部分
func profileHash(profile map[string]string, extra ...string) string {
	h := md5.New()
	kinds := rag.CoreProfileKinds()
	sort.Strings(kinds)
	for _, k := range kinds {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(strings.TrimSpace(profile[k])))
		h.Write([]byte{0})
	}
	for _, e := range extra {
		h.Write([]byte(e))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func hasProfile(profile map[string]string) bool {
	for _, k := range rag.CoreProfileKinds() {
		if strings.TrimSpace(profile[k]) != "" {
			return true
		}
	}
	return false
}
