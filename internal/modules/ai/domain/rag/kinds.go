package rag

import (
	"sort"
	"strings"
)

// 核心画像字段：召回时无条件返回，不参与相似度排序
const (
	KindCompanyName        = "Company Name"
	KindProductDescription = "Product Description"
	KindTargetAudience     = "Target Audience"
	KindToneOfVoice        = "Tone of Voice"
)

// 研究类记录（非核心，参与相似度召回）
const (
	KindSearchQuestion = "Search Question"
	KindNote           = "Note"
)

var coreProfileKinds = []string{
	KindCompanyName,
	KindProductDescription,
	KindTargetAudience,
	KindToneOfVoice,
}

// CoreProfileKinds 返回核心画像字段的副本
func CoreProfileKinds() []string {
	out := make([]string, len(coreProfileKinds))
	copy(out, coreProfileKinds)
	return out
}

// IsCoreKind 判断 kind 是否属于核心画像字段
func IsCoreKind(kind string) bool {
	kind = strings.TrimSpace(kind)
	for _, k := range coreProfileKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// GuaranteedScanLimit 保底召回的扫描上限（核心字段数的两倍）
func GuaranteedScanLimit() int {
	return 2 * len(coreProfileKinds)
}

// SortedKinds 返回 fields 的 key，按字典序排列，保证写入顺序稳定
func SortedKinds(fields map[string]string) []string {
	kinds := make([]string, 0, len(fields))
	for k := range fields {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
