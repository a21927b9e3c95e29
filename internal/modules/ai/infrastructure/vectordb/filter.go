package vectordb

import (
	"fmt"
	"strings"

	"MarketMind/internal/modules/ai/domain/repository"

	"github.com/qdrant/go-client/qdrant"
)

// 向量库 payload / 标量字段名，Milvus 与 Qdrant 共用
const (
	fieldID        = "id"
	fieldVector    = "vector"
	fieldOwnerID   = "owner_id"
	fieldKind      = "kind"
	fieldText      = "text"
	fieldMetadata  = "metadata"
	fieldCreatedAt = "created_at"
	// Qdrant 的点 id 只能是 uuid/uint，原始记录 id 另存一份
	fieldRecordID = "record_id"
)

var milvusStringEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// MilvusExpr 把 Filter 渲染为 Milvus 布尔表达式，例如
//
//	owner_id == 7 && kind in ["Company Name"] && kind not in ["Note"]
func MilvusExpr(f repository.Filter) (string, error) {
	if err := f.Validate(); err != nil {
		return "", err
	}
	parts := []string{fmt.Sprintf("%s == %d", fieldOwnerID, f.OwnerID)}
	if len(f.KindsIn) > 0 {
		parts = append(parts, fmt.Sprintf("%s in %s", fieldKind, milvusStringList(f.KindsIn)))
	}
	if len(f.KindsNotIn) > 0 {
		parts = append(parts, fmt.Sprintf("%s not in %s", fieldKind, milvusStringList(f.KindsNotIn)))
	}
	return strings.Join(parts, " && "), nil
}

func milvusIDExpr(ids []string) string {
	return fmt.Sprintf("%s in %s", fieldID, milvusStringList(ids))
}

func milvusStringList(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, v := range values {
		quoted = append(quoted, `"`+milvusStringEscaper.Replace(v)+`"`)
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

// QdrantFilter 把 Filter 渲染为 Qdrant must / must_not 条件
func QdrantFilter(f repository.Filter) (*qdrant.Filter, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	out := &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatchInt(fieldOwnerID, f.OwnerID)},
	}
	if len(f.KindsIn) > 0 {
		out.Must = append(out.Must, qdrant.NewMatchKeywords(fieldKind, f.KindsIn...))
	}
	if len(f.KindsNotIn) > 0 {
		out.MustNot = append(out.MustNot, qdrant.NewMatchKeywords(fieldKind, f.KindsNotIn...))
	}
	return out, nil
}
