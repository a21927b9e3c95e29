package vectordb

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"MarketMind/internal/modules/ai/domain/repository"

	"github.com/cloudwego/eino/components/indexer"
	"github.com/cloudwego/eino/schema"
)

// 文档 MetaData 约定的键
const (
	MetaOwnerID   = "owner_id"
	MetaKind      = "kind"
	MetaCreatedAt = "created_at"
	MetaMetadata  = "metadata"
)

// EinoIndexer 把 repository.VectorStore 适配为 eino 的 indexer.Indexer，
// ingest graph 通过它把带向量的 []*schema.Document 写入向量库。
//
// doc.MetaData 需要 owner_id 与 kind；created_at 可选（unix 毫秒）；
// metadata 可以是 map[string]any 或 JSON 字符串。
type EinoIndexer struct {
	vs repository.VectorStore
}

var _ indexer.Indexer = (*EinoIndexer)(nil)

func NewEinoIndexer(vs repository.VectorStore) (*EinoIndexer, error) {
	if vs == nil {
		return nil, fmt.Errorf("vector store is nil")
	}
	return &EinoIndexer{vs: vs}, nil
}

func (s *EinoIndexer) Store(ctx context.Context, docs []*schema.Document, opts ...indexer.Option) ([]string, error) {
	if len(docs) == 0 {
		return []string{}, nil
	}
	records := make([]repository.VectorRecord, 0, len(docs))
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		r, err := DocumentToRecord(doc)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return s.vs.Upsert(ctx, records)
}

// DocumentToRecord 按 MetaData 约定把 eino 文档转换为向量记录
func DocumentToRecord(doc *schema.Document) (repository.VectorRecord, error) {
	if doc == nil {
		return repository.VectorRecord{}, fmt.Errorf("document is nil")
	}
	if doc.ID == "" {
		return repository.VectorRecord{}, fmt.Errorf("document missing ID")
	}
	vec64 := doc.DenseVector()
	if len(vec64) == 0 {
		return repository.VectorRecord{}, fmt.Errorf("document %s missing dense vector", doc.ID)
	}

	md := doc.MetaData
	ownerID, err := metaInt64(md, MetaOwnerID)
	if err != nil || ownerID <= 0 {
		return repository.VectorRecord{}, fmt.Errorf("document %s: %w", doc.ID, repository.ErrMissingOwner)
	}
	kind, ok := metaString(md, MetaKind)
	if !ok || kind == "" {
		return repository.VectorRecord{}, fmt.Errorf("document %s missing meta kind", doc.ID)
	}
	createdAt, _ := metaInt64(md, MetaCreatedAt)
	metadata, err := metaObject(md, MetaMetadata)
	if err != nil {
		return repository.VectorRecord{}, fmt.Errorf("document %s invalid meta metadata: %w", doc.ID, err)
	}

	return repository.VectorRecord{
		ID:        doc.ID,
		Vector:    Float64To32(vec64),
		OwnerID:   ownerID,
		Kind:      kind,
		Text:      doc.Content,
		Metadata:  metadata,
		CreatedAt: createdAt,
	}, nil
}

// Float64To32 eino embedder 输出 float64，向量库使用 float32
func Float64To32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i := range v {
		out[i] = float32(v[i])
	}
	return out
}

func metaString(m map[string]any, key string) (string, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprintf("%v", v), true
}

func metaInt64(m map[string]any, key string) (int64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("missing meta %s", key)
	}
	switch t := v.(type) {
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case float64:
		return int64(t), nil
	case json.Number:
		return t.Int64()
	case string:
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

func metaObject(m map[string]any, key string) (map[string]any, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case map[string]any:
		return t, nil
	case string:
		if t == "" {
			return nil, nil
		}
		var out map[string]any
		if err := json.Unmarshal([]byte(t), &out); err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}
