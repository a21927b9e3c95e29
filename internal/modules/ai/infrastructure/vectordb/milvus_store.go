package vectordb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"MarketMind/internal/modules/ai/domain/repository"
	"MarketMind/pkg/util"

	mclient "github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// MaxTextRunes 写入向量库前 text 的截断长度
const MaxTextRunes = 4096

var milvusOutFields = []string{fieldID, fieldOwnerID, fieldKind, fieldText, fieldMetadata, fieldCreatedAt}

// MilvusStore 基于 milvus-sdk-go 的 repository.VectorStore 实现。
// collection 结构由 initial.NewMilvusClient 负责创建。
type MilvusStore struct {
	cli         mclient.Client
	collection  string
	metricType  entity.MetricType
	vectorDim   int
	searchParam entity.SearchParam
}

var _ repository.VectorStore = (*MilvusStore)(nil)

func NewMilvusStore(cli mclient.Client, collection string, vectorDim int, metricType entity.MetricType) (*MilvusStore, error) {
	if cli == nil {
		return nil, errors.New("milvus client is nil")
	}
	if strings.TrimSpace(collection) == "" {
		return nil, errors.New("collection is empty")
	}
	if vectorDim <= 0 {
		return nil, fmt.Errorf("invalid vectorDim: %d", vectorDim)
	}
	if metricType == "" {
		metricType = entity.COSINE
	}
	sp, err := entity.NewIndexAUTOINDEXSearchParam(1)
	if err != nil {
		return nil, err
	}
	return &MilvusStore{cli: cli, collection: collection, metricType: metricType, vectorDim: vectorDim, searchParam: sp}, nil
}

func (s *MilvusStore) Upsert(ctx context.Context, records []repository.VectorRecord) ([]string, error) {
	if len(records) == 0 {
		return []string{}, nil
	}
	ids := make([]string, 0, len(records))
	vectors := make([][]float32, 0, len(records))
	owners := make([]int64, 0, len(records))
	kinds := make([]string, 0, len(records))
	texts := make([]string, 0, len(records))
	metas := make([][]byte, 0, len(records))
	createdAts := make([]int64, 0, len(records))

	for _, r := range records {
		if err := checkRecord(r, s.vectorDim); err != nil {
			return nil, err
		}
		meta, err := marshalMetadata(r.Metadata)
		if err != nil {
			return nil, invalid(fmt.Errorf("marshal metadata for id=%s: %w", r.ID, err))
		}
		ids = append(ids, r.ID)
		vectors = append(vectors, r.Vector)
		owners = append(owners, r.OwnerID)
		kinds = append(kinds, r.Kind)
		texts = append(texts, util.TruncateRunes(r.Text, MaxTextRunes))
		metas = append(metas, meta)
		createdAts = append(createdAts, r.CreatedAt)
	}

	_, err := s.cli.Upsert(
		ctx,
		s.collection,
		"",
		entity.NewColumnVarChar(fieldID, ids),
		entity.NewColumnFloatVector(fieldVector, s.vectorDim, vectors),
		entity.NewColumnInt64(fieldOwnerID, owners),
		entity.NewColumnVarChar(fieldKind, kinds),
		entity.NewColumnVarChar(fieldText, texts),
		entity.NewColumnJSONBytes(fieldMetadata, metas),
		entity.NewColumnInt64(fieldCreatedAt, createdAts),
	)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *MilvusStore) Scan(ctx context.Context, filter repository.Filter, limit int) ([]repository.VectorHit, error) {
	expr, err := MilvusExpr(filter)
	if err != nil {
		return nil, invalid(err)
	}
	opts := []mclient.SearchQueryOptionFunc{}
	if limit > 0 {
		opts = append(opts, mclient.WithLimit(int64(limit)))
	}
	rs, err := s.cli.Query(ctx, s.collection, []string{}, expr, milvusOutFields, opts...)
	if err != nil {
		return nil, err
	}
	idCol := columnByName(rs, fieldID)
	if idCol == nil {
		return []repository.VectorHit{}, nil
	}
	return parseColumns(idCol, rs, nil, idCol.Len()), nil
}

func (s *MilvusStore) Search(ctx context.Context, vector []float32, filter repository.Filter, limit int) ([]repository.VectorHit, error) {
	expr, err := MilvusExpr(filter)
	if err != nil {
		return nil, invalid(err)
	}
	if err := checkQueryVector(vector, s.vectorDim); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}
	res, err := s.cli.Search(
		ctx,
		s.collection,
		[]string{},
		expr,
		milvusOutFields,
		[]entity.Vector{entity.FloatVector(vector)},
		fieldVector,
		s.metricType,
		limit,
		s.searchParam,
	)
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return []repository.VectorHit{}, nil
	}
	sr := res[0]
	if sr.Err != nil {
		return nil, sr.Err
	}
	return parseColumns(sr.IDs, sr.Fields, sr.Scores, sr.ResultCount), nil
}

func (s *MilvusStore) DeleteByIDs(ctx context.Context, ownerID int64, ids []string) error {
	expr, err := MilvusExpr(repository.Filter{OwnerID: ownerID})
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	return s.cli.Delete(ctx, s.collection, "", milvusIDExpr(ids)+" && "+expr)
}

func (s *MilvusStore) DeleteByOwner(ctx context.Context, ownerID int64) error {
	expr, err := MilvusExpr(repository.Filter{OwnerID: ownerID})
	if err != nil {
		return err
	}
	return s.cli.Delete(ctx, s.collection, "", expr)
}

func parseColumns(idCol entity.Column, cols mclient.ResultSet, scores []float32, n int) []repository.VectorHit {
	ownerCol := columnByName(cols, fieldOwnerID)
	kindCol := columnByName(cols, fieldKind)
	textCol := columnByName(cols, fieldText)
	metaCol := columnByName(cols, fieldMetadata)
	createdCol := columnByName(cols, fieldCreatedAt)

	hits := make([]repository.VectorHit, 0, n)
	for i := 0; i < n; i++ {
		id, _ := idCol.GetAsString(i)
		h := repository.VectorHit{ID: id}
		if i < len(scores) {
			h.Score = scores[i]
		}
		if ownerCol != nil {
			h.OwnerID, _ = ownerCol.GetAsInt64(i)
		}
		if kindCol != nil {
			h.Kind, _ = kindCol.GetAsString(i)
		}
		if textCol != nil {
			h.Text, _ = textCol.GetAsString(i)
		}
		if createdCol != nil {
			h.CreatedAt, _ = createdCol.GetAsInt64(i)
		}
		if metaCol != nil {
			v, _ := metaCol.Get(i)
			if bs, ok := v.([]byte); ok {
				h.Metadata = unmarshalMetadata(bs)
			}
		}
		hits = append(hits, h)
	}
	return hits
}

func columnByName(cols mclient.ResultSet, name string) entity.Column {
	for _, c := range cols {
		if c != nil && c.Name() == name {
			return c
		}
	}
	return nil
}

func marshalMetadata(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func unmarshalMetadata(bs []byte) map[string]any {
	if len(bs) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(bs, &m); err != nil {
		return nil
	}
	return m
}
