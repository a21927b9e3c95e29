package vectordb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"MarketMind/internal/modules/ai/domain/repository"
	"MarketMind/pkg/util"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// QdrantStore 基于 qdrant/go-client 的 repository.VectorStore 实现。
//
// payload: owner_id(int) / kind(keyword) / text / metadata(JSON 字符串) / created_at(int)。
// 记录 id 不是 UUID 时，点 id 取 NameUUID(id)，原 id 存入 record_id。
type QdrantStore struct {
	cli        *qdrant.Client
	collection string
	vectorDim  int
}

var _ repository.VectorStore = (*QdrantStore)(nil)

func NewQdrantStore(cli *qdrant.Client, collection string, vectorDim int) (*QdrantStore, error) {
	if cli == nil {
		return nil, errors.New("qdrant client is nil")
	}
	if strings.TrimSpace(collection) == "" {
		return nil, errors.New("collection is empty")
	}
	if vectorDim <= 0 {
		return nil, fmt.Errorf("invalid vectorDim: %d", vectorDim)
	}
	return &QdrantStore{cli: cli, collection: collection, vectorDim: vectorDim}, nil
}

func (s *QdrantStore) Upsert(ctx context.Context, records []repository.VectorRecord) ([]string, error) {
	if len(records) == 0 {
		return []string{}, nil
	}
	ids := make([]string, 0, len(records))
	points := make([]*qdrant.PointStruct, 0, len(records))
	for _, r := range records {
		if err := checkRecord(r, s.vectorDim); err != nil {
			return nil, err
		}
		meta, err := marshalMetadata(r.Metadata)
		if err != nil {
			return nil, invalid(fmt.Errorf("marshal metadata for id=%s: %w", r.ID, err))
		}
		payload := map[string]*qdrant.Value{
			fieldOwnerID:   qdrant.NewValueInt(r.OwnerID),
			fieldKind:      qdrant.NewValueString(r.Kind),
			fieldText:      qdrant.NewValueString(util.TruncateRunes(r.Text, MaxTextRunes)),
			fieldMetadata:  qdrant.NewValueString(string(meta)),
			fieldCreatedAt: qdrant.NewValueInt(r.CreatedAt),
		}
		pointID := qdrantPointID(r.ID)
		if pointID != r.ID {
			payload[fieldRecordID] = qdrant.NewValueString(r.ID)
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(pointID),
			Vectors: qdrant.NewVectors(r.Vector...),
			Payload: payload,
		})
		ids = append(ids, r.ID)
	}

	wait := true
	if _, err := s.cli.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         points,
	}); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *QdrantStore) Scan(ctx context.Context, filter repository.Filter, limit int) ([]repository.VectorHit, error) {
	f, err := QdrantFilter(filter)
	if err != nil {
		return nil, invalid(err)
	}
	req := &qdrant.ScrollPoints{
		CollectionName: s.collection,
		Filter:         f,
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if limit > 0 {
		l := uint32(limit)
		req.Limit = &l
	}
	points, err := s.cli.Scroll(ctx, req)
	if err != nil {
		return nil, err
	}
	hits := make([]repository.VectorHit, 0, len(points))
	for _, p := range points {
		hits = append(hits, payloadToHit(p.GetId(), p.GetPayload(), 0))
	}
	return hits, nil
}

func (s *QdrantStore) Search(ctx context.Context, vector []float32, filter repository.Filter, limit int) ([]repository.VectorHit, error) {
	f, err := QdrantFilter(filter)
	if err != nil {
		return nil, invalid(err)
	}
	if err := checkQueryVector(vector, s.vectorDim); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}
	l := uint64(limit)
	points, err := s.cli.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Filter:         f,
		Limit:          &l,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}
	hits := make([]repository.VectorHit, 0, len(points))
	for _, p := range points {
		hits = append(hits, payloadToHit(p.GetId(), p.GetPayload(), p.GetScore()))
	}
	return hits, nil
}

func (s *QdrantStore) DeleteByIDs(ctx context.Context, ownerID int64, ids []string) error {
	f, err := QdrantFilter(repository.Filter{OwnerID: ownerID})
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	pids := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pids = append(pids, qdrant.NewID(qdrantPointID(id)))
	}
	f.Must = append(f.Must, qdrant.NewHasID(pids...))
	wait := true
	_, err = s.cli.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         qdrant.NewPointsSelectorFilter(f),
	})
	return err
}

func (s *QdrantStore) DeleteByOwner(ctx context.Context, ownerID int64) error {
	f, err := QdrantFilter(repository.Filter{OwnerID: ownerID})
	if err != nil {
		return err
	}
	wait := true
	_, err = s.cli.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         qdrant.NewPointsSelectorFilter(f),
	})
	return err
}

func qdrantPointID(id string) string {
	if _, err := uuid.Parse(id); err == nil {
		return id
	}
	return util.NameUUID(id)
}

func payloadToHit(id *qdrant.PointId, payload map[string]*qdrant.Value, score float32) repository.VectorHit {
	h := repository.VectorHit{ID: id.GetUuid(), Score: score}
	if h.ID == "" && id.GetNum() != 0 {
		h.ID = fmt.Sprintf("%d", id.GetNum())
	}
	if v, ok := payload[fieldRecordID]; ok && v.GetStringValue() != "" {
		h.ID = v.GetStringValue()
	}
	h.OwnerID = payload[fieldOwnerID].GetIntegerValue()
	h.Kind = payload[fieldKind].GetStringValue()
	h.Text = payload[fieldText].GetStringValue()
	h.CreatedAt = payload[fieldCreatedAt].GetIntegerValue()
	if v := payload[fieldMetadata].GetStringValue(); v != "" {
		h.Metadata = unmarshalMetadata([]byte(v))
	}
	return h
}
