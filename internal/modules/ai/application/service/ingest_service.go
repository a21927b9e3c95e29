package service

import (
	"context"
	"strings"
	"time"

	"MarketMind/internal/modules/ai/application/dto/request"
	"MarketMind/internal/modules/ai/application/dto/respond"
	"MarketMind/internal/modules/ai/domain/rag"
	"MarketMind/internal/modules/ai/infrastructure/pipeline"
	"MarketMind/pkg/xerr"
	"MarketMind/pkg/zlog"

	"go.uber.org/zap"
)

// Ingestor 由 pipeline.IngestPipeline 实现
type Ingestor interface {
	Ingest(ctx context.Context, req pipeline.IngestRequest) (*pipeline.IngestResult, error)
}

// TextSplitter 由 chunking.NoteSplitter 实现
type TextSplitter interface {
	Split(ctx context.Context, text string) ([]string, error)
}

// RecordDeleter 向量记录删除（repository.VectorStore 的子集）
type RecordDeleter interface {
	DeleteByIDs(ctx context.Context, ownerID int64, ids []string) error
	DeleteByOwner(ctx context.Context, ownerID int64) error
}

// IngestObserver 由 metrics.Exporter 实现
type IngestObserver interface {
	ObserveIngest(stored, skipped, failed int, elapsed time.Duration)
}

// IngestService 向量写入服务
type IngestService interface {
	// Ingest 每个非空字段一条记录，单字段失败不影响其它字段
	Ingest(ctx context.Context, req request.RAGIngestRequest, ownerID int64) (*respond.RAGIngestRespond, error)
	// IngestNotes 长文本切片后逐片写入 Note 记录
	IngestNotes(ctx context.Context, req request.RAGNotesRequest, ownerID int64) (*respond.RAGIngestRespond, error)
	// DeleteRecords 按 id 删除；req.All 时删除 owner 的全部记录
	DeleteRecords(ctx context.Context, req request.RAGDeleteRequest, ownerID int64) (*respond.RAGDeleteRespond, error)
}

type ingestServiceImpl struct {
	ingestor Ingestor
	splitter TextSplitter
	deleter  RecordDeleter
	observer IngestObserver
}

func NewIngestService(ingestor Ingestor, splitter TextSplitter, deleter RecordDeleter, observer IngestObserver) IngestService {
	return &ingestServiceImpl{ingestor: ingestor, splitter: splitter, deleter: deleter, observer: observer}
}

func (s *ingestServiceImpl) Ingest(ctx context.Context, req request.RAGIngestRequest, ownerID int64) (*respond.RAGIngestRespond, error) {
	if ownerID <= 0 {
		return nil, xerr.ErrUnauthorized
	}
	if len(req.Fields) == 0 {
		return nil, xerr.New(xerr.BadRequest, "fields 不能为空")
	}
	return s.run(ctx, pipeline.IngestRequest{
		OwnerID:  ownerID,
		Fields:   req.Fields,
		Metadata: req.Metadata,
	})
}

func (s *ingestServiceImpl) IngestNotes(ctx context.Context, req request.RAGNotesRequest, ownerID int64) (*respond.RAGIngestRespond, error) {
	if ownerID <= 0 {
		return nil, xerr.ErrUnauthorized
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, xerr.New(xerr.BadRequest, "text 不能为空")
	}
	chunks, err := s.splitter.Split(ctx, req.Text)
	if err != nil {
		return nil, toCodeError(err, "笔记切分失败")
	}
	items := make([]pipeline.IngestItem, 0, len(chunks))
	for i, c := range chunks {
		items = append(items, pipeline.IngestItem{
			Kind: rag.KindNote,
			Text: c,
			Metadata: map[string]any{
				"chunk_index": i,
				"chunk_total": len(chunks),
			},
		})
	}
	meta := make(map[string]any, len(req.Metadata)+1)
	for k, v := range req.Metadata {
		meta[k] = v
	}
	meta["source"] = "note"
	return s.run(ctx, pipeline.IngestRequest{OwnerID: ownerID, Items: items, Metadata: meta})
}

func (s *ingestServiceImpl) DeleteRecords(ctx context.Context, req request.RAGDeleteRequest, ownerID int64) (*respond.RAGDeleteRespond, error) {
	if ownerID <= 0 {
		return nil, xerr.ErrUnauthorized
	}
	ids := make([]string, 0, len(req.IDs))
	for _, id := range req.IDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	switch {
	case req.All && len(req.IDs) > 0:
		return nil, xerr.New(xerr.BadRequest, "all 与 ids 不能同时指定")
	case !req.All && len(ids) == 0:
		return nil, xerr.New(xerr.BadRequest, "ids 不能为空")
	case req.All:
		if err := s.deleter.DeleteByOwner(ctx, ownerID); err != nil {
			return nil, toCodeError(err, "删除向量记录失败")
		}
		zlog.Info("ai records deleted by owner", zap.Int64("owner_id", ownerID))
		return &respond.RAGDeleteRespond{OwnerID: ownerID, Deleted: -1}, nil
	}
	if err := s.deleter.DeleteByIDs(ctx, ownerID, ids); err != nil {
		return nil, toCodeError(err, "删除向量记录失败")
	}
	zlog.Info("ai records deleted", zap.Int64("owner_id", ownerID), zap.Int("count", len(ids)))
	return &respond.RAGDeleteRespond{OwnerID: ownerID, Deleted: len(ids)}, nil
}

func (s *ingestServiceImpl) run(ctx context.Context, req pipeline.IngestRequest) (*respond.RAGIngestRespond, error) {
	start := time.Now()
	res, err := s.ingestor.Ingest(ctx, req)
	if res != nil && s.observer != nil {
		s.observer.ObserveIngest(res.Stored, res.Skipped, res.Failed, time.Since(start))
	}
	if err != nil {
		return nil, toCodeError(err, "向量写入失败")
	}
	return toIngestRespond(res), nil
}

func toIngestRespond(res *pipeline.IngestResult) *respond.RAGIngestRespond {
	out := &respond.RAGIngestRespond{
		OwnerID:    res.OwnerID,
		Fields:     make([]respond.RAGFieldResult, 0, len(res.Fields)),
		Stored:     res.Stored,
		Skipped:    res.Skipped,
		Failed:     res.Failed,
		DurationMs: res.DurationMs,
	}
	for _, f := range res.Fields {
		out.Fields = append(out.Fields, respond.RAGFieldResult{
			Kind:     f.Kind,
			RecordID: f.RecordID,
			Status:   f.Status,
			Error:    f.Error,
		})
	}
	return out
}
