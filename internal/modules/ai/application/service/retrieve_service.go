package service

import (
	"context"
	"time"

	"MarketMind/internal/modules/ai/application/dto/request"
	"MarketMind/internal/modules/ai/application/dto/respond"
	"MarketMind/internal/modules/ai/infrastructure/pipeline"
	"MarketMind/pkg/xerr"
)

// Retriever 由 pipeline.RetrievePipeline 实现
type Retriever interface {
	Retrieve(ctx context.Context, req pipeline.RetrieveRequest) (*pipeline.RetrieveResult, error)
}

// RetrieveObserver 由 metrics.Exporter 实现
type RetrieveObserver interface {
	ObserveRetrieve(empty bool, err error, elapsed time.Duration)
}

// RetrieveService RAG 召回服务接口
type RetrieveService interface {
	// Retrieve 两路召回：核心画像（保底）+ 研究记录（相似度）
	//
	// ownerID 来自 JWT；召回为空不是错误，IsEmpty 置位
	Retrieve(ctx context.Context, req request.RAGRetrieveRequest, ownerID int64) (*respond.RAGRetrieveRespond, error)
}

type retrieveServiceImpl struct {
	retriever Retriever
	observer  RetrieveObserver
}

// NewRetrieveService 创建 RAG 召回服务
func NewRetrieveService(retriever Retriever, observer RetrieveObserver) RetrieveService {
	return &retrieveServiceImpl{retriever: retriever, observer: observer}
}

func (s *retrieveServiceImpl) Retrieve(ctx context.Context, req request.RAGRetrieveRequest, ownerID int64) (*respond.RAGRetrieveRespond, error) {
	if ownerID <= 0 {
		return nil, xerr.ErrUnauthorized
	}
	if req.TopK < 0 {
		return nil, xerr.New(xerr.BadRequest, "top_k 不能为负数")
	}
	start := time.Now()
	res, err := s.retriever.Retrieve(ctx, pipeline.RetrieveRequest{
		OwnerID: ownerID,
		Query:   req.Query,
		TopK:    req.TopK,
	})
	if s.observer != nil {
		s.observer.ObserveRetrieve(res != nil && res.IsEmpty, err, time.Since(start))
	}
	if err != nil {
		return nil, toCodeError(err, "召回失败")
	}
	return toRetrieveRespond(res), nil
}

func toRetrieveRespond(res *pipeline.RetrieveResult) *respond.RAGRetrieveRespond {
	return &respond.RAGRetrieveRespond{
		QueryID:      res.QueryID,
		Query:        res.Query,
		Profile:      res.Profile,
		Research:     res.Research,
		Records:      res.Records,
		IsEmpty:      res.IsEmpty,
		Message:      res.Message,
		DurationMs:   res.DurationMs,
		GuaranteedMs: res.GuaranteedMs,
		ContextualMs: res.ContextualMs,
	}
}
