package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"MarketMind/internal/modules/ai/application/dto/request"
	"MarketMind/internal/modules/ai/application/dto/respond"
	"MarketMind/internal/modules/ai/domain/rag"
	"MarketMind/internal/modules/ai/domain/repository"
	"MarketMind/internal/modules/ai/infrastructure/pipeline"
	"MarketMind/internal/modules/ai/infrastructure/plugins"
	"MarketMind/pkg/xerr"
	"MarketMind/pkg/zlog"

	"go.uber.org/zap"
)

// ContentService 召回画像与研究后生成营销内容
type ContentService interface {
	Generate(ctx context.Context, req request.ContentGenerateRequest, ownerID int64) (*respond.ContentRespond, error)
}

type contentServiceImpl struct {
	retriever Retriever
	completer Completer
}

func NewContentService(retriever Retriever, completer Completer) ContentService {
	return &contentServiceImpl{retriever: retriever, completer: completer}
}

func (s *contentServiceImpl) Generate(ctx context.Context, req request.ContentGenerateRequest, ownerID int64) (*respond.ContentRespond, error) {
	if ownerID <= 0 {
		return nil, xerr.ErrUnauthorized
	}
	if strings.TrimSpace(req.Request) == "" {
		return nil, xerr.New(xerr.BadRequest, "request 不能为空")
	}
	start := time.Now()

	res, err := s.retriever.Retrieve(ctx, pipeline.RetrieveRequest{
		OwnerID: ownerID,
		Query:   req.Request,
		TopK:    req.TopK,
	})
	if err != nil {
		return nil, toCodeError(err, "召回失败")
	}

	resp, err := s.completer.Execute(ctx, &plugins.PluginRequest{
		OwnerID:     ownerID,
		ServiceType: plugins.ServiceMarketingContent,
		Input:       req.Request,
		Profile:     res.ProfileFields(),
		Research:    researchSnippets(res.Research),
	})
	if err != nil {
		return nil, err
	}

	out := &respond.ContentRespond{
		Content:      resp.Output,
		Records:      res.Records,
		ContextEmpty: res.IsEmpty,
		TokensUsed:   resp.TokensUsed,
		DurationMs:   time.Since(start).Milliseconds(),
	}
	zlog.Info("ai content done",
		zap.Int64("owner_id", ownerID),
		zap.Int("records", len(res.Records)),
		zap.Bool("context_empty", out.ContextEmpty),
		zap.Int("tokens", out.TokensUsed),
		zap.Int64("ms", out.DurationMs))
	return out, nil
}

// researchSnippets 研究问题拼上答案，其余记录只取文本
func researchSnippets(hits []repository.VectorHit) []string {
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		text := strings.TrimSpace(h.Text)
		if text == "" {
			continue
		}
		if h.Kind == rag.KindSearchQuestion {
			if answer, _ := h.Metadata["answer"].(string); strings.TrimSpace(answer) != "" {
				text = fmt.Sprintf("Q: %s\nA: %s", text, strings.TrimSpace(answer))
			}
		}
		out = append(out, text)
	}
	return out
}
