package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"MarketMind/internal/modules/ai/domain/rag"
	"MarketMind/internal/modules/ai/domain/repository"
	"MarketMind/internal/modules/ai/infrastructure/vectordb"
	"MarketMind/pkg/util"
	"MarketMind/pkg/zlog"

	"github.com/cloudwego/eino/compose"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type retrieveState struct {
	Req          *RetrieveRequest
	QueryID      string
	Guaranteed   []repository.VectorHit
	Contextual   []repository.VectorHit
	Profile      []repository.VectorHit
	Start        time.Time
	GuaranteedMs int64
	ContextualMs int64
	Err          error
}

// buildGraph 节点顺序：Validate → Fetch（两路并发）→ Compose → BuildResult
func (p *RetrievePipeline) buildGraph(ctx context.Context) (compose.Runnable[*RetrieveRequest, *RetrieveResult], error) {
	const (
		Validate    = "Validate"
		Fetch       = "Fetch"
		Compose     = "Compose"
		BuildResult = "BuildResult"
	)
	g := compose.NewGraph[*RetrieveRequest, *RetrieveResult]()
	_ = g.AddLambdaNode(Validate, compose.InvokableLambdaWithOption(p.validateNode), compose.WithNodeName(Validate))
	_ = g.AddLambdaNode(Fetch, compose.InvokableLambdaWithOption(p.fetchNode), compose.WithNodeName(Fetch))
	_ = g.AddLambdaNode(Compose, compose.InvokableLambdaWithOption(p.composeNode), compose.WithNodeName(Compose))
	_ = g.AddLambdaNode(BuildResult, compose.InvokableLambdaWithOption(p.buildResultNode), compose.WithNodeName(BuildResult))

	_ = g.AddEdge(compose.START, Validate)
	_ = g.AddEdge(Validate, Fetch)
	_ = g.AddEdge(Fetch, Compose)
	_ = g.AddEdge(Compose, BuildResult)
	_ = g.AddEdge(BuildResult, compose.END)

	return g.Compile(ctx, compose.WithGraphName("RAGRetrievePipeline"), compose.WithNodeTriggerMode(compose.AllPredecessor))
}

func (p *RetrievePipeline) validateNode(ctx context.Context, req *RetrieveRequest, _ ...any) (*retrieveState, error) {
	st := &retrieveState{Req: req, QueryID: util.GenerateShortUUID(), Start: time.Now()}
	if req == nil {
		st.Err = fmt.Errorf("retrieve request is nil")
		return st, nil
	}
	if req.OwnerID <= 0 {
		st.Err = ErrInvalidOwner
		return st, nil
	}
	req.Query = strings.TrimSpace(req.Query)
	req.TopK = p.normalizeTopK(req.TopK)
	return st, nil
}

// fetchNode 两路并发执行，任一路出错会取消另一路
func (p *RetrievePipeline) fetchNode(ctx context.Context, st *retrieveState, _ ...any) (*retrieveState, error) {
	if st.Err != nil {
		return st, nil
	}
	req := st.Req
	eg, gctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		start := time.Now()
		hits, err := p.vs.Scan(gctx, repository.Filter{
			OwnerID: req.OwnerID,
			KindsIn: rag.CoreProfileKinds(),
		}, rag.GuaranteedScanLimit())
		st.GuaranteedMs = time.Since(start).Milliseconds()
		if err != nil {
			return fmt.Errorf("guaranteed scan: %w", err)
		}
		st.Guaranteed = hits
		return nil
	})

	if req.Query != "" {
		eg.Go(func() error {
			start := time.Now()
			defer func() { st.ContextualMs = time.Since(start).Milliseconds() }()
			vecs, err := p.embedder.EmbedStrings(gctx, []string{req.Query})
			if err != nil {
				return fmt.Errorf("embed query: %w", err)
			}
			if len(vecs) != 1 {
				return fmt.Errorf("embed query: got %d vectors", len(vecs))
			}
			hits, err := p.vs.Search(gctx, vectordb.Float64To32(vecs[0]), repository.Filter{
				OwnerID:    req.OwnerID,
				KindsNotIn: rag.CoreProfileKinds(),
			}, req.TopK)
			if err != nil {
				return fmt.Errorf("contextual search: %w", err)
			}
			st.Contextual = hits
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		st.Err = err
	}
	return st, nil
}

// composeNode 同一核心 kind 只保留 created_at 最新的一条，并按固定 kind 顺序输出；
// 上下文结果再做一次 owner/kind 校验并截断到 TopK
func (p *RetrievePipeline) composeNode(ctx context.Context, st *retrieveState, _ ...any) (*retrieveState, error) {
	if st.Err != nil {
		return st, nil
	}
	ownerID := st.Req.OwnerID

	latest := make(map[string]repository.VectorHit, len(st.Guaranteed))
	for _, h := range st.Guaranteed {
		if h.OwnerID != ownerID || !rag.IsCoreKind(h.Kind) {
			continue
		}
		if cur, ok := latest[h.Kind]; !ok || h.CreatedAt > cur.CreatedAt {
			latest[h.Kind] = h
		}
	}
	profile := make([]repository.VectorHit, 0, len(latest))
	for _, kind := range rag.CoreProfileKinds() {
		if h, ok := latest[kind]; ok {
			profile = append(profile, h)
		}
	}
	st.Profile = profile

	research := make([]repository.VectorHit, 0, len(st.Contextual))
	for _, h := range st.Contextual {
		if h.OwnerID != ownerID || rag.IsCoreKind(h.Kind) {
			continue
		}
		research = append(research, h)
		if len(research) >= st.Req.TopK {
			break
		}
	}
	st.Contextual = research
	return st, nil
}

func (p *RetrievePipeline) buildResultNode(ctx context.Context, st *retrieveState, _ ...any) (*RetrieveResult, error) {
	res := &RetrieveResult{
		QueryID:      st.QueryID,
		Profile:      st.Profile,
		Research:     st.Contextual,
		GuaranteedMs: st.GuaranteedMs,
		ContextualMs: st.ContextualMs,
		err:          st.Err,
	}
	if st.Req != nil {
		res.OwnerID = st.Req.OwnerID
		res.Query = st.Req.Query
	}
	if res.Profile == nil {
		res.Profile = []repository.VectorHit{}
	}
	if res.Research == nil {
		res.Research = []repository.VectorHit{}
	}
	res.Records = make([]repository.VectorHit, 0, len(res.Profile)+len(res.Research))
	res.Records = append(res.Records, res.Profile...)
	res.Records = append(res.Records, res.Research...)
	if len(res.Records) == 0 {
		res.IsEmpty = true
		res.Message = NoContextMessage
	}
	res.DurationMs = time.Since(st.Start).Milliseconds()

	if st.Err != nil {
		zlog.Warn("ai retrieve failed",
			zap.String("query_id", res.QueryID),
			zap.Int64("owner_id", res.OwnerID),
			zap.Error(st.Err))
		return res, nil
	}
	zlog.Info("ai retrieve done",
		zap.String("query_id", res.QueryID),
		zap.Int64("owner_id", res.OwnerID),
		zap.Int("profile", len(res.Profile)),
		zap.Int("research", len(res.Research)),
		zap.Bool("empty", res.IsEmpty),
		zap.Int64("guaranteed_ms", res.GuaranteedMs),
		zap.Int64("contextual_ms", res.ContextualMs),
		zap.Int64("ms", res.DurationMs))
	return res, nil
}
