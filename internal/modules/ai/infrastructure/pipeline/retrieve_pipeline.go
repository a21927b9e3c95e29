package pipeline

import (
	"context"
	"fmt"

	"MarketMind/internal/modules/ai/domain/repository"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/compose"
)

// NoContextMessage 召回为空时的提示，调用方应降级为仅用通用知识生成
const NoContextMessage = "no prior context for this owner"

// RetrieveRequest 召回请求
type RetrieveRequest struct {
	OwnerID int64
	Query   string // 为空时只走保底召回
	TopK    int    // 相似度召回条数（默认 5，上限 MaxTopK）
}

// RetrieveResult 召回结果：Records = Profile（保底）+ Research（相似度排序）
type RetrieveResult struct {
	QueryID      string                 `json:"query_id"`
	OwnerID      int64                  `json:"owner_id"`
	Query        string                 `json:"query"`
	Profile      []repository.VectorHit `json:"profile"`
	Research     []repository.VectorHit `json:"research"`
	Records      []repository.VectorHit `json:"records"`
	IsEmpty      bool                   `json:"is_empty"`
	Message      string                 `json:"message,omitempty"`
	DurationMs   int64                  `json:"duration_ms"`
	GuaranteedMs int64                  `json:"guaranteed_ms"`
	ContextualMs int64                  `json:"contextual_ms"`

	err error
}

// ProfileFields 保底召回结果转换为 kind -> text
func (r *RetrieveResult) ProfileFields() map[string]string {
	out := make(map[string]string, len(r.Profile))
	for _, h := range r.Profile {
		out[h.Kind] = h.Text
	}
	return out
}

type RetrieveOptions struct {
	DefaultTopK int
	MaxTopK     int
}

// RetrievePipeline 两路召回：
//  1. 保底：owner 的核心画像记录，非排序扫描，不参与相似度竞争；
//  2. 上下文：query 向量化后在 owner 的非核心记录里做余弦检索。
//
// 两路的 kind 过滤互斥，同一条记录不会同时出现在两路结果里。
type RetrievePipeline struct {
	vs       repository.VectorStore
	embedder embedding.Embedder
	opts     RetrieveOptions
	r        compose.Runnable[*RetrieveRequest, *RetrieveResult]
}

func NewRetrievePipeline(vs repository.VectorStore, embedder embedding.Embedder, opts RetrieveOptions) (*RetrievePipeline, error) {
	if vs == nil {
		return nil, fmt.Errorf("vector store is nil")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is nil")
	}
	if opts.DefaultTopK <= 0 {
		opts.DefaultTopK = 5
	}
	if opts.MaxTopK <= 0 {
		opts.MaxTopK = 50
	}
	p := &RetrievePipeline{vs: vs, embedder: embedder, opts: opts}
	r, err := p.buildGraph(context.Background())
	if err != nil {
		return nil, err
	}
	p.r = r
	return p, nil
}

// Retrieve 空结果不是错误；存储或网络错误原样返回
func (p *RetrievePipeline) Retrieve(ctx context.Context, req RetrieveRequest) (*RetrieveResult, error) {
	if req.OwnerID <= 0 {
		return nil, ErrInvalidOwner
	}
	res, err := p.r.Invoke(ctx, &req)
	if err != nil {
		return nil, err
	}
	if res.err != nil {
		return nil, res.err
	}
	return res, nil
}

func (p *RetrievePipeline) normalizeTopK(topK int) int {
	if topK <= 0 {
		return p.opts.DefaultTopK
	}
	if topK > p.opts.MaxTopK {
		return p.opts.MaxTopK
	}
	return topK
}
