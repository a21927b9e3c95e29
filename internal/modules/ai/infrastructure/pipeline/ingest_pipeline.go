package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/indexer"
	"github.com/cloudwego/eino/compose"
)

var (
	ErrInvalidOwner = errors.New("owner_id must be positive")
	ErrNoFields     = errors.New("no fields to ingest")
)

// 单个字段的写入结果
const (
	FieldStatusStored  = "stored"
	FieldStatusSkipped = "skipped"
	FieldStatusFailed  = "failed"
)

// IngestItem 一条待写入的文本；同一 Kind 可出现多次（笔记分片、研究问题）
type IngestItem struct {
	Kind     string
	Text     string
	Metadata map[string]any
}

// IngestRequest Fields 按 kind 字典序写入，其后依次写入 Items。
// Metadata 合并进每条记录，Item 自带的 Metadata 优先。
type IngestRequest struct {
	OwnerID  int64
	Fields   map[string]string
	Items    []IngestItem
	Metadata map[string]any
}

type FieldResult struct {
	Kind     string `json:"kind"`
	RecordID string `json:"record_id,omitempty"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

type IngestResult struct {
	OwnerID    int64         `json:"owner_id"`
	Fields     []FieldResult `json:"fields"`
	Stored     int           `json:"stored"`
	Skipped    int           `json:"skipped"`
	Failed     int           `json:"failed"`
	DurationMs int64         `json:"duration_ms"`

	err error
}

// FailedKinds 写入失败的 kind 列表
func (r *IngestResult) FailedKinds() []string {
	out := make([]string, 0, r.Failed)
	for _, f := range r.Fields {
		if f.Status == FieldStatusFailed {
			out = append(out, f.Kind)
		}
	}
	return out
}

// IngestPipeline 把画像字段逐条向量化后写入向量库（每个字段一条记录）。
// 单字段失败只记录在结果里，不影响其它字段；不做跨字段事务。
type IngestPipeline struct {
	embedder  embedding.Embedder
	indexer   indexer.Indexer
	vectorDim int
	now       func() time.Time
	r         compose.Runnable[*IngestRequest, *IngestResult]
}

// NewIngestPipeline vectorDim <= 0 时不校验向量维度
func NewIngestPipeline(embedder embedding.Embedder, idx indexer.Indexer, vectorDim int) (*IngestPipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is nil")
	}
	if idx == nil {
		return nil, fmt.Errorf("indexer is nil")
	}
	p := &IngestPipeline{embedder: embedder, indexer: idx, vectorDim: vectorDim, now: time.Now}
	r, err := p.buildGraph(context.Background())
	if err != nil {
		return nil, err
	}
	p.r = r
	return p, nil
}

// Ingest 只在参数非法或 ctx 取消时返回 error；取消时同时返回已写入部分的结果
func (p *IngestPipeline) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if err := validateIngest(&req); err != nil {
		return nil, err
	}
	st := &ingestState{}
	res, err := p.r.Invoke(context.WithValue(ctx, ingestStateKey{}, st), &req)
	if err != nil {
		// 图在节点之间检查 ctx，取消后不会执行 BuildResult
		if ctxErr := ctx.Err(); ctxErr != nil && st.Req != nil {
			if st.Err == nil {
				st.Err = ctxErr
			}
			return p.summarize(st), ctxErr
		}
		return nil, err
	}
	return res, res.err
}

func validateIngest(req *IngestRequest) error {
	if req.OwnerID <= 0 {
		return ErrInvalidOwner
	}
	if len(req.Fields) == 0 && len(req.Items) == 0 {
		return ErrNoFields
	}
	for kind := range req.Fields {
		if strings.TrimSpace(kind) == "" {
			return fmt.Errorf("field name is empty")
		}
	}
	for _, it := range req.Items {
		if strings.TrimSpace(it.Kind) == "" {
			return fmt.Errorf("item kind is empty")
		}
	}
	return nil
}
