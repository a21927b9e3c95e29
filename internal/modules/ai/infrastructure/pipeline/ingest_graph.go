package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"MarketMind/internal/modules/ai/domain/rag"
	"MarketMind/internal/modules/ai/infrastructure/vectordb"
	"MarketMind/pkg/util"
	"MarketMind/pkg/zlog"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

type ingestState struct {
	Req  *IngestRequest
	Docs []*schema.Document
	// DocIdx[i] 为 Docs[i] 在 Results 中的位置；Results 与输入条目一一对应
	DocIdx  []int
	Results []FieldResult
	Start   time.Time
	Err     error
}

// ingestStateKey Ingest 通过 ctx 传入状态，图被取消中断时仍能拿到已完成的部分
type ingestStateKey struct{}

func (p *IngestPipeline) buildGraph(ctx context.Context) (compose.Runnable[*IngestRequest, *IngestResult], error) {
	const (
		Prepare       = "Prepare"
		BuildDocs     = "BuildDocuments"
		EmbedAndStore = "EmbedAndStore"
		BuildResult   = "BuildResult"
	)

	g := compose.NewGraph[*IngestRequest, *IngestResult]()

	_ = g.AddLambdaNode(Prepare, compose.InvokableLambdaWithOption(p.prepareNode), compose.WithNodeName(Prepare))
	_ = g.AddLambdaNode(BuildDocs, compose.InvokableLambdaWithOption(p.buildDocsNode), compose.WithNodeName(BuildDocs))
	_ = g.AddLambdaNode(EmbedAndStore, compose.InvokableLambdaWithOption(p.embedAndStoreNode), compose.WithNodeName(EmbedAndStore))
	_ = g.AddLambdaNode(BuildResult, compose.InvokableLambdaWithOption(p.buildResultNode), compose.WithNodeName(BuildResult))

	_ = g.AddEdge(compose.START, Prepare)
	_ = g.AddEdge(Prepare, BuildDocs)
	_ = g.AddEdge(BuildDocs, EmbedAndStore)
	_ = g.AddEdge(EmbedAndStore, BuildResult)
	_ = g.AddEdge(BuildResult, compose.END)

	return g.Compile(ctx, compose.WithGraphName("RAGIngestPipeline"), compose.WithNodeTriggerMode(compose.AllPredecessor))
}

func (p *IngestPipeline) prepareNode(ctx context.Context, req *IngestRequest, _ ...any) (*ingestState, error) {
	st, ok := ctx.Value(ingestStateKey{}).(*ingestState)
	if !ok {
		st = &ingestState{}
	}
	st.Req, st.Start = req, time.Now()
	if req == nil {
		st.Err = fmt.Errorf("nil request")
		return st, nil
	}
	if err := validateIngest(req); err != nil {
		st.Err = err
	}
	return st, nil
}

// buildDocsNode 空文本字段记为 skipped，其余生成带 owner/kind 元数据的文档
func (p *IngestPipeline) buildDocsNode(ctx context.Context, st *ingestState, _ ...any) (*ingestState, error) {
	if st.Err != nil {
		return st, nil
	}
	req := st.Req
	now := p.now()
	ingestedAt := now.UTC().Format(time.RFC3339)

	items := make([]IngestItem, 0, len(req.Fields)+len(req.Items))
	for _, kind := range rag.SortedKinds(req.Fields) {
		items = append(items, IngestItem{Kind: kind, Text: req.Fields[kind]})
	}
	items = append(items, req.Items...)

	st.Results = make([]FieldResult, len(items))
	for i, it := range items {
		kind := strings.TrimSpace(it.Kind)
		text := strings.TrimSpace(it.Text)
		st.Results[i].Kind = kind
		if text == "" {
			st.Results[i].Status = FieldStatusSkipped
			continue
		}

		meta := make(map[string]any, len(req.Metadata)+len(it.Metadata)+1)
		for k, v := range req.Metadata {
			meta[k] = v
		}
		for k, v := range it.Metadata {
			meta[k] = v
		}
		meta["ingested_at"] = ingestedAt

		st.Docs = append(st.Docs, &schema.Document{
			ID:      recordID(req.OwnerID, kind),
			Content: text,
			MetaData: map[string]any{
				vectordb.MetaOwnerID:   req.OwnerID,
				vectordb.MetaKind:      kind,
				vectordb.MetaCreatedAt: now.UnixMilli(),
				vectordb.MetaMetadata:  meta,
			},
		})
		st.DocIdx = append(st.DocIdx, i)
	}
	return st, nil
}

// embedAndStoreNode 逐条执行 embed -> store，两步都同步完成后才处理下一条
func (p *IngestPipeline) embedAndStoreNode(ctx context.Context, st *ingestState, _ ...any) (*ingestState, error) {
	if st.Err != nil {
		return st, nil
	}
	for i, doc := range st.Docs {
		if err := ctx.Err(); err != nil {
			st.Err = err
			return st, nil
		}
		kind, _ := doc.MetaData[vectordb.MetaKind].(string)
		fr := FieldResult{Kind: kind, RecordID: doc.ID}
		if err := p.embedAndStoreOne(ctx, doc); err != nil {
			fr.RecordID = ""
			fr.Status = FieldStatusFailed
			fr.Error = err.Error()
			zlog.Warn("ai ingest field failed",
				zap.Int64("owner_id", st.Req.OwnerID),
				zap.String("kind", kind),
				zap.Error(err))
		} else {
			fr.Status = FieldStatusStored
		}
		st.Results[st.DocIdx[i]] = fr
	}
	if err := ctx.Err(); err != nil {
		st.Err = err
	}
	return st, nil
}

func (p *IngestPipeline) embedAndStoreOne(ctx context.Context, doc *schema.Document) error {
	vecs, err := p.embedder.EmbedStrings(ctx, []string{doc.Content})
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	if len(vecs) != 1 {
		return fmt.Errorf("embed: got %d vectors for 1 text", len(vecs))
	}
	if p.vectorDim > 0 && len(vecs[0]) != p.vectorDim {
		return fmt.Errorf("vector dim mismatch got=%d want=%d", len(vecs[0]), p.vectorDim)
	}
	doc.WithDenseVector(vecs[0])
	if _, err := p.indexer.Store(ctx, []*schema.Document{doc}); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}

func (p *IngestPipeline) buildResultNode(ctx context.Context, st *ingestState, _ ...any) (*IngestResult, error) {
	return p.summarize(st), nil
}

// summarize 中途取消时，尚未处理的条目记为 failed
func (p *IngestPipeline) summarize(st *ingestState) *IngestResult {
	res := &IngestResult{Fields: st.Results, err: st.Err}
	if st.Req != nil {
		res.OwnerID = st.Req.OwnerID
	}
	if res.Fields == nil {
		res.Fields = []FieldResult{}
	}
	for i := range res.Fields {
		f := &res.Fields[i]
		if f.Status == "" {
			f.Status = FieldStatusFailed
			if st.Err != nil {
				f.Error = "not attempted: " + st.Err.Error()
			}
		}
		switch f.Status {
		case FieldStatusStored:
			res.Stored++
		case FieldStatusSkipped:
			res.Skipped++
		case FieldStatusFailed:
			res.Failed++
		}
	}
	res.DurationMs = time.Since(st.Start).Milliseconds()

	zlog.Info("ai ingest done",
		zap.Int64("owner_id", res.OwnerID),
		zap.Int("stored", res.Stored),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
		zap.Int64("ms", res.DurationMs),
		zap.NamedError("abort", st.Err))
	return res
}

// recordID 核心画像字段按 (owner, kind) 生成固定 id，重复写入即覆盖；研究类记录每次新 id
func recordID(ownerID int64, kind string) string {
	if rag.IsCoreKind(kind) {
		return CoreRecordID(ownerID, kind)
	}
	return util.GenerateUUID()
}

// CoreRecordID 核心画像字段在向量库中的固定 id
func CoreRecordID(ownerID int64, kind string) string {
	return util.NameUUID(fmt.Sprintf("%d|%s", ownerID, strings.TrimSpace(kind)))
}
