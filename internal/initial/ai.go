package initial

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"MarketMind/internal/config"
	"MarketMind/internal/modules/ai/domain/repository"
	"MarketMind/internal/modules/ai/infrastructure/cache"
	"MarketMind/internal/modules/ai/infrastructure/chunking"
	"MarketMind/internal/modules/ai/infrastructure/embedding"
	"MarketMind/internal/modules/ai/infrastructure/llm"
	"MarketMind/internal/modules/ai/infrastructure/metrics"
	"MarketMind/internal/modules/ai/infrastructure/pipeline"
	"MarketMind/internal/modules/ai/infrastructure/resilience"
	"MarketMind/internal/modules/ai/infrastructure/vectordb"
	"MarketMind/pkg/redis"
	"MarketMind/pkg/zlog"

	"github.com/cloudwego/eino/components/model"
	"go.uber.org/zap"
)

// AIComponents 向量库、模型与三条 pipeline，serve 与 worker 共用
type AIComponents struct {
	Metrics    *metrics.Exporter
	Store      repository.VectorStore
	Ingest     *pipeline.IngestPipeline
	Retrieve   *pipeline.RetrievePipeline
	Completion *pipeline.CompletionPipeline
	Splitter   *chunking.NoteSplitter
	Locker     *cache.RedisLocker

	closers []func() error
}

// NewAIComponents 按配置组装 AI 依赖。对话模型未配置时 Completion 仍可用，调用返回 503。
func NewAIComponents(ctx context.Context, conf *config.Config) (*AIComponents, error) {
	c := &AIComponents{Metrics: metrics.NewExporter(metrics.DefaultConfig())}
	res := conf.AIConfig.Resilience
	newGuard := func(name string) *resilience.Guard {
		return resilience.NewGuard(resilience.Options{
			Name:           name,
			MaxConcurrent:  res.MaxConcurrent,
			Timeout:        time.Duration(res.TimeoutSeconds) * time.Second,
			InitialBackoff: time.Duration(res.InitialBackoffMs) * time.Millisecond,
			MaxRetries:     res.MaxRetries,
			Observer:       c.Metrics,
		})
	}

	rawEmbedder, meta, err := embedding.NewEmbedderFromConfig(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	embedder, err := embedding.Build(rawEmbedder, newGuard("embedding"), conf.AIConfig.Cache.EmbeddingSize)
	if err != nil {
		return nil, fmt.Errorf("init embedding cache: %w", err)
	}
	zlog.Info("embedder ready", zap.String("provider", meta.Provider), zap.String("model", meta.Model), zap.Int("dim", meta.Dim))

	store, err := c.newVectorStore(ctx, conf, meta.Dim)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.Store = vectordb.NewGuardedStore(store, newGuard("vectordb"))

	idx, err := vectordb.NewEinoIndexer(c.Store)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	if c.Ingest, err = pipeline.NewIngestPipeline(embedder, idx, meta.Dim); err != nil {
		_ = c.Close()
		return nil, err
	}
	c.Retrieve, err = pipeline.NewRetrievePipeline(c.Store, embedder, pipeline.RetrieveOptions{
		DefaultTopK: conf.AIConfig.Retrieval.DefaultTopK,
		MaxTopK:     conf.AIConfig.Retrieval.MaxTopK,
	})
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	var chatModel model.BaseChatModel
	rawModel, chatMeta, err := llm.NewChatModelFromConfig(ctx, conf)
	switch {
	case errors.Is(err, llm.ErrChatModelDisabled):
		zlog.Warn("chat model disabled, completion endpoints will return 503")
	case err != nil:
		_ = c.Close()
		return nil, fmt.Errorf("init chat model: %w", err)
	default:
		chatModel = llm.NewGuardedChatModel(rawModel, newGuard("llm"))
		zlog.Info("chat model ready", zap.String("provider", chatMeta.Provider), zap.String("model", chatMeta.Model))
	}

	var completionCache pipeline.Cache = cache.NewMemoryCache()
	if redis.IsConnected() {
		completionCache = cache.NewRedisCache()
	}
	c.Completion = pipeline.NewCompletionPipeline(chatModel, completionCache, c.Metrics)
	c.Splitter = chunking.NewNoteSplitter(conf.AIConfig.Retrieval.NoteChunkSize, conf.AIConfig.Retrieval.NoteChunkOverlap)
	c.Locker = cache.NewRedisLocker()
	return c, nil
}

func (c *AIComponents) newVectorStore(ctx context.Context, conf *config.Config, dim int) (repository.VectorStore, error) {
	backend := strings.ToLower(strings.TrimSpace(conf.VectorStoreConfig.Backend))
	switch backend {
	case "milvus":
		cli, err := NewMilvusClient(ctx, conf, dim)
		if err != nil {
			return nil, fmt.Errorf("init milvus: %w", err)
		}
		c.closers = append(c.closers, cli.Close)
		return vectordb.NewMilvusStore(cli, conf.MilvusConfig.CollectionName, dim, MilvusMetricType(conf.MilvusConfig.MetricType))
	case "qdrant":
		cli, err := NewQdrantClient(ctx, conf, dim)
		if err != nil {
			return nil, fmt.Errorf("init qdrant: %w", err)
		}
		c.closers = append(c.closers, cli.Close)
		return vectordb.NewQdrantStore(cli, conf.QdrantConfig.CollectionName, dim)
	case "memory":
		zlog.Warn("using in-memory vector store, records are lost on restart")
		return vectordb.NewMemoryStore(dim), nil
	default:
		return nil, fmt.Errorf("unknown vector store backend: %s", backend)
	}
}

// Close 关闭向量库连接
func (c *AIComponents) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
