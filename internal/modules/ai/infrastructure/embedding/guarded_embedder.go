package embedding

import (
	"context"

	"MarketMind/internal/modules/ai/infrastructure/resilience"

	"github.com/cloudwego/eino/components/embedding"
)

// GuardedEmbedder 对 embedding 服务的调用加并发上限、超时与重试
type GuardedEmbedder struct {
	inner embedding.Embedder
	guard *resilience.Guard
}

var _ embedding.Embedder = (*GuardedEmbedder)(nil)

func NewGuardedEmbedder(inner embedding.Embedder, guard *resilience.Guard) *GuardedEmbedder {
	return &GuardedEmbedder{inner: inner, guard: guard}
}

func (e *GuardedEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}
	return resilience.Call(ctx, e.guard, "embed", func(ctx context.Context) ([][]float64, error) {
		return e.inner.EmbedStrings(ctx, texts, opts...)
	})
}

// Build 组装完整的 embedder：底层 provider -> 重试保护 -> LRU 缓存。
// 缓存放在最外层，命中时不占用并发名额。
func Build(inner embedding.Embedder, guard *resilience.Guard, cacheSize int) (embedding.Embedder, error) {
	return NewCachedEmbedder(NewGuardedEmbedder(inner, guard), cacheSize)
}
