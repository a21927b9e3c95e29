package embedding

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/embedding"
	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedEmbedder 文本 -> 向量的 LRU 缓存。
// 只把未命中的文本（去重后）一次性交给底层 embedder；写入与返回的都是副本。
type CachedEmbedder struct {
	inner embedding.Embedder
	cache *lru.Cache[string, []float64]
}

var _ embedding.Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder size <= 0 时不缓存，直接返回 inner
func NewCachedEmbedder(inner embedding.Embedder, size int) (embedding.Embedder, error) {
	if size <= 0 {
		return inner, nil
	}
	c, err := lru.New[string, []float64](size)
	if err != nil {
		return nil, err
	}
	return &CachedEmbedder{inner: inner, cache: c}, nil
}

func (e *CachedEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	out := make([][]float64, len(texts))
	missIdx := make(map[string][]int)
	misses := make([]string, 0)

	for i, t := range texts {
		if v, ok := e.cache.Get(t); ok {
			out[i] = copyVector(v)
			continue
		}
		if _, seen := missIdx[t]; !seen {
			misses = append(misses, t)
		}
		missIdx[t] = append(missIdx[t], i)
	}
	if len(misses) == 0 {
		return out, nil
	}

	vecs, err := e.inner.EmbedStrings(ctx, misses, opts...)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(misses) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(misses))
	}
	for j, t := range misses {
		e.cache.Add(t, copyVector(vecs[j]))
		for _, i := range missIdx[t] {
			out[i] = copyVector(vecs[j])
		}
	}
	return out, nil
}

// Len 当前缓存条目数
func (e *CachedEmbedder) Len() int {
	return e.cache.Len()
}

func copyVector(v []float64) []float64 {
	return append([]float64(nil), v...)
}
