package embedding

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"MarketMind/internal/modules/ai/infrastructure/resilience"
	"MarketMind/pkg/xerr"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	inner   embedding.Embedder
	batches [][]string
	err     error
}

func (c *countingEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	c.batches = append(c.batches, append([]string(nil), texts...))
	if c.err != nil {
		return nil, c.err
	}
	return c.inner.EmbedStrings(ctx, texts, opts...)
}

func (c *countingEmbedder) calls() int { return len(c.batches) }

func TestHashEmbedderIsDeterministicAndNormalized(t *testing.T) {
	e := NewHashEmbedder(64)
	ctx := context.Background()

	a, err := e.EmbedStrings(ctx, []string{"Acme sells running shoes", "Acme sells running shoes", ""})
	require.NoError(t, err)
	require.Len(t, a, 3)
	assert.Equal(t, a[0], a[1])

	for _, v := range a {
		var norm float64
		for _, x := range v {
			norm += x * x
		}
		assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)
	}
}

func TestHashEmbedderSharedWordsAreCloser(t *testing.T) {
	e := NewHashEmbedder(256)
	vecs, err := e.EmbedStrings(context.Background(), []string{
		"eco friendly running shoes",
		"running shoes for marathon",
		"quarterly tax accounting software",
	})
	require.NoError(t, err)
	assert.Greater(t, dot(vecs[0], vecs[1]), dot(vecs[0], vecs[2]))
}

func TestCachedEmbedderOnlySendsMisses(t *testing.T) {
	inner := &countingEmbedder{inner: NewHashEmbedder(8)}
	e, err := NewCachedEmbedder(inner, 16)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := e.EmbedStrings(ctx, []string{"a", "b", "a"})
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.Equal(t, first[0], first[2])
	assert.Equal(t, [][]string{{"a", "b"}}, inner.batches)

	second, err := e.EmbedStrings(ctx, []string{"b", "c"})
	require.NoError(t, err)
	assert.Equal(t, first[1], second[0])
	assert.Equal(t, []string{"c"}, inner.batches[1])

	_, err = e.EmbedStrings(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls())
}

func TestCachedEmbedderReturnsCopies(t *testing.T) {
	inner := &countingEmbedder{inner: NewHashEmbedder(8)}
	e, err := NewCachedEmbedder(inner, 4)
	require.NoError(t, err)
	ctx := context.Background()

	v1, err := e.EmbedStrings(ctx, []string{"same"})
	require.NoError(t, err)
	orig := v1[0][0]
	v1[0][0] = 42

	v2, err := e.EmbedStrings(ctx, []string{"same"})
	require.NoError(t, err)
	assert.Equal(t, orig, v2[0][0])
}

func TestCachedEmbedderEvictsLeastRecentlyUsed(t *testing.T) {
	inner := &countingEmbedder{inner: NewHashEmbedder(8)}
	e, err := NewCachedEmbedder(inner, 2)
	require.NoError(t, err)
	ctx := context.Background()

	_, _ = e.EmbedStrings(ctx, []string{"a"})
	_, _ = e.EmbedStrings(ctx, []string{"b"})
	_, _ = e.EmbedStrings(ctx, []string{"a"}) // a 变为最近使用
	_, _ = e.EmbedStrings(ctx, []string{"c"}) // 淘汰 b
	require.Equal(t, 3, inner.calls())

	_, _ = e.EmbedStrings(ctx, []string{"a"})
	assert.Equal(t, 3, inner.calls())

	_, _ = e.EmbedStrings(ctx, []string{"b"})
	assert.Equal(t, 4, inner.calls())
}

func TestCachedEmbedderDisabled(t *testing.T) {
	inner := &countingEmbedder{inner: NewHashEmbedder(8)}
	e, err := NewCachedEmbedder(inner, 0)
	require.NoError(t, err)
	assert.Same(t, inner, e)
}

func TestCachedEmbedderDoesNotCacheErrors(t *testing.T) {
	inner := &countingEmbedder{inner: NewHashEmbedder(8), err: errors.New("boom")}
	e, err := NewCachedEmbedder(inner, 4)
	require.NoError(t, err)

	_, err = e.EmbedStrings(context.Background(), []string{"x"})
	require.Error(t, err)

	inner.err = nil
	_, err = e.EmbedStrings(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls())
}

func TestGuardedEmbedderSurfacesUnavailable(t *testing.T) {
	inner := &countingEmbedder{inner: NewHashEmbedder(8), err: errors.New("dial tcp: i/o timeout")}
	g := resilience.NewGuard(resilience.Options{Name: "embedding", InitialBackoff: time.Millisecond, MaxRetries: 1})
	e, err := Build(inner, g, 8)
	require.NoError(t, err)

	_, err = e.EmbedStrings(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, xerr.ErrServiceUnavailable)
	assert.Equal(t, 2, inner.calls())
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
