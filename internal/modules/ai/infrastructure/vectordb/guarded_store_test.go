package vectordb

import (
	"context"
	"errors"
	"testing"
	"time"

	"MarketMind/internal/modules/ai/domain/repository"
	"MarketMind/internal/modules/ai/infrastructure/resilience"
	"MarketMind/pkg/xerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyStore struct {
	*MemoryStore
	failures int
	calls    int
}

func (f *flakyStore) Scan(ctx context.Context, filter repository.Filter, limit int) ([]repository.VectorHit, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("connection refused")
	}
	return f.MemoryStore.Scan(ctx, filter, limit)
}

// countingStore 统计 Upsert / Search 调用次数
type countingStore struct {
	*MemoryStore
	calls int
}

func (c *countingStore) Upsert(ctx context.Context, records []repository.VectorRecord) ([]string, error) {
	c.calls++
	return c.MemoryStore.Upsert(ctx, records)
}

func (c *countingStore) Search(ctx context.Context, vector []float32, filter repository.Filter, limit int) ([]repository.VectorHit, error) {
	c.calls++
	return c.MemoryStore.Search(ctx, vector, filter, limit)
}

func newGuard() *resilience.Guard {
	return resilience.NewGuard(resilience.Options{Name: "vector_store", InitialBackoff: time.Millisecond, MaxRetries: 1})
}

func TestGuardedStoreRetriesOnce(t *testing.T) {
	inner := &flakyStore{MemoryStore: NewMemoryStore(0), failures: 1}
	s := NewGuardedStore(inner, newGuard())

	_, err := s.Scan(context.Background(), repository.Filter{OwnerID: 1}, 4)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestGuardedStoreSurfacesUnavailable(t *testing.T) {
	inner := &flakyStore{MemoryStore: NewMemoryStore(0), failures: 10}
	s := NewGuardedStore(inner, newGuard())

	_, err := s.Scan(context.Background(), repository.Filter{OwnerID: 1}, 4)
	require.Error(t, err)
	assert.ErrorIs(t, err, xerr.ErrServiceUnavailable)
	assert.Equal(t, 2, inner.calls)
}

func TestGuardedStoreRejectsMissingOwnerWithoutCalling(t *testing.T) {
	inner := &flakyStore{MemoryStore: NewMemoryStore(0)}
	s := NewGuardedStore(inner, newGuard())

	_, err := s.Scan(context.Background(), repository.Filter{}, 4)
	assert.ErrorIs(t, err, repository.ErrMissingOwner)
	assert.Equal(t, 0, inner.calls)
	assert.ErrorIs(t, s.DeleteByOwner(context.Background(), 0), repository.ErrMissingOwner)
}

func TestGuardedStoreDoesNotRetryInvalidRecords(t *testing.T) {
	inner := &countingStore{MemoryStore: NewMemoryStore(3)}
	s := NewGuardedStore(inner, newGuard())
	ctx := context.Background()

	_, err := s.Upsert(ctx, []repository.VectorRecord{{ID: "a", OwnerID: 1, Kind: "Note", Vector: []float32{1}}})
	assert.ErrorIs(t, err, repository.ErrInvalidRecord)
	assert.False(t, errors.Is(err, xerr.ErrServiceUnavailable))
	assert.Equal(t, 1, inner.calls)

	_, err = s.Search(ctx, []float32{1, 2}, repository.Filter{OwnerID: 1}, 3)
	assert.ErrorIs(t, err, repository.ErrInvalidRecord)
	assert.False(t, errors.Is(err, xerr.ErrServiceUnavailable))
	assert.Equal(t, 2, inner.calls)
}
