package vectordb

import (
	"context"

	"MarketMind/internal/modules/ai/domain/repository"
	"MarketMind/internal/modules/ai/infrastructure/resilience"
)

// GuardedStore 给向量库调用加上并发上限、超时与重试
type GuardedStore struct {
	inner repository.VectorStore
	guard *resilience.Guard
}

var _ repository.VectorStore = (*GuardedStore)(nil)

func NewGuardedStore(inner repository.VectorStore, guard *resilience.Guard) *GuardedStore {
	return &GuardedStore{inner: inner, guard: guard}
}

func (s *GuardedStore) Upsert(ctx context.Context, records []repository.VectorRecord) ([]string, error) {
	for _, r := range records {
		if r.OwnerID <= 0 {
			return nil, repository.ErrMissingOwner
		}
	}
	return resilience.Call(ctx, s.guard, "upsert", func(ctx context.Context) ([]string, error) {
		return s.inner.Upsert(ctx, records)
	})
}

func (s *GuardedStore) Scan(ctx context.Context, filter repository.Filter, limit int) ([]repository.VectorHit, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	return resilience.Call(ctx, s.guard, "scan", func(ctx context.Context) ([]repository.VectorHit, error) {
		return s.inner.Scan(ctx, filter, limit)
	})
}

func (s *GuardedStore) Search(ctx context.Context, vector []float32, filter repository.Filter, limit int) ([]repository.VectorHit, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	return resilience.Call(ctx, s.guard, "search", func(ctx context.Context) ([]repository.VectorHit, error) {
		return s.inner.Search(ctx, vector, filter, limit)
	})
}

func (s *GuardedStore) DeleteByIDs(ctx context.Context, ownerID int64, ids []string) error {
	if ownerID <= 0 {
		return repository.ErrMissingOwner
	}
	return s.guard.Do(ctx, "delete_ids", func(ctx context.Context) error {
		return s.inner.DeleteByIDs(ctx, ownerID, ids)
	})
}

func (s *GuardedStore) DeleteByOwner(ctx context.Context, ownerID int64) error {
	if ownerID <= 0 {
		return repository.ErrMissingOwner
	}
	return s.guard.Do(ctx, "delete_owner", func(ctx context.Context) error {
		return s.inner.DeleteByOwner(ctx, ownerID)
	})
}
