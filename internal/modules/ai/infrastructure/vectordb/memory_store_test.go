package vectordb

import (
	"context"
	"testing"

	"MarketMind/internal/modules/ai/domain/repository"
	"MarketMind/internal/modules/ai/infrastructure/resilience"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(id string, owner int64, kind string, vec ...float32) repository.VectorRecord {
	return repository.VectorRecord{ID: id, OwnerID: owner, Kind: kind, Text: id, Vector: vec}
}

func TestMemoryStoreScanIsOwnerScoped(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)
	_, err := s.Upsert(ctx, []repository.VectorRecord{
		rec("a1", 1, "Company Name", 1, 0),
		rec("b1", 2, "Company Name", 1, 0),
		rec("a2", 1, "Note", 0, 1),
	})
	require.NoError(t, err)

	hits, err := s.Scan(ctx, repository.Filter{OwnerID: 1, KindsIn: []string{"Company Name"}}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a1", hits[0].ID)

	hits, err = s.Scan(ctx, repository.Filter{OwnerID: 1, KindsNotIn: []string{"Company Name"}}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a2", hits[0].ID)

	_, err = s.Scan(ctx, repository.Filter{}, 10)
	assert.ErrorIs(t, err, repository.ErrMissingOwner)
}

func TestMemoryStoreSearchRanksByCosine(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)
	_, err := s.Upsert(ctx, []repository.VectorRecord{
		rec("far", 1, "Note", 0, 1),
		rec("near", 1, "Note", 1, 0.1),
		rec("mid", 1, "Note", 1, 1),
	})
	require.NoError(t, err)

	hits, err := s.Search(ctx, []float32{1, 0}, repository.Filter{OwnerID: 1}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "near", hits[0].ID)
	assert.Equal(t, "mid", hits[1].ID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestMemoryStoreUpsertReplacesAndCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	r := rec("x", 1, "Company Name", 1, 2)
	r.Metadata = map[string]any{"v": 1}
	_, err := s.Upsert(ctx, []repository.VectorRecord{r})
	require.NoError(t, err)

	r.Vector[0] = 99
	r.Metadata["v"] = 2
	r.Text = "second"
	_, err = s.Upsert(ctx, []repository.VectorRecord{r})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())

	hits, err := s.Scan(ctx, repository.Filter{OwnerID: 1}, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "second", hits[0].Text)
	assert.Equal(t, 2, hits[0].Metadata["v"])

	hits[0].Metadata["v"] = 3
	again, _ := s.Scan(ctx, repository.Filter{OwnerID: 1}, 0)
	assert.Equal(t, 2, again[0].Metadata["v"])
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	_, err := s.Upsert(ctx, []repository.VectorRecord{
		rec("a", 1, "Note", 1), rec("b", 1, "Note", 1), rec("c", 2, "Note", 1),
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteByIDs(ctx, 2, []string{"a"}))
	assert.Equal(t, 3, s.Len(), "other owner's id must not be deleted")
	require.NoError(t, s.DeleteByIDs(ctx, 1, []string{"a", "missing"}))
	assert.Equal(t, 2, s.Len())

	require.NoError(t, s.DeleteByOwner(ctx, 1))
	assert.Equal(t, 1, s.Len())
	hits, err := s.Scan(ctx, repository.Filter{OwnerID: 2}, 0)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	assert.ErrorIs(t, s.DeleteByOwner(ctx, 0), repository.ErrMissingOwner)
}

func TestMemoryStoreRejectsDimMismatch(t *testing.T) {
	s := NewMemoryStore(3)
	_, err := s.Upsert(context.Background(), []repository.VectorRecord{rec("a", 1, "Note", 1, 2)})
	assert.ErrorIs(t, err, repository.ErrInvalidRecord)
	assert.True(t, resilience.IsPermanent(err))
	_, err = s.Search(context.Background(), []float32{1}, repository.Filter{OwnerID: 1}, 1)
	assert.ErrorIs(t, err, repository.ErrInvalidRecord)
	assert.True(t, resilience.IsPermanent(err))

	_, err = s.Upsert(context.Background(), []repository.VectorRecord{rec("", 1, "Note", 1, 2, 3)})
	assert.ErrorIs(t, err, repository.ErrInvalidRecord)
}
