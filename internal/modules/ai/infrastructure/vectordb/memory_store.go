package vectordb

import (
	"context"
	"math"
	"sort"
	"sync"

	"MarketMind/internal/modules/ai/domain/repository"
)

// MemoryStore 进程内向量库：余弦相似度线性扫描。
// 用于本地开发（vectorStoreConfig.backend = "memory"）和 pipeline 测试。
type MemoryStore struct {
	mu      sync.RWMutex
	dim     int
	order   []string
	records map[string]repository.VectorRecord
}

var _ repository.VectorStore = (*MemoryStore)(nil)

// NewMemoryStore dim <= 0 时不校验维度
func NewMemoryStore(dim int) *MemoryStore {
	return &MemoryStore{dim: dim, records: make(map[string]repository.VectorRecord)}
}

func (s *MemoryStore) Upsert(ctx context.Context, records []repository.VectorRecord) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, r := range records {
		if err := checkRecord(r, s.dim); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(records))
	for _, r := range records {
		if _, ok := s.records[r.ID]; ok {
			s.removeFromOrder(r.ID)
		}
		s.order = append(s.order, r.ID)
		s.records[r.ID] = cloneRecord(r)
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func (s *MemoryStore) Scan(ctx context.Context, filter repository.Filter, limit int) ([]repository.VectorHit, error) {
	if err := filter.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]repository.VectorHit, 0)
	for _, id := range s.order {
		if limit > 0 && len(hits) >= limit {
			break
		}
		r := s.records[id]
		if filter.Match(r.OwnerID, r.Kind) {
			hits = append(hits, toHit(r, 0))
		}
	}
	return hits, nil
}

func (s *MemoryStore) Search(ctx context.Context, vector []float32, filter repository.Filter, limit int) ([]repository.VectorHit, error) {
	if err := filter.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkQueryVector(vector, s.dim); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]repository.VectorHit, 0)
	for _, id := range s.order {
		r := s.records[id]
		if filter.Match(r.OwnerID, r.Kind) {
			hits = append(hits, toHit(r, cosine(vector, r.Vector)))
		}
	}
	// 同分时保持写入顺序
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *MemoryStore) DeleteByIDs(ctx context.Context, ownerID int64, ids []string) error {
	if ownerID <= 0 {
		return repository.ErrMissingOwner
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if r, ok := s.records[id]; !ok || r.OwnerID != ownerID {
			continue
		}
		delete(s.records, id)
		s.removeFromOrder(id)
	}
	return nil
}

func (s *MemoryStore) DeleteByOwner(ctx context.Context, ownerID int64) error {
	if ownerID <= 0 {
		return repository.ErrMissingOwner
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.order[:0]
	for _, id := range s.order {
		if s.records[id].OwnerID == ownerID {
			delete(s.records, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return nil
}

// Len 当前记录数
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *MemoryStore) removeFromOrder(id string) {
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

func cloneRecord(r repository.VectorRecord) repository.VectorRecord {
	out := r
	out.Vector = append([]float32(nil), r.Vector...)
	out.Metadata = cloneMetadata(r.Metadata)
	return out
}

func cloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func toHit(r repository.VectorRecord, score float32) repository.VectorHit {
	return repository.VectorHit{
		ID:        r.ID,
		Score:     score,
		OwnerID:   r.OwnerID,
		Kind:      r.Kind,
		Text:      r.Text,
		Metadata:  cloneMetadata(r.Metadata),
		CreatedAt: r.CreatedAt,
	}
}

func cosine(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
