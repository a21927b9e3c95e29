package vectordb

import (
	"fmt"

	"MarketMind/internal/modules/ai/domain/repository"
	"MarketMind/internal/modules/ai/infrastructure/resilience"
)

// 以下校验错误都带 Permanent 标记，GuardedStore 不会重试

func invalid(err error) error {
	if err == nil {
		return nil
	}
	return resilience.Permanent(err)
}

// checkRecord dim <= 0 时不校验维度
func checkRecord(r repository.VectorRecord, dim int) error {
	switch {
	case r.ID == "":
		return invalid(fmt.Errorf("%w: upsert record missing ID", repository.ErrInvalidRecord))
	case r.OwnerID <= 0:
		return invalid(repository.ErrMissingOwner)
	case dim > 0 && len(r.Vector) != dim:
		return invalid(fmt.Errorf("%w: vector dim mismatch for id=%s, got=%d want=%d",
			repository.ErrInvalidRecord, r.ID, len(r.Vector), dim))
	}
	return nil
}

func checkQueryVector(vector []float32, dim int) error {
	if dim > 0 && len(vector) != dim {
		return invalid(fmt.Errorf("%w: query vector dim mismatch, got=%d want=%d",
			repository.ErrInvalidRecord, len(vector), dim))
	}
	return nil
}
