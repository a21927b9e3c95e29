package repository

import (
	"context"

	"MarketMind/internal/modules/ai/domain/rag"
)

// BusinessProfileRepository 画像仓储
type BusinessProfileRepository interface {
	GetByOwner(ctx context.Context, ownerID int64) (*rag.BusinessProfile, error)
	Upsert(ctx context.Context, p *rag.BusinessProfile) error
}
