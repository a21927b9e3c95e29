package persistence

import (
	"context"
	"errors"
	"time"

	"MarketMind/internal/modules/ai/domain/rag"
	"MarketMind/internal/modules/ai/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type businessProfileRepositoryImpl struct {
	db *gorm.DB
}

func NewBusinessProfileRepository(db *gorm.DB) repository.BusinessProfileRepository {
	return &businessProfileRepositoryImpl{db: db}
}

// GetByOwner 不存在返回 (nil, nil)
func (r *businessProfileRepositoryImpl) GetByOwner(ctx context.Context, ownerID int64) (*rag.BusinessProfile, error) {
	var p rag.BusinessProfile
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Take(&p).Error
	if err == nil {
		return &p, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

// Upsert owner_id 唯一，冲突时覆盖四个画像字段
func (r *businessProfileRepositoryImpl) Upsert(ctx context.Context, p *rag.BusinessProfile) error {
	if p == nil {
		return nil
	}
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"company_name", "product_description", "target_audience", "tone_of_voice", "updated_at",
		}),
	}).Create(p).Error
}
