package persistence

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"MarketMind/internal/modules/ai/domain/rag"
	"MarketMind/internal/modules/ai/domain/repository"

	"gorm.io/gorm"
)

const maxLastErrorLen = 255

// 可以被重新领取的状态
var claimableStatuses = []int8{rag.IngestEventStatusPending, rag.IngestEventStatusFailed}

type ingestEventRepositoryImpl struct {
	db *gorm.DB
}

func NewIngestEventRepository(db *gorm.DB) repository.IngestEventRepository {
	return &ingestEventRepositoryImpl{db: db}
}

func (r *ingestEventRepositoryImpl) events(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&rag.AIIngestEvent{})
}

// transition 更新单条事件的状态，extra 中的列一并写入
func (r *ingestEventRepositoryImpl) transition(ctx context.Context, id int64, status int8, extra map[string]any) error {
	cols := map[string]any{"status": status, "updated_at": time.Now()}
	for k, v := range extra {
		cols[k] = v
	}
	return r.events(ctx).Where("id = ?", id).Updates(cols).Error
}

func (r *ingestEventRepositoryImpl) Create(ctx context.Context, ev *rag.AIIngestEvent) error {
	if ev == nil {
		return nil
	}
	ev.UpdatedAt = time.Now()
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = ev.UpdatedAt
	}
	return r.db.WithContext(ctx).Create(ev).Error
}

// GetByID 不存在返回 (nil, nil)
func (r *ingestEventRepositoryImpl) GetByID(ctx context.Context, id int64) (*rag.AIIngestEvent, error) {
	var ev rag.AIIngestEvent
	switch err := r.db.WithContext(ctx).Take(&ev, "id = ?", id).Error; {
	case err == nil:
		return &ev, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	default:
		return nil, err
	}
}

// TryMarkProcessing 条件更新，RowsAffected 为 0 说明已被其他 worker 领取或已完成
func (r *ingestEventRepositoryImpl) TryMarkProcessing(ctx context.Context, id int64, now, staleBefore time.Time) (bool, error) {
	res := r.events(ctx).
		Where("id = ?", id).
		Where(r.db.Where("status IN ?", claimableStatuses).
			Or("status = ? AND updated_at <= ?", rag.IngestEventStatusProcessing, staleBefore)).
		Updates(map[string]any{"status": rag.IngestEventStatusProcessing, "last_error": "", "updated_at": now})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *ingestEventRepositoryImpl) MarkSucceeded(ctx context.Context, id int64) error {
	return r.transition(ctx, id, rag.IngestEventStatusSucceeded, map[string]any{"last_error": ""})
}

func (r *ingestEventRepositoryImpl) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	return r.transition(ctx, id, rag.IngestEventStatusFailed, map[string]any{
		"last_error":  TruncateError(errMsg),
		"retry_count": gorm.Expr("retry_count + 1"),
	})
}

func (r *ingestEventRepositoryImpl) ListReplayable(ctx context.Context, staleBefore, processingStaleBefore time.Time, maxRetry int, limit int) ([]rag.AIIngestEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []rag.AIIngestEvent
	err := r.events(ctx).
		Where("retry_count < ?", maxRetry).
		Where(r.db.Where("status IN ? AND updated_at <= ?", claimableStatuses, staleBefore).
			Or("status = ? AND updated_at <= ?", rag.IngestEventStatusProcessing, processingStaleBefore)).
		Order("id").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// TruncateError last_error 列为 varchar(255)，按字节截断并退回到完整字符边界
func TruncateError(msg string) string {
	msg = strings.TrimSpace(msg)
	if len(msg) <= maxLastErrorLen {
		return msg
	}
	cut := maxLastErrorLen
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}
