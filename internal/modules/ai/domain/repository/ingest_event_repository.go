package repository

import (
	"context"
	"time"

	"MarketMind/internal/modules/ai/domain/rag"
)

type IngestEventRepository interface {
	Create(ctx context.Context, ev *rag.AIIngestEvent) error
	GetByID(ctx context.Context, id int64) (*rag.AIIngestEvent, error)
	// TryMarkProcessing pending|failed → processing，返回是否抢到；
	// updated_at 不晚于 staleBefore 的 processing 事件也可被重新领取
	TryMarkProcessing(ctx context.Context, id int64, now, staleBefore time.Time) (bool, error)
	MarkSucceeded(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, errMsg string) error
	// ListReplayable 未超过重试上限、且 pending/failed 早于 staleBefore
	// 或 processing 早于 processingStaleBefore 的事件
	ListReplayable(ctx context.Context, staleBefore, processingStaleBefore time.Time, maxRetry int, limit int) ([]rag.AIIngestEvent, error)
}
