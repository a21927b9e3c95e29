package queue

import (
	"context"
	"errors"
	"time"

	"MarketMind/internal/modules/ai/domain/repository"
	"MarketMind/internal/modules/ai/infrastructure/mq"
	"MarketMind/pkg/zlog"

	"go.uber.org/zap"
)

// EventReplayer 定期把卡在 pending/failed 的事件重新投递到 Kafka
// （发布失败、消费失败的补偿）；worker 崩溃遗留的 processing 事件超时后同样重投
type EventReplayer struct {
	repo         repository.IngestEventRepository
	pub          mq.Publisher
	topic        string
	staleAfter   time.Duration
	procTimeout  time.Duration
	maxRetry     int
	batchSize    int
	pollInterval time.Duration
	now          func() time.Time
}

type ReplayerOptions struct {
	StaleAfter        time.Duration // 默认 1 分钟
	ProcessingTimeout time.Duration // 默认 DefaultProcessingTimeout，应与 worker 一致
	MaxRetry          int           // 默认 5
	BatchSize         int           // 默认 100
	PollInterval      time.Duration // 默认 30 秒
}

func NewEventReplayer(repo repository.IngestEventRepository, pub mq.Publisher, topic string, opts ReplayerOptions) *EventReplayer {
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = time.Minute
	}
	if opts.ProcessingTimeout <= 0 {
		opts.ProcessingTimeout = DefaultProcessingTimeout
	}
	if opts.MaxRetry <= 0 {
		opts.MaxRetry = 5
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 30 * time.Second
	}
	return &EventReplayer{
		repo:         repo,
		pub:          pub,
		topic:        topic,
		staleAfter:   opts.StaleAfter,
		procTimeout:  opts.ProcessingTimeout,
		maxRetry:     opts.MaxRetry,
		batchSize:    opts.BatchSize,
		pollInterval: opts.PollInterval,
		now:          time.Now,
	}
}

func (r *EventReplayer) Run(ctx context.Context) error {
	if r.repo == nil {
		return errors.New("ingest event repo is nil")
	}
	if r.pub == nil {
		return errors.New("publisher is nil")
	}

	wait := r.pollInterval
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		if _, err := r.RunOnce(ctx); err != nil {
			wait *= 2
			if wait > 10*r.pollInterval {
				wait = 10 * r.pollInterval
			}
			continue
		}
		wait = r.pollInterval
	}
}

// RunOnce 返回本轮重新投递的事件数
func (r *EventReplayer) RunOnce(ctx context.Context) (int, error) {
	now := r.now()
	events, err := r.repo.ListReplayable(ctx, now.Add(-r.staleAfter), now.Add(-r.procTimeout), r.maxRetry, r.batchSize)
	if err != nil {
		zlog.Warn("ai event replayer list failed", zap.Error(err))
		return 0, err
	}

	published := 0
	for i := range events {
		ev := events[i]
		if _, err := r.pub.Publish(ctx, mq.NewIngestEventMessage(r.topic, ev.Id, ev.OwnerId, ev.EventType)); err != nil {
			zlog.Warn("ai event replayer publish failed", zap.Int64("event_id", ev.Id), zap.Error(err))
			continue
		}
		published++
	}
	if len(events) > 0 {
		zlog.Info("ai event replayer done", zap.Int("candidates", len(events)), zap.Int("published", published))
	}
	return published, nil
}
