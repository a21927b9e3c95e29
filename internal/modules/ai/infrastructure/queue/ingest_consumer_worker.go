package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"MarketMind/internal/modules/ai/domain/rag"
	"MarketMind/internal/modules/ai/domain/repository"
	"MarketMind/internal/modules/ai/infrastructure/mq"
	"MarketMind/internal/modules/ai/infrastructure/persistence"
	"MarketMind/internal/modules/ai/infrastructure/pipeline"
	"MarketMind/pkg/zlog"

	"go.uber.org/zap"
)

// Ingestor 由 pipeline.IngestPipeline 实现
type Ingestor interface {
	Ingest(ctx context.Context, req pipeline.IngestRequest) (*pipeline.IngestResult, error)
}

// RecordDeleter 由 repository.VectorStore 实现
type RecordDeleter interface {
	DeleteByIDs(ctx context.Context, ownerID int64, ids []string) error
}

// DefaultProcessingTimeout processing 状态超过该时长视为 worker 已退出，事件可被重新领取
const DefaultProcessingTimeout = 10 * time.Minute

// IngestConsumerWorker 消费 profile_updated 事件，把关系库中的画像写入向量库
type IngestConsumerWorker struct {
	consumer          mq.Consumer
	eventRepo         repository.IngestEventRepository
	profileRepo       repository.BusinessProfileRepository
	ingestor          Ingestor
	deleter           RecordDeleter
	processingTimeout time.Duration
	now               func() time.Time
}

func NewIngestConsumerWorker(consumer mq.Consumer, eventRepo repository.IngestEventRepository, profileRepo repository.BusinessProfileRepository, ingestor Ingestor, deleter RecordDeleter) *IngestConsumerWorker {
	return &IngestConsumerWorker{
		consumer:          consumer,
		eventRepo:         eventRepo,
		profileRepo:       profileRepo,
		ingestor:          ingestor,
		deleter:           deleter,
		processingTimeout: DefaultProcessingTimeout,
		now:               time.Now,
	}
}

func (w *IngestConsumerWorker) Run(ctx context.Context) error {
	if w == nil || w.consumer == nil {
		return errors.New("consumer is nil")
	}
	if w.eventRepo == nil || w.profileRepo == nil {
		return errors.New("repository is nil")
	}
	if w.ingestor == nil || w.deleter == nil {
		return errors.New("ingestor or deleter is nil")
	}
	return w.consumer.Run(ctx, w)
}

// Handle 只有基础设施错误（读写事件表）才返回 error 让消息重投；
// 业务失败记录在事件表上，由 replayer 按重试上限重新投递
func (w *IngestConsumerWorker) Handle(ctx context.Context, msg mq.Message) error {
	id, err := mq.ParseIngestEventID(msg)
	if err != nil {
		zlog.Warn("ai ingest consumer invalid event_id", zap.String("topic", msg.Topic))
		return nil
	}
	return w.ProcessEvent(ctx, id)
}

// ProcessEvent 认领并处理一个事件；Kafka 未启用时由 ProfileService 直接调用
func (w *IngestConsumerWorker) ProcessEvent(ctx context.Context, id int64) error {
	ev, err := w.eventRepo.GetByID(ctx, id)
	if err != nil {
		zlog.Warn("ai ingest consumer get event failed", zap.Int64("event_id", id), zap.Error(err))
		return err
	}
	if ev == nil || ev.Status == rag.IngestEventStatusSucceeded {
		return nil
	}

	now := w.now()
	ok, err := w.eventRepo.TryMarkProcessing(ctx, ev.Id, now, now.Add(-w.processingTimeout))
	if err != nil {
		zlog.Warn("ai ingest consumer mark processing failed", zap.Int64("event_id", ev.Id), zap.Error(err))
		return err
	}
	if !ok {
		return nil
	}

	if procErr := w.processEvent(ctx, ev); procErr != nil {
		msg := scrubErrMsg(procErr.Error())
		if err := w.eventRepo.MarkFailed(ctx, ev.Id, msg); err != nil {
			zlog.Warn("ai ingest consumer mark failed failed", zap.Int64("event_id", ev.Id), zap.Error(err))
		}
		zlog.Warn("ai ingest consumer event failed",
			zap.Int64("event_id", ev.Id),
			zap.Int64("owner_id", ev.OwnerId),
			zap.String("event_type", ev.EventType),
			zap.String("error", msg))
		return nil
	}

	if err := w.eventRepo.MarkSucceeded(ctx, ev.Id); err != nil {
		zlog.Warn("ai ingest consumer mark succeeded failed", zap.Int64("event_id", ev.Id), zap.Error(err))
		return err
	}
	return nil
}

func (w *IngestConsumerWorker) processEvent(ctx context.Context, ev *rag.AIIngestEvent) error {
	switch strings.TrimSpace(ev.EventType) {
	case rag.IngestEventTypeProfileUpdated:
		profile, err := w.profileRepo.GetByOwner(ctx, ev.OwnerId)
		if err != nil {
			return err
		}
		if profile == nil {
			return fmt.Errorf("business profile not found for owner %d", ev.OwnerId)
		}
		fields := profile.Fields()
		res, err := w.ingestor.Ingest(ctx, pipeline.IngestRequest{
			OwnerID: ev.OwnerId,
			Fields:  fields,
			Metadata: map[string]any{
				"source":   "profile",
				"event_id": ev.Id,
			},
		})
		switch {
		case errors.Is(err, pipeline.ErrNoFields):
		case err != nil:
			return err
		case res.Failed > 0:
			return fmt.Errorf("ingest failed for %s: %s", strings.Join(res.FailedKinds(), ","), firstFieldError(res))
		}
		return w.deleteClearedFields(ctx, ev.OwnerId, fields)
	default:
		return fmt.Errorf("unknown event_type %q", ev.EventType)
	}
}

// deleteClearedFields 画像里已清空的核心字段不会被覆盖写入，需要按固定 id 删掉旧记录
func (w *IngestConsumerWorker) deleteClearedFields(ctx context.Context, ownerID int64, fields map[string]string) error {
	if w.deleter == nil {
		return nil
	}
	var kinds, ids []string
	for _, kind := range rag.CoreProfileKinds() {
		if strings.TrimSpace(fields[kind]) == "" {
			kinds = append(kinds, kind)
			ids = append(ids, pipeline.CoreRecordID(ownerID, kind))
		}
	}
	if len(ids) == 0 {
		return nil
	}
	if err := w.deleter.DeleteByIDs(ctx, ownerID, ids); err != nil {
		return fmt.Errorf("delete cleared fields: %w", err)
	}
	zlog.Info("ai ingest consumer cleared fields", zap.Int64("owner_id", ownerID), zap.Strings("kinds", kinds))
	return nil
}

func firstFieldError(res *pipeline.IngestResult) string {
	for _, f := range res.Fields {
		if f.Error != "" {
			return f.Error
		}
	}
	return ""
}

// scrubErrMsg 避免把密钥写进事件表
func scrubErrMsg(s string) string {
	s = strings.TrimSpace(s)
	low := strings.ToLower(s)
	if strings.Contains(low, "api_key") || strings.Contains(low, "apikey") || strings.Contains(low, "secret") || strings.Contains(s, "sk-") {
		return "redacted"
	}
	return persistence.TruncateError(s)
}

