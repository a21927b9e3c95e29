package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"MarketMind/internal/modules/ai/application/dto/request"
	"MarketMind/internal/modules/ai/application/dto/respond"
	"MarketMind/internal/modules/ai/domain/rag"
	"MarketMind/internal/modules/ai/domain/repository"
	"MarketMind/internal/modules/ai/infrastructure/mq"
	"MarketMind/pkg/xerr"
	"MarketMind/pkg/zlog"

	"go.uber.org/zap"
)

// 画像写入后的向量化方式
const (
	IngestModeKafka  = "kafka"
	IngestModeInline = "inline"
)

// EventProcessor 由 queue.IngestConsumerWorker 实现
type EventProcessor interface {
	ProcessEvent(ctx context.Context, id int64) error
}

// ProfileService 业务画像：关系库保存 + 异步（或同步）写入向量库
type ProfileService interface {
	Upsert(ctx context.Context, req request.BusinessProfileRequest, ownerID int64) (*respond.BusinessProfileRespond, error)
	Get(ctx context.Context, ownerID int64) (*respond.BusinessProfileRespond, error)
}

type profileServiceImpl struct {
	profileRepo repository.BusinessProfileRepository
	eventRepo   repository.IngestEventRepository
	publisher   mq.Publisher // 为 nil 时同步处理
	topic       string
	processor   EventProcessor
	now         func() time.Time
}

func NewProfileService(profileRepo repository.BusinessProfileRepository, eventRepo repository.IngestEventRepository, publisher mq.Publisher, topic string, processor EventProcessor) ProfileService {
	return &profileServiceImpl{
		profileRepo: profileRepo,
		eventRepo:   eventRepo,
		publisher:   publisher,
		topic:       topic,
		processor:   processor,
		now:         time.Now,
	}
}

func (s *profileServiceImpl) Upsert(ctx context.Context, req request.BusinessProfileRequest, ownerID int64) (*respond.BusinessProfileRespond, error) {
	if ownerID <= 0 {
		return nil, xerr.ErrUnauthorized
	}
	p := &rag.BusinessProfile{
		OwnerId:            ownerID,
		CompanyName:        strings.TrimSpace(req.CompanyName),
		ProductDescription: strings.TrimSpace(req.ProductDescription),
		TargetAudience:     strings.TrimSpace(req.TargetAudience),
		ToneOfVoice:        strings.TrimSpace(req.ToneOfVoice),
	}
	empty := true
	for _, v := range p.Fields() {
		if v != "" {
			empty = false
			break
		}
	}
	if empty {
		return nil, xerr.New(xerr.BadRequest, "画像字段不能全部为空")
	}

	now := s.now()
	p.CreatedAt = now
	p.UpdatedAt = now
	if err := s.profileRepo.Upsert(ctx, p); err != nil {
		zlog.Error("ai profile upsert failed", zap.Int64("owner_id", ownerID), zap.Error(err))
		return nil, xerr.ErrServerError
	}

	out := toProfileRespond(p)
	eventID, mode, err := s.enqueueIngest(ctx, ownerID)
	out.IngestEventID = eventID
	out.IngestMode = mode
	if err != nil {
		// 画像已保存，向量化失败不影响本次请求；事件留在库里由重放器补偿
		zlog.Warn("ai profile enqueue ingest failed", zap.Int64("owner_id", ownerID), zap.Error(err))
	}
	return out, nil
}

func (s *profileServiceImpl) Get(ctx context.Context, ownerID int64) (*respond.BusinessProfileRespond, error) {
	if ownerID <= 0 {
		return nil, xerr.ErrUnauthorized
	}
	p, err := s.profileRepo.GetByOwner(ctx, ownerID)
	if err != nil {
		zlog.Error("ai profile get failed", zap.Int64("owner_id", ownerID), zap.Error(err))
		return nil, xerr.ErrServerError
	}
	if p == nil {
		return nil, xerr.New(xerr.NotFound, "尚未提交业务画像")
	}
	return toProfileRespond(p), nil
}

// enqueueIngest 写事件 → 发布 Kafka；未配置 Kafka 或发布失败时同步处理
func (s *profileServiceImpl) enqueueIngest(ctx context.Context, ownerID int64) (int64, string, error) {
	payload, _ := json.Marshal(map[string]any{"owner_id": ownerID})
	now := s.now()
	ev := &rag.AIIngestEvent{
		EventType:   rag.IngestEventTypeProfileUpdated,
		OwnerId:     ownerID,
		PayloadJson: string(payload),
		Status:      rag.IngestEventStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.eventRepo.Create(ctx, ev); err != nil {
		return 0, "", err
	}

	if s.publisher != nil && s.topic != "" {
		msg := mq.NewIngestEventMessage(s.topic, ev.Id, ownerID, ev.EventType)
		_, err := s.publisher.Publish(ctx, msg)
		if err == nil {
			return ev.Id, IngestModeKafka, nil
		}
		zlog.Warn("ai profile publish ingest event failed, fallback to inline",
			zap.Int64("event_id", ev.Id), zap.Error(err))
	}

	if s.processor == nil {
		return ev.Id, "", nil
	}
	if err := s.processor.ProcessEvent(ctx, ev.Id); err != nil {
		return ev.Id, IngestModeInline, err
	}
	return ev.Id, IngestModeInline, nil
}

func toProfileRespond(p *rag.BusinessProfile) *respond.BusinessProfileRespond {
	return &respond.BusinessProfileRespond{
		OwnerID:            p.OwnerId,
		CompanyName:        p.CompanyName,
		ProductDescription: p.ProductDescription,
		TargetAudience:     p.TargetAudience,
		ToneOfVoice:        p.ToneOfVoice,
		UpdatedAt:          p.UpdatedAt.Format(time.RFC3339),
	}
}
