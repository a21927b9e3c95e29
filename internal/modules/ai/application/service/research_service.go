package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"MarketMind/internal/modules/ai/application/dto/request"
	"MarketMind/internal/modules/ai/application/dto/respond"
	"MarketMind/internal/modules/ai/domain/rag"
	"MarketMind/internal/modules/ai/domain/repository"
	"MarketMind/internal/modules/ai/infrastructure/pipeline"
	"MarketMind/internal/modules/ai/infrastructure/plugins"
	"MarketMind/pkg/xerr"
	"MarketMind/pkg/zlog"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Locker 由 cache.RedisLocker 实现
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// RecordScanner 统计 owner 已有的研究记录（repository.VectorStore 的子集）
type RecordScanner interface {
	Scan(ctx context.Context, filter repository.Filter, limit int) ([]repository.VectorHit, error)
}

// 单条研究记录的状态
const (
	ResearchStatusStored  = "stored"
	ResearchStatusFailed  = "failed"
	ResearchStatusSkipped = "skipped"
)

type ResearchOptions struct {
	MaxQuestionsPerRun  int           // 默认 12
	MaxResearchPerOwner int           // 0 表示不限
	AnswerConcurrency   int           // 默认 4
	LockTTL             time.Duration // 默认 5 分钟
}

// ResearchService 生成检索问题、逐个回答，并作为 Search Question 记录写入向量库
type ResearchService interface {
	Generate(ctx context.Context, req request.ResearchGenerateRequest, ownerID int64) (*respond.ResearchRespond, error)
}

type researchServiceImpl struct {
	retriever   Retriever
	profileRepo repository.BusinessProfileRepository
	completer   Completer
	ingestor    Ingestor
	scanner     RecordScanner
	locker      Locker
	opts        ResearchOptions
}

func NewResearchService(retriever Retriever, profileRepo repository.BusinessProfileRepository, completer Completer, ingestor Ingestor, scanner RecordScanner, locker Locker, opts ResearchOptions) ResearchService {
	if opts.MaxQuestionsPerRun <= 0 {
		opts.MaxQuestionsPerRun = 12
	}
	if opts.AnswerConcurrency <= 0 {
		opts.AnswerConcurrency = 4
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 5 * time.Minute
	}
	return &researchServiceImpl{
		retriever:   retriever,
		profileRepo: profileRepo,
		completer:   completer,
		ingestor:    ingestor,
		scanner:     scanner,
		locker:      locker,
		opts:        opts,
	}
}

func (s *researchServiceImpl) Generate(ctx context.Context, req request.ResearchGenerateRequest, ownerID int64) (*respond.ResearchRespond, error) {
	if ownerID <= 0 {
		return nil, xerr.ErrUnauthorized
	}
	if req.MaxQuestions < 0 {
		return nil, xerr.New(xerr.BadRequest, "max_questions 不能为负数")
	}
	start := time.Now()

	// 同一 owner 同时只允许一次研究生成
	lockKey := fmt.Sprintf("ai:research:%d", ownerID)
	if s.locker != nil {
		ok, err := s.locker.Lock(ctx, lockKey, s.opts.LockTTL)
		if err != nil {
			return nil, xerr.Wrap(xerr.ServiceUnavailable, "获取研究锁失败", err)
		}
		if !ok {
			return nil, xerr.New(xerr.Conflict, "研究生成进行中，请稍后再试")
		}
		defer func() {
			if err := s.locker.Unlock(context.WithoutCancel(ctx), lockKey); err != nil {
				zlog.Warn("ai research unlock failed", zap.Int64("owner_id", ownerID), zap.Error(err))
			}
		}()
	}

	profile, err := s.loadProfile(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(profile) == 0 {
		return nil, xerr.New(xerr.NotFound, "请先提交业务画像")
	}

	maxQ := req.MaxQuestions
	if maxQ <= 0 || maxQ > s.opts.MaxQuestionsPerRun {
		maxQ = s.opts.MaxQuestionsPerRun
	}
	qResp, err := s.completer.Execute(ctx, &plugins.PluginRequest{
		OwnerID:     ownerID,
		ServiceType: plugins.ServiceSearchQuestions,
		Profile:     profile,
		Context:     map[string]interface{}{"max_questions": maxQ},
	})
	if err != nil {
		return nil, err
	}
	questions, _ := qResp.Data.([]string)
	out := &respond.ResearchRespond{
		OwnerID:   ownerID,
		Questions: questions,
		Items:     make([]respond.ResearchItem, len(questions)),
		CacheHit:  qResp.CacheHit,
	}
	if out.Questions == nil {
		out.Questions = []string{}
	}
	for i, q := range questions {
		out.Items[i] = respond.ResearchItem{Question: q}
	}

	allowed, err := s.remainingQuota(ctx, ownerID, len(questions))
	if err != nil {
		return nil, err
	}
	for i := allowed; i < len(out.Items); i++ {
		out.Items[i].Status = ResearchStatusSkipped
		out.Items[i].Error = "research limit reached"
	}

	s.answerAll(ctx, ownerID, profile, out.Items[:allowed])
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := s.ingestAnswered(ctx, ownerID, out.Items[:allowed]); err != nil {
		return nil, err
	}
	for _, it := range out.Items {
		switch it.Status {
		case ResearchStatusStored:
			out.Stored++
		case ResearchStatusFailed:
			out.Failed++
		}
	}
	out.DurationMs = time.Since(start).Milliseconds()

	zlog.Info("ai research done",
		zap.Int64("owner_id", ownerID),
		zap.Int("questions", len(questions)),
		zap.Int("stored", out.Stored),
		zap.Int("failed", out.Failed),
		zap.Bool("cache_hit", out.CacheHit),
		zap.Int64("ms", out.DurationMs))
	return out, nil
}

// loadProfile 优先取向量库里的核心画像，为空或出错时回退到关系库
func (s *researchServiceImpl) loadProfile(ctx context.Context, ownerID int64) (map[string]string, error) {
	if s.retriever != nil {
		res, err := s.retriever.Retrieve(ctx, pipeline.RetrieveRequest{OwnerID: ownerID})
		if err == nil && len(res.Profile) > 0 {
			return res.ProfileFields(), nil
		}
		if err != nil {
			zlog.Warn("ai research load profile from vector store failed", zap.Int64("owner_id", ownerID), zap.Error(err))
		}
	}
	if s.profileRepo == nil {
		return map[string]string{}, nil
	}
	p, err := s.profileRepo.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, xerr.Wrap(xerr.InternalServerError, "读取业务画像失败", err)
	}
	out := make(map[string]string, 4)
	for k, v := range p.Fields() {
		if strings.TrimSpace(v) != "" {
			out[k] = v
		}
	}
	return out, nil
}

// remainingQuota 本次最多还能写入多少条研究问题
func (s *researchServiceImpl) remainingQuota(ctx context.Context, ownerID int64, want int) (int, error) {
	limit := s.opts.MaxResearchPerOwner
	if limit <= 0 || s.scanner == nil {
		return want, nil
	}
	hits, err := s.scanner.Scan(ctx, repository.Filter{
		OwnerID: ownerID,
		KindsIn: []string{rag.KindSearchQuestion},
	}, limit)
	if err != nil {
		return 0, toCodeError(err, "统计研究记录失败")
	}
	remaining := limit - len(hits)
	if remaining < 0 {
		remaining = 0
	}
	if remaining < want {
		return remaining, nil
	}
	return want, nil
}

// answerAll 并发回答；单个问题失败只记在 item 上
func (s *researchServiceImpl) answerAll(ctx context.Context, ownerID int64, profile map[string]string, items []respond.ResearchItem) {
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(s.opts.AnswerConcurrency)
	for i := range items {
		it := &items[i]
		eg.Go(func() error {
			resp, err := s.completer.Execute(gctx, &plugins.PluginRequest{
				OwnerID:     ownerID,
				ServiceType: plugins.ServiceResearchAnswer,
				Input:       it.Question,
				Profile:     profile,
			})
			if err != nil {
				it.Status = ResearchStatusFailed
				it.Error = err.Error()
				zlog.Warn("ai research answer failed", zap.Int64("owner_id", ownerID), zap.String("question", it.Question), zap.Error(err))
				return nil
			}
			it.Answer = strings.TrimSpace(resp.Output)
			if it.Answer == "" {
				it.Status = ResearchStatusFailed
				it.Error = "empty answer"
			}
			return nil
		})
	}
	_ = eg.Wait()
}

func (s *researchServiceImpl) ingestAnswered(ctx context.Context, ownerID int64, items []respond.ResearchItem) error {
	idx := make([]int, 0, len(items))
	ingestItems := make([]pipeline.IngestItem, 0, len(items))
	for i, it := range items {
		if it.Status != "" {
			continue
		}
		idx = append(idx, i)
		ingestItems = append(ingestItems, pipeline.IngestItem{
			Kind: rag.KindSearchQuestion,
			Text: it.Question,
			Metadata: map[string]any{
				"answer": it.Answer,
			},
		})
	}
	if len(ingestItems) == 0 {
		return nil
	}
	res, err := s.ingestor.Ingest(ctx, pipeline.IngestRequest{
		OwnerID:  ownerID,
		Items:    ingestItems,
		Metadata: map[string]any{"source": "research"},
	})
	if err != nil {
		return toCodeError(err, "研究结果写入失败")
	}
	for n, i := range idx {
		if n >= len(res.Fields) {
			items[i].Status = ResearchStatusFailed
			items[i].Error = "missing ingest result"
			continue
		}
		f := res.Fields[n]
		switch f.Status {
		case pipeline.FieldStatusStored:
			items[i].Status = ResearchStatusStored
			items[i].RecordID = f.RecordID
		default:
			items[i].Status = ResearchStatusFailed
			items[i].Error = f.Error
		}
	}
	return nil
}
