package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"MarketMind/internal/modules/ai/infrastructure/plugins"
	"MarketMind/pkg/xerr"
	"MarketMind/pkg/zlog"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

// ErrNoChatModel 未配置对话模型（chatModel.enabled=false）
var ErrNoChatModel = xerr.New(xerr.ServiceUnavailable, "对话模型未启用")

// Cache 插件结果缓存（Redis / 内存），未命中返回 ("", nil)
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// CompletionObserver 接收每次补全的结果（指标上报）
type CompletionObserver interface {
	ObserveCompletion(serviceType string, cacheHit bool, tokens int, err error, elapsed time.Duration)
}

// CompletionPipeline 插件化单次补全
//
// 流程：选插件 → 校验 → 查缓存 → 构建 Prompt → Generate → 解析 → 写缓存。
// 缓存的是插件规整后的 Output，命中时重新走一次 ParseResponse 还原结构化结果。
type CompletionPipeline struct {
	chatModel model.BaseChatModel
	cache     Cache
	observer  CompletionObserver
	plugins   map[string]plugins.CompletionPlugin
}

// NewCompletionPipeline chatModel 为 nil 时所有调用返回 ErrNoChatModel；cache 可为 nil
func NewCompletionPipeline(chatModel model.BaseChatModel, cache Cache, observer CompletionObserver) *CompletionPipeline {
	p := &CompletionPipeline{
		chatModel: chatModel,
		cache:     cache,
		observer:  observer,
		plugins:   make(map[string]plugins.CompletionPlugin),
	}

	p.RegisterPlugin(plugins.NewSearchQuestionPlugin(nil))
	p.RegisterPlugin(plugins.NewResearchAnswerPlugin(nil))
	p.RegisterPlugin(plugins.NewMarketingContentPlugin(nil))
	p.RegisterPlugin(plugins.NewMetadataExtractPlugin(nil))

	return p
}

// RegisterPlugin 注册或覆盖插件
func (p *CompletionPipeline) RegisterPlugin(plugin plugins.CompletionPlugin) {
	p.plugins[plugin.GetServiceType()] = plugin
	zlog.Debug("completion plugin registered", zap.String("service_type", plugin.GetServiceType()))
}

// Enabled 是否可以调用 LLM
func (p *CompletionPipeline) Enabled() bool {
	return p != nil && p.chatModel != nil
}

// Execute 执行一次补全
func (p *CompletionPipeline) Execute(ctx context.Context, req *plugins.PluginRequest) (resp *plugins.PluginResponse, err error) {
	startTime := time.Now()
	defer func() {
		if p.observer != nil {
			hit, tokens := false, 0
			if resp != nil {
				hit, tokens = resp.CacheHit, resp.TokensUsed
			}
			p.observer.ObserveCompletion(req.ServiceType, hit, tokens, err, time.Since(startTime))
		}
	}()

	plugin, ok := p.plugins[req.ServiceType]
	if !ok {
		return nil, xerr.New(xerr.BadRequest, fmt.Sprintf("unknown service type: %s", req.ServiceType))
	}

	if err := plugin.Validate(ctx, req); err != nil {
		return nil, err
	}

	cacheKey := plugin.GetCacheKey(ctx, req)
	if cacheKey != "" && p.cache != nil {
		cached, cerr := p.cache.Get(ctx, cacheKey)
		if cerr != nil {
			zlog.Warn("completion cache get failed", zap.Error(cerr), zap.String("cache_key", cacheKey))
		} else if cached != "" {
			hit, perr := plugin.ParseResponse(ctx, cached, req)
			if perr == nil {
				hit.CacheHit = true
				zlog.Info("completion cache hit",
					zap.String("service_type", req.ServiceType),
					zap.String("cache_key", cacheKey))
				return hit, nil
			}
		}
	}

	if p.chatModel == nil {
		return nil, ErrNoChatModel
	}

	promptMsgs, err := plugin.BuildPrompt(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("build prompt failed: %w", err)
	}
	promptMsgPtrs := make([]*schema.Message, len(promptMsgs))
	for i := range promptMsgs {
		promptMsgPtrs[i] = &promptMsgs[i]
	}

	llmStart := time.Now()
	llmResp, err := p.chatModel.Generate(ctx, promptMsgPtrs)
	llmMs := time.Since(llmStart).Milliseconds()
	if err != nil {
		zlog.Error("llm generate failed", zap.Error(err), zap.String("service_type", req.ServiceType))
		var ce *xerr.CodeError
		if errors.As(err, &ce) {
			return nil, err
		}
		return nil, xerr.Wrap(xerr.ServiceUnavailable, "llm generate failed", err)
	}

	resp, err = plugin.ParseResponse(ctx, llmResp.Content, req)
	if err != nil {
		return nil, fmt.Errorf("parse response failed: %w", err)
	}
	if llmResp.ResponseMeta != nil && llmResp.ResponseMeta.Usage != nil {
		resp.TokensUsed = llmResp.ResponseMeta.Usage.TotalTokens
	}
	if _, bad := resp.Metadata["parse_error"]; bad {
		zlog.Warn("llm output not parseable",
			zap.String("service_type", req.ServiceType),
			zap.Any("parse_error", resp.Metadata["parse_error"]))
	}

	// 解析失败的降级结果不缓存
	if _, bad := resp.Metadata["parse_error"]; !bad && cacheKey != "" && p.cache != nil {
		ttl := time.Duration(plugin.GetCacheTTL()) * time.Second
		if err := p.cache.Set(ctx, cacheKey, resp.Output, ttl); err != nil {
			zlog.Warn("completion cache set failed", zap.Error(err), zap.String("cache_key", cacheKey))
		}
	}

	zlog.Info("completion execute done",
		zap.String("service_type", req.ServiceType),
		zap.Int64("owner_id", req.OwnerID),
		zap.Int64("total_latency_ms", time.Since(startTime).Milliseconds()),
		zap.Int64("llm_latency_ms", llmMs),
		zap.Int("tokens", resp.TokensUsed))

	return resp, nil
}
