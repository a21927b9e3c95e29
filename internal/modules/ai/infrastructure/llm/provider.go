package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"MarketMind/internal/config"

	arkModel "github.com/cloudwego/eino-ext/components/model/ark"
	openaiModel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

type ChatModelMeta struct {
	Provider string
	Model    string
}

// ErrChatModelDisabled provider 未配置时返回，调用方可降级为不可用
var ErrChatModelDisabled = errors.New("chat model provider not configured")

type chatModelBuilder func(ctx context.Context, c config.AIChatModelConfig, modelName string) (model.BaseChatModel, string, error)

// provider 名称 → 构造函数；google 为 gemini 的别名
var chatModelBuilders = map[string]chatModelBuilder{
	"gemini": buildGemini,
	"google": buildGemini,
	"openai": buildOpenAI,
	"ark":    buildArk,
}

// NewChatModelFromConfig 按 aiConfig.chatModel.provider 构造底层对话模型（不含重试保护）。
// 配置项为空时回退到对应的环境变量。
func NewChatModelFromConfig(ctx context.Context, conf *config.Config) (model.BaseChatModel, ChatModelMeta, error) {
	if conf == nil {
		return nil, ChatModelMeta{}, fmt.Errorf("nil config")
	}
	c := conf.AIConfig.ChatModel
	provider := strings.ToLower(strings.TrimSpace(c.Provider))
	if provider == "" || provider == "disabled" || provider == "none" {
		return nil, ChatModelMeta{}, ErrChatModelDisabled
	}
	build, ok := chatModelBuilders[provider]
	if !ok {
		return nil, ChatModelMeta{}, fmt.Errorf("unknown chat model provider: %s", provider)
	}

	cm, modelName, err := build(ctx, c, strings.TrimSpace(c.Model))
	if err != nil {
		return nil, ChatModelMeta{}, fmt.Errorf("%s chat model: %w", provider, err)
	}
	if provider == "google" {
		provider = "gemini"
	}
	return cm, ChatModelMeta{Provider: provider, Model: modelName}, nil
}

func buildGemini(ctx context.Context, c config.AIChatModelConfig, modelName string) (model.BaseChatModel, string, error) {
	apiKey := firstNonEmpty(c.APIKey, os.Getenv("GEMINI_API_KEY"))
	if apiKey == "" {
		return nil, "", errors.New("missing apiKey")
	}
	modelName = firstNonEmpty(modelName, "gemini-2.5-flash-lite")
	cm, err := NewGeminiChatModel(ctx, apiKey, modelName, c.Temperature)
	return cm, modelName, err
}

func buildOpenAI(ctx context.Context, c config.AIChatModelConfig, modelName string) (model.BaseChatModel, string, error) {
	apiKey := firstNonEmpty(c.APIKey, os.Getenv("OPENAI_API_KEY"))
	modelName = firstNonEmpty(modelName, os.Getenv("OPENAI_MODEL"))
	if apiKey == "" || modelName == "" {
		return nil, "", errors.New("missing apiKey/model")
	}
	cfg := &openaiModel.ChatModelConfig{
		APIKey:     apiKey,
		Model:      modelName,
		BaseURL:    firstNonEmpty(c.BaseURL, os.Getenv("OPENAI_BASE_URL")),
		ByAzure:    c.ByAzure,
		APIVersion: strings.TrimSpace(c.AzureAPIVersion),
		Timeout:    timeoutOr(c.TimeoutSeconds, 2*time.Minute),
	}
	if c.Temperature > 0 {
		t := c.Temperature
		cfg.Temperature = &t
	}
	cm, err := openaiModel.NewChatModel(ctx, cfg)
	return cm, modelName, err
}

func buildArk(ctx context.Context, c config.AIChatModelConfig, modelName string) (model.BaseChatModel, string, error) {
	apiKey := firstNonEmpty(c.APIKey, os.Getenv("ARK_API_KEY"))
	accessKey := firstNonEmpty(c.AccessKey, os.Getenv("ARK_ACCESS_KEY"))
	secretKey := firstNonEmpty(c.SecretKey, os.Getenv("ARK_SECRET_KEY"))
	modelName = firstNonEmpty(modelName, os.Getenv("ARK_MODEL_ID"))
	if apiKey == "" && (accessKey == "" || secretKey == "") {
		return nil, "", errors.New("missing apiKey or accessKey/secretKey")
	}
	if modelName == "" {
		return nil, "", errors.New("missing model")
	}

	timeout := timeoutOr(c.TimeoutSeconds, 2*time.Minute)
	retryTimes := 2
	if c.RetryTimes > 0 {
		retryTimes = c.RetryTimes
	}
	cfg := &arkModel.ChatModelConfig{
		APIKey:     apiKey,
		AccessKey:  accessKey,
		SecretKey:  secretKey,
		Model:      modelName,
		BaseURL:    firstNonEmpty(c.BaseURL, os.Getenv("ARK_BASE_URL")),
		Region:     firstNonEmpty(c.Region, os.Getenv("ARK_REGION")),
		Timeout:    &timeout,
		RetryTimes: &retryTimes,
	}
	if c.Temperature > 0 {
		t := c.Temperature
		cfg.Temperature = &t
	}
	cm, err := arkModel.NewChatModel(ctx, cfg)
	return cm, modelName, err
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func timeoutOr(seconds int, def time.Duration) time.Duration {
	if seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return def
}
