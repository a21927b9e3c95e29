package embedding

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"MarketMind/internal/config"

	arkEmbed "github.com/cloudwego/eino-ext/components/embedding/ark"
	dashscopeEmbed "github.com/cloudwego/eino-ext/components/embedding/dashscope"
	openaiEmbed "github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/components/embedding"
)

type EmbedderMeta struct {
	Provider string
	Model    string
	Dim      int
}

// embedSettings 合并配置与环境变量之后的连接参数
type embedSettings struct {
	APIKey  string
	Model   string
	BaseURL string
	Dim     int
	Timeout time.Duration
	conf    config.AIEmbeddingConfig
}

type embedderSpec struct {
	keyEnv       string
	modelEnv     string
	baseURLEnv   string
	defaultModel string
	// keyOptional 为 true 时由 build 自行校验凭据
	keyOptional bool
	build       func(ctx context.Context, s embedSettings) (embedding.Embedder, error)
}

var embedderSpecs = map[string]embedderSpec{
	"gemini": {
		keyEnv:       "GEMINI_API_KEY",
		defaultModel: "text-embedding-004",
		build: func(ctx context.Context, s embedSettings) (embedding.Embedder, error) {
			return NewGeminiEmbedder(ctx, s.APIKey, s.Model)
		},
	},
	"openai": {
		keyEnv:     "OPENAI_API_KEY",
		modelEnv:   "OPENAI_EMBED_MODEL",
		baseURLEnv: "OPENAI_BASE_URL",
		build:      buildOpenAIEmbedder,
	},
	"ark": {
		keyEnv:      "ARK_API_KEY",
		modelEnv:    "ARK_EMBED_MODEL",
		baseURLEnv:  "ARK_BASE_URL",
		keyOptional: true,
		build:       buildArkEmbedder,
	},
	"dashscope": {
		keyEnv:   "DASHSCOPE_API_KEY",
		modelEnv: "DASHSCOPE_EMBED_MODEL",
		build: func(ctx context.Context, s embedSettings) (embedding.Embedder, error) {
			dim := s.Dim
			return dashscopeEmbed.NewEmbedder(ctx, &dashscopeEmbed.EmbeddingConfig{
				APIKey:     s.APIKey,
				Model:      s.Model,
				Timeout:    s.Timeout,
				Dimensions: &dim,
			})
		},
	},
}

// ResolveDim 向量维度以 milvusConfig.vectorDim 为准；aiConfig.embedding.dimensions 只能与之相同，
// 否则集合 schema 与 embedder 输出对不上
func ResolveDim(conf *config.Config) (int, error) {
	storeDim := conf.MilvusConfig.VectorDim
	embedDim := conf.AIConfig.Embedding.Dimensions
	switch {
	case embedDim <= 0 && storeDim <= 0:
		return 0, errors.New("vector dim not configured")
	case embedDim <= 0:
		return storeDim, nil
	case storeDim > 0 && storeDim != embedDim:
		return 0, fmt.Errorf("aiConfig.embedding.dimensions=%d conflicts with milvusConfig.vectorDim=%d", embedDim, storeDim)
	default:
		return embedDim, nil
	}
}

// NewEmbedderFromConfig 按 aiConfig.embedding.provider 构造底层 embedder（不含缓存与重试）
func NewEmbedderFromConfig(ctx context.Context, conf *config.Config) (embedding.Embedder, EmbedderMeta, error) {
	if conf == nil {
		return nil, EmbedderMeta{}, errors.New("nil config")
	}
	dim, err := ResolveDim(conf)
	if err != nil {
		return nil, EmbedderMeta{}, err
	}
	c := conf.AIConfig.Embedding
	provider := strings.ToLower(strings.TrimSpace(c.Provider))
	switch provider {
	case "", "mock":
		return NewHashEmbedder(dim), EmbedderMeta{Provider: "mock", Model: firstNonEmpty(c.Model, "mock"), Dim: dim}, nil
	case "google":
		provider = "gemini"
	}

	spec, ok := embedderSpecs[provider]
	if !ok {
		return nil, EmbedderMeta{}, fmt.Errorf("unknown embedding provider: %s", provider)
	}
	s := embedSettings{
		APIKey:  firstNonEmpty(c.APIKey, envOf(spec.keyEnv)),
		Model:   firstNonEmpty(c.Model, envOf(spec.modelEnv), spec.defaultModel),
		BaseURL: firstNonEmpty(c.BaseURL, envOf(spec.baseURLEnv)),
		Dim:     dim,
		Timeout: 30 * time.Second,
		conf:    c,
	}
	if c.TimeoutSeconds > 0 {
		s.Timeout = time.Duration(c.TimeoutSeconds) * time.Second
	}
	switch {
	case s.Model == "":
		return nil, EmbedderMeta{}, fmt.Errorf("%s embedding: missing model", provider)
	case s.APIKey == "" && !spec.keyOptional:
		return nil, EmbedderMeta{}, fmt.Errorf("%s embedding: missing apiKey", provider)
	}

	em, err := spec.build(ctx, s)
	if err != nil {
		return nil, EmbedderMeta{}, fmt.Errorf("%s embedding: %w", provider, err)
	}
	return em, EmbedderMeta{Provider: provider, Model: s.Model, Dim: dim}, nil
}

func buildOpenAIEmbedder(ctx context.Context, s embedSettings) (embedding.Embedder, error) {
	dim := s.Dim
	return openaiEmbed.NewEmbedder(ctx, &openaiEmbed.EmbeddingConfig{
		APIKey:     s.APIKey,
		Model:      s.Model,
		BaseURL:    s.BaseURL,
		ByAzure:    s.conf.ByAzure,
		APIVersion: strings.TrimSpace(s.conf.AzureAPIVersion),
		Timeout:    s.Timeout,
		Dimensions: &dim,
	})
}

// buildArkEmbedder ark 支持 apiKey 或 accessKey/secretKey 两种鉴权
func buildArkEmbedder(ctx context.Context, s embedSettings) (embedding.Embedder, error) {
	accessKey := firstNonEmpty(s.conf.AccessKey, os.Getenv("ARK_ACCESS_KEY"))
	secretKey := firstNonEmpty(s.conf.SecretKey, os.Getenv("ARK_SECRET_KEY"))
	if s.APIKey == "" && (accessKey == "" || secretKey == "") {
		return nil, errors.New("missing apiKey or accessKey/secretKey")
	}
	timeout := s.Timeout
	return arkEmbed.NewEmbedder(ctx, &arkEmbed.EmbeddingConfig{
		APIKey:    s.APIKey,
		AccessKey: accessKey,
		SecretKey: secretKey,
		Model:     s.Model,
		BaseURL:   s.BaseURL,
		Region:    firstNonEmpty(s.conf.Region, os.Getenv("ARK_REGION")),
		Timeout:   &timeout,
	})
}

func envOf(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
