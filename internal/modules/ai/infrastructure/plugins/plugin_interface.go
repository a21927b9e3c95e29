package plugins

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// 服务类型（CompletionPipeline 据此路由到对应插件）
const (
	ServiceSearchQuestions  = "search_questions"
	ServiceResearchAnswer   = "research_answer"
	ServiceMarketingContent = "marketing_content"
	ServiceMetadataExtract  = "metadata_extract"
)

// CompletionPlugin 单次补全插件接口
//
// 每个 LLM 能力（生成检索问题、回答问题、生成文案、元数据分类）都是一个插件，
// Pipeline 负责缓存、调用模型与日志，插件只负责 Prompt 与解析。
type CompletionPlugin interface {
	// GetServiceType 返回 search_questions / research_answer 等
	GetServiceType() string

	// BuildPrompt 构建 Eino 标准消息
	BuildPrompt(ctx context.Context, req *PluginRequest) ([]schema.Message, error)

	// ParseResponse 将 LLM 原始输出转成结构化结果
	//
	// 输出格式不符合预期时降级为空结果，不返回错误
	ParseResponse(ctx context.Context, llmOutput string, req *PluginRequest) (*PluginResponse, error)

	// Validate 在调用 LLM 之前校验参数
	Validate(ctx context.Context, req *PluginRequest) error

	// GetCacheKey 相同输入返回相同 Key；空字符串表示不缓存
	GetCacheKey(ctx context.Context, req *PluginRequest) string

	// GetCacheTTL 缓存时间（秒）
	GetCacheTTL() int
}

// PluginRequest 插件请求
type PluginRequest struct {
	OwnerID     int64                  `json:"owner_id"`
	ServiceType string                 `json:"service_type"`
	Input       string                 `json:"input"`    // 问题 / 用户需求 / 待分类文本
	Profile     map[string]string      `json:"profile"`  // kind → text，核心画像
	Research    []string               `json:"research"` // 已召回的研究片段
	Context     map[string]interface{} `json:"context"`  // 插件私有参数（如 max_questions）
}

// PluginResponse 插件响应
type PluginResponse struct {
	Output     string                 `json:"output"` // 规整后的文本或 JSON，缓存内容即为此字段
	Data       interface{}            `json:"data"`   // 解析后的结构化结果
	Metadata   map[string]interface{} `json:"metadata"`
	CacheHit   bool                   `json:"cache_hit"`
	TokensUsed int                    `json:"tokens_used"`
}

func (r *PluginRequest) contextInt(key string, def int) int {
	if r == nil || r.Context == nil {
		return def
	}
	switch v := r.Context[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}
