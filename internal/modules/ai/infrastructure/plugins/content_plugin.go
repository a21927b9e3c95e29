package plugins

import (
	"context"
	"fmt"
	"strings"

	"MarketMind/internal/modules/ai/domain/rag"
	"MarketMind/pkg/xerr"

	"github.com/cloudwego/eino/schema"
)

// MarketingContentPlugin 基于召回的画像与研究生成最终营销内容
type MarketingContentPlugin struct {
	config *MarketingContentConfig
}

type MarketingContentConfig struct {
	MaxResearchSnippets int // 拼入 Prompt 的研究片段上限（默认 10）
	MaxSnippetRunes     int // 单条片段截断长度（默认 1200）
}

func NewMarketingContentPlugin(config *MarketingContentConfig) *MarketingContentPlugin {
	if config == nil {
		config = &MarketingContentConfig{}
	}
	if config.MaxResearchSnippets <= 0 {
		config.MaxResearchSnippets = 10
	}
	if config.MaxSnippetRunes <= 0 {
		config.MaxSnippetRunes = 1200
	}
	return &MarketingContentPlugin{config: config}
}

func (p *MarketingContentPlugin) GetServiceType() string {
	return ServiceMarketingContent
}

const marketingContentSystemPrompt = `You are a senior marketing copywriter.

Write the marketing content the user asks for. Match the tone of voice of the business when it is known.
Return only the content itself, without preamble or commentary.`

const generalKnowledgeNotice = `No prior business context is available for this user. Rely on general marketing knowledge only and do not invent company-specific facts.`

func (p *MarketingContentPlugin) BuildPrompt(ctx context.Context, req *PluginRequest) ([]schema.Message, error) {
	var sb strings.Builder
	if !hasProfile(req.Profile) && len(req.Research) == 0 {
		sb.WriteString(generalKnowledgeNotice)
		sb.WriteString("\n\n")
	} else {
		if hasProfile(req.Profile) {
			sb.WriteString("Business profile:\n")
			for _, kind := range rag.CoreProfileKinds() {
				if v := strings.TrimSpace(req.Profile[kind]); v != "" {
					sb.WriteString(fmt.Sprintf("- %s: %s\n", kind, v))
				}
			}
			sb.WriteString("\n")
		}
		if len(req.Research) > 0 {
			sb.WriteString("Relevant research:\n")
			for i, r := range req.Research {
				if i >= p.config.MaxResearchSnippets {
					break
				}
				sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, truncateRunes(strings.TrimSpace(r), p.config.MaxSnippetRunes)))
			}
			sb.WriteString("\n")
		}
	}
	sb.WriteString("Request: ")
	sb.WriteString(strings.TrimSpace(req.Input))

	return []schema.Message{
		{Role: schema.System, Content: marketingContentSystemPrompt},
		{Role: schema.User, Content: sb.String()},
	}, nil
}

func (p *MarketingContentPlugin) ParseResponse(ctx context.Context, llmOutput string, req *PluginRequest) (*PluginResponse, error) {
	content := strings.TrimSpace(llmOutput)
	return &PluginResponse{
		Output: content,
		Data:   content,
		Metadata: map[string]interface{}{
			"context_empty":  !hasProfile(req.Profile) && len(req.Research) == 0,
			"research_count": len(req.Research),
		},
	}, nil
}

func (p *MarketingContentPlugin) Validate(ctx context.Context, req *PluginRequest) error {
	if req.OwnerID <= 0 {
		return xerr.New(xerr.BadRequest, "owner_id 必须为正数")
	}
	if strings.TrimSpace(req.Input) == "" {
		return xerr.New(xerr.BadRequest, "request 不能为空")
	}
	return nil
}

// GetCacheKey 文案生成不缓存
func (p *MarketingContentPlugin) GetCacheKey(ctx context.Context, req *PluginRequest) string {
	return ""
}

func (p *MarketingContentPlugin) GetCacheTTL() int {
	return 0
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	return string(r[:max])
}
