package plugins

import (
	"context"
	"fmt"
	"strings"

	"MarketMind/internal/modules/ai/domain/rag"
	"MarketMind/pkg/xerr"

	"github.com/cloudwego/eino/schema"
)

// ResearchAnswerPlugin 针对单个检索问题给出纯文本回答
type ResearchAnswerPlugin struct {
	config *ResearchAnswerConfig
}

type ResearchAnswerConfig struct {
	MaxAnswerRunes int // 超出截断（默认 4000）
	CacheTTL       int // 秒，默认 1800
}

func NewResearchAnswerPlugin(config *ResearchAnswerConfig) *ResearchAnswerPlugin {
	if config == nil {
		config = &ResearchAnswerConfig{}
	}
	if config.MaxAnswerRunes <= 0 {
		config.MaxAnswerRunes = 4000
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = 1800
	}
	return &ResearchAnswerPlugin{config: config}
}

func (p *ResearchAnswerPlugin) GetServiceType() string {
	return ServiceResearchAnswer
}

const researchAnswerSystemPrompt = `You are an AI marketing strategist.

Provide a detailed, high-quality answer to the research question you are given, using the business information as context.

IMPORTANT:
- Return ONLY the answer text.
- Do not include any markdown formatting or extra commentary.`

func (p *ResearchAnswerPlugin) BuildPrompt(ctx context.Context, req *PluginRequest) ([]schema.Message, error) {
	userPrompt := fmt.Sprintf("Question: %s\n\nCompany Name: %s\nProduct Description: %s\nTarget Audience: %s\nTone of Voice: %s",
		strings.TrimSpace(req.Input),
		profileValue(req.Profile, rag.KindCompanyName),
		profileValue(req.Profile, rag.KindProductDescription),
		profileValue(req.Profile, rag.KindTargetAudience),
		profileValue(req.Profile, rag.KindToneOfVoice),
	)
	return []schema.Message{
		{Role: schema.System, Content: researchAnswerSystemPrompt},
		{Role: schema.User, Content: userPrompt},
	}, nil
}

func (p *ResearchAnswerPlugin) ParseResponse(ctx context.Context, llmOutput string, req *PluginRequest) (*PluginResponse, error) {
	answer := stripMarkdown(llmOutput)
	if r := []rune(answer); len(r) > p.config.MaxAnswerRunes {
		answer = string(r[:p.config.MaxAnswerRunes])
	}
	return &PluginResponse{
		Output: answer,
		Data:   answer,
		Metadata: map[string]interface{}{
			"answer_runes": len([]rune(answer)),
		},
	}, nil
}

func (p *ResearchAnswerPlugin) Validate(ctx context.Context, req *PluginRequest) error {
	if req.OwnerID <= 0 {
		return xerr.New(xerr.BadRequest, "owner_id 必须为正数")
	}
	if strings.TrimSpace(req.Input) == "" {
		return xerr.New(xerr.BadRequest, "question 不能为空")
	}
	return nil
}

func (p *ResearchAnswerPlugin) GetCacheKey(ctx context.Context, req *PluginRequest) string {
	return fmt.Sprintf("ai:completion:research_answer:%s", profileHash(req.Profile, strings.TrimSpace(req.Input)))
}

func (p *ResearchAnswerPlugin) GetCacheTTL() int {
	return p.config.CacheTTL
}

// stripMarkdown 去掉代码块围栏与行首的标题/加粗符号，保留正文
func stripMarkdown(s string) string {
	s = cleanJSONOutput(s)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " ")
		trimmed = strings.TrimLeft(trimmed, "#")
		lines[i] = strings.ReplaceAll(strings.TrimSpace(trimmed), "**", "")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
