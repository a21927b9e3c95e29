package plugins

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"MarketMind/internal/modules/ai/domain/rag"
	"MarketMind/pkg/xerr"

	"github.com/cloudwego/eino/schema"
)

// SearchQuestionPlugin 根据核心画像生成联网检索问题
type SearchQuestionPlugin struct {
	config *SearchQuestionConfig
}

type SearchQuestionConfig struct {
	MinQuestions int // Prompt 中要求的下限（默认 5）
	MaxQuestions int // 返回上限（默认 12）
	CacheTTL     int // 秒，默认 3600
}

func NewSearchQuestionPlugin(config *SearchQuestionConfig) *SearchQuestionPlugin {
	if config == nil {
		config = &SearchQuestionConfig{}
	}
	if config.MinQuestions <= 0 {
		config.MinQuestions = 5
	}
	if config.MaxQuestions < config.MinQuestions {
		config.MaxQuestions = 12
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = 3600
	}
	return &SearchQuestionPlugin{config: config}
}

func (p *SearchQuestionPlugin) GetServiceType() string {
	return ServiceSearchQuestions
}

const searchQuestionSystemPrompt = `You are an AI marketing strategist.

Based on the business information provided, generate between %d and %d high-quality web search questions that would help gather research insights.

IMPORTANT:
- Return ONLY a JSON array of strings.
- Do NOT include markdown or any extra text.
- The JSON array should look like this: ["Question 1", "Question 2", ...].

Generate questions that:
- Are relevant to the business
- Will enhance marketing strategies
- Are search-engine friendly`

func (p *SearchQuestionPlugin) BuildPrompt(ctx context.Context, req *PluginRequest) ([]schema.Message, error) {
	maxQ := p.maxQuestions(req)
	minQ := p.config.MinQuestions
	if minQ > maxQ {
		minQ = maxQ
	}

	userPrompt := fmt.Sprintf("Company Name: %s\nProduct Description: %s\nTarget Audience: %s\nTone of Voice: %s",
		profileValue(req.Profile, rag.KindCompanyName),
		profileValue(req.Profile, rag.KindProductDescription),
		profileValue(req.Profile, rag.KindTargetAudience),
		profileValue(req.Profile, rag.KindToneOfVoice),
	)

	return []schema.Message{
		{Role: schema.System, Content: fmt.Sprintf(searchQuestionSystemPrompt, minQ, maxQ)},
		{Role: schema.User, Content: userPrompt},
	}, nil
}

// ParseResponse 期望 JSON 字符串数组；解析失败降级为空列表
func (p *SearchQuestionPlugin) ParseResponse(ctx context.Context, llmOutput string, req *PluginRequest) (*PluginResponse, error) {
	cleaned := extractJSONSpan(cleanJSONOutput(llmOutput), '[', ']')

	var raw []string
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return &PluginResponse{
			Output: "[]",
			Data:   []string{},
			Metadata: map[string]interface{}{
				"parse_error": err.Error(),
				"raw_output":  llmOutput,
			},
		}, nil
	}

	questions := normalizeQuestions(raw, p.maxQuestions(req))
	out, _ := json.Marshal(questions)

	return &PluginResponse{
		Output: string(out),
		Data:   questions,
		Metadata: map[string]interface{}{
			"questions_count": len(questions),
		},
	}, nil
}

func (p *SearchQuestionPlugin) Validate(ctx context.Context, req *PluginRequest) error {
	if req.OwnerID <= 0 {
		return xerr.New(xerr.BadRequest, "owner_id 必须为正数")
	}
	if !hasProfile(req.Profile) {
		return xerr.New(xerr.BadRequest, "营销画像为空，无法生成检索问题")
	}
	return nil
}

// GetCacheKey 只依赖画像内容与数量上限
func (p *SearchQuestionPlugin) GetCacheKey(ctx context.Context, req *PluginRequest) string {
	return fmt.Sprintf("ai:completion:search_questions:%s", profileHash(req.Profile, fmt.Sprint(p.maxQuestions(req))))
}

func (p *SearchQuestionPlugin) GetCacheTTL() int {
	return p.config.CacheTTL
}

func (p *SearchQuestionPlugin) maxQuestions(req *PluginRequest) int {
	n := req.contextInt("max_questions", p.config.MaxQuestions)
	if n <= 0 || n > p.config.MaxQuestions {
		return p.config.MaxQuestions
	}
	return n
}

// normalizeQuestions 去空白、去重（忽略大小写）、截断
func normalizeQuestions(raw []string, max int) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, q := range raw {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		key := strings.ToLower(q)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, q)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out
}
