package plugins

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"MarketMind/pkg/xerr"

	"github.com/cloudwego/eino/schema"
)

// 元数据字段，顺序即返回 Missing 的顺序
const (
	MetaFieldIndustry = "industry"
	MetaFieldType     = "type"
	MetaFieldTopic    = "topic"
	MetaFieldTone     = "tone"
)

var metadataFieldNames = []string{MetaFieldIndustry, MetaFieldType, MetaFieldTopic, MetaFieldTone}

// MetadataFieldNames 返回元数据字段名副本
func MetadataFieldNames() []string {
	out := make([]string, len(metadataFieldNames))
	copy(out, metadataFieldNames)
	return out
}

// MetadataValues 字段名 → 值，nil 表示模型未给出
type MetadataValues map[string]*string

// MetadataExtractPlugin 对自由文本做 industry/type/topic/tone 分类
type MetadataExtractPlugin struct {
	config *MetadataExtractConfig
}

type MetadataExtractConfig struct {
	MaxInputRunes int // 默认 4000
	CacheTTL      int // 秒，默认 600
}

func NewMetadataExtractPlugin(config *MetadataExtractConfig) *MetadataExtractPlugin {
	if config == nil {
		config = &MetadataExtractConfig{}
	}
	if config.MaxInputRunes <= 0 {
		config.MaxInputRunes = 4000
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = 600
	}
	return &MetadataExtractPlugin{config: config}
}

func (p *MetadataExtractPlugin) GetServiceType() string {
	return ServiceMetadataExtract
}

const metadataSystemPrompt = `You classify marketing text.

Read the text and answer with ONLY a JSON object with exactly these keys:
{"industry": string|null, "type": string|null, "topic": string|null, "tone": string|null}

- industry: the business sector, e.g. "SaaS", "Retail", "Healthcare".
- type: the kind of content, e.g. "blog post", "ad copy", "product description", "email".
- topic: a short phrase naming the subject.
- tone: the tone of voice, e.g. "friendly", "professional", "playful".
Use null when the text does not let you decide. Do not include markdown.`

func (p *MetadataExtractPlugin) BuildPrompt(ctx context.Context, req *PluginRequest) ([]schema.Message, error) {
	return []schema.Message{
		{Role: schema.System, Content: metadataSystemPrompt},
		{Role: schema.User, Content: truncateRunes(strings.TrimSpace(req.Input), p.config.MaxInputRunes)},
	}, nil
}

// ParseResponse 非 JSON 输出时所有字段为 null
func (p *MetadataExtractPlugin) ParseResponse(ctx context.Context, llmOutput string, req *PluginRequest) (*PluginResponse, error) {
	values := make(MetadataValues, len(metadataFieldNames))
	for _, f := range metadataFieldNames {
		values[f] = nil
	}

	cleaned := extractJSONSpan(cleanJSONOutput(llmOutput), '{', '}')
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		out, _ := json.Marshal(values)
		return &PluginResponse{
			Output: string(out),
			Data:   values,
			Metadata: map[string]interface{}{
				"parse_error": err.Error(),
				"raw_output":  llmOutput,
			},
		}, nil
	}

	for _, f := range metadataFieldNames {
		s, ok := raw[f].(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" || strings.EqualFold(s, "null") {
			continue
		}
		v := s
		values[f] = &v
	}

	out, _ := json.Marshal(values)
	return &PluginResponse{
		Output: string(out),
		Data:   values,
	}, nil
}

func (p *MetadataExtractPlugin) Validate(ctx context.Context, req *PluginRequest) error {
	if strings.TrimSpace(req.Input) == "" {
		return xerr.New(xerr.BadRequest, "text 不能为空")
	}
	return nil
}

func (p *MetadataExtractPlugin) GetCacheKey(ctx context.Context, req *PluginRequest) string {
	hash := md5.Sum([]byte(strings.TrimSpace(req.Input)))
	return fmt.Sprintf("ai:completion:metadata:%s", hex.EncodeToString(hash[:]))
}

func (p *MetadataExtractPlugin) GetCacheTTL() int {
	return p.config.CacheTTL
}
