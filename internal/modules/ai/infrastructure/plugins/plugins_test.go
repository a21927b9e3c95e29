package plugins

import (
	"context"
	"errors"
	"strings"
	"testing"

	"MarketMind/internal/modules/ai/domain/rag"
	"MarketMind/pkg/xerr"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func acmeProfile() map[string]string {
	return map[string]string{
		rag.KindCompanyName:        "Acme",
		rag.KindProductDescription: "Rocket skates",
		rag.KindTargetAudience:     "Coyotes",
		rag.KindToneOfVoice:        "Playful",
	}
}

func TestCleanJSONOutput(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `["a"]`, `["a"]`},
		{"json fence", "```json\n[\"a\"]\n```", `["a"]`},
		{"bare fence", "```\n{\"x\":1}\n```", `{"x":1}`},
		{"spaces", "  [1]  ", "[1]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, cleanJSONOutput(tc.in))
		})
	}
}

func TestSearchQuestionParse(t *testing.T) {
	ctx := context.Background()
	p := NewSearchQuestionPlugin(&SearchQuestionConfig{MaxQuestions: 3})
	req := &PluginRequest{OwnerID: 1, Profile: acmeProfile()}

	t.Run("fenced array deduped and clamped", func(t *testing.T) {
		out := "```json\n[\" What sells? \", \"what sells?\", \"\", \"Who buys?\", \"Where?\", \"When?\"]\n```"
		resp, err := p.ParseResponse(ctx, out, req)
		require.NoError(t, err)
		assert.Equal(t, []string{"What sells?", "Who buys?", "Where?"}, resp.Data)
		assert.Equal(t, `["What sells?","Who buys?","Where?"]`, resp.Output)
	})

	t.Run("non json falls back to empty", func(t *testing.T) {
		resp, err := p.ParseResponse(ctx, "Sure! Here are some questions: 1. foo", req)
		require.NoError(t, err)
		assert.Equal(t, []string{}, resp.Data)
		assert.Equal(t, "[]", resp.Output)
		assert.Contains(t, resp.Metadata, "parse_error")
	})

	t.Run("leading prose around array", func(t *testing.T) {
		resp, err := p.ParseResponse(ctx, `Here you go: ["q1"] thanks`, req)
		require.NoError(t, err)
		assert.Equal(t, []string{"q1"}, resp.Data)
	})

	t.Run("request lowers the cap", func(t *testing.T) {
		r := &PluginRequest{OwnerID: 1, Profile: acmeProfile(), Context: map[string]interface{}{"max_questions": 1}}
		resp, err := p.ParseResponse(ctx, `["a","b"]`, r)
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, resp.Data)
	})
}

func TestSearchQuestionPromptAndValidate(t *testing.T) {
	ctx := context.Background()
	p := NewSearchQuestionPlugin(nil)

	msgs, err := p.BuildPrompt(ctx, &PluginRequest{OwnerID: 1, Profile: acmeProfile()})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "between 5 and 12")
	assert.Contains(t, msgs[1].Content, "Company Name: Acme")

	err = p.Validate(ctx, &PluginRequest{OwnerID: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, xerr.ErrParam))

	assert.NoError(t, p.Validate(ctx, &PluginRequest{OwnerID: 1, Profile: acmeProfile()}))
}

func TestSearchQuestionCacheKeyStable(t *testing.T) {
	ctx := context.Background()
	p := NewSearchQuestionPlugin(nil)
	a := p.GetCacheKey(ctx, &PluginRequest{OwnerID: 1, Profile: acmeProfile()})
	b := p.GetCacheKey(ctx, &PluginRequest{OwnerID: 2, Profile: acmeProfile()})
	assert.Equal(t, a, b)

	other := acmeProfile()
	other[rag.KindToneOfVoice] = "Serious"
	c := p.GetCacheKey(ctx, &PluginRequest{OwnerID: 1, Profile: other})
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "ai:completion:search_questions:"))
}

func TestResearchAnswerStripsMarkdown(t *testing.T) {
	ctx := context.Background()
	p := NewResearchAnswerPlugin(&ResearchAnswerConfig{MaxAnswerRunes: 12})
	resp, err := p.ParseResponse(ctx, "## **Answer**\nCoyotes love speed", &PluginRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Answer\nCoyot", resp.Output)

	assert.Error(t, p.Validate(ctx, &PluginRequest{OwnerID: 1, Input: "  "}))
}

func TestMarketingContentPrompt(t *testing.T) {
	ctx := context.Background()
	p := NewMarketingContentPlugin(nil)

	t.Run("empty context asks for general knowledge", func(t *testing.T) {
		msgs, err := p.BuildPrompt(ctx, &PluginRequest{OwnerID: 1, Input: "Write a tagline"})
		require.NoError(t, err)
		assert.Contains(t, msgs[1].Content, "general marketing knowledge")
		assert.Contains(t, msgs[1].Content, "Request: Write a tagline")
	})

	t.Run("profile and research are included", func(t *testing.T) {
		msgs, err := p.BuildPrompt(ctx, &PluginRequest{
			OwnerID:  1,
			Input:    "Write a tagline",
			Profile:  acmeProfile(),
			Research: []string{"Coyotes prefer fast gear"},
		})
		require.NoError(t, err)
		assert.NotContains(t, msgs[1].Content, "general marketing knowledge")
		assert.Contains(t, msgs[1].Content, "- Company Name: Acme")
		assert.Contains(t, msgs[1].Content, "1. Coyotes prefer fast gear")
	})

	assert.Empty(t, p.GetCacheKey(ctx, &PluginRequest{Input: "x"}))
}

func TestMetadataExtractParse(t *testing.T) {
	ctx := context.Background()
	p := NewMetadataExtractPlugin(nil)

	t.Run("partial object", func(t *testing.T) {
		resp, err := p.ParseResponse(ctx, "```json\n{\"industry\":\"Retail\",\"type\":null,\"topic\":\" \",\"tone\":\"friendly\"}\n```", &PluginRequest{})
		require.NoError(t, err)
		values := resp.Data.(MetadataValues)
		require.NotNil(t, values[MetaFieldIndustry])
		assert.Equal(t, "Retail", *values[MetaFieldIndustry])
		assert.Nil(t, values[MetaFieldType])
		assert.Nil(t, values[MetaFieldTopic])
		assert.Equal(t, "friendly", *values[MetaFieldTone])
	})

	t.Run("non json yields all null", func(t *testing.T) {
		resp, err := p.ParseResponse(ctx, "I think this is retail", &PluginRequest{})
		require.NoError(t, err)
		values := resp.Data.(MetadataValues)
		assert.Len(t, values, 4)
		for _, f := range MetadataFieldNames() {
			assert.Nil(t, values[f], f)
		}
		assert.Contains(t, resp.Metadata, "parse_error")
	})
}
