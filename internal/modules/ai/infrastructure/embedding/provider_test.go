package embedding

import (
	"context"
	"testing"

	"MarketMind/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDim(t *testing.T) {
	cases := []struct {
		name      string
		storeDim  int
		embedDim  int
		want      int
		wantError string
	}{
		{name: "store only", storeDim: 768, want: 768},
		{name: "same", storeDim: 1024, embedDim: 1024, want: 1024},
		{name: "embed only", embedDim: 256, want: 256},
		{name: "conflict", storeDim: 768, embedDim: 1024, wantError: "conflicts with milvusConfig.vectorDim=768"},
		{name: "none", wantError: "vector dim not configured"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conf := &config.Config{}
			conf.MilvusConfig.VectorDim = tc.storeDim
			conf.AIConfig.Embedding.Dimensions = tc.embedDim
			got, err := ResolveDim(conf)
			if tc.wantError != "" {
				assert.ErrorContains(t, err, tc.wantError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNewEmbedderFromConfig_Mock(t *testing.T) {
	conf := &config.Config{}
	conf.MilvusConfig.VectorDim = 24

	em, meta, err := NewEmbedderFromConfig(context.Background(), conf)
	require.NoError(t, err)
	assert.Equal(t, EmbedderMeta{Provider: "mock", Model: "mock", Dim: 24}, meta)

	vecs, err := em.EmbedStrings(context.Background(), []string{"acme"})
	require.NoError(t, err)
	require.Len(t, vecs, 1)
	assert.Len(t, vecs[0], 24)
}

func TestNewEmbedderFromConfig_Errors(t *testing.T) {
	for _, env := range []string{
		"GEMINI_API_KEY", "OPENAI_API_KEY", "OPENAI_EMBED_MODEL", "ARK_API_KEY", "ARK_EMBED_MODEL",
		"ARK_ACCESS_KEY", "ARK_SECRET_KEY", "DASHSCOPE_API_KEY", "DASHSCOPE_EMBED_MODEL",
	} {
		t.Setenv(env, "")
	}

	cases := []struct {
		provider string
		model    string
		want     string
	}{
		{provider: "cohere", want: "unknown embedding provider"},
		{provider: "google", want: "gemini embedding: missing apiKey"},
		{provider: "openai", want: "openai embedding: missing model"},
		{provider: "openai", model: "text-embedding-3-small", want: "openai embedding: missing apiKey"},
		{provider: "dashscope", model: "text-embedding-v3", want: "dashscope embedding: missing apiKey"},
		{provider: "ark", model: "doubao-embedding", want: "missing apiKey or accessKey/secretKey"},
	}
	for _, tc := range cases {
		t.Run(tc.provider+"/"+tc.model, func(t *testing.T) {
			conf := &config.Config{}
			conf.MilvusConfig.VectorDim = 8
			conf.AIConfig.Embedding.Provider = tc.provider
			conf.AIConfig.Embedding.Model = tc.model
			_, _, err := NewEmbedderFromConfig(context.Background(), conf)
			assert.ErrorContains(t, err, tc.want)
		})
	}
}
