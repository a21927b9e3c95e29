package llm

import (
	"context"
	"testing"
	"time"

	"MarketMind/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChatModelFromConfig_Disabled(t *testing.T) {
	for _, p := range []string{"", "none", "Disabled"} {
		conf := &config.Config{}
		conf.AIConfig.ChatModel.Provider = p
		_, _, err := NewChatModelFromConfig(context.Background(), conf)
		assert.ErrorIs(t, err, ErrChatModelDisabled, p)
	}
}

func TestNewChatModelFromConfig_Errors(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_MODEL", "")
	t.Setenv("ARK_API_KEY", "")
	t.Setenv("ARK_ACCESS_KEY", "")
	t.Setenv("ARK_SECRET_KEY", "")

	cases := map[string]string{
		"claude": "unknown chat model provider",
		"gemini": "missing apiKey",
		"openai": "missing apiKey/model",
		"ark":    "missing apiKey or accessKey/secretKey",
	}
	for provider, want := range cases {
		t.Run(provider, func(t *testing.T) {
			conf := &config.Config{}
			conf.AIConfig.ChatModel.Provider = provider
			_, _, err := NewChatModelFromConfig(context.Background(), conf)
			require.Error(t, err)
			assert.Contains(t, err.Error(), want)
		})
	}
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "  ", " b ", "c"))
	assert.Equal(t, "", firstNonEmpty())
	assert.Equal(t, 5*time.Second, timeoutOr(5, time.Minute))
	assert.Equal(t, time.Minute, timeoutOr(0, time.Minute))
}
