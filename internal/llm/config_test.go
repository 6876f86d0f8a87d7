package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigFor(t *testing.T) {
	tests := []struct {
		provider Provider
		advanced string
		standard string
	}{
		{ProviderGemini, "gemini-2.5-pro", "gemini-2.5-flash"},
		{ProviderOpenAI, "gpt-4o", "gpt-4o-mini"},
		{ProviderAnthropic, "claude-sonnet-4-5", "claude-sonnet-4-5"},
	}
	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			cfg := DefaultConfigFor(tt.provider)
			assert.Equal(t, tt.provider, cfg.Provider)
			assert.Equal(t, tt.advanced, cfg.GetModel(TierAdvanced))
			assert.Equal(t, tt.standard, cfg.GetModel(TierStandard))
		})
	}

	assert.Equal(t, ProviderGemini, DefaultConfig().Provider)
}

func TestParseProvider(t *testing.T) {
	tests := []struct {
		in      string
		want    Provider
		wantErr bool
	}{
		{in: "", want: ProviderGemini},
		{in: "Gemini", want: ProviderGemini},
		{in: " openai ", want: ProviderOpenAI},
		{in: "claude", want: ProviderAnthropic},
		{in: "anthropic", want: ProviderAnthropic},
		{in: "ollama", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseProvider(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetModel_Fallback(t *testing.T) {
	config := &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite: "fallback-model",
		},
	}

	// Unknown tier should fallback to TierStandard, then TierLite
	assert.Equal(t, "fallback-model", config.GetModel("unknown"))
	assert.Equal(t, "", (&Config{Models: map[ModelTier]string{}}).GetModel(TierAdvanced))
}

func TestWithModel(t *testing.T) {
	config := DefaultConfig()
	newConfig := config.WithModel(TierAdvanced, "custom-model")

	// Original should be unchanged
	assert.Equal(t, "gemini-2.5-pro", config.GetModel(TierAdvanced))
	assert.Equal(t, "custom-model", newConfig.GetModel(TierAdvanced))
	assert.Equal(t, "gemini-2.5-flash-lite", newConfig.GetModel(TierLite))
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	for _, p := range []Provider{ProviderGemini, ProviderOpenAI, ProviderAnthropic} {
		t.Run(string(p), func(t *testing.T) {
			_, err := NewClient(context.Background(), DefaultConfigFor(p), "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "API key is required")
		})
	}
}

func TestNewClient_UnknownProvider(t *testing.T) {
	_, err := NewClient(context.Background(), &Config{Provider: "bedrock"}, "key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported LLM provider")
}

func TestNewClient_OpenAIAndAnthropic(t *testing.T) {
	c, err := NewClient(context.Background(), DefaultOpenAIConfig(), "sk-test")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", c.GetModel(TierAdvanced))
	assert.NoError(t, c.Close())

	c, err = NewClient(context.Background(), DefaultAnthropicConfig(), "sk-ant-test")
	require.NoError(t, err)
	assert.Equal(t, "claude-3-5-haiku-latest", c.GetModel(TierLite))
	assert.NoError(t, c.Close())
}
