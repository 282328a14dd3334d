package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lead-hunter/internal/config"
	"lead-hunter/internal/logging"
	"lead-hunter/pkg/utils"
)

func TestCreateProviderRequiresAPIKey(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = ""

	_, err := NewLLMFactory(cfg, logging.NewDiscardLogger()).CreateProvider()
	require.Error(t, err)

	customErr, ok := utils.AsCustomError(err)
	require.True(t, ok)
	assert.Equal(t, "Configuration error", customErr.Message)
	assert.Contains(t, customErr.Detail, "LLM_API_KEY")
}

func TestCreateProviderUnsupported(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = "sk-test"
	cfg.LLM.Provider = "gpt"

	_, err := NewLLMFactory(cfg, logging.NewDiscardLogger()).CreateProvider()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported LLM provider")
}

func TestManagerWithoutCredentials(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = ""

	m := NewManager(cfg, logging.NewDiscardLogger())
	require.Error(t, m.Start())

	assert.False(t, m.IsHealthy())
	assert.Equal(t, "none", m.GetProviderName())
	assert.Equal(t, cfg.LLM.Model, m.ModelName())

	_, err := m.ExtractLeadDetails(context.Background(), "https://x", "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM_API_KEY")
}

func TestManagerNotStarted(t *testing.T) {
	m := NewManager(config.Default(), logging.NewDiscardLogger())

	_, err := m.Provider()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not started")
}

func TestManagerStartsClaude(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = "sk-test"

	m := NewManager(cfg, logging.NewDiscardLogger())
	require.NoError(t, m.Start())

	assert.True(t, m.IsHealthy())
	assert.Equal(t, "claude", m.GetProviderName())
	assert.Equal(t, cfg.LLM.Model, m.ModelName())

	require.NoError(t, m.Stop())
	assert.False(t, m.IsHealthy())
}
