package llm

import (
	"strings"

	"lead-hunter/internal/config"
	"lead-hunter/internal/llm/providers"
	"lead-hunter/internal/logging"
	"lead-hunter/pkg/utils"
)

// LLMFactory creates LLM provider instances
type LLMFactory struct {
	config *config.Config
	logger logging.Logger
}

// NewLLMFactory creates a new LLM factory instance
func NewLLMFactory(cfg *config.Config, logger logging.Logger) *LLMFactory {
	return &LLMFactory{
		config: cfg,
		logger: logger,
	}
}

// CreateProvider creates an LLM provider based on the configuration.
// A missing API key is a configuration error.
func (f *LLMFactory) CreateProvider() (LeadExtractor, error) {
	switch f.config.LLM.Provider {
	case "claude", "":
		if f.config.LLM.APIKey == "" {
			return nil, utils.NewConfigurationError("LLM_API_KEY (or ANTHROPIC_API_KEY) is not set")
		}
		return providers.NewClaudeProvider(f.config, f.logger), nil
	default:
		return nil, utils.NewConfigurationError("unsupported LLM provider: " + f.config.LLM.Provider +
			" (supported: " + strings.Join(f.GetSupportedProviders(), ", ") + ")")
	}
}

// GetSupportedProviders returns a list of supported LLM providers
func (f *LLMFactory) GetSupportedProviders() []string {
	return []string{"claude"}
}
