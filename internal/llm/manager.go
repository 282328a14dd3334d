package llm

import (
	"context"
	"sync"

	"lead-hunter/internal/config"
	"lead-hunter/internal/logging"
	"lead-hunter/pkg/models"
	"lead-hunter/pkg/utils"
)

// Manager owns the configured provider. The server starts without one when
// credentials are missing; analysis calls then fail with the configuration error.
type Manager struct {
	config   *config.Config
	factory  *LLMFactory
	provider LeadExtractor
	startErr error
	logger   logging.Logger
	mu       sync.RWMutex
}

// NewManager creates a new LLM manager instance
func NewManager(cfg *config.Config, logger logging.Logger) *Manager {
	return &Manager{
		config:  cfg,
		factory: NewLLMFactory(cfg, logger),
		logger:  logger,
	}
}

// Start creates the provider and returns the configuration error, if any
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	provider, err := m.factory.CreateProvider()
	if err != nil {
		m.startErr = err
		m.logger.Warn("LLM provider unavailable - analysis is disabled", map[string]interface{}{
			"provider": m.config.LLM.Provider,
			"error":    err.Error(),
		})
		return err
	}

	m.provider = provider
	m.startErr = nil
	m.logger.Info("LLM manager started", map[string]interface{}{
		"provider": provider.GetProviderName(),
		"model":    provider.ModelName(),
	})
	return nil
}

// Stop shuts down the LLM manager
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.provider = nil
	return nil
}

// Provider returns the active provider or the error that prevented its creation
func (m *Manager) Provider() (LeadExtractor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.provider != nil {
		return m.provider, nil
	}
	if m.startErr != nil {
		return nil, m.startErr
	}
	return nil, utils.NewConfigurationError("LLM manager not started")
}

// ExtractLeadDetails delegates to the active provider
func (m *Manager) ExtractLeadDetails(ctx context.Context, jobURL, description string) (*models.LeadExtraction, error) {
	provider, err := m.Provider()
	if err != nil {
		return nil, err
	}
	return provider.ExtractLeadDetails(ctx, jobURL, description)
}

// ModelName returns the configured model even when no provider is active
func (m *Manager) ModelName() string {
	if provider, err := m.Provider(); err == nil {
		return provider.ModelName()
	}
	return m.config.LLM.Model
}

// GetProviderName returns the name of the current LLM provider
func (m *Manager) GetProviderName() string {
	if provider, err := m.Provider(); err == nil {
		return provider.GetProviderName()
	}
	return "none"
}

// IsHealthy reports whether a provider is available
func (m *Manager) IsHealthy() bool {
	_, err := m.Provider()
	return err == nil
}

