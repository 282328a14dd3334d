package scraper

import (
	"strings"

	"lead-hunter/internal/config"
	"lead-hunter/internal/logging"
	"lead-hunter/internal/scraper/engines/direct"
	"lead-hunter/internal/scraper/engines/firecrawl"
	"lead-hunter/internal/scraper/engines/headed"
	"lead-hunter/pkg/utils"
)

// NewFetcher creates the fetcher selected by cfg.Scraper.Engine
func NewFetcher(cfg *config.Config, logger logging.Logger) (Fetcher, error) {
	switch cfg.Scraper.Engine {
	case "firecrawl", "":
		if cfg.Firecrawl.APIKey == "" {
			return nil, utils.NewConfigurationError("FIRECRAWL_API_KEY is not set")
		}
		return firecrawl.NewFirecrawlFetcher(cfg, logger)
	case "direct":
		return direct.NewDirectFetcher(cfg, logger), nil
	case "headed":
		return headed.NewRodFetcher(cfg, logger), nil
	default:
		return nil, utils.NewConfigurationError("unsupported scraper engine: " + cfg.Scraper.Engine +
			" (supported: " + strings.Join(SupportedEngines(), ", ") + ")")
	}
}

// SupportedEngines returns the engine names accepted by NewFetcher
func SupportedEngines() []string {
	return []string{"firecrawl", "direct", "headed"}
}
