package direct

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"lead-hunter/internal/config"
	"lead-hunter/internal/logging"
	"lead-hunter/internal/scraper/processors"
	"lead-hunter/pkg/models"
	"lead-hunter/pkg/utils"
)

// DirectFetcher downloads pages over plain HTTP and renders them to markdown locally
type DirectFetcher struct {
	config  *config.Config
	client  *http.Client
	cleaner *processors.HTMLCleaner
	logger  logging.Logger
}

// NewDirectFetcher creates a new direct HTTP fetcher
func NewDirectFetcher(cfg *config.Config, logger logging.Logger) *DirectFetcher {
	return &DirectFetcher{
		config:  cfg,
		client:  &http.Client{Timeout: cfg.Scraper.RequestTimeout},
		cleaner: processors.NewHTMLCleaner(),
		logger:  logger,
	}
}

func (d *DirectFetcher) Fetch(ctx context.Context, url string) (*models.ScrapedPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, utils.NewScrapingError(fmt.Sprintf("invalid url %q: %v", url, err))
	}
	if d.config.Scraper.UserAgent != "" {
		req.Header.Set("User-Agent", d.config.Scraper.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "sv-SE,sv;q=0.9,en;q=0.8")

	resp, err := d.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, utils.NewScrapingError(fmt.Sprintf("request failed: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, utils.NewScrapingError(fmt.Sprintf("%s returned status %d", url, resp.StatusCode))
	}

	limit := d.config.Scraper.MaxBodyBytes
	if limit <= 0 {
		limit = 5 << 20
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, utils.NewScrapingError(fmt.Sprintf("failed to read body: %v", err))
	}

	html := string(body)
	markdown, err := d.cleaner.ToMarkdown(html)
	if err != nil {
		d.logger.Warn("Markdown conversion failed", map[string]interface{}{
			"url":   url,
			"error": err.Error(),
		})
	}

	d.logger.Debug("Fetched page", map[string]interface{}{
		"url":             url,
		"status":          resp.StatusCode,
		"html_length":     len(html),
		"markdown_length": len(markdown),
	})

	return &models.ScrapedPage{URL: url, Markdown: markdown, HTML: html}, nil
}

func (d *DirectFetcher) Cleanup() {
	d.client.CloseIdleConnections()
}

func (d *DirectFetcher) IsHealthy() bool {
	return true
}
