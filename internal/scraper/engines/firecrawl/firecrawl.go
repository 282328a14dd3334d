package firecrawl

import (
	"context"
	"fmt"
	"time"

	"github.com/mendableai/firecrawl-go"

	"lead-hunter/internal/config"
	"lead-hunter/internal/logging"
	"lead-hunter/pkg/models"
	"lead-hunter/pkg/utils"
)

// scrapeClient is the part of the Firecrawl SDK the fetcher uses
type scrapeClient interface {
	ScrapeURL(url string, params *firecrawl.ScrapeParams) (*firecrawl.FirecrawlDocument, error)
}

// FirecrawlFetcher renders pages through the Firecrawl scrape API
type FirecrawlFetcher struct {
	config *config.Config
	app    scrapeClient
	logger logging.Logger
}

// NewFirecrawlFetcher creates a new Firecrawl fetcher instance
func NewFirecrawlFetcher(cfg *config.Config, logger logging.Logger) (*FirecrawlFetcher, error) {
	app, err := firecrawl.NewFirecrawlApp(cfg.Firecrawl.APIKey, cfg.Firecrawl.APIURL)
	if err != nil {
		return nil, utils.NewConfigurationError(fmt.Sprintf("failed to initialize Firecrawl: %v", err))
	}

	logger.Info("Firecrawl fetcher initialized", map[string]interface{}{
		"api_url": cfg.Firecrawl.APIURL,
	})

	return &FirecrawlFetcher{
		config: cfg,
		app:    app,
		logger: logger,
	}, nil
}

// Fetch scrapes url as markdown and html, retrying failed attempts
func (f *FirecrawlFetcher) Fetch(ctx context.Context, url string) (*models.ScrapedPage, error) {
	formats := f.config.Firecrawl.Formats
	if len(formats) == 0 {
		formats = []string{"markdown", "html"}
	}
	params := &firecrawl.ScrapeParams{Formats: formats}

	maxRetries := f.config.Firecrawl.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	var (
		doc *firecrawl.FirecrawlDocument
		err error
	)
	for attempt := 1; attempt <= maxRetries; attempt++ {
		f.logger.Debug("Firecrawl scrape attempt", map[string]interface{}{
			"attempt":     attempt,
			"max_retries": maxRetries,
			"url":         url,
		})

		// the SDK call takes no context; run it aside so cancellation is not blocked on it
		doc, err = f.scrape(ctx, url, params)
		if err == nil || ctx.Err() != nil {
			break
		}

		f.logger.Warn("Firecrawl scrape attempt failed", map[string]interface{}{
			"attempt": attempt,
			"url":     url,
			"error":   err.Error(),
		})

		if attempt < maxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, utils.NewScrapingError(fmt.Sprintf("firecrawl scraping failed after %d attempts: %v", maxRetries, err))
	}
	if doc == nil {
		return nil, utils.NewScrapingError("no result returned from Firecrawl")
	}

	page := &models.ScrapedPage{URL: url, Markdown: doc.Markdown, HTML: doc.HTML}

	f.logger.Info("Successfully scraped page", map[string]interface{}{
		"url":             url,
		"markdown_length": len(page.Markdown),
		"html_length":     len(page.HTML),
	})
	return page, nil
}

func (f *FirecrawlFetcher) scrape(ctx context.Context, url string, params *firecrawl.ScrapeParams) (*firecrawl.FirecrawlDocument, error) {
	type result struct {
		doc *firecrawl.FirecrawlDocument
		err error
	}

	done := make(chan result, 1)
	go func() {
		doc, err := f.app.ScrapeURL(url, params)
		done <- result{doc, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.doc, r.err
	}
}

// Cleanup releases any resources used by the fetcher
func (f *FirecrawlFetcher) Cleanup() {}

// IsHealthy reports whether the fetcher was initialised with credentials
func (f *FirecrawlFetcher) IsHealthy() bool {
	return f.app != nil && f.config.Firecrawl.APIKey != ""
}
