package scraper

import (
	"context"

	"lead-hunter/pkg/models"
)

// Fetcher renders a page to markdown and HTML
type Fetcher interface {
	// Fetch retrieves url and returns both renditions of the page
	Fetch(ctx context.Context, url string) (*models.ScrapedPage, error)

	// Cleanup releases any resources used by the fetcher
	Cleanup()

	// IsHealthy returns true if the fetcher is ready to process requests
	IsHealthy() bool
}

// Unavailable stands in for an engine that could not be built, typically for
// missing credentials. Every fetch returns Err.
type Unavailable struct {
	Err error
}

func (u *Unavailable) Fetch(ctx context.Context, url string) (*models.ScrapedPage, error) {
	return nil, u.Err
}

func (u *Unavailable) Cleanup() {}

func (u *Unavailable) IsHealthy() bool {
	return false
}
