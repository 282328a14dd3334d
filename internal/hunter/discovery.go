package hunter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lead-hunter/internal/config"
	"lead-hunter/internal/logging"
	"lead-hunter/internal/scraper"
	"lead-hunter/internal/store"
	"lead-hunter/pkg/models"
)

const noPostingURLsError = "No job URLs could be extracted from the search results page. The page structure may have changed."

const batchLockKey = "batch"

// DiscoveredJobPosting is a posting fetched during one run and not yet persisted
type DiscoveredJobPosting struct {
	Company        string
	JobTitle       string
	JobURL         string
	JobDescription string
}

// Discoverer drives a discovery run: classify, fetch, extract, dedupe, persist
type Discoverer struct {
	config    *config.Config
	fetcher   scraper.Fetcher
	store     store.LeadStore
	locker    store.RunLocker
	rules     SiteRules
	extractor *Extractor
	logger    logging.Logger
}

// NewDiscoverer wires a discoverer. Pass a *scraper.Unavailable fetcher when
// the engine could not be built; runs then fail before any side effect.
func NewDiscoverer(cfg *config.Config, fetcher scraper.Fetcher, st store.LeadStore, locker store.RunLocker, logger logging.Logger) *Discoverer {
	rules := SiteRulesFromConfig(cfg)
	if locker == nil {
		locker = store.NewLocalLocker()
	}
	return &Discoverer{
		config:    cfg,
		fetcher:   fetcher,
		store:     st,
		locker:    locker,
		rules:     rules,
		extractor: NewExtractor(rules),
		logger:    logger.WithField("component", "discoverer"),
	}
}

// Discover runs one discovery pass. URL selects single-URL mode, URLs batch
// mode; with neither the configured default URL (or batch list) is used.
func (d *Discoverer) Discover(ctx context.Context, req models.DiscoverRequest) (*models.DiscoverResult, error) {
	if u, ok := d.fetcher.(*scraper.Unavailable); ok {
		return nil, u.Err
	}

	var (
		lockKey string
		run     func(context.Context) (*models.DiscoverResult, error)
	)

	switch {
	case req.URL != "":
		lockKey = req.URL
		run = func(ctx context.Context) (*models.DiscoverResult, error) { return d.discoverURL(ctx, req.URL) }
	case len(req.URLs) > 0:
		lockKey = batchLockKey
		run = func(ctx context.Context) (*models.DiscoverResult, error) { return d.discoverBatch(ctx, req.URLs) }
	case d.config.Hunter.DefaultURL != "":
		lockKey = d.config.Hunter.DefaultURL
		run = func(ctx context.Context) (*models.DiscoverResult, error) {
			return d.discoverURL(ctx, d.config.Hunter.DefaultURL)
		}
	default:
		lockKey = batchLockKey
		run = func(ctx context.Context) (*models.DiscoverResult, error) {
			return d.discoverBatch(ctx, d.config.Hunter.BatchURLs)
		}
	}

	release, err := d.locker.Acquire(ctx, lockKey)
	if errors.Is(err, store.ErrLockHeld) {
		d.logger.Warn("Discovery already running", map[string]interface{}{"key": lockKey})
		return &models.DiscoverResult{
			Success: false,
			Leads:   []models.DiscoveredLeadSummary{},
			Error:   fmt.Sprintf("discovery already running for %s", lockKey),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	defer release()

	startTime := time.Now()
	result, err := run(ctx)
	if err != nil {
		d.logger.Error("Discovery failed", map[string]interface{}{
			"key":   lockKey,
			"error": err.Error(),
		})
		return nil, err
	}

	d.logger.Info("Discovery completed", map[string]interface{}{
		"key":             lockKey,
		"leads_found":     result.LeadsFound,
		"leads_saved":     result.LeadsSaved,
		"skipped":         result.Skipped,
		"processing_time": time.Since(startTime).String(),
	})
	return result, nil
}

// discoverURL handles one input URL, listing or posting
func (d *Discoverer) discoverURL(ctx context.Context, url string) (*models.DiscoverResult, error) {
	if d.rules.IsListingURL(url) {
		return d.discoverListing(ctx, url)
	}
	return d.discoverPosting(ctx, url)
}

func (d *Discoverer) discoverListing(ctx context.Context, url string) (*models.DiscoverResult, error) {
	d.logger.Info("Scraping search results page", map[string]interface{}{"url": url})

	page, err := d.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch listing page %s: %w", url, err)
	}

	extraction := d.extractor.Extract(page)
	if len(extraction.URLs) == 0 {
		d.logger.Warn("No job URLs extracted from search results page", map[string]interface{}{
			"url":             url,
			"html_length":     extraction.Diagnostics.HTMLLength,
			"markdown_length": extraction.Diagnostics.MarkdownLength,
			"href_count":      extraction.Diagnostics.HrefCount,
		})
		debug := extraction.Diagnostics
		return &models.DiscoverResult{
			Success: true,
			Leads:   []models.DiscoveredLeadSummary{},
			Error:   noPostingURLsError,
			Debug:   &debug,
		}, nil
	}

	d.logger.Info("Found job postings", map[string]interface{}{
		"url":    url,
		"count":  len(extraction.URLs),
		"source": string(extraction.Source),
	})

	postings, skipped, err := d.collect(ctx, extraction.URLs)
	if err != nil {
		return nil, err
	}
	return d.persist(ctx, postings, skipped), nil
}

func (d *Discoverer) discoverPosting(ctx context.Context, url string) (*models.DiscoverResult, error) {
	existing, err := d.store.GetLeadByJobURL(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("look up job url: %w", err)
	}
	if existing != nil {
		d.logger.Info("Skipping already-scraped job URL", map[string]interface{}{"url": url})
		return &models.DiscoverResult{
			Success: true,
			Leads:   []models.DiscoveredLeadSummary{},
			Skipped: 1,
		}, nil
	}

	posting, err := d.fetchPosting(ctx, url)
	if err != nil {
		return nil, err
	}
	return d.persist(ctx, []DiscoveredJobPosting{*posting}, 0), nil
}

// discoverBatch treats every URL as a single posting
func (d *Discoverer) discoverBatch(ctx context.Context, urls []string) (*models.DiscoverResult, error) {
	if len(urls) == 0 {
		d.logger.Info("No URL given and no batch URLs configured", nil)
		return &models.DiscoverResult{Success: true, Leads: []models.DiscoveredLeadSummary{}}, nil
	}

	postings, skipped, err := d.collect(ctx, urls)
	if err != nil {
		return nil, err
	}
	return d.persist(ctx, postings, skipped), nil
}

// collect fetches each unseen posting in order, pausing after every successful
// fetch that is not the last item. Per-URL failures are logged and skipped;
// only cancellation stops the loop.
func (d *Discoverer) collect(ctx context.Context, urls []string) ([]DiscoveredJobPosting, int, error) {
	pacer := NewPacer(d.config.Hunter.RequestDelay)
	var (
		postings []DiscoveredJobPosting
		skipped  int
	)

	for i, jobURL := range urls {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		d.logger.Debug("Processing job", map[string]interface{}{
			"index": i + 1,
			"total": len(urls),
			"url":   jobURL,
		})

		existing, err := d.store.GetLeadByJobURL(ctx, jobURL)
		if err != nil {
			d.logger.Error("Failed to look up job URL", map[string]interface{}{
				"url":   jobURL,
				"error": err.Error(),
			})
			continue
		}
		if existing != nil {
			d.logger.Info("Skipping already-scraped job URL", map[string]interface{}{"url": jobURL})
			skipped++
			continue
		}

		posting, err := d.fetchPosting(ctx, jobURL)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, 0, ctxErr
			}
			d.logger.Error("Error processing job", map[string]interface{}{
				"url":   jobURL,
				"error": err.Error(),
			})
			continue
		}
		postings = append(postings, *posting)

		// only a completed fetch followed by another item earns a pause
		if i < len(urls)-1 {
			if err := pacer.Pause(ctx); err != nil {
				return nil, 0, err
			}
		}
	}

	return postings, skipped, nil
}

func (d *Discoverer) fetchPosting(ctx context.Context, jobURL string) (*DiscoveredJobPosting, error) {
	page, err := d.fetcher.Fetch(ctx, jobURL)
	if err != nil {
		return nil, fmt.Errorf("fetch posting %s: %w", jobURL, err)
	}

	company, title := ExtractFields(page.Markdown)
	return &DiscoveredJobPosting{
		Company:        company,
		JobTitle:       title,
		JobURL:         jobURL,
		JobDescription: page.Markdown,
	}, nil
}

// persist saves every posting as a pending scraped lead. A failed save is
// logged and left out of the summary.
func (d *Discoverer) persist(ctx context.Context, postings []DiscoveredJobPosting, skipped int) *models.DiscoverResult {
	email := d.config.Hunter.PlaceholderMail
	if email == "" {
		email = models.ScrapedLeadEmail
	}

	result := &models.DiscoverResult{
		Success:    true,
		LeadsFound: len(postings),
		Leads:      []models.DiscoveredLeadSummary{},
		Skipped:    skipped,
	}

	for _, p := range postings {
		_, err := d.store.SaveScrapedLead(ctx, models.ScrapedLeadInput{
			Name:              p.JobTitle,
			Email:             email,
			Company:           p.Company,
			Message:           models.ScrapedLeadMessage,
			JobURL:            p.JobURL,
			RawJobDescription: p.JobDescription,
		})
		if err != nil {
			d.logger.Error("Error saving lead", map[string]interface{}{
				"company": p.Company,
				"url":     p.JobURL,
				"error":   err.Error(),
			})
			continue
		}

		result.LeadsSaved++
		result.Leads = append(result.Leads, models.DiscoveredLeadSummary{Company: p.Company, JobURL: p.JobURL})
		d.logger.Info("Saved lead", map[string]interface{}{
			"company":   p.Company,
			"job_title": p.JobTitle,
		})
	}

	return result
}
