package headed

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"lead-hunter/internal/config"
	"lead-hunter/internal/logging"
	"lead-hunter/internal/scraper/processors"
	"lead-hunter/pkg/models"
	"lead-hunter/pkg/utils"
)

// RodFetcher renders pages in a stealth Chromium so client-side listings are populated
type RodFetcher struct {
	config   *config.Config
	launcher *launcher.Launcher
	browser  *rod.Browser
	cleaner  *processors.HTMLCleaner
	mu       sync.Mutex
	logger   logging.Logger
}

// NewRodFetcher creates a fetcher; the browser is launched on first use
func NewRodFetcher(cfg *config.Config, logger logging.Logger) *RodFetcher {
	l := launcher.New().
		Headless(cfg.Scraper.HeadlessMode).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-background-timer-throttling").
		Set("disable-renderer-backgrounding").
		// required inside containers
		Set("disable-gpu").
		Set("disable-dev-shm-usage")

	if chromePath := getSystemChromePath(); chromePath != "" {
		l = l.Bin(chromePath)
		logger.Info("Using system Chrome browser", map[string]interface{}{
			"chrome_path": chromePath,
		})
	} else {
		logger.Warn("System Chrome not found, Rod will download browser", nil)
	}

	return &RodFetcher{
		config:   cfg,
		launcher: l,
		cleaner:  processors.NewHTMLCleaner(),
		logger:   logger,
	}
}

// Fetch navigates a fresh stealth page to url and returns the rendered DOM
func (r *RodFetcher) Fetch(ctx context.Context, url string) (*models.ScrapedPage, error) {
	browser, err := r.getBrowser()
	if err != nil {
		return nil, utils.NewScrapingError(err.Error())
	}

	page, err := r.createStealthPage(browser)
	if err != nil {
		return nil, utils.NewScrapingError(err.Error())
	}
	defer func() { _ = page.Close() }()

	timeout := r.config.Scraper.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err = rod.Try(func() {
		page.Context(navCtx).MustNavigate(url).MustWaitLoad()
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, utils.NewScrapingError(fmt.Sprintf("failed to navigate to %s: %v", url, err))
	}

	// listings are rendered client side after load
	_ = page.Context(navCtx).WaitIdle(2 * time.Second)

	html, err := page.HTML()
	if err != nil {
		return nil, utils.NewScrapingError(fmt.Sprintf("failed to get page HTML: %v", err))
	}

	markdown, err := r.cleaner.ToMarkdown(html)
	if err != nil {
		r.logger.Warn("Markdown conversion failed", map[string]interface{}{
			"url":   url,
			"error": err.Error(),
		})
	}

	return &models.ScrapedPage{URL: url, Markdown: markdown, HTML: html}, nil
}

func (r *RodFetcher) getBrowser() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		return r.browser, nil
	}

	controlURL, err := r.launcher.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	r.logger.Info("Browser launched", nil)
	r.browser = browser
	return browser, nil
}

func (r *RodFetcher) createStealthPage(browser *rod.Browser) (*rod.Page, error) {
	page, err := stealth.Page(browser)
	if err != nil {
		return nil, fmt.Errorf("failed to create stealth page: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1920,
		Height:            1080,
		DeviceScaleFactor: 1,
	}); err != nil {
		r.logger.Debug("Failed to set viewport", map[string]interface{}{"error": err.Error()})
	}

	if r.config.Scraper.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      r.config.Scraper.UserAgent,
			AcceptLanguage: "sv-SE,sv;q=0.9,en;q=0.8",
		}); err != nil {
			r.logger.Debug("Failed to set user agent", map[string]interface{}{"error": err.Error()})
		}
	}

	return page, nil
}

// Cleanup closes the browser if it was launched
func (r *RodFetcher) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		if err := r.browser.Close(); err != nil {
			r.logger.Warn("Failed to close browser", map[string]interface{}{"error": err.Error()})
		}
		r.browser = nil
		r.launcher.Cleanup()
	}
}

func (r *RodFetcher) IsHealthy() bool {
	return true
}

// getSystemChromePath finds the system-installed Chrome/Chromium browser
func getSystemChromePath() string {
	for _, env := range []string{"CHROME_BIN", "CHROME_PATH"} {
		if p := os.Getenv(env); p != "" {
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}

	commonPaths := []string{
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/opt/google/chrome/chrome",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	}
	for _, path := range commonPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}
