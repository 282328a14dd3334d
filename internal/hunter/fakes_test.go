package hunter

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lead-hunter/internal/config"
	"lead-hunter/internal/llm"
	"lead-hunter/internal/logging"
	"lead-hunter/internal/store"
	"lead-hunter/pkg/models"
)

type fakeFetcher struct {
	mu      sync.Mutex
	pages   map[string]*models.ScrapedPage
	errs    map[string]error
	called  []string
	latency time.Duration
	spans   []fetchSpan
}

// fetchSpan is when one Fetch call started and returned
type fetchSpan struct {
	url        string
	start, end time.Time
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages: make(map[string]*models.ScrapedPage),
		errs:  make(map[string]error),
	}
}

func (f *fakeFetcher) page(url, markdown, html string) *fakeFetcher {
	f.pages[url] = &models.ScrapedPage{URL: url, Markdown: markdown, HTML: html}
	return f
}

func (f *fakeFetcher) fail(url string, err error) *fakeFetcher {
	f.errs[url] = err
	return f
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*models.ScrapedPage, error) {
	start := time.Now()
	if f.latency > 0 {
		time.Sleep(f.latency)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.called = append(f.called, url)
	f.spans = append(f.spans, fetchSpan{url: url, start: start, end: time.Now()})
	if err := f.errs[url]; err != nil {
		return nil, err
	}
	if p, ok := f.pages[url]; ok {
		return p, nil
	}
	return nil, errors.New("unexpected url " + url)
}

func (f *fakeFetcher) Cleanup() {}

func (f *fakeFetcher) IsHealthy() bool { return true }

func (f *fakeFetcher) timeline() []fetchSpan {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fetchSpan(nil), f.spans...)
}

func (f *fakeFetcher) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.called...)
}

type fakeExtractor struct {
	mu      sync.Mutex
	byURL   map[string]*models.LeadExtraction
	errs    map[string]error
	calls   int
	lastURL string
}

func newFakeExtractor() *fakeExtractor {
	return &fakeExtractor{
		byURL: make(map[string]*models.LeadExtraction),
		errs:  make(map[string]error),
	}
}

func (e *fakeExtractor) ExtractLeadDetails(ctx context.Context, jobURL, description string) (*models.LeadExtraction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.calls++
	e.lastURL = jobURL
	if err := e.errs[jobURL]; err != nil {
		return nil, err
	}
	if out, ok := e.byURL[jobURL]; ok {
		return out, nil
	}
	return &models.LeadExtraction{}, nil
}

func (e *fakeExtractor) ModelName() string { return "claude-test" }

func (e *fakeExtractor) GetProviderName() string { return "fake" }

// staticSource hands out a fixed extractor or error
type staticSource struct {
	extractor llm.LeadExtractor
	err       error
}

func (s staticSource) Provider() (llm.LeadExtractor, error) {
	return s.extractor, s.err
}

// heldLocker reports every key as taken
type heldLocker struct{}

func (heldLocker) Acquire(context.Context, string) (func(), error) {
	return nil, store.ErrLockHeld
}

func newTestStore(t *testing.T) store.LeadStore {
	t.Helper()

	s, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "leads.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Hunter.RequestDelay = 0
	return cfg
}

func testLogger() logging.Logger {
	return logging.NewDiscardLogger()
}

func seedScraped(t *testing.T, st store.LeadStore, jobURL, raw string) string {
	t.Helper()

	id, err := st.SaveScrapedLead(context.Background(), models.ScrapedLeadInput{
		Name:              DefaultJobTitle,
		Email:             models.ScrapedLeadEmail,
		Company:           UnknownCompany,
		Message:           models.ScrapedLeadMessage,
		JobURL:            jobURL,
		RawJobDescription: raw,
	})
	require.NoError(t, err)
	return id
}
