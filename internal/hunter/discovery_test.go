package hunter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lead-hunter/internal/scraper"
	"lead-hunter/internal/store"
	"lead-hunter/pkg/models"
	"lead-hunter/pkg/utils"
)

const (
	listingURL = "https://arbetsformedlingen.se/platsbanken/annonser?q=excel&l=3:PVZL_BQT_XtL"
	postingA   = "https://arbetsformedlingen.se/platsbanken/annonser/1001"
	postingB   = "https://arbetsformedlingen.se/platsbanken/annonser/1002"
	postingC   = "https://arbetsformedlingen.se/platsbanken/annonser/1003"
)

const listingHTML = `
	<a href="/platsbanken/annonser/1001">Ekonomiassistent</a>
	<a href="/platsbanken/annonser/1002">Lagerarbetare</a>
	<a href="/platsbanken/annonser/1003">Controller</a>
	<a href="/platsbanken/annonser?q=excel&page=2">Nästa</a>`

func TestDiscoverListingPage(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedScraped(t, st, postingB, "already here")

	fetcher := newFakeFetcher().
		page(listingURL, "", listingHTML).
		page(postingA, "# Ekonomiassistent\nFöretag: Acme AB", "").
		fail(postingC, errors.New("upstream 502"))

	d := NewDiscoverer(testConfig(), fetcher, st, store.NewLocalLocker(), testLogger())
	result, err := d.Discover(ctx, models.DiscoverRequest{URL: listingURL})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.LeadsFound)
	assert.Equal(t, 1, result.LeadsSaved)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, []models.DiscoveredLeadSummary{{Company: "Acme AB", JobURL: postingA}}, result.Leads)
	assert.Empty(t, result.Error)

	// the known posting is never fetched
	assert.Equal(t, []string{listingURL, postingA, postingC}, fetcher.calls())

	lead, err := st.GetLeadByJobURL(ctx, postingA)
	require.NoError(t, err)
	require.NotNil(t, lead)
	assert.Equal(t, "Ekonomiassistent", lead.Name)
	assert.Equal(t, "pending@inventing.se", lead.Email)
	assert.Equal(t, models.ScrapedLeadMessage, lead.Message)
	assert.Equal(t, models.LeadStatusNew, lead.Status)
	require.NotNil(t, lead.AnalysisStatus)
	assert.Equal(t, models.AnalysisPending, *lead.AnalysisStatus)
	assert.Equal(t, "# Ekonomiassistent\nFöretag: Acme AB", models.StringValue(lead.RawJobDescription))

	comments, err := st.ListComments(ctx, lead.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, models.SystemAuthor, comments[0].Author)

	missing, err := st.GetLeadByJobURL(ctx, postingC)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDiscoverListingWithoutPostingsIsSoftFailure(t *testing.T) {
	st := newTestStore(t)
	fetcher := newFakeFetcher().page(listingURL, "Inga träffar", `<html><a href="/om">Om</a></html>`)

	d := NewDiscoverer(testConfig(), fetcher, st, nil, testLogger())
	result, err := d.Discover(context.Background(), models.DiscoverRequest{URL: listingURL})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Zero(t, result.LeadsFound)
	assert.Zero(t, result.LeadsSaved)
	assert.NotEmpty(t, result.Error)
	require.NotNil(t, result.Debug)
	assert.Equal(t, 1, result.Debug.HrefCount)
	assert.Equal(t, len("Inga träffar"), result.Debug.MarkdownLength)

	body, err := json.Marshal(result)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"leads":[]`)
	assert.NotContains(t, string(body), "skipped")
}

func TestDiscoverKnownPostingIsSkipped(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedScraped(t, st, postingA, "raw")
	fetcher := newFakeFetcher()

	d := NewDiscoverer(testConfig(), fetcher, st, nil, testLogger())
	result, err := d.Discover(ctx, models.DiscoverRequest{URL: postingA})
	require.NoError(t, err)

	assert.Equal(t, &models.DiscoverResult{
		Success: true,
		Leads:   []models.DiscoveredLeadSummary{},
		Skipped: 1,
	}, result)
	assert.Empty(t, fetcher.calls())

	leads, err := st.ListLeads(ctx)
	require.NoError(t, err)
	assert.Len(t, leads, 1)
}

func TestDiscoverSinglePosting(t *testing.T) {
	st := newTestStore(t)
	fetcher := newFakeFetcher().page(postingA, "Vi söker en glad medarbetare.", "")

	d := NewDiscoverer(testConfig(), fetcher, st, nil, testLogger())
	result, err := d.Discover(context.Background(), models.DiscoverRequest{URL: postingA})
	require.NoError(t, err)

	assert.Equal(t, 1, result.LeadsSaved)
	assert.Equal(t, []models.DiscoveredLeadSummary{{Company: UnknownCompany, JobURL: postingA}}, result.Leads)
}

func TestDiscoverSinglePostingFetchFailureIsReturned(t *testing.T) {
	st := newTestStore(t)
	fetcher := newFakeFetcher().fail(postingA, utils.NewScrapingError("blocked"))

	d := NewDiscoverer(testConfig(), fetcher, st, nil, testLogger())
	_, err := d.Discover(context.Background(), models.DiscoverRequest{URL: postingA})
	require.Error(t, err)

	customErr, ok := utils.AsCustomError(err)
	require.True(t, ok)
	assert.Equal(t, 422, customErr.Code)
}

func TestDiscoverUsesDefaultURL(t *testing.T) {
	st := newTestStore(t)
	cfg := testConfig()
	fetcher := newFakeFetcher().page(cfg.Hunter.DefaultURL, "", "")

	d := NewDiscoverer(cfg, fetcher, st, nil, testLogger())
	result, err := d.Discover(context.Background(), models.DiscoverRequest{})
	require.NoError(t, err)

	assert.Equal(t, []string{cfg.Hunter.DefaultURL}, fetcher.calls())
	assert.NotEmpty(t, result.Error)
}

func TestDiscoverBatch(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedScraped(t, st, postingC, "raw")

	fetcher := newFakeFetcher().
		page(postingA, "Company: Acme", "").
		fail(postingB, errors.New("timeout"))

	d := NewDiscoverer(testConfig(), fetcher, st, nil, testLogger())
	result, err := d.Discover(ctx, models.DiscoverRequest{URLs: []string{postingA, postingB, postingC}})
	require.NoError(t, err)

	assert.Equal(t, 1, result.LeadsFound)
	assert.Equal(t, 1, result.LeadsSaved)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, []string{postingA, postingB}, fetcher.calls())
}

func TestDiscoverPausesBetweenFetches(t *testing.T) {
	const delay = 150 * time.Millisecond
	postingD := "https://arbetsformedlingen.se/platsbanken/annonser/1004"
	postingE := "https://arbetsformedlingen.se/platsbanken/annonser/1005"

	ctx := context.Background()
	st := newTestStore(t)
	seedScraped(t, st, postingB, "raw")

	fetcher := newFakeFetcher().
		page(postingA, "Company: Acme", "").
		page(postingC, "Company: Beta", "").
		fail(postingD, errors.New("upstream 502")).
		page(postingE, "Company: Gamma", "")
	fetcher.latency = 20 * time.Millisecond

	cfg := testConfig()
	cfg.Hunter.RequestDelay = delay

	d := NewDiscoverer(cfg, fetcher, st, nil, testLogger())
	result, err := d.Discover(ctx, models.DiscoverRequest{URLs: []string{postingA, postingB, postingC, postingD, postingE}})
	returned := time.Now()
	require.NoError(t, err)
	assert.Equal(t, 3, result.LeadsSaved)
	assert.Equal(t, 1, result.Skipped)

	spans := fetcher.timeline()
	require.Len(t, spans, 4)
	require.Equal(t, []string{postingA, postingC, postingD, postingE}, fetcher.calls())

	// the skipped posting between A and C adds no second pause
	gapAC := spans[1].start.Sub(spans[0].end)
	assert.GreaterOrEqual(t, gapAC, delay)
	assert.Less(t, gapAC, 2*delay)

	assert.GreaterOrEqual(t, spans[2].start.Sub(spans[1].end), delay)

	// a failed fetch is not followed by a pause
	assert.Less(t, spans[3].start.Sub(spans[2].end), 100*time.Millisecond)

	// nor is the last item
	assert.Less(t, returned.Sub(spans[3].end), 100*time.Millisecond)
}

func TestDiscoverWithNothingConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.Hunter.DefaultURL = ""
	fetcher := newFakeFetcher()

	d := NewDiscoverer(cfg, fetcher, newTestStore(t), nil, testLogger())
	result, err := d.Discover(context.Background(), models.DiscoverRequest{})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Zero(t, result.LeadsFound)
	assert.Empty(t, fetcher.calls())
}

func TestDiscoverWhileLocked(t *testing.T) {
	fetcher := newFakeFetcher()

	d := NewDiscoverer(testConfig(), fetcher, newTestStore(t), heldLocker{}, testLogger())
	result, err := d.Discover(context.Background(), models.DiscoverRequest{URL: postingA})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "discovery already running for "+postingA)
	assert.Empty(t, fetcher.calls())
}

func TestDiscoverWithoutFetcherCredentials(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	fetcher := &scraper.Unavailable{Err: utils.NewConfigurationError("FIRECRAWL_API_KEY is not set")}

	d := NewDiscoverer(testConfig(), fetcher, st, nil, testLogger())
	_, err := d.Discover(ctx, models.DiscoverRequest{URLs: []string{postingA}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FIRECRAWL_API_KEY")

	leads, err := st.ListLeads(ctx)
	require.NoError(t, err)
	assert.Empty(t, leads)
}

func TestDiscoverStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := newFakeFetcher().page(listingURL, "", listingHTML)
	d := NewDiscoverer(testConfig(), fetcher, newTestStore(t), nil, testLogger())

	_, err := d.Discover(ctx, models.DiscoverRequest{URL: listingURL})
	assert.ErrorIs(t, err, context.Canceled)
}
