package hunter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lead-hunter/internal/config"
	"lead-hunter/pkg/models"
)

func TestIsListingURL(t *testing.T) {
	rules := DefaultSiteRules()

	tests := []struct {
		url  string
		want bool
	}{
		{"https://arbetsformedlingen.se/platsbanken/annonser?q=excel&l=3:PVZL_BQT_XtL", true},
		{"https://arbetsformedlingen.se/platsbanken/annonser?page=2", true},
		{"https://arbetsformedlingen.se/platsbanken/annonser/29384756", false},
		{"https://arbetsformedlingen.se/platsbanken/", false},
		{"::not a url::", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, rules.IsListingURL(tt.url), tt.url)
	}
}

func TestSiteRulesFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Hunter.SiteHost = "https://jobs.example.se/"
	cfg.Hunter.PostingsPath = "jobb/ads"
	cfg.Hunter.ListingMarker = "/ads?"

	rules := SiteRulesFromConfig(cfg)
	assert.Equal(t, "https://jobs.example.se", rules.Host)
	assert.Equal(t, "/jobb/ads/", rules.PostingsPath)
	assert.Equal(t, "/ads/", rules.postingSegment())
	assert.Equal(t, "/jobb/", rules.postingsParent())
	assert.Equal(t, "jobs.example.se", rules.hostname())

	assert.Equal(t, DefaultSiteRules(), SiteRulesFromConfig(nil))
}

func TestExtractCollapsesVariantsOfOnePosting(t *testing.T) {
	html := `
		<a href="/platsbanken/annonser/29384756">Ekonomiassistent</a>
		<a href="https://arbetsformedlingen.se/platsbanken/annonser/29384756?ref=list#top">Ekonomiassistent</a>
		<p>/annonser/29384756</p>`

	urls := NewExtractor(DefaultSiteRules()).ExtractPostingURLs(html)
	assert.Equal(t, []string{"https://arbetsformedlingen.se/platsbanken/annonser/29384756"}, urls)
}

func TestExtractPostingURLsKeepsFirstSeenOrder(t *testing.T) {
	html := `
		<a href="/platsbanken/annonser/2">B</a>
		<a href="/platsbanken/annonser?q=excel">Sök</a>
		<a href="https://arbetsformedlingen.se/platsbanken/annonser?q=excel&page=2">Nästa</a>
		<div data-url="/platsbanken/annonser/3"></div>
		<a href="/platsbanken/annonser/1">A</a>
		<a href="/platsbanken/annonser/2">B igen</a>`

	urls := NewExtractor(DefaultSiteRules()).ExtractPostingURLs(html)
	assert.Equal(t, []string{
		"https://arbetsformedlingen.se/platsbanken/annonser/2",
		"https://arbetsformedlingen.se/platsbanken/annonser/1",
		"https://arbetsformedlingen.se/platsbanken/annonser/3",
	}, urls)

	seen := make(map[string]bool)
	for _, u := range urls {
		assert.False(t, seen[u], "duplicate %s", u)
		seen[u] = true
		assert.NotContains(t, u, "annonser?")
	}
}

func TestNormalize(t *testing.T) {
	e := NewExtractor(DefaultSiteRules())

	tests := []struct {
		candidate string
		want      string
		ok        bool
	}{
		{"/platsbanken/annonser/1", "https://arbetsformedlingen.se/platsbanken/annonser/1", true},
		{"annonser/2", "https://arbetsformedlingen.se/platsbanken/annonser/2", true},
		{"3", "https://arbetsformedlingen.se/platsbanken/annonser/3", true},
		{"https://arbetsformedlingen.se/platsbanken/annonser/4?x=1#y", "https://arbetsformedlingen.se/platsbanken/annonser/4", true},
		{"/platsbanken/annonser?q=excel", "", false},
		{"/platsbanken/sok", "", false},
	}

	for _, tt := range tests {
		got, ok := e.normalize(tt.candidate)
		assert.Equal(t, tt.ok, ok, tt.candidate)
		assert.Equal(t, tt.want, got, tt.candidate)
	}
}

func TestExtractFallsBackToMarkdown(t *testing.T) {
	page := &models.ScrapedPage{
		HTML:     `<div id="app"></div>`,
		Markdown: "- [Lagerarbetare](https://arbetsformedlingen.se/platsbanken/annonser/999)\n- [Nästa sida](https://arbetsformedlingen.se/platsbanken/annonser?q=lager&page=2)",
	}

	result := NewExtractor(DefaultSiteRules()).Extract(page)
	assert.Equal(t, SourceMarkdown, result.Source)
	assert.Equal(t, []string{"https://arbetsformedlingen.se/platsbanken/annonser/999"}, result.URLs)
}

func TestExtractReportsDiagnosticsWhenEmpty(t *testing.T) {
	html := `<a href="/om-oss">Om oss</a><a href='/kontakt'>Kontakt</a>` + strings.Repeat("å", 1500)
	page := &models.ScrapedPage{HTML: html, Markdown: "Inga annonser"}

	result := NewExtractor(DefaultSiteRules()).Extract(page)
	require.Empty(t, result.URLs)
	assert.Equal(t, SourceNone, result.Source)
	assert.Equal(t, 2, result.Diagnostics.HrefCount)
	assert.Equal(t, len(html), result.Diagnostics.HTMLLength)
	assert.Equal(t, len("Inga annonser"), result.Diagnostics.MarkdownLength)
	assert.Equal(t, 1000, len([]rune(result.Diagnostics.HTMLSample)))
	assert.True(t, strings.HasPrefix(html, result.Diagnostics.HTMLSample))
}
