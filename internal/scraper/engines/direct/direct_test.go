package direct

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lead-hunter/internal/config"
	"lead-hunter/internal/logging"
)

const listingHTML = `<html><head><script>var x = 1;</script></head><body>
<h1>Lediga jobb</h1>
<a href="/platsbanken/annonser/12345" class="card">Ekonomiassistent</a>
</body></html>`

func TestFetchRendersMarkdownAndKeepsRawHTML(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(listingHTML))
	}))
	defer srv.Close()

	cfg := config.Default()
	f := NewDirectFetcher(cfg, logging.NewDiscardLogger())
	defer f.Cleanup()

	page, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, cfg.Scraper.UserAgent, gotUA)
	assert.Equal(t, listingHTML, page.HTML)
	assert.Contains(t, page.Markdown, "# Lediga jobb")
	assert.Contains(t, page.Markdown, "/platsbanken/annonser/12345")
	assert.False(t, strings.Contains(page.Markdown, "var x"))
}

func TestFetchRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewDirectFetcher(config.Default(), logging.NewDiscardLogger()).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
