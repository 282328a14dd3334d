package hunter

import (
	"regexp"
	"strings"

	"lead-hunter/pkg/models"
)

const htmlSampleChars = 1000

// ExtractionSource tells which rendition of a listing page produced the URLs
type ExtractionSource string

const (
	SourceHTML     ExtractionSource = "html"
	SourceMarkdown ExtractionSource = "markdown"
	SourceNone     ExtractionSource = ""
)

var hrefPattern = regexp.MustCompile(`(?i)href=["']([^"']+)["']`)

// urlMatcher returns raw posting-URL candidates found in text, in document order
type urlMatcher struct {
	name  string
	match func(text string) []string
}

// captureMatcher returns the first capture group of every match, or the whole
// match when the pattern has no group
func captureMatcher(name string, re *regexp.Regexp) urlMatcher {
	return urlMatcher{
		name: name,
		match: func(text string) []string {
			var out []string
			for _, m := range re.FindAllStringSubmatch(text, -1) {
				if len(m) > 1 && m[1] != "" {
					out = append(out, m[1])
				} else {
					out = append(out, m[0])
				}
			}
			return out
		},
	}
}

// Extractor pulls posting URLs out of a listing page
type Extractor struct {
	rules    SiteRules
	matchers []urlMatcher
}

// NewExtractor builds the ordered matcher list for rules. Earlier matchers win
// when two of them yield the same normalized URL.
func NewExtractor(rules SiteRules) *Extractor {
	postings := regexp.QuoteMeta(rules.PostingsPath)
	postingsNoSlash := regexp.QuoteMeta(strings.TrimSuffix(rules.PostingsPath, "/"))
	segment := regexp.QuoteMeta(rules.postingSegment())
	host := regexp.QuoteMeta(rules.hostname())

	return &Extractor{
		rules: rules,
		matchers: []urlMatcher{
			captureMatcher("posting_href",
				regexp.MustCompile(`(?i)href=["']([^"']*`+postings+`[^"']+)["']`)),
			captureMatcher("absolute_href",
				regexp.MustCompile(`(?i)href=["'](https?://[^"']*`+host+`[^"']*`+postingsNoSlash+`[^"']+)["']`)),
			captureMatcher("data_attribute",
				regexp.MustCompile(`(?i)(?:href|data-url|data-href)=["']([^"']*`+segment+`[^"']+)["']`)),
			captureMatcher("bare_id",
				regexp.MustCompile(`(?i)`+segment+`([a-zA-Z0-9_-]+)`)),
		},
	}
}

// ExtractionResult is what a listing page yielded
type ExtractionResult struct {
	URLs        []string
	Source      ExtractionSource
	Diagnostics models.DiscoverDebug
}

// Extract runs the HTML pass and, when it finds nothing, the markdown pass
func (e *Extractor) Extract(page *models.ScrapedPage) ExtractionResult {
	result := ExtractionResult{
		Diagnostics: models.DiscoverDebug{
			HTMLLength:     len(page.HTML),
			MarkdownLength: len(page.Markdown),
			HTMLSample:     firstChars(page.HTML, htmlSampleChars),
			HrefCount:      len(hrefPattern.FindAllStringIndex(page.HTML, -1)),
		},
	}

	if urls := e.ExtractPostingURLs(page.HTML); len(urls) > 0 {
		result.URLs, result.Source = urls, SourceHTML
		return result
	}
	if urls := e.ExtractPostingURLs(page.Markdown); len(urls) > 0 {
		result.URLs, result.Source = urls, SourceMarkdown
		return result
	}
	return result
}

// ExtractPostingURLs returns the distinct absolute posting URLs found in text,
// first occurrence first
func (e *Extractor) ExtractPostingURLs(text string) []string {
	seen := make(map[string]struct{})
	var urls []string

	for _, m := range e.matchers {
		for _, candidate := range m.match(text) {
			u, ok := e.normalize(candidate)
			if !ok {
				continue
			}
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			urls = append(urls, u)
		}
	}
	return urls
}

// normalize turns a candidate into an absolute posting URL without query or fragment
func (e *Extractor) normalize(candidate string) (string, bool) {
	listing := e.rules.listingFragment()
	if strings.Contains(candidate, listing) {
		return "", false
	}

	u := candidate
	switch {
	case strings.HasPrefix(u, "/"):
		u = e.rules.Host + u
	case !strings.HasPrefix(u, "http"):
		if strings.Contains(u, strings.TrimPrefix(e.rules.postingSegment(), "/")) {
			u = e.rules.Host + e.rules.postingsParent() + u
		} else {
			u = e.rules.Host + e.rules.PostingsPath + u
		}
	}

	if i := strings.IndexByte(u, '?'); i >= 0 {
		u = u[:i]
	}
	if i := strings.IndexByte(u, '#'); i >= 0 {
		u = u[:i]
	}

	if u == "" || !strings.Contains(u, e.rules.postingSegment()) || strings.Contains(u, listing) {
		return "", false
	}
	return u, true
}

func firstChars(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
