package hunter

import (
	"net/url"
	"path"
	"strings"

	"lead-hunter/internal/config"
)

// SiteRules describes how the job board lays out listing and posting URLs
type SiteRules struct {
	// Host is the scheme and host that relative links are resolved against
	Host string
	// PostingsPath is the path prefix of a single posting, e.g. /platsbanken/annonser/
	PostingsPath string
	// ListingMarker marks a search-results URL, e.g. /annonser?
	ListingMarker string
}

// DefaultSiteRules returns the rules for Platsbanken
func DefaultSiteRules() SiteRules {
	return SiteRules{
		Host:          "https://arbetsformedlingen.se",
		PostingsPath:  "/platsbanken/annonser/",
		ListingMarker: "/annonser?",
	}
}

// SiteRulesFromConfig reads the hunter section, falling back to the defaults per field
func SiteRulesFromConfig(cfg *config.Config) SiteRules {
	rules := DefaultSiteRules()
	if cfg == nil {
		return rules
	}
	if h := strings.TrimRight(cfg.Hunter.SiteHost, "/"); h != "" {
		rules.Host = h
	}
	if p := cfg.Hunter.PostingsPath; p != "" {
		rules.PostingsPath = "/" + strings.Trim(p, "/") + "/"
	}
	if m := cfg.Hunter.ListingMarker; m != "" {
		rules.ListingMarker = m
	}
	return rules
}

// IsListingURL reports whether rawURL is a search-results page rather than a
// single posting. Anything without the marker, malformed input included, is a posting.
func (r SiteRules) IsListingURL(rawURL string) bool {
	return strings.Contains(rawURL, r.ListingMarker)
}

// hostname returns the bare host of r.Host, e.g. arbetsformedlingen.se
func (r SiteRules) hostname() string {
	u, err := url.Parse(r.Host)
	if err != nil || u.Hostname() == "" {
		return strings.TrimPrefix(strings.TrimPrefix(r.Host, "https://"), "http://")
	}
	return u.Hostname()
}

// postingSegment is the last path element of a posting URL with both slashes, e.g. /annonser/
func (r SiteRules) postingSegment() string {
	return "/" + path.Base(strings.TrimSuffix(r.PostingsPath, "/")) + "/"
}

// postingsParent is the path above the posting segment, e.g. /platsbanken/
func (r SiteRules) postingsParent() string {
	parent := path.Dir(strings.TrimSuffix(r.PostingsPath, "/"))
	if parent == "/" || parent == "." {
		return "/"
	}
	return parent + "/"
}

// listingFragment is the marker without its leading slash, e.g. annonser?
func (r SiteRules) listingFragment() string {
	return strings.TrimPrefix(r.ListingMarker, "/")
}
