package hunter

import (
	"regexp"
	"strings"
)

// Fallbacks used when a scraped ad has no recognizable label
const (
	UnknownCompany  = "Unknown Company"
	DefaultJobTitle = "Administrative Role"
)

var (
	companyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)företag[:\s]+([^\n]+)`),
		regexp.MustCompile(`(?i)company[:\s]+([^\n]+)`),
		regexp.MustCompile(`(?i)arbetsgivare[:\s]+([^\n]+)`),
	}

	titlePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)titel[:\s]+([^\n]+)`),
		regexp.MustCompile(`(?i)position[:\s]+([^\n]+)`),
		regexp.MustCompile(`(?i)jobb[:\s]+([^\n]+)`),
		// markdown H1
		regexp.MustCompile(`(?m)^#\s+(.+)$`),
	}
)

// ExtractFields guesses the company and job title of a freshly scraped ad.
// It never returns empty strings.
func ExtractFields(markdown string) (company, jobTitle string) {
	return firstCapture(markdown, companyPatterns, UnknownCompany),
		firstCapture(markdown, titlePatterns, DefaultJobTitle)
}

func firstCapture(text string, patterns []*regexp.Regexp, fallback string) string {
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if v := strings.TrimSpace(m[1]); v != "" {
			return v
		}
	}
	return fallback
}
