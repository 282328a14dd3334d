package models

import "time"

// DiscoveredLeadSummary is the minimal per-lead entry returned from a discovery run
type DiscoveredLeadSummary struct {
	Company string `json:"company"`
	JobURL  string `json:"jobUrl"`
}

// DiscoverDebug carries diagnostics when a listing page yielded no posting URLs
type DiscoverDebug struct {
	HTMLLength     int    `json:"htmlLength"`
	MarkdownLength int    `json:"markdownLength"`
	HTMLSample     string `json:"htmlSample"`
	HrefCount      int    `json:"hrefCount"`
}

// DiscoverResult is the summary of one discovery run
type DiscoverResult struct {
	Success    bool                    `json:"success"`
	LeadsFound int                     `json:"leadsFound"`
	LeadsSaved int                     `json:"leadsSaved"`
	Leads      []DiscoveredLeadSummary `json:"leads"`
	Skipped    int                     `json:"skipped,omitempty"`
	Error      string                  `json:"error,omitempty"`
	Debug      *DiscoverDebug          `json:"debug,omitempty"`
}

// AnalysisItemResult is the outcome for one lead in an analysis batch
type AnalysisItemResult struct {
	LeadID   string `json:"leadId"`
	Success  bool   `json:"success"`
	Company  string `json:"company,omitempty"`
	JobTitle string `json:"jobTitle,omitempty"`
	Error    string `json:"error,omitempty"`
}

// AnalyzeResult is the summary of one analysis batch
type AnalyzeResult struct {
	Success  bool                 `json:"success"`
	Analyzed int                  `json:"analyzed"`
	Results  []AnalysisItemResult `json:"results"`
}

// BackfillResult is the summary of one backfill pass
type BackfillResult struct {
	Success bool `json:"success"`
	Checked int  `json:"checked"`
	Updated int  `json:"updated"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Uptime    time.Duration     `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// IDResponse is returned by create operations
type IDResponse struct {
	ID string `json:"id"`
}
