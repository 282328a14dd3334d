package models

import "time"

// LeadStatus is the sales lifecycle tag on a lead
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusQualified LeadStatus = "qualified"
	LeadStatusClosed    LeadStatus = "closed"
)

// Valid reports whether s is one of the known lead statuses
func (s LeadStatus) Valid() bool {
	switch s {
	case LeadStatusNew, LeadStatusContacted, LeadStatusQualified, LeadStatusClosed:
		return true
	}
	return false
}

// LeadSource tells where a lead came from
type LeadSource string

const (
	LeadSourceInbound LeadSource = "inbound"
	LeadSourceScraped LeadSource = "scraped"
)

// AnalysisStatus is the enrichment lifecycle tag on a scraped lead.
// A nil *AnalysisStatus on a lead means the record predates the field.
type AnalysisStatus string

const (
	AnalysisPending AnalysisStatus = "pending"
	AnalysisScored  AnalysisStatus = "scored"
	AnalysisFailed  AnalysisStatus = "failed"
)

// Placeholder values written on freshly scraped leads
const (
	ScrapedLeadEmail   = "pending@inventing.se"
	ScrapedLeadMessage = "Scraped job ad (analysis pending)."
	SystemAuthor       = "System"
	AdminAuthor        = "Admin"
)

// Lead represents a sales/outreach opportunity, inbound or discovered by scraping.
// Optional fields are pointers so that "absent" survives a round trip through the store.
type Lead struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Company   *string    `json:"company,omitempty"`
	Phone     *string    `json:"phone,omitempty"`
	Message   string     `json:"message"`
	Status    LeadStatus `json:"status"`
	Notes     *string    `json:"notes,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`

	// Discovery fields, only set on scraped leads
	Source                *LeadSource     `json:"source,omitempty"`
	JobURL                *string         `json:"jobUrl,omitempty"`
	AnalysisStatus        *AnalysisStatus `json:"analysisStatus,omitempty"`
	AnalysisModel         *string         `json:"analysisModel,omitempty"`
	AnalysisError         *string         `json:"analysisError,omitempty"`
	ExcelHellScore        *int            `json:"excelHellScore,omitempty"`
	GeneratedPitch        *string         `json:"generatedPitch,omitempty"`
	RawJobDescription     *string         `json:"rawJobDescription,omitempty"`
	CleanedJobDescription *string         `json:"cleanedJobDescription,omitempty"`
	JobTitle              *string         `json:"jobTitle,omitempty"`
	ContactName           *string         `json:"contactName,omitempty"`
	ContactEmail          *string         `json:"contactEmail,omitempty"`
	ContactPhone          *string         `json:"contactPhone,omitempty"`
}

// ScrapedLeadInput is what the discovery run hands to the store for persistence
type ScrapedLeadInput struct {
	Name              string
	Email             string
	Company           string
	Phone             string
	Message           string
	JobURL            string
	ExcelHellScore    *int
	GeneratedPitch    string
	RawJobDescription string
}

// LeadField names an optional lead column that a patch can clear
type LeadField string

const (
	FieldCompany               LeadField = "company"
	FieldJobTitle              LeadField = "job_title"
	FieldContactName           LeadField = "contact_name"
	FieldContactEmail          LeadField = "contact_email"
	FieldContactPhone          LeadField = "contact_phone"
	FieldCleanedJobDescription LeadField = "cleaned_job_description"
)

// LeadPatch is a partial update. Nil fields are left untouched; Clear and
// ClearAnalysisError remove a value instead of setting one.
type LeadPatch struct {
	Name                  *string
	Email                 *string
	Company               *string
	Phone                 *string
	Message               *string
	Status                *LeadStatus
	Notes                 *string
	AnalysisStatus        *AnalysisStatus
	AnalysisModel         *string
	AnalysisError         *string
	ClearAnalysisError    bool
	JobTitle              *string
	ContactName           *string
	ContactEmail          *string
	ContactPhone          *string
	CleanedJobDescription *string
	// Clear lists fields to store as absent. A value set in the same patch wins.
	Clear []LeadField
}

// IsEmpty reports whether the patch would change nothing
func (p LeadPatch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Company == nil && p.Phone == nil &&
		p.Message == nil && p.Status == nil && p.Notes == nil &&
		p.AnalysisStatus == nil && p.AnalysisModel == nil && p.AnalysisError == nil &&
		!p.ClearAnalysisError && p.JobTitle == nil && p.ContactName == nil &&
		p.ContactEmail == nil && p.ContactPhone == nil && p.CleanedJobDescription == nil &&
		len(p.Clear) == 0
}

// Comment is a note attached to a lead
type Comment struct {
	ID        string    `json:"id"`
	LeadID    string    `json:"leadId"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

// LeadExtraction is the structured output of the AI extraction pass.
// Empty string means "not found".
type LeadExtraction struct {
	Company               string `json:"company"`
	JobTitle              string `json:"jobTitle"`
	ContactName           string `json:"contactName"`
	ContactEmail          string `json:"contactEmail"`
	ContactPhone          string `json:"contactPhone"`
	CleanedJobDescription string `json:"cleanedJobDescription"`
}

// ScrapedPage is the rendered content of one fetched URL
type ScrapedPage struct {
	URL      string `json:"url"`
	Markdown string `json:"markdown"`
	HTML     string `json:"html"`
}

// StringPtr returns a pointer to s, or nil when s is empty
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StringValue dereferences p, returning "" for nil
func StringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
