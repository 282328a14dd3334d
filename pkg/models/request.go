package models

// DiscoverRequest is the payload for a discovery run.
// With neither URL nor URLs set the configured default URL is used.
type DiscoverRequest struct {
	URL   string   `json:"url,omitempty" validate:"omitempty,http_url"`
	URLs  []string `json:"urls,omitempty" validate:"omitempty,max=200,dive,http_url"`
	Async bool     `json:"async,omitempty"`
}

// AnalyzeRequest is the payload for the AI extraction pass
type AnalyzeRequest struct {
	Limit *int `json:"limit,omitempty" validate:"omitempty,min=1,max=500"`
	Async bool `json:"async,omitempty"`
}

// BackfillRequest is the payload for the analysis-status backfill
type BackfillRequest struct {
	Limit *int `json:"limit,omitempty" validate:"omitempty,min=1,max=10000"`
	Async bool `json:"async,omitempty"`
}

// AddLeadRequest creates an inbound lead
type AddLeadRequest struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Company string `json:"company,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Message string `json:"message" validate:"required"`
	Notes   string `json:"notes,omitempty"`
}

// UpdateLeadRequest is the generic admin update; omitted fields are untouched
type UpdateLeadRequest struct {
	Name    *string `json:"name,omitempty"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Company *string `json:"company,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Message *string `json:"message,omitempty"`
	Status  *string `json:"status,omitempty" validate:"omitempty,lead_status"`
	Notes   *string `json:"notes,omitempty"`
}

// AddCommentRequest adds a comment to a lead
type AddCommentRequest struct {
	Content string `json:"content" validate:"required"`
	Author  string `json:"author,omitempty"`
}

// UpdateCommentRequest replaces a comment's content
type UpdateCommentRequest struct {
	Content string `json:"content" validate:"required"`
}
