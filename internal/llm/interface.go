package llm

import (
	"context"

	"lead-hunter/pkg/models"
)

// LeadExtractor turns a raw job ad into structured lead fields
type LeadExtractor interface {
	// ExtractLeadDetails asks the model for the six lead fields of one job ad
	ExtractLeadDetails(ctx context.Context, jobURL, description string) (*models.LeadExtraction, error)

	// ModelName returns the model identifier recorded on analysed leads
	ModelName() string

	// GetProviderName returns the name of the LLM provider
	GetProviderName() string
}
