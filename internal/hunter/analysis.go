package hunter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lead-hunter/internal/config"
	"lead-hunter/internal/llm"
	"lead-hunter/internal/logging"
	"lead-hunter/internal/store"
	"lead-hunter/pkg/models"
)

// MissingDescriptionMessage is recorded as the analysis error of a lead
// that has no raw job description to send to the model.
const MissingDescriptionMessage = "Missing raw job description"

var errMissingDescription = errors.New(MissingDescriptionMessage)

// ExtractorSource hands out the active extractor, or the configuration error
// that prevented one. *llm.Manager satisfies it.
type ExtractorSource interface {
	Provider() (llm.LeadExtractor, error)
}

// Analyzer runs the AI extraction pass over pending scraped leads
type Analyzer struct {
	config *config.Config
	store  store.LeadStore
	source ExtractorSource
	logger logging.Logger
}

// NewAnalyzer creates a new analyzer
func NewAnalyzer(cfg *config.Config, st store.LeadStore, source ExtractorSource, logger logging.Logger) *Analyzer {
	return &Analyzer{
		config: cfg,
		store:  st,
		source: source,
		logger: logger.WithField("component", "analyzer"),
	}
}

// AnalyzeScrapedLeads enriches up to limit pending scraped leads, oldest first.
// Each lead succeeds or fails on its own; only a missing provider, a store
// listing failure or cancellation abort the batch.
func (a *Analyzer) AnalyzeScrapedLeads(ctx context.Context, limit int) (*models.AnalyzeResult, error) {
	extractor, err := a.source.Provider()
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = a.config.Hunter.AnalyzeLimit
	}

	leads, err := a.store.ListPendingScrapedLeads(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending scraped leads: %w", err)
	}

	startTime := time.Now()
	model := extractor.ModelName()
	results := make([]models.AnalysisItemResult, 0, len(leads))

	for _, lead := range leads {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		item, err := a.analyzeLead(ctx, extractor, model, lead)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			a.markFailed(ctx, lead.ID, model, err.Error())
			item = models.AnalysisItemResult{LeadID: lead.ID, Error: err.Error()}
		}
		results = append(results, item)
	}

	a.logger.Info("Analysis batch completed", map[string]interface{}{
		"analyzed":        len(results),
		"model":           model,
		"processing_time": time.Since(startTime).String(),
	})

	return &models.AnalyzeResult{
		Success:  true,
		Analyzed: len(results),
		Results:  results,
	}, nil
}

// analyzeLead returns an error only for failures that should be written back to the lead
func (a *Analyzer) analyzeLead(ctx context.Context, extractor llm.LeadExtractor, model string, lead *models.Lead) (models.AnalysisItemResult, error) {
	description := models.StringValue(lead.RawJobDescription)
	if description == "" {
		return models.AnalysisItemResult{}, errMissingDescription
	}

	extracted, err := extractor.ExtractLeadDetails(ctx, models.StringValue(lead.JobURL), description)
	if err != nil {
		return models.AnalysisItemResult{}, err
	}

	company := strings.TrimSpace(extracted.Company)
	jobTitle := strings.TrimSpace(extracted.JobTitle)
	contactEmail := strings.TrimSpace(extracted.ContactEmail)

	scored := models.AnalysisScored
	patch := models.LeadPatch{
		AnalysisStatus:     &scored,
		AnalysisModel:      &model,
		ClearAnalysisError: true,
		// name and email are required columns, so they only take non-empty values
		Name:  models.StringPtr(jobTitle),
		Email: models.StringPtr(contactEmail),
	}
	// a blank extracted value removes whatever placeholder or earlier result was stored
	optional := func(field models.LeadField, value string) *string {
		if value == "" {
			patch.Clear = append(patch.Clear, field)
			return nil
		}
		return &value
	}
	patch.Company = optional(models.FieldCompany, company)
	patch.JobTitle = optional(models.FieldJobTitle, jobTitle)
	patch.ContactName = optional(models.FieldContactName, strings.TrimSpace(extracted.ContactName))
	patch.ContactEmail = optional(models.FieldContactEmail, contactEmail)
	patch.ContactPhone = optional(models.FieldContactPhone, strings.TrimSpace(extracted.ContactPhone))
	patch.CleanedJobDescription = optional(models.FieldCleanedJobDescription, strings.TrimSpace(extracted.CleanedJobDescription))

	if err := a.store.PatchLead(ctx, lead.ID, patch); err != nil {
		return models.AnalysisItemResult{}, fmt.Errorf("save analysis: %w", err)
	}

	a.logger.Info("Lead analyzed", map[string]interface{}{
		"lead_id":   lead.ID,
		"company":   company,
		"job_title": jobTitle,
	})

	return models.AnalysisItemResult{
		LeadID:   lead.ID,
		Success:  true,
		Company:  company,
		JobTitle: jobTitle,
	}, nil
}

func (a *Analyzer) markFailed(ctx context.Context, leadID, model, message string) {
	a.logger.Warn("Lead analysis failed", map[string]interface{}{
		"lead_id": leadID,
		"error":   message,
	})

	failed := models.AnalysisFailed
	err := a.store.PatchLead(ctx, leadID, models.LeadPatch{
		AnalysisStatus: &failed,
		AnalysisModel:  &model,
		AnalysisError:  &message,
	})
	if err != nil {
		a.logger.Error("Failed to record analysis failure", map[string]interface{}{
			"lead_id": leadID,
			"error":   err.Error(),
		})
	}
}
