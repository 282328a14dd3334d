package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"lead-hunter/internal/config"
	"lead-hunter/internal/logging"
	"lead-hunter/pkg/models"
	"lead-hunter/pkg/utils"
)

// ExtractionToolName is the single tool the model is forced to call
const ExtractionToolName = "record_lead_extraction"

const extractionSystemPrompt = `You extract structured data from Swedish job ads.

Return JSON with:
{
  "company": "<company or employer name if present, else empty string>",
  "jobTitle": "<job title if present, else empty string>",
  "contactName": "<named contact person if present, else empty string>",
  "contactEmail": "<email address if present, else empty string>",
  "contactPhone": "<phone number if present, else empty string>",
  "cleanedJobDescription": "<job ad cleaned of cookie banners, navigation, or boilerplate>"
}

Rules:
- Use only the text provided.
- If unsure, return empty string for that field.
- Prefer real contact details from the ad over placeholders.
- cleanedJobDescription should remove cookie notices, navigation, and repeated footer text.
- Keep cleanedJobDescription in Swedish if the source is Swedish.`

var extractionFields = []string{
	"company",
	"jobTitle",
	"contactName",
	"contactEmail",
	"contactPhone",
	"cleanedJobDescription",
}

// ClaudeProvider extracts lead fields with Anthropic's Claude
type ClaudeProvider struct {
	client anthropic.Client
	config *config.Config
	logger logging.Logger
}

// NewClaudeProvider creates a new Claude provider instance
func NewClaudeProvider(cfg *config.Config, logger logging.Logger, opts ...option.RequestOption) *ClaudeProvider {
	clientOpts := append([]option.RequestOption{
		option.WithAPIKey(cfg.LLM.APIKey),
		option.WithRequestTimeout(cfg.LLM.Timeout),
	}, opts...)

	return &ClaudeProvider{
		client: anthropic.NewClient(clientOpts...),
		config: cfg,
		logger: logger,
	}
}

// ExtractLeadDetails forces a single tool call whose input schema is the six-field lead schema
func (cp *ClaudeProvider) ExtractLeadDetails(ctx context.Context, jobURL, description string) (*models.LeadExtraction, error) {
	startTime := time.Now()

	if max := cp.config.LLM.MaxInputChars; max > 0 && utf8.RuneCountInString(description) > max {
		description = utils.TruncateRunes(description, max)
		cp.logger.Debug("Job description truncated to fit input budget", map[string]interface{}{
			"url":       jobURL,
			"max_chars": max,
		})
	}

	response, err := cp.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(cp.config.LLM.Model),
		MaxTokens:   int64(cp.config.LLM.MaxTokens),
		Temperature: anthropic.Float(cp.config.LLM.Temperature),
		System:      []anthropic.TextBlockParam{{Text: extractionSystemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(BuildUserPrompt(jobURL, description))),
		},
		Tools:      []anthropic.ToolUnionParam{{OfTool: extractionTool()}},
		ToolChoice: anthropic.ToolChoiceUnionParam{OfTool: &anthropic.ToolChoiceToolParam{Name: ExtractionToolName}},
	})
	if err != nil {
		return nil, utils.NewLLMError(fmt.Sprintf("failed to call Claude API: %v", err))
	}

	var input json.RawMessage
	for _, block := range response.Content {
		if block.Type == "tool_use" && block.Name == ExtractionToolName {
			input = block.Input
			break
		}
	}
	if len(bytes.TrimSpace(input)) == 0 || string(bytes.TrimSpace(input)) == "null" {
		return nil, utils.NewLLMError("Claude returned empty response")
	}

	extraction, err := ParseExtraction(input)
	if err != nil {
		return nil, utils.NewLLMError(err.Error())
	}

	cp.logger.Info("Lead extraction completed", map[string]interface{}{
		"url":             jobURL,
		"company":         extraction.Company,
		"job_title":       extraction.JobTitle,
		"processing_time": time.Since(startTime).String(),
	})
	return extraction, nil
}

// ModelName returns the configured model identifier
func (cp *ClaudeProvider) ModelName() string {
	return cp.config.LLM.Model
}

// GetProviderName returns the name of the LLM provider
func (cp *ClaudeProvider) GetProviderName() string {
	return "claude"
}

// BuildUserPrompt embeds the job URL and the raw ad text
func BuildUserPrompt(jobURL, description string) string {
	return fmt.Sprintf(`Job URL: %s

Job Description:
%s

Extract the fields and return JSON only.`, jobURL, description)
}

func extractionTool() *anthropic.ToolParam {
	properties := make(map[string]any, len(extractionFields))
	for _, field := range extractionFields {
		properties[field] = map[string]any{"type": "string"}
	}

	return &anthropic.ToolParam{
		Name:        ExtractionToolName,
		Description: anthropic.String("Record the structured lead fields extracted from one job ad. Use an empty string for any field that is not present."),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties:  properties,
			Required:    extractionFields,
			ExtraFields: map[string]any{"additionalProperties": false},
		},
	}
}

// strictExtraction uses pointers so that a missing key is distinguishable from ""
type strictExtraction struct {
	Company               *string `json:"company"`
	JobTitle              *string `json:"jobTitle"`
	ContactName           *string `json:"contactName"`
	ContactEmail          *string `json:"contactEmail"`
	ContactPhone          *string `json:"contactPhone"`
	CleanedJobDescription *string `json:"cleanedJobDescription"`
}

// ParseExtraction decodes a tool input, rejecting unknown and missing keys
func ParseExtraction(raw []byte) (*models.LeadExtraction, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var s strictExtraction
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("invalid extraction payload: %w", err)
	}

	var missing []string
	check := func(name string, v *string) string {
		if v == nil {
			missing = append(missing, name)
			return ""
		}
		return *v
	}

	out := &models.LeadExtraction{
		Company:               check("company", s.Company),
		JobTitle:              check("jobTitle", s.JobTitle),
		ContactName:           check("contactName", s.ContactName),
		ContactEmail:          check("contactEmail", s.ContactEmail),
		ContactPhone:          check("contactPhone", s.ContactPhone),
		CleanedJobDescription: check("cleanedJobDescription", s.CleanedJobDescription),
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("extraction payload missing fields: %s", strings.Join(missing, ", "))
	}
	return out, nil
}
