package hunter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lead-hunter/pkg/models"
	"lead-hunter/pkg/utils"
)

func TestAnalyzeTrimsAndCopiesFields(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	id := seedScraped(t, st, postingA, "Vi söker en chaufför till Acme.")

	extractor := newFakeExtractor()
	extractor.byURL[postingA] = &models.LeadExtraction{
		Company:               "Acme",
		JobTitle:              "  Driver  ",
		ContactName:           " ",
		ContactEmail:          " eva@acme.se ",
		ContactPhone:          "",
		CleanedJobDescription: "Vi söker en chaufför.",
	}

	a := NewAnalyzer(testConfig(), st, staticSource{extractor: extractor}, testLogger())
	result, err := a.AnalyzeScrapedLeads(ctx, 1)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Analyzed)
	assert.Equal(t, []models.AnalysisItemResult{{LeadID: id, Success: true, Company: "Acme", JobTitle: "Driver"}}, result.Results)

	lead, err := st.GetLead(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Acme", models.StringValue(lead.Company))
	assert.Equal(t, "Driver", models.StringValue(lead.JobTitle))
	assert.Equal(t, "Driver", lead.Name)
	assert.Equal(t, "eva@acme.se", lead.Email)
	assert.Equal(t, "eva@acme.se", models.StringValue(lead.ContactEmail))
	assert.Nil(t, lead.ContactName)
	assert.Nil(t, lead.ContactPhone)
	assert.Nil(t, lead.AnalysisError)
	assert.Equal(t, "claude-test", models.StringValue(lead.AnalysisModel))
	require.NotNil(t, lead.AnalysisStatus)
	assert.Equal(t, models.AnalysisScored, *lead.AnalysisStatus)
}

func TestAnalyzeClearsFieldsLeftBlank(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	id := seedScraped(t, st, postingA, "text")

	// values left behind by an earlier run
	phone, contact := "070-123 45 67", "Eva"
	require.NoError(t, st.PatchLead(ctx, id, models.LeadPatch{ContactPhone: &phone, ContactName: &contact}))

	extractor := newFakeExtractor()
	extractor.byURL[postingA] = &models.LeadExtraction{Company: "   ", ContactName: "\t"}

	a := NewAnalyzer(testConfig(), st, staticSource{extractor: extractor}, testLogger())
	result, err := a.AnalyzeScrapedLeads(ctx, 0)
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.True(t, result.Results[0].Success)

	lead, err := st.GetLead(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, lead.Company)
	assert.Nil(t, lead.JobTitle)
	assert.Nil(t, lead.ContactName)
	assert.Nil(t, lead.ContactPhone)
	assert.Nil(t, lead.ContactEmail)
	assert.Nil(t, lead.CleanedJobDescription)
	assert.Equal(t, DefaultJobTitle, lead.Name)
	assert.Equal(t, models.ScrapedLeadEmail, lead.Email)
	require.NotNil(t, lead.AnalysisStatus)
	assert.Equal(t, models.AnalysisScored, *lead.AnalysisStatus)
}

func TestAnalyzeMissingDescriptionSkipsModel(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	id := seedScraped(t, st, postingA, "")

	extractor := newFakeExtractor()
	a := NewAnalyzer(testConfig(), st, staticSource{extractor: extractor}, testLogger())
	result, err := a.AnalyzeScrapedLeads(ctx, 10)
	require.NoError(t, err)

	assert.Zero(t, extractor.calls)
	require.Len(t, result.Results, 1)
	assert.False(t, result.Results[0].Success)
	assert.Equal(t, "Missing raw job description", result.Results[0].Error)

	lead, err := st.GetLead(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, lead.AnalysisStatus)
	assert.Equal(t, models.AnalysisFailed, *lead.AnalysisStatus)
	assert.Equal(t, "Missing raw job description", models.StringValue(lead.AnalysisError))
}

func TestAnalyzeIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	failing := seedScraped(t, st, postingA, "first")
	ok := seedScraped(t, st, postingB, "second")

	extractor := newFakeExtractor()
	extractor.errs[postingA] = utils.NewLLMError("Claude returned empty response")
	extractor.byURL[postingB] = &models.LeadExtraction{Company: "Beta AB"}

	a := NewAnalyzer(testConfig(), st, staticSource{extractor: extractor}, testLogger())
	result, err := a.AnalyzeScrapedLeads(ctx, 10)
	require.NoError(t, err)

	require.Len(t, result.Results, 2)
	assert.Equal(t, failing, result.Results[0].LeadID)
	assert.False(t, result.Results[0].Success)
	assert.Contains(t, result.Results[0].Error, "Claude returned empty response")
	assert.Equal(t, ok, result.Results[1].LeadID)
	assert.True(t, result.Results[1].Success)

	lead, err := st.GetLead(ctx, failing)
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisFailed, *lead.AnalysisStatus)
	assert.Contains(t, models.StringValue(lead.AnalysisError), "empty response")

	// failed leads are no longer pending
	again, err := a.AnalyzeScrapedLeads(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, again.Analyzed)
}

func TestAnalyzeRespectsLimitAndOrder(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	first := seedScraped(t, st, postingA, "a")
	second := seedScraped(t, st, postingB, "b")
	seedScraped(t, st, postingC, "c")

	a := NewAnalyzer(testConfig(), st, staticSource{extractor: newFakeExtractor()}, testLogger())
	result, err := a.AnalyzeScrapedLeads(ctx, 2)
	require.NoError(t, err)

	require.Len(t, result.Results, 2)
	assert.Equal(t, first, result.Results[0].LeadID)
	assert.Equal(t, second, result.Results[1].LeadID)
}

func TestAnalyzeWithoutProvider(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	id := seedScraped(t, st, postingA, "text")

	source := staticSource{err: utils.NewConfigurationError("LLM_API_KEY (or ANTHROPIC_API_KEY) is not set")}
	a := NewAnalyzer(testConfig(), st, source, testLogger())

	_, err := a.AnalyzeScrapedLeads(ctx, 10)
	require.Error(t, err)

	lead, err := st.GetLead(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisPending, *lead.AnalysisStatus)
}

func TestAnalyzeStopsOnCancellation(t *testing.T) {
	st := newTestStore(t)
	seedScraped(t, st, postingA, "text")

	ctx, cancel := context.WithCancel(context.Background())
	extractor := newFakeExtractor()
	extractor.errs[postingA] = errors.New("request aborted")
	cancelling := cancelOnCall{fakeExtractor: extractor, cancel: cancel}

	a := NewAnalyzer(testConfig(), st, staticSource{extractor: cancelling}, testLogger())
	_, err := a.AnalyzeScrapedLeads(ctx, 10)
	assert.ErrorIs(t, err, context.Canceled)

	lead, err := st.GetLeadByJobURL(context.Background(), postingA)
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisPending, *lead.AnalysisStatus)
}

// cancelOnCall cancels the run from inside the model call
type cancelOnCall struct {
	*fakeExtractor
	cancel context.CancelFunc
}

func (c cancelOnCall) ExtractLeadDetails(ctx context.Context, jobURL, description string) (*models.LeadExtraction, error) {
	c.cancel()
	return c.fakeExtractor.ExtractLeadDetails(ctx, jobURL, description)
}

func TestBackfill(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	scraped := models.LeadSourceScraped
	legacyURL := "https://arbetsformedlingen.se/platsbanken/annonser/42"
	legacy, err := st.InsertLead(ctx, &models.Lead{
		Name:    "Old",
		Email:   models.ScrapedLeadEmail,
		Message: models.ScrapedLeadMessage,
		Source:  &scraped,
		JobURL:  &legacyURL,
	})
	require.NoError(t, err)

	scored := seedScraped(t, st, postingA, "text")
	scoredStatus := models.AnalysisScored
	require.NoError(t, st.PatchLead(ctx, scored, models.LeadPatch{AnalysisStatus: &scoredStatus}))

	_, err = st.InsertLead(ctx, &models.Lead{Name: "Inbound", Email: "a@b.se", Message: "Hej"})
	require.NoError(t, err)

	b := NewBackfiller(testConfig(), st, testLogger())
	result, err := b.Backfill(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, &models.BackfillResult{Success: true, Checked: 2, Updated: 1}, result)

	lead, err := st.GetLead(ctx, legacy)
	require.NoError(t, err)
	require.NotNil(t, lead.AnalysisStatus)
	assert.Equal(t, models.AnalysisPending, *lead.AnalysisStatus)
	assert.Equal(t, "Old", lead.Name)

	lead, err = st.GetLead(ctx, scored)
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisScored, *lead.AnalysisStatus)

	again, err := b.Backfill(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Checked)
	assert.Zero(t, again.Updated)
}
