package store

import (
	"database/sql"
	"embed"
	"fmt"
	"strconv"
	"strings"
	"time"

	"lead-hunter/pkg/models"
)

//go:embed schema/*.sql
var schemaFS embed.FS

const leadColumns = `id, name, email, company, phone, message, status, notes,
	source, job_url, analysis_status, analysis_model, analysis_error,
	excel_hell_score, generated_pitch, raw_job_description, cleaned_job_description,
	job_title, contact_name, contact_email, contact_phone, created_at`

const commentColumns = `id, lead_id, content, author, created_at`

const (
	queryInsertLead = `INSERT INTO leads (` + leadColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	queryGetLead         = `SELECT ` + leadColumns + ` FROM leads WHERE id = ?`
	queryGetLeadByJobURL = `SELECT ` + leadColumns + ` FROM leads WHERE job_url = ? ORDER BY seq LIMIT 1`
	queryDeleteLead      = `DELETE FROM leads WHERE id = ?`
	queryDeleteComments  = `DELETE FROM comments WHERE lead_id = ?`
	queryListLeads       = `SELECT ` + leadColumns + ` FROM leads ORDER BY seq DESC`
	queryListScraped     = `SELECT ` + leadColumns + ` FROM leads WHERE source = 'scraped' ORDER BY seq LIMIT ?`
	queryListPending     = `SELECT ` + leadColumns + ` FROM leads WHERE source = 'scraped' AND analysis_status = 'pending' ORDER BY seq LIMIT ?`
	queryInsertComment   = `INSERT INTO comments (` + commentColumns + `) VALUES (?, ?, ?, ?, ?)`
	queryListComments    = `SELECT ` + commentColumns + ` FROM comments WHERE lead_id = ? ORDER BY seq DESC`
	queryUpdateComment   = `UPDATE comments SET content = ? WHERE id = ?`
	queryDeleteComment   = `DELETE FROM comments WHERE id = ?`
	queryLeadExists      = `SELECT COUNT(1) FROM leads WHERE id = ?`
)

const (
	defaultScanLimit = 100
	maxScanLimit     = 10000
)

// rowScanner is satisfied by *sql.Row, *sql.Rows, pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// schemaStatements returns the statements of an embedded schema file
func schemaStatements(name string) ([]string, error) {
	data, err := schemaFS.ReadFile("schema/" + name)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", name, err)
	}

	var stmts []string
	for _, stmt := range strings.Split(string(data), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts, nil
}

// rebind turns ? placeholders into $1..$n
func rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultScanLimit
	}
	if limit > maxScanLimit {
		return maxScanLimit
	}
	return limit
}

func nullable(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullableInt(p *int) any {
	if p == nil {
		return nil
	}
	return int64(*p)
}

func stringOrNil(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func leadInsertArgs(lead *models.Lead) []any {
	var source, analysisStatus *string
	if lead.Source != nil {
		s := string(*lead.Source)
		source = &s
	}
	if lead.AnalysisStatus != nil {
		s := string(*lead.AnalysisStatus)
		analysisStatus = &s
	}

	return []any{
		lead.ID, lead.Name, lead.Email, nullable(lead.Company), nullable(lead.Phone),
		lead.Message, string(lead.Status), nullable(lead.Notes),
		nullable(source), nullable(lead.JobURL), nullable(analysisStatus),
		nullable(lead.AnalysisModel), nullable(lead.AnalysisError),
		nullableInt(lead.ExcelHellScore), nullable(lead.GeneratedPitch),
		nullable(lead.RawJobDescription), nullable(lead.CleanedJobDescription),
		nullable(lead.JobTitle), nullable(lead.ContactName), nullable(lead.ContactEmail),
		nullable(lead.ContactPhone), lead.CreatedAt.UnixMilli(),
	}
}

func scanLead(row rowScanner) (*models.Lead, error) {
	var (
		lead                                               models.Lead
		status                                             string
		company, phone, notes, source, jobURL              sql.NullString
		analysisStatus, analysisModel, analysisError       sql.NullString
		generatedPitch, rawDescription, cleanedDescription sql.NullString
		jobTitle, contactName, contactEmail, contactPhone  sql.NullString
		score                                              sql.NullInt64
		createdAt                                          int64
	)

	err := row.Scan(
		&lead.ID, &lead.Name, &lead.Email, &company, &phone, &lead.Message, &status, &notes,
		&source, &jobURL, &analysisStatus, &analysisModel, &analysisError,
		&score, &generatedPitch, &rawDescription, &cleanedDescription,
		&jobTitle, &contactName, &contactEmail, &contactPhone, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	lead.Status = models.LeadStatus(status)
	lead.Company = stringOrNil(company)
	lead.Phone = stringOrNil(phone)
	lead.Notes = stringOrNil(notes)
	if source.Valid {
		s := models.LeadSource(source.String)
		lead.Source = &s
	}
	lead.JobURL = stringOrNil(jobURL)
	if analysisStatus.Valid {
		s := models.AnalysisStatus(analysisStatus.String)
		lead.AnalysisStatus = &s
	}
	lead.AnalysisModel = stringOrNil(analysisModel)
	lead.AnalysisError = stringOrNil(analysisError)
	if score.Valid {
		v := int(score.Int64)
		lead.ExcelHellScore = &v
	}
	lead.GeneratedPitch = stringOrNil(generatedPitch)
	lead.RawJobDescription = stringOrNil(rawDescription)
	lead.CleanedJobDescription = stringOrNil(cleanedDescription)
	lead.JobTitle = stringOrNil(jobTitle)
	lead.ContactName = stringOrNil(contactName)
	lead.ContactEmail = stringOrNil(contactEmail)
	lead.ContactPhone = stringOrNil(contactPhone)
	lead.CreatedAt = time.UnixMilli(createdAt).UTC()

	return &lead, nil
}

func scanComment(row rowScanner) (*models.Comment, error) {
	var (
		comment   models.Comment
		createdAt int64
	)
	if err := row.Scan(&comment.ID, &comment.LeadID, &comment.Content, &comment.Author, &createdAt); err != nil {
		return nil, err
	}
	comment.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &comment, nil
}

// buildPatch renders a LeadPatch as an UPDATE with ? placeholders
func buildPatch(id string, p models.LeadPatch) (string, []any) {
	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if p.Name != nil {
		set("name", *p.Name)
	}
	if p.Email != nil {
		set("email", *p.Email)
	}
	if p.Phone != nil {
		set("phone", *p.Phone)
	}
	if p.Message != nil {
		set("message", *p.Message)
	}
	if p.Status != nil {
		set("status", string(*p.Status))
	}
	if p.Notes != nil {
		set("notes", *p.Notes)
	}
	if p.AnalysisStatus != nil {
		set("analysis_status", string(*p.AnalysisStatus))
	}
	if p.AnalysisModel != nil {
		set("analysis_model", *p.AnalysisModel)
	}
	if p.ClearAnalysisError {
		sets = append(sets, "analysis_error = NULL")
	} else if p.AnalysisError != nil {
		set("analysis_error", *p.AnalysisError)
	}

	cleared := make(map[models.LeadField]bool, len(p.Clear))
	for _, field := range p.Clear {
		cleared[field] = true
	}
	optional := func(field models.LeadField, value *string) {
		switch {
		case value != nil:
			set(string(field), *value)
		case cleared[field]:
			sets = append(sets, string(field)+" = NULL")
		}
	}
	optional(models.FieldCompany, p.Company)
	optional(models.FieldJobTitle, p.JobTitle)
	optional(models.FieldContactName, p.ContactName)
	optional(models.FieldContactEmail, p.ContactEmail)
	optional(models.FieldContactPhone, p.ContactPhone)
	optional(models.FieldCleanedJobDescription, p.CleanedJobDescription)

	args = append(args, id)
	return "UPDATE leads SET " + strings.Join(sets, ", ") + " WHERE id = ?", args
}

// newScrapedLead builds the row written for a freshly discovered posting
func newScrapedLead(id string, input models.ScrapedLeadInput, now time.Time) *models.Lead {
	source := models.LeadSourceScraped
	pending := models.AnalysisPending
	jobURL := input.JobURL
	raw := input.RawJobDescription

	return &models.Lead{
		ID:                id,
		Name:              input.Name,
		Email:             input.Email,
		Company:           models.StringPtr(input.Company),
		Phone:             models.StringPtr(input.Phone),
		Message:           input.Message,
		Status:            models.LeadStatusNew,
		Source:            &source,
		JobURL:            models.StringPtr(jobURL),
		AnalysisStatus:    &pending,
		ExcelHellScore:    input.ExcelHellScore,
		GeneratedPitch:    models.StringPtr(input.GeneratedPitch),
		RawJobDescription: &raw,
		CreatedAt:         now,
	}
}
