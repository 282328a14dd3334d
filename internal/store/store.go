package store

import (
	"context"
	"errors"
	"fmt"

	"lead-hunter/internal/config"
	"lead-hunter/pkg/models"
)

// ErrNotFound is returned when a lead or comment does not exist
var ErrNotFound = errors.New("not found")

// LeadStore persists leads and their comments
type LeadStore interface {
	// InsertLead stores an admin-entered lead with status new and returns its ID
	InsertLead(ctx context.Context, lead *models.Lead) (string, error)

	// SaveScrapedLead stores a discovered posting unless a lead with the same
	// job URL exists, in which case the existing ID is returned and nothing is written.
	// A new lead gets a System comment holding the raw description.
	SaveScrapedLead(ctx context.Context, input models.ScrapedLeadInput) (string, error)

	GetLead(ctx context.Context, id string) (*models.Lead, error)

	// GetLeadByJobURL returns nil, nil when no lead carries the URL
	GetLeadByJobURL(ctx context.Context, jobURL string) (*models.Lead, error)

	PatchLead(ctx context.Context, id string, patch models.LeadPatch) error
	DeleteLead(ctx context.Context, id string) error

	// ListLeads returns all leads, newest first
	ListLeads(ctx context.Context) ([]*models.Lead, error)

	// ListScrapedLeads returns up to limit scraped leads in creation order
	ListScrapedLeads(ctx context.Context, limit int) ([]*models.Lead, error)

	// ListPendingScrapedLeads returns up to limit scraped leads awaiting analysis, in creation order
	ListPendingScrapedLeads(ctx context.Context, limit int) ([]*models.Lead, error)

	AddComment(ctx context.Context, leadID, content, author string) (string, error)

	// ListComments returns the comments of a lead, newest first
	ListComments(ctx context.Context, leadID string) ([]*models.Comment, error)

	UpdateComment(ctx context.Context, id, content string) error
	DeleteComment(ctx context.Context, id string) error

	Ping(ctx context.Context) error
	Close() error
}

// Open creates the store selected by cfg.Store.Driver
func Open(ctx context.Context, cfg *config.Config) (LeadStore, error) {
	switch cfg.Store.Driver {
	case "sqlite", "":
		return OpenSQLite(ctx, cfg.Store.SQLitePath)
	case "postgres":
		return OpenPostgres(ctx, cfg.Store.PostgresURL, cfg.Store.MaxConns)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}
