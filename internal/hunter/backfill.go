package hunter

import (
	"context"
	"fmt"

	"lead-hunter/internal/config"
	"lead-hunter/internal/logging"
	"lead-hunter/internal/store"
	"lead-hunter/pkg/models"
)

// Backfiller marks scraped leads created before analysis tracking as pending
type Backfiller struct {
	config *config.Config
	store  store.LeadStore
	logger logging.Logger
}

func NewBackfiller(cfg *config.Config, st store.LeadStore, logger logging.Logger) *Backfiller {
	return &Backfiller{
		config: cfg,
		store:  st,
		logger: logger.WithField("component", "backfiller"),
	}
}

// Backfill sets analysisStatus=pending on up to limit scraped leads that have
// none. Leads with a status are left alone, so a second run updates nothing.
func (b *Backfiller) Backfill(ctx context.Context, limit int) (*models.BackfillResult, error) {
	if limit <= 0 {
		limit = b.config.Hunter.BackfillLimit
	}

	leads, err := b.store.ListScrapedLeads(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list scraped leads: %w", err)
	}

	pending := models.AnalysisPending
	updated := 0
	for _, lead := range leads {
		if lead.AnalysisStatus != nil {
			continue
		}
		if err := b.store.PatchLead(ctx, lead.ID, models.LeadPatch{AnalysisStatus: &pending}); err != nil {
			return nil, fmt.Errorf("backfill lead %s: %w", lead.ID, err)
		}
		updated++
	}

	b.logger.Info("Backfill completed", map[string]interface{}{
		"checked": len(leads),
		"updated": updated,
	})

	return &models.BackfillResult{
		Success: true,
		Checked: len(leads),
		Updated: updated,
	}, nil
}
