package hunter

import (
	"context"

	"lead-hunter/pkg/models"
)

// Service exposes the three operator-triggered operations behind one value
type Service struct {
	discoverer *Discoverer
	analyzer   *Analyzer
	backfiller *Backfiller
}

func NewService(d *Discoverer, a *Analyzer, b *Backfiller) *Service {
	return &Service{discoverer: d, analyzer: a, backfiller: b}
}

func (s *Service) Discover(ctx context.Context, req models.DiscoverRequest) (*models.DiscoverResult, error) {
	return s.discoverer.Discover(ctx, req)
}

func (s *Service) AnalyzeScrapedLeads(ctx context.Context, limit int) (*models.AnalyzeResult, error) {
	return s.analyzer.AnalyzeScrapedLeads(ctx, limit)
}

func (s *Service) Backfill(ctx context.Context, limit int) (*models.BackfillResult, error) {
	return s.backfiller.Backfill(ctx, limit)
}
