package catalog

import (
	"context"
	"log/slog"

	"github.com/meridian-pos/meridian-pos/internal/ledger"
)

// Service serves product reads plus the ledger-derived stock views.
type Service struct {
	repo      *Repository
	projector *ledger.Projector
	cache     *StockCache
	logger    *slog.Logger
}

func NewService(repo *Repository, projector *ledger.Projector, cache *StockCache, logger *slog.Logger) *Service {
	return &Service{repo: repo, projector: projector, cache: cache, logger: logger}
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]Product, error) {
	return s.repo.List(ctx, limit, offset)
}

// Stock returns the derived summary for a product, consulting the cache
// first. Cache trouble degrades to a plain replay, never to an error.
func (s *Service) Stock(ctx context.Context, productID int64) (ledger.Summary, error) {
	if _, err := s.repo.Get(ctx, productID); err != nil {
		return ledger.Summary{}, err
	}

	if sum, ok, err := s.cache.Get(ctx, productID); err != nil {
		s.logger.Warn("stock cache read failed", slog.Int64("product_id", productID), slog.Any("error", err))
	} else if ok {
		return sum, nil
	}

	sum, err := s.projector.Summarize(ctx, productID)
	if err != nil {
		return ledger.Summary{}, err
	}
	if err := s.cache.Set(ctx, sum); err != nil {
		s.logger.Warn("stock cache write failed", slog.Int64("product_id", productID), slog.Any("error", err))
	}
	return sum, nil
}

// History returns the product's stock card newest first.
func (s *Service) History(ctx context.Context, productID int64) ([]ledger.CardEntry, error) {
	if _, err := s.repo.Get(ctx, productID); err != nil {
		return nil, err
	}
	return s.projector.History(ctx, productID)
}

// InvalidateStock drops cached summaries after a posting commits.
func (s *Service) InvalidateStock(ctx context.Context, productIDs []int64) error {
	return s.cache.Invalidate(ctx, productIDs)
}
