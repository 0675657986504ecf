package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/meridian-pos/meridian-pos/internal/ledger"
)

// IntegrityScanner replays product ledgers looking for states the posting
// rules should never produce, chiefly negative stock. Findings are logged,
// not repaired; the ledger is the record of what actually happened.
type IntegrityScanner struct {
	store       *ledger.Store
	logger      *slog.Logger
	concurrency int
}

func NewIntegrityScanner(store *ledger.Store, logger *slog.Logger, concurrency int) *IntegrityScanner {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &IntegrityScanner{store: store, logger: logger, concurrency: concurrency}
}

// Scan replays the requested products and reports anomalies. Returns the
// number of products flagged.
func (s *IntegrityScanner) Scan(ctx context.Context, productID int64) (int, error) {
	ids := []int64{productID}
	if productID == 0 {
		var err error
		ids, err = s.store.ListProductIDs(ctx)
		if err != nil {
			return 0, err
		}
	}

	flagged := make(chan int64, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, id := range ids {
		g.Go(func() error {
			entries, err := s.store.ListByProduct(ctx, id)
			if err != nil {
				return err
			}
			if s.check(id, entries) {
				flagged <- id
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	close(flagged)
	return len(flagged), nil
}

func (s *IntegrityScanner) check(productID int64, entries []ledger.Transaction) bool {
	dirty := false
	for _, line := range ledger.Replay(entries) {
		if line.Balance < 0 {
			s.logger.Warn("negative stock in ledger replay",
				slog.Int64("product_id", productID),
				slog.Int64("transaction_id", line.ID),
				slog.Float64("balance", line.Balance),
			)
			dirty = true
		}
	}
	if stock := ledger.CurrentStock(entries); stock < 0 {
		s.logger.Warn("negative ending stock",
			slog.Int64("product_id", productID),
			slog.Float64("stock", stock),
		)
		dirty = true
	}
	return dirty
}

// NewLedgerIntegrityHandler adapts a scanner into an Asynq handler.
func NewLedgerIntegrityHandler(scanner *IntegrityScanner, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload LedgerIntegrityPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		flagged, err := scanner.Scan(ctx, payload.ProductID)
		if err != nil {
			return err
		}
		logger.Info("ledger integrity scan finished",
			slog.Int64("product_id", payload.ProductID),
			slog.Int("flagged", flagged),
		)
		return nil
	}
}
