package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meridian-pos/meridian-pos/internal/ledger"
)

// StockCache keeps derived stock summaries in Redis. A nil client disables
// caching entirely; every lookup then falls through to the ledger replay.
// Entries are dropped in the same request that commits a posting, never on
// a timer alone, so the ledger stays authoritative.
type StockCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStockCache(client *redis.Client, ttl time.Duration) *StockCache {
	return &StockCache{client: client, ttl: ttl}
}

func stockKey(productID int64) string {
	return fmt.Sprintf("catalog:stock:%d", productID)
}

func (c *StockCache) Get(ctx context.Context, productID int64) (ledger.Summary, bool, error) {
	if c == nil || c.client == nil {
		return ledger.Summary{}, false, nil
	}
	raw, err := c.client.Get(ctx, stockKey(productID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ledger.Summary{}, false, nil
	}
	if err != nil {
		return ledger.Summary{}, false, fmt.Errorf("catalog: cache get: %w", err)
	}
	var sum ledger.Summary
	if err := json.Unmarshal(raw, &sum); err != nil {
		return ledger.Summary{}, false, fmt.Errorf("catalog: cache decode: %w", err)
	}
	return sum, true, nil
}

func (c *StockCache) Set(ctx context.Context, sum ledger.Summary) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(sum)
	if err != nil {
		return fmt.Errorf("catalog: cache encode: %w", err)
	}
	if err := c.client.Set(ctx, stockKey(sum.ProductID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("catalog: cache set: %w", err)
	}
	return nil
}

func (c *StockCache) Invalidate(ctx context.Context, productIDs []int64) error {
	if c == nil || c.client == nil || len(productIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		keys = append(keys, stockKey(id))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("catalog: cache invalidate: %w", err)
	}
	return nil
}
