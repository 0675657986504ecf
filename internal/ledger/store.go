package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store reads inventory transactions outside of a posting transaction.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const listByProductSQL = `
SELECT id, product_id, type, quantity, unit_cost, reference_type, reference_id, created_at
FROM inventory_transactions
WHERE product_id = $1
ORDER BY created_at ASC, id ASC`

// ListByProduct returns the full movement history for a product in
// chronological order. Replaying the result yields current stock.
func (s *Store) ListByProduct(ctx context.Context, productID int64) ([]Transaction, error) {
	rows, err := s.pool.Query(ctx, listByProductSQL, productID)
	if err != nil {
		return nil, fmt.Errorf("ledger: list by product: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

const listProductIDsSQL = `
SELECT DISTINCT product_id FROM inventory_transactions ORDER BY product_id`

// ListProductIDs returns every product that has at least one movement.
func (s *Store) ListProductIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.pool.Query(ctx, listProductIDsSQL)
	if err != nil {
		return nil, fmt.Errorf("ledger: list product ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ledger: scan product id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: iterate product ids: %w", err)
	}
	return ids, nil
}

const appendSQL = `
INSERT INTO inventory_transactions (product_id, type, quantity, unit_cost, reference_type, reference_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW())`

// Append writes ledger entries inside the caller's transaction. Posting a
// document and appending its movements must share one tx so they commit or
// roll back together.
func Append(ctx context.Context, tx pgx.Tx, entries []Entry) error {
	for _, e := range entries {
		qty := e.Quantity
		if e.Type == DirectionOut && qty > 0 {
			qty = -qty
		}
		if _, err := tx.Exec(ctx, appendSQL,
			e.ProductID, string(e.Type), qty, e.UnitCost, string(e.ReferenceType), e.ReferenceID,
		); err != nil {
			return fmt.Errorf("ledger: append entry: %w", err)
		}
	}
	return nil
}

const removeByReferenceSQL = `
DELETE FROM inventory_transactions WHERE reference_type = $1 AND reference_id = $2`

// RemoveByReference deletes every entry a document produced. Used when a
// document is re-posted or voided, always inside the caller's transaction.
func RemoveByReference(ctx context.Context, tx pgx.Tx, refType ReferenceType, refID int64) error {
	if _, err := tx.Exec(ctx, removeByReferenceSQL, string(refType), refID); err != nil {
		return fmt.Errorf("ledger: remove by reference: %w", err)
	}
	return nil
}

func scanTransactions(rows pgx.Rows) ([]Transaction, error) {
	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(
			&t.ID, &t.ProductID, &t.Type, &t.Quantity, &t.UnitCost,
			&t.ReferenceType, &t.ReferenceID, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ledger: scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: iterate transactions: %w", err)
	}
	return out, nil
}
