package catalog

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("catalog: product not found")

// Product is the master-data record. Stock and average cost are never
// stored here; they are derived from the inventory ledger on demand.
type Product struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Unit      string    `json:"unit"`
	CostPrice float64   `json:"cost_price"`
	SalePrice float64   `json:"sale_price"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
