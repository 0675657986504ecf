package ledger

import "time"

// Direction classifies a stock movement.
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// ReferenceType names the document family that produced an entry.
type ReferenceType string

const (
	ReferencePurchase ReferenceType = "PURCHASE"
	ReferenceSale     ReferenceType = "SALE"
)

// Transaction is one immutable row of the inventory ledger. Quantity is
// signed: positive for IN, negative for OUT. UnitCost is recorded only for
// inbound movements.
type Transaction struct {
	ID            int64         `json:"id"`
	ProductID     int64         `json:"product_id"`
	Type          Direction     `json:"type"`
	Quantity      float64       `json:"quantity"`
	UnitCost      *float64      `json:"unit_cost,omitempty"`
	ReferenceType ReferenceType `json:"reference_type"`
	ReferenceID   int64         `json:"reference_id"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Entry is the write-side payload appended when a document posts.
type Entry struct {
	ProductID     int64
	Type          Direction
	Quantity      float64
	UnitCost      *float64
	ReferenceType ReferenceType
	ReferenceID   int64
}

// CardEntry is one line of a product stock card: the movement plus the
// running balance after applying it.
type CardEntry struct {
	Transaction
	Balance float64 `json:"balance"`
}
