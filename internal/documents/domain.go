package documents

import (
	"errors"
	"fmt"
	"time"
)

// Kind separates sales invoices from purchase receipts. The two share one
// table and one posting path; only the code prefix, the ledger direction,
// and the fee/payment fields differ.
type Kind string

const (
	KindSale     Kind = "SALE"
	KindPurchase Kind = "PURCHASE"
)

// DiscountType selects how DiscountValue is interpreted.
type DiscountType string

const (
	DiscountAmount  DiscountType = "AMOUNT"
	DiscountPercent DiscountType = "PERCENT"
)

const StatusCompleted = "COMPLETED"

var (
	ErrNotFound       = errors.New("documents: document not found")
	ErrEmptyItems     = errors.New("documents: item list must not be empty")
	ErrUnknownProduct = errors.New("documents: referenced product does not exist")
	ErrInvalidKind    = errors.New("documents: unknown document kind")
)

// Document is a posted sales invoice or purchase receipt together with its
// line items. Its ledger entries live in inventory_transactions, keyed by
// (reference_type, reference_id).
type Document struct {
	ID            int64        `json:"id"`
	Code          string       `json:"code"`
	Kind          Kind         `json:"kind"`
	PartyID       *int64       `json:"party_id,omitempty"`
	TotalAmount   float64      `json:"total_amount"`
	DiscountType  DiscountType `json:"discount_type"`
	DiscountValue float64      `json:"discount_value"`
	OtherFee      float64      `json:"other_fee"`
	PaymentMethod *string      `json:"payment_method,omitempty"`
	PaidAmount    float64      `json:"paid_amount"`
	Note          *string      `json:"note,omitempty"`
	Status        string       `json:"status"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
	Items         []Item       `json:"items"`
}

// Item is one persisted document line.
type Item struct {
	ID          int64   `json:"id"`
	DocumentID  int64   `json:"document_id"`
	ProductID   int64   `json:"product_id"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Discount    float64 `json:"discount"`
	TotalAmount float64 `json:"total_amount"`
}

// ItemInput is one requested line on create/update.
type ItemInput struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Quantity  float64 `json:"quantity" validate:"required,gt=0"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
	Discount  float64 `json:"discount" validate:"gte=0"`
}

// CreateRequest is the posting payload for both document kinds.
type CreateRequest struct {
	Kind          Kind         `json:"kind" validate:"required,oneof=SALE PURCHASE"`
	PartyID       *int64       `json:"party_id,omitempty"`
	Items         []ItemInput  `json:"items" validate:"required,min=1,dive"`
	DiscountType  DiscountType `json:"discount_type" validate:"omitempty,oneof=AMOUNT PERCENT"`
	DiscountValue float64      `json:"discount_value" validate:"gte=0"`
	OtherFee      float64      `json:"other_fee" validate:"gte=0"`
	PaymentMethod *string      `json:"payment_method,omitempty"`
	PaidAmount    float64      `json:"paid_amount" validate:"gte=0"`
	Note          *string      `json:"note,omitempty"`
}

// UpdateRequest replaces the whole document subtree. Same shape as create;
// the kind of an existing document cannot change.
type UpdateRequest struct {
	PartyID       *int64       `json:"party_id,omitempty"`
	Items         []ItemInput  `json:"items" validate:"required,min=1,dive"`
	DiscountType  DiscountType `json:"discount_type" validate:"omitempty,oneof=AMOUNT PERCENT"`
	DiscountValue float64      `json:"discount_value" validate:"gte=0"`
	OtherFee      float64      `json:"other_fee" validate:"gte=0"`
	PaymentMethod *string      `json:"payment_method,omitempty"`
	PaidAmount    float64      `json:"paid_amount" validate:"gte=0"`
	Note          *string      `json:"note,omitempty"`
}

// LineTotal is the persisted per-line amount.
func LineTotal(in ItemInput) float64 {
	return in.Quantity*in.UnitPrice - in.Discount
}

// ComputeTotal derives the document total the operator saw on screen.
// Purchases add the other fee; sales carry no fee term.
func ComputeTotal(kind Kind, items []ItemInput, discountType DiscountType, discountValue, otherFee float64) float64 {
	var itemsTotal float64
	for _, in := range items {
		itemsTotal += LineTotal(in)
	}
	discount := discountValue
	if discountType == DiscountPercent {
		discount = itemsTotal * discountValue / 100
	}
	total := itemsTotal - discount
	if kind == KindPurchase {
		total += otherFee
	}
	return total
}

// CodePrefix yields the per-year series prefix, e.g. HD2025 for sales and
// PN2025 for purchases. The embedded year resets the counter implicitly.
func CodePrefix(kind Kind, at time.Time) (string, error) {
	switch kind {
	case KindSale:
		return fmt.Sprintf("HD%d", at.Year()), nil
	case KindPurchase:
		return fmt.Sprintf("PN%d", at.Year()), nil
	default:
		return "", ErrInvalidKind
	}
}
