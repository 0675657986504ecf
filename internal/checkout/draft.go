package checkout

import (
	"errors"

	"github.com/meridian-pos/meridian-pos/internal/documents"
)

var (
	ErrOutOfStock      = errors.New("checkout: product is out of stock")
	ErrExceedsStock    = errors.New("checkout: quantity exceeds available stock")
	ErrLineNotFound    = errors.New("checkout: line not found")
	ErrInvalidQuantity = errors.New("checkout: quantity must be positive")
)

// ProductInfo is the snapshot a draft line is built from: prices plus the
// stock available at selection time.
type ProductInfo struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	SalePrice float64 `json:"sale_price"`
	CostPrice float64 `json:"cost_price"`
	Stock     float64 `json:"stock"`
}

// Line is one cart row. MaxQty is the stock ceiling captured when the
// product was added; it never reaches the persisted document.
type Line struct {
	ProductID  int64   `json:"product_id"`
	Name       string  `json:"name"`
	Quantity   float64 `json:"quantity"`
	SalePrice  float64 `json:"sale_price"`
	Discount   float64 `json:"discount"`
	CostPrice  float64 `json:"cost_price"`
	MaxQty     float64 `json:"max_qty"`
	TotalPrice float64 `json:"total_price"`
	Profit     float64 `json:"profit"`
}

// Draft is an unpersisted cart being edited. Each draft is independently
// owned; nothing here is shared across concurrent drafts.
type Draft struct {
	Lines           []Line                 `json:"lines"`
	DiscountType    documents.DiscountType `json:"discount_type"`
	DiscountValue   float64                `json:"discount_value"`
	VATEnabled      bool                   `json:"vat_enabled"`
	VATAmount       float64                `json:"vat_amount"`
	ExtraFee        float64                `json:"extra_fee"`
	PaymentMethod   string                 `json:"payment_method"`
	CustomerPayment float64                `json:"customer_payment"`
	PartyID         *int64                 `json:"party_id,omitempty"`
	Note            string                 `json:"note,omitempty"`
}

func recalcLine(l *Line) {
	l.TotalPrice = l.Quantity*l.SalePrice - l.Discount
	l.Profit = l.TotalPrice - l.Quantity*l.CostPrice
}

// AddProduct inserts a new line at quantity 1 or bumps an existing one.
// The draft is left untouched when the product has no stock or the bump
// would exceed the line's stock ceiling.
func (d *Draft) AddProduct(p ProductInfo) error {
	for i := range d.Lines {
		if d.Lines[i].ProductID != p.ProductID {
			continue
		}
		if d.Lines[i].Quantity+1 > d.Lines[i].MaxQty {
			return ErrExceedsStock
		}
		d.Lines[i].Quantity++
		recalcLine(&d.Lines[i])
		return nil
	}

	if p.Stock <= 0 {
		return ErrOutOfStock
	}
	line := Line{
		ProductID: p.ProductID,
		Name:      p.Name,
		Quantity:  1,
		SalePrice: p.SalePrice,
		CostPrice: p.CostPrice,
		MaxQty:    p.Stock,
	}
	recalcLine(&line)
	d.Lines = append(d.Lines, line)
	return nil
}

// UpdateLine sets quantity, price, and discount for a product's line and
// recomputes its totals. A quantity above the stock ceiling is rejected
// without mutating the cart.
func (d *Draft) UpdateLine(productID int64, quantity, salePrice, discount float64) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	for i := range d.Lines {
		if d.Lines[i].ProductID != productID {
			continue
		}
		if quantity > d.Lines[i].MaxQty {
			return ErrExceedsStock
		}
		d.Lines[i].Quantity = quantity
		d.Lines[i].SalePrice = salePrice
		d.Lines[i].Discount = discount
		recalcLine(&d.Lines[i])
		return nil
	}
	return ErrLineNotFound
}

// RemoveLine drops a product from the cart.
func (d *Draft) RemoveLine(productID int64) error {
	for i := range d.Lines {
		if d.Lines[i].ProductID == productID {
			d.Lines = append(d.Lines[:i], d.Lines[i+1:]...)
			return nil
		}
	}
	return ErrLineNotFound
}

// ToCreateRequest is the single conversion from ephemeral draft to posting
// payload. UI-only fields (MaxQty, cost snapshots) stay behind.
func (d *Draft) ToCreateRequest() documents.CreateRequest {
	items := make([]documents.ItemInput, 0, len(d.Lines))
	for _, l := range d.Lines {
		items = append(items, documents.ItemInput{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.SalePrice,
			Discount:  l.Discount,
		})
	}

	req := documents.CreateRequest{
		Kind:          documents.KindSale,
		PartyID:       d.PartyID,
		Items:         items,
		DiscountType:  d.DiscountType,
		DiscountValue: d.DiscountValue,
		PaidAmount:    d.CustomerPayment,
	}
	if req.DiscountType == "" {
		req.DiscountType = documents.DiscountAmount
	}
	if d.PaymentMethod != "" {
		pm := d.PaymentMethod
		req.PaymentMethod = &pm
	}
	if d.Note != "" {
		note := d.Note
		req.Note = &note
	}
	return req
}
