package ledger

import "context"

// Summary is the derived state of one product: what replaying its ledger
// yields right now.
type Summary struct {
	ProductID   int64   `json:"product_id"`
	Stock       float64 `json:"stock"`
	AverageCost float64 `json:"average_cost"`
}

// CurrentStock folds signed quantities into the on-hand balance.
func CurrentStock(entries []Transaction) float64 {
	var stock float64
	for _, e := range entries {
		stock += e.Quantity
	}
	return stock
}

// AverageCost returns the weighted average unit cost across inbound
// movements that carry a cost. Entries without a cost (sales, legacy rows)
// do not participate. Zero when nothing qualifies.
func AverageCost(entries []Transaction) float64 {
	var totalCost, totalQty float64
	for _, e := range entries {
		if e.Type != DirectionIn || e.UnitCost == nil {
			continue
		}
		qty := e.Quantity
		if qty < 0 {
			qty = -qty
		}
		totalCost += *e.UnitCost * qty
		totalQty += qty
	}
	if totalQty == 0 {
		return 0
	}
	return totalCost / totalQty
}

// Replay walks the history in order and annotates each movement with the
// running balance after it.
func Replay(entries []Transaction) []CardEntry {
	card := make([]CardEntry, 0, len(entries))
	var balance float64
	for _, e := range entries {
		balance += e.Quantity
		card = append(card, CardEntry{Transaction: e, Balance: balance})
	}
	return card
}

// HistorySource is the read surface the projector derives from.
type HistorySource interface {
	ListByProduct(ctx context.Context, productID int64) ([]Transaction, error)
}

// Projector derives stock and cost figures from the ledger. There is no
// cached stock column anywhere; every answer is a replay.
type Projector struct {
	source HistorySource
}

func NewProjector(source HistorySource) *Projector {
	return &Projector{source: source}
}

func (p *Projector) CurrentStock(ctx context.Context, productID int64) (float64, error) {
	entries, err := p.source.ListByProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	return CurrentStock(entries), nil
}

func (p *Projector) AverageCost(ctx context.Context, productID int64) (float64, error) {
	entries, err := p.source.ListByProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	return AverageCost(entries), nil
}

// Summarize replays one product's ledger into its derived summary.
func (p *Projector) Summarize(ctx context.Context, productID int64) (Summary, error) {
	entries, err := p.source.ListByProduct(ctx, productID)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		ProductID:   productID,
		Stock:       CurrentStock(entries),
		AverageCost: AverageCost(entries),
	}, nil
}

// History returns the stock card newest first, each line carrying the
// balance after the movement.
func (p *Projector) History(ctx context.Context, productID int64) ([]CardEntry, error) {
	entries, err := p.source.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	card := Replay(entries)
	for i, j := 0, len(card)-1; i < j; i, j = i+1, j-1 {
		card[i], card[j] = card[j], card[i]
	}
	return card, nil
}
