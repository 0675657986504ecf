package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func entry(id int64, dir Direction, qty float64, cost *float64) Transaction {
	return Transaction{
		ID:        id,
		ProductID: 1,
		Type:      dir,
		Quantity:  qty,
		UnitCost:  cost,
		CreatedAt: time.Date(2025, 6, 1, 0, 0, int(id), 0, time.UTC),
	}
}

func TestCurrentStockSumsSignedQuantities(t *testing.T) {
	entries := []Transaction{
		entry(1, DirectionIn, 10, ptr(5000.0)),
		entry(2, DirectionOut, -3, nil),
		entry(3, DirectionIn, 5, ptr(6000.0)),
		entry(4, DirectionOut, -4, nil),
	}
	assert.Equal(t, 8.0, CurrentStock(entries))
}

func TestCurrentStockEmptyLedger(t *testing.T) {
	assert.Equal(t, 0.0, CurrentStock(nil))
}

func TestCurrentStockCanGoNegative(t *testing.T) {
	entries := []Transaction{
		entry(1, DirectionIn, 2, ptr(1000.0)),
		entry(2, DirectionOut, -5, nil),
	}
	assert.Equal(t, -3.0, CurrentStock(entries))
}

func TestAverageCostWeighted(t *testing.T) {
	entries := []Transaction{
		entry(1, DirectionIn, 10, ptr(5000.0)),
		entry(2, DirectionIn, 5, ptr(8000.0)),
	}
	// (10*5000 + 5*8000) / 15
	assert.InDelta(t, 6000.0, AverageCost(entries), 1e-9)
}

func TestAverageCostIgnoresOutboundAndCostlessRows(t *testing.T) {
	entries := []Transaction{
		entry(1, DirectionIn, 10, ptr(5000.0)),
		entry(2, DirectionOut, -6, nil),
		entry(3, DirectionIn, 4, nil),
	}
	assert.InDelta(t, 5000.0, AverageCost(entries), 1e-9)
}

func TestAverageCostEmptyLedger(t *testing.T) {
	assert.Equal(t, 0.0, AverageCost(nil))
}

func TestReplayRunningBalance(t *testing.T) {
	entries := []Transaction{
		entry(1, DirectionIn, 10, ptr(5000.0)),
		entry(2, DirectionOut, -3, nil),
		entry(3, DirectionIn, 5, ptr(6000.0)),
	}
	card := Replay(entries)
	require.Len(t, card, 3)
	assert.Equal(t, 10.0, card[0].Balance)
	assert.Equal(t, 7.0, card[1].Balance)
	assert.Equal(t, 12.0, card[2].Balance)
}

type stubSource struct {
	entries []Transaction
	err     error
}

func (s *stubSource) ListByProduct(_ context.Context, _ int64) ([]Transaction, error) {
	return s.entries, s.err
}

func TestProjectorSummarize(t *testing.T) {
	src := &stubSource{entries: []Transaction{
		entry(1, DirectionIn, 10, ptr(5000.0)),
		entry(2, DirectionOut, -4, nil),
	}}
	p := NewProjector(src)

	sum, err := p.Summarize(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 6.0, sum.Stock)
	assert.InDelta(t, 5000.0, sum.AverageCost, 1e-9)
}

func TestProjectorHistoryNewestFirst(t *testing.T) {
	src := &stubSource{entries: []Transaction{
		entry(1, DirectionIn, 10, ptr(5000.0)),
		entry(2, DirectionOut, -3, nil),
	}}
	p := NewProjector(src)

	card, err := p.History(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, card, 2)
	assert.Equal(t, int64(2), card[0].ID)
	assert.Equal(t, 7.0, card[0].Balance)
	assert.Equal(t, int64(1), card[1].ID)
	assert.Equal(t, 10.0, card[1].Balance)
}
