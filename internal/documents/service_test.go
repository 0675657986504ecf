package documents

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-pos/meridian-pos/internal/ledger"
)

type mockStore struct {
	products   map[int64]bool
	docs       map[int64]Document
	items      map[int64][]Item
	ledger     []ledger.Entry
	nextDocID  int64
	nextItemID int64
}

func newMockStore(productIDs ...int64) *mockStore {
	s := &mockStore{
		products:  map[int64]bool{},
		docs:      map[int64]Document{},
		items:     map[int64][]Item{},
		nextDocID: 1,
	}
	for _, id := range productIDs {
		s.products[id] = true
	}
	return s
}

func (s *mockStore) clone() *mockStore {
	c := &mockStore{
		products:   map[int64]bool{},
		docs:       map[int64]Document{},
		items:      map[int64][]Item{},
		ledger:     append([]ledger.Entry(nil), s.ledger...),
		nextDocID:  s.nextDocID,
		nextItemID: s.nextItemID,
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.docs {
		c.docs[k] = v
	}
	for k, v := range s.items {
		c.items[k] = append([]Item(nil), v...)
	}
	return c
}

func (s *mockStore) ledgerFor(productID int64) []ledger.Transaction {
	var out []ledger.Transaction
	for i, e := range s.ledger {
		if e.ProductID != productID {
			continue
		}
		out = append(out, ledger.Transaction{
			ID:            int64(i + 1),
			ProductID:     e.ProductID,
			Type:          e.Type,
			Quantity:      e.Quantity,
			UnitCost:      e.UnitCost,
			ReferenceType: e.ReferenceType,
			ReferenceID:   e.ReferenceID,
		})
	}
	return out
}

// mockRepository commits WithTx work on success and discards it on error,
// mirroring the rollback behavior of the real transaction wrapper.
type mockRepository struct {
	store            *mockStore
	staleCode        string
	failAppendLedger bool
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	work := m.store.clone()
	if err := fn(ctx, &mockTx{repo: m, store: work}); err != nil {
		return err
	}
	m.store = work
	return nil
}

func (m *mockRepository) GetDocument(_ context.Context, id int64) (Document, error) {
	doc, ok := m.store.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	doc.Items = append([]Item(nil), m.store.items[id]...)
	return doc, nil
}

func (m *mockRepository) ListDocuments(_ context.Context, kind Kind, _, _ int) ([]Document, error) {
	var out []Document
	for _, doc := range m.store.docs {
		if kind == "" || doc.Kind == kind {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (m *mockRepository) PeekNextCode(_ context.Context, prefix string) (string, error) {
	return nextInSeries(maxCode(m.store, prefix), prefix), nil
}

type mockTx struct {
	repo  *mockRepository
	store *mockStore
}

func (t *mockTx) NextCode(_ context.Context, prefix string) (string, error) {
	if t.repo.staleCode != "" {
		code := t.repo.staleCode
		t.repo.staleCode = ""
		return code, nil
	}
	return nextInSeries(maxCode(t.store, prefix), prefix), nil
}

func (t *mockTx) InsertDocument(_ context.Context, doc Document) (int64, error) {
	for _, existing := range t.store.docs {
		if existing.Code == doc.Code {
			return 0, &pgconn.PgError{Code: "23505", ConstraintName: "documents_code_key"}
		}
	}
	doc.ID = t.store.nextDocID
	t.store.nextDocID++
	doc.Status = StatusCompleted
	t.store.docs[doc.ID] = doc
	return doc.ID, nil
}

func (t *mockTx) InsertItems(_ context.Context, docID int64, items []ItemInput) error {
	for _, in := range items {
		t.store.nextItemID++
		t.store.items[docID] = append(t.store.items[docID], Item{
			ID:          t.store.nextItemID,
			DocumentID:  docID,
			ProductID:   in.ProductID,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			Discount:    in.Discount,
			TotalAmount: LineTotal(in),
		})
	}
	return nil
}

func (t *mockTx) DeleteItems(_ context.Context, docID int64) error {
	delete(t.store.items, docID)
	return nil
}

func (t *mockTx) GetDocumentForUpdate(_ context.Context, id int64) (Document, error) {
	doc, ok := t.store.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

func (t *mockTx) UpdateDocument(_ context.Context, doc Document) error {
	if _, ok := t.store.docs[doc.ID]; !ok {
		return ErrNotFound
	}
	t.store.docs[doc.ID] = doc
	return nil
}

func (t *mockTx) DeleteDocument(_ context.Context, id int64) error {
	if _, ok := t.store.docs[id]; !ok {
		return ErrNotFound
	}
	delete(t.store.docs, id)
	return nil
}

func (t *mockTx) MissingProducts(_ context.Context, ids []int64) ([]int64, error) {
	var missing []int64
	for _, id := range ids {
		if !t.store.products[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (t *mockTx) AppendLedger(_ context.Context, entries []ledger.Entry) error {
	if t.repo.failAppendLedger {
		return errors.New("ledger write failed")
	}
	for _, e := range entries {
		if e.Type == ledger.DirectionOut && e.Quantity > 0 {
			e.Quantity = -e.Quantity
		}
		t.store.ledger = append(t.store.ledger, e)
	}
	return nil
}

func (t *mockTx) RemoveLedgerByReference(_ context.Context, refType ledger.ReferenceType, refID int64) error {
	kept := t.store.ledger[:0]
	for _, e := range t.store.ledger {
		if e.ReferenceType == refType && e.ReferenceID == refID {
			continue
		}
		kept = append(kept, e)
	}
	t.store.ledger = kept
	return nil
}

func maxCode(s *mockStore, prefix string) string {
	var last string
	for _, doc := range s.docs {
		if strings.HasPrefix(doc.Code, prefix) && doc.Code > last {
			last = doc.Code
		}
	}
	return last
}

func newTestService(repo *mockRepository) *Service {
	return NewService(repo, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func saleRequest(items ...ItemInput) CreateRequest {
	return CreateRequest{Kind: KindSale, Items: items, DiscountType: DiscountAmount}
}

func purchaseRequest(items ...ItemInput) CreateRequest {
	return CreateRequest{Kind: KindPurchase, Items: items, DiscountType: DiscountAmount}
}

func TestCreateSalePostsDocumentAndLedger(t *testing.T) {
	repo := &mockRepository{store: newMockStore(1, 2)}
	svc := newTestService(repo)

	doc, err := svc.Create(context.Background(), saleRequest(
		ItemInput{ProductID: 1, Quantity: 2, UnitPrice: 50000},
		ItemInput{ProductID: 2, Quantity: 1, UnitPrice: 150000},
	))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(doc.Code, "HD"))
	assert.True(t, strings.HasSuffix(doc.Code, "0001"))
	assert.Equal(t, StatusCompleted, doc.Status)
	assert.InDelta(t, 250000.0, doc.TotalAmount, 1e-9)
	require.Len(t, doc.Items, 2)

	entries := repo.store.ledgerFor(1)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.DirectionOut, entries[0].Type)
	assert.Equal(t, -2.0, entries[0].Quantity)
	assert.Nil(t, entries[0].UnitCost)
	assert.Equal(t, ledger.ReferenceSale, entries[0].ReferenceType)
	assert.Equal(t, doc.ID, entries[0].ReferenceID)
}

func TestCreateEmptyItemsRejected(t *testing.T) {
	repo := &mockRepository{store: newMockStore(1)}
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), saleRequest())
	assert.ErrorIs(t, err, ErrEmptyItems)
	assert.Empty(t, repo.store.docs)
}

func TestCreateUnknownProductRejected(t *testing.T) {
	repo := &mockRepository{store: newMockStore(1)}
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), saleRequest(
		ItemInput{ProductID: 99, Quantity: 1, UnitPrice: 1000},
	))
	assert.ErrorIs(t, err, ErrUnknownProduct)
	assert.Empty(t, repo.store.docs)
	assert.Empty(t, repo.store.ledger)
}

func TestCreateRollsBackOnLedgerFailure(t *testing.T) {
	repo := &mockRepository{store: newMockStore(1), failAppendLedger: true}
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), saleRequest(
		ItemInput{ProductID: 1, Quantity: 1, UnitPrice: 1000},
	))
	require.Error(t, err)

	assert.Empty(t, repo.store.docs)
	assert.Empty(t, repo.store.items)
	assert.Empty(t, repo.store.ledger)
	assert.Equal(t, 0.0, ledger.CurrentStock(repo.store.ledgerFor(1)))
}

func TestCreateRetriesOnceOnCodeConflict(t *testing.T) {
	repo := &mockRepository{store: newMockStore(1)}
	svc := newTestService(repo)

	first, err := svc.Create(context.Background(), saleRequest(
		ItemInput{ProductID: 1, Quantity: 1, UnitPrice: 1000},
	))
	require.NoError(t, err)

	// Simulate a concurrent posting that already claimed the next number.
	repo.staleCode = first.Code
	second, err := svc.Create(context.Background(), saleRequest(
		ItemInput{ProductID: 1, Quantity: 1, UnitPrice: 1000},
	))
	require.NoError(t, err)
	assert.NotEqual(t, first.Code, second.Code)
}

func TestPurchaseThenSaleProjection(t *testing.T) {
	repo := &mockRepository{store: newMockStore(7)}
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), purchaseRequest(
		ItemInput{ProductID: 7, Quantity: 10, UnitPrice: 25000},
	))
	require.NoError(t, err)

	entries := repo.store.ledgerFor(7)
	assert.Equal(t, 10.0, ledger.CurrentStock(entries))
	assert.InDelta(t, 25000.0, ledger.AverageCost(entries), 1e-9)

	_, err = svc.Create(context.Background(), saleRequest(
		ItemInput{ProductID: 7, Quantity: 4, UnitPrice: 40000},
	))
	require.NoError(t, err)

	entries = repo.store.ledgerFor(7)
	assert.Equal(t, 6.0, ledger.CurrentStock(entries))
	assert.InDelta(t, 25000.0, ledger.AverageCost(entries), 1e-9)
}

func TestUpdateReplacesSubtree(t *testing.T) {
	repo := &mockRepository{store: newMockStore(1, 2)}
	svc := newTestService(repo)

	doc, err := svc.Create(context.Background(), purchaseRequest(
		ItemInput{ProductID: 1, Quantity: 5, UnitPrice: 10000},
	))
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), doc.ID, UpdateRequest{
		Items: []ItemInput{
			{ProductID: 2, Quantity: 3, UnitPrice: 20000},
		},
		DiscountType: DiscountAmount,
	})
	require.NoError(t, err)

	assert.Equal(t, doc.Code, updated.Code)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, int64(2), updated.Items[0].ProductID)

	assert.Empty(t, repo.store.ledgerFor(1))
	entries := repo.store.ledgerFor(2)
	require.Len(t, entries, 1)
	assert.Equal(t, 3.0, ledger.CurrentStock(entries))
}

func TestRepostWithIdenticalItemsKeepsProjection(t *testing.T) {
	repo := &mockRepository{store: newMockStore(1)}
	svc := newTestService(repo)

	items := []ItemInput{{ProductID: 1, Quantity: 5, UnitPrice: 10000}}
	doc, err := svc.Create(context.Background(), purchaseRequest(items...))
	require.NoError(t, err)

	stockBefore := ledger.CurrentStock(repo.store.ledgerFor(1))
	costBefore := ledger.AverageCost(repo.store.ledgerFor(1))

	_, err = svc.Update(context.Background(), doc.ID, UpdateRequest{Items: items, DiscountType: DiscountAmount})
	require.NoError(t, err)

	assert.Equal(t, stockBefore, ledger.CurrentStock(repo.store.ledgerFor(1)))
	assert.Equal(t, costBefore, ledger.AverageCost(repo.store.ledgerFor(1)))
}

func TestUpdateMissingDocument(t *testing.T) {
	repo := &mockRepository{store: newMockStore(1)}
	svc := newTestService(repo)

	_, err := svc.Update(context.Background(), 42, UpdateRequest{
		Items: []ItemInput{{ProductID: 1, Quantity: 1, UnitPrice: 1000}},
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRemovesSubtree(t *testing.T) {
	repo := &mockRepository{store: newMockStore(1)}
	svc := newTestService(repo)

	doc, err := svc.Create(context.Background(), saleRequest(
		ItemInput{ProductID: 1, Quantity: 2, UnitPrice: 5000},
	))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), doc.ID))

	assert.Empty(t, repo.store.docs)
	assert.Empty(t, repo.store.items)
	assert.Empty(t, repo.store.ledger)

	assert.ErrorIs(t, svc.Delete(context.Background(), doc.ID), ErrNotFound)
}

func TestPreviewCode(t *testing.T) {
	repo := &mockRepository{store: newMockStore(1)}
	svc := newTestService(repo)

	code, err := svc.PreviewCode(context.Background(), KindSale)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(code, "HD"))
	assert.True(t, strings.HasSuffix(code, "0001"))

	doc, err := svc.Create(context.Background(), saleRequest(
		ItemInput{ProductID: 1, Quantity: 1, UnitPrice: 1000},
	))
	require.NoError(t, err)

	next, err := svc.PreviewCode(context.Background(), KindSale)
	require.NoError(t, err)
	assert.NotEqual(t, doc.Code, next)
	assert.True(t, strings.HasSuffix(next, "0002"))
}
