package documents

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-pos/meridian-pos/internal/ledger"
	"github.com/meridian-pos/meridian-pos/internal/platform/db"
)

// Repository is the read surface plus the transactional entry point.
type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
	GetDocument(ctx context.Context, id int64) (Document, error)
	ListDocuments(ctx context.Context, kind Kind, limit, offset int) ([]Document, error)
	PeekNextCode(ctx context.Context, prefix string) (string, error)
}

// TxRepository exposes the write operations that must share one posting
// transaction. Ledger writes ride along so a document and its movements
// commit or roll back together.
type TxRepository interface {
	NextCode(ctx context.Context, prefix string) (string, error)
	InsertDocument(ctx context.Context, doc Document) (int64, error)
	InsertItems(ctx context.Context, docID int64, items []ItemInput) error
	DeleteItems(ctx context.Context, docID int64) error
	GetDocumentForUpdate(ctx context.Context, id int64) (Document, error)
	UpdateDocument(ctx context.Context, doc Document) error
	DeleteDocument(ctx context.Context, id int64) error
	MissingProducts(ctx context.Context, ids []int64) ([]int64, error)
	AppendLedger(ctx context.Context, entries []ledger.Entry) error
	RemoveLedgerByReference(ctx context.Context, refType ledger.ReferenceType, refID int64) error
}

type pgRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const documentColumns = `id, code, kind, party_id, total_amount, discount_type, discount_value,
	other_fee, payment_method, paid_amount, note, status, created_at, updated_at`

func (r *pgRepository) GetDocument(ctx context.Context, id int64) (Document, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	doc, err := scanDocument(row)
	if err != nil {
		return Document{}, err
	}
	items, err := loadItems(ctx, r.pool, id)
	if err != nil {
		return Document{}, err
	}
	doc.Items = items
	return doc, nil
}

func (r *pgRepository) ListDocuments(ctx context.Context, kind Kind, limit, offset int) ([]Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents`
	args := []any{}
	if kind != "" {
		query += ` WHERE kind = $1`
		args = append(args, string(kind))
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d`, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("documents: list: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("documents: iterate: %w", err)
	}
	return docs, nil
}

const maxCodeSQL = `SELECT code FROM documents WHERE code LIKE $1 ORDER BY code DESC LIMIT 1`

// PeekNextCode previews the next code without locking. The preview is
// best-effort; the authoritative allocation happens in NextCode under lock.
func (r *pgRepository) PeekNextCode(ctx context.Context, prefix string) (string, error) {
	var last string
	err := r.pool.QueryRow(ctx, maxCodeSQL, prefix+"%").Scan(&last)
	if errors.Is(err, pgx.ErrNoRows) {
		return nextInSeries("", prefix), nil
	}
	if err != nil {
		return "", fmt.Errorf("documents: peek next code: %w", err)
	}
	return nextInSeries(last, prefix), nil
}

type txRepository struct {
	tx pgx.Tx
}

// NextCode scans the greatest code in the series with a row lock so two
// concurrent postings of the same series serialize on the max row. A fresh
// series has no row to lock; the unique constraint on code backstops that
// window (the service retries once on conflict).
func (t *txRepository) NextCode(ctx context.Context, prefix string) (string, error) {
	var last string
	err := t.tx.QueryRow(ctx, maxCodeSQL+` FOR UPDATE`, prefix+"%").Scan(&last)
	if errors.Is(err, pgx.ErrNoRows) {
		return nextInSeries("", prefix), nil
	}
	if err != nil {
		return "", fmt.Errorf("documents: next code: %w", err)
	}
	return nextInSeries(last, prefix), nil
}

const insertDocumentSQL = `
INSERT INTO documents (code, kind, party_id, total_amount, discount_type, discount_value,
	other_fee, payment_method, paid_amount, note, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
RETURNING id`

func (t *txRepository) InsertDocument(ctx context.Context, doc Document) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, insertDocumentSQL,
		doc.Code, string(doc.Kind), doc.PartyID, doc.TotalAmount,
		string(doc.DiscountType), doc.DiscountValue, doc.OtherFee,
		doc.PaymentMethod, doc.PaidAmount, doc.Note, doc.Status,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("documents: insert document: %w", err)
	}
	return id, nil
}

const insertItemSQL = `
INSERT INTO document_items (document_id, product_id, quantity, unit_price, discount, total_amount)
VALUES ($1, $2, $3, $4, $5, $6)`

func (t *txRepository) InsertItems(ctx context.Context, docID int64, items []ItemInput) error {
	for _, in := range items {
		if _, err := t.tx.Exec(ctx, insertItemSQL,
			docID, in.ProductID, in.Quantity, in.UnitPrice, in.Discount, LineTotal(in),
		); err != nil {
			return fmt.Errorf("documents: insert item: %w", err)
		}
	}
	return nil
}

func (t *txRepository) DeleteItems(ctx context.Context, docID int64) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM document_items WHERE document_id = $1`, docID); err != nil {
		return fmt.Errorf("documents: delete items: %w", err)
	}
	return nil
}

func (t *txRepository) GetDocumentForUpdate(ctx context.Context, id int64) (Document, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1 FOR UPDATE`, id)
	return scanDocument(row)
}

const updateDocumentSQL = `
UPDATE documents SET party_id = $2, total_amount = $3, discount_type = $4, discount_value = $5,
	other_fee = $6, payment_method = $7, paid_amount = $8, note = $9, updated_at = NOW()
WHERE id = $1`

func (t *txRepository) UpdateDocument(ctx context.Context, doc Document) error {
	tag, err := t.tx.Exec(ctx, updateDocumentSQL,
		doc.ID, doc.PartyID, doc.TotalAmount, string(doc.DiscountType), doc.DiscountValue,
		doc.OtherFee, doc.PaymentMethod, doc.PaidAmount, doc.Note,
	)
	if err != nil {
		return fmt.Errorf("documents: update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepository) DeleteDocument(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("documents: delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MissingProducts returns the subset of ids with no matching product row.
func (t *txRepository) MissingProducts(ctx context.Context, ids []int64) ([]int64, error) {
	rows, err := t.tx.Query(ctx, `
SELECT wanted.id
FROM unnest($1::bigint[]) AS wanted(id)
LEFT JOIN products p ON p.id = wanted.id
WHERE p.id IS NULL`, ids)
	if err != nil {
		return nil, fmt.Errorf("documents: missing products: %w", err)
	}
	defer rows.Close()

	var missing []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("documents: scan missing product: %w", err)
		}
		missing = append(missing, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("documents: iterate missing products: %w", err)
	}
	return missing, nil
}

func (t *txRepository) AppendLedger(ctx context.Context, entries []ledger.Entry) error {
	return ledger.Append(ctx, t.tx, entries)
}

func (t *txRepository) RemoveLedgerByReference(ctx context.Context, refType ledger.ReferenceType, refID int64) error {
	return ledger.RemoveByReference(ctx, t.tx, refType, refID)
}

// IsCodeConflict reports whether err is the unique violation on
// documents.code raised when two postings allocated the same number.
func IsCodeConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" && pgErr.ConstraintName == "documents_code_key"
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	err := row.Scan(
		&doc.ID, &doc.Code, &doc.Kind, &doc.PartyID, &doc.TotalAmount,
		&doc.DiscountType, &doc.DiscountValue, &doc.OtherFee,
		&doc.PaymentMethod, &doc.PaidAmount, &doc.Note, &doc.Status,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("documents: scan document: %w", err)
	}
	return doc, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadItems(ctx context.Context, q querier, docID int64) ([]Item, error) {
	rows, err := q.Query(ctx, `
SELECT id, document_id, product_id, quantity, unit_price, discount, total_amount
FROM document_items WHERE document_id = $1 ORDER BY id`, docID)
	if err != nil {
		return nil, fmt.Errorf("documents: load items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.DocumentID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.Discount, &it.TotalAmount); err != nil {
			return nil, fmt.Errorf("documents: scan item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("documents: iterate items: %w", err)
	}
	return items, nil
}
