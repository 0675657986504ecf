package documents

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-pos/meridian-pos/internal/ledger"
)

// StockCacheInvalidator drops cached stock figures after a posting commits.
// Cache invalidation is best-effort; the ledger stays the source of truth.
type StockCacheInvalidator interface {
	InvalidateStock(ctx context.Context, productIDs []int64) error
}

// Service orchestrates document posting: code allocation, document and item
// writes, and ledger entries, all inside one transaction per operation.
type Service struct {
	repo        Repository
	invalidator StockCacheInvalidator
	logger      *slog.Logger
	now         func() time.Time
}

func NewService(repo Repository, invalidator StockCacheInvalidator, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		invalidator: invalidator,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *Service) Get(ctx context.Context, id int64) (Document, error) {
	return s.repo.GetDocument(ctx, id)
}

func (s *Service) List(ctx context.Context, kind Kind, limit, offset int) ([]Document, error) {
	return s.repo.ListDocuments(ctx, kind, limit, offset)
}

// PreviewCode returns the next unreserved code for a kind. Best-effort: the
// number is not held, the authoritative allocation happens at posting time.
func (s *Service) PreviewCode(ctx context.Context, kind Kind) (string, error) {
	prefix, err := CodePrefix(kind, s.now())
	if err != nil {
		return "", err
	}
	return s.repo.PeekNextCode(ctx, prefix)
}

// Create posts a new document. On a code collision with a concurrent
// posting the whole transaction is retried once with a fresh code.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Document, error) {
	if len(req.Items) == 0 {
		return Document{}, ErrEmptyItems
	}
	prefix, err := CodePrefix(req.Kind, s.now())
	if err != nil {
		return Document{}, err
	}
	req = normalizeCreate(req)

	var id int64
	post := func() error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			if err := requireProducts(ctx, tx, req.Items); err != nil {
				return err
			}
			code, err := tx.NextCode(ctx, prefix)
			if err != nil {
				return err
			}
			id, err = tx.InsertDocument(ctx, Document{
				Code:          code,
				Kind:          req.Kind,
				PartyID:       req.PartyID,
				TotalAmount:   ComputeTotal(req.Kind, req.Items, req.DiscountType, req.DiscountValue, req.OtherFee),
				DiscountType:  req.DiscountType,
				DiscountValue: req.DiscountValue,
				OtherFee:      req.OtherFee,
				PaymentMethod: req.PaymentMethod,
				PaidAmount:    req.PaidAmount,
				Note:          req.Note,
				Status:        StatusCompleted,
			})
			if err != nil {
				return err
			}
			if err := tx.InsertItems(ctx, id, req.Items); err != nil {
				return err
			}
			return tx.AppendLedger(ctx, ledgerEntries(req.Kind, id, req.Items))
		})
	}

	postingID := uuid.NewString()
	if err := post(); err != nil {
		if !IsCodeConflict(err) {
			return Document{}, err
		}
		s.logger.Warn("document code conflict, retrying posting",
			slog.String("posting_id", postingID),
			slog.String("prefix", prefix),
		)
		if err := post(); err != nil {
			return Document{}, err
		}
	}
	s.logger.Info("document posted",
		slog.String("posting_id", postingID),
		slog.String("kind", string(req.Kind)),
		slog.Int64("document_id", id),
	)

	s.invalidateStock(ctx, productIDs(req.Items))
	return s.repo.GetDocument(ctx, id)
}

// Update replaces the whole document subtree: old ledger rows and items are
// deleted and the new set reinserted inside one transaction.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (Document, error) {
	if len(req.Items) == 0 {
		return Document{}, ErrEmptyItems
	}

	before, err := s.repo.GetDocument(ctx, id)
	if err != nil {
		return Document{}, err
	}
	affected := productIDs(req.Items)
	for _, it := range before.Items {
		affected = append(affected, it.ProductID)
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.GetDocumentForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := requireProducts(ctx, tx, req.Items); err != nil {
			return err
		}
		if err := tx.RemoveLedgerByReference(ctx, referenceType(existing.Kind), id); err != nil {
			return err
		}
		if err := tx.DeleteItems(ctx, id); err != nil {
			return err
		}
		existing.PartyID = req.PartyID
		existing.TotalAmount = ComputeTotal(existing.Kind, req.Items, req.DiscountType, req.DiscountValue, req.OtherFee)
		existing.DiscountType = normalizeDiscountType(req.DiscountType)
		existing.DiscountValue = req.DiscountValue
		existing.OtherFee = req.OtherFee
		existing.PaymentMethod = req.PaymentMethod
		existing.PaidAmount = req.PaidAmount
		existing.Note = req.Note
		if err := tx.UpdateDocument(ctx, existing); err != nil {
			return err
		}
		if err := tx.InsertItems(ctx, id, req.Items); err != nil {
			return err
		}
		return tx.AppendLedger(ctx, ledgerEntries(existing.Kind, id, req.Items))
	})
	if err != nil {
		return Document{}, err
	}

	s.invalidateStock(ctx, affected)
	return s.repo.GetDocument(ctx, id)
}

// Delete removes the document, its items, and its ledger rows atomically.
func (s *Service) Delete(ctx context.Context, id int64) error {
	before, err := s.repo.GetDocument(ctx, id)
	if err != nil {
		return err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.GetDocumentForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.RemoveLedgerByReference(ctx, referenceType(existing.Kind), id); err != nil {
			return err
		}
		if err := tx.DeleteItems(ctx, id); err != nil {
			return err
		}
		return tx.DeleteDocument(ctx, id)
	})
	if err != nil {
		return err
	}

	ids := make([]int64, 0, len(before.Items))
	for _, it := range before.Items {
		ids = append(ids, it.ProductID)
	}
	s.invalidateStock(ctx, ids)
	return nil
}

func (s *Service) invalidateStock(ctx context.Context, productIDs []int64) {
	if s.invalidator == nil || len(productIDs) == 0 {
		return
	}
	if err := s.invalidator.InvalidateStock(ctx, productIDs); err != nil {
		s.logger.Warn("stock cache invalidation failed", slog.Any("error", err))
	}
}

func requireProducts(ctx context.Context, tx TxRepository, items []ItemInput) error {
	missing, err := tx.MissingProducts(ctx, productIDs(items))
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: ids %v", ErrUnknownProduct, missing)
	}
	return nil
}

// ledgerEntries maps document lines to stock movements. Purchases move
// stock in at the line's unit price; sales move stock out with no cost.
func ledgerEntries(kind Kind, docID int64, items []ItemInput) []ledger.Entry {
	entries := make([]ledger.Entry, 0, len(items))
	for _, in := range items {
		e := ledger.Entry{
			ProductID:     in.ProductID,
			ReferenceType: referenceType(kind),
			ReferenceID:   docID,
		}
		if kind == KindPurchase {
			e.Type = ledger.DirectionIn
			e.Quantity = in.Quantity
			cost := in.UnitPrice
			e.UnitCost = &cost
		} else {
			e.Type = ledger.DirectionOut
			e.Quantity = -in.Quantity
		}
		entries = append(entries, e)
	}
	return entries
}

func referenceType(kind Kind) ledger.ReferenceType {
	if kind == KindPurchase {
		return ledger.ReferencePurchase
	}
	return ledger.ReferenceSale
}

func productIDs(items []ItemInput) []int64 {
	ids := make([]int64, 0, len(items))
	for _, in := range items {
		ids = append(ids, in.ProductID)
	}
	return ids
}

func normalizeCreate(req CreateRequest) CreateRequest {
	req.DiscountType = normalizeDiscountType(req.DiscountType)
	return req
}

func normalizeDiscountType(dt DiscountType) DiscountType {
	if dt == "" {
		return DiscountAmount
	}
	return dt
}
