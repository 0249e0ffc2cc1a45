package procurement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/tilekart/tilekart/internal/billing"
	"github.com/tilekart/tilekart/internal/shared"
)

// SupplierDirectory verifies supplier references against masterdata.
type SupplierDirectory interface {
	Exists(ctx context.Context, userID, supplierID int64) (bool, error)
}

// ProductDirectory verifies product references against masterdata.
type ProductDirectory interface {
	Exists(ctx context.Context, userID, productID int64) (bool, error)
}

// Service implements the purchase order operations.
type Service struct {
	repo      Repository
	suppliers SupplierDirectory
	products  ProductDirectory
	audit     *shared.AuditLogger
	stale     *shared.StaleNotifier
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewService builds a Service.
func NewService(repo Repository, suppliers SupplierDirectory, products ProductDirectory, audit *shared.AuditLogger, stale *shared.StaleNotifier, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		suppliers: suppliers,
		products:  products,
		audit:     audit,
		stale:     stale,
		validate:  validator.New(),
		logger:    logger,
	}
}

// Create inserts the purchase order and its items atomically.
func (s *Service) Create(ctx context.Context, userID int64, req CreatePORequest) (*PurchaseOrderDetail, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	ok, err := s.suppliers.Exists(ctx, userID, req.SupplierID)
	if err != nil {
		return nil, fmt.Errorf("verify supplier: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: supplier %d", shared.ErrNotFound, req.SupplierID)
	}
	for _, item := range req.Items {
		ok, err := s.products.Exists(ctx, userID, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("verify product: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: product %d", shared.ErrNotFound, item.ProductID)
		}
	}

	gstRate := billing.DefaultGSTRate
	if req.GSTRate != nil {
		gstRate = *req.GSTRate
	}
	lineTotals := make([]float64, 0, len(req.Items))
	for _, item := range req.Items {
		lineTotals = append(lineTotals, billing.LineTotal(item.Quantity, item.UnitPrice, 0))
	}
	totals := billing.CalculateTotals(lineTotals, 0, gstRate, false)

	po := PurchaseOrder{
		UserID:               userID,
		SupplierID:           req.SupplierID,
		OrderDate:            req.OrderDate,
		ExpectedDeliveryDate: normalizeDate(req.ExpectedDeliveryDate),
		Status:               POStatusDraft,
		Subtotal:             totals.Subtotal,
		GSTAmount:            totals.TaxAmount,
		TotalAmount:          totals.Total,
		BalanceAmount:        totals.Total,
		Notes:                req.Notes,
		DeliveryAddress:      req.DeliveryAddress,
	}

	var poID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		number, err := repo.NextNumber(ctx, userID)
		if err != nil {
			return err
		}
		po.PONumber = number

		id, err := repo.Create(ctx, po)
		if err != nil {
			return err
		}
		poID = id

		for i, item := range req.Items {
			if _, err := repo.InsertItem(ctx, PurchaseOrderItem{
				PurchaseOrderID: id,
				ProductID:       item.ProductID,
				Quantity:        item.Quantity,
				Area:            item.Area,
				UnitPrice:       item.UnitPrice,
				TotalPrice:      lineTotals[i],
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.mapErr(err)
	}

	s.recordAudit(ctx, userID, "create", poID, nil, map[string]any{
		"po_number":    po.PONumber,
		"total_amount": po.TotalAmount,
	})
	s.stale.Notify(ctx, "/purchase-orders")

	return s.repo.Get(ctx, userID, poID)
}

func (s *Service) Get(ctx context.Context, userID, id int64) (*PurchaseOrderDetail, error) {
	detail, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, s.mapErr(err)
	}
	return detail, nil
}

func (s *Service) List(ctx context.Context, userID int64, req ListPOsRequest) ([]PurchaseOrderSummary, int, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	return s.repo.List(ctx, userID, req)
}

func (s *Service) Search(ctx context.Context, userID int64, query string, limit int) ([]PurchaseOrderSummary, error) {
	return s.repo.Search(ctx, userID, query, limit)
}

func (s *Service) Update(ctx context.Context, userID, id int64, req UpdatePORequest) (*PurchaseOrderDetail, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	if !req.HasChanges() {
		return s.Get(ctx, userID, id)
	}
	if req.SupplierID != nil {
		ok, err := s.suppliers.Exists(ctx, userID, *req.SupplierID)
		if err != nil {
			return nil, fmt.Errorf("verify supplier: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: supplier %d", shared.ErrNotFound, *req.SupplierID)
		}
	}
	req.ExpectedDeliveryDate = normalizeDate(req.ExpectedDeliveryDate)
	if err := s.repo.Update(ctx, userID, id, req); err != nil {
		return nil, s.mapErr(err)
	}

	s.recordAudit(ctx, userID, "update", id, nil, nil)
	s.stale.Notify(ctx, "/purchase-orders")

	return s.repo.Get(ctx, userID, id)
}

// UpdateStatus performs a manual transition validated against the table.
func (s *Service) UpdateStatus(ctx context.Context, userID, id int64, status POStatus) (*PurchaseOrderDetail, error) {
	existing, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, s.mapErr(err)
	}
	if !CanTransition(existing.Status, status) {
		return nil, fmt.Errorf("%w: cannot move purchase order from %s to %s", shared.ErrValidation, existing.Status, status)
	}
	if err := s.repo.UpdateStatus(ctx, userID, id, status); err != nil {
		return nil, s.mapErr(err)
	}

	s.recordAudit(ctx, userID, "status_change", id,
		map[string]any{"status": existing.Status},
		map[string]any{"status": status},
	)
	s.stale.Notify(ctx, "/purchase-orders")

	return s.repo.Get(ctx, userID, id)
}

// Delete removes the order and its items in one transaction.
func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.DeleteItems(ctx, userID, id); err != nil {
			return err
		}
		return repo.Delete(ctx, userID, id)
	})
	if err != nil {
		return s.mapErr(err)
	}

	s.recordAudit(ctx, userID, "delete", id, nil, nil)
	s.stale.Notify(ctx, "/purchase-orders")
	return nil
}

// RecordPayment applies a payment directly to the order's paid/balance
// fields under a row lock. Purchase order payments carry no ledger rows;
// only the running totals move.
func (s *Service) RecordPayment(ctx context.Context, userID int64, req RecordPOPaymentRequest) (*PurchaseOrderDetail, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		po, err := repo.GetForUpdate(ctx, userID, req.PurchaseOrderID)
		if err != nil {
			return err
		}
		newPaid, newBalance := billing.ApplyPayment(po.TotalAmount, po.PaidAmount, req.Amount)
		return repo.SetPaidBalance(ctx, userID, req.PurchaseOrderID, newPaid, newBalance)
	})
	if err != nil {
		return nil, s.mapErr(err)
	}

	s.recordAudit(ctx, userID, "payment", req.PurchaseOrderID, nil, map[string]any{"amount": req.Amount})
	s.stale.Notify(ctx, "/purchase-orders")

	return s.repo.Get(ctx, userID, req.PurchaseOrderID)
}

// ReceiveItems updates received quantities. The parent status stays
// untouched; moving to Partially Received/Received remains a caller action.
func (s *Service) ReceiveItems(ctx context.Context, userID, poID int64, req ReceiveItemsRequest) (*PurchaseOrderDetail, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		for _, item := range req.Items {
			if err := repo.SetReceivedQuantity(ctx, userID, poID, item.ItemID, item.ReceivedQuantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.mapErr(err)
	}

	s.recordAudit(ctx, userID, "receive", poID, nil, nil)
	s.stale.Notify(ctx, "/purchase-orders")

	return s.repo.Get(ctx, userID, poID)
}

// Stats aggregates the user's purchase orders; the reads run concurrently.
func (s *Service) Stats(ctx context.Context, userID int64) (*Stats, error) {
	var (
		stats Stats
		total float64
		paid  float64
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		count, err := s.repo.Count(ctx, userID)
		if err != nil {
			return err
		}
		stats.TotalOrders = count
		return nil
	})
	g.Go(func() error {
		byStatus, err := s.repo.CountByStatus(ctx, userID)
		if err != nil {
			return err
		}
		stats.ByStatus = byStatus
		return nil
	})
	g.Go(func() error {
		t, p, err := s.repo.SumAmounts(ctx, userID)
		if err != nil {
			return err
		}
		total, paid = t, p
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats.TotalAmount = total
	stats.PaidAmount = paid
	stats.Outstanding = total - paid
	if stats.ByStatus == nil {
		stats.ByStatus = make(map[POStatus]int64)
	}
	return &stats, nil
}

// normalizeDate maps zero-valued dates to nil so empty form inputs land as
// NULL rather than 0001-01-01.
func normalizeDate(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	return t
}

func (s *Service) recordAudit(ctx context.Context, userID int64, action string, poID int64, oldValues, newValues map[string]any) {
	meta := shared.RequestMetaFromContext(ctx)
	s.audit.Record(ctx, shared.AuditEntry{
		UserID:    userID,
		Action:    "purchase_order." + action,
		TableName: "purchase_orders",
		RecordID:  strconv.FormatInt(poID, 10),
		OldValues: oldValues,
		NewValues: newValues,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})
}

func (s *Service) mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: purchase order", shared.ErrNotFound)
	}
	if errors.Is(err, ErrDuplicateNumber) {
		return fmt.Errorf("%w: po number", shared.ErrDuplicate)
	}
	return err
}
