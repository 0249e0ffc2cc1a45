package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/tilekart/tilekart/internal/shared"
)

// CustomerDirectory verifies customer references against masterdata.
type CustomerDirectory interface {
	Exists(ctx context.Context, userID, customerID int64) (bool, error)
}

// ProductDirectory verifies product references against masterdata.
type ProductDirectory interface {
	Exists(ctx context.Context, userID, productID int64) (bool, error)
}

// Service implements the billing operations. Every method takes the acting
// user's id explicitly; nothing here resolves the current user ambiently.
type Service struct {
	repo      Repository
	customers CustomerDirectory
	products  ProductDirectory
	audit     *shared.AuditLogger
	stale     *shared.StaleNotifier
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewService builds a Service.
func NewService(repo Repository, customers CustomerDirectory, products ProductDirectory, audit *shared.AuditLogger, stale *shared.StaleNotifier, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		customers: customers,
		products:  products,
		audit:     audit,
		stale:     stale,
		validate:  validator.New(),
		logger:    logger,
	}
}

// Create inserts the invoice and its items atomically. The invoice number is
// generated inside the same transaction so two concurrent creates cannot
// commit the same number.
func (s *Service) Create(ctx context.Context, userID int64, req CreateInvoiceRequest) (*InvoiceDetail, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	if req.DueDate.Before(req.InvoiceDate) {
		return nil, fmt.Errorf("%w: due date precedes invoice date", shared.ErrValidation)
	}

	ok, err := s.customers.Exists(ctx, userID, req.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("verify customer: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: customer %d", shared.ErrNotFound, req.CustomerID)
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

	gstRate := DefaultGSTRate
	if req.GSTRate != nil {
		gstRate = *req.GSTRate
	}
	lineTotals := make([]float64, 0, len(req.Items))
	for _, item := range req.Items {
		lineTotals = append(lineTotals, LineTotal(item.Quantity, item.UnitPrice, item.DiscountPercent))
	}
	totals := CalculateTotals(lineTotals, req.DiscountAmount, gstRate, req.InterState)

	inv := Invoice{
		UserID:         userID,
		CustomerID:     req.CustomerID,
		InvoiceDate:    req.InvoiceDate,
		DueDate:        req.DueDate,
		PaymentTerms:   req.PaymentTerms,
		Status:         InvoiceStatusDraft,
		Subtotal:       totals.Subtotal,
		DiscountAmount: req.DiscountAmount,
		CGSTAmount:     totals.CGSTAmount,
		SGSTAmount:     totals.SGSTAmount,
		IGSTAmount:     totals.IGSTAmount,
		TotalAmount:    totals.Total,
		PaidAmount:     0,
		BalanceAmount:  totals.Total,
		Notes:          req.Notes,
		Terms:          req.Terms,
	}

	var invoiceID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		number, err := repo.NextNumber(ctx, userID, InvoiceNumberPrefix)
		if err != nil {
			return err
		}
		inv.InvoiceNumber = number

		id, err := repo.Create(ctx, inv)
		if err != nil {
			return err
		}
		invoiceID = id

		for i, item := range req.Items {
			if _, err := repo.InsertItem(ctx, InvoiceItem{
				InvoiceID:       id,
				ProductID:       item.ProductID,
				Quantity:        item.Quantity,
				UnitPrice:       item.UnitPrice,
				DiscountPercent: item.DiscountPercent,
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

	s.recordAudit(ctx, userID, "create", invoiceID, nil, map[string]any{
		"invoice_number": inv.InvoiceNumber,
		"total_amount":   inv.TotalAmount,
	})
	s.stale.Notify(ctx, "/billing")

	return s.repo.Get(ctx, userID, invoiceID)
}

// Get returns the joined invoice detail.
func (s *Service) Get(ctx context.Context, userID, id int64) (*InvoiceDetail, error) {
	detail, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, s.mapErr(err)
	}
	return detail, nil
}

// List returns invoice summaries matching the filters.
func (s *Service) List(ctx context.Context, userID int64, req ListInvoicesRequest) ([]InvoiceSummary, int, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	return s.repo.List(ctx, userID, req)
}

// Search matches invoice number or customer name.
func (s *Service) Search(ctx context.Context, userID int64, query string, limit int) ([]InvoiceSummary, error) {
	return s.repo.Search(ctx, userID, query, limit)
}

// Update applies a partial update. Monetary fields are not updatable here;
// they only change through item edits and the payment ledger.
func (s *Service) Update(ctx context.Context, userID, id int64, req UpdateInvoiceRequest) (*InvoiceDetail, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	if !req.HasChanges() {
		return s.Get(ctx, userID, id)
	}
	if req.CustomerID != nil {
		ok, err := s.customers.Exists(ctx, userID, *req.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("verify customer: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: customer %d", shared.ErrNotFound, *req.CustomerID)
		}
	}
	if err := s.repo.Update(ctx, userID, id, req); err != nil {
		return nil, s.mapErr(err)
	}

	s.recordAudit(ctx, userID, "update", id, nil, nil)
	s.stale.Notify(ctx, "/billing")

	return s.repo.Get(ctx, userID, id)
}

// UpdateStatus performs a manual status transition, validated against the
// transition table. Partial/Paid/Overdue are rejected here; they belong to
// the ledger and the sweep.
func (s *Service) UpdateStatus(ctx context.Context, userID, id int64, status InvoiceStatus) (*InvoiceDetail, error) {
	existing, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, s.mapErr(err)
	}
	if !CanTransition(existing.Status, status) {
		return nil, fmt.Errorf("%w: cannot move invoice from %s to %s", shared.ErrValidation, existing.Status, status)
	}
	if err := s.repo.UpdateStatus(ctx, userID, id, status); err != nil {
		return nil, s.mapErr(err)
	}

	s.recordAudit(ctx, userID, "status_change", id,
		map[string]any{"status": existing.Status},
		map[string]any{"status": status},
	)
	s.stale.Notify(ctx, "/billing")

	return s.repo.Get(ctx, userID, id)
}

// Delete removes the invoice and its items in one transaction. Invoices with
// recorded payments are rejected; deleting them would orphan ledger history.
func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		count, err := repo.CountPayments(ctx, userID, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: invoice has recorded payments", shared.ErrValidation)
		}
		if err := repo.DeleteItems(ctx, userID, id); err != nil {
			return err
		}
		return repo.Delete(ctx, userID, id)
	})
	if err != nil {
		return s.mapErr(err)
	}

	s.recordAudit(ctx, userID, "delete", id, nil, nil)
	s.stale.Notify(ctx, "/billing")
	return nil
}

// RecordPayment appends a payment and recomputes the parent's paid, balance
// and status in a single transaction. The invoice becomes Paid exactly when
// the balance reaches zero, Partial otherwise.
func (s *Service) RecordPayment(ctx context.Context, userID int64, req RecordPaymentRequest) (*InvoiceDetail, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	if !ValidPaymentMethod(req.Method) {
		return nil, fmt.Errorf("%w: unknown payment method %q", shared.ErrValidation, req.Method)
	}

	var newStatus InvoiceStatus
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		inv, err := repo.GetForUpdate(ctx, userID, req.InvoiceID)
		if err != nil {
			return err
		}

		if _, err := repo.InsertPayment(ctx, Payment{
			InvoiceID:       req.InvoiceID,
			Amount:          req.Amount,
			Method:          req.Method,
			PaymentDate:     req.PaymentDate,
			ReferenceNumber: req.ReferenceNumber,
			Notes:           req.Notes,
		}); err != nil {
			return err
		}

		newPaid, newBalance := ApplyPayment(inv.TotalAmount, inv.PaidAmount, req.Amount)
		newStatus = InvoiceStatusPartial
		if newBalance == 0 {
			newStatus = InvoiceStatusPaid
		}
		return repo.SetPaidBalanceStatus(ctx, userID, req.InvoiceID, newPaid, newBalance, newStatus)
	})
	if err != nil {
		return nil, s.mapErr(err)
	}

	s.recordAudit(ctx, userID, "payment", req.InvoiceID, nil, map[string]any{
		"amount": req.Amount,
		"method": req.Method,
		"status": newStatus,
	})
	s.stale.Notify(ctx, "/billing")

	return s.repo.Get(ctx, userID, req.InvoiceID)
}

// GenerateNumber previews the next invoice number for the user.
func (s *Service) GenerateNumber(ctx context.Context, userID int64, prefix string) (string, error) {
	if prefix == "" {
		prefix = InvoiceNumberPrefix
	}
	return s.repo.NextNumber(ctx, userID, prefix)
}

// Stats aggregates the user's invoices for the dashboard. The three queries
// are independent reads and run concurrently.
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
		stats.TotalInvoices = count
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
		stats.ByStatus = make(map[InvoiceStatus]int64)
	}
	return &stats, nil
}

func (s *Service) recordAudit(ctx context.Context, userID int64, action string, invoiceID int64, oldValues, newValues map[string]any) {
	meta := shared.RequestMetaFromContext(ctx)
	s.audit.Record(ctx, shared.AuditEntry{
		UserID:    userID,
		Action:    "invoice." + action,
		TableName: "invoices",
		RecordID:  strconv.FormatInt(invoiceID, 10),
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
		return fmt.Errorf("%w: invoice", shared.ErrNotFound)
	}
	if errors.Is(err, ErrDuplicateNumber) {
		return fmt.Errorf("%w: invoice number", shared.ErrDuplicate)
	}
	return err
}
