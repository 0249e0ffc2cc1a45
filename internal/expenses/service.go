package expenses

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/tilekart/tilekart/internal/billing"
	"github.com/tilekart/tilekart/internal/shared"
)

// Service implements the expense operations.
type Service struct {
	repo     Repository
	audit    *shared.AuditLogger
	stale    *shared.StaleNotifier
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService builds a Service.
func NewService(repo Repository, audit *shared.AuditLogger, stale *shared.StaleNotifier, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		audit:    audit,
		stale:    stale,
		validate: validator.New(),
		logger:   logger,
	}
}

func (s *Service) Create(ctx context.Context, userID int64, req CreateExpenseRequest) (*Expense, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	if !billing.ValidPaymentMethod(billing.PaymentMethod(req.PaymentMethod)) {
		return nil, fmt.Errorf("%w: unknown payment method %q", shared.ErrValidation, req.PaymentMethod)
	}

	id, err := s.repo.Create(ctx, Expense{
		UserID:          userID,
		ExpenseDate:     req.ExpenseDate,
		Category:        req.Category,
		Description:     req.Description,
		Amount:          req.Amount,
		PaymentMethod:   req.PaymentMethod,
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
	})
	if err != nil {
		return nil, s.mapErr(err)
	}

	s.recordAudit(ctx, userID, "create", id, nil, map[string]any{
		"category": req.Category,
		"amount":   req.Amount,
	})
	s.stale.Notify(ctx, "/expenses")

	return s.repo.Get(ctx, userID, id)
}

func (s *Service) Get(ctx context.Context, userID, id int64) (*Expense, error) {
	e, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, s.mapErr(err)
	}
	return e, nil
}

func (s *Service) List(ctx context.Context, userID int64, req ListExpensesRequest) ([]Expense, int, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	return s.repo.List(ctx, userID, req)
}

func (s *Service) Update(ctx context.Context, userID, id int64, req UpdateExpenseRequest) (*Expense, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	if !req.HasChanges() {
		return s.Get(ctx, userID, id)
	}
	if req.PaymentMethod != nil && !billing.ValidPaymentMethod(billing.PaymentMethod(*req.PaymentMethod)) {
		return nil, fmt.Errorf("%w: unknown payment method %q", shared.ErrValidation, *req.PaymentMethod)
	}
	if err := s.repo.Update(ctx, userID, id, req); err != nil {
		return nil, s.mapErr(err)
	}

	s.recordAudit(ctx, userID, "update", id, nil, nil)
	s.stale.Notify(ctx, "/expenses")

	return s.repo.Get(ctx, userID, id)
}

func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return s.mapErr(err)
	}

	s.recordAudit(ctx, userID, "delete", id, nil, nil)
	s.stale.Notify(ctx, "/expenses")
	return nil
}

// Stats aggregates the user's expenses; the reads run concurrently.
func (s *Service) Stats(ctx context.Context, userID int64) (*Stats, error) {
	var stats Stats

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		count, err := s.repo.Count(ctx, userID)
		if err != nil {
			return err
		}
		stats.TotalExpenses = count
		return nil
	})
	g.Go(func() error {
		sums, err := s.repo.SumByCategory(ctx, userID)
		if err != nil {
			return err
		}
		stats.ByCategory = sums
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if stats.ByCategory == nil {
		stats.ByCategory = make(map[string]float64)
	}
	for _, sum := range stats.ByCategory {
		stats.TotalAmount += sum
	}
	return &stats, nil
}

func (s *Service) CreateCategory(ctx context.Context, userID int64, req CreateCategoryRequest) (int64, error) {
	if err := s.validate.Struct(req); err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	id, err := s.repo.CreateCategory(ctx, Category{
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return 0, s.mapErr(err)
	}
	s.stale.Notify(ctx, "/expenses")
	return id, nil
}

func (s *Service) ListCategories(ctx context.Context, userID int64) ([]Category, error) {
	return s.repo.ListCategories(ctx, userID)
}

func (s *Service) DeleteCategory(ctx context.Context, userID, id int64) error {
	if err := s.repo.DeleteCategory(ctx, userID, id); err != nil {
		return s.mapErr(err)
	}
	s.stale.Notify(ctx, "/expenses")
	return nil
}

func (s *Service) recordAudit(ctx context.Context, userID int64, action string, expenseID int64, oldValues, newValues map[string]any) {
	meta := shared.RequestMetaFromContext(ctx)
	s.audit.Record(ctx, shared.AuditEntry{
		UserID:    userID,
		Action:    "expense." + action,
		TableName: "expenses",
		RecordID:  strconv.FormatInt(expenseID, 10),
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
		return fmt.Errorf("%w: expense", shared.ErrNotFound)
	}
	if errors.Is(err, ErrDuplicateCategory) {
		return fmt.Errorf("%w: category name", shared.ErrDuplicate)
	}
	return err
}
