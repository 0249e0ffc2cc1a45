package delivery

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

// Service implements the delivery operations.
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

// Create inserts the delivery and its items atomically.
func (s *Service) Create(ctx context.Context, userID int64, req CreateDeliveryRequest) (*DeliveryDetail, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
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

	d := Delivery{
		UserID:          userID,
		CustomerID:      req.CustomerID,
		DeliveryDate:    req.DeliveryDate,
		DeliveryAddress: req.DeliveryAddress,
		ContactPerson:   req.ContactPerson,
		ContactPhone:    req.ContactPhone,
		Status:          StatusScheduled,
		Notes:           req.Notes,
	}

	var deliveryID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		number, err := repo.NextNumber(ctx, userID)
		if err != nil {
			return err
		}
		d.DeliveryNumber = number

		id, err := repo.Create(ctx, d)
		if err != nil {
			return err
		}
		deliveryID = id

		for _, item := range req.Items {
			if _, err := repo.InsertItem(ctx, DeliveryItem{
				DeliveryID:  id,
				ProductID:   item.ProductID,
				Quantity:    item.Quantity,
				AreaCovered: item.AreaCovered,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.mapErr(err)
	}

	s.recordAudit(ctx, userID, "create", deliveryID, nil, map[string]any{"delivery_number": d.DeliveryNumber})
	s.stale.Notify(ctx, "/deliveries")

	return s.repo.Get(ctx, userID, deliveryID)
}

func (s *Service) Get(ctx context.Context, userID, id int64) (*DeliveryDetail, error) {
	detail, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, s.mapErr(err)
	}
	return detail, nil
}

func (s *Service) List(ctx context.Context, userID int64, req ListDeliveriesRequest) ([]DeliverySummary, int, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	return s.repo.List(ctx, userID, req)
}

func (s *Service) Search(ctx context.Context, userID int64, query string, limit int) ([]DeliverySummary, error) {
	return s.repo.Search(ctx, userID, query, limit)
}

func (s *Service) Update(ctx context.Context, userID, id int64, req UpdateDeliveryRequest) (*DeliveryDetail, error) {
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
	s.stale.Notify(ctx, "/deliveries")

	return s.repo.Get(ctx, userID, id)
}

// UpdateStatus performs a manual transition validated against the table.
func (s *Service) UpdateStatus(ctx context.Context, userID, id int64, status Status) (*DeliveryDetail, error) {
	existing, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, s.mapErr(err)
	}
	if !CanTransition(existing.Status, status) {
		return nil, fmt.Errorf("%w: cannot move delivery from %s to %s", shared.ErrValidation, existing.Status, status)
	}
	if err := s.repo.UpdateStatus(ctx, userID, id, status); err != nil {
		return nil, s.mapErr(err)
	}

	s.recordAudit(ctx, userID, "status_change", id,
		map[string]any{"status": existing.Status},
		map[string]any{"status": status},
	)
	s.stale.Notify(ctx, "/deliveries")

	return s.repo.Get(ctx, userID, id)
}

// Delete removes the delivery and its items in one transaction.
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
	s.stale.Notify(ctx, "/deliveries")
	return nil
}

// GenerateNumber previews the next delivery number without reserving it.
func (s *Service) GenerateNumber(ctx context.Context, userID int64) (string, error) {
	return s.repo.NextNumber(ctx, userID)
}

// Stats aggregates the user's deliveries; the reads run concurrently.
func (s *Service) Stats(ctx context.Context, userID int64) (*Stats, error) {
	var stats Stats

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		count, err := s.repo.Count(ctx, userID)
		if err != nil {
			return err
		}
		stats.TotalDeliveries = count
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
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if stats.ByStatus == nil {
		stats.ByStatus = make(map[Status]int64)
	}
	return &stats, nil
}

func (s *Service) recordAudit(ctx context.Context, userID int64, action string, deliveryID int64, oldValues, newValues map[string]any) {
	meta := shared.RequestMetaFromContext(ctx)
	s.audit.Record(ctx, shared.AuditEntry{
		UserID:    userID,
		Action:    "delivery." + action,
		TableName: "deliveries",
		RecordID:  strconv.FormatInt(deliveryID, 10),
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
		return fmt.Errorf("%w: delivery", shared.ErrNotFound)
	}
	if errors.Is(err, ErrDuplicateNumber) {
		return fmt.Errorf("%w: delivery number", shared.ErrDuplicate)
	}
	return err
}
