package expenses

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilekart/tilekart/internal/shared"
)

type fakeRepo struct {
	nextID     int64
	expenses   map[int64]*Expense
	categories map[int64]*Category
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		expenses:   make(map[int64]*Expense),
		categories: make(map[int64]*Category),
	}
}

func (f *fakeRepo) Create(_ context.Context, e Expense) (int64, error) {
	f.nextID++
	e.ID = f.nextID
	f.expenses[e.ID] = &e
	return e.ID, nil
}

func (f *fakeRepo) Get(_ context.Context, userID, id int64) (*Expense, error) {
	e, ok := f.expenses[id]
	if !ok || e.UserID != userID {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeRepo) List(_ context.Context, userID int64, _ ListExpensesRequest) ([]Expense, int, error) {
	var out []Expense
	for _, e := range f.expenses {
		if e.UserID == userID {
			out = append(out, *e)
		}
	}
	return out, len(out), nil
}

func (f *fakeRepo) Update(_ context.Context, userID, id int64, req UpdateExpenseRequest) error {
	e, ok := f.expenses[id]
	if !ok || e.UserID != userID {
		return ErrNotFound
	}
	if req.Category != nil {
		e.Category = *req.Category
	}
	if req.Amount != nil {
		e.Amount = *req.Amount
	}
	if req.PaymentMethod != nil {
		e.PaymentMethod = *req.PaymentMethod
	}
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, userID, id int64) error {
	e, ok := f.expenses[id]
	if !ok || e.UserID != userID {
		return ErrNotFound
	}
	delete(f.expenses, id)
	return nil
}

func (f *fakeRepo) Count(_ context.Context, userID int64) (int64, error) {
	var n int64
	for _, e := range f.expenses {
		if e.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) SumByCategory(_ context.Context, userID int64) (map[string]float64, error) {
	sums := make(map[string]float64)
	for _, e := range f.expenses {
		if e.UserID == userID {
			sums[e.Category] += e.Amount
		}
	}
	return sums, nil
}

func (f *fakeRepo) CreateCategory(_ context.Context, c Category) (int64, error) {
	for _, existing := range f.categories {
		if existing.UserID == c.UserID && existing.Name == c.Name {
			return 0, ErrDuplicateCategory
		}
	}
	f.nextID++
	c.ID = f.nextID
	f.categories[c.ID] = &c
	return c.ID, nil
}

func (f *fakeRepo) ListCategories(_ context.Context, userID int64) ([]Category, error) {
	var out []Category
	for _, c := range f.categories {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeRepo) DeleteCategory(_ context.Context, userID, id int64) error {
	c, ok := f.categories[id]
	if !ok || c.UserID != userID {
		return ErrNotFound
	}
	delete(f.categories, id)
	return nil
}

func newTestService(repo *fakeRepo) *Service {
	return NewService(repo, nil, nil, slog.Default())
}

func createRequest() CreateExpenseRequest {
	return CreateExpenseRequest{
		ExpenseDate:   time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Category:      "Transport",
		Amount:        2500,
		PaymentMethod: "Cash",
	}
}

func TestServiceCreate(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	e, err := svc.Create(context.Background(), 7, createRequest())
	require.NoError(t, err)
	assert.Equal(t, "Transport", e.Category)
	assert.Equal(t, 2500.0, e.Amount)
}

func TestServiceCreateUnknownPaymentMethod(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	req := createRequest()
	req.PaymentMethod = "Barter"
	_, err := svc.Create(context.Background(), 7, req)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestServiceUpdateRejectsUnknownPaymentMethod(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	e, err := svc.Create(ctx, 7, createRequest())
	require.NoError(t, err)

	bad := "IOU"
	_, err = svc.Update(ctx, 7, e.ID, UpdateExpenseRequest{PaymentMethod: &bad})
	assert.ErrorIs(t, err, shared.ErrValidation)

	good := "UPI"
	e, err = svc.Update(ctx, 7, e.ID, UpdateExpenseRequest{PaymentMethod: &good})
	require.NoError(t, err)
	assert.Equal(t, "UPI", e.PaymentMethod)
}

func TestServiceOwnershipIsolation(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	e, err := svc.Create(ctx, 7, createRequest())
	require.NoError(t, err)

	_, err = svc.Get(ctx, 8, e.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	err = svc.Delete(ctx, 8, e.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestServiceStats(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	for _, e := range []struct {
		category string
		amount   float64
	}{
		{"Transport", 2500},
		{"Transport", 1500},
		{"Rent", 30000},
	} {
		req := createRequest()
		req.Category = e.category
		req.Amount = e.amount
		_, err := svc.Create(ctx, 7, req)
		require.NoError(t, err)
	}

	stats, err := svc.Stats(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalExpenses)
	assert.Equal(t, 4000.0, stats.ByCategory["Transport"])
	assert.Equal(t, 30000.0, stats.ByCategory["Rent"])
	assert.Equal(t, 34000.0, stats.TotalAmount)
}

func TestServiceStatsEmpty(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	stats, err := svc.Stats(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalExpenses)
	assert.Equal(t, 0.0, stats.TotalAmount)
	assert.NotNil(t, stats.ByCategory)
}

func TestServiceCategories(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	id, err := svc.CreateCategory(ctx, 7, CreateCategoryRequest{Name: "Transport"})
	require.NoError(t, err)

	_, err = svc.CreateCategory(ctx, 7, CreateCategoryRequest{Name: "Transport"})
	assert.ErrorIs(t, err, shared.ErrDuplicate)

	cats, err := svc.ListCategories(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, cats, 1)

	require.NoError(t, svc.DeleteCategory(ctx, 7, id))
	cats, err = svc.ListCategories(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, cats)
}
