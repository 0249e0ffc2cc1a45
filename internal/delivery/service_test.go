package delivery

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilekart/tilekart/internal/shared"
)

type fakeRepo struct {
	nextID     int64
	deliveries map[int64]*Delivery
	items      map[int64][]DeliveryItem
	numSeq     int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		deliveries: make(map[int64]*Delivery),
		items:      make(map[int64][]DeliveryItem),
	}
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, f)
}

func (f *fakeRepo) Create(_ context.Context, d Delivery) (int64, error) {
	f.nextID++
	d.ID = f.nextID
	f.deliveries[d.ID] = &d
	return d.ID, nil
}

func (f *fakeRepo) InsertItem(_ context.Context, item DeliveryItem) (int64, error) {
	f.nextID++
	item.ID = f.nextID
	f.items[item.DeliveryID] = append(f.items[item.DeliveryID], item)
	return item.ID, nil
}

func (f *fakeRepo) Get(_ context.Context, userID, id int64) (*DeliveryDetail, error) {
	d, ok := f.deliveries[id]
	if !ok || d.UserID != userID {
		return nil, ErrNotFound
	}
	detail := DeliveryDetail{Delivery: *d, CustomerName: "Test Customer"}
	for _, it := range f.items[id] {
		detail.Items = append(detail.Items, DeliveryItemDetail{DeliveryItem: it, ProductName: "Test Product"})
	}
	return &detail, nil
}

func (f *fakeRepo) List(_ context.Context, userID int64, _ ListDeliveriesRequest) ([]DeliverySummary, int, error) {
	var out []DeliverySummary
	for _, d := range f.deliveries {
		if d.UserID == userID {
			out = append(out, DeliverySummary{Delivery: *d, CustomerName: "Test Customer"})
		}
	}
	return out, len(out), nil
}

func (f *fakeRepo) Search(_ context.Context, userID int64, query string, limit int) ([]DeliverySummary, error) {
	if limit <= 0 {
		limit = 50
	}
	needle := strings.ToLower(query)
	var out []DeliverySummary
	for _, d := range f.deliveries {
		if d.UserID != userID || len(out) >= limit {
			continue
		}
		if strings.Contains(strings.ToLower(d.DeliveryNumber), needle) ||
			strings.Contains(strings.ToLower("Test Customer"), needle) {
			out = append(out, DeliverySummary{Delivery: *d, CustomerName: "Test Customer"})
		}
	}
	return out, nil
}

func (f *fakeRepo) Update(_ context.Context, userID, id int64, req UpdateDeliveryRequest) error {
	d, ok := f.deliveries[id]
	if !ok || d.UserID != userID {
		return ErrNotFound
	}
	if req.CustomerID != nil {
		d.CustomerID = *req.CustomerID
	}
	if req.DeliveryAddress != nil {
		d.DeliveryAddress = *req.DeliveryAddress
	}
	if req.Notes != nil {
		d.Notes = req.Notes
	}
	return nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, userID, id int64, status Status) error {
	d, ok := f.deliveries[id]
	if !ok || d.UserID != userID {
		return ErrNotFound
	}
	d.Status = status
	return nil
}

func (f *fakeRepo) DeleteItems(_ context.Context, userID, deliveryID int64) error {
	delete(f.items, deliveryID)
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, userID, id int64) error {
	d, ok := f.deliveries[id]
	if !ok || d.UserID != userID {
		return ErrNotFound
	}
	delete(f.deliveries, id)
	return nil
}

func (f *fakeRepo) NextNumber(_ context.Context, _ int64) (string, error) {
	f.numSeq++
	return shared.FormatDocNumber(DeliveryNumberPrefix, f.numSeq), nil
}

func (f *fakeRepo) Count(_ context.Context, userID int64) (int64, error) {
	var n int64
	for _, d := range f.deliveries {
		if d.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) CountByStatus(_ context.Context, userID int64) (map[Status]int64, error) {
	counts := make(map[Status]int64)
	for _, d := range f.deliveries {
		if d.UserID == userID {
			counts[d.Status]++
		}
	}
	return counts, nil
}

type stubDirectory struct {
	known map[int64]bool
}

func (s stubDirectory) Exists(_ context.Context, _, id int64) (bool, error) {
	return s.known[id], nil
}

func newTestService(repo *fakeRepo) *Service {
	dir := stubDirectory{known: map[int64]bool{1: true, 2: true}}
	return NewService(repo, dir, dir, nil, nil, slog.Default())
}

func createRequest() CreateDeliveryRequest {
	return CreateDeliveryRequest{
		CustomerID:      1,
		DeliveryDate:    time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		DeliveryAddress: "14 MG Road, Bengaluru",
		Items: []CreateDeliveryItemRequest{
			{ProductID: 1, Quantity: 40, AreaCovered: 64},
		},
	}
}

func TestServiceSearch(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	first, err := svc.Create(context.Background(), 7, createRequest())
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), 7, createRequest())
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), 9, createRequest())
	require.NoError(t, err)

	results, err := svc.Search(context.Background(), 7, first.DeliveryNumber, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, first.DeliveryNumber, results[0].DeliveryNumber)

	// customer name matches too, scoped to the caller
	results, err = svc.Search(context.Background(), 7, "customer", 0)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestServiceCreate(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	detail, err := svc.Create(context.Background(), 7, createRequest())
	require.NoError(t, err)

	assert.Equal(t, "DEL000001", detail.DeliveryNumber)
	assert.Equal(t, StatusScheduled, detail.Status)
	require.Len(t, detail.Items, 1)
	assert.Equal(t, 40.0, detail.Items[0].Quantity)
	assert.Equal(t, 64.0, detail.Items[0].AreaCovered)
}

func TestServiceCreateZeroItems(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	req := createRequest()
	req.Items = nil
	detail, err := svc.Create(context.Background(), 7, req)
	require.NoError(t, err)
	assert.Empty(t, detail.Items)
}

func TestServiceCreateUnknownCustomer(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	req := createRequest()
	req.CustomerID = 99
	_, err := svc.Create(context.Background(), 7, req)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestServiceCreateMissingAddress(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	req := createRequest()
	req.DeliveryAddress = ""
	_, err := svc.Create(context.Background(), 7, req)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestServiceStatusFlow(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	detail, err := svc.Create(ctx, 7, createRequest())
	require.NoError(t, err)

	detail, err = svc.UpdateStatus(ctx, 7, detail.ID, StatusInTransit)
	require.NoError(t, err)
	assert.Equal(t, StatusInTransit, detail.Status)

	detail, err = svc.UpdateStatus(ctx, 7, detail.ID, StatusDelayed)
	require.NoError(t, err)

	detail, err = svc.UpdateStatus(ctx, 7, detail.ID, StatusInTransit)
	require.NoError(t, err)

	detail, err = svc.UpdateStatus(ctx, 7, detail.ID, StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, detail.Status)

	// Delivered is terminal
	_, err = svc.UpdateStatus(ctx, 7, detail.ID, StatusCancelled)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestServiceStatusSkipRejected(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	detail, err := svc.Create(ctx, 7, createRequest())
	require.NoError(t, err)

	// Scheduled cannot jump straight to Delivered
	_, err = svc.UpdateStatus(ctx, 7, detail.ID, StatusDelivered)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestServiceDeleteCascades(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	detail, err := svc.Create(ctx, 7, createRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, 7, detail.ID))
	_, err = svc.Get(ctx, 7, detail.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Empty(t, repo.items[detail.ID])
}

func TestServiceOwnershipIsolation(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	detail, err := svc.Create(ctx, 7, createRequest())
	require.NoError(t, err)

	_, err = svc.Get(ctx, 8, detail.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = svc.UpdateStatus(ctx, 8, detail.ID, StatusInTransit)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	err = svc.Delete(ctx, 8, detail.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestServiceGenerateNumber(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	number, err := svc.GenerateNumber(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "DEL000001", number)
}

func TestServiceStats(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	first, err := svc.Create(ctx, 7, createRequest())
	require.NoError(t, err)
	_, err = svc.Create(ctx, 7, createRequest())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, 7, first.ID, StatusInTransit)
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalDeliveries)
	assert.Equal(t, int64(1), stats.ByStatus[StatusScheduled])
	assert.Equal(t, int64(1), stats.ByStatus[StatusInTransit])
}

func TestCanTransitionTable(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusScheduled, StatusInTransit, true},
		{StatusScheduled, StatusDelayed, true},
		{StatusScheduled, StatusCancelled, true},
		{StatusInTransit, StatusDelivered, true},
		{StatusInTransit, StatusDelayed, true},
		{StatusInTransit, StatusCancelled, true},
		{StatusDelayed, StatusInTransit, true},
		{StatusDelayed, StatusCancelled, true},
		{StatusScheduled, StatusDelivered, false},
		{StatusDelayed, StatusDelivered, false},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusScheduled, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}
