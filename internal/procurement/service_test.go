package procurement

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
	nextID int64
	orders map[int64]*PurchaseOrder
	items  map[int64][]PurchaseOrderItem
	numSeq int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		orders: make(map[int64]*PurchaseOrder),
		items:  make(map[int64][]PurchaseOrderItem),
	}
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, f)
}

func (f *fakeRepo) Create(_ context.Context, po PurchaseOrder) (int64, error) {
	f.nextID++
	po.ID = f.nextID
	f.orders[po.ID] = &po
	return po.ID, nil
}

func (f *fakeRepo) InsertItem(_ context.Context, item PurchaseOrderItem) (int64, error) {
	f.nextID++
	item.ID = f.nextID
	f.items[item.PurchaseOrderID] = append(f.items[item.PurchaseOrderID], item)
	return item.ID, nil
}

func (f *fakeRepo) Get(_ context.Context, userID, id int64) (*PurchaseOrderDetail, error) {
	po, ok := f.orders[id]
	if !ok || po.UserID != userID {
		return nil, ErrNotFound
	}
	d := PurchaseOrderDetail{PurchaseOrder: *po, SupplierName: "Test Supplier"}
	for _, it := range f.items[id] {
		d.Items = append(d.Items, PurchaseOrderItemDetail{PurchaseOrderItem: it, ProductName: "Test Product"})
	}
	return &d, nil
}

func (f *fakeRepo) List(_ context.Context, userID int64, _ ListPOsRequest) ([]PurchaseOrderSummary, int, error) {
	var out []PurchaseOrderSummary
	for _, po := range f.orders {
		if po.UserID == userID {
			out = append(out, PurchaseOrderSummary{PurchaseOrder: *po, SupplierName: "Test Supplier"})
		}
	}
	return out, len(out), nil
}

func (f *fakeRepo) Search(_ context.Context, userID int64, query string, limit int) ([]PurchaseOrderSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	needle := strings.ToLower(query)
	var out []PurchaseOrderSummary
	for _, po := range f.orders {
		if po.UserID != userID || len(out) >= limit {
			continue
		}
		if strings.Contains(strings.ToLower(po.PONumber), needle) ||
			strings.Contains(strings.ToLower("Test Supplier"), needle) {
			out = append(out, PurchaseOrderSummary{PurchaseOrder: *po, SupplierName: "Test Supplier"})
		}
	}
	return out, nil
}

func (f *fakeRepo) Update(_ context.Context, userID, id int64, req UpdatePORequest) error {
	po, ok := f.orders[id]
	if !ok || po.UserID != userID {
		return ErrNotFound
	}
	if req.SupplierID != nil {
		po.SupplierID = *req.SupplierID
	}
	if req.Notes != nil {
		po.Notes = req.Notes
	}
	return nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, userID, id int64, status POStatus) error {
	po, ok := f.orders[id]
	if !ok || po.UserID != userID {
		return ErrNotFound
	}
	po.Status = status
	return nil
}

func (f *fakeRepo) DeleteItems(_ context.Context, userID, poID int64) error {
	delete(f.items, poID)
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, userID, id int64) error {
	po, ok := f.orders[id]
	if !ok || po.UserID != userID {
		return ErrNotFound
	}
	delete(f.orders, id)
	return nil
}

func (f *fakeRepo) GetForUpdate(_ context.Context, userID, id int64) (*PurchaseOrder, error) {
	po, ok := f.orders[id]
	if !ok || po.UserID != userID {
		return nil, ErrNotFound
	}
	cp := *po
	return &cp, nil
}

func (f *fakeRepo) SetPaidBalance(_ context.Context, userID, id int64, paid, balance float64) error {
	po, ok := f.orders[id]
	if !ok || po.UserID != userID {
		return ErrNotFound
	}
	po.PaidAmount = paid
	po.BalanceAmount = balance
	return nil
}

func (f *fakeRepo) SetReceivedQuantity(_ context.Context, userID, poID, itemID int64, qty float64) error {
	po, ok := f.orders[poID]
	if !ok || po.UserID != userID {
		return ErrNotFound
	}
	items := f.items[poID]
	for i := range items {
		if items[i].ID == itemID {
			items[i].ReceivedQuantity = qty
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeRepo) NextNumber(_ context.Context, _ int64) (string, error) {
	f.numSeq++
	return shared.FormatDocNumber(PONumberPrefix, f.numSeq), nil
}

func (f *fakeRepo) Count(_ context.Context, userID int64) (int64, error) {
	var n int64
	for _, po := range f.orders {
		if po.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) CountByStatus(_ context.Context, userID int64) (map[POStatus]int64, error) {
	counts := make(map[POStatus]int64)
	for _, po := range f.orders {
		if po.UserID == userID {
			counts[po.Status]++
		}
	}
	return counts, nil
}

func (f *fakeRepo) SumAmounts(_ context.Context, userID int64) (float64, float64, error) {
	var total, paid float64
	for _, po := range f.orders {
		if po.UserID == userID && po.Status != POStatusCancelled {
			total += po.TotalAmount
			paid += po.PaidAmount
		}
	}
	return total, paid, nil
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

func createRequest() CreatePORequest {
	return CreatePORequest{
		SupplierID: 1,
		OrderDate:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Items: []CreatePOItemRequest{
			{ProductID: 1, Quantity: 100, Area: 160, UnitPrice: 120},
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

	results, err := svc.Search(context.Background(), 7, first.PONumber, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, first.PONumber, results[0].PONumber)

	// supplier name matches too, scoped to the caller
	results, err = svc.Search(context.Background(), 7, "supplier", 0)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestServiceCreate(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	detail, err := svc.Create(context.Background(), 7, createRequest())
	require.NoError(t, err)

	assert.Equal(t, "PO000001", detail.PONumber)
	assert.Equal(t, POStatusDraft, detail.Status)
	assert.Equal(t, 12000.0, detail.Subtotal)
	assert.Equal(t, 2160.0, detail.GSTAmount)
	assert.Equal(t, 14160.0, detail.TotalAmount)
	assert.Equal(t, 0.0, detail.PaidAmount)
	assert.Equal(t, 14160.0, detail.BalanceAmount)
	assert.Nil(t, detail.ExpectedDeliveryDate)
	require.Len(t, detail.Items, 1)
	assert.Equal(t, 0.0, detail.Items[0].ReceivedQuantity)
}

func TestServiceCreateUnknownSupplier(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	req := createRequest()
	req.SupplierID = 99
	_, err := svc.Create(context.Background(), 7, req)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestServiceCreateNormalizesZeroDate(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	req := createRequest()
	var zero time.Time
	req.ExpectedDeliveryDate = &zero
	detail, err := svc.Create(context.Background(), 7, req)
	require.NoError(t, err)
	assert.Nil(t, detail.ExpectedDeliveryDate)
}

func TestServiceRecordPaymentMovesTotalsOnly(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	detail, err := svc.Create(ctx, 7, createRequest())
	require.NoError(t, err)

	detail, err = svc.RecordPayment(ctx, 7, RecordPOPaymentRequest{PurchaseOrderID: detail.ID, Amount: 5000})
	require.NoError(t, err)
	assert.Equal(t, 5000.0, detail.PaidAmount)
	assert.Equal(t, 9160.0, detail.BalanceAmount)
	// payments never drive the purchase order status
	assert.Equal(t, POStatusDraft, detail.Status)

	detail, err = svc.RecordPayment(ctx, 7, RecordPOPaymentRequest{PurchaseOrderID: detail.ID, Amount: 9160})
	require.NoError(t, err)
	assert.Equal(t, 14160.0, detail.PaidAmount)
	assert.Equal(t, 0.0, detail.BalanceAmount)
	assert.Equal(t, POStatusDraft, detail.Status)
}

func TestServiceRecordPaymentOverpaymentFloorsBalance(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	detail, err := svc.Create(ctx, 7, createRequest())
	require.NoError(t, err)

	detail, err = svc.RecordPayment(ctx, 7, RecordPOPaymentRequest{PurchaseOrderID: detail.ID, Amount: 20000})
	require.NoError(t, err)
	assert.Equal(t, 20000.0, detail.PaidAmount)
	assert.Equal(t, 0.0, detail.BalanceAmount)
}

func TestServiceStatusChain(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	detail, err := svc.Create(ctx, 7, createRequest())
	require.NoError(t, err)

	for _, status := range []POStatus{POStatusSent, POStatusConfirmed, POStatusPartiallyReceived, POStatusReceived} {
		detail, err = svc.UpdateStatus(ctx, 7, detail.ID, status)
		require.NoError(t, err)
		assert.Equal(t, status, detail.Status)
	}

	// Received is terminal
	_, err = svc.UpdateStatus(ctx, 7, detail.ID, POStatusCancelled)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestServiceStatusSkipRejected(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	detail, err := svc.Create(ctx, 7, createRequest())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, 7, detail.ID, POStatusReceived)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestServiceReceiveItems(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	detail, err := svc.Create(ctx, 7, createRequest())
	require.NoError(t, err)
	itemID := detail.Items[0].ID

	detail, err = svc.ReceiveItems(ctx, 7, detail.ID, ReceiveItemsRequest{
		Items: []ReceiveItemRequest{{ItemID: itemID, ReceivedQuantity: 60}},
	})
	require.NoError(t, err)
	assert.Equal(t, 60.0, detail.Items[0].ReceivedQuantity)
	// receiving quantities never changes the status on its own
	assert.Equal(t, POStatusDraft, detail.Status)
}

func TestServiceReceiveItemsUnknownItem(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	detail, err := svc.Create(ctx, 7, createRequest())
	require.NoError(t, err)

	_, err = svc.ReceiveItems(ctx, 7, detail.ID, ReceiveItemsRequest{
		Items: []ReceiveItemRequest{{ItemID: 999, ReceivedQuantity: 10}},
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
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
	_, err = svc.RecordPayment(ctx, 8, RecordPOPaymentRequest{PurchaseOrderID: detail.ID, Amount: 100})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestServiceStats(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	first, err := svc.Create(ctx, 7, createRequest())
	require.NoError(t, err)
	_, err = svc.Create(ctx, 7, createRequest())
	require.NoError(t, err)

	_, err = svc.RecordPayment(ctx, 7, RecordPOPaymentRequest{PurchaseOrderID: first.ID, Amount: 4160})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalOrders)
	assert.Equal(t, 28320.0, stats.TotalAmount)
	assert.Equal(t, 4160.0, stats.PaidAmount)
	assert.Equal(t, 24160.0, stats.Outstanding)
	assert.Equal(t, int64(2), stats.ByStatus[POStatusDraft])
}

func TestCanTransitionTable(t *testing.T) {
	cases := []struct {
		from, to POStatus
		ok       bool
	}{
		{POStatusDraft, POStatusSent, true},
		{POStatusDraft, POStatusCancelled, true},
		{POStatusSent, POStatusConfirmed, true},
		{POStatusSent, POStatusCancelled, true},
		{POStatusConfirmed, POStatusPartiallyReceived, true},
		{POStatusConfirmed, POStatusReceived, true},
		{POStatusPartiallyReceived, POStatusReceived, true},
		{POStatusDraft, POStatusConfirmed, false},
		{POStatusConfirmed, POStatusCancelled, false},
		{POStatusReceived, POStatusCancelled, false},
		{POStatusCancelled, POStatusDraft, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}
