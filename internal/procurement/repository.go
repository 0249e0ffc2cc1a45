package procurement

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tilekart/tilekart/internal/platform/db"
	"github.com/tilekart/tilekart/internal/shared"
)

// PONumberPrefix is the default prefix for generated PO numbers.
const PONumberPrefix = "PO"

var (
	ErrNotFound        = errors.New("procurement: not found")
	ErrDuplicateNumber = errors.New("procurement: duplicate po number")
)

// Repository provides PostgreSQL backed persistence for purchase orders.
// Every statement filters by id and user_id.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Create(ctx context.Context, po PurchaseOrder) (int64, error)
	InsertItem(ctx context.Context, item PurchaseOrderItem) (int64, error)
	Get(ctx context.Context, userID, id int64) (*PurchaseOrderDetail, error)
	List(ctx context.Context, userID int64, req ListPOsRequest) ([]PurchaseOrderSummary, int, error)
	Search(ctx context.Context, userID int64, query string, limit int) ([]PurchaseOrderSummary, error)
	Update(ctx context.Context, userID, id int64, req UpdatePORequest) error
	UpdateStatus(ctx context.Context, userID, id int64, status POStatus) error
	DeleteItems(ctx context.Context, userID, poID int64) error
	Delete(ctx context.Context, userID, id int64) error
	GetForUpdate(ctx context.Context, userID, id int64) (*PurchaseOrder, error)
	SetPaidBalance(ctx context.Context, userID, id int64, paid, balance float64) error
	SetReceivedQuantity(ctx context.Context, userID, poID, itemID int64, qty float64) error
	NextNumber(ctx context.Context, userID int64) (string, error)
	Count(ctx context.Context, userID int64) (int64, error)
	CountByStatus(ctx context.Context, userID int64) (map[POStatus]int64, error)
	SumAmounts(ctx context.Context, userID int64) (total, paid float64, err error)
}

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository over the pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

func (r *repository) Create(ctx context.Context, po PurchaseOrder) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO purchase_orders (
			po_number, user_id, supplier_id, order_date, expected_delivery_date,
			status, subtotal, gst_amount, total_amount, paid_amount, balance_amount,
			notes, delivery_address, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
		RETURNING id`,
		po.PONumber, po.UserID, po.SupplierID, po.OrderDate, po.ExpectedDeliveryDate,
		po.Status, po.Subtotal, po.GSTAmount, po.TotalAmount, po.PaidAmount, po.BalanceAmount,
		po.Notes, po.DeliveryAddress,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateNumber
		}
		return 0, fmt.Errorf("procurement: create po: %w", err)
	}
	return id, nil
}

func (r *repository) InsertItem(ctx context.Context, item PurchaseOrderItem) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO purchase_order_items (purchase_order_id, product_id, quantity, area, unit_price, total_price, received_quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		item.PurchaseOrderID, item.ProductID, item.Quantity, item.Area, item.UnitPrice, item.TotalPrice, item.ReceivedQuantity,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("procurement: insert item: %w", err)
	}
	return id, nil
}

const poColumns = `po.id, po.po_number, po.user_id, po.supplier_id, po.order_date, po.expected_delivery_date,
	po.status, po.subtotal, po.gst_amount, po.total_amount, po.paid_amount, po.balance_amount,
	po.notes, po.delivery_address, po.created_at, po.updated_at`

func (r *repository) Get(ctx context.Context, userID, id int64) (*PurchaseOrderDetail, error) {
	var d PurchaseOrderDetail
	err := r.db.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s, s.name
		FROM purchase_orders po
		JOIN suppliers s ON po.supplier_id = s.id
		WHERE po.id = $1 AND po.user_id = $2`, poColumns),
		id, userID,
	).Scan(
		&d.ID, &d.PONumber, &d.UserID, &d.SupplierID, &d.OrderDate, &d.ExpectedDeliveryDate,
		&d.Status, &d.Subtotal, &d.GSTAmount, &d.TotalAmount, &d.PaidAmount, &d.BalanceAmount,
		&d.Notes, &d.DeliveryAddress, &d.CreatedAt, &d.UpdatedAt, &d.SupplierName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("procurement: get po: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT poi.id, poi.purchase_order_id, poi.product_id, poi.quantity, poi.area,
		       poi.unit_price, poi.total_price, poi.received_quantity, p.name
		FROM purchase_order_items poi
		JOIN products p ON poi.product_id = p.id
		WHERE poi.purchase_order_id = $1
		ORDER BY poi.id`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("procurement: list items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it PurchaseOrderItemDetail
		if err := rows.Scan(
			&it.ID, &it.PurchaseOrderID, &it.ProductID, &it.Quantity, &it.Area,
			&it.UnitPrice, &it.TotalPrice, &it.ReceivedQuantity, &it.ProductName,
		); err != nil {
			return nil, err
		}
		d.Items = append(d.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repository) List(ctx context.Context, userID int64, req ListPOsRequest) ([]PurchaseOrderSummary, int, error) {
	conditions := []string{"po.user_id = $1"}
	args := []any{userID}
	argPos := 2

	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("po.status = $%d", argPos))
		args = append(args, *req.Status)
		argPos++
	}
	if req.SupplierID != nil {
		conditions = append(conditions, fmt.Sprintf("po.supplier_id = $%d", argPos))
		args = append(args, *req.SupplierID)
		argPos++
	}
	if req.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("po.order_date >= $%d", argPos))
		args = append(args, *req.DateFrom)
		argPos++
	}
	if req.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("po.order_date <= $%d", argPos))
		args = append(args, *req.DateTo)
		argPos++
	}
	whereClause := "WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.db.QueryRow(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM purchase_orders po %s", whereClause), args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("procurement: count pos: %w", err)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`
		SELECT %s, s.name
		FROM purchase_orders po
		JOIN suppliers s ON po.supplier_id = s.id
		%s
		ORDER BY po.order_date DESC, po.id DESC
		LIMIT $%d OFFSET $%d`, poColumns, whereClause, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("procurement: list pos: %w", err)
	}
	defer rows.Close()

	var summaries []PurchaseOrderSummary
	for rows.Next() {
		var s PurchaseOrderSummary
		if err := rows.Scan(
			&s.ID, &s.PONumber, &s.UserID, &s.SupplierID, &s.OrderDate, &s.ExpectedDeliveryDate,
			&s.Status, &s.Subtotal, &s.GSTAmount, &s.TotalAmount, &s.PaidAmount, &s.BalanceAmount,
			&s.Notes, &s.DeliveryAddress, &s.CreatedAt, &s.UpdatedAt, &s.SupplierName,
		); err != nil {
			return nil, 0, err
		}
		summaries = append(summaries, s)
	}
	return summaries, total, rows.Err()
}

func (r *repository) Search(ctx context.Context, userID int64, query string, limit int) ([]PurchaseOrderSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT %s, s.name
		FROM purchase_orders po
		JOIN suppliers s ON po.supplier_id = s.id
		WHERE po.user_id = $1 AND (po.po_number ILIKE $2 OR s.name ILIKE $2)
		ORDER BY po.order_date DESC, po.id DESC
		LIMIT $3`, poColumns),
		userID, "%"+query+"%", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("procurement: search pos: %w", err)
	}
	defer rows.Close()

	var summaries []PurchaseOrderSummary
	for rows.Next() {
		var s PurchaseOrderSummary
		if err := rows.Scan(
			&s.ID, &s.PONumber, &s.UserID, &s.SupplierID, &s.OrderDate, &s.ExpectedDeliveryDate,
			&s.Status, &s.Subtotal, &s.GSTAmount, &s.TotalAmount, &s.PaidAmount, &s.BalanceAmount,
			&s.Notes, &s.DeliveryAddress, &s.CreatedAt, &s.UpdatedAt, &s.SupplierName,
		); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (r *repository) Update(ctx context.Context, userID, id int64, req UpdatePORequest) error {
	sets := []string{"updated_at = NOW()"}
	var args []any
	argPos := 1

	add := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argPos))
		args = append(args, value)
		argPos++
	}
	if req.SupplierID != nil {
		add("supplier_id", *req.SupplierID)
	}
	if req.OrderDate != nil {
		add("order_date", *req.OrderDate)
	}
	if req.ExpectedDeliveryDate != nil {
		add("expected_delivery_date", *req.ExpectedDeliveryDate)
	}
	if req.Notes != nil {
		add("notes", *req.Notes)
	}
	if req.DeliveryAddress != nil {
		add("delivery_address", *req.DeliveryAddress)
	}

	query := fmt.Sprintf("UPDATE purchase_orders SET %s WHERE id = $%d AND user_id = $%d",
		strings.Join(sets, ", "), argPos, argPos+1)
	args = append(args, id, userID)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("procurement: update po: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, userID, id int64, status POStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE purchase_orders SET status = $1, updated_at = NOW() WHERE id = $2 AND user_id = $3`,
		status, id, userID,
	)
	if err != nil {
		return fmt.Errorf("procurement: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) DeleteItems(ctx context.Context, userID, poID int64) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM purchase_order_items
		WHERE purchase_order_id IN (SELECT id FROM purchase_orders WHERE id = $1 AND user_id = $2)`,
		poID, userID,
	)
	if err != nil {
		return fmt.Errorf("procurement: delete items: %w", err)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, userID, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM purchase_orders WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("procurement: delete po: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetForUpdate locks the order row for the surrounding transaction.
func (r *repository) GetForUpdate(ctx context.Context, userID, id int64) (*PurchaseOrder, error) {
	var po PurchaseOrder
	err := r.db.QueryRow(ctx, `
		SELECT id, po_number, user_id, supplier_id, order_date, expected_delivery_date,
		       status, subtotal, gst_amount, total_amount, paid_amount, balance_amount,
		       notes, delivery_address, created_at, updated_at
		FROM purchase_orders
		WHERE id = $1 AND user_id = $2
		FOR UPDATE`,
		id, userID,
	).Scan(
		&po.ID, &po.PONumber, &po.UserID, &po.SupplierID, &po.OrderDate, &po.ExpectedDeliveryDate,
		&po.Status, &po.Subtotal, &po.GSTAmount, &po.TotalAmount, &po.PaidAmount, &po.BalanceAmount,
		&po.Notes, &po.DeliveryAddress, &po.CreatedAt, &po.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("procurement: lock po: %w", err)
	}
	return &po, nil
}

func (r *repository) SetPaidBalance(ctx context.Context, userID, id int64, paid, balance float64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE purchase_orders
		SET paid_amount = $1, balance_amount = $2, updated_at = NOW()
		WHERE id = $3 AND user_id = $4`,
		paid, balance, id, userID,
	)
	if err != nil {
		return fmt.Errorf("procurement: set paid/balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) SetReceivedQuantity(ctx context.Context, userID, poID, itemID int64, qty float64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE purchase_order_items
		SET received_quantity = $1
		WHERE id = $2 AND purchase_order_id IN (SELECT id FROM purchase_orders WHERE id = $3 AND user_id = $4)`,
		qty, itemID, poID, userID,
	)
	if err != nil {
		return fmt.Errorf("procurement: set received quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) NextNumber(ctx context.Context, userID int64) (string, error) {
	return shared.NextDocNumber(ctx, r.db, "purchase_orders", "po_number", userID, PONumberPrefix)
}

func (r *repository) Count(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_orders WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("procurement: count pos: %w", err)
	}
	return count, nil
}

func (r *repository) CountByStatus(ctx context.Context, userID int64) (map[POStatus]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT status, COUNT(*) FROM purchase_orders WHERE user_id = $1 GROUP BY status`, userID)
	if err != nil {
		return nil, fmt.Errorf("procurement: count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[POStatus]int64)
	for rows.Next() {
		var status POStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *repository) SumAmounts(ctx context.Context, userID int64) (total, paid float64, err error) {
	err = r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_amount), 0), COALESCE(SUM(paid_amount), 0)
		FROM purchase_orders
		WHERE user_id = $1 AND status <> $2`,
		userID, POStatusCancelled,
	).Scan(&total, &paid)
	if err != nil {
		return 0, 0, fmt.Errorf("procurement: sum amounts: %w", err)
	}
	return total, paid, nil
}
