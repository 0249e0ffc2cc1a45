package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tilekart/tilekart/internal/platform/db"
	"github.com/tilekart/tilekart/internal/shared"
)

// InvoiceNumberPrefix is the default prefix for generated invoice numbers.
const InvoiceNumberPrefix = "INV"

var (
	// ErrNotFound indicates the invoice (or payment target) is absent for the user.
	ErrNotFound = errors.New("billing: not found")
	// ErrDuplicateNumber indicates an invoice number collision for the user.
	ErrDuplicateNumber = errors.New("billing: duplicate invoice number")
)

// Repository provides PostgreSQL backed persistence for billing. Every
// statement that touches an invoice filters by both id and user_id so one
// user can never read or mutate another user's documents.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Create(ctx context.Context, inv Invoice) (int64, error)
	InsertItem(ctx context.Context, item InvoiceItem) (int64, error)
	Get(ctx context.Context, userID, id int64) (*InvoiceDetail, error)
	List(ctx context.Context, userID int64, req ListInvoicesRequest) ([]InvoiceSummary, int, error)
	Search(ctx context.Context, userID int64, query string, limit int) ([]InvoiceSummary, error)
	Update(ctx context.Context, userID, id int64, req UpdateInvoiceRequest) error
	UpdateStatus(ctx context.Context, userID, id int64, status InvoiceStatus) error
	DeleteItems(ctx context.Context, userID, invoiceID int64) error
	Delete(ctx context.Context, userID, id int64) error
	GetForUpdate(ctx context.Context, userID, id int64) (*Invoice, error)
	InsertPayment(ctx context.Context, p Payment) (int64, error)
	CountPayments(ctx context.Context, userID, invoiceID int64) (int64, error)
	SetPaidBalanceStatus(ctx context.Context, userID, id int64, paid, balance float64, status InvoiceStatus) error
	NextNumber(ctx context.Context, userID int64, prefix string) (string, error)
	Count(ctx context.Context, userID int64) (int64, error)
	CountByStatus(ctx context.Context, userID int64) (map[InvoiceStatus]int64, error)
	SumAmounts(ctx context.Context, userID int64) (total, paid float64, err error)
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
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

func (r *repository) Create(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO invoices (
			invoice_number, user_id, customer_id, invoice_date, due_date,
			payment_terms, status, subtotal, discount_amount,
			cgst_amount, sgst_amount, igst_amount,
			total_amount, paid_amount, balance_amount, notes, terms,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, NOW(), NOW())
		RETURNING id`,
		inv.InvoiceNumber, inv.UserID, inv.CustomerID, inv.InvoiceDate, inv.DueDate,
		inv.PaymentTerms, inv.Status, inv.Subtotal, inv.DiscountAmount,
		inv.CGSTAmount, inv.SGSTAmount, inv.IGSTAmount,
		inv.TotalAmount, inv.PaidAmount, inv.BalanceAmount, inv.Notes, inv.Terms,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicateNumber
		}
		return 0, fmt.Errorf("billing: create invoice: %w", err)
	}
	return id, nil
}

func (r *repository) InsertItem(ctx context.Context, item InvoiceItem) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO invoice_items (invoice_id, product_id, quantity, unit_price, discount_percent, total_price)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		item.InvoiceID, item.ProductID, item.Quantity, item.UnitPrice, item.DiscountPercent, item.TotalPrice,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("billing: insert item: %w", err)
	}
	return id, nil
}

func (r *repository) Get(ctx context.Context, userID, id int64) (*InvoiceDetail, error) {
	var d InvoiceDetail
	err := r.db.QueryRow(ctx, `
		SELECT i.id, i.invoice_number, i.user_id, i.customer_id, i.invoice_date, i.due_date,
		       i.payment_terms, i.status, i.subtotal, i.discount_amount,
		       i.cgst_amount, i.sgst_amount, i.igst_amount,
		       i.total_amount, i.paid_amount, i.balance_amount, i.notes, i.terms,
		       i.created_at, i.updated_at, c.name
		FROM invoices i
		JOIN customers c ON i.customer_id = c.id
		WHERE i.id = $1 AND i.user_id = $2`,
		id, userID,
	).Scan(
		&d.ID, &d.InvoiceNumber, &d.UserID, &d.CustomerID, &d.InvoiceDate, &d.DueDate,
		&d.PaymentTerms, &d.Status, &d.Subtotal, &d.DiscountAmount,
		&d.CGSTAmount, &d.SGSTAmount, &d.IGSTAmount,
		&d.TotalAmount, &d.PaidAmount, &d.BalanceAmount, &d.Notes, &d.Terms,
		&d.CreatedAt, &d.UpdatedAt, &d.CustomerName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("billing: get invoice: %w", err)
	}

	items, err := r.listItems(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Items = items

	payments, err := r.listPayments(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Payments = payments

	return &d, nil
}

func (r *repository) listItems(ctx context.Context, invoiceID int64) ([]InvoiceItemDetail, error) {
	rows, err := r.db.Query(ctx, `
		SELECT ii.id, ii.invoice_id, ii.product_id, ii.quantity, ii.unit_price,
		       ii.discount_percent, ii.total_price, p.name
		FROM invoice_items ii
		JOIN products p ON ii.product_id = p.id
		WHERE ii.invoice_id = $1
		ORDER BY ii.id`,
		invoiceID,
	)
	if err != nil {
		return nil, fmt.Errorf("billing: list items: %w", err)
	}
	defer rows.Close()

	var items []InvoiceItemDetail
	for rows.Next() {
		var it InvoiceItemDetail
		if err := rows.Scan(
			&it.ID, &it.InvoiceID, &it.ProductID, &it.Quantity, &it.UnitPrice,
			&it.DiscountPercent, &it.TotalPrice, &it.ProductName,
		); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repository) listPayments(ctx context.Context, invoiceID int64) ([]Payment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, invoice_id, amount, method, payment_date, reference_number, notes, created_at
		FROM payments
		WHERE invoice_id = $1
		ORDER BY payment_date, id`,
		invoiceID,
	)
	if err != nil {
		return nil, fmt.Errorf("billing: list payments: %w", err)
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(
			&p.ID, &p.InvoiceID, &p.Amount, &p.Method, &p.PaymentDate,
			&p.ReferenceNumber, &p.Notes, &p.CreatedAt,
		); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *repository) List(ctx context.Context, userID int64, req ListInvoicesRequest) ([]InvoiceSummary, int, error) {
	conditions := []string{"i.user_id = $1"}
	args := []any{userID}
	argPos := 2

	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("i.status = $%d", argPos))
		args = append(args, *req.Status)
		argPos++
	}
	if req.CustomerID != nil {
		conditions = append(conditions, fmt.Sprintf("i.customer_id = $%d", argPos))
		args = append(args, *req.CustomerID)
		argPos++
	}
	if req.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("i.invoice_date >= $%d", argPos))
		args = append(args, *req.DateFrom)
		argPos++
	}
	if req.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("i.invoice_date <= $%d", argPos))
		args = append(args, *req.DateTo)
		argPos++
	}
	whereClause := "WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.db.QueryRow(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM invoices i %s", whereClause), args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("billing: count invoices: %w", err)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`
		SELECT i.id, i.invoice_number, i.user_id, i.customer_id, i.invoice_date, i.due_date,
		       i.payment_terms, i.status, i.subtotal, i.discount_amount,
		       i.cgst_amount, i.sgst_amount, i.igst_amount,
		       i.total_amount, i.paid_amount, i.balance_amount, i.notes, i.terms,
		       i.created_at, i.updated_at, c.name
		FROM invoices i
		JOIN customers c ON i.customer_id = c.id
		%s
		ORDER BY i.invoice_date DESC, i.id DESC
		LIMIT $%d OFFSET $%d`, whereClause, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("billing: list invoices: %w", err)
	}
	defer rows.Close()

	summaries, err := scanSummaries(rows)
	if err != nil {
		return nil, 0, err
	}
	return summaries, total, nil
}

func (r *repository) Search(ctx context.Context, userID int64, query string, limit int) ([]InvoiceSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT i.id, i.invoice_number, i.user_id, i.customer_id, i.invoice_date, i.due_date,
		       i.payment_terms, i.status, i.subtotal, i.discount_amount,
		       i.cgst_amount, i.sgst_amount, i.igst_amount,
		       i.total_amount, i.paid_amount, i.balance_amount, i.notes, i.terms,
		       i.created_at, i.updated_at, c.name
		FROM invoices i
		JOIN customers c ON i.customer_id = c.id
		WHERE i.user_id = $1 AND (i.invoice_number ILIKE $2 OR c.name ILIKE $2)
		ORDER BY i.invoice_date DESC, i.id DESC
		LIMIT $3`,
		userID, "%"+query+"%", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("billing: search invoices: %w", err)
	}
	defer rows.Close()
	return scanSummaries(rows)
}

func scanSummaries(rows pgx.Rows) ([]InvoiceSummary, error) {
	var summaries []InvoiceSummary
	for rows.Next() {
		var s InvoiceSummary
		if err := rows.Scan(
			&s.ID, &s.InvoiceNumber, &s.UserID, &s.CustomerID, &s.InvoiceDate, &s.DueDate,
			&s.PaymentTerms, &s.Status, &s.Subtotal, &s.DiscountAmount,
			&s.CGSTAmount, &s.SGSTAmount, &s.IGSTAmount,
			&s.TotalAmount, &s.PaidAmount, &s.BalanceAmount, &s.Notes, &s.Terms,
			&s.CreatedAt, &s.UpdatedAt, &s.CustomerName,
		); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (r *repository) Update(ctx context.Context, userID, id int64, req UpdateInvoiceRequest) error {
	sets := []string{"updated_at = NOW()"}
	var args []any
	argPos := 1

	add := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argPos))
		args = append(args, value)
		argPos++
	}
	if req.CustomerID != nil {
		add("customer_id", *req.CustomerID)
	}
	if req.InvoiceDate != nil {
		add("invoice_date", *req.InvoiceDate)
	}
	if req.DueDate != nil {
		add("due_date", *req.DueDate)
	}
	if req.PaymentTerms != nil {
		add("payment_terms", *req.PaymentTerms)
	}
	if req.Notes != nil {
		add("notes", *req.Notes)
	}
	if req.Terms != nil {
		add("terms", *req.Terms)
	}

	query := fmt.Sprintf("UPDATE invoices SET %s WHERE id = $%d AND user_id = $%d",
		strings.Join(sets, ", "), argPos, argPos+1)
	args = append(args, id, userID)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("billing: update invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, userID, id int64, status InvoiceStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE invoices SET status = $1, updated_at = NOW() WHERE id = $2 AND user_id = $3`,
		status, id, userID,
	)
	if err != nil {
		return fmt.Errorf("billing: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) DeleteItems(ctx context.Context, userID, invoiceID int64) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM invoice_items
		WHERE invoice_id = $1
		  AND invoice_id IN (SELECT id FROM invoices WHERE id = $1 AND user_id = $2)`,
		invoiceID, userID,
	)
	if err != nil {
		return fmt.Errorf("billing: delete items: %w", err)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, userID, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM invoices WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("billing: delete invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetForUpdate locks the invoice row for the duration of the surrounding
// transaction. The payment ledger depends on this lock to serialise
// concurrent balance recomputation.
func (r *repository) GetForUpdate(ctx context.Context, userID, id int64) (*Invoice, error) {
	var inv Invoice
	err := r.db.QueryRow(ctx, `
		SELECT id, invoice_number, user_id, customer_id, invoice_date, due_date,
		       payment_terms, status, subtotal, discount_amount,
		       cgst_amount, sgst_amount, igst_amount,
		       total_amount, paid_amount, balance_amount, notes, terms,
		       created_at, updated_at
		FROM invoices
		WHERE id = $1 AND user_id = $2
		FOR UPDATE`,
		id, userID,
	).Scan(
		&inv.ID, &inv.InvoiceNumber, &inv.UserID, &inv.CustomerID, &inv.InvoiceDate, &inv.DueDate,
		&inv.PaymentTerms, &inv.Status, &inv.Subtotal, &inv.DiscountAmount,
		&inv.CGSTAmount, &inv.SGSTAmount, &inv.IGSTAmount,
		&inv.TotalAmount, &inv.PaidAmount, &inv.BalanceAmount, &inv.Notes, &inv.Terms,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("billing: lock invoice: %w", err)
	}
	return &inv, nil
}

func (r *repository) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO payments (invoice_id, amount, method, payment_date, reference_number, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id`,
		p.InvoiceID, p.Amount, p.Method, p.PaymentDate, p.ReferenceNumber, p.Notes,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("billing: insert payment: %w", err)
	}
	return id, nil
}

func (r *repository) CountPayments(ctx context.Context, userID, invoiceID int64) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM payments p
		JOIN invoices i ON p.invoice_id = i.id
		WHERE p.invoice_id = $1 AND i.user_id = $2`,
		invoiceID, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("billing: count payments: %w", err)
	}
	return count, nil
}

func (r *repository) SetPaidBalanceStatus(ctx context.Context, userID, id int64, paid, balance float64, status InvoiceStatus) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE invoices
		SET paid_amount = $1, balance_amount = $2, status = $3, updated_at = NOW()
		WHERE id = $4 AND user_id = $5`,
		paid, balance, status, id, userID,
	)
	if err != nil {
		return fmt.Errorf("billing: set paid/balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) NextNumber(ctx context.Context, userID int64, prefix string) (string, error) {
	return shared.NextDocNumber(ctx, r.db, "invoices", "invoice_number", userID, prefix)
}

func (r *repository) Count(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM invoices WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("billing: count invoices: %w", err)
	}
	return count, nil
}

func (r *repository) CountByStatus(ctx context.Context, userID int64) (map[InvoiceStatus]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT status, COUNT(*) FROM invoices WHERE user_id = $1 GROUP BY status`, userID)
	if err != nil {
		return nil, fmt.Errorf("billing: count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[InvoiceStatus]int64)
	for rows.Next() {
		var status InvoiceStatus
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
		FROM invoices
		WHERE user_id = $1 AND status <> $2`,
		userID, InvoiceStatusCancelled,
	).Scan(&total, &paid)
	if err != nil {
		return 0, 0, fmt.Errorf("billing: sum amounts: %w", err)
	}
	return total, paid, nil
}

// MarkOverdue flips Sent/Partial invoices past their due date to Overdue.
// Runs across all users; invoked by the scheduled sweep, never by a request
// handler.
func (r *repository) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE invoices
		SET status = $1, updated_at = NOW()
		WHERE status IN ($2, $3) AND due_date < $4`,
		InvoiceStatusOverdue, InvoiceStatusSent, InvoiceStatusPartial, asOf,
	)
	if err != nil {
		return 0, fmt.Errorf("billing: mark overdue: %w", err)
	}
	return tag.RowsAffected(), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
