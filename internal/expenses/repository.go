package expenses

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound          = errors.New("expenses: not found")
	ErrDuplicateCategory = errors.New("expenses: duplicate category name")
)

// Repository provides PostgreSQL backed persistence for expenses and their
// categories. Every statement filters by id and user_id.
type Repository interface {
	Create(ctx context.Context, e Expense) (int64, error)
	Get(ctx context.Context, userID, id int64) (*Expense, error)
	List(ctx context.Context, userID int64, req ListExpensesRequest) ([]Expense, int, error)
	Update(ctx context.Context, userID, id int64, req UpdateExpenseRequest) error
	Delete(ctx context.Context, userID, id int64) error
	Count(ctx context.Context, userID int64) (int64, error)
	SumByCategory(ctx context.Context, userID int64) (map[string]float64, error)

	CreateCategory(ctx context.Context, c Category) (int64, error)
	ListCategories(ctx context.Context, userID int64) ([]Category, error)
	DeleteCategory(ctx context.Context, userID, id int64) error
}

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type repository struct {
	db dbtx
}

// NewRepository constructs a Repository over the pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

func (r *repository) Create(ctx context.Context, e Expense) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO expenses (
			user_id, expense_date, category, description, amount, payment_method,
			reference_number, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id`,
		e.UserID, e.ExpenseDate, e.Category, e.Description, e.Amount, e.PaymentMethod,
		e.ReferenceNumber, e.Notes,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("expenses: create expense: %w", err)
	}
	return id, nil
}

const expenseColumns = `id, user_id, expense_date, category, description, amount, payment_method,
	reference_number, notes, created_at, updated_at`

func (r *repository) Get(ctx context.Context, userID, id int64) (*Expense, error) {
	var e Expense
	err := r.db.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM expenses WHERE id = $1 AND user_id = $2`, expenseColumns),
		id, userID,
	).Scan(
		&e.ID, &e.UserID, &e.ExpenseDate, &e.Category, &e.Description, &e.Amount,
		&e.PaymentMethod, &e.ReferenceNumber, &e.Notes, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("expenses: get expense: %w", err)
	}
	return &e, nil
}

func (r *repository) List(ctx context.Context, userID int64, req ListExpensesRequest) ([]Expense, int, error) {
	conditions := []string{"user_id = $1"}
	args := []any{userID}
	argPos := 2

	if req.Category != nil {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argPos))
		args = append(args, *req.Category)
		argPos++
	}
	if req.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("expense_date >= $%d", argPos))
		args = append(args, *req.DateFrom)
		argPos++
	}
	if req.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("expense_date <= $%d", argPos))
		args = append(args, *req.DateTo)
		argPos++
	}
	whereClause := "WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.db.QueryRow(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM expenses %s", whereClause), args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("expenses: count expenses: %w", err)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`
		SELECT %s FROM expenses
		%s
		ORDER BY expense_date DESC, id DESC
		LIMIT $%d OFFSET $%d`, expenseColumns, whereClause, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("expenses: list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []Expense
	for rows.Next() {
		var e Expense
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.ExpenseDate, &e.Category, &e.Description, &e.Amount,
			&e.PaymentMethod, &e.ReferenceNumber, &e.Notes, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		expenses = append(expenses, e)
	}
	return expenses, total, rows.Err()
}

func (r *repository) Update(ctx context.Context, userID, id int64, req UpdateExpenseRequest) error {
	sets := []string{"updated_at = NOW()"}
	var args []any
	argPos := 1

	add := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argPos))
		args = append(args, value)
		argPos++
	}
	if req.ExpenseDate != nil {
		add("expense_date", *req.ExpenseDate)
	}
	if req.Category != nil {
		add("category", *req.Category)
	}
	if req.Description != nil {
		add("description", *req.Description)
	}
	if req.Amount != nil {
		add("amount", *req.Amount)
	}
	if req.PaymentMethod != nil {
		add("payment_method", *req.PaymentMethod)
	}
	if req.ReferenceNumber != nil {
		add("reference_number", *req.ReferenceNumber)
	}
	if req.Notes != nil {
		add("notes", *req.Notes)
	}

	query := fmt.Sprintf("UPDATE expenses SET %s WHERE id = $%d AND user_id = $%d",
		strings.Join(sets, ", "), argPos, argPos+1)
	args = append(args, id, userID)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("expenses: update expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, userID, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM expenses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("expenses: delete expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Count(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM expenses WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("expenses: count expenses: %w", err)
	}
	return count, nil
}

func (r *repository) SumByCategory(ctx context.Context, userID int64) (map[string]float64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT category, COALESCE(SUM(amount), 0) FROM expenses WHERE user_id = $1 GROUP BY category`, userID)
	if err != nil {
		return nil, fmt.Errorf("expenses: sum by category: %w", err)
	}
	defer rows.Close()

	sums := make(map[string]float64)
	for rows.Next() {
		var category string
		var sum float64
		if err := rows.Scan(&category, &sum); err != nil {
			return nil, err
		}
		sums[category] = sum
	}
	return sums, rows.Err()
}

func (r *repository) CreateCategory(ctx context.Context, c Category) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO expense_categories (user_id, name, description, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id`,
		c.UserID, c.Name, c.Description,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateCategory
		}
		return 0, fmt.Errorf("expenses: create category: %w", err)
	}
	return id, nil
}

func (r *repository) ListCategories(ctx context.Context, userID int64) ([]Category, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, name, description, created_at
		FROM expense_categories
		WHERE user_id = $1
		ORDER BY name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("expenses: list categories: %w", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *repository) DeleteCategory(ctx context.Context, userID, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM expense_categories WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("expenses: delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
