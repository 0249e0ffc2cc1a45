package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("customers: not found")

// Repository provides PostgreSQL backed persistence for customers.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository over the pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const customerColumns = `id, user_id, name, email, phone, address, city, state, gstin, created_at, updated_at`

func (r *Repository) Create(ctx context.Context, c Customer) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO customers (user_id, name, email, phone, address, city, state, gstin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id`,
		c.UserID, c.Name, c.Email, c.Phone, c.Address, c.City, c.State, c.GSTIN,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("customers: create: %w", err)
	}
	return id, nil
}

func (r *Repository) Get(ctx context.Context, userID, id int64) (*Customer, error) {
	var c Customer
	err := r.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT %s FROM customers WHERE id = $1 AND user_id = $2`, customerColumns),
		id, userID,
	).Scan(&c.ID, &c.UserID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.City, &c.State, &c.GSTIN, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("customers: get: %w", err)
	}
	return &c, nil
}

func (r *Repository) List(ctx context.Context, userID int64) ([]Customer, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM customers WHERE user_id = $1 ORDER BY name`, customerColumns),
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("customers: list: %w", err)
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.City, &c.State, &c.GSTIN, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (r *Repository) Search(ctx context.Context, userID int64, query string, limit int) ([]Customer, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM customers
		WHERE user_id = $1 AND (name ILIKE $2 OR email ILIKE $2 OR phone ILIKE $2)
		ORDER BY name
		LIMIT $3`, customerColumns),
		userID, "%"+query+"%", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("customers: search: %w", err)
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.City, &c.State, &c.GSTIN, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (r *Repository) Update(ctx context.Context, userID, id int64, req UpdateCustomerRequest) error {
	sets := []string{"updated_at = NOW()"}
	var args []any
	argPos := 1

	add := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argPos))
		args = append(args, value)
		argPos++
	}
	if req.Name != nil {
		add("name", *req.Name)
	}
	if req.Email != nil {
		add("email", *req.Email)
	}
	if req.Phone != nil {
		add("phone", *req.Phone)
	}
	if req.Address != nil {
		add("address", *req.Address)
	}
	if req.City != nil {
		add("city", *req.City)
	}
	if req.State != nil {
		add("state", *req.State)
	}
	if req.GSTIN != nil {
		add("gstin", *req.GSTIN)
	}

	query := fmt.Sprintf("UPDATE customers SET %s WHERE id = $%d AND user_id = $%d",
		strings.Join(sets, ", "), argPos, argPos+1)
	args = append(args, id, userID)

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("customers: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, userID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("customers: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Exists reports whether the customer belongs to the user. Document services
// call this before accepting a reference.
func (r *Repository) Exists(ctx context.Context, userID, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1 AND user_id = $2)`,
		id, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("customers: exists: %w", err)
	}
	return exists, nil
}
