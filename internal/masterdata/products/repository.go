package products

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
	ErrNotFound     = errors.New("products: not found")
	ErrDuplicateSKU = errors.New("products: duplicate sku")
)

// Repository provides PostgreSQL backed persistence for products.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository over the pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const productColumns = `id, user_id, name, sku, category, size, finish, unit_price, area_per_box, in_stock, created_at, updated_at`

func (r *Repository) Create(ctx context.Context, p Product) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO products (user_id, name, sku, category, size, finish, unit_price, area_per_box, in_stock, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING id`,
		p.UserID, p.Name, p.SKU, p.Category, p.Size, p.Finish, p.UnitPrice, p.AreaPerBox, p.InStock,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateSKU
		}
		return 0, fmt.Errorf("products: create: %w", err)
	}
	return id, nil
}

func (r *Repository) Get(ctx context.Context, userID, id int64) (*Product, error) {
	var p Product
	err := r.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT %s FROM products WHERE id = $1 AND user_id = $2`, productColumns),
		id, userID,
	).Scan(&p.ID, &p.UserID, &p.Name, &p.SKU, &p.Category, &p.Size, &p.Finish, &p.UnitPrice, &p.AreaPerBox, &p.InStock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("products: get: %w", err)
	}
	return &p, nil
}

func (r *Repository) List(ctx context.Context, userID int64) ([]Product, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM products WHERE user_id = $1 ORDER BY name`, productColumns),
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("products: list: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.SKU, &p.Category, &p.Size, &p.Finish, &p.UnitPrice, &p.AreaPerBox, &p.InStock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *Repository) Search(ctx context.Context, userID int64, query string, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM products
		WHERE user_id = $1 AND (name ILIKE $2 OR sku ILIKE $2 OR category ILIKE $2)
		ORDER BY name
		LIMIT $3`, productColumns),
		userID, "%"+query+"%", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("products: search: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.SKU, &p.Category, &p.Size, &p.Finish, &p.UnitPrice, &p.AreaPerBox, &p.InStock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *Repository) Update(ctx context.Context, userID, id int64, req UpdateProductRequest) error {
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
	if req.SKU != nil {
		add("sku", *req.SKU)
	}
	if req.Category != nil {
		add("category", *req.Category)
	}
	if req.Size != nil {
		add("size", *req.Size)
	}
	if req.Finish != nil {
		add("finish", *req.Finish)
	}
	if req.UnitPrice != nil {
		add("unit_price", *req.UnitPrice)
	}
	if req.AreaPerBox != nil {
		add("area_per_box", *req.AreaPerBox)
	}
	if req.InStock != nil {
		add("in_stock", *req.InStock)
	}

	query := fmt.Sprintf("UPDATE products SET %s WHERE id = $%d AND user_id = $%d",
		strings.Join(sets, ", "), argPos, argPos+1)
	args = append(args, id, userID)

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("products: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, userID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("products: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Exists reports whether the product belongs to the user.
func (r *Repository) Exists(ctx context.Context, userID, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM products WHERE id = $1 AND user_id = $2)`,
		id, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("products: exists: %w", err)
	}
	return exists, nil
}
