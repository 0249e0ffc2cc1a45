package suppliers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("suppliers: not found")

// Repository provides PostgreSQL backed persistence for suppliers.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository over the pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const supplierColumns = `id, user_id, name, contact_person, email, phone, address, gstin, created_at, updated_at`

func (r *Repository) Create(ctx context.Context, s Supplier) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO suppliers (user_id, name, contact_person, email, phone, address, gstin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id`,
		s.UserID, s.Name, s.ContactPerson, s.Email, s.Phone, s.Address, s.GSTIN,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("suppliers: create: %w", err)
	}
	return id, nil
}

func (r *Repository) Get(ctx context.Context, userID, id int64) (*Supplier, error) {
	var s Supplier
	err := r.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT %s FROM suppliers WHERE id = $1 AND user_id = $2`, supplierColumns),
		id, userID,
	).Scan(&s.ID, &s.UserID, &s.Name, &s.ContactPerson, &s.Email, &s.Phone, &s.Address, &s.GSTIN, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("suppliers: get: %w", err)
	}
	return &s, nil
}

func (r *Repository) List(ctx context.Context, userID int64) ([]Supplier, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM suppliers WHERE user_id = $1 ORDER BY name`, supplierColumns),
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("suppliers: list: %w", err)
	}
	defer rows.Close()

	var suppliers []Supplier
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.ContactPerson, &s.Email, &s.Phone, &s.Address, &s.GSTIN, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, rows.Err()
}

func (r *Repository) Update(ctx context.Context, userID, id int64, req UpdateSupplierRequest) error {
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
	if req.ContactPerson != nil {
		add("contact_person", *req.ContactPerson)
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
	if req.GSTIN != nil {
		add("gstin", *req.GSTIN)
	}

	query := fmt.Sprintf("UPDATE suppliers SET %s WHERE id = $%d AND user_id = $%d",
		strings.Join(sets, ", "), argPos, argPos+1)
	args = append(args, id, userID)

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("suppliers: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, userID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM suppliers WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("suppliers: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Exists reports whether the supplier belongs to the user.
func (r *Repository) Exists(ctx context.Context, userID, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM suppliers WHERE id = $1 AND user_id = $2)`,
		id, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("suppliers: exists: %w", err)
	}
	return exists, nil
}
