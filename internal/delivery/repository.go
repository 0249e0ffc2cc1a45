package delivery

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

// DeliveryNumberPrefix is the default prefix for generated delivery numbers.
const DeliveryNumberPrefix = "DEL"

var (
	ErrNotFound        = errors.New("delivery: not found")
	ErrDuplicateNumber = errors.New("delivery: duplicate delivery number")
)

// Repository provides PostgreSQL backed persistence for deliveries. Every
// statement filters by id and user_id.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Create(ctx context.Context, d Delivery) (int64, error)
	InsertItem(ctx context.Context, item DeliveryItem) (int64, error)
	Get(ctx context.Context, userID, id int64) (*DeliveryDetail, error)
	List(ctx context.Context, userID int64, req ListDeliveriesRequest) ([]DeliverySummary, int, error)
	Search(ctx context.Context, userID int64, query string, limit int) ([]DeliverySummary, error)
	Update(ctx context.Context, userID, id int64, req UpdateDeliveryRequest) error
	UpdateStatus(ctx context.Context, userID, id int64, status Status) error
	DeleteItems(ctx context.Context, userID, deliveryID int64) error
	Delete(ctx context.Context, userID, id int64) error
	NextNumber(ctx context.Context, userID int64) (string, error)
	Count(ctx context.Context, userID int64) (int64, error)
	CountByStatus(ctx context.Context, userID int64) (map[Status]int64, error)
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

func (r *repository) Create(ctx context.Context, d Delivery) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO deliveries (
			delivery_number, user_id, customer_id, delivery_date, delivery_address,
			contact_person, contact_phone, status, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING id`,
		d.DeliveryNumber, d.UserID, d.CustomerID, d.DeliveryDate, d.DeliveryAddress,
		d.ContactPerson, d.ContactPhone, d.Status, d.Notes,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateNumber
		}
		return 0, fmt.Errorf("delivery: create delivery: %w", err)
	}
	return id, nil
}

func (r *repository) InsertItem(ctx context.Context, item DeliveryItem) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO delivery_items (delivery_id, product_id, quantity, area_covered)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		item.DeliveryID, item.ProductID, item.Quantity, item.AreaCovered,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("delivery: insert item: %w", err)
	}
	return id, nil
}

const deliveryColumns = `d.id, d.delivery_number, d.user_id, d.customer_id, d.delivery_date,
	d.delivery_address, d.contact_person, d.contact_phone, d.status, d.notes,
	d.created_at, d.updated_at`

func (r *repository) Get(ctx context.Context, userID, id int64) (*DeliveryDetail, error) {
	var d DeliveryDetail
	err := r.db.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s, c.name
		FROM deliveries d
		JOIN customers c ON d.customer_id = c.id
		WHERE d.id = $1 AND d.user_id = $2`, deliveryColumns),
		id, userID,
	).Scan(
		&d.ID, &d.DeliveryNumber, &d.UserID, &d.CustomerID, &d.DeliveryDate,
		&d.DeliveryAddress, &d.ContactPerson, &d.ContactPhone, &d.Status, &d.Notes,
		&d.CreatedAt, &d.UpdatedAt, &d.CustomerName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("delivery: get delivery: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT di.id, di.delivery_id, di.product_id, di.quantity, di.area_covered, p.name
		FROM delivery_items di
		JOIN products p ON di.product_id = p.id
		WHERE di.delivery_id = $1
		ORDER BY di.id`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("delivery: list items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it DeliveryItemDetail
		if err := rows.Scan(&it.ID, &it.DeliveryID, &it.ProductID, &it.Quantity, &it.AreaCovered, &it.ProductName); err != nil {
			return nil, err
		}
		d.Items = append(d.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repository) List(ctx context.Context, userID int64, req ListDeliveriesRequest) ([]DeliverySummary, int, error) {
	conditions := []string{"d.user_id = $1"}
	args := []any{userID}
	argPos := 2

	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("d.status = $%d", argPos))
		args = append(args, *req.Status)
		argPos++
	}
	if req.CustomerID != nil {
		conditions = append(conditions, fmt.Sprintf("d.customer_id = $%d", argPos))
		args = append(args, *req.CustomerID)
		argPos++
	}
	if req.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("d.delivery_date >= $%d", argPos))
		args = append(args, *req.DateFrom)
		argPos++
	}
	if req.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("d.delivery_date <= $%d", argPos))
		args = append(args, *req.DateTo)
		argPos++
	}
	whereClause := "WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.db.QueryRow(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM deliveries d %s", whereClause), args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("delivery: count deliveries: %w", err)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`
		SELECT %s, c.name
		FROM deliveries d
		JOIN customers c ON d.customer_id = c.id
		%s
		ORDER BY d.delivery_date DESC, d.id DESC
		LIMIT $%d OFFSET $%d`, deliveryColumns, whereClause, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("delivery: list deliveries: %w", err)
	}
	defer rows.Close()

	var summaries []DeliverySummary
	for rows.Next() {
		var s DeliverySummary
		if err := rows.Scan(
			&s.ID, &s.DeliveryNumber, &s.UserID, &s.CustomerID, &s.DeliveryDate,
			&s.DeliveryAddress, &s.ContactPerson, &s.ContactPhone, &s.Status, &s.Notes,
			&s.CreatedAt, &s.UpdatedAt, &s.CustomerName,
		); err != nil {
			return nil, 0, err
		}
		summaries = append(summaries, s)
	}
	return summaries, total, rows.Err()
}

func (r *repository) Search(ctx context.Context, userID int64, query string, limit int) ([]DeliverySummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT %s, c.name
		FROM deliveries d
		JOIN customers c ON d.customer_id = c.id
		WHERE d.user_id = $1 AND (d.delivery_number ILIKE $2 OR c.name ILIKE $2)
		ORDER BY d.delivery_date DESC, d.id DESC
		LIMIT $3`, deliveryColumns),
		userID, "%"+query+"%", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("delivery: search deliveries: %w", err)
	}
	defer rows.Close()

	var summaries []DeliverySummary
	for rows.Next() {
		var s DeliverySummary
		if err := rows.Scan(
			&s.ID, &s.DeliveryNumber, &s.UserID, &s.CustomerID, &s.DeliveryDate,
			&s.DeliveryAddress, &s.ContactPerson, &s.ContactPhone, &s.Status, &s.Notes,
			&s.CreatedAt, &s.UpdatedAt, &s.CustomerName,
		); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (r *repository) Update(ctx context.Context, userID, id int64, req UpdateDeliveryRequest) error {
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
	if req.DeliveryDate != nil {
		add("delivery_date", *req.DeliveryDate)
	}
	if req.DeliveryAddress != nil {
		add("delivery_address", *req.DeliveryAddress)
	}
	if req.ContactPerson != nil {
		add("contact_person", *req.ContactPerson)
	}
	if req.ContactPhone != nil {
		add("contact_phone", *req.ContactPhone)
	}
	if req.Notes != nil {
		add("notes", *req.Notes)
	}

	query := fmt.Sprintf("UPDATE deliveries SET %s WHERE id = $%d AND user_id = $%d",
		strings.Join(sets, ", "), argPos, argPos+1)
	args = append(args, id, userID)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delivery: update delivery: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, userID, id int64, status Status) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE deliveries SET status = $1, updated_at = NOW() WHERE id = $2 AND user_id = $3`,
		status, id, userID,
	)
	if err != nil {
		return fmt.Errorf("delivery: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) DeleteItems(ctx context.Context, userID, deliveryID int64) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM delivery_items
		WHERE delivery_id IN (SELECT id FROM deliveries WHERE id = $1 AND user_id = $2)`,
		deliveryID, userID,
	)
	if err != nil {
		return fmt.Errorf("delivery: delete items: %w", err)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, userID, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM deliveries WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delivery: delete delivery: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) NextNumber(ctx context.Context, userID int64) (string, error) {
	return shared.NextDocNumber(ctx, r.db, "deliveries", "delivery_number", userID, DeliveryNumberPrefix)
}

func (r *repository) Count(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM deliveries WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("delivery: count deliveries: %w", err)
	}
	return count, nil
}

func (r *repository) CountByStatus(ctx context.Context, userID int64) (map[Status]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT status, COUNT(*) FROM deliveries WHERE user_id = $1 GROUP BY status`, userID)
	if err != nil {
		return nil, fmt.Errorf("delivery: count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int64)
	for rows.Next() {
		var status Status
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
