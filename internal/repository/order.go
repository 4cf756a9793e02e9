package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quickbite/quickbite/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (id, customer_id, restaurant_id, lines, total_amount, status,
		street, city, state, zip_code, delivery_instructions,
		created_at, estimated_delivery_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	// Clearing the source cart is version-guarded: zero rows affected means a
	// concurrent placement already consumed this cart state.
	clearCartVersionedSQL = `UPDATE carts
		SET restaurant_id = '', version = version + 1, updated_at = NOW()
		WHERE customer_id = $1 AND version = $2`

	getOrderSQL = `SELECT id, customer_id, restaurant_id, lines, total_amount, status,
		street, city, state, zip_code, delivery_instructions,
		created_at, estimated_delivery_time, actual_delivery_time
		FROM orders WHERE id = $1`

	setOrderStatusSQL = `UPDATE orders
		SET status = $2, actual_delivery_time = COALESCE($3, actual_delivery_time)
		WHERE id = $1`

	// Cancellation is guarded in the statement itself so a concurrent
	// delivery landing between the caller's read and this write still wins.
	cancelOrderSQL = `UPDATE orders SET status = 'cancelled'
		WHERE id = $1 AND status NOT IN ('delivered', 'cancelled')`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Order
// lines are serialized to JSON for storage in the JSONB column.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order and clears the customer's cart in one
// transaction. When the stored cart no longer carries cartVersion the whole
// transaction rolls back with order.ErrCartConflict, so a concurrent or
// retried placement can never produce two orders from one cart state.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order, cartVersion int64) error {
	linesJSON, err := json.Marshal(o.Lines)
	if err != nil {
		return fmt.Errorf("marshaling order lines: %w", err)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning order create: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, createOrderSQL,
		o.ID, o.CustomerID, o.RestaurantID, linesJSON, o.TotalAmount, string(o.Status),
		o.DeliveryAddress.Street, o.DeliveryAddress.City, o.DeliveryAddress.State, o.DeliveryAddress.ZipCode,
		o.DeliveryInstructions, o.CreatedAt, o.EstimatedDeliveryTime,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	tag, err := tx.Exec(ctx, clearCartVersionedSQL, o.CustomerID, cartVersion)
	if err != nil {
		return fmt.Errorf("clearing cart for %q: %w", o.CustomerID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrCartConflict
	}

	if _, err := tx.Exec(ctx, deleteCartLinesSQL, o.CustomerID); err != nil {
		return fmt.Errorf("clearing cart lines for %q: %w", o.CustomerID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns a single order, or order.ErrNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// SetStatus updates the status column and, when deliveredAt is non-nil, the
// actual delivery timestamp.
func (r *OrderRepository) SetStatus(ctx context.Context, id string, status order.Status, deliveredAt *time.Time) error {
	tag, err := r.pool.Exec(ctx, setOrderStatusSQL, id, string(status), deliveredAt)
	if err != nil {
		return fmt.Errorf("updating order %q status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// Cancel marks the order cancelled unless it already reached a terminal
// state. Zero rows affected reports order.ErrNotCancellable.
func (r *OrderRepository) Cancel(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, cancelOrderSQL, id)
	if err != nil {
		return fmt.Errorf("cancelling order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotCancellable
	}
	return nil
}

// List returns one page of orders matching the filter, newest first, plus the
// total match count.
func (r *OrderRepository) List(ctx context.Context, filter order.ListFilter, page, pageSize int) ([]order.Order, int, error) {
	where, args := buildOrderFilter(filter)

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM orders"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting orders: %w", err)
	}

	query := `SELECT id, customer_id, restaurant_id, lines, total_amount, status,
		street, city, state, zip_code, delivery_instructions,
		created_at, estimated_delivery_time, actual_delivery_time
		FROM orders` + where +
		" ORDER BY created_at DESC LIMIT $" + strconv.Itoa(len(args)+1) +
		" OFFSET $" + strconv.Itoa(len(args)+2)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, 0, fmt.Errorf("scanning orders: %w", err)
	}
	return orders, total, nil
}

func buildOrderFilter(filter order.ListFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, cond+"$"+strconv.Itoa(len(args)))
	}
	if filter.CustomerID != "" {
		add(" customer_id = ", filter.CustomerID)
	}
	if filter.RestaurantID != "" {
		add(" restaurant_id = ", filter.RestaurantID)
	}
	if filter.Status != "" {
		add(" status = ", string(filter.Status))
	}
	if len(conds) == 0 {
		return "", nil
	}
	where := " WHERE" + conds[0]
	for _, c := range conds[1:] {
		where += " AND" + c
	}
	return where, args
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		linesJSON []byte
		status    string
	)
	err := row.Scan(
		&o.ID, &o.CustomerID, &o.RestaurantID, &linesJSON, &o.TotalAmount, &status,
		&o.DeliveryAddress.Street, &o.DeliveryAddress.City, &o.DeliveryAddress.State, &o.DeliveryAddress.ZipCode,
		&o.DeliveryInstructions, &o.CreatedAt, &o.EstimatedDeliveryTime, &o.ActualDeliveryTime,
	)
	if err != nil {
		return o, err
	}
	o.Status = order.Status(status)
	if err := json.Unmarshal(linesJSON, &o.Lines); err != nil {
		return o, fmt.Errorf("unmarshaling order lines: %w", err)
	}
	return o, nil
}
