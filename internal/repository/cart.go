package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quickbite/quickbite/internal/domain/cart"
)

const (
	// ON CONFLICT DO NOTHING plus the follow-up select makes concurrent
	// first-touch calls converge on a single cart row per customer.
	upsertCartSQL = `INSERT INTO carts (customer_id) VALUES ($1)
		ON CONFLICT (customer_id) DO NOTHING`

	getCartSQL = `SELECT customer_id, restaurant_id, version, updated_at
		FROM carts WHERE customer_id = $1`

	getCartLinesSQL = `SELECT id, menu_item_id, quantity
		FROM cart_lines WHERE customer_id = $1 ORDER BY position`

	saveCartSQL = `UPDATE carts
		SET restaurant_id = $2, version = version + 1, updated_at = NOW()
		WHERE customer_id = $1 AND version = $3`

	deleteCartLinesSQL = `DELETE FROM cart_lines WHERE customer_id = $1`

	insertCartLineSQL = `INSERT INTO cart_lines (id, customer_id, menu_item_id, quantity, position)
		VALUES ($1, $2, $3, $4, $5)`
)

var _ cart.Store = (*CartStore)(nil)

// CartStore implements cart.Store backed by PostgreSQL. Saves are guarded by
// the cart's version column: a write against a stale version affects zero
// rows and is reported as cart.ErrVersionConflict.
type CartStore struct {
	pool *pgxpool.Pool
}

// NewCartStore returns a CartStore that uses the given pool.
func NewCartStore(pool *pgxpool.Pool) *CartStore {
	return &CartStore{pool: pool}
}

// GetOrCreate returns the customer's cart, inserting an empty row first if
// none exists yet.
func (s *CartStore) GetOrCreate(ctx context.Context, customerID string) (*cart.Cart, error) {
	if _, err := s.pool.Exec(ctx, upsertCartSQL, customerID); err != nil {
		return nil, fmt.Errorf("upserting cart for %q: %w", customerID, err)
	}
	return s.Get(ctx, customerID)
}

// Get returns the customer's cart with its lines, or cart.ErrNotFound.
func (s *CartStore) Get(ctx context.Context, customerID string) (*cart.Cart, error) {
	c := &cart.Cart{}
	err := s.pool.QueryRow(ctx, getCartSQL, customerID).
		Scan(&c.CustomerID, &c.RestaurantID, &c.Version, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("getting cart for %q: %w", customerID, err)
	}

	rows, err := s.pool.Query(ctx, getCartLinesSQL, customerID)
	if err != nil {
		return nil, fmt.Errorf("getting cart lines for %q: %w", customerID, err)
	}
	c.Lines, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (cart.Line, error) {
		var l cart.Line
		err := row.Scan(&l.ID, &l.MenuItemID, &l.Quantity)
		return l, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning cart lines for %q: %w", customerID, err)
	}
	return c, nil
}

// Save writes the cart's binding and full line set in one transaction. The
// version check makes concurrent read-modify-write cycles lose cleanly
// instead of silently overwriting each other.
func (s *CartStore) Save(ctx context.Context, c *cart.Cart) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning cart save: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, saveCartSQL, c.CustomerID, c.RestaurantID, c.Version)
	if err != nil {
		return fmt.Errorf("saving cart for %q: %w", c.CustomerID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrVersionConflict
	}

	if _, err := tx.Exec(ctx, deleteCartLinesSQL, c.CustomerID); err != nil {
		return fmt.Errorf("clearing cart lines for %q: %w", c.CustomerID, err)
	}
	for i, l := range c.Lines {
		if _, err := tx.Exec(ctx, insertCartLineSQL, l.ID, c.CustomerID, l.MenuItemID, l.Quantity, i); err != nil {
			return fmt.Errorf("inserting cart line %q: %w", l.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing cart save: %w", err)
	}
	c.Version++
	return nil
}
