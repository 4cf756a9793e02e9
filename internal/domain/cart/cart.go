// Package cart implements the per-customer staging area for menu item
// selections. A cart is bound to at most one restaurant at a time.
package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
)

// Sentinel errors for cart operations.
var (
	ErrNotFound     = errors.New("cart not found")
	ErrLineNotFound = errors.New("cart line not found")

	// ErrVersionConflict is returned by Store.Save when the cart was modified
	// concurrently. The service retries the whole read-modify-write cycle.
	ErrVersionConflict = errors.New("cart version conflict")
)

// CrossRestaurantError indicates an attempt to mix items from two restaurants
// in one cart.
type CrossRestaurantError struct {
	CartRestaurantID string
	ItemRestaurantID string
}

func (e *CrossRestaurantError) Error() string {
	return fmt.Sprintf("cannot add items from restaurant %s to a cart bound to restaurant %s: clear the cart first",
		e.ItemRestaurantID, e.CartRestaurantID)
}

// InvalidQuantityError indicates a non-positive quantity was requested.
type InvalidQuantityError struct {
	Quantity int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be at least 1, got %d", e.Quantity)
}

// Line is a single menu item selection inside a cart.
type Line struct {
	ID         string `json:"id"`
	MenuItemID string `json:"menuItemId"`
	Quantity   int    `json:"quantity"`
}

// Cart holds one customer's pending selections. RestaurantID is empty exactly
// when Lines is empty.
type Cart struct {
	CustomerID   string `json:"customerId"`
	RestaurantID string `json:"restaurantId,omitempty"`
	Lines        []Line `json:"lines"`

	// Version is the optimistic concurrency token maintained by the store.
	Version   int64     `json:"-"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FindLine returns the line with the given id, or nil.
func (c *Cart) FindLine(lineID string) *Line {
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			return &c.Lines[i]
		}
	}
	return nil
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool {
	return len(c.Lines) == 0
}

// Store defines persistence operations for carts. GetOrCreate must guarantee
// a single cart per customer under concurrent calls (upsert with a uniqueness
// constraint); Save must reject writes against a stale Version with
// ErrVersionConflict.
type Store interface {
	GetOrCreate(ctx context.Context, customerID string) (*Cart, error)
	Get(ctx context.Context, customerID string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
}
