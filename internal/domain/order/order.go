// Package order owns the cart-to-order conversion and the order status
// lifecycle. Orders carry price snapshots taken at placement time and are
// immutable except for status and the actual delivery timestamp.
package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/quickbite/quickbite/internal/domain/catalog"
)

// Sentinel errors for order operations.
var (
	ErrNotFound  = errors.New("order not found")
	ErrEmptyCart = errors.New("cart is empty")
	ErrForbidden = errors.New("access denied")

	// ErrCartConflict is returned by Repository.Create when the source cart
	// changed between read and commit, meaning a concurrent call already
	// consumed it.
	ErrCartConflict = errors.New("cart changed during order placement")

	// ErrNotCancellable is returned by Repository.Cancel when the order is
	// missing or already in a terminal state.
	ErrNotCancellable = errors.New("order cannot be cancelled")
)

// InvalidTransitionError indicates a status change out of a terminal state.
type InvalidTransitionError struct {
	From Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order cannot leave terminal status %q", e.From)
}

// ValidationError lists required fields that were missing or malformed.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing or invalid fields: " + strings.Join(e.Fields, ", ")
}

// Line is a single order position with the unit price frozen at placement.
type Line struct {
	MenuItemID string          `json:"menuItemId"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
}

// Order is the persisted result of converting a cart. TotalAmount is computed
// once at creation from the line snapshots and never recomputed.
type Order struct {
	ID                    string
	CustomerID            string
	RestaurantID          string
	Lines                 []Line
	TotalAmount           decimal.Decimal
	Status                Status
	DeliveryAddress       catalog.Address
	DeliveryInstructions  string
	CreatedAt             time.Time
	EstimatedDeliveryTime time.Time
	ActualDeliveryTime    *time.Time
}

// ListFilter narrows order listings. Empty fields match everything.
type ListFilter struct {
	CustomerID   string
	RestaurantID string
	Status       Status
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create persists a new order and clears the source cart in the same
	// transaction. cartVersion is the version of the cart the order was built
	// from; when the stored cart no longer carries that version the whole
	// transaction rolls back with ErrCartConflict.
	Create(ctx context.Context, o *Order, cartVersion int64) error

	GetByID(ctx context.Context, id string) (*Order, error)

	// SetStatus updates the order status and, when deliveredAt is non-nil,
	// the actual delivery timestamp.
	SetStatus(ctx context.Context, id string, status Status, deliveredAt *time.Time) error

	// Cancel marks the order cancelled. The terminal-state check happens
	// atomically with the write, so a delivery landing after the caller's
	// read still blocks the cancellation with ErrNotCancellable.
	Cancel(ctx context.Context, id string) error

	// List returns one page of orders sorted by creation time descending,
	// plus the total match count.
	List(ctx context.Context, filter ListFilter, page, pageSize int) ([]Order, int, error)
}
