package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quickbite/quickbite/internal/domain/catalog"
)

// saveRetries bounds the optimistic retry loop for concurrent mutations of
// the same customer's cart.
const saveRetries = 3

// Service encapsulates cart business logic: the single-restaurant invariant,
// duplicate line merging, and totals.
type Service struct {
	store   Store
	catalog catalog.Lookup
}

// NewService creates a cart Service.
func NewService(store Store, lookup catalog.Lookup) *Service {
	return &Service{
		store:   store,
		catalog: lookup,
	}
}

// GetOrCreate returns the customer's cart, creating an empty one on first use.
func (s *Service) GetOrCreate(ctx context.Context, customerID string) (*Cart, error) {
	c, err := s.store.GetOrCreate(ctx, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "get or create cart")
	}
	return c, nil
}

// AddItem adds quantity of a menu item to the customer's cart. Lines for the
// same menu item merge by incrementing quantity. Adding an item owned by a
// different restaurant than the cart's binding fails and leaves the cart
// unchanged.
func (s *Service) AddItem(ctx context.Context, customerID, menuItemID string, quantity int) (*Cart, error) {
	if quantity < 1 {
		return nil, &InvalidQuantityError{Quantity: quantity}
	}

	item, err := s.catalog.GetMenuItem(ctx, menuItemID)
	if err != nil {
		return nil, err
	}
	if !item.IsAvailable {
		return nil, catalog.ErrMenuItemNotFound
	}

	return s.mutate(ctx, customerID, func(c *Cart) error {
		if c.RestaurantID != "" && c.RestaurantID != item.RestaurantID {
			return &CrossRestaurantError{
				CartRestaurantID: c.RestaurantID,
				ItemRestaurantID: item.RestaurantID,
			}
		}
		c.RestaurantID = item.RestaurantID

		for i := range c.Lines {
			if c.Lines[i].MenuItemID == menuItemID {
				c.Lines[i].Quantity += quantity
				return nil
			}
		}
		c.Lines = append(c.Lines, Line{
			ID:         uuid.New().String(),
			MenuItemID: menuItemID,
			Quantity:   quantity,
		})
		return nil
	})
}

// UpdateQuantity replaces the quantity of an existing line in place.
func (s *Service) UpdateQuantity(ctx context.Context, customerID, lineID string, quantity int) (*Cart, error) {
	if quantity < 1 {
		return nil, &InvalidQuantityError{Quantity: quantity}
	}

	return s.mutateExisting(ctx, customerID, func(c *Cart) error {
		line := c.FindLine(lineID)
		if line == nil {
			return ErrLineNotFound
		}
		line.Quantity = quantity
		return nil
	})
}

// RemoveItem deletes a line. When the last line goes, the restaurant binding
// is cleared as well.
func (s *Service) RemoveItem(ctx context.Context, customerID, lineID string) (*Cart, error) {
	return s.mutateExisting(ctx, customerID, func(c *Cart) error {
		idx := -1
		for i := range c.Lines {
			if c.Lines[i].ID == lineID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ErrLineNotFound
		}
		c.Lines = append(c.Lines[:idx], c.Lines[idx+1:]...)
		if len(c.Lines) == 0 {
			c.RestaurantID = ""
		}
		return nil
	})
}

// Clear empties the cart and drops the restaurant binding. Clearing an
// already-empty cart succeeds.
func (s *Service) Clear(ctx context.Context, customerID string) (*Cart, error) {
	return s.mutateExisting(ctx, customerID, func(c *Cart) error {
		c.Lines = nil
		c.RestaurantID = ""
		return nil
	})
}

// Total computes the cart's display total from live catalog prices. Orders
// snapshot prices separately at placement time; this value is only shown to
// the customer before checkout.
func (s *Service) Total(ctx context.Context, c *Cart) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, line := range c.Lines {
		item, err := s.catalog.GetMenuItem(ctx, line.MenuItemID)
		if err != nil {
			return decimal.Zero, errors.Wrapf(err, "price menu item %s", line.MenuItemID)
		}
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total.Round(2), nil
}

// mutate applies fn to the customer's cart (creating one if absent) and saves
// it, retrying the full read-modify-write cycle on version conflicts.
func (s *Service) mutate(ctx context.Context, customerID string, fn func(*Cart) error) (*Cart, error) {
	var lastErr error
	for range saveRetries {
		c, err := s.store.GetOrCreate(ctx, customerID)
		if err != nil {
			return nil, errors.Wrap(err, "load cart")
		}
		if err := fn(c); err != nil {
			return nil, err
		}
		if err := s.store.Save(ctx, c); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				lastErr = err
				continue
			}
			return nil, errors.Wrap(err, "save cart")
		}
		return c, nil
	}
	return nil, errors.Wrap(lastErr, "save cart after retries")
}

// mutateExisting is mutate for operations that require the cart to already
// exist (update, remove, clear).
func (s *Service) mutateExisting(ctx context.Context, customerID string, fn func(*Cart) error) (*Cart, error) {
	var lastErr error
	for range saveRetries {
		c, err := s.store.Get(ctx, customerID)
		if err != nil {
			return nil, err
		}
		if err := fn(c); err != nil {
			return nil, err
		}
		if err := s.store.Save(ctx, c); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				lastErr = err
				continue
			}
			return nil, errors.Wrap(err, "save cart")
		}
		return c, nil
	}
	return nil, errors.Wrap(lastErr, "save cart after retries")
}
