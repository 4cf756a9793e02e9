package order

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quickbite/quickbite/internal/domain/auth"
	"github.com/quickbite/quickbite/internal/domain/cart"
	"github.com/quickbite/quickbite/internal/domain/catalog"
)

// deliveryEstimate is added to the placement time to produce the estimated
// delivery timestamp.
const deliveryEstimate = 30 * time.Minute

// placeRetries bounds re-reads of the cart when a concurrent placement
// consumed it between our read and commit.
const placeRetries = 2

// Default and maximum page sizes for listings.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Service converts carts into orders and owns the status state machine.
type Service struct {
	carts   cart.Store
	catalog catalog.Lookup
	orders  Repository
	events  Publisher

	now func() time.Time
}

// NewService creates an order Service. events may be nil, in which case
// lifecycle events are discarded.
func NewService(carts cart.Store, lookup catalog.Lookup, orders Repository, events Publisher) *Service {
	if events == nil {
		events = NopPublisher{}
	}
	return &Service{
		carts:   carts,
		catalog: lookup,
		orders:  orders,
		events:  events,
		now:     time.Now,
	}
}

// Place converts the customer's cart into a persisted order. Prices are
// snapshotted from the catalog at this moment; the order insert and the cart
// clear commit in one transaction guarded by the cart version, so a retried
// or concurrent Place cannot create two orders from one cart state.
func (s *Service) Place(ctx context.Context, customerID string, addr catalog.Address, instructions string) (*Order, error) {
	var lastErr error
	for range placeRetries {
		c, err := s.carts.GetOrCreate(ctx, customerID)
		if err != nil {
			return nil, errors.Wrap(err, "load cart")
		}
		if c.Empty() {
			return nil, ErrEmptyCart
		}

		lines := make([]Line, len(c.Lines))
		total := decimal.Zero
		for i, cl := range c.Lines {
			item, err := s.catalog.GetMenuItem(ctx, cl.MenuItemID)
			if err != nil {
				return nil, errors.Wrapf(err, "snapshot menu item %s", cl.MenuItemID)
			}
			lines[i] = Line{
				MenuItemID: item.ID,
				Name:       item.Name,
				Quantity:   cl.Quantity,
				UnitPrice:  item.Price,
			}
			total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(cl.Quantity))))
		}

		if err := validateAddress(addr); err != nil {
			return nil, err
		}

		now := s.now()
		o := &Order{
			ID:                    uuid.New().String(),
			CustomerID:            customerID,
			RestaurantID:          c.RestaurantID,
			Lines:                 lines,
			TotalAmount:           total.Round(2),
			Status:                StatusPending,
			DeliveryAddress:       addr,
			DeliveryInstructions:  strings.TrimSpace(instructions),
			CreatedAt:             now,
			EstimatedDeliveryTime: now.Add(deliveryEstimate),
		}

		if err := s.orders.Create(ctx, o, c.Version); err != nil {
			if errors.Is(err, ErrCartConflict) {
				// Another call mutated or consumed the cart. Re-read and
				// either report the now-empty cart or retry against the new
				// state.
				lastErr = err
				continue
			}
			return nil, errors.Wrap(err, "create order")
		}

		s.events.PublishCreated(ctx, CreatedEvent{
			OrderID:      o.ID,
			CustomerID:   o.CustomerID,
			RestaurantID: o.RestaurantID,
			TotalAmount:  o.TotalAmount.String(),
			Lines:        o.Lines,
		})
		return o, nil
	}
	return nil, errors.Wrap(lastErr, "place order after retries")
}

// UpdateStatus sets an order's status. Admin-only. Any enum value is accepted
// regardless of the current state; setting delivered also stamps the actual
// delivery time.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, newStatus Status, actingRole auth.Role) (*Order, error) {
	if actingRole != auth.RoleAdmin {
		return nil, ErrForbidden
	}
	if !ValidStatus(newStatus) {
		return nil, &ValidationError{Fields: []string{"status"}}
	}

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	var deliveredAt *time.Time
	if newStatus == StatusDelivered {
		t := s.now()
		deliveredAt = &t
	}

	if err := s.orders.SetStatus(ctx, orderID, newStatus, deliveredAt); err != nil {
		return nil, errors.Wrap(err, "set status")
	}

	from := o.Status
	o.Status = newStatus
	if deliveredAt != nil {
		o.ActualDeliveryTime = deliveredAt
	}

	s.events.PublishStatusChanged(ctx, StatusChangedEvent{
		OrderID:      o.ID,
		CustomerID:   o.CustomerID,
		RestaurantID: o.RestaurantID,
		From:         from,
		To:           newStatus,
	})
	return o, nil
}

// Cancel sets the order to cancelled. Only the owning customer may cancel,
// and only while the order is in a non-terminal state.
func (s *Service) Cancel(ctx context.Context, orderID, customerID string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != customerID {
		return nil, ErrForbidden
	}
	if o.Status.Terminal() {
		return nil, &InvalidTransitionError{From: o.Status}
	}

	if err := s.orders.Cancel(ctx, orderID); err != nil {
		if errors.Is(err, ErrNotCancellable) {
			// A concurrent status update won the race; re-read so the error
			// names the state the order actually reached.
			if cur, gerr := s.orders.GetByID(ctx, orderID); gerr == nil {
				return nil, &InvalidTransitionError{From: cur.Status}
			}
			return nil, &InvalidTransitionError{From: o.Status}
		}
		return nil, errors.Wrap(err, "cancel order")
	}

	from := o.Status
	o.Status = StatusCancelled

	s.events.PublishStatusChanged(ctx, StatusChangedEvent{
		OrderID:      o.ID,
		CustomerID:   o.CustomerID,
		RestaurantID: o.RestaurantID,
		From:         from,
		To:           StatusCancelled,
	})
	return o, nil
}

// Get returns an order visible to the acting user: the owning customer or
// any admin.
func (s *Service) Get(ctx context.Context, orderID, actingUserID string, actingRole auth.Role) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != actingUserID && actingRole != auth.RoleAdmin {
		return nil, ErrForbidden
	}
	return o, nil
}

// List returns one page of orders, newest first, plus the total match count.
// Non-admin callers are always scoped to their own orders regardless of the
// requested filter.
func (s *Service) List(ctx context.Context, filter ListFilter, page, pageSize int, actingUserID string, actingRole auth.Role) ([]Order, *Page, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	if actingRole != auth.RoleAdmin {
		filter.CustomerID = actingUserID
	}
	if filter.Status != "" && !ValidStatus(filter.Status) {
		return nil, nil, &ValidationError{Fields: []string{"status"}}
	}

	orders, total, err := s.orders.List(ctx, filter, page, pageSize)
	if err != nil {
		return nil, nil, errors.Wrap(err, "list orders")
	}

	totalPages := total / pageSize
	if total%pageSize != 0 {
		totalPages++
	}
	return orders, &Page{Current: page, TotalPages: totalPages, Total: total}, nil
}

// Page describes the pagination of a listing result.
type Page struct {
	Current    int `json:"currentPage"`
	TotalPages int `json:"totalPages"`
	Total      int `json:"total"`
}

func validateAddress(addr catalog.Address) error {
	var missing []string
	if strings.TrimSpace(addr.Street) == "" {
		missing = append(missing, "deliveryAddress.street")
	}
	if strings.TrimSpace(addr.City) == "" {
		missing = append(missing, "deliveryAddress.city")
	}
	if strings.TrimSpace(addr.State) == "" {
		missing = append(missing, "deliveryAddress.state")
	}
	if strings.TrimSpace(addr.ZipCode) == "" {
		missing = append(missing, "deliveryAddress.zipCode")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}
