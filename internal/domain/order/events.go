package order

import "context"

// Event types published on order lifecycle changes.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// CreatedEvent is emitted once per successfully placed order.
type CreatedEvent struct {
	OrderID      string `json:"order_id"`
	CustomerID   string `json:"customer_id"`
	RestaurantID string `json:"restaurant_id"`
	TotalAmount  string `json:"total_amount"`
	Lines        []Line `json:"lines"`
}

// StatusChangedEvent is emitted on every status update, including
// cancellation.
type StatusChangedEvent struct {
	OrderID      string `json:"order_id"`
	CustomerID   string `json:"customer_id"`
	RestaurantID string `json:"restaurant_id"`
	From         Status `json:"from"`
	To           Status `json:"to"`
}

// Publisher emits order lifecycle events to downstream consumers (kitchen
// displays, analytics). Implementations must not fail the calling request:
// publishing is fire-and-forget.
type Publisher interface {
	PublishCreated(ctx context.Context, ev CreatedEvent)
	PublishStatusChanged(ctx context.Context, ev StatusChangedEvent)
}

// NopPublisher discards all events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishCreated(context.Context, CreatedEvent)             {}
func (NopPublisher) PublishStatusChanged(context.Context, StatusChangedEvent) {}
