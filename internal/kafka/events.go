package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/quickbite/quickbite/internal/domain/order"
)

// Envelope is the versioned wrapper around every published event.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id"`
	Payload       json.RawMessage `json:"payload"`
}

var _ order.Publisher = (*OrderEvents)(nil)

// OrderEvents implements order.Publisher on top of a Producer. Events are
// keyed by order id so all events for one order land on the same partition.
type OrderEvents struct {
	producer *Producer
	service  string
}

// NewOrderEvents creates an OrderEvents publisher. service names this process
// in the envelope's producer field.
func NewOrderEvents(producer *Producer, service string) *OrderEvents {
	return &OrderEvents{producer: producer, service: service}
}

// PublishCreated emits an order.created envelope.
func (e *OrderEvents) PublishCreated(_ context.Context, ev order.CreatedEvent) {
	e.publish(order.EventOrderCreated, ev.OrderID, ev)
}

// PublishStatusChanged emits an order.status_changed envelope.
func (e *OrderEvents) PublishStatusChanged(_ context.Context, ev order.StatusChangedEvent) {
	e.publish(order.EventOrderStatusChanged, ev.OrderID, ev)
}

func (e *OrderEvents) publish(eventType, orderID string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}
	env := Envelope{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      e.service,
		CorrelationID: orderID,
		Payload:       body,
	}
	value, err := json.Marshal(env)
	if err != nil {
		return
	}
	e.producer.Publish([]byte(orderID), value,
		kafka.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafka.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
