// Package handler exposes the HTTP/JSON surface of the service and maps
// domain errors to status codes.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/quickbite/quickbite/internal/domain/auth"
	"github.com/quickbite/quickbite/internal/domain/cart"
	"github.com/quickbite/quickbite/internal/domain/catalog"
	"github.com/quickbite/quickbite/internal/domain/order"
)

// Handler carries the domain services behind the HTTP surface.
type Handler struct {
	carts   *cart.Service
	orders  *order.Service
	catalog catalog.Repository
	tokens  auth.Repository
	pepper  []byte
}

// NewHandler constructs a Handler with the required domain dependencies.
// pepper is the HMAC key used to hash incoming bearer tokens.
func NewHandler(
	carts *cart.Service,
	orders *order.Service,
	cat catalog.Repository,
	tokens auth.Repository,
	pepper []byte,
) *Handler {
	return &Handler{
		carts:   carts,
		orders:  orders,
		catalog: cat,
		tokens:  tokens,
		pepper:  pepper,
	}
}

// Routes mounts all API routes on r. Catalog reads are public; everything
// else requires an authenticated identity.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/restaurants", h.listRestaurants)
	r.Get("/restaurants/{id}", h.getRestaurant)
	r.Get("/menu/restaurant/{restaurantID}", h.listMenuItems)
	r.Get("/menu/{id}", h.getMenuItem)

	r.Group(func(r chi.Router) {
		r.Use(h.Authenticate)

		r.Get("/cart", h.getCart)
		r.Post("/cart/add", h.addCartItem)
		r.Put("/cart/update/{lineID}", h.updateCartItem)
		r.Delete("/cart/remove/{lineID}", h.removeCartItem)
		r.Delete("/cart/clear", h.clearCart)

		r.Post("/orders", h.placeOrder)
		r.Get("/orders", h.listOrders)
		r.Get("/orders/admin/all", h.listAllOrders)
		r.Get("/orders/{id}", h.getOrder)
		r.Put("/orders/{id}/status", h.updateOrderStatus)
		r.Put("/orders/{id}/cancel", h.cancelOrder)

		r.Post("/restaurants", h.createRestaurant)
		r.Put("/restaurants/{id}", h.updateRestaurant)
		r.Delete("/restaurants/{id}", h.deleteRestaurant)
		r.Post("/menu", h.createMenuItem)
		r.Put("/menu/{id}", h.updateMenuItem)
		r.Delete("/menu/{id}", h.deleteMenuItem)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"message": msg})
}

// writeError maps domain errors to HTTP status codes. Anything unrecognized
// is an infrastructure failure: logged and reported as a retry-safe 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		crossErr      *cart.CrossRestaurantError
		qtyErr        *cart.InvalidQuantityError
		validationErr *order.ValidationError
		transitionErr *order.InvalidTransitionError
	)

	switch {
	case errors.Is(err, catalog.ErrMenuItemNotFound),
		errors.Is(err, catalog.ErrRestaurantNotFound),
		errors.Is(err, cart.ErrNotFound),
		errors.Is(err, cart.ErrLineNotFound),
		errors.Is(err, order.ErrNotFound):
		writeMessage(w, http.StatusNotFound, err.Error())
	case errors.As(err, &crossErr),
		errors.As(err, &qtyErr),
		errors.As(err, &transitionErr),
		errors.Is(err, order.ErrEmptyCart):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message": "validation failed",
			"errors":  validationErr.Fields,
		})
	case errors.Is(err, order.ErrForbidden):
		writeMessage(w, http.StatusForbidden, "access denied")
	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "server error")
	}
}

func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func queryInt(r *http.Request, name string, def int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// addressJSON mirrors catalog.Address in request and response bodies.
type addressJSON struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
}

func (a addressJSON) domain() catalog.Address {
	return catalog.Address{Street: a.Street, City: a.City, State: a.State, ZipCode: a.ZipCode}
}

// orderJSON is the wire shape of an order. Prices are rendered as plain JSON
// numbers.
type orderJSON struct {
	ID                    string          `json:"id"`
	CustomerID            string          `json:"customerId"`
	RestaurantID          string          `json:"restaurantId"`
	Lines                 []orderLineJSON `json:"lines"`
	TotalAmount           float64         `json:"totalAmount"`
	Status                string          `json:"status"`
	DeliveryAddress       catalog.Address `json:"deliveryAddress"`
	DeliveryInstructions  string          `json:"deliveryInstructions,omitempty"`
	CreatedAt             time.Time       `json:"createdAt"`
	EstimatedDeliveryTime time.Time       `json:"estimatedDeliveryTime"`
	ActualDeliveryTime    *time.Time      `json:"actualDeliveryTime,omitempty"`
}

type orderLineJSON struct {
	MenuItemID string  `json:"menuItemId"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unitPrice"`
}

func toOrderJSON(o *order.Order) orderJSON {
	lines := make([]orderLineJSON, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = orderLineJSON{
			MenuItemID: l.MenuItemID,
			Name:       l.Name,
			Quantity:   l.Quantity,
			UnitPrice:  l.UnitPrice.InexactFloat64(),
		}
	}
	return orderJSON{
		ID:                    o.ID,
		CustomerID:            o.CustomerID,
		RestaurantID:          o.RestaurantID,
		Lines:                 lines,
		TotalAmount:           o.TotalAmount.InexactFloat64(),
		Status:                string(o.Status),
		DeliveryAddress:       o.DeliveryAddress,
		DeliveryInstructions:  o.DeliveryInstructions,
		CreatedAt:             o.CreatedAt,
		EstimatedDeliveryTime: o.EstimatedDeliveryTime,
		ActualDeliveryTime:    o.ActualDeliveryTime,
	}
}

// cartJSON is the wire shape of a cart, including the live display total.
type cartJSON struct {
	CustomerID   string      `json:"customerId"`
	RestaurantID string      `json:"restaurantId,omitempty"`
	Lines        []cart.Line `json:"lines"`
	Total        float64     `json:"total"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

func (h *Handler) toCartJSON(r *http.Request, c *cart.Cart) (cartJSON, error) {
	out := cartJSON{
		CustomerID:   c.CustomerID,
		RestaurantID: c.RestaurantID,
		Lines:        c.Lines,
		UpdatedAt:    c.UpdatedAt,
	}
	if out.Lines == nil {
		out.Lines = []cart.Line{}
	}
	total, err := h.carts.Total(r.Context(), c)
	if err != nil {
		return cartJSON{}, err
	}
	out.Total = total.InexactFloat64()
	return out, nil
}
