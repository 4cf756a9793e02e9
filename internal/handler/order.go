package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quickbite/quickbite/internal/domain/order"
)

type placeOrderRequest struct {
	DeliveryAddress      addressJSON `json:"deliveryAddress"`
	DeliveryInstructions string      `json:"deliveryInstructions"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req placeOrderRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid json body")
		return
	}

	o, err := h.orders.Place(r.Context(), id.UserID, req.DeliveryAddress.domain(), req.DeliveryInstructions)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "order placed",
		"order":   toOrderJSON(o),
	})
}

// listOrders returns the caller's own orders, filtered and paginated.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	filter := order.ListFilter{
		Status: order.Status(r.URL.Query().Get("status")),
	}
	h.writeOrderPage(w, r, filter, id.UserID)
}

// listAllOrders is the admin view across all customers, optionally filtered
// by restaurant.
func (h *Handler) listAllOrders(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	filter := order.ListFilter{
		RestaurantID: r.URL.Query().Get("restaurant"),
		Status:       order.Status(r.URL.Query().Get("status")),
	}
	h.writeOrderPage(w, r, filter, "")
}

func (h *Handler) writeOrderPage(w http.ResponseWriter, r *http.Request, filter order.ListFilter, actingUserID string) {
	id, _ := IdentityFromContext(r.Context())

	orders, page, err := h.orders.List(r.Context(), filter,
		queryInt(r, "page", 1), queryInt(r, "limit", order.DefaultPageSize),
		actingUserID, id.Role,
	)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]orderJSON, len(orders))
	for i := range orders {
		out[i] = toOrderJSON(&orders[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"orders":      out,
		"totalPages":  page.TotalPages,
		"currentPage": page.Current,
		"total":       page.Total,
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"), id.UserID, id.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderJSON(o))
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid json body")
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), order.Status(req.Status), id.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "order status updated",
		"order":   toOrderJSON(o),
	})
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	o, err := h.orders.Cancel(r.Context(), chi.URLParam(r, "id"), id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "order cancelled",
		"order":   toOrderJSON(o),
	})
}
