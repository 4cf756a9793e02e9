package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type addCartItemRequest struct {
	MenuItemID string `json:"menuItemId"`
	Quantity   int    `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// getCart returns the caller's cart, lazily creating an empty one.
func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	c, err := h.carts.GetOrCreate(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	body, err := h.toCartJSON(r, c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req addCartItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.MenuItemID == "" {
		writeMessage(w, http.StatusBadRequest, "menuItemId is required")
		return
	}

	c, err := h.carts.AddItem(r.Context(), id.UserID, req.MenuItemID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	body, err := h.toCartJSON(r, c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "item added to cart",
		"cart":    body,
	})
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req updateCartItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid json body")
		return
	}

	c, err := h.carts.UpdateQuantity(r.Context(), id.UserID, chi.URLParam(r, "lineID"), req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	body, err := h.toCartJSON(r, c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "cart updated",
		"cart":    body,
	})
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	c, err := h.carts.RemoveItem(r.Context(), id.UserID, chi.URLParam(r, "lineID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	body, err := h.toCartJSON(r, c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "item removed from cart",
		"cart":    body,
	})
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	c, err := h.carts.Clear(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	body, err := h.toCartJSON(r, c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "cart cleared",
		"cart":    body,
	})
}
