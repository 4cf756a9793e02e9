package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quickbite/quickbite/internal/domain/catalog"
)

type restaurantJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Cuisine     string          `json:"cuisine"`
	Phone       string          `json:"phone"`
	Email       string          `json:"email"`
	Address     catalog.Address `json:"address"`
	Rating      float64         `json:"rating"`
	IsActive    bool            `json:"isActive"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type menuItemJSON struct {
	ID              string    `json:"id"`
	RestaurantID    string    `json:"restaurantId"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Price           float64   `json:"price"`
	Category        string    `json:"category"`
	Image           string    `json:"image,omitempty"`
	IsAvailable     bool      `json:"isAvailable"`
	PreparationTime int       `json:"preparationTime"`
	CreatedAt       time.Time `json:"createdAt"`
}

func toRestaurantJSON(r *catalog.Restaurant) restaurantJSON {
	return restaurantJSON{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Cuisine:     r.Cuisine,
		Phone:       r.Phone,
		Email:       r.Email,
		Address:     r.Address,
		Rating:      r.Rating.InexactFloat64(),
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt,
	}
}

func toMenuItemJSON(m *catalog.MenuItem) menuItemJSON {
	return menuItemJSON{
		ID:              m.ID,
		RestaurantID:    m.RestaurantID,
		Name:            m.Name,
		Description:     m.Description,
		Price:           m.Price.InexactFloat64(),
		Category:        m.Category,
		Image:           m.Image,
		IsAvailable:     m.IsAvailable,
		PreparationTime: m.PreparationTime,
		CreatedAt:       m.CreatedAt,
	}
}

func (h *Handler) listRestaurants(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	restaurants, err := h.catalog.ListRestaurants(r.Context(), catalog.RestaurantFilter{
		Cuisine: q.Get("cuisine"),
		City:    q.Get("city"),
		Search:  q.Get("search"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]restaurantJSON, len(restaurants))
	for i := range restaurants {
		out[i] = toRestaurantJSON(&restaurants[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getRestaurant(w http.ResponseWriter, r *http.Request) {
	rest, err := h.catalog.GetRestaurant(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRestaurantJSON(rest))
}

func (h *Handler) listMenuItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.catalog.ListMenuItems(r.Context(), chi.URLParam(r, "restaurantID"), catalog.MenuFilter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]menuItemJSON, len(items))
	for i := range items {
		out[i] = toMenuItemJSON(&items[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getMenuItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.catalog.GetMenuItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMenuItemJSON(item))
}

type createRestaurantRequest struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Cuisine     string      `json:"cuisine"`
	Phone       string      `json:"phone"`
	Email       string      `json:"email"`
	Address     addressJSON `json:"address"`
}

func (req *createRestaurantRequest) missingFields() []string {
	var missing []string
	require := func(field, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, field)
		}
	}
	require("name", req.Name)
	require("cuisine", req.Cuisine)
	require("phone", req.Phone)
	require("email", req.Email)
	require("address.street", req.Address.Street)
	require("address.city", req.Address.City)
	require("address.state", req.Address.State)
	require("address.zipCode", req.Address.ZipCode)
	return missing
}

func (h *Handler) createRestaurant(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	var req createRestaurantRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if missing := req.missingFields(); len(missing) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message": "validation failed",
			"errors":  missing,
		})
		return
	}

	rest := &catalog.Restaurant{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Cuisine:     req.Cuisine,
		Phone:       req.Phone,
		Email:       req.Email,
		Address:     req.Address.domain(),
		IsActive:    true,
		OwnerID:     id.UserID,
		CreatedAt:   time.Now(),
	}
	if err := h.catalog.CreateRestaurant(r.Context(), rest); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":    "restaurant created",
		"restaurant": toRestaurantJSON(rest),
	})
}

type updateRestaurantRequest struct {
	Name        *string      `json:"name"`
	Description *string      `json:"description"`
	Cuisine     *string      `json:"cuisine"`
	Phone       *string      `json:"phone"`
	Email       *string      `json:"email"`
	Address     *addressJSON `json:"address"`
	IsActive    *bool        `json:"isActive"`
}

func (h *Handler) updateRestaurant(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	var req updateRestaurantRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid json body")
		return
	}

	upd := catalog.RestaurantUpdate{
		Name:        req.Name,
		Description: req.Description,
		Cuisine:     req.Cuisine,
		Phone:       req.Phone,
		Email:       req.Email,
		IsActive:    req.IsActive,
	}
	if req.Address != nil {
		addr := req.Address.domain()
		upd.Address = &addr
	}

	rest, err := h.catalog.UpdateRestaurant(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "restaurant updated",
		"restaurant": toRestaurantJSON(rest),
	})
}

func (h *Handler) deleteRestaurant(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	if err := h.catalog.DeleteRestaurant(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "restaurant deleted")
}

type createMenuItemRequest struct {
	RestaurantID    string  `json:"restaurantId"`
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	Price           float64 `json:"price"`
	Category        string  `json:"category"`
	Image           string  `json:"image"`
	PreparationTime int     `json:"preparationTime"`
}

func (h *Handler) createMenuItem(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	var req createMenuItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid json body")
		return
	}

	var missing []string
	if strings.TrimSpace(req.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(req.RestaurantID) == "" {
		missing = append(missing, "restaurantId")
	}
	if req.Price < 0 {
		missing = append(missing, "price")
	}
	if !catalog.ValidCategory(req.Category) {
		missing = append(missing, "category")
	}
	if len(missing) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message": "validation failed",
			"errors":  missing,
		})
		return
	}

	// The restaurant must exist; a menu item referencing a missing
	// restaurant is a 404, not a silent foreign key failure.
	if _, err := h.catalog.GetRestaurant(r.Context(), req.RestaurantID); err != nil {
		writeError(w, r, err)
		return
	}

	prep := req.PreparationTime
	if prep < 1 {
		prep = 15
	}
	item := &catalog.MenuItem{
		ID:              uuid.New().String(),
		RestaurantID:    req.RestaurantID,
		Name:            req.Name,
		Description:     req.Description,
		Price:           decimal.NewFromFloat(req.Price).Round(2),
		Category:        req.Category,
		Image:           req.Image,
		IsAvailable:     true,
		PreparationTime: prep,
		CreatedAt:       time.Now(),
	}
	if err := h.catalog.CreateMenuItem(r.Context(), item); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":  "menu item created",
		"menuItem": toMenuItemJSON(item),
	})
}

type updateMenuItemRequest struct {
	Name            *string  `json:"name"`
	Description     *string  `json:"description"`
	Price           *float64 `json:"price"`
	Category        *string  `json:"category"`
	Image           *string  `json:"image"`
	IsAvailable     *bool    `json:"isAvailable"`
	PreparationTime *int     `json:"preparationTime"`
}

func (h *Handler) updateMenuItem(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	var req updateMenuItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.Price != nil && *req.Price < 0 {
		writeMessage(w, http.StatusBadRequest, "price cannot be negative")
		return
	}
	if req.Category != nil && !catalog.ValidCategory(*req.Category) {
		writeMessage(w, http.StatusBadRequest, "invalid category")
		return
	}

	upd := catalog.MenuItemUpdate{
		Name:            req.Name,
		Description:     req.Description,
		Category:        req.Category,
		Image:           req.Image,
		IsAvailable:     req.IsAvailable,
		PreparationTime: req.PreparationTime,
	}
	if req.Price != nil {
		price := decimal.NewFromFloat(*req.Price).Round(2)
		upd.Price = &price
	}

	item, err := h.catalog.UpdateMenuItem(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "menu item updated",
		"menuItem": toMenuItemJSON(item),
	})
}

func (h *Handler) deleteMenuItem(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	if err := h.catalog.DeleteMenuItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "menu item deleted")
}
