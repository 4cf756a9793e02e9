// Package catalog holds the restaurant and menu item records that carts and
// orders reference by id.
package catalog

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrRestaurantNotFound is returned when a requested restaurant does not exist.
var ErrRestaurantNotFound = errors.New("restaurant not found")

// ErrMenuItemNotFound is returned when a requested menu item does not exist.
var ErrMenuItemNotFound = errors.New("menu item not found")

// Categories a menu item may belong to.
const (
	CategoryAppetizer  = "appetizer"
	CategoryMainCourse = "main_course"
	CategoryDessert    = "dessert"
	CategoryBeverage   = "beverage"
	CategorySalad      = "salad"
	CategorySoup       = "soup"
)

// ValidCategory reports whether c is a known menu item category.
func ValidCategory(c string) bool {
	switch c {
	case CategoryAppetizer, CategoryMainCourse, CategoryDessert,
		CategoryBeverage, CategorySalad, CategorySoup:
		return true
	}
	return false
}

// Address is a postal address attached to a restaurant or an order.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
}

// Restaurant is a venue customers order from.
type Restaurant struct {
	ID          string
	Name        string
	Description string
	Cuisine     string
	Phone       string
	Email       string
	Address     Address
	Rating      decimal.Decimal
	IsActive    bool
	OwnerID     string
	CreatedAt   time.Time
}

// MenuItem is a purchasable dish belonging to exactly one restaurant.
type MenuItem struct {
	ID              string
	RestaurantID    string
	Name            string
	Description     string
	Price           decimal.Decimal
	Category        string
	Image           string
	IsAvailable     bool
	PreparationTime int // minutes
	CreatedAt       time.Time
}

// RestaurantFilter narrows restaurant listings. Zero values match everything.
type RestaurantFilter struct {
	Cuisine string
	City    string
	Search  string
}

// MenuFilter narrows menu item listings within one restaurant.
type MenuFilter struct {
	Category string
	Search   string
}

// RestaurantUpdate is the closed set of restaurant fields an admin may change.
// Nil pointers leave the stored value untouched.
type RestaurantUpdate struct {
	Name        *string
	Description *string
	Cuisine     *string
	Phone       *string
	Email       *string
	Address     *Address
	IsActive    *bool
}

// MenuItemUpdate is the closed set of menu item fields an admin may change.
type MenuItemUpdate struct {
	Name            *string
	Description     *string
	Price           *decimal.Decimal
	Category        *string
	Image           *string
	IsAvailable     *bool
	PreparationTime *int
}

// Lookup is the read interface the cart and order services use to resolve a
// menu item's price, availability, and owning restaurant.
type Lookup interface {
	GetMenuItem(ctx context.Context, id string) (*MenuItem, error)
}

// Repository defines full persistence operations for the catalog.
type Repository interface {
	Lookup

	ListRestaurants(ctx context.Context, filter RestaurantFilter) ([]Restaurant, error)
	GetRestaurant(ctx context.Context, id string) (*Restaurant, error)
	CreateRestaurant(ctx context.Context, r *Restaurant) error
	UpdateRestaurant(ctx context.Context, id string, upd RestaurantUpdate) (*Restaurant, error)
	DeleteRestaurant(ctx context.Context, id string) error

	ListMenuItems(ctx context.Context, restaurantID string, filter MenuFilter) ([]MenuItem, error)
	CreateMenuItem(ctx context.Context, item *MenuItem) error
	UpdateMenuItem(ctx context.Context, id string, upd MenuItemUpdate) (*MenuItem, error)
	DeleteMenuItem(ctx context.Context, id string) error
}
