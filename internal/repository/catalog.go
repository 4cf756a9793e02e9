package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quickbite/quickbite/internal/domain/catalog"
)

const (
	getMenuItemSQL = `SELECT id, restaurant_id, name, description, price, category,
		image, is_available, preparation_time, created_at
		FROM menu_items WHERE id = $1`

	getRestaurantSQL = `SELECT id, name, description, cuisine, phone, email,
		street, city, state, zip_code, rating, is_active, owner_id, created_at
		FROM restaurants WHERE id = $1`

	insertRestaurantSQL = `INSERT INTO restaurants (id, name, description, cuisine, phone, email,
		street, city, state, zip_code, rating, is_active, owner_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	insertMenuItemSQL = `INSERT INTO menu_items (id, restaurant_id, name, description, price, category,
		image, is_available, preparation_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
)

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.Repository backed by PostgreSQL.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// GetMenuItem returns a single menu item by id.
func (r *CatalogRepository) GetMenuItem(ctx context.Context, id string) (*catalog.MenuItem, error) {
	rows, err := r.pool.Query(ctx, getMenuItemSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting menu item %q: %w", id, err)
	}
	item, err := pgx.CollectExactlyOneRow(rows, scanMenuItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrMenuItemNotFound
		}
		return nil, fmt.Errorf("getting menu item %q: %w", id, err)
	}
	return &item, nil
}

// ListRestaurants returns active restaurants matching the filter, best rated
// first.
func (r *CatalogRepository) ListRestaurants(ctx context.Context, filter catalog.RestaurantFilter) ([]catalog.Restaurant, error) {
	query := `SELECT id, name, description, cuisine, phone, email,
		street, city, state, zip_code, rating, is_active, owner_id, created_at
		FROM restaurants WHERE is_active`
	var args []any
	if filter.Cuisine != "" {
		args = append(args, "%"+filter.Cuisine+"%")
		query += " AND cuisine ILIKE $" + strconv.Itoa(len(args))
	}
	if filter.City != "" {
		args = append(args, "%"+filter.City+"%")
		query += " AND city ILIKE $" + strconv.Itoa(len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := strconv.Itoa(len(args))
		query += " AND (name ILIKE $" + n + " OR cuisine ILIKE $" + n + " OR description ILIKE $" + n + ")"
	}
	query += " ORDER BY rating DESC, created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing restaurants: %w", err)
	}
	return pgx.CollectRows(rows, scanRestaurant)
}

// GetRestaurant returns a single restaurant by id.
func (r *CatalogRepository) GetRestaurant(ctx context.Context, id string) (*catalog.Restaurant, error) {
	rows, err := r.pool.Query(ctx, getRestaurantSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting restaurant %q: %w", id, err)
	}
	rest, err := pgx.CollectExactlyOneRow(rows, scanRestaurant)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrRestaurantNotFound
		}
		return nil, fmt.Errorf("getting restaurant %q: %w", id, err)
	}
	return &rest, nil
}

// CreateRestaurant persists a new restaurant record.
func (r *CatalogRepository) CreateRestaurant(ctx context.Context, rest *catalog.Restaurant) error {
	_, err := r.pool.Exec(ctx, insertRestaurantSQL,
		rest.ID, rest.Name, rest.Description, rest.Cuisine, rest.Phone, rest.Email,
		rest.Address.Street, rest.Address.City, rest.Address.State, rest.Address.ZipCode,
		rest.Rating, rest.IsActive, rest.OwnerID, rest.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating restaurant %q: %w", rest.ID, err)
	}
	return nil
}

// UpdateRestaurant applies the non-nil fields of upd and returns the updated
// record.
func (r *CatalogRepository) UpdateRestaurant(ctx context.Context, id string, upd catalog.RestaurantUpdate) (*catalog.Restaurant, error) {
	var sets []string
	args := []any{id}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)))
	}
	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.Cuisine != nil {
		add("cuisine", *upd.Cuisine)
	}
	if upd.Phone != nil {
		add("phone", *upd.Phone)
	}
	if upd.Email != nil {
		add("email", *upd.Email)
	}
	if upd.IsActive != nil {
		add("is_active", *upd.IsActive)
	}
	if upd.Address != nil {
		add("street", upd.Address.Street)
		add("city", upd.Address.City)
		add("state", upd.Address.State)
		add("zip_code", upd.Address.ZipCode)
	}
	if len(sets) == 0 {
		return r.GetRestaurant(ctx, id)
	}

	tag, err := r.pool.Exec(ctx, "UPDATE restaurants SET "+strings.Join(sets, ", ")+" WHERE id = $1", args...)
	if err != nil {
		return nil, fmt.Errorf("updating restaurant %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, catalog.ErrRestaurantNotFound
	}
	return r.GetRestaurant(ctx, id)
}

// DeleteRestaurant removes a restaurant and, via cascade, its menu items.
func (r *CatalogRepository) DeleteRestaurant(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM restaurants WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting restaurant %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrRestaurantNotFound
	}
	return nil
}

// ListMenuItems returns available menu items for one restaurant, grouped by
// category.
func (r *CatalogRepository) ListMenuItems(ctx context.Context, restaurantID string, filter catalog.MenuFilter) ([]catalog.MenuItem, error) {
	query := `SELECT id, restaurant_id, name, description, price, category,
		image, is_available, preparation_time, created_at
		FROM menu_items WHERE restaurant_id = $1 AND is_available`
	args := []any{restaurantID}
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += " AND category = $" + strconv.Itoa(len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := strconv.Itoa(len(args))
		query += " AND (name ILIKE $" + n + " OR description ILIKE $" + n + ")"
	}
	query += " ORDER BY category, name"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing menu items for %q: %w", restaurantID, err)
	}
	return pgx.CollectRows(rows, scanMenuItem)
}

// CreateMenuItem persists a new menu item.
func (r *CatalogRepository) CreateMenuItem(ctx context.Context, item *catalog.MenuItem) error {
	_, err := r.pool.Exec(ctx, insertMenuItemSQL,
		item.ID, item.RestaurantID, item.Name, item.Description, item.Price, item.Category,
		item.Image, item.IsAvailable, item.PreparationTime, item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating menu item %q: %w", item.ID, err)
	}
	return nil
}

// UpdateMenuItem applies the non-nil fields of upd and returns the updated
// record.
func (r *CatalogRepository) UpdateMenuItem(ctx context.Context, id string, upd catalog.MenuItemUpdate) (*catalog.MenuItem, error) {
	var sets []string
	args := []any{id}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)))
	}
	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.Price != nil {
		add("price", *upd.Price)
	}
	if upd.Category != nil {
		add("category", *upd.Category)
	}
	if upd.Image != nil {
		add("image", *upd.Image)
	}
	if upd.IsAvailable != nil {
		add("is_available", *upd.IsAvailable)
	}
	if upd.PreparationTime != nil {
		add("preparation_time", *upd.PreparationTime)
	}
	if len(sets) == 0 {
		return r.GetMenuItem(ctx, id)
	}

	tag, err := r.pool.Exec(ctx, "UPDATE menu_items SET "+strings.Join(sets, ", ")+" WHERE id = $1", args...)
	if err != nil {
		return nil, fmt.Errorf("updating menu item %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, catalog.ErrMenuItemNotFound
	}
	return r.GetMenuItem(ctx, id)
}

// DeleteMenuItem removes a menu item.
func (r *CatalogRepository) DeleteMenuItem(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM menu_items WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting menu item %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrMenuItemNotFound
	}
	return nil
}

func scanRestaurant(row pgx.CollectableRow) (catalog.Restaurant, error) {
	var r catalog.Restaurant
	err := row.Scan(
		&r.ID, &r.Name, &r.Description, &r.Cuisine, &r.Phone, &r.Email,
		&r.Address.Street, &r.Address.City, &r.Address.State, &r.Address.ZipCode,
		&r.Rating, &r.IsActive, &r.OwnerID, &r.CreatedAt,
	)
	return r, err
}

func scanMenuItem(row pgx.CollectableRow) (catalog.MenuItem, error) {
	var m catalog.MenuItem
	err := row.Scan(
		&m.ID, &m.RestaurantID, &m.Name, &m.Description, &m.Price, &m.Category,
		&m.Image, &m.IsAvailable, &m.PreparationTime, &m.CreatedAt,
	)
	return m, err
}
