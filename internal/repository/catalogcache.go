package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/quickbite/quickbite/internal/domain/catalog"
)

// menuItemKey is the cache key pattern for menu item lookups.
const menuItemKey = "menu_item:"

// menuItemTTL bounds staleness of cached prices and availability. Cart adds
// tolerate a slightly stale price because orders re-read through the same
// decorator after invalidation on menu updates.
const menuItemTTL = 30 * time.Second

// CachedCatalog decorates a catalog.Repository with a Redis read-through
// cache for menu item lookups, the hot path of every cart mutation and order
// placement. All other calls pass through; writes invalidate.
type CachedCatalog struct {
	catalog.Repository
	rdb *redis.Client
}

// NewCachedCatalog wraps repo with a Redis cache.
func NewCachedCatalog(repo catalog.Repository, rdb *redis.Client) *CachedCatalog {
	return &CachedCatalog{Repository: repo, rdb: rdb}
}

// GetMenuItem serves from Redis when possible, falling back to PostgreSQL.
// Cache failures are ignored: a broken cache degrades to direct reads.
func (c *CachedCatalog) GetMenuItem(ctx context.Context, id string) (*catalog.MenuItem, error) {
	key := menuItemKey + id
	if data, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var item cachedMenuItem
		if err := json.Unmarshal(data, &item); err == nil {
			return item.domain(), nil
		}
	}

	item, err := c.Repository.GetMenuItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(newCachedMenuItem(item)); err == nil {
		_ = c.rdb.Set(ctx, key, data, menuItemTTL).Err()
	}
	return item, nil
}

// UpdateMenuItem passes through and drops the cached entry.
func (c *CachedCatalog) UpdateMenuItem(ctx context.Context, id string, upd catalog.MenuItemUpdate) (*catalog.MenuItem, error) {
	item, err := c.Repository.UpdateMenuItem(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	_ = c.rdb.Del(ctx, menuItemKey+id).Err()
	return item, nil
}

// DeleteMenuItem passes through and drops the cached entry.
func (c *CachedCatalog) DeleteMenuItem(ctx context.Context, id string) error {
	if err := c.Repository.DeleteMenuItem(ctx, id); err != nil {
		return err
	}
	_ = c.rdb.Del(ctx, menuItemKey+id).Err()
	return nil
}

// cachedMenuItem is the JSON shape stored in Redis. Kept separate from the
// domain type so cache layout changes don't leak.
type cachedMenuItem struct {
	ID              string    `json:"id"`
	RestaurantID    string    `json:"restaurant_id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Price           string    `json:"price"`
	Category        string    `json:"category"`
	Image           string    `json:"image"`
	IsAvailable     bool      `json:"is_available"`
	PreparationTime int       `json:"preparation_time"`
	CreatedAt       time.Time `json:"created_at"`
}

func newCachedMenuItem(m *catalog.MenuItem) cachedMenuItem {
	return cachedMenuItem{
		ID:              m.ID,
		RestaurantID:    m.RestaurantID,
		Name:            m.Name,
		Description:     m.Description,
		Price:           m.Price.String(),
		Category:        m.Category,
		Image:           m.Image,
		IsAvailable:     m.IsAvailable,
		PreparationTime: m.PreparationTime,
		CreatedAt:       m.CreatedAt,
	}
}

func (c cachedMenuItem) domain() *catalog.MenuItem {
	price, err := decimal.NewFromString(c.Price)
	if err != nil {
		price = decimal.Zero
	}
	return &catalog.MenuItem{
		ID:              c.ID,
		RestaurantID:    c.RestaurantID,
		Name:            c.Name,
		Description:     c.Description,
		Price:           price,
		Category:        c.Category,
		Image:           c.Image,
		IsAvailable:     c.IsAvailable,
		PreparationTime: c.PreparationTime,
		CreatedAt:       c.CreatedAt,
	}
}
