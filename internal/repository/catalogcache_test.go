package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickbite/quickbite/internal/domain/catalog"
)

// testRedis connects to the instance named by QUICKBITE_TEST_REDIS_ADDR.
// Tests are skipped when the variable is unset.
func testRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("QUICKBITE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("QUICKBITE_TEST_REDIS_ADDR not set")
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, rdb.Ping(context.Background()).Err())
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

// fakeCatalog backs the cache decorator with a plain map so the tests can
// count how often a read falls through to the source. Only the decorated
// methods are implemented.
type fakeCatalog struct {
	catalog.Repository

	items map[string]*catalog.MenuItem
	gets  int
}

func newFakeCatalog(items ...*catalog.MenuItem) *fakeCatalog {
	f := &fakeCatalog{items: make(map[string]*catalog.MenuItem)}
	for _, item := range items {
		f.items[item.ID] = item
	}
	return f
}

func (f *fakeCatalog) GetMenuItem(_ context.Context, id string) (*catalog.MenuItem, error) {
	f.gets++
	item, ok := f.items[id]
	if !ok {
		return nil, catalog.ErrMenuItemNotFound
	}
	cp := *item
	return &cp, nil
}

func (f *fakeCatalog) UpdateMenuItem(_ context.Context, id string, upd catalog.MenuItemUpdate) (*catalog.MenuItem, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, catalog.ErrMenuItemNotFound
	}
	if upd.Price != nil {
		item.Price = *upd.Price
	}
	if upd.IsAvailable != nil {
		item.IsAvailable = *upd.IsAvailable
	}
	cp := *item
	return &cp, nil
}

func (f *fakeCatalog) DeleteMenuItem(_ context.Context, id string) error {
	if _, ok := f.items[id]; !ok {
		return catalog.ErrMenuItemNotFound
	}
	delete(f.items, id)
	return nil
}

func cacheTestItem() *catalog.MenuItem {
	return &catalog.MenuItem{
		ID:              uuid.New().String(),
		RestaurantID:    uuid.New().String(),
		Name:            "Margherita",
		Description:     "Tomato and mozzarella",
		Price:           decimal.RequireFromString("5.00"),
		Category:        "main_course",
		IsAvailable:     true,
		PreparationTime: 15,
		CreatedAt:       time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestCachedCatalog_ReadThrough(t *testing.T) {
	rdb := testRedis(t)
	ctx := context.Background()

	item := cacheTestItem()
	src := newFakeCatalog(item)
	cached := NewCachedCatalog(src, rdb)

	got, err := cached.GetMenuItem(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, item.Price.Equal(got.Price))
	assert.Equal(t, 1, src.gets)

	// Mutating the source behind the cache's back must not show through
	// within the TTL: the second read is served from Redis.
	src.items[item.ID].Price = decimal.RequireFromString("9.99")

	got, err = cached.GetMenuItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, src.gets)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("5.00")))
	assert.Equal(t, item.RestaurantID, got.RestaurantID)
	assert.Equal(t, item.Name, got.Name)
	assert.True(t, got.IsAvailable)
	assert.Equal(t, item.PreparationTime, got.PreparationTime)
	assert.True(t, item.CreatedAt.Equal(got.CreatedAt))
}

func TestCachedCatalog_UpdateInvalidates(t *testing.T) {
	rdb := testRedis(t)
	ctx := context.Background()

	item := cacheTestItem()
	src := newFakeCatalog(item)
	cached := NewCachedCatalog(src, rdb)

	_, err := cached.GetMenuItem(ctx, item.ID)
	require.NoError(t, err)

	newPrice := decimal.RequireFromString("6.50")
	updated, err := cached.UpdateMenuItem(ctx, item.ID, catalog.MenuItemUpdate{Price: &newPrice})
	require.NoError(t, err)
	assert.True(t, newPrice.Equal(updated.Price))

	// The stale entry is gone, so the next read falls through and sees the
	// new price.
	got, err := cached.GetMenuItem(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, newPrice.Equal(got.Price))
	assert.Equal(t, 2, src.gets)
}

func TestCachedCatalog_DeleteInvalidates(t *testing.T) {
	rdb := testRedis(t)
	ctx := context.Background()

	item := cacheTestItem()
	src := newFakeCatalog(item)
	cached := NewCachedCatalog(src, rdb)

	_, err := cached.GetMenuItem(ctx, item.ID)
	require.NoError(t, err)

	require.NoError(t, cached.DeleteMenuItem(ctx, item.ID))

	_, err = cached.GetMenuItem(ctx, item.ID)
	require.ErrorIs(t, err, catalog.ErrMenuItemNotFound)
}
