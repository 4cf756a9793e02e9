package order

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickbite/quickbite/internal/domain/auth"
	"github.com/quickbite/quickbite/internal/domain/cart"
	"github.com/quickbite/quickbite/internal/domain/catalog"
)

// --- Mock implementations ---

type mockLookup struct {
	byID map[string]*catalog.MenuItem
}

func (m *mockLookup) GetMenuItem(_ context.Context, id string) (*catalog.MenuItem, error) {
	item, ok := m.byID[id]
	if !ok {
		return nil, catalog.ErrMenuItemNotFound
	}
	return item, nil
}

type mockCartStore struct {
	carts map[string]*cart.Cart
}

func (m *mockCartStore) GetOrCreate(_ context.Context, customerID string) (*cart.Cart, error) {
	if c, ok := m.carts[customerID]; ok {
		return c, nil
	}
	c := &cart.Cart{CustomerID: customerID, Version: 1}
	m.carts[customerID] = c
	return c, nil
}

func (m *mockCartStore) Get(_ context.Context, customerID string) (*cart.Cart, error) {
	c, ok := m.carts[customerID]
	if !ok {
		return nil, cart.ErrNotFound
	}
	return c, nil
}

func (m *mockCartStore) Save(_ context.Context, c *cart.Cart) error {
	m.carts[c.CustomerID] = c
	return nil
}

type mockOrderRepo struct {
	carts  *mockCartStore
	byID   map[string]*Order
	listed []Order

	// conflicts forces the next N Create calls to fail with ErrCartConflict.
	conflicts int
	created   *Order

	// beforeCancel runs ahead of the cancel write, so tests can interleave a
	// competing status update.
	beforeCancel func()
}

func newMockOrderRepo(carts *mockCartStore) *mockOrderRepo {
	return &mockOrderRepo{carts: carts, byID: make(map[string]*Order)}
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order, cartVersion int64) error {
	if m.conflicts > 0 {
		m.conflicts--
		return ErrCartConflict
	}
	if c, ok := m.carts.carts[o.CustomerID]; ok {
		if c.Version != cartVersion {
			return ErrCartConflict
		}
		c.Lines = nil
		c.RestaurantID = ""
		c.Version++
	}
	cp := *o
	m.byID[o.ID] = &cp
	m.created = o
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) SetStatus(_ context.Context, id string, status Status, deliveredAt *time.Time) error {
	o, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	if deliveredAt != nil {
		o.ActualDeliveryTime = deliveredAt
	}
	return nil
}

func (m *mockOrderRepo) Cancel(_ context.Context, id string) error {
	if m.beforeCancel != nil {
		m.beforeCancel()
	}
	o, ok := m.byID[id]
	if !ok || o.Status.Terminal() {
		return ErrNotCancellable
	}
	o.Status = StatusCancelled
	return nil
}

func (m *mockOrderRepo) List(_ context.Context, filter ListFilter, page, pageSize int) ([]Order, int, error) {
	var out []Order
	for _, o := range m.byID {
		if filter.CustomerID != "" && o.CustomerID != filter.CustomerID {
			continue
		}
		if filter.RestaurantID != "" && o.RestaurantID != filter.RestaurantID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		out = append(out, *o)
	}
	m.listed = out
	return out, len(out), nil
}

type recordingPublisher struct {
	created       []CreatedEvent
	statusChanged []StatusChangedEvent
}

func (p *recordingPublisher) PublishCreated(_ context.Context, ev CreatedEvent) {
	p.created = append(p.created, ev)
}

func (p *recordingPublisher) PublishStatusChanged(_ context.Context, ev StatusChangedEvent) {
	p.statusChanged = append(p.statusChanged, ev)
}

// --- Helpers ---

func newTestItem(id, restaurantID, price string) *catalog.MenuItem {
	return &catalog.MenuItem{
		ID:           id,
		RestaurantID: restaurantID,
		Name:         "item " + id,
		Price:        decimal.RequireFromString(price),
		Category:     catalog.CategoryMainCourse,
		IsAvailable:  true,
	}
}

func newLookup(items ...*catalog.MenuItem) *mockLookup {
	byID := make(map[string]*catalog.MenuItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	return &mockLookup{byID: byID}
}

func newCartStore(carts ...*cart.Cart) *mockCartStore {
	m := &mockCartStore{carts: make(map[string]*cart.Cart)}
	for _, c := range carts {
		m.carts[c.CustomerID] = c
	}
	return m
}

func testAddress() catalog.Address {
	return catalog.Address{
		Street:  "1 Main St",
		City:    "Springfield",
		State:   "IL",
		ZipCode: "62701",
	}
}

func filledCart(customerID string) *cart.Cart {
	return &cart.Cart{
		CustomerID:   customerID,
		RestaurantID: "r1",
		Lines: []cart.Line{
			{ID: "l1", MenuItemID: "m1", Quantity: 2},
			{ID: "l2", MenuItemID: "m2", Quantity: 2},
		},
		Version: 1,
	}
}

func newTestService(carts *mockCartStore, lookup *mockLookup, repo *mockOrderRepo, pub Publisher) *Service {
	svc := NewService(carts, lookup, repo, pub)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

// --- Tests ---

func TestPlace_SnapshotsPricesAndTotals(t *testing.T) {
	carts := newCartStore(filledCart("cust-1"))
	lookup := newLookup(
		newTestItem("m1", "r1", "5.00"),
		newTestItem("m2", "r1", "1.75"),
	)
	repo := newMockOrderRepo(carts)
	pub := &recordingPublisher{}
	svc := newTestService(carts, lookup, repo, pub)

	o, err := svc.Place(context.Background(), "cust-1", testAddress(), "ring twice")
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("13.50").Equal(o.TotalAmount))
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, "r1", o.RestaurantID)
	assert.Equal(t, "ring twice", o.DeliveryInstructions)
	require.Len(t, o.Lines, 2)
	assert.Equal(t, "m1", o.Lines[0].MenuItemID)
	assert.True(t, decimal.RequireFromString("5.00").Equal(o.Lines[0].UnitPrice))

	assert.Equal(t, o.CreatedAt.Add(deliveryEstimate), o.EstimatedDeliveryTime)
	assert.Nil(t, o.ActualDeliveryTime)

	require.Len(t, pub.created, 1)
	assert.Equal(t, o.ID, pub.created[0].OrderID)
}

func TestPlace_SnapshotSurvivesPriceChange(t *testing.T) {
	carts := newCartStore(filledCart("cust-1"))
	m1 := newTestItem("m1", "r1", "5.00")
	lookup := newLookup(m1, newTestItem("m2", "r1", "1.75"))
	repo := newMockOrderRepo(carts)
	svc := newTestService(carts, lookup, repo, nil)

	o, err := svc.Place(context.Background(), "cust-1", testAddress(), "")
	require.NoError(t, err)

	m1.Price = decimal.RequireFromString("99.00")

	got, err := repo.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("13.50").Equal(got.TotalAmount))
	assert.True(t, decimal.RequireFromString("5.00").Equal(got.Lines[0].UnitPrice))
}

func TestPlace_ClearsCart(t *testing.T) {
	carts := newCartStore(filledCart("cust-1"))
	lookup := newLookup(
		newTestItem("m1", "r1", "5.00"),
		newTestItem("m2", "r1", "1.75"),
	)
	svc := newTestService(carts, lookup, newMockOrderRepo(carts), nil)

	_, err := svc.Place(context.Background(), "cust-1", testAddress(), "")
	require.NoError(t, err)

	c, err := carts.Get(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.True(t, c.Empty())
	assert.Empty(t, c.RestaurantID)
}

func TestPlace_EmptyCart(t *testing.T) {
	carts := newCartStore()
	svc := newTestService(carts, newLookup(), newMockOrderRepo(carts), nil)

	_, err := svc.Place(context.Background(), "cust-1", testAddress(), "")
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestPlace_MissingAddressFields(t *testing.T) {
	carts := newCartStore(filledCart("cust-1"))
	lookup := newLookup(
		newTestItem("m1", "r1", "5.00"),
		newTestItem("m2", "r1", "1.75"),
	)
	svc := newTestService(carts, lookup, newMockOrderRepo(carts), nil)

	_, err := svc.Place(context.Background(), "cust-1", catalog.Address{City: "Springfield"}, "")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.ElementsMatch(t, []string{
		"deliveryAddress.street",
		"deliveryAddress.state",
		"deliveryAddress.zipCode",
	}, vErr.Fields)
}

func TestPlace_RetriesOnCartConflict(t *testing.T) {
	carts := newCartStore(filledCart("cust-1"))
	lookup := newLookup(
		newTestItem("m1", "r1", "5.00"),
		newTestItem("m2", "r1", "1.75"),
	)
	repo := newMockOrderRepo(carts)
	repo.conflicts = 1
	svc := newTestService(carts, lookup, repo, nil)

	o, err := svc.Place(context.Background(), "cust-1", testAddress(), "")
	require.NoError(t, err)
	assert.NotNil(t, repo.created)
	assert.Equal(t, o.ID, repo.created.ID)
}

func TestPlace_ConcurrentPlacementWinsOnce(t *testing.T) {
	// A conflicting first attempt consumes the retry; the re-read then sees
	// the cart already emptied by the winner.
	carts := newCartStore(filledCart("cust-1"))
	lookup := newLookup(
		newTestItem("m1", "r1", "5.00"),
		newTestItem("m2", "r1", "1.75"),
	)
	repo := newMockOrderRepo(carts)
	svc := newTestService(carts, lookup, repo, nil)

	_, err := svc.Place(context.Background(), "cust-1", testAddress(), "")
	require.NoError(t, err)

	_, err = svc.Place(context.Background(), "cust-1", testAddress(), "")
	require.ErrorIs(t, err, ErrEmptyCart)
	assert.Len(t, repo.byID, 1)
}

func TestUpdateStatus_AdminOnly(t *testing.T) {
	carts := newCartStore()
	repo := newMockOrderRepo(carts)
	svc := newTestService(carts, newLookup(), repo, nil)

	_, err := svc.UpdateStatus(context.Background(), "o1", StatusConfirmed, auth.RoleCustomer)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestUpdateStatus_InvalidStatus(t *testing.T) {
	carts := newCartStore()
	svc := newTestService(carts, newLookup(), newMockOrderRepo(carts), nil)

	_, err := svc.UpdateStatus(context.Background(), "o1", Status("cooking"), auth.RoleAdmin)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, []string{"status"}, vErr.Fields)
}

func TestUpdateStatus_DeliveredStampsActualTime(t *testing.T) {
	carts := newCartStore(filledCart("cust-1"))
	lookup := newLookup(
		newTestItem("m1", "r1", "5.00"),
		newTestItem("m2", "r1", "1.75"),
	)
	repo := newMockOrderRepo(carts)
	pub := &recordingPublisher{}
	svc := newTestService(carts, lookup, repo, pub)

	placed, err := svc.Place(context.Background(), "cust-1", testAddress(), "")
	require.NoError(t, err)

	o, err := svc.UpdateStatus(context.Background(), placed.ID, StatusDelivered, auth.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, o.Status)
	require.NotNil(t, o.ActualDeliveryTime)
	assert.Equal(t, svc.now(), *o.ActualDeliveryTime)

	require.Len(t, pub.statusChanged, 1)
	assert.Equal(t, StatusPending, pub.statusChanged[0].From)
	assert.Equal(t, StatusDelivered, pub.statusChanged[0].To)
}

func TestUpdateStatus_AnyTransitionAllowed(t *testing.T) {
	carts := newCartStore(filledCart("cust-1"))
	lookup := newLookup(
		newTestItem("m1", "r1", "5.00"),
		newTestItem("m2", "r1", "1.75"),
	)
	repo := newMockOrderRepo(carts)
	svc := newTestService(carts, lookup, repo, nil)

	placed, err := svc.Place(context.Background(), "cust-1", testAddress(), "")
	require.NoError(t, err)

	// Admin corrections may move backwards and out of terminal states.
	_, err = svc.UpdateStatus(context.Background(), placed.ID, StatusDelivered, auth.RoleAdmin)
	require.NoError(t, err)
	o, err := svc.UpdateStatus(context.Background(), placed.ID, StatusPreparing, auth.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, StatusPreparing, o.Status)
}

func TestUpdateStatus_UnknownOrder(t *testing.T) {
	carts := newCartStore()
	svc := newTestService(carts, newLookup(), newMockOrderRepo(carts), nil)

	_, err := svc.UpdateStatus(context.Background(), "missing", StatusConfirmed, auth.RoleAdmin)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCancel_PendingOrder(t *testing.T) {
	carts := newCartStore(filledCart("cust-1"))
	lookup := newLookup(
		newTestItem("m1", "r1", "5.00"),
		newTestItem("m2", "r1", "1.75"),
	)
	repo := newMockOrderRepo(carts)
	pub := &recordingPublisher{}
	svc := newTestService(carts, lookup, repo, pub)

	placed, err := svc.Place(context.Background(), "cust-1", testAddress(), "")
	require.NoError(t, err)

	o, err := svc.Cancel(context.Background(), placed.ID, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, o.Status)
	require.Len(t, pub.statusChanged, 1)
	assert.Equal(t, StatusCancelled, pub.statusChanged[0].To)
}

func TestCancel_NotOwner(t *testing.T) {
	carts := newCartStore(filledCart("cust-1"))
	lookup := newLookup(
		newTestItem("m1", "r1", "5.00"),
		newTestItem("m2", "r1", "1.75"),
	)
	repo := newMockOrderRepo(carts)
	svc := newTestService(carts, lookup, repo, nil)

	placed, err := svc.Place(context.Background(), "cust-1", testAddress(), "")
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), placed.ID, "cust-2")
	require.ErrorIs(t, err, ErrForbidden)
}

func TestCancel_TerminalOrder(t *testing.T) {
	carts := newCartStore(filledCart("cust-1"))
	lookup := newLookup(
		newTestItem("m1", "r1", "5.00"),
		newTestItem("m2", "r1", "1.75"),
	)
	repo := newMockOrderRepo(carts)
	svc := newTestService(carts, lookup, repo, nil)

	placed, err := svc.Place(context.Background(), "cust-1", testAddress(), "")
	require.NoError(t, err)
	_, err = svc.UpdateStatus(context.Background(), placed.ID, StatusDelivered, auth.RoleAdmin)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), placed.ID, "cust-1")
	var trErr *InvalidTransitionError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, StatusDelivered, trErr.From)
}

func TestCancel_LosesRaceWithDelivery(t *testing.T) {
	carts := newCartStore(filledCart("cust-1"))
	lookup := newLookup(
		newTestItem("m1", "r1", "5.00"),
		newTestItem("m2", "r1", "1.75"),
	)
	repo := newMockOrderRepo(carts)
	pub := &recordingPublisher{}
	svc := newTestService(carts, lookup, repo, pub)

	placed, err := svc.Place(context.Background(), "cust-1", testAddress(), "")
	require.NoError(t, err)

	// The order is delivered between the cancel's read and its write. The
	// guarded write must refuse and report the state that actually won.
	repo.beforeCancel = func() {
		repo.byID[placed.ID].Status = StatusDelivered
	}

	_, err = svc.Cancel(context.Background(), placed.ID, "cust-1")
	var trErr *InvalidTransitionError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, StatusDelivered, trErr.From)
	assert.Equal(t, StatusDelivered, repo.byID[placed.ID].Status)
	assert.Empty(t, pub.statusChanged, "no cancellation event after a lost race")
}

func TestGet_OwnerAndAdmin(t *testing.T) {
	carts := newCartStore(filledCart("cust-1"))
	lookup := newLookup(
		newTestItem("m1", "r1", "5.00"),
		newTestItem("m2", "r1", "1.75"),
	)
	repo := newMockOrderRepo(carts)
	svc := newTestService(carts, lookup, repo, nil)

	placed, err := svc.Place(context.Background(), "cust-1", testAddress(), "")
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), placed.ID, "cust-1", auth.RoleCustomer)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), placed.ID, "admin-1", auth.RoleAdmin)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), placed.ID, "cust-2", auth.RoleCustomer)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestList_NonAdminScopedToOwnOrders(t *testing.T) {
	carts := newCartStore()
	repo := newMockOrderRepo(carts)
	repo.byID["o1"] = &Order{ID: "o1", CustomerID: "cust-1", Status: StatusPending}
	repo.byID["o2"] = &Order{ID: "o2", CustomerID: "cust-2", Status: StatusPending}
	svc := newTestService(carts, newLookup(), repo, nil)

	orders, page, err := svc.List(context.Background(), ListFilter{CustomerID: "cust-2"}, 1, 10, "cust-1", auth.RoleCustomer)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "o1", orders[0].ID)
	assert.Equal(t, 1, page.Total)
}

func TestList_AdminSeesAll(t *testing.T) {
	carts := newCartStore()
	repo := newMockOrderRepo(carts)
	repo.byID["o1"] = &Order{ID: "o1", CustomerID: "cust-1", Status: StatusPending}
	repo.byID["o2"] = &Order{ID: "o2", CustomerID: "cust-2", Status: StatusDelivered}
	svc := newTestService(carts, newLookup(), repo, nil)

	orders, page, err := svc.List(context.Background(), ListFilter{}, 1, 10, "admin-1", auth.RoleAdmin)
	require.NoError(t, err)
	assert.Len(t, orders, 2)
	assert.Equal(t, 2, page.Total)
}

func TestList_InvalidStatusFilter(t *testing.T) {
	carts := newCartStore()
	svc := newTestService(carts, newLookup(), newMockOrderRepo(carts), nil)

	_, _, err := svc.List(context.Background(), ListFilter{Status: "cooking"}, 1, 10, "cust-1", auth.RoleCustomer)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestList_PageMath(t *testing.T) {
	carts := newCartStore()
	repo := newMockOrderRepo(carts)
	for _, id := range []string{"o1", "o2", "o3"} {
		repo.byID[id] = &Order{ID: id, CustomerID: "cust-1", Status: StatusPending}
	}
	svc := newTestService(carts, newLookup(), repo, nil)

	_, page, err := svc.List(context.Background(), ListFilter{}, 0, 2, "cust-1", auth.RoleCustomer)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Current)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 3, page.Total)
}
