package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"

	"github.com/sunucuics/ICS-APP-BACK/internal/domain"
)

func setupTestDB(t *testing.T) (OrderRepository, func()) {
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)

	repo := NewOrderRepository(db)
	require.NoError(t, repo.CreateIndexes(ctx))

	cleanup := func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
	return repo, cleanup
}

func testOrder(id, userID, checkoutID string) *domain.Order {
	return &domain.Order{
		ID:         id,
		UserID:     userID,
		CheckoutID: checkoutID,
		Items: []domain.OrderItem{
			{ProductID: "p1", Title: "Kupa", Quantity: 2, UnitPrice: 49.9, LineTotal: 99.8, Currency: "TRY"},
		},
		Totals: domain.Totals{ItemCount: 2, Subtotal: 99.8, GrandTotal: 99.8, Currency: "TRY"},
		Status: domain.StatusPreparing,
		Shipping: domain.Shipping{
			Provider:        domain.CarrierAras,
			IntegrationCode: id,
		},
		CreatedAt: time.Now(),
	}
}

func TestInsert_DuplicateCheckout(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, testOrder("o1", "u1", "chk-1")))

	err := repo.Insert(ctx, testOrder("o2", "u1", "chk-1"))
	assert.ErrorIs(t, err, ErrDuplicateCheckout)

	// Same checkout id for a different user is a different checkout.
	require.NoError(t, repo.Insert(ctx, testOrder("o3", "u2", "chk-1")))

	existing, err := repo.FindByUserAndCheckoutID(ctx, "u1", "chk-1")
	require.NoError(t, err)
	assert.Equal(t, "o1", existing.ID)
}

func TestInsert_NoCheckoutIDNotUnique(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	a := testOrder("o1", "u1", "")
	a.CheckoutID = ""
	b := testOrder("o2", "u1", "")
	b.CheckoutID = ""

	require.NoError(t, repo.Insert(ctx, a))
	require.NoError(t, repo.Insert(ctx, b))
}

func TestFindByID_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	order, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.Nil(t, order)
}

func TestFindByTrackingRef(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	o := testOrder("o1", "u1", "chk-1")
	o.Shipping.TrackingNumber = "TRK123"
	require.NoError(t, repo.Insert(ctx, o))

	byID, err := repo.FindByTrackingRef(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, "o1", byID.ID)

	byTracking, err := repo.FindByTrackingRef(ctx, "TRK123")
	require.NoError(t, err)
	assert.Equal(t, "o1", byTracking.ID)
}

func TestUpdateShippingProgress_NeverOverwritesTerminal(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	o := testOrder("o1", "u1", "chk-1")
	o.Status = domain.StatusDelivered
	require.NoError(t, repo.Insert(ctx, o))

	next := domain.StatusInTransit
	err := repo.UpdateShippingProgress(ctx, "o1", ProgressPatch{Status: &next})
	assert.ErrorIs(t, err, ErrOrderNotFound)

	got, err := repo.FindByID(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, got.Status)
}

func TestUpdateShippingProgress_PatchesOpenOrder(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, testOrder("o1", "u1", "chk-1")))

	next := domain.StatusInTransit
	err := repo.UpdateShippingProgress(ctx, "o1", ProgressPatch{
		Status:         &next,
		CarrierStatus:  "YOLDA",
		TrackingNumber: "TRK999",
	})
	require.NoError(t, err)

	got, err := repo.FindByID(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInTransit, got.Status)
	assert.Equal(t, "YOLDA", got.Shipping.LastCarrierStatus)
	assert.Equal(t, "TRK999", got.Shipping.TrackingNumber)
}

func TestListOpenForSync_Filters(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	open := testOrder("open", "u1", "chk-1")
	require.NoError(t, repo.Insert(ctx, open))

	simulated := testOrder("sim", "u1", "chk-2")
	simulated.Shipping.Simulated = true
	require.NoError(t, repo.Insert(ctx, simulated))

	delivered := testOrder("done", "u1", "chk-3")
	delivered.Status = domain.StatusDelivered
	require.NoError(t, repo.Insert(ctx, delivered))

	unregistered := testOrder("noreg", "u1", "chk-4")
	unregistered.Shipping.IntegrationCode = ""
	unregistered.Shipping.TrackingNumber = ""
	require.NoError(t, repo.Insert(ctx, unregistered))

	orders, err := repo.ListOpenForSync(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "open", orders[0].ID)
}

func TestCancelIfPreparing(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, testOrder("o1", "u1", "chk-1")))

	cancelled, err := repo.CancelIfPreparing(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)

	got, err := repo.FindByID(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)
}

func TestCancelIfPreparing_AlreadyShipped(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	o := testOrder("o1", "u1", "chk-1")
	o.Status = domain.StatusInTransit
	require.NoError(t, repo.Insert(ctx, o))

	cancelled, err := repo.CancelIfPreparing(ctx, "o1")
	assert.ErrorIs(t, err, ErrNotCancellable)
	assert.Nil(t, cancelled)

	got, err := repo.FindByID(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInTransit, got.Status)
}

func TestCancelIfPreparing_UnknownOrder(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	cancelled, err := repo.CancelIfPreparing(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.Nil(t, cancelled)
}

func TestClearCarrierRegistration(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, testOrder("o1", "u1", "chk-1")))
	require.NoError(t, repo.ClearCarrierRegistration(ctx, "o1"))

	got, err := repo.FindByID(ctx, "o1")
	require.NoError(t, err)
	assert.Empty(t, got.Shipping.IntegrationCode)

	// Cleared orders drop out of the sync scan.
	orders, err := repo.ListOpenForSync(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)

	err = repo.ClearCarrierRegistration(ctx, "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestListByUser_NewestFirst(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	older := testOrder("o1", "u1", "chk-1")
	older.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, repo.Insert(ctx, older))

	newer := testOrder("o2", "u1", "chk-2")
	require.NoError(t, repo.Insert(ctx, newer))

	require.NoError(t, repo.Insert(ctx, testOrder("foreign", "u2", "chk-3")))

	orders, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "o2", orders[0].ID)
	assert.Equal(t, "o1", orders[1].ID)
}
