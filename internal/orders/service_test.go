package orders

import (
	"context"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellora/sellora-api/internal/analytics"
	"github.com/sellora/sellora-api/internal/errs"
	"github.com/sellora/sellora-api/internal/models"
)

// product 1 and 2 belong to vendor 7, product 3 to vendor 8; product 99
// is unresolvable.
func testResolver() ResolverFunc {
	return func(_ context.Context, productID int64) (int64, error) {
		switch productID {
		case 1, 2:
			return 7, nil
		case 3:
			return 8, nil
		}
		return 0, errs.E(errs.KindNotFound, "product %d not found", productID)
	}
}

func testService() (*Service, *MemoryStore, *analytics.MemoryStore) {
	store := NewMemoryStore()
	statsStore := analytics.NewMemoryStore()
	svc := NewService(store, testResolver(), analytics.NewAggregator(statsStore))
	return svc, store, statsStore
}

func validAddress() models.ShippingAddress {
	return models.ShippingAddress{
		Street:     gofakeit.Street(),
		City:       gofakeit.City(),
		State:      gofakeit.State(),
		Country:    gofakeit.Country(),
		PostalCode: "40150",
	}
}

func newOrder(items ...models.OrderItem) *models.Order {
	return &models.Order{
		Items:    items,
		Shipping: models.ShippingInfo{Address: validAddress(), DeliveryMethod: "standard"},
	}
}

func item(productID int64, qty int, price float64) models.OrderItem {
	return models.OrderItem{ProductID: productID, VariantSKU: "SKU-0", Quantity: qty, Price: price}
}

func TestCreate_Defaults(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := testService()

	created, err := svc.Create(ctx, 42, newOrder(item(1, 2, 9.90)))
	require.NoError(t, err)
	svc.Wait()

	assert.NotZero(t, created.ID)
	assert.Equal(t, int64(42), created.UserID)
	assert.Equal(t, models.OrderStatusPending, created.Status)
	assert.Equal(t, models.ShippingStatusPending, created.Shipping.Status)
	assert.NotEmpty(t, created.PaymentRef)
	assert.InDelta(t, 19.80, created.Total(), 0.001)
}

func TestCreate_Validation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		order *models.Order
	}{
		{"no items", newOrder()},
		{"zero quantity", newOrder(item(1, 0, 10))},
		{"quantity over cap", newOrder(item(1, 101, 10))},
		{"zero price", newOrder(item(1, 1, 0))},
		{"missing product id", newOrder(item(0, 1, 10))},
		{"missing sku", newOrder(models.OrderItem{ProductID: 1, Quantity: 1, Price: 10})},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, store, stats := testService()

			_, err := svc.Create(ctx, 42, tc.order)
			require.Error(t, err)
			assert.Equal(t, errs.KindValidation, errs.KindOf(err))

			// Nothing persisted, nothing propagated.
			svc.Wait()
			_, err = store.Get(ctx, 1)
			assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
			assert.Empty(t, stats.Calls())
		})
	}
}

func TestCreate_RejectsBadAddress(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := testService()

	o := newOrder(item(1, 1, 10))
	o.Shipping.Address.PostalCode = "!!"

	_, err := svc.Create(ctx, 42, o)
	require.Error(t, err)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestCreate_PropagatesOneDeltaPerVendor(t *testing.T) {
	ctx := context.Background()
	svc, _, stats := testService()

	// Two items for vendor 7 collapse into a single increment; vendor 8
	// gets its own.
	_, err := svc.Create(ctx, 42, newOrder(
		item(1, 2, 10), // vendor 7: 2 units, 20.00
		item(2, 1, 5),  // vendor 7: 1 unit, 5.00
		item(3, 4, 2),  // vendor 8: 4 units, 8.00
	))
	require.NoError(t, err)
	svc.Wait()

	calls := stats.Calls()
	assert.Len(t, calls, 2, "one increment per vendor, not per item")

	assert.Equal(t, analytics.Delta{Sales: 3, Revenue: 25}, stats.Totals(7))
	assert.Equal(t, analytics.Delta{Sales: 4, Revenue: 8}, stats.Totals(8))
}

func TestCreate_UnresolvableProductSkipped(t *testing.T) {
	ctx := context.Background()
	svc, _, stats := testService()

	_, err := svc.Create(ctx, 42, newOrder(
		item(1, 1, 10),
		item(99, 5, 100), // no owning vendor; skipped, not fatal
	))
	require.NoError(t, err)
	svc.Wait()

	assert.Len(t, stats.Calls(), 1)
	assert.Equal(t, analytics.Delta{Sales: 1, Revenue: 10}, stats.Totals(7))
}

func TestCreate_PropagationRunsOncePerCreation(t *testing.T) {
	ctx := context.Background()
	svc, _, stats := testService()

	created, err := svc.Create(ctx, 42, newOrder(item(1, 1, 10)))
	require.NoError(t, err)
	svc.Wait()

	// Subsequent updates must not re-propagate.
	_, err = svc.UpdateStatus(ctx, created.ID, models.OrderStatusProcessing)
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, created.ID, models.ConfirmRoleBuyer)
	require.NoError(t, err)
	svc.Wait()

	assert.Len(t, stats.Calls(), 1)
}

func TestUpdateStatus_Ladder(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		from models.OrderStatus
		to   models.OrderStatus
		kind errs.Kind // zero means success
	}{
		{"pending to processing", models.OrderStatusPending, models.OrderStatusProcessing, 0},
		{"processing to delivered", models.OrderStatusProcessing, models.OrderStatusDelivered, 0},
		{"skip ahead allowed", models.OrderStatusPending, models.OrderStatusDelivered, 0},
		{"same rank allowed", models.OrderStatusProcessing, models.OrderStatusProcessing, 0},
		{"cancel from pending", models.OrderStatusPending, models.OrderStatusCancelled, 0},
		{"cancel from delivered", models.OrderStatusDelivered, models.OrderStatusCancelled, 0},
		{"backwards rejected", models.OrderStatusDelivered, models.OrderStatusProcessing, errs.KindConflict},
		{"cancelled is terminal", models.OrderStatusCancelled, models.OrderStatusPending, errs.KindConflict},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, store, _ := testService()
			created, err := svc.Create(ctx, 42, newOrder(item(1, 1, 10)))
			require.NoError(t, err)
			t.Cleanup(svc.Wait)

			// Force the starting state directly in the store.
			require.NoError(t, store.Mutate(ctx, created.ID, func(o *models.Order) error {
				o.Status = tc.from
				return nil
			}))

			got, err := svc.UpdateStatus(ctx, created.ID, tc.to)
			if tc.kind == 0 {
				require.NoError(t, err)
				assert.Equal(t, tc.to, got.Status)
			} else {
				require.Error(t, err)
				assert.Equal(t, tc.kind, errs.KindOf(err))
			}
		})
	}
}

func TestUpdateShipping_RequiresCarrierAndTracking(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := testService()
	created, err := svc.Create(ctx, 42, newOrder(item(1, 1, 10)))
	require.NoError(t, err)
	t.Cleanup(svc.Wait)

	// Shipping without a carrier is rejected.
	eta := time.Now().Add(72 * time.Hour)
	_, err = svc.UpdateShipping(ctx, created.ID, models.ShippingUpdate{
		Status:            models.ShippingStatusShipped,
		EstimatedDelivery: &eta,
	})
	require.Error(t, err)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))

	// With carrier, tracking and a future ETA it goes through.
	got, err := svc.UpdateShipping(ctx, created.ID, models.ShippingUpdate{
		Status:            models.ShippingStatusShipped,
		Carrier:           models.CarrierDHL,
		TrackingNumber:    "DHL12345678",
		EstimatedDelivery: &eta,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ShippingStatusShipped, got.Shipping.Status)
	assert.Equal(t, models.CarrierDHL, got.Shipping.Carrier)
}

func TestUpdateShipping_DeliveredStampsTimestamp(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := testService()
	created, err := svc.Create(ctx, 42, newOrder(item(1, 1, 10)))
	require.NoError(t, err)
	t.Cleanup(svc.Wait)

	got, err := svc.UpdateShipping(ctx, created.ID, models.ShippingUpdate{
		Status:         models.ShippingStatusDelivered,
		Carrier:        models.CarrierFedEx,
		TrackingNumber: "FDX98765432",
	})
	require.NoError(t, err)
	require.NotNil(t, got.Shipping.DeliveredAt)
	assert.WithinDuration(t, time.Now(), *got.Shipping.DeliveredAt, time.Minute)
}

func TestUpdateShipping_PastETARejectedOnShipped(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := testService()
	created, err := svc.Create(ctx, 42, newOrder(item(1, 1, 10)))
	require.NoError(t, err)
	t.Cleanup(svc.Wait)

	eta := time.Now().Add(-time.Hour)
	_, err = svc.UpdateShipping(ctx, created.ID, models.ShippingUpdate{
		Status:            models.ShippingStatusShipped,
		Carrier:           models.CarrierUPS,
		TrackingNumber:    "UPS11112222",
		EstimatedDelivery: &eta,
	})
	require.Error(t, err)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestConfirm_AppendsPerRole(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := testService()
	created, err := svc.Create(ctx, 42, newOrder(item(1, 1, 10)))
	require.NoError(t, err)
	t.Cleanup(svc.Wait)

	_, err = svc.Confirm(ctx, created.ID, models.ConfirmRoleBuyer)
	require.NoError(t, err)
	got, err := svc.Confirm(ctx, created.ID, models.ConfirmRoleCourier)
	require.NoError(t, err)

	require.Len(t, got.Confirmations, 2)
	assert.Equal(t, models.ConfirmRoleBuyer, got.Confirmations[0].Role)
	assert.Equal(t, models.ConfirmRoleCourier, got.Confirmations[1].Role)

	_, err = svc.Confirm(ctx, created.ID, models.ConfirmRole("admin"))
	require.Error(t, err)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestReceiveAndRejectLedgers(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := testService()
	created, err := svc.Create(ctx, 42, newOrder(item(1, 1, 10), item(3, 1, 5)))
	require.NoError(t, err)
	t.Cleanup(svc.Wait)

	// Rejecting before receiving is a conflict.
	_, err = svc.RejectItem(ctx, created.ID, 1, 7, "damaged", "")
	require.Error(t, err)
	assert.Equal(t, errs.KindConflict, errs.KindOf(err))

	got, err := svc.ReceiveItem(ctx, created.ID, 1, 7)
	require.NoError(t, err)
	require.Len(t, got.ReceivedItems, 1)

	// The same pair cannot be received twice.
	_, err = svc.ReceiveItem(ctx, created.ID, 1, 7)
	require.Error(t, err)
	assert.Equal(t, errs.KindConflict, errs.KindOf(err))

	// A different pair is independent.
	_, err = svc.ReceiveItem(ctx, created.ID, 3, 8)
	require.NoError(t, err)

	// Rejection after receipt succeeds exactly once.
	got, err = svc.RejectItem(ctx, created.ID, 1, 7, "damaged", "crushed box")
	require.NoError(t, err)
	require.Len(t, got.RejectedItems, 1)
	assert.Equal(t, "damaged", got.RejectedItems[0].Reason)

	_, err = svc.RejectItem(ctx, created.ID, 1, 7, "damaged", "")
	require.Error(t, err)
	assert.Equal(t, errs.KindConflict, errs.KindOf(err))

	// A rejection without a reason is invalid.
	_, err = svc.RejectItem(ctx, created.ID, 3, 8, "", "")
	require.Error(t, err)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestMutate_FailedTransitionLeavesOrderUntouched(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := testService()
	created, err := svc.Create(ctx, 42, newOrder(item(1, 1, 10)))
	require.NoError(t, err)
	t.Cleanup(svc.Wait)

	_, err = svc.UpdateStatus(ctx, created.ID, models.OrderStatusCancelled)
	require.NoError(t, err)

	// The failed transition must not bump UpdatedAt or anything else.
	before, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, created.ID, models.OrderStatusProcessing)
	require.Error(t, err)

	after, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
