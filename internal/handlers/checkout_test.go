package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellora/sellora-api/internal/analytics"
	"github.com/sellora/sellora-api/internal/inventory"
	"github.com/sellora/sellora-api/internal/lease"
	"github.com/sellora/sellora-api/internal/models"
	"github.com/sellora/sellora-api/internal/orders"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// failingOrderStore rejects every Create, simulating a persistence
// failure after stock was already deducted.
type failingOrderStore struct {
	*orders.MemoryStore
}

func (f *failingOrderStore) Create(context.Context, *models.Order) (int64, error) {
	return 0, errors.New("insert failed")
}

func checkoutHandlers(t *testing.T, orderStore orders.Store) (*Handlers, *inventory.MemoryStore, *orders.Service) {
	t.Helper()

	invStore := inventory.NewMemoryStore()
	invStore.Put(&models.Product{
		ID: 1, VendorID: 7, Name: "Widget", Status: models.ProductStatusActive,
		Variants: []models.Variant{{ID: 1, ProductID: 1, Name: "Size", Options: []models.VariantOption{
			{ID: 1, SKU: "SKU-A", Value: "small", Price: 10, Quantity: 10},
			{ID: 2, SKU: "SKU-B", Value: "large", Price: 5, Quantity: 1},
		}}},
	})

	leases := lease.NewService(lease.NewMemoryStore())
	ledger := inventory.NewLedger(invStore)
	lowStock := inventory.NewLowStockNotifier(nil, nil)

	resolver := orders.ResolverFunc(func(context.Context, int64) (int64, error) { return 7, nil })
	orderSvc := orders.NewService(orderStore, resolver, analytics.NewAggregator(analytics.NewMemoryStore()))
	t.Cleanup(orderSvc.Wait)

	h := &Handlers{
		Leases:   leases,
		Ledger:   ledger,
		Stock:    inventory.NewCheckout(leases, ledger, invStore, lowStock),
		LowStock: lowStock,
		Orders:   orderSvc,
	}
	return h, invStore, orderSvc
}

func checkoutBody(postalCode string, items ...gin.H) gin.H {
	return gin.H{
		"items": items,
		"address": gin.H{
			"street":     "1 Jalan Besar",
			"city":       "Shah Alam",
			"state":      "Selangor",
			"country":    "MY",
			"postalCode": postalCode,
		},
		"deliveryMethod": "standard",
	}
}

func performCheckout(t *testing.T, h *Handlers, body gin.H) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/v1/buyer/checkout", bytes.NewReader(payload))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set("userID", int64(42))

	h.Checkout(c)
	return w
}

func checkoutQuantity(t *testing.T, store *inventory.MemoryStore, sku string) int {
	t.Helper()
	p, err := store.FindProduct(context.Background(), 1)
	require.NoError(t, err)
	opt, found := p.FindOption(sku)
	require.True(t, found)
	return opt.Quantity
}

func TestCheckout_Success(t *testing.T) {
	h, invStore, orderSvc := checkoutHandlers(t, orders.NewMemoryStore())

	w := performCheckout(t, h, checkoutBody("40150",
		gin.H{"productId": 1, "sku": "SKU-A", "quantity": 2},
	))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 8, checkoutQuantity(t, invStore, "SKU-A"))

	created, err := orderSvc.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(42), created.UserID)
	assert.InDelta(t, 20.0, created.Total(), 0.001)
}

func TestCheckout_BadAddressLeavesStockUntouched(t *testing.T) {
	h, invStore, _ := checkoutHandlers(t, orders.NewMemoryStore())

	// The address is rejected up front, before any deduction runs.
	w := performCheckout(t, h, checkoutBody("!!",
		gin.H{"productId": 1, "sku": "SKU-A", "quantity": 2},
	))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 10, checkoutQuantity(t, invStore, "SKU-A"))
}

func TestCheckout_InsufficientStockRestocksEarlierItems(t *testing.T) {
	h, invStore, orderSvc := checkoutHandlers(t, orders.NewMemoryStore())

	// SKU-A succeeds, SKU-B oversells; the SKU-A deduction is rolled
	// back and no order exists.
	w := performCheckout(t, h, checkoutBody("40150",
		gin.H{"productId": 1, "sku": "SKU-A", "quantity": 2},
		gin.H{"productId": 1, "sku": "SKU-B", "quantity": 5},
	))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 10, checkoutQuantity(t, invStore, "SKU-A"))
	assert.Equal(t, 1, checkoutQuantity(t, invStore, "SKU-B"))

	_, err := orderSvc.Get(context.Background(), 1)
	require.Error(t, err)
}

func TestCheckout_CreateFailureRestocks(t *testing.T) {
	h, invStore, _ := checkoutHandlers(t, &failingOrderStore{orders.NewMemoryStore()})

	w := performCheckout(t, h, checkoutBody("40150",
		gin.H{"productId": 1, "sku": "SKU-A", "quantity": 3},
	))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 10, checkoutQuantity(t, invStore, "SKU-A"))
}
