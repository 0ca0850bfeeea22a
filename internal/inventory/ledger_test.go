package inventory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/sellora/sellora-api/internal/errs"
	"github.com/sellora/sellora-api/internal/lease"
	"github.com/sellora/sellora-api/internal/models"
)

func seedProduct(t *testing.T, store *MemoryStore, status models.ProductStatus, quantities ...int) *models.Product {
	t.Helper()

	opts := make([]models.VariantOption, len(quantities))
	for i, q := range quantities {
		opts[i] = models.VariantOption{
			SKU:      fmt.Sprintf("SKU-%d", i),
			Value:    fmt.Sprintf("option-%d", i),
			Price:    10,
			Quantity: q,
		}
	}
	p := &models.Product{
		ID:       1,
		VendorID: 7,
		Name:     "Widget",
		Status:   status,
		Variants: []models.Variant{{ID: 1, ProductID: 1, Name: "Size", Options: opts}},
	}
	store.Put(p)
	return p
}

func grantLease(t *testing.T, key string) (*lease.Service, *lease.Lease) {
	t.Helper()
	svc := lease.NewService(lease.NewMemoryStore())
	ls, err := svc.Acquire(context.Background(), key, "user:7", time.Second)
	require.NoError(t, err)
	return svc, ls
}

func TestApplyDelta_AddAndSubtract(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	ledger := NewLedger(store)
	seedProduct(t, store, models.ProductStatusActive, 10, 4)
	_, ls := grantLease(t, "product:1")

	opt, status, err := ledger.ApplyDelta(ctx, ls, 1, "SKU-0", 3, OpAdd)
	require.NoError(t, err)
	assert.Equal(t, 13, opt.Quantity)
	assert.Equal(t, models.ProductStatusActive, status)

	opt, status, err = ledger.ApplyDelta(ctx, ls, 1, "SKU-0", 5, OpSubtract)
	require.NoError(t, err)
	assert.Equal(t, 8, opt.Quantity)
	assert.Equal(t, models.ProductStatusActive, status)

	// The write persisted.
	p, err := store.FindProduct(ctx, 1)
	require.NoError(t, err)
	got, found := p.FindOption("SKU-0")
	require.True(t, found)
	assert.Equal(t, 8, got.Quantity)
}

func TestApplyDelta_SubtractClampsAtZero(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	ledger := NewLedger(store)
	_, ls := grantLease(t, "product:1")

	// Oversubtracting from any starting quantity lands on exactly 0.
	for start := 0; start <= 3; start++ {
		seedProduct(t, store, models.ProductStatusActive, start, 10)

		opt, _, err := ledger.ApplyDelta(ctx, ls, 1, "SKU-0", 5, OpSubtract)
		require.NoError(t, err, "start=%d", start)
		assert.Equal(t, 0, opt.Quantity, "start=%d", start)
	}
}

func TestApplyDelta_StatusFlipsToOutOfStock(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	ledger := NewLedger(store)
	seedProduct(t, store, models.ProductStatusActive, 2, 0)
	_, ls := grantLease(t, "product:1")

	// Draining the last option flips the product.
	_, status, err := ledger.ApplyDelta(ctx, ls, 1, "SKU-0", 2, OpSubtract)
	require.NoError(t, err)
	assert.Equal(t, models.ProductStatusOutOfStock, status)

	// Restocking flips it back to active.
	_, status, err = ledger.ApplyDelta(ctx, ls, 1, "SKU-1", 5, OpAdd)
	require.NoError(t, err)
	assert.Equal(t, models.ProductStatusActive, status)
}

func TestApplyDelta_OversubtractDrainsLastOption(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	ledger := NewLedger(store)
	seedProduct(t, store, models.ProductStatusActive, 0, 3)
	_, ls := grantLease(t, "product:1")

	// Subtracting 5 from the 3-unit option clamps it to 0, and with the
	// sibling already empty the product flips out of stock.
	opt, status, err := ledger.ApplyDelta(ctx, ls, 1, "SKU-1", 5, OpSubtract)
	require.NoError(t, err)
	assert.Equal(t, 0, opt.Quantity)
	assert.Equal(t, models.ProductStatusOutOfStock, status)
}

func TestApplyDelta_OtherOptionKeepsProductActive(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	ledger := NewLedger(store)
	seedProduct(t, store, models.ProductStatusActive, 2, 9)
	_, ls := grantLease(t, "product:1")

	// One option hits zero but a sibling still has stock.
	_, status, err := ledger.ApplyDelta(ctx, ls, 1, "SKU-0", 2, OpSubtract)
	require.NoError(t, err)
	assert.Equal(t, models.ProductStatusActive, status)
}

func TestApplyDelta_SuspendedStaysSuspended(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	ledger := NewLedger(store)
	seedProduct(t, store, models.ProductStatusSuspended, 0, 0)
	_, ls := grantLease(t, "product:1")

	// Stock arriving never reactivates a suspended product.
	_, status, err := ledger.ApplyDelta(ctx, ls, 1, "SKU-0", 10, OpAdd)
	require.NoError(t, err)
	assert.Equal(t, models.ProductStatusSuspended, status)
}

func TestApplyDelta_Errors(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	ledger := NewLedger(store)
	seedProduct(t, store, models.ProductStatusActive, 10)
	_, ls := grantLease(t, "product:1")

	tests := []struct {
		name     string
		product  int64
		sku      string
		quantity int
		op       Op
		kind     errs.Kind
	}{
		{"negative quantity", 1, "SKU-0", -1, OpAdd, errs.KindValidation},
		{"unknown operation", 1, "SKU-0", 1, Op("divide"), errs.KindValidation},
		{"missing product", 99, "SKU-0", 1, OpAdd, errs.KindNotFound},
		{"missing sku", 1, "NOPE", 1, OpAdd, errs.KindNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ledger.ApplyDelta(ctx, ls, tc.product, tc.sku, tc.quantity, tc.op)
			require.Error(t, err)
			assert.Equal(t, tc.kind, errs.KindOf(err))
		})
	}
}

func TestApplyDelta_ProductWithoutOptions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	ledger := NewLedger(store)
	store.Put(&models.Product{ID: 1, Status: models.ProductStatusActive})
	_, ls := grantLease(t, "product:1")

	_, _, err := ledger.ApplyDelta(ctx, ls, 1, "SKU-0", 1, OpAdd)
	require.Error(t, err)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestParseOp(t *testing.T) {
	op, err := ParseOp("add")
	require.NoError(t, err)
	assert.Equal(t, OpAdd, op)

	op, err = ParseOp("subtract")
	require.NoError(t, err)
	assert.Equal(t, OpSubtract, op)

	_, err = ParseOp("remove")
	require.Error(t, err)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestApplyDelta_ConcurrentMutationsUnderLease(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	ledger := NewLedger(store)
	seedProduct(t, store, models.ProductStatusActive, 0)

	leases := lease.NewService(lease.NewMemoryStore())

	// Each worker must win the lease before applying its delta; with the
	// mutation serialized no increment may be lost. All workers present
	// the same user id, the shape of one vendor's parallel requests.
	const workers = 16
	const perWorker = 10
	const holder = "user:7"

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for j := 0; j < perWorker; j++ {
				var ls *lease.Lease
				for {
					var err error
					ls, err = leases.Acquire(gctx, "product:1", holder, time.Second)
					if err == nil {
						break
					}
					if errs.KindOf(err) != errs.KindLockContention {
						return err
					}
					time.Sleep(time.Millisecond)
				}
				if _, _, err := ledger.ApplyDelta(gctx, ls, 1, "SKU-0", 1, OpAdd); err != nil {
					return err
				}
				if err := leases.Release(gctx, ls); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	p, err := store.FindProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, workers*perWorker, p.TotalQuantity())
	assert.Equal(t, models.ProductStatusActive, p.Status)
}
