// Package analytics accumulates per-vendor sales counters. Counters move
// only by delta application: the delta, not the absolute value, is sent
// to the store, so concurrent orders never race on a read-modify-write.
package analytics

import (
	"context"
	"log"

	"github.com/sellora/sellora-api/internal/models"
)

// Delta is one vendor's share of a single order.
type Delta struct {
	Sales   int64   // unit count
	Revenue float64 // sum of price * quantity
}

// Store applies increments against the persistence layer.
type Store interface {
	// IncrementVendorTotals must be an atomic increment (a single UPDATE
	// with an arithmetic expression), never read-then-write.
	IncrementVendorTotals(ctx context.Context, vendorID int64, d Delta) error
}

// Aggregator propagates committed sales into vendor-level totals.
type Aggregator struct {
	store Store
}

func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store}
}

// ApplyOrderDeltas issues exactly one increment per vendor. The caller
// collapses multi-item orders beforehand (see CollapseOrder), which keeps
// write amplification down under concurrent order volume. A failed vendor
// increment is logged and does not block the others.
func (a *Aggregator) ApplyOrderDeltas(ctx context.Context, deltas map[int64]Delta) {
	for vendorID, d := range deltas {
		if d.Sales == 0 && d.Revenue == 0 {
			continue
		}
		if err := a.store.IncrementVendorTotals(ctx, vendorID, d); err != nil {
			log.Printf("analytics increment for vendor %d failed: %v", vendorID, err)
		}
	}
}

// VendorResolver maps a product to its owning vendor.
type VendorResolver interface {
	ResolveVendor(ctx context.Context, productID int64) (int64, error)
}

// CollapseOrder folds an order's line items into one delta per vendor.
// A line item whose product cannot be resolved is skipped (logged), not
// fatal to the rest of the order.
func CollapseOrder(ctx context.Context, items []models.OrderItem, resolver VendorResolver) map[int64]Delta {
	deltas := make(map[int64]Delta)
	for _, it := range items {
		vendorID, err := resolver.ResolveVendor(ctx, it.ProductID)
		if err != nil {
			log.Printf("skipping analytics for product %d: %v", it.ProductID, err)
			continue
		}
		d := deltas[vendorID]
		d.Sales += int64(it.Quantity)
		d.Revenue += it.Price * float64(it.Quantity)
		deltas[vendorID] = d
	}
	return deltas
}
