package inventory

import (
	"context"
	"fmt"
	"log"

	"github.com/sellora/sellora-api/internal/models"
	"github.com/sellora/sellora-api/internal/notify"
)

// DefaultLowStockThreshold applies when a product has no configured
// lowStockAlert value. The fallback is explicit; an unset threshold never
// silently skips the check.
const DefaultLowStockThreshold = 5

// Sink enqueues a persistent notification record for a user.
type Sink interface {
	Enqueue(ctx context.Context, userID int64, kind string, payload map[string]interface{}) error
}

// Pusher delivers a realtime event to a vendor's connected session.
type Pusher interface {
	PushToVendorSession(vendorID int64, event notify.Event)
}

// LowStockNotifier observes post-mutation quantities and alerts the
// owning vendor when the threshold is crossed. Delivery is fire-and-
// forget: a failure is logged and never rolls back the mutation.
type LowStockNotifier struct {
	sink   Sink
	pusher Pusher
}

func NewLowStockNotifier(sink Sink, pusher Pusher) *LowStockNotifier {
	return &LowStockNotifier{sink: sink, pusher: pusher}
}

// CheckAndNotify fires at most one alert per mutation event when the
// updated option's quantity is at or below the threshold. Repeated
// qualifying mutations each produce a new alert; there is no suppression
// window.
func (n *LowStockNotifier) CheckAndNotify(ctx context.Context, product *models.Product, updated models.VariantOption) {
	threshold := DefaultLowStockThreshold
	if product.LowStockAlert != nil {
		threshold = *product.LowStockAlert
	}

	if updated.Quantity > threshold {
		return
	}

	payload := map[string]interface{}{
		"message":   fmt.Sprintf("Low stock: %s (%s) is down to %d units", product.Name, updated.SKU, updated.Quantity),
		"productId": product.ID,
		"sku":       updated.SKU,
		"quantity":  updated.Quantity,
		"threshold": threshold,
	}

	if n.sink != nil {
		if err := n.sink.Enqueue(ctx, product.VendorID, "low_stock", payload); err != nil {
			log.Printf("low-stock notification for product %d failed: %v", product.ID, err)
		}
	}

	if n.pusher != nil {
		n.pusher.PushToVendorSession(product.VendorID, notify.Event{
			Type: "low_stock",
			Data: payload,
		})
	}
}
