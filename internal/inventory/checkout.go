package inventory

import (
	"context"
	"log"
	"time"

	"github.com/sellora/sellora-api/internal/errs"
	"github.com/sellora/sellora-api/internal/lease"
	"github.com/sellora/sellora-api/internal/models"
)

// checkoutLeaseTTL bounds how long one checkout may hold a product.
const checkoutLeaseTTL = 5 * time.Second

// restockAttempts bounds the compensation retry loop per line.
const restockAttempts = 5

// Line is one requested purchase line.
type Line struct {
	ProductID int64
	SKU       string
	Quantity  int
}

// Checkout deducts stock for a purchase, one product lease at a time.
// Unlike a vendor adjustment, a purchase is strict: it never oversells,
// and a failure part-way through puts back what was already taken.
type Checkout struct {
	leases   *lease.Service
	ledger   *Ledger
	store    Store
	lowStock *LowStockNotifier
}

func NewCheckout(leases *lease.Service, ledger *Ledger, store Store, lowStock *LowStockNotifier) *Checkout {
	return &Checkout{leases: leases, ledger: ledger, store: store, lowStock: lowStock}
}

// Deduct takes stock for every line and returns the order items priced at
// each option's effective price. Any mid-loop failure (unknown SKU,
// insufficient stock, lock contention) restocks the lines already
// deducted before returning, so a failed checkout never leaks inventory.
func (c *Checkout) Deduct(ctx context.Context, holder string, lines []Line) ([]models.OrderItem, error) {
	var items []models.OrderItem
	for _, line := range lines {
		item, err := c.deductOne(ctx, holder, line)
		if err != nil {
			c.Restock(ctx, holder, items)
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (c *Checkout) deductOne(ctx context.Context, holder string, line Line) (models.OrderItem, error) {
	ls, err := c.leases.Acquire(ctx, ProductKey(line.ProductID), holder, checkoutLeaseTTL)
	if err != nil {
		return models.OrderItem{}, err
	}
	defer c.leases.Release(ctx, ls)

	product, err := c.store.FindProduct(ctx, line.ProductID)
	if err != nil {
		return models.OrderItem{}, err
	}

	opt, found := product.FindOption(line.SKU)
	if !found {
		return models.OrderItem{}, errs.E(errs.KindNotFound,
			"no variant option with sku %q on product %d", line.SKU, line.ProductID)
	}
	if opt.Quantity < line.Quantity {
		return models.OrderItem{}, errs.E(errs.KindConflict,
			"not enough stock for sku %q on product %d", line.SKU, line.ProductID)
	}

	updated, _, err := c.ledger.ApplyDelta(ctx, ls, line.ProductID, line.SKU, line.Quantity, OpSubtract)
	if err != nil {
		return models.OrderItem{}, err
	}

	if c.lowStock != nil {
		c.lowStock.CheckAndNotify(ctx, product, updated)
	}

	return models.OrderItem{
		ProductID:  line.ProductID,
		VariantSKU: line.SKU,
		Quantity:   line.Quantity,
		Price:      opt.EffectivePrice(),
	}, nil
}

// Restock re-adds previously deducted quantities after a downstream
// failure, under the same lease discipline as the deduction. Best-effort:
// a line that still cannot be restocked after retries is logged, never
// surfaced to the caller.
func (c *Checkout) Restock(ctx context.Context, holder string, items []models.OrderItem) {
	for _, it := range items {
		if err := c.restockOne(ctx, holder, it); err != nil {
			log.Printf("restock of %d x %q on product %d failed: %v",
				it.Quantity, it.VariantSKU, it.ProductID, err)
		}
	}
}

func (c *Checkout) restockOne(ctx context.Context, holder string, it models.OrderItem) error {
	var lastErr error
	for attempt := 0; attempt < restockAttempts; attempt++ {
		ls, err := c.leases.Acquire(ctx, ProductKey(it.ProductID), holder, checkoutLeaseTTL)
		if err != nil {
			if errs.KindOf(err) == errs.KindLockContention {
				lastErr = err
				time.Sleep(50 * time.Millisecond)
				continue
			}
			return err
		}
		_, _, err = c.ledger.ApplyDelta(ctx, ls, it.ProductID, it.VariantSKU, it.Quantity, OpAdd)
		c.leases.Release(ctx, ls)
		return err
	}
	return lastErr
}
