// Package inventory owns the variant/option quantity matrix of a product.
// All mutations are serialized per product by a lease: whoever holds the
// lease at a given instant is the only writer.
package inventory

import (
	"context"
	"fmt"

	"github.com/sellora/sellora-api/internal/errs"
	"github.com/sellora/sellora-api/internal/lease"
	"github.com/sellora/sellora-api/internal/models"
)

// ProductKey is the lease key guarding a product's variant matrix.
func ProductKey(productID int64) string {
	return fmt.Sprintf("product:%d", productID)
}

// Op is the direction of a stock delta.
type Op string

const (
	OpAdd      Op = "add"
	OpSubtract Op = "subtract"
)

// ParseOp validates an operation string from a request.
func ParseOp(s string) (Op, error) {
	switch Op(s) {
	case OpAdd, OpSubtract:
		return Op(s), nil
	}
	return "", errs.E(errs.KindValidation, "operation must be %q or %q", OpAdd, OpSubtract)
}

// Store is the persistence behind the ledger.
type Store interface {
	// FindProduct loads the product with its full variant/option matrix.
	// Returns a NotFound error when the product is missing.
	FindProduct(ctx context.Context, productID int64) (*models.Product, error)

	// SaveMutation persists the updated option quantity and the derived
	// product status. The option write is authoritative; from the
	// caller's perspective the pair is atomic.
	SaveMutation(ctx context.Context, productID int64, opt models.VariantOption, status models.ProductStatus) error
}

// Ledger applies signed deltas to a product's option quantities and
// recomputes the derived availability status.
type Ledger struct {
	store Store
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// ApplyDelta mutates the option matching the SKU by the given quantity.
// The caller must already hold the product lease; the lease is taken as a
// capability token and not re-verified here, so calling without one is a
// programming error in the call-site, not a runtime condition.
//
// A subtract that would drive the quantity negative saturates to 0 rather
// than erroring. After the mutation the total across all options decides
// the product status: 0 total flips to outOfStock, and a product that was
// outOfStock flips back to active once the total is positive again. No
// other status moves automatically; a suspended product stays suspended.
func (l *Ledger) ApplyDelta(ctx context.Context, ls *lease.Lease, productID int64, sku string, quantity int, op Op) (models.VariantOption, models.ProductStatus, error) {
	_ = ls // capability token; possession is the contract

	if quantity < 0 {
		return models.VariantOption{}, "", errs.E(errs.KindValidation, "quantity must not be negative")
	}

	product, err := l.store.FindProduct(ctx, productID)
	if err != nil {
		return models.VariantOption{}, "", err
	}
	if !product.HasOptions() {
		return models.VariantOption{}, "", errs.E(errs.KindValidation,
			"product %d has no variants to mutate", productID)
	}

	opt, found := product.FindOption(sku)
	if !found {
		return models.VariantOption{}, "", errs.E(errs.KindNotFound,
			"no variant option with sku %q on product %d", sku, productID)
	}

	previous := opt.Quantity
	switch op {
	case OpAdd:
		opt.Quantity = previous + quantity
	case OpSubtract:
		opt.Quantity = previous - quantity
		if opt.Quantity < 0 {
			opt.Quantity = 0 // deliberate leniency, not a validation failure
		}
	default:
		return models.VariantOption{}, "", errs.E(errs.KindValidation, "unknown operation %q", op)
	}

	// Recompute the total with the mutated option in place.
	total := product.TotalQuantity() - previous + opt.Quantity

	status := product.Status
	if total == 0 {
		status = models.ProductStatusOutOfStock
	} else if product.Status == models.ProductStatusOutOfStock {
		status = models.ProductStatusActive
	}

	if err := l.store.SaveMutation(ctx, productID, opt, status); err != nil {
		return models.VariantOption{}, "", err
	}

	return opt, status, nil
}
