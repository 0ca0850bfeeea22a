package models

import (
	"time"

	"github.com/samber/lo"
)

// ProductStatus is the lifecycle state of a listing.
type ProductStatus string

const (
	ProductStatusDraft      ProductStatus = "draft"
	ProductStatusPending    ProductStatus = "pending"
	ProductStatusActive     ProductStatus = "active"
	ProductStatusOutOfStock ProductStatus = "outOfStock"
	// ProductStatusSuspended is set by an admin. Stock arriving never
	// auto-reactivates a suspended product; only outOfStock flips back.
	ProductStatusSuspended ProductStatus = "suspended"
)

// Product is the model for the 'products' table.
type Product struct {
	ID          int64         `json:"id" db:"id"`
	VendorID    int64         `json:"vendorId" db:"vendor_id"`
	Name        string        `json:"name" db:"name"`
	Slug        string        `json:"slug" db:"slug"`
	Description string        `json:"description" db:"description"`
	Status      ProductStatus `json:"status" db:"status"`

	// LowStockAlert is the per-product alert threshold. Nil means the
	// platform default applies.
	LowStockAlert *int `json:"lowStockAlert,omitempty" db:"low_stock_alert"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	// Joins (populated manually)
	Variants []Variant `json:"variants,omitempty" db:"-"`
}

// Variant is one axis of a variable product, e.g. "Color".
type Variant struct {
	ID        int64           `json:"id" db:"id"`
	ProductID int64           `json:"productId" db:"product_id"`
	Name      string          `json:"name" db:"name"`
	Options   []VariantOption `json:"options" db:"-"`
}

// VariantOption is a sellable unit inside a variant, keyed by SKU.
type VariantOption struct {
	ID        int64    `json:"id" db:"id"`
	VariantID int64    `json:"variantId" db:"variant_id"`
	SKU       string   `json:"sku" db:"sku"`
	Value     string   `json:"value" db:"value"`
	Price     float64  `json:"price" db:"price"`
	SalePrice *float64 `json:"salePrice,omitempty" db:"sale_price"`
	Quantity  int      `json:"quantity" db:"quantity"`
}

// EffectivePrice returns the sale price when set, otherwise the list price.
func (o VariantOption) EffectivePrice() float64 {
	if o.SalePrice != nil {
		return *o.SalePrice
	}
	return o.Price
}

// HasOptions reports whether any variant carries at least one option.
func (p *Product) HasOptions() bool {
	for _, v := range p.Variants {
		if len(v.Options) > 0 {
			return true
		}
	}
	return false
}

// TotalQuantity sums every option quantity across all variants. The total
// drives the derived availability status.
func (p *Product) TotalQuantity() int {
	return lo.SumBy(p.Variants, func(v Variant) int {
		return lo.SumBy(v.Options, func(o VariantOption) int { return o.Quantity })
	})
}

// FindOption returns the first option matching the SKU across all variants.
// SKUs are assumed unique per product; a duplicate is a data-integrity bug
// upstream, not something resolved here.
func (p *Product) FindOption(sku string) (VariantOption, bool) {
	for _, v := range p.Variants {
		for _, o := range v.Options {
			if o.SKU == sku {
				return o, true
			}
		}
	}
	return VariantOption{}, false
}
