package models

import "time"

// VendorStats is the per-vendor accumulator row. Counters only ever move
// by delta application ($inc-style); they are never recomputed from
// scratch on the hot path.
type VendorStats struct {
	VendorID         int64     `json:"vendorId" db:"vendor_id"`
	TotalSales       int64     `json:"totalSales" db:"total_sales"`
	TotalRevenue     float64   `json:"totalRevenue" db:"total_revenue"`
	ProductCount     int       `json:"productCount" db:"product_count"`
	FeaturedProducts int       `json:"featuredProducts" db:"featured_products"`
	UpdatedAt        time.Time `json:"updatedAt" db:"updated_at"`
}
