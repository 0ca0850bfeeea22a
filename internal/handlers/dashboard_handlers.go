package handlers

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sellora/sellora-api/internal/inventory"
	"github.com/sellora/sellora-api/internal/models"
)

//
// --- Vendor Dashboard ---
//

// GetVendorDashboard is the handler for GET /v1/vendor/dashboard
// Sales and revenue come straight from the accumulator row; the product
// and low-stock counts are computed live since they are cheap.
func (h *Handlers) GetVendorDashboard(c *gin.Context) {
	vendorID := currentUserID(c)

	// 1. --- Accumulated stats (a vendor with no sales has no row yet) ---
	stats := models.VendorStats{VendorID: vendorID}
	err := h.DB.QueryRow(`
		SELECT total_sales, total_revenue, updated_at
		FROM vendor_stats
		WHERE vendor_id = ?`, vendorID,
	).Scan(&stats.TotalSales, &stats.TotalRevenue, &stats.UpdatedAt)
	if err != nil && err != sql.ErrNoRows {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch vendor stats"})
		return
	}

	// 2. --- Live product counts ---
	err = h.DB.QueryRow(
		"SELECT COUNT(*) FROM products WHERE vendor_id = ?", vendorID,
	).Scan(&stats.ProductCount)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count products"})
		return
	}

	// 3. --- Low-stock count: options at or under the product's threshold ---
	var lowStockCount int
	lowStockQuery := `
		SELECT COUNT(DISTINCT p.id)
		FROM products p
		JOIN product_variants pv ON pv.product_id = p.id
		JOIN variant_options vo ON vo.variant_id = pv.id
		WHERE p.vendor_id = ?
		  AND vo.quantity <= COALESCE(p.low_stock_alert, ?)`

	err = h.DB.QueryRow(lowStockQuery, vendorID, inventory.DefaultLowStockThreshold).Scan(&lowStockCount)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count low-stock products"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"totalSales":    stats.TotalSales,
		"totalRevenue":  stats.TotalRevenue,
		"productCount":  stats.ProductCount,
		"lowStockCount": lowStockCount,
	})
}
