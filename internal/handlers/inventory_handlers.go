package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sellora/sellora-api/internal/inventory"
)

// stockLeaseTTL bounds how long one stock adjustment may hold a product.
const stockLeaseTTL = 5 * time.Second

type AdjustStockInput struct {
	SKU       string `json:"sku" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
	Operation string `json:"operation" binding:"required,oneof=add subtract"`
}

// AdjustStock is the handler for POST /v1/vendor/products/:id/stock
// It serializes the mutation behind the product lease, applies the delta
// through the ledger, and runs the low-stock check afterwards.
func (h *Handlers) AdjustStock(c *gin.Context) {
	vendorID := currentUserID(c)

	productID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var input AdjustStockInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	op, err := inventory.ParseOp(input.Operation)
	if err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()

	// Ownership check before taking the lease.
	ownerID, err := h.Products.ResolveVendor(ctx, productID)
	if err != nil {
		respondError(c, err)
		return
	}
	if ownerID != vendorID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to modify this product's stock"})
		return
	}

	// 1. --- Serialize: acquire the product lease ---
	ls, err := h.Leases.Acquire(ctx, inventory.ProductKey(productID), holderKey(vendorID), stockLeaseTTL)
	if err != nil {
		respondError(c, err) // contention maps to 429 "try again shortly"
		return
	}
	defer h.Leases.Release(ctx, ls)

	// 2. --- Apply the delta under the lease ---
	opt, status, err := h.Ledger.ApplyDelta(ctx, ls, productID, input.SKU, input.Quantity, op)
	if err != nil {
		respondError(c, err)
		return
	}

	// 3. --- Low-stock check (fire-and-forget) ---
	if product, ferr := h.Products.FindProduct(ctx, productID); ferr == nil {
		h.LowStock.CheckAndNotify(ctx, product, opt)
	}

	c.JSON(http.StatusOK, gin.H{
		"option":        opt,
		"productStatus": status,
	})
}

func holderKey(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}
