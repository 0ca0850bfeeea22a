package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sellora/sellora-api/internal/models"
	"github.com/sellora/sellora-api/internal/settlement"
)

//
// --- Settlement Handlers ---
//

// GetRefundEligibility is the handler for GET /v1/buyer/orders/:id/refund-eligibility
// Eligibility is computed from the latest issue on the order; the 30-day
// window is reported alongside but does not gate the result.
func (h *Handlers) GetRefundEligibility(c *gin.Context) {
	buyerID := currentUserID(c)

	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	order, err := h.Orders.Get(ctx, orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	if order.UserID != buyerID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	// 1. --- Load the most recent issue for this order, if any ---
	var issue *models.Issue
	row := h.DB.QueryRow(`
		SELECT id, order_id, user_id, status, subject, created_at, updated_at
		FROM issues
		WHERE order_id = ?
		ORDER BY created_at DESC
		LIMIT 1`, orderID)

	var i models.Issue
	err = row.Scan(&i.ID, &i.OrderID, &i.UserID, &i.Status, &i.Subject, &i.CreatedAt, &i.UpdatedAt)
	switch {
	case err == sql.ErrNoRows:
		// no issue raised; eligibility will be false
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch issue"})
		return
	default:
		issue = &i
	}

	// 2. --- Evaluate the gate ---
	now := time.Now()
	eligible := settlement.RefundEligible(order, issue, now)
	windowOpen, closesAt := settlement.RefundWindow(order, now)

	resp := gin.H{
		"eligible":   eligible,
		"windowOpen": windowOpen,
	}
	if !closesAt.IsZero() {
		resp["windowClosesAt"] = closesAt
	}
	c.JSON(http.StatusOK, resp)
}

// GetPayoutEligibility is the handler for GET /v1/vendor/orders/:id/payout-eligibility
func (h *Handlers) GetPayoutEligibility(c *gin.Context) {
	vendorID := currentUserID(c)

	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	order, err := h.Orders.Get(ctx, orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	// A prior request for this (order, vendor) pair blocks eligibility.
	var priorCount int
	err = h.DB.QueryRow(
		"SELECT COUNT(*) FROM payout_requests WHERE order_id = ? AND vendor_id = ?",
		orderID, vendorID,
	).Scan(&priorCount)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check payout requests"})
		return
	}

	eligible := settlement.PayoutEligible(order, priorCount > 0, time.Now())

	resp := gin.H{"eligible": eligible}
	if order.Shipping.DeliveredAt != nil {
		resp["payoutOpensAt"] = order.Shipping.DeliveredAt.AddDate(0, 0, settlement.PayoutMinDays)
	}
	c.JSON(http.StatusOK, resp)
}
