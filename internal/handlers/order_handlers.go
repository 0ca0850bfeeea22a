package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sellora/sellora-api/internal/inventory"
	"github.com/sellora/sellora-api/internal/models"
)

//
// --- Order Handlers ---
//

type CheckoutItemInput struct {
	ProductID int64  `json:"productId" binding:"required"`
	SKU       string `json:"sku" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gte=1,lte=100"`
}

type CheckoutInput struct {
	Items          []CheckoutItemInput    `json:"items" binding:"required,min=1,dive"`
	Address        models.ShippingAddress `json:"address" binding:"required"`
	DeliveryMethod string                 `json:"deliveryMethod" binding:"required"`
}

// Checkout is the handler for POST /v1/buyer/checkout
// Stock is deducted through the lease + ledger pipeline, then the order
// is created; analytics propagation runs off the creation path inside the
// order service.
func (h *Handlers) Checkout(c *gin.Context) {
	buyerID := currentUserID(c)

	var input CheckoutInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 1. --- Validate before touching stock ---
	// A request that cannot become an order must not deduct anything.
	if err := models.Validate().Struct(input.Address); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid shipping address"})
		return
	}

	ctx := c.Request.Context()
	holder := holderKey(buyerID)

	lines := make([]inventory.Line, len(input.Items))
	for i, item := range input.Items {
		lines[i] = inventory.Line{ProductID: item.ProductID, SKU: item.SKU, Quantity: item.Quantity}
	}

	// 2. --- Deduct stock per product, serialized by the product lease ---
	// A mid-loop failure restocks the earlier lines before returning.
	orderItems, err := h.Stock.Deduct(ctx, holder, lines)
	if err != nil {
		respondError(c, err)
		return
	}

	// 3. --- Create the order ---
	order := &models.Order{
		Items: orderItems,
		Shipping: models.ShippingInfo{
			Address:        input.Address,
			DeliveryMethod: input.DeliveryMethod,
		},
	}

	created, err := h.Orders.Create(ctx, buyerID, order)
	if err != nil {
		// No order was persisted; put the stock back.
		h.Stock.Restock(ctx, holder, orderItems)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order created successfully",
		"orderId": created.ID,
		"status":  created.Status,
		"total":   created.Total(),
	})
}

// GetMyOrders is the handler for GET /v1/buyer/orders
func (h *Handlers) GetMyOrders(c *gin.Context) {
	buyerID := currentUserID(c)

	rows, err := h.DB.Query(`
		SELECT id, status, shipping_status, payment_ref, created_at, updated_at
		FROM orders
		WHERE user_id = ?
		ORDER BY created_at DESC`, buyerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
		return
	}
	defer rows.Close()

	type orderSummary struct {
		ID             int64                 `json:"id"`
		Status         models.OrderStatus    `json:"status"`
		ShippingStatus models.ShippingStatus `json:"shippingStatus"`
		PaymentRef     string                `json:"paymentRef"`
		CreatedAt      time.Time             `json:"createdAt"`
		UpdatedAt      time.Time             `json:"updatedAt"`
	}

	orders := []orderSummary{}
	for rows.Next() {
		var o orderSummary
		if err := rows.Scan(&o.ID, &o.Status, &o.ShippingStatus, &o.PaymentRef, &o.CreatedAt, &o.UpdatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan order row"})
			return
		}
		orders = append(orders, o)
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// GetOrderDetails is the handler for GET /v1/buyer/orders/:id
func (h *Handlers) GetOrderDetails(c *gin.Context) {
	buyerID := currentUserID(c)

	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	order, err := h.Orders.Get(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	if order.UserID != buyerID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

type UpdateOrderStatusInput struct {
	Status models.OrderStatus `json:"status" binding:"required,oneof=pending processing delivered cancelled"`
}

// UpdateOrderStatus is the handler for PATCH /v1/warehouse/orders/:id/status
func (h *Handlers) UpdateOrderStatus(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var input UpdateOrderStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.Orders.UpdateStatus(c.Request.Context(), orderID, input.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order status updated",
		"order":   order,
	})
}

type UpdateShippingInput struct {
	Status            models.ShippingStatus `json:"status" binding:"required,oneof=pending paid shippedToWarehouse confirmed shipped delivered returned cancelled refunded"`
	Carrier           models.Carrier        `json:"carrier,omitempty"`
	TrackingNumber    string                `json:"trackingNumber,omitempty"`
	EstimatedDelivery *time.Time            `json:"estimatedDelivery,omitempty"`
}

// UpdateShipping is the handler for PATCH /v1/warehouse/orders/:id/shipping
func (h *Handlers) UpdateShipping(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var input UpdateShippingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.Orders.UpdateShipping(c.Request.Context(), orderID, models.ShippingUpdate{
		Status:            input.Status,
		Carrier:           input.Carrier,
		TrackingNumber:    input.TrackingNumber,
		EstimatedDelivery: input.EstimatedDelivery,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Shipping updated",
		"order":   order,
	})
}

type ConfirmOrderInput struct {
	Role models.ConfirmRole `json:"role" binding:"required,oneof=buyer courier"`
}

// ConfirmOrder is the handler for POST /v1/orders/:id/confirm
// Confirmations are independent acknowledgements, not state transitions.
func (h *Handlers) ConfirmOrder(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var input ConfirmOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.Orders.Confirm(c.Request.Context(), orderID, input.Role)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Confirmation recorded",
		"confirmations": order.Confirmations,
	})
}

type ReceiveItemInput struct {
	ProductID int64 `json:"productId" binding:"required"`
}

// ReceiveItem is the handler for POST /v1/warehouse/orders/:id/receive
func (h *Handlers) ReceiveItem(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var input ReceiveItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	vendorID, err := h.Products.ResolveVendor(ctx, input.ProductID)
	if err != nil {
		respondError(c, err)
		return
	}

	order, err := h.Orders.ReceiveItem(ctx, orderID, input.ProductID, vendorID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Item receipt recorded",
		"receivedItems": order.ReceivedItems,
	})
}

type RejectItemInput struct {
	ProductID   int64  `json:"productId" binding:"required"`
	Reason      string `json:"reason" binding:"required"`
	Explanation string `json:"explanation"`
}

// RejectItem is the handler for POST /v1/warehouse/orders/:id/reject
// An item must have a matching receipt before it can be rejected.
func (h *Handlers) RejectItem(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var input RejectItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	vendorID, err := h.Products.ResolveVendor(ctx, input.ProductID)
	if err != nil {
		respondError(c, err)
		return
	}

	order, err := h.Orders.RejectItem(ctx, orderID, input.ProductID, vendorID, input.Reason, input.Explanation)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Item rejection recorded",
		"rejectedItems": order.RejectedItems,
	})
}
