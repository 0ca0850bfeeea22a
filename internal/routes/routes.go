package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sellora/sellora-api/internal/handlers"
	"github.com/sellora/sellora-api/internal/middleware"
)

// CORSMiddleware tells the browser it is safe for the local frontend to
// talk to this API.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "http://localhost:5173")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		// Preflight OPTIONS requests get an empty 204.
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func SetupRouter(h *handlers.Handlers) *gin.Engine {
	router := gin.Default()

	// CORS must be the very first thing the router uses.
	router.Use(CORSMiddleware())

	v1 := router.Group("/v1")
	{
		// --- Ping Route (Public) ---
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})

		// --- Auth Routes (Public) ---
		v1.POST("/register", h.Register)
		v1.POST("/login", h.Login)

		// --- Public Product Routes ---
		v1.GET("/products/:id", h.GetProduct)

		// --- Protected Routes (Login Required) ---
		auth := v1.Group("/")
		auth.Use(middleware.AuthMiddleware())
		{
			// --- Notification Routes ---
			auth.GET("/notifications", h.GetMyNotifications)
			auth.PATCH("/notifications/:id/read", h.MarkNotificationAsRead)

			// --- Realtime Events (SSE) ---
			auth.GET("/events", h.StreamVendorEvents)

			// --- Order Confirmation (buyer or courier role in body) ---
			auth.POST("/orders/:id/confirm", h.ConfirmOrder)
		}

		// --- Vendor-Only Routes ---
		vendor := v1.Group("/vendor")
		vendor.Use(middleware.AuthMiddleware())
		vendor.Use(middleware.RequireRole(h.DB, "vendor"))
		{
			vendor.POST("/products", h.CreateProduct)
			vendor.GET("/products", h.GetMyProducts)
			vendor.POST("/products/:id/stock", h.AdjustStock)

			vendor.GET("/dashboard", h.GetVendorDashboard)
			vendor.GET("/orders/:id/payout-eligibility", h.GetPayoutEligibility)
		}

		// --- Buyer-Only Routes ---
		buyer := v1.Group("/buyer")
		buyer.Use(middleware.AuthMiddleware())
		buyer.Use(middleware.RequireRole(h.DB, "buyer"))
		{
			buyer.POST("/checkout", h.Checkout)
			buyer.GET("/orders", h.GetMyOrders)
			buyer.GET("/orders/:id", h.GetOrderDetails)
			buyer.GET("/orders/:id/refund-eligibility", h.GetRefundEligibility)
		}

		// --- Warehouse-Only Routes ---
		warehouse := v1.Group("/warehouse")
		warehouse.Use(middleware.AuthMiddleware())
		warehouse.Use(middleware.RequireRole(h.DB, "warehouse"))
		{
			warehouse.PATCH("/orders/:id/status", h.UpdateOrderStatus)
			warehouse.PATCH("/orders/:id/shipping", h.UpdateShipping)
			warehouse.POST("/orders/:id/receive", h.ReceiveItem)
			warehouse.POST("/orders/:id/reject", h.RejectItem)
		}
	}

	return router
}
