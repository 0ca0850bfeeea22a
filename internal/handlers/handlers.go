package handlers

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sellora/sellora-api/internal/errs"
	"github.com/sellora/sellora-api/internal/inventory"
	"github.com/sellora/sellora-api/internal/lease"
	"github.com/sellora/sellora-api/internal/notify"
	"github.com/sellora/sellora-api/internal/orders"
)

// Handlers holds all dependencies for the HTTP layer.
type Handlers struct {
	DB       *sql.DB
	Leases   *lease.Service
	Ledger   *inventory.Ledger
	Products *inventory.SQLStore
	Stock    *inventory.Checkout
	LowStock *inventory.LowStockNotifier
	Orders   *orders.Service
	Hub      *notify.Hub
}

// respondError maps a tagged error to its HTTP status. Lock contention
// reads as "try again shortly", never as a generic server error.
func respondError(c *gin.Context, err error) {
	status := errs.HTTPStatus(err)

	msg := err.Error()
	switch status {
	case http.StatusTooManyRequests:
		msg = "Resource is busy, please try again shortly"
	case http.StatusInternalServerError:
		// Do not leak backing-store details.
		msg = "Internal server error"
	}

	c.JSON(status, gin.H{"error": msg})
}

// currentUserID pulls the authenticated user id set by AuthMiddleware.
func currentUserID(c *gin.Context) int64 {
	userIDRaw, _ := c.Get("userID")
	return userIDRaw.(int64)
}

// paramID parses a numeric path parameter. Writes the 400 response itself
// when the value is not a valid id.
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name + " parameter"})
		return 0, false
	}
	return id, true
}
