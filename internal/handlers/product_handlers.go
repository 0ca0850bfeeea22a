package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	"github.com/sellora/sellora-api/internal/models"
)

// --- Inputs ---

type VariantOptionInput struct {
	SKU       string   `json:"sku" binding:"required"`
	Value     string   `json:"value" binding:"required"`
	Price     float64  `json:"price" binding:"required,gt=0"`
	SalePrice *float64 `json:"salePrice,omitempty" binding:"omitempty,gt=0"`
	Quantity  int      `json:"quantity" binding:"gte=0"`
}

type VariantInput struct {
	Name    string               `json:"name" binding:"required"`
	Options []VariantOptionInput `json:"options" binding:"required,min=1,dive"`
}

type CreateProductInput struct {
	Name          string         `json:"name" binding:"required"`
	Description   string         `json:"description"`
	LowStockAlert *int           `json:"lowStockAlert,omitempty" binding:"omitempty,gte=0"`
	Variants      []VariantInput `json:"variants" binding:"required,min=1,dive"`
}

// CreateProduct is the handler for POST /v1/vendor/products
func (h *Handlers) CreateProduct(c *gin.Context) {
	vendorID := currentUserID(c)

	var input CreateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Reject duplicate SKUs up front; the ledger assumes SKUs are unique
	// per product.
	seen := make(map[string]bool)
	for _, v := range input.Variants {
		for _, o := range v.Options {
			if seen[o.SKU] {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Duplicate SKU " + o.SKU + " in variants"})
				return
			}
			seen[o.SKU] = true
		}
	}

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	now := time.Now()
	status := models.ProductStatusActive

	// A product born with zero total stock starts out of stock.
	totalStock := 0
	for _, v := range input.Variants {
		for _, o := range v.Options {
			totalStock += o.Quantity
		}
	}
	if totalStock == 0 {
		status = models.ProductStatusOutOfStock
	}

	productQuery := `
		INSERT INTO products
		(vendor_id, name, slug, description, status, low_stock_alert, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := tx.Exec(productQuery,
		vendorID, input.Name, slug.Make(input.Name), input.Description,
		status, input.LowStockAlert, now, now,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to insert product"})
		return
	}
	productID, err := res.LastInsertId()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get new product ID"})
		return
	}

	variantQuery := "INSERT INTO product_variants (product_id, name) VALUES (?, ?)"
	optionQuery := `
		INSERT INTO variant_options (variant_id, sku, value, price, sale_price, quantity)
		VALUES (?, ?, ?, ?, ?, ?)`

	for _, v := range input.Variants {
		vRes, err := tx.Exec(variantQuery, productID, v.Name)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to insert variant"})
			return
		}
		variantID, _ := vRes.LastInsertId()

		for _, o := range v.Options {
			if _, err := tx.Exec(optionQuery, variantID, o.SKU, o.Value, o.Price, o.SalePrice, o.Quantity); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to insert variant option"})
				return
			}
		}
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Product created",
		"productId": productID,
		"status":    status,
	})
}

// GetMyProducts is the handler for GET /v1/vendor/products
func (h *Handlers) GetMyProducts(c *gin.Context) {
	vendorID := currentUserID(c)

	query := `
		SELECT id, vendor_id, name, slug, description, status, low_stock_alert, created_at, updated_at
		FROM products
		WHERE vendor_id = ?
		ORDER BY created_at DESC`

	rows, err := h.DB.Query(query, vendorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(
			&p.ID, &p.VendorID, &p.Name, &p.Slug, &p.Description,
			&p.Status, &p.LowStockAlert, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan product row"})
			return
		}
		products = append(products, &p)
	}

	if products == nil {
		products = []*models.Product{}
	}

	c.JSON(http.StatusOK, gin.H{"products": products})
}

// GetProduct is the handler for GET /v1/products/:id
// Returns the product with its full variant/option matrix.
func (h *Handlers) GetProduct(c *gin.Context) {
	productID, ok := paramID(c, "id")
	if !ok {
		return
	}

	product, err := h.Products.FindProduct(c.Request.Context(), productID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": product})
}
