package inventory

import (
	"context"
	"database/sql"
	"time"

	"github.com/sellora/sellora-api/internal/errs"
	"github.com/sellora/sellora-api/internal/models"
)

// SQLStore loads and persists the variant matrix from MySQL.
type SQLStore struct {
	DB *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{DB: db}
}

func (s *SQLStore) FindProduct(ctx context.Context, productID int64) (*models.Product, error) {
	var p models.Product

	query := `
		SELECT id, vendor_id, name, slug, description, status, low_stock_alert, created_at, updated_at
		FROM products
		WHERE id = ?`

	err := s.DB.QueryRowContext(ctx, query, productID).Scan(
		&p.ID, &p.VendorID, &p.Name, &p.Slug, &p.Description,
		&p.Status, &p.LowStockAlert, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errs.E(errs.KindNotFound, "product %d not found", productID)
		}
		return nil, errs.Wrap(errs.KindInternal, "failed to load product", err)
	}

	// Variants
	vRows, err := s.DB.QueryContext(ctx,
		"SELECT id, product_id, name FROM product_variants WHERE product_id = ? ORDER BY id", p.ID)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "failed to load variants", err)
	}
	defer vRows.Close()

	for vRows.Next() {
		var v models.Variant
		if err := vRows.Scan(&v.ID, &v.ProductID, &v.Name); err != nil {
			return nil, errs.Wrap(errs.KindInternal, "failed to scan variant row", err)
		}
		p.Variants = append(p.Variants, v)
	}
	if err := vRows.Err(); err != nil {
		return nil, errs.Wrap(errs.KindInternal, "failed to iterate variants", err)
	}

	// Options per variant
	for i := range p.Variants {
		oRows, err := s.DB.QueryContext(ctx, `
			SELECT id, variant_id, sku, value, price, sale_price, quantity
			FROM variant_options WHERE variant_id = ? ORDER BY id`, p.Variants[i].ID)
		if err != nil {
			return nil, errs.Wrap(errs.KindInternal, "failed to load options", err)
		}
		for oRows.Next() {
			var o models.VariantOption
			if err := oRows.Scan(&o.ID, &o.VariantID, &o.SKU, &o.Value, &o.Price, &o.SalePrice, &o.Quantity); err != nil {
				oRows.Close()
				return nil, errs.Wrap(errs.KindInternal, "failed to scan option row", err)
			}
			p.Variants[i].Options = append(p.Variants[i].Options, o)
		}
		oRows.Close()
		if err := oRows.Err(); err != nil {
			return nil, errs.Wrap(errs.KindInternal, "failed to iterate options", err)
		}
	}

	return &p, nil
}

// SaveMutation writes the option quantity and derived product status in a
// single transaction so the pair is atomic from the caller's perspective.
func (s *SQLStore) SaveMutation(ctx context.Context, productID int64, opt models.VariantOption, status models.ProductStatus) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.KindInternal, "failed to start transaction", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec("UPDATE variant_options SET quantity = ? WHERE id = ?", opt.Quantity, opt.ID)
	if err != nil {
		return errs.Wrap(errs.KindInternal, "failed to update option quantity", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Quantity may legitimately be unchanged (clamped subtract on an
		// already-empty option), so re-check existence instead of failing.
		var exists int
		if err := tx.QueryRow("SELECT 1 FROM variant_options WHERE id = ?", opt.ID).Scan(&exists); err != nil {
			return errs.E(errs.KindNotFound, "option %q vanished during mutation", opt.SKU)
		}
	}

	_, err = tx.Exec("UPDATE products SET status = ?, updated_at = ? WHERE id = ?",
		status, time.Now(), productID)
	if err != nil {
		return errs.Wrap(errs.KindInternal, "failed to update product status", err)
	}

	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.KindInternal, "failed to commit mutation", err)
	}
	return nil
}

// ResolveVendor returns the vendor owning a product. Used during
// analytics propagation.
func (s *SQLStore) ResolveVendor(ctx context.Context, productID int64) (int64, error) {
	var vendorID int64
	err := s.DB.QueryRowContext(ctx, "SELECT vendor_id FROM products WHERE id = ?", productID).Scan(&vendorID)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, errs.E(errs.KindNotFound, "product %d not found", productID)
		}
		return 0, errs.Wrap(errs.KindInternal, "failed to resolve vendor", err)
	}
	return vendorID, nil
}
