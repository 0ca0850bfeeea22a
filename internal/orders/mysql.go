package orders

import (
	"context"
	"database/sql"

	"github.com/sellora/sellora-api/internal/errs"
	"github.com/sellora/sellora-api/internal/models"
)

// SQLStore persists the order aggregate across the orders, order_items,
// order_confirmations, order_received_items and order_rejected_items
// tables. Mutate holds a FOR UPDATE row lock on the order for the whole
// callback, which is what gives one-concurrent-writer-wins semantics per
// order document.
type SQLStore struct {
	DB *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{DB: db}
}

// querier is implemented by both *sql.DB and *sql.Tx so the loaders can
// run in or out of a transaction.
type querier interface {
	QueryRow(query string, args ...interface{}) *sql.Row
	Query(query string, args ...interface{}) (*sql.Rows, error)
}

func (s *SQLStore) Create(ctx context.Context, o *models.Order) (int64, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, errs.Wrap(errs.KindInternal, "failed to start transaction", err)
	}
	defer tx.Rollback()

	orderQuery := `
		INSERT INTO orders
		(user_id, payment_ref, status,
		 street, city, state, country, postal_code,
		 carrier, tracking_number, shipping_status, estimated_delivery, delivered_at, delivery_method,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := tx.Exec(orderQuery,
		o.UserID, o.PaymentRef, o.Status,
		o.Shipping.Address.Street, o.Shipping.Address.City, o.Shipping.Address.State,
		o.Shipping.Address.Country, o.Shipping.Address.PostalCode,
		o.Shipping.Carrier, o.Shipping.TrackingNumber, o.Shipping.Status,
		o.Shipping.EstimatedDelivery, o.Shipping.DeliveredAt, o.Shipping.DeliveryMethod,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return 0, errs.Wrap(errs.KindInternal, "failed to insert order", err)
	}
	orderID, err := res.LastInsertId()
	if err != nil {
		return 0, errs.Wrap(errs.KindInternal, "failed to get new order id", err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, product_id, variant_sku, quantity, price)
		VALUES (?, ?, ?, ?, ?)`
	for _, it := range o.Items {
		if _, err := tx.Exec(itemQuery, orderID, it.ProductID, it.VariantSKU, it.Quantity, it.Price); err != nil {
			return 0, errs.Wrap(errs.KindInternal, "failed to insert order item", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errs.Wrap(errs.KindInternal, "failed to commit order", err)
	}
	return orderID, nil
}

func (s *SQLStore) Get(ctx context.Context, id int64) (*models.Order, error) {
	return loadOrder(s.DB, id, false)
}

func (s *SQLStore) Mutate(ctx context.Context, id int64, fn func(*models.Order) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.KindInternal, "failed to start transaction", err)
	}
	defer tx.Rollback()

	o, err := loadOrder(tx, id, true)
	if err != nil {
		return err
	}

	// Snapshot the append-only ledger lengths so only new tail entries
	// are written back.
	prevConf := len(o.Confirmations)
	prevRecv := len(o.ReceivedItems)
	prevRej := len(o.RejectedItems)

	if err := fn(o); err != nil {
		return err
	}

	_, err = tx.Exec(`
		UPDATE orders SET
			status = ?,
			carrier = ?, tracking_number = ?, shipping_status = ?,
			estimated_delivery = ?, delivered_at = ?,
			updated_at = ?
		WHERE id = ?`,
		o.Status,
		o.Shipping.Carrier, o.Shipping.TrackingNumber, o.Shipping.Status,
		o.Shipping.EstimatedDelivery, o.Shipping.DeliveredAt,
		o.UpdatedAt, o.ID,
	)
	if err != nil {
		return errs.Wrap(errs.KindInternal, "failed to update order", err)
	}

	for _, c := range o.Confirmations[prevConf:] {
		if _, err := tx.Exec(
			"INSERT INTO order_confirmations (order_id, role, confirmed_at) VALUES (?, ?, ?)",
			o.ID, c.Role, c.At); err != nil {
			return errs.Wrap(errs.KindInternal, "failed to insert confirmation", err)
		}
	}
	for _, r := range o.ReceivedItems[prevRecv:] {
		if _, err := tx.Exec(
			"INSERT INTO order_received_items (order_id, product_id, vendor_id, received_at) VALUES (?, ?, ?, ?)",
			o.ID, r.ProductID, r.VendorID, r.ReceivedAt); err != nil {
			return errs.Wrap(errs.KindInternal, "failed to insert received item", err)
		}
	}
	for _, r := range o.RejectedItems[prevRej:] {
		if _, err := tx.Exec(
			"INSERT INTO order_rejected_items (order_id, product_id, vendor_id, reason, explanation, rejected_at) VALUES (?, ?, ?, ?, ?, ?)",
			o.ID, r.ProductID, r.VendorID, r.Reason, r.Explanation, r.RejectedAt); err != nil {
			return errs.Wrap(errs.KindInternal, "failed to insert rejected item", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.KindInternal, "failed to commit order mutation", err)
	}
	return nil
}

func loadOrder(q querier, id int64, forUpdate bool) (*models.Order, error) {
	query := `
		SELECT id, user_id, payment_ref, status,
		       street, city, state, country, postal_code,
		       carrier, tracking_number, shipping_status, estimated_delivery, delivered_at, delivery_method,
		       created_at, updated_at
		FROM orders WHERE id = ?`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var o models.Order
	err := q.QueryRow(query, id).Scan(
		&o.ID, &o.UserID, &o.PaymentRef, &o.Status,
		&o.Shipping.Address.Street, &o.Shipping.Address.City, &o.Shipping.Address.State,
		&o.Shipping.Address.Country, &o.Shipping.Address.PostalCode,
		&o.Shipping.Carrier, &o.Shipping.TrackingNumber, &o.Shipping.Status,
		&o.Shipping.EstimatedDelivery, &o.Shipping.DeliveredAt, &o.Shipping.DeliveryMethod,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errs.E(errs.KindNotFound, "order %d not found", id)
		}
		return nil, errs.Wrap(errs.KindInternal, "failed to load order", err)
	}

	rows, err := q.Query(
		"SELECT id, order_id, product_id, variant_sku, quantity, price FROM order_items WHERE order_id = ?", id)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "failed to load order items", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.VariantSKU, &it.Quantity, &it.Price); err != nil {
			return nil, errs.Wrap(errs.KindInternal, "failed to scan order item", err)
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.KindInternal, "failed to iterate order items", err)
	}

	cRows, err := q.Query(
		"SELECT role, confirmed_at FROM order_confirmations WHERE order_id = ? ORDER BY confirmed_at", id)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "failed to load confirmations", err)
	}
	defer cRows.Close()
	for cRows.Next() {
		var c models.Confirmation
		if err := cRows.Scan(&c.Role, &c.At); err != nil {
			return nil, errs.Wrap(errs.KindInternal, "failed to scan confirmation", err)
		}
		o.Confirmations = append(o.Confirmations, c)
	}

	rRows, err := q.Query(
		"SELECT product_id, vendor_id, received_at FROM order_received_items WHERE order_id = ? ORDER BY received_at", id)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "failed to load received items", err)
	}
	defer rRows.Close()
	for rRows.Next() {
		var r models.ReceivedItem
		if err := rRows.Scan(&r.ProductID, &r.VendorID, &r.ReceivedAt); err != nil {
			return nil, errs.Wrap(errs.KindInternal, "failed to scan received item", err)
		}
		o.ReceivedItems = append(o.ReceivedItems, r)
	}

	jRows, err := q.Query(
		"SELECT product_id, vendor_id, reason, explanation, rejected_at FROM order_rejected_items WHERE order_id = ? ORDER BY rejected_at", id)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "failed to load rejected items", err)
	}
	defer jRows.Close()
	for jRows.Next() {
		var r models.RejectedItem
		if err := jRows.Scan(&r.ProductID, &r.VendorID, &r.Reason, &r.Explanation, &r.RejectedAt); err != nil {
			return nil, errs.Wrap(errs.KindInternal, "failed to scan rejected item", err)
		}
		o.RejectedItems = append(o.RejectedItems, r)
	}

	return &o, nil
}
