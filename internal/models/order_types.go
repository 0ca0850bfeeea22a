package models

import (
	"time"

	"github.com/sellora/sellora-api/internal/errs"
)

// OrderStatus is the order-level lifecycle, distinct from shipping status.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// orderStatusRank orders the non-terminal states. A transition is legal
// only if the target rank is >= the current rank; cancellation is legal
// from any non-cancelled state and is terminal.
var orderStatusRank = map[OrderStatus]int{
	OrderStatusPending:    0,
	OrderStatusProcessing: 1,
	OrderStatusDelivered:  2,
}

// CanTransitionTo validates the monotonic order-status rule.
func (s OrderStatus) CanTransitionTo(next OrderStatus) error {
	if s == OrderStatusCancelled {
		return errs.E(errs.KindConflict, "order is cancelled; no further transitions allowed")
	}
	if next == OrderStatusCancelled {
		return nil
	}
	cur, ok := orderStatusRank[s]
	if !ok {
		return errs.E(errs.KindValidation, "unknown order status %q", s)
	}
	nxt, ok := orderStatusRank[next]
	if !ok {
		return errs.E(errs.KindValidation, "unknown order status %q", next)
	}
	if nxt < cur {
		return errs.E(errs.KindConflict, "cannot move order status backwards from %q to %q", s, next)
	}
	return nil
}

// ShippingStatus is the shipping sub-state. It has its own ladder,
// independent of the order-level status.
type ShippingStatus string

const (
	ShippingStatusPending            ShippingStatus = "pending"
	ShippingStatusPaid               ShippingStatus = "paid"
	ShippingStatusShippedToWarehouse ShippingStatus = "shippedToWarehouse"
	ShippingStatusConfirmed          ShippingStatus = "confirmed"
	ShippingStatusShipped            ShippingStatus = "shipped"
	ShippingStatusDelivered          ShippingStatus = "delivered"
	ShippingStatusReturned           ShippingStatus = "returned"
	ShippingStatusCancelled          ShippingStatus = "cancelled"
	ShippingStatusRefunded           ShippingStatus = "refunded"
)

var shippingStatusRank = map[ShippingStatus]int{
	ShippingStatusPending:            0,
	ShippingStatusPaid:               1,
	ShippingStatusShippedToWarehouse: 2,
	ShippingStatusConfirmed:          3,
	ShippingStatusShipped:            4,
	ShippingStatusDelivered:          5,
	ShippingStatusReturned:           6,
}

// IsTerminal reports whether the shipping state absorbs all transitions.
func (s ShippingStatus) IsTerminal() bool {
	return s == ShippingStatusCancelled || s == ShippingStatusRefunded
}

// RequiresCarrier reports whether carrier and tracking number become
// mandatory at this state.
func (s ShippingStatus) RequiresCarrier() bool {
	switch s {
	case ShippingStatusShipped, ShippingStatusDelivered, ShippingStatusReturned:
		return true
	}
	return false
}

// CanTransitionTo validates the monotonic shipping-status rule.
func (s ShippingStatus) CanTransitionTo(next ShippingStatus) error {
	if s.IsTerminal() {
		return errs.E(errs.KindConflict, "shipping is %q; no further transitions allowed", s)
	}
	if next.IsTerminal() {
		return nil
	}
	cur, ok := shippingStatusRank[s]
	if !ok {
		return errs.E(errs.KindValidation, "unknown shipping status %q", s)
	}
	nxt, ok := shippingStatusRank[next]
	if !ok {
		return errs.E(errs.KindValidation, "unknown shipping status %q", next)
	}
	if nxt < cur {
		return errs.E(errs.KindConflict, "cannot move shipping status backwards from %q to %q", s, next)
	}
	return nil
}

// Carrier is the shipping carrier enum.
type Carrier string

const (
	CarrierDHL     Carrier = "dhl"
	CarrierFedEx   Carrier = "fedex"
	CarrierUPS     Carrier = "ups"
	CarrierPosLaju Carrier = "poslaju"
	CarrierJNT     Carrier = "jnt"
)

// ValidCarrier reports whether the value is a known carrier.
func ValidCarrier(c Carrier) bool {
	switch c {
	case CarrierDHL, CarrierFedEx, CarrierUPS, CarrierPosLaju, CarrierJNT:
		return true
	}
	return false
}

// ShippingAddress is validated with the shared validator instance, see
// validate.go for the postalcode rule.
type ShippingAddress struct {
	Street     string `json:"street" db:"street" validate:"required"`
	City       string `json:"city" db:"city" validate:"required"`
	State      string `json:"state" db:"state" validate:"required"`
	Country    string `json:"country" db:"country" validate:"required"`
	PostalCode string `json:"postalCode" db:"postal_code" validate:"required,postalcode"`
}

// ShippingInfo is the shipping sub-document of an order.
type ShippingInfo struct {
	Address           ShippingAddress `json:"address"`
	Carrier           Carrier         `json:"carrier,omitempty" db:"carrier"`
	TrackingNumber    string          `json:"trackingNumber,omitempty" db:"tracking_number"`
	Status            ShippingStatus  `json:"status" db:"shipping_status"`
	EstimatedDelivery *time.Time      `json:"estimatedDelivery,omitempty" db:"estimated_delivery"`
	DeliveredAt       *time.Time      `json:"deliveredAt,omitempty" db:"delivered_at"`
	DeliveryMethod    string          `json:"deliveryMethod" db:"delivery_method"`
}

// Item quantity bounds enforced at creation.
const (
	MinItemQuantity = 1
	MaxItemQuantity = 100
)

// OrderItem is a line item snapshot taken at checkout.
type OrderItem struct {
	ID         int64   `json:"id" db:"id"`
	OrderID    int64   `json:"orderId" db:"order_id"`
	ProductID  int64   `json:"productId" db:"product_id"`
	VariantSKU string  `json:"variantSku" db:"variant_sku"`
	Quantity   int     `json:"quantity" db:"quantity"`
	Price      float64 `json:"price" db:"price"`
}

// ConfirmRole identifies who acknowledged the order.
type ConfirmRole string

const (
	ConfirmRoleBuyer   ConfirmRole = "buyer"
	ConfirmRoleCourier ConfirmRole = "courier"
)

// Confirmation is an independent acknowledgement, not a state transition.
type Confirmation struct {
	Role ConfirmRole `json:"role" db:"role"`
	At   time.Time   `json:"at" db:"confirmed_at"`
}

// ReceivedItem records a warehouse receipt for one (product, vendor) pair.
// The ledger is append-only and unique per pair.
type ReceivedItem struct {
	ProductID  int64     `json:"productId" db:"product_id"`
	VendorID   int64     `json:"vendorId" db:"vendor_id"`
	ReceivedAt time.Time `json:"receivedAt" db:"received_at"`
}

// RejectedItem records a warehouse rejection. It requires a prior matching
// receipt for the same pair.
type RejectedItem struct {
	ProductID   int64     `json:"productId" db:"product_id"`
	VendorID    int64     `json:"vendorId" db:"vendor_id"`
	Reason      string    `json:"reason" db:"reason"`
	Explanation string    `json:"explanation,omitempty" db:"explanation"`
	RejectedAt  time.Time `json:"rejectedAt" db:"rejected_at"`
}

// Order is the aggregate root. Orders are never hard-deleted; terminal
// states are retained for audit and refund computation.
type Order struct {
	ID         int64        `json:"id" db:"id"`
	UserID     int64        `json:"userId" db:"user_id"`
	Items      []OrderItem  `json:"items"`
	PaymentRef string       `json:"paymentRef" db:"payment_ref"`
	Shipping   ShippingInfo `json:"shipping"`
	Status     OrderStatus  `json:"status" db:"status"`

	Confirmations []Confirmation `json:"confirmations,omitempty"`
	ReceivedItems []ReceivedItem `json:"receivedItems,omitempty"`
	RejectedItems []RejectedItem `json:"rejectedItems,omitempty"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Validate checks the creation preconditions. It must pass before the
// order is persisted; no partial order is ever stored.
func (o *Order) Validate() error {
	if len(o.Items) == 0 {
		return errs.E(errs.KindValidation, "order must contain at least one item")
	}
	for i, it := range o.Items {
		if it.Quantity < MinItemQuantity || it.Quantity > MaxItemQuantity {
			return errs.E(errs.KindValidation,
				"item %d: quantity %d out of bounds [%d, %d]", i, it.Quantity, MinItemQuantity, MaxItemQuantity)
		}
		if it.Price <= 0 {
			return errs.E(errs.KindValidation, "item %d: price must be positive", i)
		}
		if it.ProductID == 0 {
			return errs.E(errs.KindValidation, "item %d: missing product id", i)
		}
		if it.VariantSKU == "" {
			return errs.E(errs.KindValidation, "item %d: missing variant sku", i)
		}
	}
	if err := Validate().Struct(o.Shipping.Address); err != nil {
		return errs.Wrap(errs.KindValidation, "invalid shipping address", err)
	}
	return nil
}

// Total is the sum of price*quantity over all items.
func (o *Order) Total() float64 {
	var total float64
	for _, it := range o.Items {
		total += it.Price * float64(it.Quantity)
	}
	return total
}

// ApplyStatus advances the order-level status under the monotonic rule.
func (o *Order) ApplyStatus(next OrderStatus, now time.Time) error {
	if err := o.Status.CanTransitionTo(next); err != nil {
		return err
	}
	o.Status = next
	o.UpdatedAt = now
	return nil
}

// ShippingUpdate carries the fields a shipping transition may set.
type ShippingUpdate struct {
	Status            ShippingStatus
	Carrier           Carrier
	TrackingNumber    string
	EstimatedDelivery *time.Time
}

// ApplyShipping advances the shipping sub-state and enforces the
// conditional carrier/tracking/ETA requirements.
func (o *Order) ApplyShipping(u ShippingUpdate, now time.Time) error {
	if err := o.Shipping.Status.CanTransitionTo(u.Status); err != nil {
		return err
	}

	if u.Carrier != "" {
		if !ValidCarrier(u.Carrier) {
			return errs.E(errs.KindValidation, "unknown carrier %q", u.Carrier)
		}
		o.Shipping.Carrier = u.Carrier
	}
	if u.TrackingNumber != "" {
		if err := Validate().Var(u.TrackingNumber, "tracking"); err != nil {
			return errs.E(errs.KindValidation, "tracking number %q has invalid format", u.TrackingNumber)
		}
		o.Shipping.TrackingNumber = u.TrackingNumber
	}
	if u.EstimatedDelivery != nil {
		o.Shipping.EstimatedDelivery = u.EstimatedDelivery
	}

	if u.Status.RequiresCarrier() {
		if o.Shipping.Carrier == "" {
			return errs.E(errs.KindValidation, "carrier is required once shipping is %q", u.Status)
		}
		if o.Shipping.TrackingNumber == "" {
			return errs.E(errs.KindValidation, "tracking number is required once shipping is %q", u.Status)
		}
	}
	if u.Status == ShippingStatusShipped {
		if o.Shipping.EstimatedDelivery == nil || !o.Shipping.EstimatedDelivery.After(now) {
			return errs.E(errs.KindValidation, "estimated delivery must be in the future when shipping")
		}
	}
	if u.Status == ShippingStatusDelivered && o.Shipping.DeliveredAt == nil {
		t := now
		o.Shipping.DeliveredAt = &t
	}

	o.Shipping.Status = u.Status
	o.UpdatedAt = now
	return nil
}

// AddConfirmation appends an acknowledgement for the given role.
func (o *Order) AddConfirmation(role ConfirmRole, now time.Time) error {
	if role != ConfirmRoleBuyer && role != ConfirmRoleCourier {
		return errs.E(errs.KindValidation, "unknown confirmation role %q", role)
	}
	o.Confirmations = append(o.Confirmations, Confirmation{Role: role, At: now})
	o.UpdatedAt = now
	return nil
}

func (o *Order) hasReceipt(productID, vendorID int64) bool {
	for _, r := range o.ReceivedItems {
		if r.ProductID == productID && r.VendorID == vendorID {
			return true
		}
	}
	return false
}

func (o *Order) hasRejection(productID, vendorID int64) bool {
	for _, r := range o.RejectedItems {
		if r.ProductID == productID && r.VendorID == vendorID {
			return true
		}
	}
	return false
}

// ApplyReceipt appends a warehouse receipt. A duplicate pair is a
// Conflict, never an overwrite.
func (o *Order) ApplyReceipt(productID, vendorID int64, now time.Time) error {
	if o.hasReceipt(productID, vendorID) {
		return errs.E(errs.KindConflict,
			"item (product %d, vendor %d) already received", productID, vendorID)
	}
	o.ReceivedItems = append(o.ReceivedItems, ReceivedItem{
		ProductID:  productID,
		VendorID:   vendorID,
		ReceivedAt: now,
	})
	o.UpdatedAt = now
	return nil
}

// ApplyRejection appends a warehouse rejection. The pair must have a prior
// receipt and must not already be rejected.
func (o *Order) ApplyRejection(productID, vendorID int64, reason, explanation string, now time.Time) error {
	if !o.hasReceipt(productID, vendorID) {
		return errs.E(errs.KindConflict,
			"item (product %d, vendor %d) cannot be rejected before being received", productID, vendorID)
	}
	if o.hasRejection(productID, vendorID) {
		return errs.E(errs.KindConflict,
			"item (product %d, vendor %d) already rejected", productID, vendorID)
	}
	if reason == "" {
		return errs.E(errs.KindValidation, "rejection reason is required")
	}
	o.RejectedItems = append(o.RejectedItems, RejectedItem{
		ProductID:   productID,
		VendorID:    vendorID,
		Reason:      reason,
		Explanation: explanation,
		RejectedAt:  now,
	})
	o.UpdatedAt = now
	return nil
}
