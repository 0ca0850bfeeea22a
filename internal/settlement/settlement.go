// Package settlement computes refund and payout eligibility. Everything
// here is a read-only predicate over order and issue state; nothing in
// this package advances a state machine.
package settlement

import (
	"time"

	"github.com/sellora/sellora-api/internal/models"
)

const (
	// RefundMinDays is the hard lower bound: refunds open 3 days after
	// delivery.
	RefundMinDays = 3

	// RefundWindowDays is the soft upper bound. It is reported by
	// RefundWindow but deliberately NOT enforced by RefundEligible; the
	// asymmetry is intentional and pinned by tests.
	RefundWindowDays = 30

	// PayoutMinDays is how long after delivery a vendor payout opens.
	PayoutMinDays = 7
)

// RefundEligible reports whether the order qualifies for a refund: the
// issue is resolved, at least RefundMinDays have passed since delivery,
// and the order has returned (rejected) items on record.
func RefundEligible(o *models.Order, issue *models.Issue, now time.Time) bool {
	if issue == nil || issue.Status != models.IssueStatusResolved {
		return false
	}
	if o.Shipping.DeliveredAt == nil {
		return false
	}
	if now.Before(o.Shipping.DeliveredAt.AddDate(0, 0, RefundMinDays)) {
		return false
	}
	return len(o.RejectedItems) > 0
}

// RefundWindow reports whether the 30-day refund window is still open and
// when it closes. Informational only: the refund-processing path checks
// RefundEligible, not the window.
func RefundWindow(o *models.Order, now time.Time) (open bool, closesAt time.Time) {
	if o.Shipping.DeliveredAt == nil {
		return false, time.Time{}
	}
	closesAt = o.Shipping.DeliveredAt.AddDate(0, 0, RefundWindowDays)
	return !now.After(closesAt), closesAt
}

// PayoutEligible reports whether a vendor payout may be requested for the
// order: shipping is delivered, PayoutMinDays have passed, and no prior
// payout request exists for this (order, vendor) pair.
func PayoutEligible(o *models.Order, hasPriorRequest bool, now time.Time) bool {
	if hasPriorRequest {
		return false
	}
	if o.Shipping.Status != models.ShippingStatusDelivered {
		return false
	}
	if o.Shipping.DeliveredAt == nil {
		return false
	}
	return !now.Before(o.Shipping.DeliveredAt.AddDate(0, 0, PayoutMinDays))
}
