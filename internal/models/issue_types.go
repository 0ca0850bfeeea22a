package models

import "time"

// IssueStatus is the state of a buyer-raised issue. Issues are owned by
// the dispute subsystem; the settlement gate only reads them.
type IssueStatus string

const (
	IssueStatusOpen     IssueStatus = "open"
	IssueStatusInReview IssueStatus = "in_review"
	IssueStatusResolved IssueStatus = "resolved"
	IssueStatusRejected IssueStatus = "rejected"
)

// Issue is the model for the 'issues' table.
type Issue struct {
	ID        int64       `json:"id" db:"id"`
	OrderID   int64       `json:"orderId" db:"order_id"`
	UserID    int64       `json:"userId" db:"user_id"`
	Status    IssueStatus `json:"status" db:"status"`
	Subject   string      `json:"subject" db:"subject"`
	CreatedAt time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time   `json:"updatedAt" db:"updated_at"`
}

// PayoutRequest is the model for the 'payout_requests' table. Its
// existence for an (order, vendor) pair blocks further payout
// eligibility for that pair.
type PayoutRequest struct {
	ID          int64     `json:"id" db:"id"`
	OrderID     int64     `json:"orderId" db:"order_id"`
	VendorID    int64     `json:"vendorId" db:"vendor_id"`
	Status      string    `json:"status" db:"status"`
	RequestedAt time.Time `json:"requestedAt" db:"requested_at"`
}
