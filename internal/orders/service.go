// Package orders owns the order aggregate: creation validation, the two
// monotonic status ladders, the warehouse receipt/rejection ledgers and
// the post-creation analytics propagation.
package orders

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sellora/sellora-api/internal/analytics"
	"github.com/sellora/sellora-api/internal/models"
)

// Store persists order documents. Mutate must give the callback exclusive
// access to the order (SELECT ... FOR UPDATE in MySQL, a mutex in memory)
// so concurrent transitions on one order serialize at the storage layer.
type Store interface {
	Create(ctx context.Context, o *models.Order) (int64, error)
	Get(ctx context.Context, id int64) (*models.Order, error)
	Mutate(ctx context.Context, id int64, fn func(*models.Order) error) error
}

// Service coordinates the aggregate and its side effects.
type Service struct {
	store     Store
	resolver  analytics.VendorResolver
	analytics *analytics.Aggregator

	wg sync.WaitGroup
}

func NewService(store Store, resolver analytics.VendorResolver, agg *analytics.Aggregator) *Service {
	return &Service{store: store, resolver: resolver, analytics: agg}
}

// Create validates and persists a brand-new order, then propagates the
// per-vendor sales deltas asynchronously. The propagation runs exactly
// once, only on first persistence, never on updates; failures there are
// logged and never fail the creation.
func (s *Service) Create(ctx context.Context, userID int64, o *models.Order) (*models.Order, error) {
	o.UserID = userID
	o.Status = models.OrderStatusPending
	o.Shipping.Status = models.ShippingStatusPending
	if o.PaymentRef == "" {
		o.PaymentRef = uuid.New().String()
	}
	now := time.Now()
	o.CreatedAt = now
	o.UpdatedAt = now

	if err := o.Validate(); err != nil {
		return nil, err
	}

	id, err := s.store.Create(ctx, o)
	if err != nil {
		return nil, err
	}
	o.ID = id

	items := append([]models.OrderItem(nil), o.Items...)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// Detached from the request: the order is already committed.
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		deltas := analytics.CollapseOrder(bg, items, s.resolver)
		s.analytics.ApplyOrderDeltas(bg, deltas)
	}()

	return o, nil
}

// Wait blocks until in-flight side effects finish. Called on shutdown.
func (s *Service) Wait() { s.wg.Wait() }

// Get loads an order.
func (s *Service) Get(ctx context.Context, id int64) (*models.Order, error) {
	return s.store.Get(ctx, id)
}

// UpdateStatus advances the order-level status.
func (s *Service) UpdateStatus(ctx context.Context, id int64, next models.OrderStatus) (*models.Order, error) {
	return s.mutate(ctx, id, func(o *models.Order) error {
		return o.ApplyStatus(next, time.Now())
	})
}

// UpdateShipping advances the shipping sub-state.
func (s *Service) UpdateShipping(ctx context.Context, id int64, u models.ShippingUpdate) (*models.Order, error) {
	return s.mutate(ctx, id, func(o *models.Order) error {
		return o.ApplyShipping(u, time.Now())
	})
}

// Confirm appends a buyer or courier acknowledgement.
func (s *Service) Confirm(ctx context.Context, id int64, role models.ConfirmRole) (*models.Order, error) {
	return s.mutate(ctx, id, func(o *models.Order) error {
		return o.AddConfirmation(role, time.Now())
	})
}

// ReceiveItem records a warehouse receipt for one (product, vendor) pair.
func (s *Service) ReceiveItem(ctx context.Context, id, productID, vendorID int64) (*models.Order, error) {
	return s.mutate(ctx, id, func(o *models.Order) error {
		return o.ApplyReceipt(productID, vendorID, time.Now())
	})
}

// RejectItem records a warehouse rejection for a previously received pair.
func (s *Service) RejectItem(ctx context.Context, id, productID, vendorID int64, reason, explanation string) (*models.Order, error) {
	return s.mutate(ctx, id, func(o *models.Order) error {
		return o.ApplyRejection(productID, vendorID, reason, explanation, time.Now())
	})
}

func (s *Service) mutate(ctx context.Context, id int64, fn func(*models.Order) error) (*models.Order, error) {
	if err := s.store.Mutate(ctx, id, fn); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

// ResolverFunc adapts a function to the analytics.VendorResolver
// interface.
type ResolverFunc func(ctx context.Context, productID int64) (int64, error)

func (f ResolverFunc) ResolveVendor(ctx context.Context, productID int64) (int64, error) {
	return f(ctx, productID)
}

var _ analytics.VendorResolver = ResolverFunc(nil)
