// Package lease provides a time-bounded, single-holder mutual-exclusion
// lease used to serialize inventory mutations per product. The lock is
// advisory: every mutation call-site must acquire it before touching the
// ledger.
package lease

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sellora/sellora-api/internal/errs"
)

// DefaultTTL bounds a lease when the caller does not pick one.
const DefaultTTL = 10 * time.Second

// Lease is the capability token returned by a successful Acquire. The
// inventory ledger takes it as an argument; calling the ledger without
// one is a programming error, not a recoverable condition.
type Lease struct {
	Key       string
	Holder    string
	Token     string
	ExpiresAt time.Time
}

// Store is the swappable backing store for leases: an in-memory map with
// a mutex for tests, a shared database for production.
type Store interface {
	// TryAcquire atomically claims the key. It must use check-and-set
	// semantics on the token: while a lease is live, only a call
	// presenting the stored token is re-granted (that is the refresh
	// path). Every other caller is denied until the TTL elapses — holder
	// ids identify users, not requests, so two concurrent requests from
	// one user carry distinct tokens and the second must lose.
	TryAcquire(ctx context.Context, key, holder, token string, ttl time.Duration) (bool, error)

	// Release frees the key if the token still owns it. Releasing a
	// lease you no longer hold is a no-op, since it may have already
	// expired and been re-granted server-side.
	Release(ctx context.Context, key, token string) error

	// ReapExpired removes leases whose TTL has elapsed and returns how
	// many were removed. Expiry is also honored lazily by TryAcquire;
	// reaping just keeps the store small.
	ReapExpired(ctx context.Context) (int, error)
}

// Service grants and releases leases over a Store.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Acquire claims the resource key for the holder. Denial is surfaced as a
// LockContention error so callers can choose retry-with-backoff or
// fail-fast; it is never silently queued.
func (s *Service) Acquire(ctx context.Context, key, holder string, ttl time.Duration) (*Lease, error) {
	if key == "" || holder == "" {
		return nil, errs.E(errs.KindValidation, "lease key and holder are required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	token := uuid.New().String()
	ok, err := s.store.TryAcquire(ctx, key, holder, token, ttl)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "lease store failure", err)
	}
	if !ok {
		return nil, errs.E(errs.KindLockContention, "resource %q is locked by another holder", key)
	}

	return &Lease{
		Key:       key,
		Holder:    holder,
		Token:     token,
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

// Refresh extends a held lease's TTL. Token-checked: refreshing a lease
// that has expired and passed to someone else is denied, never silently
// re-granted.
func (s *Service) Refresh(ctx context.Context, l *Lease, ttl time.Duration) error {
	if l == nil {
		return errs.E(errs.KindValidation, "no lease to refresh")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	ok, err := s.store.TryAcquire(ctx, l.Key, l.Holder, l.Token, ttl)
	if err != nil {
		return errs.Wrap(errs.KindInternal, "lease store failure", err)
	}
	if !ok {
		return errs.E(errs.KindLockContention, "lease on %q was lost", l.Key)
	}
	l.ExpiresAt = time.Now().Add(ttl)
	return nil
}

// Release frees the lease. Idempotent: releasing an expired or already
// released lease is not an error.
func (s *Service) Release(ctx context.Context, l *Lease) error {
	if l == nil {
		return nil
	}
	if err := s.store.Release(ctx, l.Key, l.Token); err != nil {
		return errs.Wrap(errs.KindInternal, "lease store failure", err)
	}
	return nil
}

// ReapExpired delegates to the store. Called by the background janitor.
func (s *Service) ReapExpired(ctx context.Context) (int, error) {
	return s.store.ReapExpired(ctx)
}
