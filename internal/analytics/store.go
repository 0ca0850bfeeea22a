package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// SQLStore increments the 'vendor_stats' row in place.
type SQLStore struct {
	DB *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{DB: db}
}

func (s *SQLStore) IncrementVendorTotals(ctx context.Context, vendorID int64, d Delta) error {
	// Single arithmetic UPDATE; the upsert keeps first-sale vendors from
	// needing a separate bootstrap write.
	query := `
		INSERT INTO vendor_stats (vendor_id, total_sales, total_revenue, updated_at)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			total_sales = total_sales + VALUES(total_sales),
			total_revenue = total_revenue + VALUES(total_revenue),
			updated_at = VALUES(updated_at)`

	_, err := s.DB.ExecContext(ctx, query, vendorID, d.Sales, d.Revenue, time.Now())
	if err != nil {
		return fmt.Errorf("failed to increment vendor totals: %w", err)
	}
	return nil
}

// MemoryStore accumulates totals in a mutex-guarded map and records every
// increment call. Used by tests.
type MemoryStore struct {
	mu     sync.Mutex
	totals map[int64]Delta
	calls  []int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{totals: make(map[int64]Delta)}
}

func (m *MemoryStore) IncrementVendorTotals(_ context.Context, vendorID int64, d Delta) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.totals[vendorID]
	t.Sales += d.Sales
	t.Revenue += d.Revenue
	m.totals[vendorID] = t
	m.calls = append(m.calls, vendorID)
	return nil
}

// Totals returns the accumulated delta for a vendor.
func (m *MemoryStore) Totals(vendorID int64) Delta {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totals[vendorID]
}

// Calls returns the vendor ids in increment-call order.
func (m *MemoryStore) Calls() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.calls...)
}
