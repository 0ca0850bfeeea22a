package orders

import (
	"context"
	"sync"

	"github.com/sellora/sellora-api/internal/errs"
	"github.com/sellora/sellora-api/internal/models"
)

// MemoryStore keeps orders in a mutex-guarded map. Mutate runs the
// callback under the lock, so per-order writes are serialized the same
// way the SQL store serializes them with row locks. Used by tests.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	orders map[int64]*models.Order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[int64]*models.Order)}
}

func (m *MemoryStore) Create(_ context.Context, o *models.Order) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	cp := cloneOrder(o)
	cp.ID = m.nextID
	m.orders[cp.ID] = cp
	return cp.ID, nil
}

func (m *MemoryStore) Get(_ context.Context, id int64) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, errs.E(errs.KindNotFound, "order %d not found", id)
	}
	return cloneOrder(o), nil
}

func (m *MemoryStore) Mutate(_ context.Context, id int64, fn func(*models.Order) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return errs.E(errs.KindNotFound, "order %d not found", id)
	}

	// Work on a copy; commit only when the callback succeeds, so a failed
	// mutation leaves no partial write.
	cp := cloneOrder(o)
	if err := fn(cp); err != nil {
		return err
	}
	m.orders[id] = cp
	return nil
}

func cloneOrder(o *models.Order) *models.Order {
	cp := *o
	cp.Items = append([]models.OrderItem(nil), o.Items...)
	cp.Confirmations = append([]models.Confirmation(nil), o.Confirmations...)
	cp.ReceivedItems = append([]models.ReceivedItem(nil), o.ReceivedItems...)
	cp.RejectedItems = append([]models.RejectedItem(nil), o.RejectedItems...)
	return &cp
}
