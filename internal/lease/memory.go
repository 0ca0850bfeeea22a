package lease

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	holder    string
	token     string
	expiresAt time.Time
}

// MemoryStore keeps leases in a mutex-guarded map. Used by tests and
// single-node deployments.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry

	// Now is swappable so expiry can be tested without sleeping.
	Now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		Now:     time.Now,
	}
}

func (m *MemoryStore) TryAcquire(_ context.Context, key, holder, token string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.Now()
	// Token check-and-set: a live lease only re-grants to its own token.
	// Matching on holder alone would let two concurrent requests from the
	// same user both claim the key.
	cur, held := m.entries[key]
	if held && cur.expiresAt.After(now) && cur.token != token {
		return false, nil
	}

	m.entries[key] = memoryEntry{
		holder:    holder,
		token:     token,
		expiresAt: now.Add(ttl),
	}
	return true, nil
}

func (m *MemoryStore) Release(_ context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cur, held := m.entries[key]; held && cur.token == token {
		delete(m.entries, key)
	}
	return nil
}

func (m *MemoryStore) ReapExpired(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.Now()
	var reaped int
	for key, cur := range m.entries {
		if !cur.expiresAt.After(now) {
			delete(m.entries, key)
			reaped++
		}
	}
	return reaped, nil
}
