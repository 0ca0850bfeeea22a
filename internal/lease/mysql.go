package lease

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLStore backs leases with the shared 'resource_leases' table so every
// API instance sees the same locks. The row is claimed inside a
// transaction with SELECT ... FOR UPDATE, which gives us the
// check-and-set semantics Acquire requires.
type SQLStore struct {
	DB *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{DB: db}
}

func (s *SQLStore) TryAcquire(ctx context.Context, key, holder, token string, ttl time.Duration) (bool, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to start lease transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()

	var curToken string
	var curExpires time.Time
	err = tx.QueryRow(
		"SELECT token, expires_at FROM resource_leases WHERE resource_key = ? FOR UPDATE",
		key,
	).Scan(&curToken, &curExpires)

	switch {
	case err == sql.ErrNoRows:
		_, err = tx.Exec(`
			INSERT INTO resource_leases (resource_key, holder_id, token, expires_at, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			key, holder, token, now.Add(ttl), now)
		if err != nil {
			return false, fmt.Errorf("failed to insert lease: %w", err)
		}
	case err != nil:
		return false, fmt.Errorf("failed to read lease: %w", err)
	default:
		// Deny while a live lease carries a different token. Comparing
		// tokens, not holders, keeps two concurrent requests from the
		// same user from both claiming the key.
		if curExpires.After(now) && curToken != token {
			return false, nil
		}
		_, err = tx.Exec(`
			UPDATE resource_leases
			SET holder_id = ?, token = ?, expires_at = ?
			WHERE resource_key = ?`,
			holder, token, now.Add(ttl), key)
		if err != nil {
			return false, fmt.Errorf("failed to update lease: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit lease: %w", err)
	}
	return true, nil
}

func (s *SQLStore) Release(ctx context.Context, key, token string) error {
	// Scoped to the token: a lease that expired and was re-granted —
	// even to the same user — must not be clobbered. Zero rows affected
	// is fine.
	_, err := s.DB.ExecContext(ctx,
		"DELETE FROM resource_leases WHERE resource_key = ? AND token = ?",
		key, token)
	if err != nil {
		return fmt.Errorf("failed to release lease: %w", err)
	}
	return nil
}

func (s *SQLStore) ReapExpired(ctx context.Context) (int, error) {
	res, err := s.DB.ExecContext(ctx,
		"DELETE FROM resource_leases WHERE expires_at <= ?", time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to reap leases: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
