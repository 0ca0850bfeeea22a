// Package notify owns the notification sink and the realtime vendor hub.
// Both are fire-and-forget collaborators: a delivery failure is logged and
// must never roll back the operation that triggered it.
package notify

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Event is pushed to a vendor's connected session, if any.
type Event struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data,omitempty"`
	At   time.Time              `json:"at"`
}

// SQLSink persists notification records to the 'notifications' table.
type SQLSink struct {
	DB *sql.DB
}

func NewSQLSink(db *sql.DB) *SQLSink {
	return &SQLSink{DB: db}
}

// Enqueue inserts a notification row for the user. The payload is stored
// as a JSON blob alongside a human-readable message.
func (s *SQLSink) Enqueue(ctx context.Context, userID int64, kind string, payload map[string]interface{}) error {
	payloadJSON, _ := json.Marshal(payload)

	message := kind
	if m, ok := payload["message"].(string); ok {
		message = m
	}

	query := `
		INSERT INTO notifications
		(user_id, kind, message, payload, is_read, created_at)
		VALUES (?, ?, ?, ?, 0, ?)`

	_, err := s.DB.ExecContext(ctx, query, userID, kind, message, string(payloadJSON), time.Now())
	if err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}
	return nil
}
