package repository

import (
	"context"
	"fmt"
	"time"

	"wagernotify/database"
	"wagernotify/events"
)

// ReceiptRepository stores idempotency keys for delivered events
type ReceiptRepository struct {
	q queryable
}

// NewReceiptRepository creates a new receipt repository
func NewReceiptRepository(db *database.DB) *ReceiptRepository {
	return &ReceiptRepository{q: db.Pool}
}

// Claim inserts the key and reports whether it was new
func (r *ReceiptRepository) Claim(ctx context.Context, key string, eventType events.EventType) (bool, error) {
	query := `
		INSERT INTO notification_receipts (idempotency_key, event_type)
		VALUES ($1, $2)
		ON CONFLICT (idempotency_key) DO NOTHING
	`

	tag, err := r.q.Exec(ctx, query, key, string(eventType))
	if err != nil {
		return false, fmt.Errorf("failed to claim receipt: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteOlderThan prunes receipts created before the cutoff
func (r *ReceiptRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM notification_receipts WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune receipts: %w", err)
	}
	return tag.RowsAffected(), nil
}
