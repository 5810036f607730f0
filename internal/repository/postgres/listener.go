package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"quill/internal/domain"
	"quill/internal/domain/models"
)

// SubscribeOrdered opens a live feed over Postgres LISTEN/NOTIFY. A trigger
// on the messages table (see db/schema.sql) notifies the prefixed channel
// with the chat id as payload; on every matching notification the full
// ordered log is re-read and delivered as one snapshot.
//
// Ordering correctness comes from the re-read (ORDER BY created_at, seq),
// not from notification delivery order, so consumers always see a monotonic,
// duplicate-free view. When the consumer lags, intermediate snapshots are
// dropped in favor of the latest one.
func (r *PostgresMessageRepository) SubscribeOrdered(ctx context.Context, userID, chatID string) (<-chan []models.Message, error) {
	// Verify access before holding a connection open
	if _, err := r.ListOrdered(ctx, userID, chatID); err != nil {
		return nil, err
	}

	// A LISTEN holds its connection for the life of the subscription, so
	// it gets a dedicated one from the pool.
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire listener connection: %w", domain.ErrStoreSubscription)
	}

	channel := r.tables.MessageChannel()
	if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen %s: %w", channel, domain.ErrStoreSubscription)
	}

	updates := make(chan []models.Message, 1)
	go r.pump(ctx, conn, userID, chatID, updates)

	return updates, nil
}

// pump forwards ordered snapshots until ctx is cancelled.
func (r *PostgresMessageRepository) pump(ctx context.Context, conn *pgxpool.Conn, userID, chatID string, updates chan []models.Message) {
	defer close(updates)
	defer conn.Release()

	// Initial snapshot so subscribers render immediately
	if !r.deliver(ctx, userID, chatID, updates) {
		return
	}

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			// ctx cancelled or connection lost; the feed ends here
			if ctx.Err() == nil {
				r.logger.Warn("message feed closed",
					"chat_id", chatID,
					"error", err,
				)
			}
			return
		}

		// The channel carries every chat's changes; only re-read for ours
		if notification.Payload != chatID {
			continue
		}

		if !r.deliver(ctx, userID, chatID, updates) {
			return
		}
	}
}

// deliver re-reads the ordered log and pushes it, replacing any undelivered
// snapshot. Returns false when the feed should stop. The pump goroutine is
// the channel's only sender, so draining the one-slot buffer cannot race.
func (r *PostgresMessageRepository) deliver(ctx context.Context, userID, chatID string, updates chan []models.Message) bool {
	messages, err := r.ListOrdered(ctx, userID, chatID)
	if err != nil {
		r.logger.Error("message feed re-read failed",
			"chat_id", chatID,
			"error", err,
		)
		return false
	}

	select {
	case updates <- messages:
	default:
		// Drop the stale undelivered snapshot, then push the fresh one
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- messages:
		case <-ctx.Done():
			return false
		}
	}
	return true
}
