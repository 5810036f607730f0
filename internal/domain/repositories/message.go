package repositories

import (
	"context"

	"quill/internal/domain/models"
)

// MessageRepository is the message store adapter contract: an ordered,
// append-only message log per (user, chat) with a live change feed.
type MessageRepository interface {
	// Append persists a message, filling in the assigned id and the
	// server-assigned creation timestamp. Transport or permission
	// failures map to domain.ErrStoreWrite; an unknown chat maps to
	// domain.ErrNotFound.
	Append(ctx context.Context, userID string, msg *models.Message) error

	// ListOrdered returns the chat's full message log ordered by creation
	// time ascending, insertion sequence as tiebreak, so the total order
	// matches write order.
	ListOrdered(ctx context.Context, userID, chatID string) ([]models.Message, error)

	// SubscribeOrdered opens a live feed for the chat's message log. Each
	// delivery is a complete ordered snapshot as of a change, so
	// consumers see a monotonic, duplicate-free view regardless of
	// notification timing. The feed closes when ctx is cancelled.
	// Returns domain.ErrStoreSubscription if the underlying channel
	// cannot be established.
	SubscribeOrdered(ctx context.Context, userID, chatID string) (<-chan []models.Message, error)
}
