package repositories

import (
	"context"

	"quill/internal/domain/models"
)

// ChatRepository defines data access for chat sessions.
// All queries are user-scoped: a chat is only visible to its owner.
type ChatRepository interface {
	// CreateChat creates a new chat session, filling in the assigned id
	// and server timestamps. Returns a ConflictError if the user already
	// has a chat with the same title.
	CreateChat(ctx context.Context, chat *models.Chat) error

	// GetChat retrieves a chat by ID.
	// Returns domain.ErrNotFound if absent or owned by another user.
	GetChat(ctx context.Context, chatID, userID string) (*models.Chat, error)

	// ListChats retrieves all chats for a user, most recently updated first.
	ListChats(ctx context.Context, userID string) ([]models.Chat, error)

	// UpdateChat updates a chat's title.
	UpdateChat(ctx context.Context, chat *models.Chat) error

	// DeleteChat hard-deletes a chat; the database cascades to its messages.
	DeleteChat(ctx context.Context, chatID, userID string) error

	// Touch bumps updated_at so the chat list sorts by recent activity.
	Touch(ctx context.Context, chatID, userID string) error
}
