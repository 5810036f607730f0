package services

import (
	"context"

	"quill/internal/domain/models"
)

// ChatListService defines the business logic for chat session management.
// Thin CRUD over the chat repository; the message log itself is owned by
// the SessionController.
type ChatListService interface {
	// CreateChat creates a new chat session for the user
	CreateChat(ctx context.Context, req *CreateChatRequest) (*models.Chat, error)

	// GetChat retrieves a chat by ID, enforcing ownership
	GetChat(ctx context.Context, chatID, userID string) (*models.Chat, error)

	// ListChats retrieves all chats for a user, most recent first
	ListChats(ctx context.Context, userID string) ([]models.Chat, error)

	// RenameChat updates a chat's title
	RenameChat(ctx context.Context, chatID, userID string, req *RenameChatRequest) (*models.Chat, error)

	// DeleteChat deletes a chat and cascade-deletes its message log
	DeleteChat(ctx context.Context, chatID, userID string) error
}

// CreateChatRequest is the DTO for creating a new chat
type CreateChatRequest struct {
	UserID string `json:"-"` // Set by handler from auth context
	Title  string `json:"title"`
}

// RenameChatRequest is the DTO for renaming a chat
type RenameChatRequest struct {
	Title string `json:"title"`
}
