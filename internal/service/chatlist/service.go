package chatlist

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"quill/internal/config"
	"quill/internal/domain"
	"quill/internal/domain/models"
	"quill/internal/domain/repositories"
	"quill/internal/domain/services"
)

// Service implements the ChatListService interface
// Handles only chat session management (CRUD operations)
type Service struct {
	chatRepo  repositories.ChatRepository
	txManager repositories.TransactionManager
	logger    *slog.Logger
}

// NewService creates a new chat list service
func NewService(chatRepo repositories.ChatRepository, txManager repositories.TransactionManager, logger *slog.Logger) services.ChatListService {
	return &Service{
		chatRepo:  chatRepo,
		txManager: txManager,
		logger:    logger,
	}
}

// CreateChat creates a new chat session
func (s *Service) CreateChat(ctx context.Context, req *services.CreateChatRequest) (*models.Chat, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("create chat: %w", domain.ErrUnauthorized)
	}
	if err := s.validateCreateChatRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	// Trim and normalize title; an untitled chat gets a dated default.
	// The short random suffix keeps rapid untitled creates from tripping
	// the per-user title uniqueness constraint.
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = fmt.Sprintf("New chat %s %s",
			time.Now().Format("Jan 2 15:04"),
			uuid.NewString()[:8])
	}

	chat := &models.Chat{
		UserID:    req.UserID,
		Title:     title,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := s.chatRepo.CreateChat(ctx, chat); err != nil {
		return nil, err
	}

	s.logger.Info("chat created",
		"id", chat.ID,
		"title", chat.Title,
		"user_id", req.UserID,
	)

	return chat, nil
}

// GetChat retrieves a chat by ID
func (s *Service) GetChat(ctx context.Context, chatID, userID string) (*models.Chat, error) {
	if userID == "" {
		return nil, fmt.Errorf("get chat: %w", domain.ErrUnauthorized)
	}
	return s.chatRepo.GetChat(ctx, chatID, userID)
}

// ListChats retrieves all chats for a user, most recent first
func (s *Service) ListChats(ctx context.Context, userID string) ([]models.Chat, error) {
	if userID == "" {
		return nil, fmt.Errorf("list chats: %w", domain.ErrUnauthorized)
	}
	return s.chatRepo.ListChats(ctx, userID)
}

// RenameChat updates a chat's title
func (s *Service) RenameChat(ctx context.Context, chatID, userID string, req *services.RenameChatRequest) (*models.Chat, error) {
	if userID == "" {
		return nil, fmt.Errorf("rename chat: %w", domain.ErrUnauthorized)
	}
	if err := s.validateRenameChatRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	// Read-modify-write in one transaction so concurrent renames don't
	// interleave
	var chat *models.Chat
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		existing, err := s.chatRepo.GetChat(txCtx, chatID, userID)
		if err != nil {
			return err
		}

		existing.Title = strings.TrimSpace(req.Title)
		existing.UpdatedAt = time.Now()

		if err := s.chatRepo.UpdateChat(txCtx, existing); err != nil {
			return err
		}
		chat = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("chat renamed",
		"id", chat.ID,
		"title", chat.Title,
		"user_id", userID,
	)

	return chat, nil
}

// DeleteChat deletes a chat; the store cascade-deletes its message log
func (s *Service) DeleteChat(ctx context.Context, chatID, userID string) error {
	if userID == "" {
		return fmt.Errorf("delete chat: %w", domain.ErrUnauthorized)
	}

	if err := s.chatRepo.DeleteChat(ctx, chatID, userID); err != nil {
		return err
	}

	s.logger.Info("chat deleted",
		"id", chatID,
		"user_id", userID,
	)

	return nil
}

// Validation methods

func (s *Service) validateCreateChatRequest(req *services.CreateChatRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Title,
			validation.Length(0, config.MaxChatTitleLength),
		),
	)
}

func (s *Service) validateRenameChatRequest(req *services.RenameChatRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Title,
			validation.Required,
			validation.Length(1, config.MaxChatTitleLength),
		),
	)
}
