package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"quill/internal/domain"
	"quill/internal/domain/models"
)

// PostgresMessageRepository implements the MessageRepository interface using
// PostgreSQL. Appends are authorized against the chats table in the same
// statement, so a message can never land in another user's chat.
type PostgresMessageRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewMessageRepository creates a new PostgresMessageRepository
func NewMessageRepository(config *RepositoryConfig) *PostgresMessageRepository {
	return &PostgresMessageRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Append persists a message. created_at is assigned by the database (now())
// so ordering never depends on client clocks; the INSERT ... SELECT form
// makes ownership of the chat a precondition of the write.
func (r *PostgresMessageRepository) Append(ctx context.Context, userID string, msg *models.Message) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (chat_id, role, body, author_id, author_display_name, author_avatar_url, created_at)
		SELECT c.id, $3, $4, $5, $6, $7, now()
		FROM %s c
		WHERE c.id = $1 AND c.user_id = $2
		RETURNING id, created_at
	`, r.tables.Messages, r.tables.Chats)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		msg.ChatID,
		userID,
		msg.Role,
		msg.Body,
		msg.AuthorID,
		msg.AuthorDisplayName,
		msg.AuthorAvatarURL,
	).Scan(&msg.ID, &msg.CreatedAt)

	if err != nil {
		if IsPgNoRowsError(err) {
			// The authorizing SELECT matched nothing: unknown chat or wrong owner
			return fmt.Errorf("chat %s: %w", msg.ChatID, domain.ErrNotFound)
		}
		if IsPgForeignKeyError(err) {
			// Chat deleted out from under the write
			return fmt.Errorf("chat %s: %w", msg.ChatID, domain.ErrNotFound)
		}
		r.logger.Error("message append failed",
			"chat_id", msg.ChatID,
			"role", msg.Role,
			"error", err,
		)
		return fmt.Errorf("append message: %w", domain.ErrStoreWrite)
	}

	return nil
}

// ListOrdered returns the chat's message log ordered by creation time
// ascending, insertion sequence as tiebreak, so replay order is total and
// matches write order even at equal timestamps.
func (r *PostgresMessageRepository) ListOrdered(ctx context.Context, userID, chatID string) ([]models.Message, error) {
	query := fmt.Sprintf(`
		SELECT m.id, m.chat_id, m.role, m.body, m.author_id, m.author_display_name, m.author_avatar_url, m.created_at
		FROM %s m
		JOIN %s c ON c.id = m.chat_id
		WHERE m.chat_id = $1 AND c.user_id = $2
		ORDER BY m.created_at ASC, m.seq ASC
	`, r.tables.Messages, r.tables.Chats)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, chatID, userID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		err := rows.Scan(
			&msg.ID,
			&msg.ChatID,
			&msg.Role,
			&msg.Body,
			&msg.AuthorID,
			&msg.AuthorDisplayName,
			&msg.AuthorAvatarURL,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	// Return empty slice instead of nil
	if messages == nil {
		messages = []models.Message{}
	}

	return messages, nil
}
