package models

import (
	"time"
)

// Chat represents one persisted chat session. A chat belongs to exactly one
// user; deleting it cascade-deletes its message log.
type Chat struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
