package models

import (
	"time"
)

// Message author roles. The log is an alternating record of these two.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one immutable entry in a chat's message log. CreatedAt is
// assigned by the store at write time; a store-side insertion sequence gives
// every message a total position within its chat, so replaying the log in
// order is stable even when two writes land on the same timestamp.
type Message struct {
	ID                string    `json:"id" db:"id"`
	ChatID            string    `json:"chat_id" db:"chat_id"`
	Role              string    `json:"role" db:"role"`
	Body              string    `json:"body" db:"body"`
	AuthorID          string    `json:"author_id" db:"author_id"`
	AuthorDisplayName string    `json:"author_display_name" db:"author_display_name"`
	AuthorAvatarURL   string    `json:"author_avatar_url,omitempty" db:"author_avatar_url"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}
