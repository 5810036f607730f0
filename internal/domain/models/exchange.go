package models

import "time"

// ExchangeStatus tracks one in-flight send through its lifecycle.
type ExchangeStatus string

const (
	ExchangeSubmitted          ExchangeStatus = "submitted"
	ExchangeAwaitingCompletion ExchangeStatus = "awaiting-completion"
	ExchangeCompleted          ExchangeStatus = "completed"
	ExchangeFailed             ExchangeStatus = "failed"
)

// PendingExchange is transient controller-side state for one in-flight send.
// It is never persisted: it exists between submission and resolution so the
// presentation layer can render a busy indicator keyed to a specific
// submission, and so a fast second submission is rejected instead of being
// misattributed to the wrong in-flight request. At most one exists per chat.
type PendingExchange struct {
	CorrelationID string         `json:"correlation_id"`
	ChatID        string         `json:"chat_id"`
	Prompt        string         `json:"prompt"`
	Status        ExchangeStatus `json:"status"`
	StartedAt     time.Time      `json:"started_at"`
}
