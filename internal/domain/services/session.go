package services

import (
	"context"

	"quill/internal/domain/models"
)

// SessionController owns the per-chat send protocol: it is the only writer
// of the message log and the single authority on whether a send is in
// flight. All reads the presentation layer sees come from the store's
// ordered view, never from a client-side cache.
type SessionController interface {
	// Send runs one full exchange: validate, persist the user message,
	// call the completion API, persist the assistant reply (or the fixed
	// fallback body on upstream failure). Returns the persisted
	// assistant body.
	//
	// Rejected before any side effect with domain.ErrValidation,
	// domain.ErrUnauthorized, or domain.ErrBusy when an exchange is
	// already in flight for the chat. A failed store write surfaces
	// domain.ErrStoreWrite and leaves the log untouched.
	//
	// Once an exchange is admitted, ctx cancellation no longer aborts
	// it: the exchange resolves and persists its paired assistant or
	// fallback message even if the caller disconnects.
	Send(ctx context.Context, req *SendRequest) (string, error)

	// Observe returns a live ordered view of a chat's message log. The
	// first delivery is an immediate snapshot; subsequent deliveries
	// follow store changes. Cancelling ctx detaches the feed without
	// cancelling any in-flight Send for the chat.
	Observe(ctx context.Context, identity models.Identity, chatID string) (<-chan ObserveEvent, error)

	// History returns the chat's ordered message log as a one-time
	// snapshot, for clients that don't hold a live feed open.
	History(ctx context.Context, identity models.Identity, chatID string) ([]models.Message, error)

	// Pending reports the chat's in-flight exchange, or nil.
	Pending(chatID string) *models.PendingExchange
}

// SendRequest is the DTO for one send attempt.
type SendRequest struct {
	ChatID      string  `json:"chat_id"`
	Prompt      string  `json:"prompt"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	// HistoryLimit caps how many prior messages are folded into the
	// completion prompt. 0 sends the prompt alone.
	HistoryLimit int `json:"-"`
	// Identity is set by the handler from the auth context, never from
	// the request body.
	Identity models.Identity `json:"-"`
}

// ObserveEvent is one delivery on an Observe feed: the ordered snapshot as
// of a change, plus the in-flight exchange (nil when idle) for rendering a
// busy indicator.
type ObserveEvent struct {
	Messages []models.Message        `json:"messages"`
	Pending  *models.PendingExchange `json:"pending,omitempty"`
}
