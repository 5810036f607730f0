package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"quill/internal/config"
	"quill/internal/domain"
	"quill/internal/domain/models"
	"quill/internal/domain/repositories"
	"quill/internal/domain/services"
)

// FallbackBody is the fixed assistant message persisted when the completion
// call fails, so the log keeps its alternating record even on upstream
// failure. Failures are visible in-thread, never silently dropped.
const FallbackBody = "The assistant was unable to find an answer for that prompt."

// Assistant author identity attached to generated messages.
const (
	assistantAuthorID    = "assistant"
	assistantDisplayName = "Assistant"
	assistantAvatarURL   = "/assets/assistant-logo.png"
)

// Controller implements the SessionController interface. It is the single
// writer of the message log and enforces at-most-one-in-flight-per-chat as a
// hard invariant, not a UI hint. Different chats never share mutable state
// beyond the pending map, so they proceed fully concurrently.
type Controller struct {
	messages    repositories.MessageRepository
	chats       repositories.ChatRepository
	completions services.CompletionClient
	logger      *slog.Logger

	mu      sync.Mutex
	pending map[string]*models.PendingExchange
	// signals holds a per-chat channel closed on every pending-state
	// transition, so Observe feeds can refresh their busy indicator.
	signals map[string]chan struct{}
}

// NewController creates the session controller. Dependencies are injected
// explicitly so tests can substitute fakes; there are no ambient singletons.
func NewController(
	messages repositories.MessageRepository,
	chats repositories.ChatRepository,
	completions services.CompletionClient,
	logger *slog.Logger,
) services.SessionController {
	return &Controller{
		messages:    messages,
		chats:       chats,
		completions: completions,
		logger:      logger,
		pending:     make(map[string]*models.PendingExchange),
		signals:     make(map[string]chan struct{}),
	}
}

// Send runs one full exchange. See the SessionController contract for the
// rejection and guarantee semantics.
func (c *Controller) Send(ctx context.Context, req *services.SendRequest) (string, error) {
	if req.Identity.UserID == "" {
		return "", fmt.Errorf("send: %w", domain.ErrUnauthorized)
	}

	prompt := strings.TrimSpace(req.Prompt)
	if err := c.validateSend(req, prompt); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	exchange, err := c.admit(req.ChatID, prompt)
	if err != nil {
		return "", err
	}
	defer c.settle(req.ChatID, exchange)

	// Once admitted, the exchange must resolve and persist its result even
	// if the caller disconnects: a persisted user message with no paired
	// assistant message would corrupt the log. The completion client keeps
	// its own timeout, so a dead upstream still ends the exchange.
	ctx = context.WithoutCancel(ctx)

	// Prior bodies are read before the append so the new prompt appears in
	// the completion context exactly once. A failed read degrades to
	// prompt-only context rather than failing the send.
	history, err := c.messages.ListOrdered(ctx, req.Identity.UserID, req.ChatID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", err
		}
		c.logger.Warn("history read failed, sending prompt alone",
			"chat_id", req.ChatID,
			"error", err,
		)
		history = nil
	}

	userMsg := &models.Message{
		ChatID:            req.ChatID,
		Role:              models.RoleUser,
		Body:              prompt,
		AuthorID:          req.Identity.UserID,
		AuthorDisplayName: req.Identity.DisplayName,
		AuthorAvatarURL:   req.Identity.AvatarURL,
	}
	if err := c.messages.Append(ctx, req.Identity.UserID, userMsg); err != nil {
		c.transition(req.ChatID, exchange, models.ExchangeFailed)
		return "", err
	}

	c.transition(req.ChatID, exchange, models.ExchangeAwaitingCompletion)

	text, genErr := c.completions.Generate(ctx, &services.GenerateRequest{
		Prompt:      buildPrompt(history, prompt, req.HistoryLimit),
		Model:       req.Model,
		Temperature: req.Temperature,
	})

	body := strings.TrimSpace(text)
	if genErr != nil || body == "" {
		if genErr != nil {
			// Upstream detail is for operators; the thread gets the
			// fixed fallback and the user is never shown a hard error.
			c.logger.Error("completion failed, persisting fallback",
				"chat_id", req.ChatID,
				"correlation_id", exchange.CorrelationID,
				"model", req.Model,
				"error", genErr,
			)
		}
		body = FallbackBody
	}

	assistantMsg := &models.Message{
		ChatID:            req.ChatID,
		Role:              models.RoleAssistant,
		Body:              body,
		AuthorID:          assistantAuthorID,
		AuthorDisplayName: assistantDisplayName,
		AuthorAvatarURL:   assistantAvatarURL,
	}
	if err := c.messages.Append(ctx, req.Identity.UserID, assistantMsg); err != nil {
		c.transition(req.ChatID, exchange, models.ExchangeFailed)
		return "", err
	}

	// Recency bump is best-effort; the log itself is already consistent
	if err := c.chats.Touch(ctx, req.ChatID, req.Identity.UserID); err != nil {
		c.logger.Warn("chat recency update failed",
			"chat_id", req.ChatID,
			"error", err,
		)
	}

	if genErr != nil {
		c.transition(req.ChatID, exchange, models.ExchangeFailed)
	} else {
		c.transition(req.ChatID, exchange, models.ExchangeCompleted)
	}

	c.logger.Info("exchange resolved",
		"chat_id", req.ChatID,
		"correlation_id", exchange.CorrelationID,
		"status", exchange.Status,
	)

	return body, nil
}

// Observe returns a live ordered view of the chat's message log plus the
// in-flight exchange for busy rendering. The feed delivers an immediate
// snapshot, then follows store changes and pending transitions. Cancelling
// ctx detaches the subscription only; it never cancels an in-flight Send.
func (c *Controller) Observe(ctx context.Context, identity models.Identity, chatID string) (<-chan services.ObserveEvent, error) {
	if identity.UserID == "" {
		return nil, fmt.Errorf("observe: %w", domain.ErrUnauthorized)
	}
	if chatID == "" {
		return nil, fmt.Errorf("%w: chat id is required", domain.ErrValidation)
	}

	snapshots, err := c.messages.SubscribeOrdered(ctx, identity.UserID, chatID)
	if err != nil {
		return nil, err
	}

	events := make(chan services.ObserveEvent, 1)
	go func() {
		defer close(events)

		var last []models.Message
		haveLog := false
		for {
			select {
			case snap, ok := <-snapshots:
				if !ok {
					return
				}
				last = snap
				haveLog = true
			case <-c.pendingChanged(chatID):
				// busy indicator refresh; log unchanged. Nothing to
				// render until the first snapshot lands.
				if !haveLog {
					continue
				}
			case <-ctx.Done():
				return
			}

			event := services.ObserveEvent{
				Messages: last,
				Pending:  c.Pending(chatID),
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

// History returns the chat's ordered message log as a one-time snapshot.
func (c *Controller) History(ctx context.Context, identity models.Identity, chatID string) ([]models.Message, error) {
	if identity.UserID == "" {
		return nil, fmt.Errorf("history: %w", domain.ErrUnauthorized)
	}
	if chatID == "" {
		return nil, fmt.Errorf("%w: chat id is required", domain.ErrValidation)
	}
	return c.messages.ListOrdered(ctx, identity.UserID, chatID)
}

// Pending reports the chat's in-flight exchange, or nil. Returns a copy so
// callers never observe later transitions mid-read.
func (c *Controller) Pending(chatID string) *models.PendingExchange {
	c.mu.Lock()
	defer c.mu.Unlock()

	exchange, ok := c.pending[chatID]
	if !ok {
		return nil
	}
	snapshot := *exchange
	return &snapshot
}

// admit installs a new PendingExchange for the chat, or rejects with Busy
// if one already exists. This is the hard concurrency gate: no queuing, no
// overwrite, no persisted effect on rejection.
func (c *Controller) admit(chatID, prompt string) (*models.PendingExchange, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if inflight, ok := c.pending[chatID]; ok {
		return nil, &domain.BusyError{
			ChatID:        chatID,
			CorrelationID: inflight.CorrelationID,
		}
	}

	exchange := &models.PendingExchange{
		CorrelationID: uuid.New().String(),
		ChatID:        chatID,
		Prompt:        prompt,
		Status:        models.ExchangeSubmitted,
		StartedAt:     time.Now(),
	}
	c.pending[chatID] = exchange
	c.signalLocked(chatID)
	return exchange, nil
}

// settle discards the exchange once the send has resolved either way.
func (c *Controller) settle(chatID string, exchange *models.PendingExchange) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending[chatID] == exchange {
		delete(c.pending, chatID)
		c.signalLocked(chatID)
	}
}

// transition advances the exchange status and wakes observers.
func (c *Controller) transition(chatID string, exchange *models.PendingExchange, status models.ExchangeStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	exchange.Status = status
	c.signalLocked(chatID)
}

// pendingChanged returns a channel closed at the next pending transition
// for the chat. Callers re-fetch after every wake.
func (c *Controller) pendingChanged(chatID string) <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch, ok := c.signals[chatID]
	if !ok {
		ch = make(chan struct{})
		c.signals[chatID] = ch
	}
	return ch
}

// signalLocked closes the chat's transition channel. Caller holds mu.
func (c *Controller) signalLocked(chatID string) {
	if ch, ok := c.signals[chatID]; ok {
		close(ch)
	}
	c.signals[chatID] = make(chan struct{})
}

// validateSend checks input constraints before any network or store
// interaction; prompt arrives already trimmed.
func (c *Controller) validateSend(req *services.SendRequest, prompt string) error {
	if prompt == "" {
		return fmt.Errorf("prompt must not be empty")
	}
	return validation.Errors{
		"chat_id": validation.Validate(req.ChatID, validation.Required),
		"prompt":  validation.Validate(prompt, validation.Length(1, config.MaxPromptLength)),
		"model":   validation.Validate(req.Model, validation.Required),
		"temperature": validation.Validate(req.Temperature,
			validation.Min(0.0), validation.Max(1.0)),
	}.Filter()
}

// buildPrompt folds prior message bodies into the completion context:
// bodies in log order, newline-joined, then the new prompt. limit caps how
// many prior messages are included; 0 sends the prompt alone.
func buildPrompt(history []models.Message, prompt string, limit int) string {
	if limit <= 0 || len(history) == 0 {
		return prompt
	}
	if len(history) > limit {
		history = history[len(history)-limit:]
	}

	var b strings.Builder
	for _, msg := range history {
		b.WriteString(msg.Body)
		b.WriteString("\n")
	}
	b.WriteString(prompt)
	return b.String()
}
