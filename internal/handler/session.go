package handler

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"quill/internal/config"
	"quill/internal/domain/services"
	"quill/internal/handler/sse"
	"quill/internal/httputil"
)

// SessionHandler exposes the session controller over HTTP: the send
// endpoint and the live SSE view of a chat's message log.
type SessionHandler struct {
	sessions     services.SessionController
	defaultModel string
	sseConfig    *sse.Config
	logger       *slog.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(
	sessions services.SessionController,
	defaultModel string,
	sseConfig *sse.Config,
	logger *slog.Logger,
) *SessionHandler {
	return &SessionHandler{
		sessions:     sessions,
		defaultModel: defaultModel,
		sseConfig:    sseConfig,
		logger:       logger,
	}
}

// sendResponse is the reply to a resolved send: the persisted assistant body.
type sendResponse struct {
	Text string `json:"text"`
}

// Send runs one exchange through the session controller
// POST /api/chat/send
func (h *SessionHandler) Send(w http.ResponseWriter, r *http.Request) {
	identity := httputil.GetIdentity(r)

	var req services.SendRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Identity = identity
	req.HistoryLimit = config.DefaultHistoryLimit
	if req.Model == "" {
		req.Model = h.defaultModel
	}

	text, err := h.sessions.Send(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, sendResponse{Text: text})
}

// GetMessages returns the ordered message log snapshot for a chat
// GET /api/chats/{id}/messages
func (h *SessionHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	chatID, ok := PathParam(w, r, "id", "Chat ID")
	if !ok {
		return
	}

	identity := httputil.GetIdentity(r)
	messages, err := h.sessions.History(r.Context(), identity, chatID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, messages)
}

// StreamEvents streams the live ordered view of a chat over SSE
// GET /api/chats/{id}/events
//
// Each "snapshot" event carries the full ordered log plus the in-flight
// exchange, so a reconnecting client renders correct state from the first
// frame. Closing the connection detaches the feed; it never cancels an
// in-flight send for the chat being left.
func (h *SessionHandler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	chatID, ok := PathParam(w, r, "id", "Chat ID")
	if !ok {
		return
	}

	identity := httputil.GetIdentity(r)
	clientID := uuid.New().String()

	events, err := h.sessions.Observe(r.Context(), identity, chatID)
	if err != nil {
		handleError(w, err)
		return
	}

	writer, err := sse.NewEventWriter(w)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	h.logger.Info("SSE stream established",
		"chat_id", chatID,
		"client_id", clientID,
	)

	keepAlive := sse.NewTickerKeepAlive(h.sseConfig.KeepAliveInterval)
	keepAliveDone := keepAlive.Start(writer, h.logger)
	defer keepAlive.Stop()

	for {
		select {
		case event, open := <-events:
			if !open {
				h.logger.Debug("observe feed closed", "chat_id", chatID, "client_id", clientID)
				return
			}
			if err := writer.WriteEvent("snapshot", event); err != nil {
				h.logger.Debug("SSE client gone",
					"chat_id", chatID,
					"client_id", clientID,
					"error", err,
				)
				return
			}
		case <-keepAliveDone:
			// Keep-alive detected a dead connection
			return
		case <-r.Context().Done():
			h.logger.Debug("SSE stream detached", "chat_id", chatID, "client_id", clientID)
			return
		}
	}
}
