package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"quill/internal/domain"
	"quill/internal/domain/models"
	"quill/internal/domain/services"
	"quill/internal/handler/sse"
	"quill/internal/httputil"
)

// fakeSessions is a scripted SessionController for handler tests.
type fakeSessions struct {
	sendText string
	sendErr  error
	lastSend *services.SendRequest

	history    []models.Message
	historyErr error

	events     chan services.ObserveEvent
	observeErr error
}

func (f *fakeSessions) Send(ctx context.Context, req *services.SendRequest) (string, error) {
	captured := *req
	f.lastSend = &captured
	if f.sendErr != nil {
		return "", f.sendErr
	}
	return f.sendText, nil
}

func (f *fakeSessions) Observe(ctx context.Context, identity models.Identity, chatID string) (<-chan services.ObserveEvent, error) {
	if f.observeErr != nil {
		return nil, f.observeErr
	}
	return f.events, nil
}

func (f *fakeSessions) History(ctx context.Context, identity models.Identity, chatID string) ([]models.Message, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.history, nil
}

func (f *fakeSessions) Pending(chatID string) *models.PendingExchange { return nil }

func testSessionHandler(sessions *fakeSessions) *SessionHandler {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return NewSessionHandler(sessions, "text-davinci-003", sse.DefaultConfig(), logger)
}

func authedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	return httputil.WithIdentity(req, models.Identity{
		UserID:      "user-1",
		DisplayName: "Test User",
	})
}

func TestSendEndpoint(t *testing.T) {
	sessions := &fakeSessions{sendText: "An answer."}
	h := testSessionHandler(sessions)

	rec := httptest.NewRecorder()
	req := authedRequest(http.MethodPost, "/api/chat/send",
		`{"chat_id":"chat-1","prompt":"Explain X","temperature":0.5}`)
	h.Send(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Text != "An answer." {
		t.Errorf("unexpected text %q", resp.Text)
	}

	if sessions.lastSend == nil {
		t.Fatal("controller never called")
	}
	if sessions.lastSend.Identity.UserID != "user-1" {
		t.Errorf("identity not forwarded: %+v", sessions.lastSend.Identity)
	}
	if sessions.lastSend.Model != "text-davinci-003" {
		t.Errorf("default model not applied: %q", sessions.lastSend.Model)
	}
	if sessions.lastSend.HistoryLimit <= 0 {
		t.Errorf("history limit not set: %d", sessions.lastSend.HistoryLimit)
	}
}

func TestSendEndpoint_Busy(t *testing.T) {
	sessions := &fakeSessions{
		sendErr: &domain.BusyError{ChatID: "chat-1", CorrelationID: "corr-123"},
	}
	h := testSessionHandler(sessions)

	rec := httptest.NewRecorder()
	req := authedRequest(http.MethodPost, "/api/chat/send",
		`{"chat_id":"chat-1","prompt":"Explain X"}`)
	h.Send(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("expected problem+json, got %q", ct)
	}

	var problem map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
		t.Fatalf("decode problem: %v", err)
	}
	if problem["correlation_id"] != "corr-123" {
		t.Errorf("busy response missing correlation id: %v", problem)
	}
	if problem["status"] != float64(http.StatusConflict) {
		t.Errorf("problem status mismatch: %v", problem["status"])
	}
}

func TestSendEndpoint_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", fmt.Errorf("%w: prompt must not be empty", domain.ErrValidation), http.StatusBadRequest},
		{"not found", fmt.Errorf("chat: %w", domain.ErrNotFound), http.StatusNotFound},
		{"unauthorized", fmt.Errorf("send: %w", domain.ErrUnauthorized), http.StatusUnauthorized},
		{"store write", fmt.Errorf("append: %w", domain.ErrStoreWrite), http.StatusBadGateway},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := testSessionHandler(&fakeSessions{sendErr: tc.err})
			rec := httptest.NewRecorder()
			req := authedRequest(http.MethodPost, "/api/chat/send",
				`{"chat_id":"chat-1","prompt":"x"}`)
			h.Send(rec, req)

			if rec.Code != tc.want {
				t.Errorf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestSendEndpoint_BadBody(t *testing.T) {
	h := testSessionHandler(&fakeSessions{})
	rec := httptest.NewRecorder()
	req := authedRequest(http.MethodPost, "/api/chat/send", `{not json`)
	h.Send(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestGetMessagesEndpoint(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sessions := &fakeSessions{
		history: []models.Message{
			{ID: "m1", ChatID: "chat-1", Role: models.RoleUser, Body: "hi", CreatedAt: now},
			{ID: "m2", ChatID: "chat-1", Role: models.RoleAssistant, Body: "hello", CreatedAt: now.Add(time.Millisecond)},
		},
	}
	h := testSessionHandler(sessions)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/chats/{id}/messages", h.GetMessages)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/chats/chat-1/messages", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var messages []models.Message
	if err := json.Unmarshal(rec.Body.Bytes(), &messages); err != nil {
		t.Fatalf("decode messages: %v", err)
	}
	if len(messages) != 2 || messages[0].ID != "m1" || messages[1].ID != "m2" {
		t.Errorf("log order lost in transit: %+v", messages)
	}
}

func TestStreamEventsEndpoint(t *testing.T) {
	events := make(chan services.ObserveEvent, 1)
	events <- services.ObserveEvent{
		Messages: []models.Message{
			{ID: "m1", Role: models.RoleUser, Body: "hi"},
		},
	}
	close(events)

	h := testSessionHandler(&fakeSessions{events: events})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/chats/{id}/events", h.StreamEvents)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/chats/chat-1/events", ""))

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected event-stream content type, got %q", ct)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "event: snapshot\n") {
		t.Errorf("missing snapshot event frame:\n%s", body)
	}
	if !strings.Contains(body, `"body":"hi"`) {
		t.Errorf("snapshot payload missing message body:\n%s", body)
	}
}

func TestStreamEventsEndpoint_SubscribeFailure(t *testing.T) {
	sessions := &fakeSessions{
		observeErr: fmt.Errorf("listen: %w", domain.ErrStoreSubscription),
	}
	h := testSessionHandler(sessions)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/chats/{id}/events", h.StreamEvents)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/chats/chat-1/events", ""))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 when the feed cannot be established, got %d", rec.Code)
	}
}
