package completion

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"quill/internal/domain"
	"quill/internal/domain/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func genReq() *services.GenerateRequest {
	return &services.GenerateRequest{
		Prompt:      "Explain X",
		Model:       "text-davinci-003",
		Temperature: 0.5,
	}
}

func TestGenerate_Success(t *testing.T) {
	var captured CompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("missing bearer auth, got %q", got)
		}
		if got := r.Header.Get("OpenAI-Organization"); got != "org-1" {
			t.Errorf("missing organization header, got %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(CompletionResponse{
			Model: "text-davinci-003",
			Choices: []Choice{
				{Text: "\n\nAn answer."},
			},
		})
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "test-key", testLogger(),
		WithOrganization("org-1"), WithMaxTokens(128))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	text, err := client.Generate(context.Background(), genReq())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "\n\nAn answer." {
		t.Errorf("unexpected text %q", text)
	}

	if captured.Model != "text-davinci-003" || captured.Prompt != "Explain X" {
		t.Errorf("request payload wrong: %+v", captured)
	}
	if captured.Temperature != 0.5 {
		t.Errorf("temperature not forwarded: %v", captured.Temperature)
	}
	if captured.MaxTokens != 128 {
		t.Errorf("max_tokens not applied: %d", captured.MaxTokens)
	}
	if captured.TopP != 1 {
		t.Errorf("top_p should default to 1, got %v", captured.TopP)
	}
}

func TestGenerate_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests"}}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "test-key", testLogger())
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	_, err = client.Generate(context.Background(), genReq())
	if !errors.Is(err, domain.ErrUpstreamRateLimited) {
		t.Fatalf("expected ErrUpstreamRateLimited, got %v", err)
	}

	var upstream *domain.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %T", err)
	}
	if upstream.Detail != "Rate limit reached" {
		t.Errorf("detail not extracted from envelope: %q", upstream.Detail)
	}
}

func TestGenerate_Timeout(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer server.Close()
	defer close(block)

	client, err := NewClient(server.URL, "test-key", testLogger(),
		WithTimeout(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	_, err = client.Generate(context.Background(), genReq())
	if !errors.Is(err, domain.ErrUpstreamTimeout) {
		t.Fatalf("expected ErrUpstreamTimeout, got %v", err)
	}
}

func TestGenerate_ContextDeadline(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer server.Close()
	defer close(block)

	client, err := NewClient(server.URL, "test-key", testLogger())
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = client.Generate(ctx, genReq())
	if !errors.Is(err, domain.ErrUpstreamTimeout) {
		t.Fatalf("expected ErrUpstreamTimeout on context deadline, got %v", err)
	}
}

func TestGenerate_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "test-key", testLogger())
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	_, err = client.Generate(context.Background(), genReq())
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if errors.Is(err, domain.ErrUpstreamTimeout) || errors.Is(err, domain.ErrUpstreamRateLimited) {
		t.Errorf("generic failure must not match a specific kind: %v", err)
	}
}

func TestGenerate_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": not-json`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "test-key", testLogger())
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	_, err = client.Generate(context.Background(), genReq())
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream for malformed body, got %v", err)
	}
}

func TestGenerate_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(CompletionResponse{Model: "text-davinci-003"})
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "test-key", testLogger())
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	_, err = client.Generate(context.Background(), genReq())
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream for empty choices, got %v", err)
	}
}

func TestNewClient_RequiresConfig(t *testing.T) {
	if _, err := NewClient("", "key", testLogger()); err == nil {
		t.Error("expected error for missing base URL")
	}
	if _, err := NewClient("http://x", "", testLogger()); err == nil {
		t.Error("expected error for missing API key")
	}
}
