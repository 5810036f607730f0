package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"quill/internal/domain"
	"quill/internal/domain/services"
)

const (
	defaultTimeout   = 45 * time.Second
	defaultMaxTokens = 256
)

// Client is an HTTP client for an OpenAI-compatible completions endpoint.
// All failures are normalized to the domain upstream taxonomy so callers
// never interpret transport-specific errors.
type Client struct {
	baseURL    string
	apiKey     string
	orgID      string
	maxTokens  int
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithMaxTokens overrides the completion token cap.
func WithMaxTokens(n int) Option {
	return func(c *Client) { c.maxTokens = n }
}

// WithOrganization sets the OpenAI-Organization header on every request.
func WithOrganization(orgID string) Option {
	return func(c *Client) { c.orgID = orgID }
}

// NewClient creates a completion client for the given endpoint.
func NewClient(baseURL, apiKey string, logger *slog.Logger, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("completion base URL is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("completion API key is required")
	}

	c := &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		maxTokens: defaultMaxTokens,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Generate calls the completions endpoint and returns the first choice text.
func (c *Client) Generate(ctx context.Context, req *services.GenerateRequest) (string, error) {
	payload := CompletionRequest{
		Model:       req.Model,
		Prompt:      req.Prompt,
		Temperature: req.Temperature,
		MaxTokens:   c.maxTokens,
		TopP:        1,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", &domain.UpstreamError{Kind: domain.ErrUpstream, Detail: "encode request: " + err.Error()}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/completions", bytes.NewReader(body))
	if err != nil {
		return "", &domain.UpstreamError{Kind: domain.ErrUpstream, Detail: "build request: " + err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.orgID != "" {
		httpReq.Header.Set("OpenAI-Organization", c.orgID)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isClientTimeout(err) {
			return "", &domain.UpstreamError{Kind: domain.ErrUpstreamTimeout, Detail: err.Error()}
		}
		return "", &domain.UpstreamError{Kind: domain.ErrUpstream, Detail: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &domain.UpstreamError{Kind: domain.ErrUpstreamRateLimited, Detail: readErrorDetail(resp.Body)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := fmt.Sprintf("status %d: %s", resp.StatusCode, readErrorDetail(resp.Body))
		return "", &domain.UpstreamError{Kind: domain.ErrUpstream, Detail: detail}
	}

	var completion CompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", &domain.UpstreamError{Kind: domain.ErrUpstream, Detail: "decode response: " + err.Error()}
	}
	if len(completion.Choices) == 0 {
		return "", &domain.UpstreamError{Kind: domain.ErrUpstream, Detail: "response contained no choices"}
	}

	c.logger.Debug("completion generated",
		"model", completion.Model,
		"prompt_tokens", completion.Usage.PromptTokens,
		"completion_tokens", completion.Usage.CompletionTokens,
	)

	return completion.Choices[0].Text, nil
}

// isClientTimeout reports whether the transport gave up waiting.
func isClientTimeout(err error) bool {
	var timeout interface{ Timeout() bool }
	return errors.As(err, &timeout) && timeout.Timeout()
}

// readErrorDetail extracts the upstream error message, falling back to the
// raw body when the envelope doesn't parse.
func readErrorDetail(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}

	var envelope errorResponse
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return string(raw)
}
