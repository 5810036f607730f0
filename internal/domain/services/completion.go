package services

import "context"

// GenerateRequest is the input to a completion call. Prompt is the full
// concatenated conversation context; Temperature must lie in [0,1].
type GenerateRequest struct {
	Prompt      string
	Model       string
	Temperature float64
}

// CompletionClient wraps the upstream text-generation API.
//
// Failures are normalized to the domain upstream taxonomy:
// domain.ErrUpstreamTimeout, domain.ErrUpstreamRateLimited, or
// domain.ErrUpstream wrapped in a *domain.UpstreamError carrying the detail.
// The session controller treats all three identically.
type CompletionClient interface {
	// Generate produces completion text for the prompt.
	Generate(ctx context.Context, req *GenerateRequest) (string, error)
}
