// Package provider sends prompts to the model served by the configured LM
// Studio provider once the readiness check has run.
package provider

import (
	"context"
	"fmt"
)

// StreamChunk represents a piece of streaming response.
type StreamChunk struct {
	Content string
	Done    bool
	Error   error
}

// Request holds the parameters for a chat completion.
type Request struct {
	Prompt       string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
}

// MaxPromptLength is the maximum allowed length for prompts.
const MaxPromptLength = 1000000 // 1MB

// Validate checks if the request is valid
func (r *Request) Validate() error {
	if r.Prompt == "" {
		return fmt.Errorf("prompt is empty")
	}
	if len(r.Prompt) > MaxPromptLength {
		return fmt.Errorf("prompt too long: %d bytes (max: %d)", len(r.Prompt), MaxPromptLength)
	}
	if len(r.SystemPrompt) > MaxPromptLength {
		return fmt.Errorf("system prompt too long: %d bytes (max: %d)", len(r.SystemPrompt), MaxPromptLength)
	}
	if r.Temperature < 0 || r.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	return nil
}

// Response holds the result of a chat completion.
type Response struct {
	Content      string
	Model        string
	FinishReason string
	TokensUsed   int
}

// Provider is implemented by chat backends.
type Provider interface {
	// Name returns the provider's identifier (e.g., "lmstudio").
	Name() string

	// Invoke sends a request and returns the complete response.
	Invoke(ctx context.Context, req Request) (*Response, error)

	// Stream sends a request and returns a channel of response chunks.
	Stream(ctx context.Context, req Request) (<-chan StreamChunk, error)

	// HealthCheck verifies the provider is accessible.
	HealthCheck(ctx context.Context) error
}
