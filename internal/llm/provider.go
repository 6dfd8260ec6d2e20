package llm

import (
	"context"
)

// Provider is the core abstraction over one chat-completion backend.
// Consumers send a prompt and receive the raw model output; extracting
// usable JSON from that output is the caller's problem.
type Provider interface {
	// Generate sends a prompt to the backend and returns its raw response.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes what to send to the backend.
type Request struct {
	// System is the system prompt. Sets the model's role and constraints.
	System string

	// Prompt is the user message.
	Prompt string

	// Temperature controls randomness. Range: 0.0 - 1.0.
	Temperature float64

	// MaxTokens is the maximum number of tokens in the response.
	MaxTokens int

	// StrictJSON asks the backend for JSON-only output when it supports a
	// native JSON response mode. Backends without one ignore the flag.
	StrictJSON bool
}

// Response holds the backend's output.
type Response struct {
	// Content is the raw generated text, frequently malformed JSON.
	Content string

	// Usage reports token consumption for this request.
	Usage Usage

	// Model is the actual model that served the request.
	Model string
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
