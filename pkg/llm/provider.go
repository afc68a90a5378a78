package llm

import (
	"context"
	"errors"
)

var (
	// ErrRateLimited is returned when the backend rejects a call with HTTP 429.
	ErrRateLimited = errors.New("llm rate limited")
	// ErrEmptyCompletion is returned when the backend answers with no content.
	ErrEmptyCompletion = errors.New("llm returned empty completion")
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}

// Complete is the single-shot system+user call used by answer generation.
func Complete(ctx context.Context, p LLMProvider, systemPrompt, userPrompt string, maxTokens int, temperature float64) (string, error) {
	history := []Message{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleUser, Content: userPrompt},
	}
	return p.Chat(ctx, history, WithMaxTokens(maxTokens), WithTemperature(temperature))
}
