package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rfp-answer-engine/pkg/llm"
)

const (
	defaultTimeout = 2 * time.Minute
	// A pipeline run issues one call per master question; keep the model resident between them.
	defaultKeepAlive = "10m"
)

var ErrModelNotFound = errors.New("ollama model not found")

// Provider calls Ollama's non-streaming /api/chat endpoint.
type Provider struct {
	baseURL   string
	model     string
	keepAlive string
	client    *http.Client
}

var _ llm.LLMProvider = (*Provider)(nil)

func NewProvider(baseURL, model string, timeout time.Duration) *Provider {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Provider{
		baseURL:   strings.TrimRight(baseURL, "/"),
		model:     model,
		keepAlive: defaultKeepAlive,
		client:    &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []llm.Message `json:"messages"`
	Stream    bool          `json:"stream"`
	KeepAlive string        `json:"keep_alive,omitempty"`
	Options   chatOptions   `json:"options"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type chatResponse struct {
	Message    llm.Message `json:"message"`
	Done       bool        `json:"done"`
	DoneReason string      `json:"done_reason,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (p *Provider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := &llm.Options{Model: p.model, Temperature: 0.2}
	for _, opt := range opts {
		opt(options)
	}

	body, err := json.Marshal(chatRequest{
		Model:     options.Model,
		Messages:  normalizeRoles(history),
		KeepAlive: p.keepAlive,
		Options:   chatOptions{Temperature: options.Temperature, NumPredict: options.MaxTokens},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	raw, err := p.post(ctx, "/api/chat", body)
	if err != nil {
		return "", err
	}

	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if strings.TrimSpace(resp.Message.Content) == "" {
		return "", llm.ErrEmptyCompletion
	}
	return resp.Message.Content, nil
}

func (p *Provider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

func (p *Provider) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return raw, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %s", llm.ErrRateLimited, errorMessage(raw))
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, errorMessage(raw))
	default:
		return nil, fmt.Errorf("ollama error: status %d: %s", resp.StatusCode, errorMessage(raw))
	}
}

// errorMessage prefers Ollama's {"error": "..."} body over the raw payload.
func errorMessage(raw []byte) string {
	var e errorResponse
	if err := json.Unmarshal(raw, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(raw))
}

// normalizeRoles maps Gemini-style "model" turns onto Ollama's assistant role.
func normalizeRoles(history []llm.Message) []llm.Message {
	out := make([]llm.Message, len(history))
	for i, m := range history {
		if m.Role == "model" {
			m.Role = llm.RoleAssistant
		}
		out[i] = m
	}
	return out
}
