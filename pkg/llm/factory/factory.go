package factory

import (
	"fmt"
	"time"

	"rfp-answer-engine/pkg/llm"
	"rfp-answer-engine/pkg/llm/ollama"
	"rfp-answer-engine/pkg/llm/openaicompat"
)

// NewLLMProvider builds the chat backend named by providerType. timeout bounds one HTTP call.
func NewLLMProvider(providerType, modelName, baseURL, apiKey string, timeout time.Duration) (llm.LLMProvider, error) {
	switch providerType {
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewProvider(baseURL, modelName, timeout), nil
	case "openai", "huggingface":
		return openaicompat.NewProvider(apiKey, baseURL, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
