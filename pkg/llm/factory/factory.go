package factory

import (
	"fmt"

	"sales-copilot-be/pkg/llm"
	"sales-copilot-be/pkg/llm/ollama"
	"sales-copilot-be/pkg/llm/openai"
)

func NewLLMProvider(providerType, modelName, openaiBaseURL, openaiKey, ollamaBaseURL string) (llm.LLMProvider, error) {
	switch providerType {
	case "openai":
		return openai.NewOpenAIProvider(openaiBaseURL, openaiKey, modelName), nil
	case "ollama":
		if ollamaBaseURL == "" {
			ollamaBaseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(ollamaBaseURL, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
