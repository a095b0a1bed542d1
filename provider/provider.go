package provider

import (
	"context"
	"fmt"

	"github.com/ooocheckitout/llm-knowledge-base/config"
	huggingface_provider "github.com/ooocheckitout/llm-knowledge-base/provider/huggingface"
	ollama_provider "github.com/ooocheckitout/llm-knowledge-base/provider/ollama"
	openai_provider "github.com/ooocheckitout/llm-knowledge-base/provider/openai"
)

// Chat invokes a language model with a fully rendered prompt.
type Chat interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Embedding maps texts to fixed-length vectors.
type Embedding interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// NewChat creates a chat client based on the configured provider.
func NewChat(cfg config.ChatProviderConfig) (Chat, error) {
	switch cfg.Provider {
	case "ollama":
		return ollama_provider.NewChat(cfg.BaseURL, cfg.Model, cfg.Temperature, cfg.Timeout), nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("api key not set for chat provider %q", cfg.Provider)
		}
		return openai_provider.NewChat(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Temperature, cfg.MaxTokens, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unsupported chat provider: %q", cfg.Provider)
	}
}

// NewEmbedding creates an embedding client based on the configured provider.
func NewEmbedding(cfg config.EmbeddingProviderConfig) (Embedding, error) {
	switch cfg.Provider {
	case "ollama":
		return ollama_provider.NewEmbedding(cfg.BaseURL, cfg.Model, cfg.Timeout), nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("api key not set for embedding provider %q", cfg.Provider)
		}
		return openai_provider.NewEmbedding(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Timeout), nil
	case "huggingface":
		return huggingface_provider.NewEmbedding(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %q", cfg.Provider)
	}
}
