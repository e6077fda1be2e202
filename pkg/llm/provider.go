package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/abhilash2429/Artrix-AI/pkg/config"
)

// Provider generates text completions. All calls are bounded: callers pass
// a context with a deadline and a max token budget per request.
type Provider interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error)
}

// GenerateRequest is a single prompt + system prompt generation call.
type GenerateRequest struct {
	Prompt       string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
}

// GenerateResult carries the completion text and token usage reported by
// the provider. Token counts may be zero when the provider omits usage.
type GenerateResult struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Config configures an LLM, embedding, or rerank provider endpoint.
type Config struct {
	Provider  string
	Model     string
	APIKey    string
	APIURL    string
	MaxTokens int
}

// LoadConfig loads generation provider settings from LLM_* env vars.
func LoadConfig() Config {
	return Config{
		Provider:  config.GetEnv("LLM_PROVIDER", "openai"),
		Model:     config.GetEnv("LLM_MODEL", ""),
		APIKey:    config.GetEnv("LLM_API_KEY", ""),
		APIURL:    config.GetEnv("LLM_API_URL", ""),
		MaxTokens: config.GetEnvInt("LLM_MAX_TOKENS", 1024),
	}
}

// LoadEmbeddingConfig loads embedding settings from EMBEDDING_* env vars,
// falling back to their LLM_* counterparts when unset.
func LoadEmbeddingConfig() Config {
	return Config{
		Provider: config.GetEnv("EMBEDDING_PROVIDER", config.GetEnv("LLM_PROVIDER", "openai")),
		Model:    config.GetEnv("EMBEDDING_MODEL", ""),
		APIKey:   config.GetEnv("EMBEDDING_API_KEY", config.GetEnv("LLM_API_KEY", "")),
		APIURL:   config.GetEnv("EMBEDDING_API_URL", config.GetEnv("LLM_API_URL", "")),
	}
}

// LoadRerankConfig loads rerank settings from RERANKER_* env vars.
func LoadRerankConfig() RerankConfig {
	return RerankConfig{
		Provider: config.GetEnv("RERANKER_PROVIDER", ""),
		Model:    config.GetEnv("RERANKER_MODEL", ""),
		APIKey:   config.GetEnv("RERANKER_API_KEY", config.GetEnv("LLM_API_KEY", "")),
		APIURL:   config.GetEnv("RERANKER_API_URL", ""),
	}
}

// NewProvider creates a generation provider for the configured backend.
func NewProvider(cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		return NewOpenAIProvider(cfg), nil
	case "ollama":
		return NewOllamaProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}
