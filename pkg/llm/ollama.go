package llm

import (
	"context"
	"strings"
)

// OllamaProvider speaks the OpenAI-compatible API that Ollama exposes.
type OllamaProvider struct {
	openai *OpenAIProvider
}

func NewOllamaProvider(cfg Config) *OllamaProvider {
	cfgCopy := cfg
	if strings.TrimSpace(cfgCopy.APIURL) == "" {
		cfgCopy.APIURL = "http://localhost:11434/v1"
	}
	return &OllamaProvider{
		openai: NewOpenAIProvider(cfgCopy),
	}
}

func (p *OllamaProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error) {
	return p.openai.Generate(ctx, req)
}
