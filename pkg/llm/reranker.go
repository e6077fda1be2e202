package llm

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
)

// RerankClient scores (query, document) pairs for relevance.
type RerankClient interface {
	Rerank(ctx context.Context, query string, documents []string) ([]RerankResult, error)
}

// RerankResult holds the relevance score for a single document.
type RerankResult struct {
	Index          int
	RelevanceScore float64
}

// RerankConfig configures a reranking provider.
type RerankConfig struct {
	Provider string // "cohere", "jina", or "generic"
	Model    string
	APIKey   string
	APIURL   string
}

type rerankProvider struct {
	client *http.Client
	model  string
	apiKey string
	apiURL string
}

// NewRerankClient creates a reranking client. Cohere v2, Jina, and the
// generic /rerank pattern (Voyage, SiliconFlow, self-hosted models) all
// accept the same request shape and return the same result list, so the
// provider only selects the default endpoint.
func NewRerankClient(cfg RerankConfig) (RerankClient, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		return nil, errors.New("reranker provider is required")
	}

	apiURL := strings.TrimRight(cfg.APIURL, "/")
	switch provider {
	case "cohere":
		if apiURL == "" {
			apiURL = "https://api.cohere.com/v2"
		}
	case "jina":
		if apiURL == "" {
			apiURL = "https://api.jina.ai/v1"
		}
	case "generic":
		if apiURL == "" {
			return nil, errors.New("RERANKER_API_URL is required for generic provider")
		}
	default:
		return nil, fmt.Errorf("unknown reranker provider %q", provider)
	}

	return &rerankProvider{
		client: &http.Client{Timeout: 30 * time.Second},
		model:  cfg.Model,
		apiKey: cfg.APIKey,
		apiURL: apiURL,
	}, nil
}

type rerankRequest struct {
	Model     string   `json:"model,omitempty"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

func (p *rerankProvider) Rerank(ctx context.Context, query string, documents []string) ([]RerankResult, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(rerankRequest{
		Model:     p.model,
		Query:     query,
		Documents: documents,
	})
	if err != nil {
		return nil, fmt.Errorf("rerank: marshal: %w", err)
	}

	resp, err := doWithRetry(ctx, p.client, func() (*http.Request, error) {
		req, reqErr := http.NewRequest(http.MethodPost, p.apiURL+"/rerank", bytes.NewReader(payload))
		if reqErr != nil {
			return nil, reqErr
		}
		req.Header.Set("Content-Type", "application/json")
		if p.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+p.apiKey)
		}
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("rerank: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("rerank: unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var decoded rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("rerank: decode: %w", err)
	}

	results := make([]RerankResult, len(decoded.Results))
	for i, r := range decoded.Results {
		results[i] = RerankResult{Index: r.Index, RelevanceScore: r.RelevanceScore}
	}
	return results, nil
}
