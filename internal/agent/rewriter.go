package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/abhilash2429/Artrix-AI/pkg/llm"
)

const queryRewriteTimeout = 10 * time.Second

const queryRewritePrompt = `Rewrite this conversational customer support message into a concise search query optimized for knowledge base retrieval. Output only the rewritten query, nothing else.

Message: %s`

// QueryRewriter turns conversational phrasing into a retrieval-friendly
// query with a cheap utility model. Strictly best-effort: any failure
// returns the original message.
type QueryRewriter struct {
	llm llm.Provider
}

// NewQueryRewriter creates a rewriter backed by the given provider. A nil
// provider disables rewriting.
func NewQueryRewriter(provider llm.Provider) *QueryRewriter {
	return &QueryRewriter{llm: provider}
}

func (qr *QueryRewriter) Rewrite(ctx context.Context, query string) string {
	if qr == nil || qr.llm == nil {
		return query
	}

	ctx, cancel := context.WithTimeout(ctx, queryRewriteTimeout)
	defer cancel()

	result, err := qr.llm.Generate(ctx, llm.GenerateRequest{
		Prompt:    fmt.Sprintf(queryRewritePrompt, query),
		MaxTokens: 64,
	})
	if err != nil {
		return query
	}

	rewritten := strings.TrimSpace(result.Text)
	if rewritten == "" {
		return query
	}
	return rewritten
}
