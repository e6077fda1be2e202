package knowledge

import (
	"context"
	"sort"
	"time"

	"github.com/abhilash2429/Artrix-AI/pkg/llm"
	"github.com/abhilash2429/Artrix-AI/pkg/logging"
)

const (
	supportThreshold = 0.4
	supportCap       = 10
	topWeight        = 0.85
	supportWeight    = 0.15
)

// RankedResult is the reranker output for one turn: the top chunks with
// relevance scores and the derived confidence.
type RankedResult struct {
	Candidates []Candidate
	Confidence float64
	// Degraded is true when the cross-encoder was unavailable and the
	// ranking fell back to fused retrieval scores.
	Degraded bool
}

// Scorer rescores fused candidates with a cross-encoder and derives a
// scalar confidence. A rerank failure degrades to the fused ordering
// instead of failing the turn.
type Scorer struct {
	client llm.RerankClient
	topN   int
	logger logging.Logger
}

func NewScorer(client llm.RerankClient, topN int, logger logging.Logger) *Scorer {
	if topN <= 0 {
		topN = 8
	}
	return &Scorer{client: client, topN: topN, logger: logger}
}

// Rank scores candidates against the query, truncates to the top chunks by
// relevance, and derives confidence. Deterministic for fixed scores:
// equal-relevance ties keep their fused order.
func (s *Scorer) Rank(ctx context.Context, query string, candidates []Candidate) RankedResult {
	if len(candidates) == 0 {
		return RankedResult{Confidence: 0.0}
	}

	var scored []Candidate
	degraded := false
	if s.client == nil {
		scored = fusedFallback(candidates)
		degraded = true
	} else if encoded, err := s.crossEncode(ctx, query, candidates); err != nil {
		rerankCallsTotal.WithLabelValues("error").Inc()
		s.logger.WithError(err).Warn("Rerank failed, falling back to fused scores")
		scored = fusedFallback(candidates)
		degraded = true
	} else {
		rerankCallsTotal.WithLabelValues("success").Inc()
		scored = encoded
	}

	confidence := scoreConfidence(scored)

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Relevance > scored[b].Relevance
	})
	if len(scored) > s.topN {
		scored = scored[:s.topN]
	}

	return RankedResult{Candidates: scored, Confidence: confidence, Degraded: degraded}
}

func (s *Scorer) crossEncode(ctx context.Context, query string, candidates []Candidate) ([]Candidate, error) {
	documents := make([]string, len(candidates))
	for i, c := range candidates {
		documents[i] = c.Chunk.Text
	}

	start := time.Now()
	results, err := s.client.Rerank(ctx, query, documents)
	rerankDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	scored := make([]Candidate, 0, len(results))
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(candidates) {
			continue
		}
		c := candidates[r.Index]
		c.Relevance = clamp01(r.RelevanceScore)
		scored = append(scored, c)
	}
	// Restore fused order so equal-relevance ties break deterministically.
	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score > scored[b].Score
	})
	return scored, nil
}

// fusedFallback uses clamped fused scores as stand-in relevance when the
// cross-encoder is unreachable.
func fusedFallback(candidates []Candidate) []Candidate {
	scored := make([]Candidate, len(candidates))
	for i, c := range candidates {
		c.Relevance = clamp01(c.Score)
		scored[i] = c
	}
	return scored
}

// scoreConfidence derives the turn confidence: the top relevance dominates,
// dampened or boosted by corroborating chunks above the support threshold,
// at most supportCap of which count.
func scoreConfidence(scored []Candidate) float64 {
	if len(scored) == 0 {
		return 0.0
	}
	top := 0.0
	support := 0
	for _, c := range scored {
		if c.Relevance > top {
			top = c.Relevance
		}
		if c.Relevance > supportThreshold {
			support++
		}
	}
	if support > supportCap {
		support = supportCap
	}
	confidence := top*topWeight + float64(support)/float64(supportCap)*supportWeight
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
