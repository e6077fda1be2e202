package knowledge

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/abhilash2429/Artrix-AI/pkg/llm"
	"github.com/abhilash2429/Artrix-AI/pkg/logging"
)

type fakeRerankClient struct {
	results []llm.RerankResult
	err     error
	calls   int
}

func (f *fakeRerankClient) Rerank(_ context.Context, _ string, _ []string) ([]llm.RerankResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func candidatesWithScores(fused ...float64) []Candidate {
	out := make([]Candidate, len(fused))
	for i, score := range fused {
		out[i] = Candidate{
			Chunk: Chunk{ID: fmt.Sprintf("chunk-%d", i), Text: fmt.Sprintf("text %d", i)},
			Score: score,
		}
	}
	return out
}

func approx(t *testing.T, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected %.6f, got %.6f", want, got)
	}
}

func TestRankEmptyCandidates(t *testing.T) {
	s := NewScorer(&fakeRerankClient{}, 8, logging.NewLogger())
	result := s.Rank(context.Background(), "query", nil)
	if result.Confidence != 0.0 {
		t.Fatalf("expected exactly 0.0 confidence, got %f", result.Confidence)
	}
	if len(result.Candidates) != 0 {
		t.Fatalf("expected no candidates, got %d", len(result.Candidates))
	}
}

func TestConfidenceSingleStrongMatch(t *testing.T) {
	// top 1.0, one chunk above 0.4: 1.0*0.85 + 1/10*0.15 = 0.865
	client := &fakeRerankClient{results: []llm.RerankResult{{Index: 0, RelevanceScore: 1.0}}}
	s := NewScorer(client, 8, logging.NewLogger())

	result := s.Rank(context.Background(), "q", candidatesWithScores(0.02))
	approx(t, result.Confidence, 0.865)
}

func TestConfidenceFullSupport(t *testing.T) {
	// top 0.9 with ten chunks above 0.4: 0.9*0.85 + 0.15 = 0.915
	var results []llm.RerankResult
	for i := 0; i < 10; i++ {
		score := 0.5
		if i == 0 {
			score = 0.9
		}
		results = append(results, llm.RerankResult{Index: i, RelevanceScore: score})
	}
	client := &fakeRerankClient{results: results}
	s := NewScorer(client, 8, logging.NewLogger())

	fused := make([]float64, 10)
	for i := range fused {
		fused[i] = 0.02 - float64(i)*0.001
	}
	result := s.Rank(context.Background(), "q", candidatesWithScores(fused...))
	approx(t, result.Confidence, 0.915)
}

func TestConfidenceExcludesWeakSupport(t *testing.T) {
	// relevance 0.4 is not strictly above the threshold; only the top
	// chunk counts: 0.8*0.85 + 1/10*0.15 = 0.695
	client := &fakeRerankClient{results: []llm.RerankResult{
		{Index: 0, RelevanceScore: 0.8},
		{Index: 1, RelevanceScore: 0.4},
		{Index: 2, RelevanceScore: 0.3},
	}}
	s := NewScorer(client, 8, logging.NewLogger())

	result := s.Rank(context.Background(), "q", candidatesWithScores(0.03, 0.02, 0.01))
	approx(t, result.Confidence, 0.695)
}

func TestConfidenceMixedSupport(t *testing.T) {
	// top 0.95, three chunks above 0.4: 0.95*0.85 + 3/10*0.15 = 0.8525
	client := &fakeRerankClient{results: []llm.RerankResult{
		{Index: 0, RelevanceScore: 0.95},
		{Index: 1, RelevanceScore: 0.6},
		{Index: 2, RelevanceScore: 0.45},
		{Index: 3, RelevanceScore: 0.1},
	}}
	s := NewScorer(client, 8, logging.NewLogger())

	result := s.Rank(context.Background(), "q", candidatesWithScores(0.04, 0.03, 0.02, 0.01))
	approx(t, result.Confidence, 0.8525)
}

func TestConfidenceCappedAtOne(t *testing.T) {
	var results []llm.RerankResult
	for i := 0; i < 12; i++ {
		results = append(results, llm.RerankResult{Index: i, RelevanceScore: 1.0})
	}
	client := &fakeRerankClient{results: results}
	s := NewScorer(client, 8, logging.NewLogger())

	fused := make([]float64, 12)
	for i := range fused {
		fused[i] = 0.02
	}
	result := s.Rank(context.Background(), "q", candidatesWithScores(fused...))
	if result.Confidence != 1.0 {
		t.Fatalf("expected confidence capped at 1.0, got %f", result.Confidence)
	}
}

func TestRankTruncatesToTopN(t *testing.T) {
	var results []llm.RerankResult
	for i := 0; i < 12; i++ {
		results = append(results, llm.RerankResult{Index: i, RelevanceScore: float64(12-i) / 12})
	}
	client := &fakeRerankClient{results: results}
	s := NewScorer(client, 8, logging.NewLogger())

	fused := make([]float64, 12)
	for i := range fused {
		fused[i] = 0.05 - float64(i)*0.001
	}
	result := s.Rank(context.Background(), "q", candidatesWithScores(fused...))
	if len(result.Candidates) != 8 {
		t.Fatalf("expected 8 candidates, got %d", len(result.Candidates))
	}
	if result.Candidates[0].Chunk.ID != "chunk-0" {
		t.Fatalf("unexpected top candidate: %s", result.Candidates[0].Chunk.ID)
	}
}

func TestRankTieBreaksByFusedOrder(t *testing.T) {
	// chunk-1 has the higher fused score, so on equal relevance it must
	// come first even though the reranker listed chunk-0 first.
	client := &fakeRerankClient{results: []llm.RerankResult{
		{Index: 0, RelevanceScore: 0.7},
		{Index: 1, RelevanceScore: 0.7},
	}}
	s := NewScorer(client, 8, logging.NewLogger())

	candidates := []Candidate{
		{Chunk: Chunk{ID: "chunk-0", Text: "a"}, Score: 0.01},
		{Chunk: Chunk{ID: "chunk-1", Text: "b"}, Score: 0.02},
	}
	result := s.Rank(context.Background(), "q", candidates)
	if result.Candidates[0].Chunk.ID != "chunk-1" {
		t.Fatalf("expected fused order to break the tie, got %s first", result.Candidates[0].Chunk.ID)
	}
}

func TestRankFallsBackOnRerankFailure(t *testing.T) {
	client := &fakeRerankClient{err: errors.New("rerank provider down")}
	s := NewScorer(client, 8, logging.NewLogger())

	result := s.Rank(context.Background(), "q", []Candidate{
		{Chunk: Chunk{ID: "chunk-0", Text: "a"}, Score: 0.9},
		{Chunk: Chunk{ID: "chunk-1", Text: "b"}, Score: 1.7},
	})
	if !result.Degraded {
		t.Fatal("expected degraded result")
	}
	if result.Candidates[0].Chunk.ID != "chunk-1" {
		t.Fatalf("expected fused order, got %s first", result.Candidates[0].Chunk.ID)
	}
	// Fused scores are clamped into [0,1] before use as relevance.
	if result.Candidates[0].Relevance != 1.0 {
		t.Fatalf("expected clamped relevance 1.0, got %f", result.Candidates[0].Relevance)
	}
	// top 1.0, two above 0.4: 0.85 + 0.03 = 0.88
	approx(t, result.Confidence, 0.88)
}
