package knowledge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abhilash2429/Artrix-AI/pkg/llm"
	"github.com/abhilash2429/Artrix-AI/pkg/logging"
)

// ErrRetrievalUnavailable signals that neither search mode could reach the
// tenant's index. Callers must not answer a domain query without retrieval,
// so this is surfaced rather than soft-failed.
var ErrRetrievalUnavailable = errors.New("retrieval unavailable")

const rrfConstant = 60

// Retriever runs dense and sparse search over a tenant's index and fuses
// the rankings with reciprocal-rank fusion.
type Retriever struct {
	store         *Store
	sparse        *SparseSearcher
	embedder      llm.EmbeddingClient
	denseK        int
	maxCandidates int
	logger        logging.Logger
}

func NewRetriever(store *Store, sparse *SparseSearcher, embedder llm.EmbeddingClient, denseK, maxCandidates int, logger logging.Logger) *Retriever {
	if denseK <= 0 {
		denseK = 20
	}
	if maxCandidates <= 0 {
		maxCandidates = 20
	}
	return &Retriever{
		store:         store,
		sparse:        sparse,
		embedder:      embedder,
		denseK:        denseK,
		maxCandidates: maxCandidates,
		logger:        logger,
	}
}

// Retrieve returns fused, deduplicated candidates for a query, best first.
// An empty result is a valid outcome (no knowledge matches); an error means
// the index itself was unreachable in every mode.
func (r *Retriever) Retrieve(ctx context.Context, tenantID, query string) ([]Candidate, error) {
	start := time.Now()

	var (
		denseRanked  []Chunk
		sparseRanked []Chunk
		denseErr     error
		sparseErr    error
		wg           sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		denseRanked, denseErr = r.searchDense(ctx, tenantID, query)
	}()
	go func() {
		defer wg.Done()
		sparseRanked, sparseErr = r.searchSparse(ctx, tenantID, query)
	}()
	wg.Wait()

	if denseErr != nil {
		searchErrorsTotal.WithLabelValues("dense").Inc()
		r.logger.WithError(denseErr).WithFields(logging.Fields{"tenant_id": tenantID}).
			Warn("Dense search failed")
	}
	if sparseErr != nil {
		searchErrorsTotal.WithLabelValues("sparse").Inc()
		r.logger.WithError(sparseErr).WithFields(logging.Fields{"tenant_id": tenantID}).
			Warn("Sparse search failed")
	}
	if denseErr != nil && sparseErr != nil {
		return nil, fmt.Errorf("%w: dense: %v; sparse: %v", ErrRetrievalUnavailable, denseErr, sparseErr)
	}

	candidates := fuse(denseRanked, sparseRanked, r.maxCandidates)

	retrievalDuration.Observe(time.Since(start).Seconds())
	retrievalCandidates.Observe(float64(len(candidates)))
	return candidates, nil
}

// searchDense embeds the query once, queries every embedded variant
// concurrently, and keeps the best similarity per chunk.
func (r *Retriever) searchDense(ctx context.Context, tenantID, query string) ([]Chunk, error) {
	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	vector := vectors[0]

	var mu sync.Mutex
	best := make(map[string]DenseHit)

	g, gctx := errgroup.WithContext(ctx)
	for _, variant := range Variants {
		variant := variant
		g.Go(func() error {
			hits, err := r.store.SearchDense(gctx, tenantID, vector, variant, r.denseK)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for _, hit := range hits {
				if prev, ok := best[hit.Chunk.ID]; !ok || hit.Similarity > prev.Similarity {
					best[hit.Chunk.ID] = hit
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make([]DenseHit, 0, len(best))
	for _, hit := range best {
		merged = append(merged, hit)
	}
	sort.SliceStable(merged, func(a, b int) bool {
		if merged[a].Similarity != merged[b].Similarity {
			return merged[a].Similarity > merged[b].Similarity
		}
		return merged[a].Chunk.ID < merged[b].Chunk.ID
	})

	ranked := make([]Chunk, len(merged))
	for i, hit := range merged {
		ranked[i] = hit.Chunk
	}
	return ranked, nil
}

func (r *Retriever) searchSparse(ctx context.Context, tenantID, query string) ([]Chunk, error) {
	hits, err := r.sparse.Search(ctx, tenantID, query, r.denseK)
	if err != nil {
		return nil, err
	}
	ranked := make([]Chunk, len(hits))
	for i, hit := range hits {
		ranked[i] = hit.Chunk
	}
	return ranked, nil
}

// fuse combines the two ranked lists with reciprocal-rank fusion: each
// chunk accumulates 1/(rank+c) from every list it appears in. Chunks seen
// by both modes are tagged fused.
func fuse(denseRanked, sparseRanked []Chunk, limit int) []Candidate {
	type fusedEntry struct {
		chunk     Chunk
		score     float64
		inDense   bool
		inSparse  bool
		firstSeen int
	}

	entries := make(map[string]*fusedEntry)
	order := 0
	accumulate := func(ranked []Chunk, dense bool) {
		for rank, chunk := range ranked {
			entry, ok := entries[chunk.ID]
			if !ok {
				entry = &fusedEntry{chunk: chunk, firstSeen: order}
				order++
				entries[chunk.ID] = entry
			}
			entry.score += 1.0 / float64(rank+1+rrfConstant)
			if dense {
				entry.inDense = true
			} else {
				entry.inSparse = true
			}
		}
	}
	accumulate(denseRanked, true)
	accumulate(sparseRanked, false)

	fusedList := make([]*fusedEntry, 0, len(entries))
	for _, entry := range entries {
		fusedList = append(fusedList, entry)
	}
	sort.SliceStable(fusedList, func(a, b int) bool {
		if fusedList[a].score != fusedList[b].score {
			return fusedList[a].score > fusedList[b].score
		}
		return fusedList[a].firstSeen < fusedList[b].firstSeen
	})
	if len(fusedList) > limit {
		fusedList = fusedList[:limit]
	}

	candidates := make([]Candidate, len(fusedList))
	for i, entry := range fusedList {
		provenance := ProvenanceFused
		if entry.inDense && !entry.inSparse {
			provenance = ProvenanceDense
		} else if entry.inSparse && !entry.inDense {
			provenance = ProvenanceSparse
		}
		candidates[i] = Candidate{
			Chunk:      entry.chunk,
			Provenance: provenance,
			Score:      entry.score,
		}
	}
	return candidates
}
