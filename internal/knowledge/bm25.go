package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	goredis "github.com/redis/go-redis/v9"

	"github.com/abhilash2429/Artrix-AI/pkg/logging"
)

const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// SparseHit is a chunk with its BM25 score.
type SparseHit struct {
	Chunk Chunk
	Score float64
}

// sparseDoc is one tokenized corpus entry, cached in Redis.
type sparseDoc struct {
	Chunk  Chunk          `json:"chunk"`
	Terms  map[string]int `json:"terms"`
	Length int            `json:"length"`
}

// SparseSearcher scores a tenant's latest-version chunks with Okapi BM25.
// The tokenized corpus is rebuilt from Postgres at most once per TTL and
// cached in Redis; ingestion calls InvalidateCache after index updates.
type SparseSearcher struct {
	store  *Store
	cache  *goredis.Client
	ttl    time.Duration
	logger logging.Logger
}

func NewSparseSearcher(store *Store, cache *goredis.Client, ttl time.Duration, logger logging.Logger) *SparseSearcher {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SparseSearcher{store: store, cache: cache, ttl: ttl, logger: logger}
}

func sparseCorpusKey(tenantID string) string {
	return "artrix:sparse_corpus:" + tenantID
}

// Search returns up to k chunks with positive BM25 scores, best first.
func (s *SparseSearcher) Search(ctx context.Context, tenantID, query string, k int) ([]SparseHit, error) {
	if k <= 0 {
		k = 20
	}
	queryTerms := tokenize(query)
	if len(queryTerms) == 0 {
		return nil, nil
	}

	docs, err := s.loadCorpus(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return bm25Rank(docs, queryTerms, k), nil
}

// bm25Rank scores every corpus document against the query terms and
// returns up to k positive-score hits, best first.
func bm25Rank(docs []sparseDoc, queryTerms []string, k int) []SparseHit {
	if len(docs) == 0 {
		return nil
	}

	n := float64(len(docs))
	totalLen := 0
	docFreq := make(map[string]int)
	for _, doc := range docs {
		totalLen += doc.Length
		for term := range doc.Terms {
			docFreq[term]++
		}
	}
	avgLen := float64(totalLen) / n
	if avgLen == 0 {
		return nil
	}

	hits := make([]SparseHit, 0, k)
	for _, doc := range docs {
		var score float64
		for _, term := range queryTerms {
			tf := float64(doc.Terms[term])
			if tf == 0 {
				continue
			}
			df := float64(docFreq[term])
			idf := math.Log(1 + (n-df+0.5)/(df+0.5))
			norm := tf * (bm25K1 + 1) / (tf + bm25K1*(1-bm25B+bm25B*float64(doc.Length)/avgLen))
			score += idf * norm
		}
		if score > 0 {
			hits = append(hits, SparseHit{Chunk: doc.Chunk, Score: score})
		}
	}

	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// InvalidateCache drops the cached corpus so the next search rebuilds it.
func (s *SparseSearcher) InvalidateCache(ctx context.Context, tenantID string) error {
	if err := s.cache.Del(ctx, sparseCorpusKey(tenantID)).Err(); err != nil {
		return fmt.Errorf("invalidate sparse corpus cache: %w", err)
	}
	return nil
}

func (s *SparseSearcher) loadCorpus(ctx context.Context, tenantID string) ([]sparseDoc, error) {
	key := sparseCorpusKey(tenantID)
	if cached, err := s.cache.Get(ctx, key).Bytes(); err == nil {
		var docs []sparseDoc
		if err := json.Unmarshal(cached, &docs); err == nil {
			return docs, nil
		}
		s.logger.WithFields(logging.Fields{"tenant_id": tenantID}).
			Warn("Discarding undecodable sparse corpus cache entry")
	} else if err != goredis.Nil {
		// Cache trouble is not fatal, the corpus can come from Postgres.
		s.logger.WithError(err).Warn("Sparse corpus cache read failed")
	}

	chunks, err := s.store.ScrollLatest(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("build sparse corpus: %w", err)
	}

	docs := make([]sparseDoc, 0, len(chunks))
	for _, chunk := range chunks {
		tokens := tokenize(chunk.SectionHeading + " " + chunk.Text)
		terms := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			terms[tok]++
		}
		docs = append(docs, sparseDoc{Chunk: chunk, Terms: terms, Length: len(tokens)})
	}

	if payload, err := json.Marshal(docs); err == nil {
		if err := s.cache.Set(ctx, key, payload, s.ttl).Err(); err != nil {
			s.logger.WithError(err).Warn("Sparse corpus cache write failed")
		}
	}
	return docs, nil
}

// tokenize lower-cases and splits on non-alphanumeric runes, dropping
// single-character tokens.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) >= 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
