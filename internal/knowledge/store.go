package knowledge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"
)

// DenseHit is a chunk with its vector similarity for one embedded variant.
type DenseHit struct {
	Chunk      Chunk
	Similarity float64
}

// Store queries a tenant's chunk index in Postgres. Retrieval is strictly
// read-only and always filtered to is_latest_version so stale document
// versions never surface, regardless of what ingestion is doing.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// SearchDense returns the k nearest latest-version chunks to the query
// vector under one embedded variant, with cosine similarity attached.
func (s *Store) SearchDense(ctx context.Context, tenantID string, embedding []float32, variant Variant, k int) ([]DenseHit, error) {
	if tenantID == "" {
		return nil, errors.New("tenant id is required")
	}
	if len(embedding) == 0 {
		return nil, errors.New("embedding is required")
	}
	if k <= 0 {
		k = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id,
			c.tenant_id,
			c.document_id,
			c.document_version,
			c.section_heading,
			c.chunk_text,
			c.summary,
			c.hypothetical_questions,
			1 - (e.embedding <=> $2) AS similarity
		FROM artrix.chunk_embeddings e
		JOIN artrix.knowledge_chunks c ON c.id = e.chunk_id
		WHERE c.tenant_id = $1
		  AND e.variant = $3
		  AND c.is_latest_version = TRUE
		ORDER BY e.embedding <=> $2
		LIMIT $4
	`, tenantID, pgvector.NewVector(embedding), string(variant), k)
	if err != nil {
		return nil, fmt.Errorf("dense search (%s): %w", variant, err)
	}
	defer rows.Close()

	var hits []DenseHit
	for rows.Next() {
		var hit DenseHit
		if err := rows.Scan(
			&hit.Chunk.ID,
			&hit.Chunk.TenantID,
			&hit.Chunk.DocumentID,
			&hit.Chunk.DocumentVersion,
			&hit.Chunk.SectionHeading,
			&hit.Chunk.Text,
			&hit.Chunk.Summary,
			&hit.Chunk.Hypothetical,
			&hit.Similarity,
		); err != nil {
			return nil, fmt.Errorf("scan dense hit: %w", err)
		}
		hit.Chunk.IsLatestVersion = true
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dense hits: %w", err)
	}

	return hits, nil
}

// ScrollLatest returns every latest-version chunk for a tenant. Used to
// build the sparse-search corpus, which is then cached.
func (s *Store) ScrollLatest(ctx context.Context, tenantID string) ([]Chunk, error) {
	if tenantID == "" {
		return nil, errors.New("tenant id is required")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id,
			tenant_id,
			document_id,
			document_version,
			section_heading,
			chunk_text,
			summary,
			hypothetical_questions
		FROM artrix.knowledge_chunks
		WHERE tenant_id = $1
		  AND is_latest_version = TRUE
		ORDER BY document_id, id
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("scroll latest chunks: %w", err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var chunk Chunk
		if err := rows.Scan(
			&chunk.ID,
			&chunk.TenantID,
			&chunk.DocumentID,
			&chunk.DocumentVersion,
			&chunk.SectionHeading,
			&chunk.Text,
			&chunk.Summary,
			&chunk.Hypothetical,
		); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunk.IsLatestVersion = true
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}

	return chunks, nil
}
