package knowledge

// Variant names the embedded representation of a chunk. Each chunk may be
// indexed under up to three variants to improve recall for colloquial
// phrasing.
type Variant string

const (
	VariantRaw          Variant = "raw"
	VariantSummary      Variant = "summary"
	VariantHypothetical Variant = "hypothetical"
)

// Variants lists every embedded representation queried during dense search.
var Variants = []Variant{VariantRaw, VariantSummary, VariantHypothetical}

// Provenance tags which search mode produced a candidate's score.
type Provenance string

const (
	ProvenanceDense  Provenance = "dense"
	ProvenanceSparse Provenance = "sparse"
	ProvenanceFused  Provenance = "fused"
)

// Chunk is one retrievable unit of a tenant's knowledge base. Ingestion
// writes chunks and their embeddings; this service only reads them.
type Chunk struct {
	ID              string
	TenantID        string
	DocumentID      string
	DocumentVersion int
	SectionHeading  string
	Text            string
	Summary         string
	Hypothetical    string
	IsLatestVersion bool
}

// Candidate is a chunk plus a provenance-tagged score, used only
// transiently within one turn and never persisted.
type Candidate struct {
	Chunk      Chunk
	Provenance Provenance
	// Score is mode-specific: cosine similarity for dense, BM25 for
	// sparse, RRF accumulation for fused.
	Score float64
	// Relevance is the cross-encoder score in [0,1], set by the reranker.
	Relevance float64
}

// SourceRef is the provenance attached to an answered turn.
type SourceRef struct {
	ChunkID        string  `json:"chunk_id"`
	DocumentID     string  `json:"document_id"`
	SectionHeading string  `json:"section_heading,omitempty"`
	Relevance      float64 `json:"relevance"`
}
