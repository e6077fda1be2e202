package knowledge

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func denseRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "document_id", "document_version",
		"section_heading", "chunk_text", "summary", "hypothetical_questions",
		"similarity",
	})
}

func TestSearchDense(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	rows := denseRows().
		AddRow("c1", "tenant-a", "doc-1", 3, "Refunds", "refund text", "summary", "questions", 0.91).
		AddRow("c2", "tenant-a", "doc-1", 3, "Billing", "billing text", "", "", 0.72)
	mock.ExpectQuery("FROM artrix.chunk_embeddings").WillReturnRows(rows)

	store := NewStore(db)
	hits, err := store.SearchDense(context.Background(), "tenant-a", []float32{0.1, 0.2}, VariantRaw, 20)
	if err != nil {
		t.Fatalf("search dense: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Chunk.ID != "c1" || hits[0].Similarity != 0.91 {
		t.Fatalf("unexpected first hit: %+v", hits[0])
	}
	if !hits[0].Chunk.IsLatestVersion {
		t.Fatal("hits must be latest-version chunks")
	}
}

func TestSearchDenseValidation(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	store := NewStore(db)

	if _, err := store.SearchDense(context.Background(), "", []float32{0.1}, VariantRaw, 20); err == nil {
		t.Fatal("expected error for missing tenant")
	}
	if _, err := store.SearchDense(context.Background(), "tenant-a", nil, VariantRaw, 20); err == nil {
		t.Fatal("expected error for missing embedding")
	}
}

func TestScrollLatest(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{
		"id", "tenant_id", "document_id", "document_version",
		"section_heading", "chunk_text", "summary", "hypothetical_questions",
	}).AddRow("c1", "tenant-a", "doc-1", 2, "Intro", "text", "sum", "hyp")
	mock.ExpectQuery("FROM artrix.knowledge_chunks").WithArgs("tenant-a").WillReturnRows(rows)

	store := NewStore(db)
	chunks, err := store.ScrollLatest(context.Background(), "tenant-a")
	if err != nil {
		t.Fatalf("scroll: %v", err)
	}
	if len(chunks) != 1 || chunks[0].DocumentVersion != 2 {
		t.Fatalf("unexpected chunks: %+v", chunks)
	}
}
