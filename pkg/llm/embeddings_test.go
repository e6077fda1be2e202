package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewEmbeddingClientRequiresModel(t *testing.T) {
	_, err := NewEmbeddingClient(Config{})
	if err == nil {
		t.Fatal("expected error for empty model")
	}
}

func TestEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(req.Input) != 2 {
			t.Fatalf("expected 2 inputs, got %d", len(req.Input))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": [
			{"embedding": [0.1, 0.2, 0.3]},
			{"embedding": [0.4, 0.5, 0.6]}
		]}`))
	}))
	defer srv.Close()

	client, err := NewEmbeddingClient(Config{Model: "text-embedding-3-small", APIURL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	vectors, err := client.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vectors) != 2 || len(vectors[0]) != 3 {
		t.Fatalf("unexpected vectors: %v", vectors)
	}
	if vectors[1][2] != 0.6 {
		t.Fatalf("unexpected value: %f", vectors[1][2])
	}
}

func TestEmbedRejectsEmptyInputs(t *testing.T) {
	client, err := NewEmbeddingClient(Config{Model: "m"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Embed(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty inputs")
	}
}

func TestEmbedCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"data": [{"embedding": [0.1]}]}`))
	}))
	defer srv.Close()

	client, err := NewEmbeddingClient(Config{Model: "m", APIURL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected error for vector count mismatch")
	}
}

func TestProbeEmbeddingDimensions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"data": [{"embedding": [0.1, 0.2, 0.3, 0.4]}]}`))
	}))
	defer srv.Close()

	client, err := NewEmbeddingClient(Config{Model: "m", APIURL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	dims, err := ProbeEmbeddingDimensions(context.Background(), client)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if dims != 4 {
		t.Fatalf("expected 4 dimensions, got %d", dims)
	}
}
