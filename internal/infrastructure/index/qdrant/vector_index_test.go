package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tradecorpus/rag-orchestrator/internal/core/domain"
)

func TestSearchSendsSourceTypeFilter(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/chunks/points/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{
					"score": 0.91,
					"payload": map[string]any{
						"doc_id":      "doc-1",
						"section":     "risk",
						"source_type": "pdf",
						"text":        "initial margin",
					},
				},
			},
		})
	}))
	defer server.Close()

	index := New(server.URL, "chunks")
	candidates, err := index.Search(context.Background(), []float32{0.1, 0.2}, 8,
		[]domain.SourceType{domain.SourcePDF, domain.SourceVideoTranscript})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	got := candidates[0]
	if got.DocumentID != "doc-1" || got.VectorScore != 0.91 || got.SourceType != domain.SourcePDF {
		t.Fatalf("unexpected candidate: %+v", got)
	}

	filter, ok := captured["filter"].(map[string]any)
	if !ok {
		t.Fatalf("expected filter in request, got %v", captured)
	}
	must, ok := filter["must"].([]any)
	if !ok || len(must) != 1 {
		t.Fatalf("expected single must clause, got %v", filter)
	}
	clause := must[0].(map[string]any)
	if clause["key"] != "source_type" {
		t.Fatalf("expected source_type filter key, got %v", clause["key"])
	}
	match := clause["match"].(map[string]any)
	anyList, ok := match["any"].([]any)
	if !ok || len(anyList) != 2 {
		t.Fatalf("expected two permitted source types, got %v", match)
	}
}

func TestSearchReturnsEmptyForNoPermittedSources(t *testing.T) {
	index := New("http://127.0.0.1:1", "chunks")
	candidates, err := index.Search(context.Background(), []float32{0.1}, 8, nil)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("expected no candidates, got %d", len(candidates))
	}
}

func TestSearchSurfacesBackendErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "collection not found", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	index := New(server.URL, "chunks")
	_, err := index.Search(context.Background(), []float32{0.1}, 8, []domain.SourceType{domain.SourcePDF})
	if !domain.IsKind(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestEnsureCollectionTreatsConflictAsSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer server.Close()

	index := New(server.URL, "chunks")
	if err := index.EnsureCollection(context.Background(), 768); err != nil {
		t.Fatalf("EnsureCollection() error = %v", err)
	}
}
