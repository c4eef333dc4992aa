package usecase

import (
	"testing"

	"github.com/tradecorpus/rag-orchestrator/internal/core/domain"
)

func TestMergeCandidatesDeduplicatesByDocumentID(t *testing.T) {
	lists := [][]domain.Candidate{
		{
			{DocumentID: "doc-1", Text: "settlement cycle", SourceType: domain.SourcePDF, LexicalScore: 0.8},
			{DocumentID: "doc-2", Text: "clearing house margin", SourceType: domain.SourcePDF, LexicalScore: 0.5},
		},
		{
			{DocumentID: "doc-1", Text: "settlement cycle", SourceType: domain.SourcePDF, VectorScore: 0.9},
		},
	}

	merged := mergeCandidates(lists)
	if len(merged) != 2 {
		t.Fatalf("expected 2 merged candidates, got %d", len(merged))
	}
	first := merged[0]
	if first.DocumentID != "doc-1" {
		t.Fatalf("expected insertion order preserved, got %s first", first.DocumentID)
	}
	if first.LexicalScore != 0.8 || first.VectorScore != 0.9 {
		t.Fatalf("expected both channel scores to survive the merge, got %+v", first)
	}
}

func TestMergeCandidatesKeepsBestScorePerChannel(t *testing.T) {
	lists := [][]domain.Candidate{
		{{DocumentID: "doc-1", LexicalScore: 0.3, VectorScore: 0.6}},
		{{DocumentID: "doc-1", LexicalScore: 0.7, VectorScore: 0.2}},
	}
	merged := mergeCandidates(lists)
	if len(merged) != 1 {
		t.Fatalf("expected single candidate, got %d", len(merged))
	}
	if merged[0].LexicalScore != 0.7 || merged[0].VectorScore != 0.6 {
		t.Fatalf("expected per-channel maxima, got %+v", merged[0])
	}
}

func TestMergeCandidatesFallsBackToContentKey(t *testing.T) {
	lists := [][]domain.Candidate{
		{{Text: "anonymous chunk", SourceType: domain.SourceWeb, LexicalScore: 0.4}},
		{{Text: "anonymous chunk", SourceType: domain.SourceWeb, VectorScore: 0.5}},
		{{Text: "anonymous chunk", SourceType: domain.SourcePDF, LexicalScore: 0.1}},
	}
	merged := mergeCandidates(lists)
	// Same text under different source types stays distinct.
	if len(merged) != 2 {
		t.Fatalf("expected 2 candidates after content-key dedupe, got %d", len(merged))
	}
}

func TestFilterPermittedDropsOutOfModeSources(t *testing.T) {
	candidates := []domain.Candidate{
		{DocumentID: "a", SourceType: domain.SourcePDF},
		{DocumentID: "b", SourceType: domain.SourceWeb},
		{DocumentID: "c", SourceType: domain.SourceObsidianNote},
		{DocumentID: "d", SourceType: domain.SourceVideoTranscript},
	}

	qa := filterPermitted(candidates, domain.ModeQA)
	for _, candidate := range qa {
		if candidate.SourceType == domain.SourceWeb || candidate.SourceType == domain.SourceObsidianNote {
			t.Fatalf("qa mode surfaced %s", candidate.SourceType)
		}
	}
	if len(qa) != 2 {
		t.Fatalf("expected 2 qa candidates, got %d", len(qa))
	}

	web := filterPermitted(candidates, domain.ModeWeb)
	if len(web) != 1 || web[0].SourceType != domain.SourceWeb {
		t.Fatalf("web mode must surface only web sources, got %+v", web)
	}

	research := filterPermitted(candidates, domain.ModeResearch)
	for _, candidate := range research {
		if candidate.SourceType == domain.SourceObsidianNote {
			t.Fatalf("research mode surfaced obsidian note")
		}
	}
	if len(research) != 3 {
		t.Fatalf("expected 3 research candidates, got %d", len(research))
	}
}
