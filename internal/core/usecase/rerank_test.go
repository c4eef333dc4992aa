package usecase

import (
	"testing"

	"github.com/tradecorpus/rag-orchestrator/internal/core/domain"
)

func TestRerankOrdersByBlendedScore(t *testing.T) {
	candidates := []domain.Candidate{
		{DocumentID: "weak", Text: "unrelated commodity storage report", LexicalScore: 0.1, VectorScore: 0.1},
		{DocumentID: "strong", Text: "gamma exposure and dealer hedging flows", LexicalScore: 0.9, VectorScore: 0.9},
	}

	out := rerankCandidates("gamma exposure hedging", candidates, rerankWeights{}, 0)
	if out[0].DocumentID != "strong" {
		t.Fatalf("expected strong candidate first, got %s", out[0].DocumentID)
	}
	if out[0].FinalScore <= out[1].FinalScore {
		t.Fatalf("expected descending final scores: %f <= %f", out[0].FinalScore, out[1].FinalScore)
	}
	if out[0].RerankScore == 0 {
		t.Fatalf("expected overlap signal recorded on the winner")
	}
}

func TestRerankTruncatesToTopK(t *testing.T) {
	candidates := []domain.Candidate{
		{DocumentID: "a", Text: "x", LexicalScore: 3},
		{DocumentID: "b", Text: "y", LexicalScore: 2},
		{DocumentID: "c", Text: "z", LexicalScore: 1},
	}
	out := rerankCandidates("query", candidates, rerankWeights{}, 2)
	if len(out) != 2 {
		t.Fatalf("expected topK=2 truncation, got %d", len(out))
	}
}

func TestRerankDoesNotMutateInput(t *testing.T) {
	candidates := []domain.Candidate{
		{DocumentID: "b", Text: "beta", LexicalScore: 1},
		{DocumentID: "a", Text: "alpha", LexicalScore: 2},
	}
	_ = rerankCandidates("alpha", candidates, rerankWeights{}, 0)
	if candidates[0].DocumentID != "b" {
		t.Fatalf("input slice order mutated")
	}
	if candidates[0].FinalScore != 0 {
		t.Fatalf("input candidates mutated with scores")
	}
}

func TestRerankTieBreaksOnDocumentID(t *testing.T) {
	candidates := []domain.Candidate{
		{DocumentID: "zeta", Text: "same text", LexicalScore: 1},
		{DocumentID: "alpha", Text: "same text", LexicalScore: 1},
	}
	out := rerankCandidates("same text", candidates, rerankWeights{}, 0)
	if out[0].DocumentID != "alpha" {
		t.Fatalf("expected deterministic id tie-break, got %s first", out[0].DocumentID)
	}
}

func TestRerankFlatChannelCollapsesToPresence(t *testing.T) {
	// All lexical scores equal: the channel must not produce NaN or skew.
	candidates := []domain.Candidate{
		{DocumentID: "a", Text: "volatility smile", LexicalScore: 0.5},
		{DocumentID: "b", Text: "yield curve", LexicalScore: 0.5},
	}
	out := rerankCandidates("volatility smile", candidates, rerankWeights{}, 0)
	for _, candidate := range out {
		if candidate.FinalScore != candidate.FinalScore {
			t.Fatalf("NaN final score for %s", candidate.DocumentID)
		}
	}
	if out[0].DocumentID != "a" {
		t.Fatalf("overlap should decide when channels are flat, got %s first", out[0].DocumentID)
	}
}
