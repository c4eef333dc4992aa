package usecase

import (
	"github.com/tradecorpus/rag-orchestrator/internal/core/domain"
)

// mergeCandidates flattens per-(source, variant) result lists into one set,
// deduplicated by document id. The best score per retrieval channel survives
// the merge, so a document found by both lexical and vector search keeps both
// signals for reranking.
func mergeCandidates(lists [][]domain.Candidate) []domain.Candidate {
	acc := make(map[string]domain.Candidate)
	order := make([]string, 0)

	for _, list := range lists {
		for _, candidate := range list {
			key := candidate.DocumentID
			if key == "" {
				key = string(candidate.SourceType) + "|" + candidate.Text
			}
			current, ok := acc[key]
			if !ok {
				acc[key] = candidate
				order = append(order, key)
				continue
			}
			acc[key] = preferRicherCandidate(current, candidate)
		}
	}

	out := make([]domain.Candidate, 0, len(acc))
	for _, key := range order {
		out = append(out, acc[key])
	}
	return out
}

func preferRicherCandidate(current, incoming domain.Candidate) domain.Candidate {
	if incoming.LexicalScore > current.LexicalScore {
		current.LexicalScore = incoming.LexicalScore
	}
	if incoming.VectorScore > current.VectorScore {
		current.VectorScore = incoming.VectorScore
	}
	if current.Text == "" && incoming.Text != "" {
		current.Text = incoming.Text
	}
	if current.Section == "" && incoming.Section != "" {
		current.Section = incoming.Section
	}
	if current.SourceType == "" && incoming.SourceType != "" {
		current.SourceType = incoming.SourceType
	}
	return current
}

// filterPermitted enforces the mode exclusivity invariant after fetching,
// independent of which backend or variant produced a candidate.
func filterPermitted(candidates []domain.Candidate, mode domain.Mode) []domain.Candidate {
	out := make([]domain.Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		if mode.AllowsSource(candidate.SourceType) {
			out = append(out, candidate)
		}
	}
	return out
}
