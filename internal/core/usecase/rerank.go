package usecase

import (
	"sort"

	"github.com/tradecorpus/rag-orchestrator/internal/core/domain"
)

type rerankWeights struct {
	Lexical float64
	Vector  float64
	Overlap float64
}

func (w rerankWeights) normalize() rerankWeights {
	if w.Lexical <= 0 && w.Vector <= 0 && w.Overlap <= 0 {
		return rerankWeights{Lexical: 0.30, Vector: 0.45, Overlap: 0.25}
	}
	return w
}

// rerankCandidates blends per-channel scores with a cross-encoder-style token
// overlap signal, sorts by the blended score with a stable tie-break, and
// truncates to topK.
func rerankCandidates(question string, candidates []domain.Candidate, weights rerankWeights, topK int) []domain.Candidate {
	if len(candidates) == 0 {
		return candidates
	}
	weights = weights.normalize()

	out := make([]domain.Candidate, len(candidates))
	copy(out, candidates)

	normalizeLexical := scoreNormalizer(out, func(c domain.Candidate) float64 { return c.LexicalScore })
	normalizeVector := scoreNormalizer(out, func(c domain.Candidate) float64 { return c.VectorScore })
	queryTokens := toTokenSet(question)

	for i := range out {
		overlap := tokenOverlap(queryTokens, toTokenSet(out[i].Text))
		out[i].RerankScore = overlap
		out[i].FinalScore = weights.Lexical*normalizeLexical(out[i].LexicalScore) +
			weights.Vector*normalizeVector(out[i].VectorScore) +
			weights.Overlap*overlap
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FinalScore != out[j].FinalScore {
			return out[i].FinalScore > out[j].FinalScore
		}
		return out[i].DocumentID < out[j].DocumentID
	})

	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}

// scoreNormalizer builds a min-max normalizer over the candidate set for one
// channel, collapsing to a presence indicator when all scores are equal.
func scoreNormalizer(candidates []domain.Candidate, score func(domain.Candidate) float64) func(float64) float64 {
	minScore := score(candidates[0])
	maxScore := minScore
	for _, c := range candidates[1:] {
		v := score(c)
		if v < minScore {
			minScore = v
		}
		if v > maxScore {
			maxScore = v
		}
	}

	scoreRange := maxScore - minScore
	return func(v float64) float64 {
		if scoreRange <= 0 {
			if v > 0 {
				return 1
			}
			return 0
		}
		return (v - minScore) / scoreRange
	}
}
