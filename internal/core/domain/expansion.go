package domain

import "time"

// ExpansionResult holds retrieval-friendly rewrites of a query. The HyDE
// variant, when present, is part of ExpandedQueries and is never shown to
// the caller as answer text.
type ExpansionResult struct {
	OriginalQuery   string              `json:"original_query"`
	ExpandedQueries []string            `json:"expanded_queries"`
	Synonyms        map[string][]string `json:"synonyms,omitempty"`
	ContextTerms    []string            `json:"context_terms,omitempty"`
	ConfidenceScore float64             `json:"confidence_score"`
	Latency         time.Duration       `json:"latency_ns"`
	FromCache       bool                `json:"from_cache"`
}

// Variants returns the original query followed by its expansions, the fan-out
// set the orchestrator retrieves over.
func (r ExpansionResult) Variants() []string {
	out := make([]string, 0, len(r.ExpandedQueries)+1)
	out = append(out, r.OriginalQuery)
	out = append(out, r.ExpandedQueries...)
	return out
}
