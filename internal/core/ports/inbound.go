package ports

import (
	"context"

	"github.com/tradecorpus/rag-orchestrator/internal/core/domain"
)

// QuestionAnswerer is the inbound contract for the full ask pipeline.
type QuestionAnswerer interface {
	Ask(ctx context.Context, query domain.Query) (*domain.Answer, error)
}

// QueryAnalyzer scores a query and recommends model/retrieval parameters.
type QueryAnalyzer interface {
	Analyze(query string, history []domain.ConversationTurn) (domain.ComplexityProfile, error)
}

// QueryExpander produces retrieval-friendly variants of a query.
type QueryExpander interface {
	Expand(ctx context.Context, query string, level domain.ComplexityLevel) (domain.ExpansionResult, error)
}

// CandidateRetriever runs retrieval orchestration without answer generation.
type CandidateRetriever interface {
	Retrieve(ctx context.Context, query domain.Query) ([]domain.Candidate, domain.RetrievalStats, error)
}
