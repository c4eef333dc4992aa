package ports

import (
	"context"
	"time"

	"github.com/tradecorpus/rag-orchestrator/internal/core/domain"
)

type GenerationRequest struct {
	Model       string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// TextGenerator is the external generation backend.
type TextGenerator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// Embedder builds a dense vector for query text.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// LexicalIndex performs BM25-style keyword retrieval.
type LexicalIndex interface {
	Search(ctx context.Context, query string, limit int, sources []domain.SourceType) ([]domain.Candidate, error)
}

// VectorIndex performs dense similarity retrieval.
type VectorIndex interface {
	Search(ctx context.Context, vector []float32, limit int, sources []domain.SourceType) ([]domain.Candidate, error)
}

// ExpansionCache stores expansion results by fingerprint, best effort only:
// callers must always be able to recompute on miss.
type ExpansionCache interface {
	Get(key string) (domain.ExpansionResult, bool)
	Put(key string, value domain.ExpansionResult, ttl time.Duration)
	Invalidate(key string)
}

// QueryTracker records per-request outcomes for the rolling monitor.
type QueryTracker interface {
	Track(query, model string, responseTimeSeconds float64, queryType string, success bool)
}

// TelemetryPublisher fans query events out to an external sink, best effort.
type TelemetryPublisher interface {
	PublishQueryEvent(ctx context.Context, event domain.QueryEvent) error
}
