package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tradecorpus/rag-orchestrator/internal/core/domain"
	"github.com/tradecorpus/rag-orchestrator/internal/core/ports"
)

type OrchestratorSettings struct {
	RerankWeightLexical float64
	RerankWeightVector  float64
	RerankWeightOverlap float64

	Timeout time.Duration

	ExpansionEnabled bool
	// Expansions scoring below this are discarded in favor of the caller's
	// original wording.
	ExpansionConfidenceMin float64
	// Paraphrase fan-out buys nothing when a mode maps to a single source
	// type backed by one index.
	SkipExpansionSingleSource bool
}

func (s OrchestratorSettings) normalize() OrchestratorSettings {
	out := s
	if out.Timeout <= 0 {
		out.Timeout = 15 * time.Second
	}
	return out
}

// RetrievalOrchestrator fans query variants out across the mode's permitted
// sources, merges and reranks the candidates, and enforces source exclusivity.
type RetrievalOrchestrator struct {
	analyzer ports.QueryAnalyzer
	expander ports.QueryExpander
	embedder ports.Embedder
	lexical  ports.LexicalIndex
	vector   ports.VectorIndex
	settings OrchestratorSettings
}

func NewRetrievalOrchestrator(
	analyzer ports.QueryAnalyzer,
	expander ports.QueryExpander,
	embedder ports.Embedder,
	lexical ports.LexicalIndex,
	vector ports.VectorIndex,
	settings OrchestratorSettings,
) *RetrievalOrchestrator {
	return &RetrievalOrchestrator{
		analyzer: analyzer,
		expander: expander,
		embedder: embedder,
		lexical:  lexical,
		vector:   vector,
		settings: settings.normalize(),
	}
}

func (o *RetrievalOrchestrator) Retrieve(ctx context.Context, query domain.Query) ([]domain.Candidate, domain.RetrievalStats, error) {
	start := time.Now()
	stats := domain.RetrievalStats{Mode: query.Mode}

	text := strings.TrimSpace(query.Text)
	if text == "" {
		return nil, stats, domain.WrapError(domain.ErrInvalidInput, "retrieve", fmt.Errorf("query text is empty"))
	}
	sources := query.Mode.PermittedSources()
	if len(sources) == 0 {
		return nil, stats, domain.WrapError(domain.ErrInvalidInput, "retrieve", fmt.Errorf("mode %q has no permitted sources", query.Mode))
	}

	profile, err := o.analyzer.Analyze(text, query.History)
	if err != nil {
		return nil, stats, err
	}
	params := profile.Recommendation.RetrievalParams
	if query.TopK > 0 {
		params.RerankTopK = query.TopK
	}

	variants := []string{text}
	if o.shouldExpand(query, sources) {
		expansion, expErr := o.expander.Expand(ctx, text, profile.Level)
		switch {
		case expErr != nil:
			// Degrade to the unexpanded query, never fail the request here.
			slog.Warn("query_expansion_failed", "mode", string(query.Mode), "error", expErr)
		case expansion.ConfidenceScore < o.settings.ExpansionConfidenceMin:
			// Degenerate rewrites hurt recall more than they help.
			slog.Warn("query_expansion_low_confidence",
				"mode", string(query.Mode),
				"confidence", expansion.ConfidenceScore,
				"threshold", o.settings.ExpansionConfidenceMin)
		default:
			variants = expansion.Variants()
			stats.ExpansionUsed = len(expansion.ExpandedQueries) > 0
		}
	}
	stats.VariantCount = len(variants)

	fetchCtx, cancel := context.WithTimeout(ctx, o.settings.Timeout)
	defer cancel()

	vectors := o.embedVariants(fetchCtx, variants)
	lists, total, failed := o.fetchCandidates(fetchCtx, sources, variants, vectors, params)
	stats.SubQueriesTotal = total
	stats.SubQueriesFailed = failed
	stats.Degraded = fetchCtx.Err() != nil

	if total > 0 && failed == total {
		stats.DurationSeconds = time.Since(start).Seconds()
		return nil, stats, domain.WrapError(domain.ErrBackendUnavailable, "retrieve", fmt.Errorf("all %d sub-queries failed", total))
	}

	merged := mergeCandidates(lists)
	for _, list := range lists {
		stats.CandidatesFetched += len(list)
	}

	allowed := filterPermitted(merged, query.Mode)
	stats.CandidatesMerged = len(allowed)

	reranked := rerankCandidates(text, allowed, rerankWeights{
		Lexical: o.settings.RerankWeightLexical,
		Vector:  o.settings.RerankWeightVector,
		Overlap: o.settings.RerankWeightOverlap,
	}, params.RerankTopK)

	stats.DurationSeconds = time.Since(start).Seconds()
	return reranked, stats, nil
}

func (o *RetrievalOrchestrator) shouldExpand(query domain.Query, sources []domain.SourceType) bool {
	if !o.settings.ExpansionEnabled || query.DisableExpansion {
		return false
	}
	if o.settings.SkipExpansionSingleSource && len(sources) == 1 {
		return false
	}
	return o.expander != nil
}

// embedVariants computes one dense vector per variant; a failed embedding
// leaves a nil slot and that variant skips vector retrieval.
func (o *RetrievalOrchestrator) embedVariants(ctx context.Context, variants []string) [][]float32 {
	vectors := make([][]float32, len(variants))
	if o.embedder == nil {
		return vectors
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for i, variant := range variants {
		i, variant := i, variant
		group.Go(func() error {
			vector, err := o.embedder.EmbedQuery(groupCtx, variant)
			if err != nil {
				slog.Warn("variant_embedding_failed", "error", err)
				return nil
			}
			vectors[i] = vector
			return nil
		})
	}
	_ = group.Wait()
	return vectors
}

// fetchCandidates runs the lexical and vector fetch for every (source,
// variant) pair concurrently. Individual failures are counted and excluded.
func (o *RetrievalOrchestrator) fetchCandidates(
	ctx context.Context,
	sources []domain.SourceType,
	variants []string,
	vectors [][]float32,
	params domain.RetrievalParams,
) (lists [][]domain.Candidate, total, failed int) {
	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)

	collect := func(fetch func(context.Context) ([]domain.Candidate, error)) {
		total++
		group.Go(func() error {
			candidates, err := fetch(groupCtx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				return nil
			}
			lists = append(lists, candidates)
			return nil
		})
	}

	for _, source := range sources {
		source := source
		for i, variant := range variants {
			i, variant := i, variant
			collect(func(ctx context.Context) ([]domain.Candidate, error) {
				return o.lexical.Search(ctx, variant, params.LexicalTopK, []domain.SourceType{source})
			})
			if vectors[i] == nil {
				continue
			}
			vector := vectors[i]
			collect(func(ctx context.Context) ([]domain.Candidate, error) {
				return o.vector.Search(ctx, vector, params.VectorTopK, []domain.SourceType{source})
			})
		}
	}

	_ = group.Wait()
	return lists, total, failed
}
