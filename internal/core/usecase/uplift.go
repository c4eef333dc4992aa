package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tradecorpus/rag-orchestrator/internal/core/domain"
	"github.com/tradecorpus/rag-orchestrator/internal/core/ports"
)

const minVariantTimeout = 250 * time.Millisecond

type UpliftSettings struct {
	Enabled           bool
	ExpansionCount    int
	HyDEEnabled       bool
	SkipWordThreshold int
	Parallel          bool
	LatencyBudget     time.Duration
	CacheEnabled      bool
	CacheTTL          time.Duration
	Model             string
	Temperature       float64
	MaxTokens         int
}

func (s UpliftSettings) normalize() UpliftSettings {
	out := s
	if out.ExpansionCount <= 0 {
		out.ExpansionCount = 3
	}
	if out.SkipWordThreshold <= 0 {
		out.SkipWordThreshold = 3
	}
	if out.LatencyBudget <= 0 {
		out.LatencyBudget = 2500 * time.Millisecond
	}
	if out.CacheTTL <= 0 {
		out.CacheTTL = time.Hour
	}
	if out.MaxTokens <= 0 {
		out.MaxTokens = 256
	}
	return out
}

// configVersion keys the cache on the settings that change expansion output.
func (s UpliftSettings) configVersion() string {
	return fmt.Sprintf("n%d-hyde%t-m%s", s.ExpansionCount, s.HyDEEnabled, s.Model)
}

// UpliftEngine rewrites a query into retrieval-friendly variants, including a
// hypothetical-answer passage used only as a retrieval surrogate.
type UpliftEngine struct {
	generator ports.TextGenerator
	cache     ports.ExpansionCache
	settings  UpliftSettings
}

func NewUpliftEngine(generator ports.TextGenerator, cache ports.ExpansionCache, settings UpliftSettings) *UpliftEngine {
	return &UpliftEngine{
		generator: generator,
		cache:     cache,
		settings:  settings.normalize(),
	}
}

// WithSettings returns a copy of the engine with overridden expansion
// settings, sharing the same backend and cache.
func (e *UpliftEngine) WithSettings(settings UpliftSettings) *UpliftEngine {
	return NewUpliftEngine(e.generator, e.cache, settings)
}

func (e *UpliftEngine) Expand(ctx context.Context, query string, level domain.ComplexityLevel) (domain.ExpansionResult, error) {
	start := time.Now()
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return domain.ExpansionResult{}, domain.WrapError(domain.ErrInvalidInput, "expand query", fmt.Errorf("query is empty"))
	}

	if !e.settings.Enabled {
		return domain.ExpansionResult{
			OriginalQuery:   trimmed,
			ExpandedQueries: []string{},
			ConfidenceScore: 1.0,
		}, nil
	}

	wordCount := len(strings.Fields(trimmed))
	if level == domain.LevelSimple && wordCount < e.settings.SkipWordThreshold {
		// Expansion adds no retrieval value for trivial queries.
		return domain.ExpansionResult{
			OriginalQuery:   trimmed,
			ExpandedQueries: []string{},
			ConfidenceScore: 1.0,
		}, nil
	}

	key := expansionFingerprint(trimmed, e.settings.configVersion())
	if e.settings.CacheEnabled && e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			cached.FromCache = true
			return cached, nil
		}
	}

	prompts := e.buildPrompts(trimmed)
	completions := e.generateVariants(ctx, prompts)

	expansions := dedupeVariants(trimmed, completions)
	result := domain.ExpansionResult{
		OriginalQuery:   trimmed,
		ExpandedQueries: expansions,
		Synonyms:        extractSynonyms(trimmed, expansions),
		ContextTerms:    extractContextTerms(trimmed, expansions),
		ConfidenceScore: expansionConfidence(trimmed, expansions, len(prompts)),
		Latency:         time.Since(start),
	}

	if e.settings.CacheEnabled && e.cache != nil {
		e.cache.Put(key, result, e.settings.CacheTTL)
	}
	return result, nil
}

func (e *UpliftEngine) buildPrompts(query string) []string {
	prompts := make([]string, 0, e.settings.ExpansionCount+1)
	for i := 0; i < e.settings.ExpansionCount; i++ {
		prompts = append(prompts, buildParaphrasePrompt(query, i))
	}
	if e.settings.HyDEEnabled {
		prompts = append(prompts, buildHypotheticalAnswerPrompt(query))
	}
	return prompts
}

// generateVariants fans the prompts out against the generation backend under
// the stage latency budget. Per-call failures leave an empty slot; the caller
// drops them. The stage never blocks past the budget.
func (e *UpliftEngine) generateVariants(parent context.Context, prompts []string) []string {
	if len(prompts) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(parent, e.settings.LatencyBudget)
	defer cancel()

	perCall := e.settings.LatencyBudget / time.Duration(len(prompts))
	if e.settings.Parallel {
		perCall = e.settings.LatencyBudget
	}
	if perCall < minVariantTimeout {
		perCall = minVariantTimeout
	}

	out := make([]string, len(prompts))
	call := func(ctx context.Context, prompt string) (string, error) {
		callCtx, callCancel := context.WithTimeout(ctx, perCall)
		defer callCancel()
		return e.generator.Generate(callCtx, ports.GenerationRequest{
			Model:       e.settings.Model,
			Prompt:      prompt,
			Temperature: e.settings.Temperature,
			MaxTokens:   e.settings.MaxTokens,
		})
	}

	if !e.settings.Parallel {
		for i, prompt := range prompts {
			if ctx.Err() != nil {
				break
			}
			text, err := call(ctx, prompt)
			if err != nil {
				continue
			}
			out[i] = text
		}
		return out
	}

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	for i, prompt := range prompts {
		i, prompt := i, prompt
		group.Go(func() error {
			text, err := call(groupCtx, prompt)
			if err != nil {
				// Variant failures are absorbed; the fan-out is best effort.
				return nil
			}
			mu.Lock()
			out[i] = text
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()
	return out
}

func buildParaphrasePrompt(query string, seed int) string {
	return fmt.Sprintf(`Rewrite the following question about trading and markets so a keyword search engine retrieves different relevant documents. Keep the meaning, change the phrasing and vocabulary (variation %d).
Return only the rewritten question, nothing else.

Question: %s`, seed+1, query)
}

func buildHypotheticalAnswerPrompt(query string) string {
	return fmt.Sprintf(`Write a short factual passage (2-3 sentences) that would plausibly answer the following question about trading and markets. The passage is used only as a search probe, so pack it with concrete domain terminology.
Return only the passage.

Question: %s`, query)
}

// dedupeVariants cleans raw completions, drops empties and duplicates, and
// never re-admits the original query.
func dedupeVariants(original string, completions []string) []string {
	seen := map[string]struct{}{
		strings.ToLower(strings.TrimSpace(original)): {},
	}
	out := make([]string, 0, len(completions))
	for _, raw := range completions {
		cleaned := cleanVariant(raw)
		if cleaned == "" {
			continue
		}
		lower := strings.ToLower(cleaned)
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, cleaned)
	}
	return out
}

func cleanVariant(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if idx := strings.IndexByte(s, '\n'); idx > 0 {
		s = s[:idx]
	}
	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}

// expansionConfidence blends completion ratio with token overlap against the
// original, guarding against degenerate backend output.
func expansionConfidence(original string, expansions []string, requested int) float64 {
	if requested <= 0 || len(expansions) == 0 {
		return 0
	}
	completion := float64(len(expansions)) / float64(requested)

	originalTokens := toTokenSet(original)
	overlapSum := 0.0
	for _, exp := range expansions {
		overlapSum += tokenOverlap(originalTokens, toTokenSet(exp))
	}
	overlap := overlapSum / float64(len(expansions))

	return clamp01(0.7*completion + 0.3*overlap)
}

// extractSynonyms pairs original tokens with expansion tokens that share a
// stem-like prefix. Purely local, no backend calls.
func extractSynonyms(original string, expansions []string) map[string][]string {
	originalTokens := splitAlphaNumLower(original)
	expansionTokens := make(map[string]struct{})
	for _, exp := range expansions {
		for _, token := range splitAlphaNumLower(exp) {
			expansionTokens[token] = struct{}{}
		}
	}

	out := make(map[string][]string)
	for _, token := range originalTokens {
		if len(token) < 5 {
			continue
		}
		prefix := token[:4]
		var related []string
		for candidate := range expansionTokens {
			if candidate == token || len(candidate) < 5 {
				continue
			}
			if strings.HasPrefix(candidate, prefix) {
				related = append(related, candidate)
			}
		}
		if len(related) > 0 {
			sort.Strings(related)
			out[token] = related
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// extractContextTerms collects domain vocabulary the expansions introduced
// beyond the original query.
func extractContextTerms(original string, expansions []string) []string {
	originalTokens := toTokenSet(original)
	seen := make(map[string]struct{})
	var out []string
	for _, exp := range expansions {
		for _, token := range splitAlphaNumLower(exp) {
			if len(token) < 4 {
				continue
			}
			if _, ok := originalTokens[token]; ok {
				continue
			}
			if _, dup := seen[token]; dup {
				continue
			}
			seen[token] = struct{}{}
			out = append(out, token)
		}
	}
	sort.Strings(out)
	return out
}
