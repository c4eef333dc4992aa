package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/tradecorpus/rag-orchestrator/internal/core/domain"
	"github.com/tradecorpus/rag-orchestrator/internal/core/ports"
)

type GenerationDefaults struct {
	Temperature map[domain.ComplexityLevel]float64
	MaxTokens   map[domain.ComplexityLevel]int
}

// AskUseCase ties retrieval orchestration to answer generation and reports
// every outcome to the performance monitor and telemetry sink.
type AskUseCase struct {
	analyzer  *ComplexityAnalyzer
	retriever ports.CandidateRetriever
	generator ports.TextGenerator
	monitor   ports.QueryTracker
	telemetry ports.TelemetryPublisher
	defaults  GenerationDefaults
}

func NewAskUseCase(
	analyzer *ComplexityAnalyzer,
	retriever ports.CandidateRetriever,
	generator ports.TextGenerator,
	monitor ports.QueryTracker,
	telemetry ports.TelemetryPublisher,
	defaults GenerationDefaults,
) *AskUseCase {
	return &AskUseCase{
		analyzer:  analyzer,
		retriever: retriever,
		generator: generator,
		monitor:   monitor,
		telemetry: telemetry,
		defaults:  defaults,
	}
}

func (uc *AskUseCase) Ask(ctx context.Context, query domain.Query) (*domain.Answer, error) {
	start := time.Now()

	text := strings.TrimSpace(query.Text)
	if text == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", fmt.Errorf("query text is empty"))
	}

	profile, err := uc.analyzer.Analyze(text, query.History)
	if err != nil {
		return nil, err
	}
	model := uc.selectModel(query, profile)

	candidates, stats, err := uc.retriever.Retrieve(ctx, query)
	if err != nil {
		uc.record(ctx, query, model, time.Since(start), false)
		return nil, err
	}

	answer := &domain.Answer{
		Mode:      query.Mode,
		Model:     model,
		Citations: citationsFrom(candidates),
		Stats:     stats,
	}

	// Zero candidates is a normal outcome: the caller renders a "no sources
	// found" answer instead of hallucinating from an empty context.
	if len(candidates) == 0 {
		uc.record(ctx, query, model, time.Since(start), true)
		return answer, nil
	}

	generated, err := uc.generator.Generate(ctx, ports.GenerationRequest{
		Model:       model,
		Prompt:      buildAnswerPrompt(text, candidates),
		Temperature: uc.temperature(query, profile.Level),
		MaxTokens:   uc.maxTokens(query, profile.Level),
	})
	if err != nil {
		uc.record(ctx, query, model, time.Since(start), false)
		return nil, domain.WrapError(domain.ErrBackendUnavailable, "generate answer", err)
	}

	answer.Text = generated
	uc.record(ctx, query, model, time.Since(start), true)
	return answer, nil
}

func (uc *AskUseCase) selectModel(query domain.Query, profile domain.ComplexityProfile) string {
	if query.DisableModelOverride && query.ModelOverride != "" {
		return query.ModelOverride
	}
	return profile.Recommendation.SuggestedModel
}

func (uc *AskUseCase) temperature(query domain.Query, level domain.ComplexityLevel) float64 {
	if query.Temperature != nil {
		return *query.Temperature
	}
	return uc.defaults.Temperature[level]
}

func (uc *AskUseCase) maxTokens(query domain.Query, level domain.ComplexityLevel) int {
	if query.MaxTokens > 0 {
		return query.MaxTokens
	}
	return uc.defaults.MaxTokens[level]
}

func (uc *AskUseCase) record(ctx context.Context, query domain.Query, model string, elapsed time.Duration, success bool) {
	if uc.monitor != nil {
		uc.monitor.Track(query.Text, model, elapsed.Seconds(), string(query.Mode), success)
	}
	if uc.telemetry == nil {
		return
	}
	event := domain.QueryEvent{
		RequestID:  uuid.NewString(),
		Mode:       string(query.Mode),
		Model:      model,
		QueryType:  string(query.Mode),
		DurationMS: float64(elapsed.Microseconds()) / 1000.0,
		Success:    success,
		Timestamp:  time.Now().UTC(),
	}
	if err := uc.telemetry.PublishQueryEvent(ctx, event); err != nil {
		slog.Warn("telemetry_publish_failed", "error", err)
	}
}

func citationsFrom(candidates []domain.Candidate) []domain.Citation {
	out := make([]domain.Citation, 0, len(candidates))
	for _, candidate := range candidates {
		out = append(out, domain.Citation{
			Excerpt:    excerpt(candidate.Text, 400),
			SourceID:   candidate.DocumentID,
			SourceType: candidate.SourceType,
			Section:    candidate.Section,
			Score:      candidate.FinalScore,
		})
	}
	return out
}

func excerpt(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := text[:limit]
	if idx := strings.LastIndexByte(cut, ' '); idx > limit/2 {
		cut = cut[:idx]
	}
	// The byte cut may land inside a multi-byte rune.
	for len(cut) > 0 {
		r, size := utf8.DecodeLastRuneInString(cut)
		if r != utf8.RuneError || size != 1 {
			break
		}
		cut = cut[:len(cut)-1]
	}
	return cut + "…"
}

func buildAnswerPrompt(question string, candidates []domain.Candidate) string {
	var b strings.Builder
	b.WriteString("Answer the question using only the context passages below. Cite passage numbers like [1]. If the context does not contain the answer, say so.\n\nContext:\n")
	for i, candidate := range candidates {
		fmt.Fprintf(&b, "[%d] (%s) %s\n", i+1, candidate.SourceType, candidate.Text)
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\nAnswer:")
	return b.String()
}
