package usecase

import (
	"strings"
	"testing"

	"github.com/tradecorpus/rag-orchestrator/internal/core/domain"
)

func TestAnalyzeRejectsEmptyQuery(t *testing.T) {
	analyzer := NewComplexityAnalyzer(AnalyzerSettings{})
	_, err := analyzer.Analyze("   ", nil)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAnalyzeScoreStaysInUnitInterval(t *testing.T) {
	analyzer := NewComplexityAnalyzer(AnalyzerSettings{})
	queries := []string{
		"price",
		"what is vwap",
		"how does gamma hedging interact with implied volatility skew near expiry?",
		strings.Repeat("volatility arbitrage hedge margin leverage futures options delta gamma theta ", 20),
	}
	history := []domain.ConversationTurn{
		{Role: "user", Text: "earlier question"},
		{Role: "assistant", Text: "earlier answer"},
	}
	for _, query := range queries {
		profile, err := analyzer.Analyze(query, history)
		if err != nil {
			t.Fatalf("Analyze(%q) error = %v", query, err)
		}
		if profile.Score < 0 || profile.Score > 1 {
			t.Fatalf("Analyze(%q) score = %f, want [0,1]", query, profile.Score)
		}
	}
}

func TestAnalyzeLevelIsMonotonicInScore(t *testing.T) {
	analyzer := NewComplexityAnalyzer(AnalyzerSettings{})

	simple, err := analyzer.Analyze("what is vwap", nil)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	complex, err := analyzer.Analyze(
		"compare and analyze the relationship between implied volatility skew, gamma exposure, delta hedging flows and realized variance for index options versus single-name options, and evaluate the impact on market maker hedging behavior near expiry. how should a desk manage margin and leverage tradeoffs?",
		[]domain.ConversationTurn{{Role: "user", Text: "prior turn"}},
	)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if complex.Score <= simple.Score {
		t.Fatalf("expected richer query to score higher: simple=%f complex=%f", simple.Score, complex.Score)
	}
	order := map[domain.ComplexityLevel]int{
		domain.LevelSimple:   0,
		domain.LevelMedium:   1,
		domain.LevelComplex:  2,
		domain.LevelResearch: 3,
	}
	if order[complex.Level] < order[simple.Level] {
		t.Fatalf("level must not decrease with score: simple=%s complex=%s", simple.Level, complex.Level)
	}
}

func TestLevelForIsDeterministicStepFunction(t *testing.T) {
	analyzer := NewComplexityAnalyzer(AnalyzerSettings{
		ThresholdSimple:  0.3,
		ThresholdMedium:  0.6,
		ThresholdComplex: 0.85,
	})
	cases := []struct {
		score float64
		want  domain.ComplexityLevel
	}{
		{0.0, domain.LevelSimple},
		{0.29, domain.LevelSimple},
		{0.3, domain.LevelMedium},
		{0.59, domain.LevelMedium},
		{0.6, domain.LevelComplex},
		{0.84, domain.LevelComplex},
		{0.85, domain.LevelResearch},
		{1.0, domain.LevelResearch},
	}
	for _, tc := range cases {
		if got := analyzer.levelFor(tc.score); got != tc.want {
			t.Fatalf("levelFor(%f) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestRetrievalParamsScaleWithLevel(t *testing.T) {
	levels := []domain.ComplexityLevel{
		domain.LevelSimple, domain.LevelMedium, domain.LevelComplex, domain.LevelResearch,
	}
	previous := domain.RetrievalParams{}
	for _, level := range levels {
		params := retrievalParamsFor(level)
		if params.LexicalTopK < previous.LexicalTopK ||
			params.VectorTopK < previous.VectorTopK ||
			params.RerankTopK < previous.RerankTopK {
			t.Fatalf("retrieval params must not shrink at level %s: %+v < %+v", level, params, previous)
		}
		previous = params
	}
}

func TestModelForFollowsLevel(t *testing.T) {
	analyzer := NewComplexityAnalyzer(AnalyzerSettings{
		ModelSimple:   "llama3.1:8b",
		ModelMedium:   "qwen2.5:14b",
		ModelComplex:  "qwen2.5:32b",
		ModelResearch: "deepseek-r1:70b",
	})
	if got := analyzer.ModelFor(domain.LevelSimple); got != "llama3.1:8b" {
		t.Fatalf("ModelFor(simple) = %s", got)
	}
	if got := analyzer.ModelFor(domain.LevelResearch); got != "deepseek-r1:70b" {
		t.Fatalf("ModelFor(research) = %s", got)
	}
}
