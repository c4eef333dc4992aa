package usecase

import (
	"fmt"
	"strings"

	"github.com/tradecorpus/rag-orchestrator/internal/core/domain"
)

// AnalyzerSettings carries the tunable weights and thresholds of the
// complexity heuristic. Zero values fall back to defaults so tests can set
// only what they exercise.
type AnalyzerSettings struct {
	ThresholdSimple  float64
	ThresholdMedium  float64
	ThresholdComplex float64

	WeightWords      float64
	WeightTerms      float64
	WeightQuestions  float64
	WeightAnalytical float64
	WeightHistory    float64

	ModelSimple   string
	ModelMedium   string
	ModelComplex  string
	ModelResearch string
}

func (s AnalyzerSettings) normalize() AnalyzerSettings {
	out := s
	if out.ThresholdSimple <= 0 {
		out.ThresholdSimple = 0.3
	}
	if out.ThresholdMedium <= out.ThresholdSimple {
		out.ThresholdMedium = 0.6
	}
	if out.ThresholdComplex <= out.ThresholdMedium {
		out.ThresholdComplex = 0.85
	}
	if out.WeightWords <= 0 {
		out.WeightWords = 0.25
	}
	if out.WeightTerms <= 0 {
		out.WeightTerms = 0.30
	}
	if out.WeightQuestions <= 0 {
		out.WeightQuestions = 0.15
	}
	if out.WeightAnalytical <= 0 {
		out.WeightAnalytical = 0.20
	}
	if out.WeightHistory <= 0 {
		out.WeightHistory = 0.10
	}
	if out.ModelSimple == "" {
		out.ModelSimple = "llama3.1:8b"
	}
	if out.ModelMedium == "" {
		out.ModelMedium = out.ModelSimple
	}
	if out.ModelComplex == "" {
		out.ModelComplex = out.ModelMedium
	}
	if out.ModelResearch == "" {
		out.ModelResearch = out.ModelComplex
	}
	return out
}

type ComplexityAnalyzer struct {
	settings AnalyzerSettings
}

func NewComplexityAnalyzer(settings AnalyzerSettings) *ComplexityAnalyzer {
	return &ComplexityAnalyzer{settings: settings.normalize()}
}

// Domain dictionary for the trading/finance corpus. Tokens are matched after
// lowercasing, so entries stay lowercase single words.
var technicalTerms = map[string]struct{}{
	"volatility": {}, "option": {}, "options": {}, "delta": {}, "gamma": {},
	"theta": {}, "vega": {}, "hedge": {}, "hedging": {}, "arbitrage": {},
	"backtest": {}, "sharpe": {}, "drawdown": {}, "liquidity": {},
	"futures": {}, "margin": {}, "leverage": {}, "spread": {}, "straddle": {},
	"strangle": {}, "skew": {}, "momentum": {}, "orderflow": {}, "vwap": {},
	"rsi": {}, "macd": {}, "ema": {}, "correlation": {}, "variance": {},
	"derivative": {}, "derivatives": {}, "yield": {}, "duration": {},
	"convexity": {}, "slippage": {}, "breakout": {}, "scalping": {},
}

var questionMarkers = map[string]struct{}{
	"what": {}, "how": {}, "why": {}, "when": {}, "where": {}, "which": {},
	"who": {}, "should": {}, "can": {}, "could": {}, "would": {},
}

var analyticalKeywords = map[string]struct{}{
	"compare": {}, "comparison": {}, "versus": {}, "vs": {}, "analyze": {},
	"analysis": {}, "relationship": {}, "impact": {}, "difference": {},
	"differences": {}, "evaluate": {}, "tradeoff": {}, "tradeoffs": {},
	"explain": {}, "implications": {}, "contrast": {},
}

func (a *ComplexityAnalyzer) Analyze(query string, history []domain.ConversationTurn) (domain.ComplexityProfile, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return domain.ComplexityProfile{}, domain.WrapError(domain.ErrInvalidInput, "analyze query", fmt.Errorf("query is empty"))
	}

	tokens := splitAlphaNumLower(trimmed)
	wordCount := len(strings.Fields(trimmed))

	termCount := 0
	analyticalCount := 0
	questionWords := make(map[string]struct{})
	for _, token := range tokens {
		if _, ok := technicalTerms[token]; ok {
			termCount++
		}
		if _, ok := analyticalKeywords[token]; ok {
			analyticalCount++
		}
		if _, ok := questionMarkers[token]; ok {
			questionWords[token] = struct{}{}
		}
	}
	questionCount := len(questionWords) + strings.Count(trimmed, "?")

	s := a.settings
	score := s.WeightWords*capRatio(wordCount, 40) +
		s.WeightTerms*capRatio(termCount, 6) +
		s.WeightQuestions*capRatio(questionCount, 3) +
		s.WeightAnalytical*capRatio(analyticalCount, 2) +
		s.WeightHistory*capRatio(len(history), 6)
	weightSum := s.WeightWords + s.WeightTerms + s.WeightQuestions + s.WeightAnalytical + s.WeightHistory
	score = clamp01(score / weightSum)

	level := a.levelFor(score)

	return domain.ComplexityProfile{
		Score: score,
		Level: level,
		Metrics: domain.ComplexityMetrics{
			WordCount:      wordCount,
			TechnicalTerms: termCount,
			QuestionCount:  questionCount,
			HistoryTurns:   len(history),
		},
		Recommendation: domain.Recommendation{
			SuggestedModel:  a.ModelFor(level),
			RetrievalParams: retrievalParamsFor(level),
		},
	}, nil
}

func (a *ComplexityAnalyzer) levelFor(score float64) domain.ComplexityLevel {
	switch {
	case score < a.settings.ThresholdSimple:
		return domain.LevelSimple
	case score < a.settings.ThresholdMedium:
		return domain.LevelMedium
	case score < a.settings.ThresholdComplex:
		return domain.LevelComplex
	default:
		return domain.LevelResearch
	}
}

func (a *ComplexityAnalyzer) ModelFor(level domain.ComplexityLevel) string {
	switch level {
	case domain.LevelSimple:
		return a.settings.ModelSimple
	case domain.LevelMedium:
		return a.settings.ModelMedium
	case domain.LevelComplex:
		return a.settings.ModelComplex
	default:
		return a.settings.ModelResearch
	}
}

// retrievalParamsFor scales top-k values monotonically with level.
func retrievalParamsFor(level domain.ComplexityLevel) domain.RetrievalParams {
	switch level {
	case domain.LevelSimple:
		return domain.RetrievalParams{LexicalTopK: 5, VectorTopK: 5, RerankTopK: 3}
	case domain.LevelMedium:
		return domain.RetrievalParams{LexicalTopK: 8, VectorTopK: 8, RerankTopK: 5}
	case domain.LevelComplex:
		return domain.RetrievalParams{LexicalTopK: 12, VectorTopK: 12, RerankTopK: 8}
	default:
		return domain.RetrievalParams{LexicalTopK: 16, VectorTopK: 16, RerankTopK: 10}
	}
}

func capRatio(value, limit int) float64 {
	if limit <= 0 || value <= 0 {
		return 0
	}
	r := float64(value) / float64(limit)
	if r > 1 {
		return 1
	}
	return r
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
