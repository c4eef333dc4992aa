package domain

type ComplexityLevel string

const (
	LevelSimple   ComplexityLevel = "simple"
	LevelMedium   ComplexityLevel = "medium"
	LevelComplex  ComplexityLevel = "complex"
	LevelResearch ComplexityLevel = "research"
)

type ComplexityMetrics struct {
	WordCount      int `json:"word_count"`
	TechnicalTerms int `json:"technical_terms"`
	QuestionCount  int `json:"question_count"`
	HistoryTurns   int `json:"history_turns"`
}

type Recommendation struct {
	SuggestedModel  string          `json:"suggested_model"`
	RetrievalParams RetrievalParams `json:"retrieval_params"`
}

// ComplexityProfile is derived per query and never persisted.
type ComplexityProfile struct {
	Score          float64           `json:"complexity_score"`
	Level          ComplexityLevel   `json:"complexity_level"`
	Metrics        ComplexityMetrics `json:"metrics"`
	Recommendation Recommendation    `json:"recommendations"`
}
