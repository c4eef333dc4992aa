package domain

import "fmt"

type Mode string

const (
	ModeQA       Mode = "qa"
	ModeWeb      Mode = "web"
	ModeObsidian Mode = "obsidian"
	ModeResearch Mode = "research"
)

func ParseMode(raw string) (Mode, error) {
	switch Mode(raw) {
	case ModeQA, ModeWeb, ModeObsidian, ModeResearch:
		return Mode(raw), nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, raw)
	}
}

type SourceType string

const (
	SourcePDF             SourceType = "pdf"
	SourceVideoTranscript SourceType = "video_transcript"
	SourceLLMProcessed    SourceType = "llm_processed"
	SourceWeb             SourceType = "web"
	SourceObsidianNote    SourceType = "obsidian_note"
)

var modeSources = map[Mode][]SourceType{
	ModeQA:       {SourcePDF, SourceVideoTranscript, SourceLLMProcessed},
	ModeWeb:      {SourceWeb},
	ModeObsidian: {SourceObsidianNote},
	ModeResearch: {SourcePDF, SourceVideoTranscript, SourceLLMProcessed, SourceWeb},
}

// PermittedSources returns the closed set of source types a mode may surface.
func (m Mode) PermittedSources() []SourceType {
	sources := modeSources[m]
	out := make([]SourceType, len(sources))
	copy(out, sources)
	return out
}

func (m Mode) AllowsSource(source SourceType) bool {
	for _, s := range modeSources[m] {
		if s == source {
			return true
		}
	}
	return false
}

type ConversationTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Query is the immutable inbound request for the orchestration core.
type Query struct {
	Text        string             `json:"text"`
	Mode        Mode               `json:"mode"`
	TopK        int                `json:"top_k,omitempty"`
	Temperature *float64           `json:"temperature,omitempty"`
	MaxTokens   int                `json:"max_tokens,omitempty"`
	History     []ConversationTurn `json:"conversation_history,omitempty"`

	ModelOverride        string `json:"model,omitempty"`
	DisableModelOverride bool   `json:"disable_model_override,omitempty"`
	DisableExpansion     bool   `json:"disable_expansion,omitempty"`
}

type RetrievalParams struct {
	LexicalTopK int `json:"lexical_top_k"`
	VectorTopK  int `json:"vector_top_k"`
	RerankTopK  int `json:"rerank_top_k"`
}

type Candidate struct {
	DocumentID   string     `json:"document_id"`
	Text         string     `json:"text"`
	Section      string     `json:"section,omitempty"`
	SourceType   SourceType `json:"source_type"`
	LexicalScore float64    `json:"lexical_score"`
	VectorScore  float64    `json:"vector_score"`
	RerankScore  float64    `json:"rerank_score"`
	FinalScore   float64    `json:"final_score"`
}

type Citation struct {
	Excerpt    string     `json:"excerpt"`
	SourceID   string     `json:"source_id"`
	SourceType SourceType `json:"source_type"`
	Section    string     `json:"section,omitempty"`
	Score      float64    `json:"score"`
}

// RetrievalStats is per-request observability returned alongside candidates.
type RetrievalStats struct {
	Mode              Mode    `json:"mode"`
	VariantCount      int     `json:"variant_count"`
	SubQueriesTotal   int     `json:"sub_queries_total"`
	SubQueriesFailed  int     `json:"sub_queries_failed"`
	CandidatesFetched int     `json:"candidates_fetched"`
	CandidatesMerged  int     `json:"candidates_merged"`
	Degraded          bool    `json:"degraded"`
	ExpansionUsed     bool    `json:"expansion_used"`
	DurationSeconds   float64 `json:"duration_seconds"`
}

type Answer struct {
	Text      string         `json:"text"`
	Citations []Citation     `json:"citations"`
	Mode      Mode           `json:"mode"`
	Model     string         `json:"model"`
	Stats     RetrievalStats `json:"stats"`
}
