package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/tradecorpus/rag-orchestrator/internal/core/domain"
	"github.com/tradecorpus/rag-orchestrator/internal/core/ports"
	"github.com/tradecorpus/rag-orchestrator/internal/infrastructure/cache"
	"github.com/tradecorpus/rag-orchestrator/internal/observability/metrics"
	"github.com/tradecorpus/rag-orchestrator/internal/observability/monitor"
)

// ExpanderPresets maps the expansion_level request parameter to differently
// tuned expansion engines.
type ExpanderPresets struct {
	Minimal    ports.QueryExpander
	Medium     ports.QueryExpander
	Aggressive ports.QueryExpander
}

func (p ExpanderPresets) forLevel(level string) ports.QueryExpander {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "minimal":
		return p.Minimal
	case "aggressive":
		return p.Aggressive
	default:
		return p.Medium
	}
}

type Options struct {
	Service        string
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
	QueueWait      time.Duration
}

type Router struct {
	ask            ports.QuestionAnswerer
	analyzer       ports.QueryAnalyzer
	presets        ExpanderPresets
	retriever      ports.CandidateRetriever
	monitor        *monitor.Monitor
	expansionCache *cache.Adaptive[domain.ExpansionResult]
	metrics        *metrics.HTTPServerMetrics
	options        Options
}

func NewRouter(
	ask ports.QuestionAnswerer,
	analyzer ports.QueryAnalyzer,
	presets ExpanderPresets,
	retriever ports.CandidateRetriever,
	perfMonitor *monitor.Monitor,
	expansionCache *cache.Adaptive[domain.ExpansionResult],
	serverMetrics *metrics.HTTPServerMetrics,
	options Options,
) *Router {
	return &Router{
		ask:            ask,
		analyzer:       analyzer,
		presets:        presets,
		retriever:      retriever,
		monitor:        perfMonitor,
		expansionCache: expansionCache,
		metrics:        serverMetrics,
		options:        options,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/ask", rt.askHandler(""))
	mux.HandleFunc("/ask-enhanced", rt.askHandler(domain.ModeWeb))
	mux.HandleFunc("/ask-obsidian", rt.askHandler(domain.ModeObsidian))
	mux.HandleFunc("/ask-research", rt.askHandler(domain.ModeResearch))
	mux.HandleFunc("/analyze-query", rt.analyzeQuery)
	mux.HandleFunc("/expand-query", rt.expandQuery)
	mux.HandleFunc("/advanced-search", rt.advancedSearch)
	mux.HandleFunc("/monitoring/performance", rt.monitoringPerformance)
	mux.HandleFunc("/monitoring/cache", rt.monitoringCache)
	mux.HandleFunc("/monitoring/recent", rt.monitoringRecent)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = accessLogMiddleware(handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.options.Service, handler)
	}
	if rt.options.MaxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.options.MaxInFlight, rt.options.QueueWait)
	}
	if rt.options.RateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rate.Limit(rt.options.RateLimitRPS), rt.options.RateLimitBurst)
	}
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type askRequest struct {
	Text                 string                    `json:"text"`
	Query                string                    `json:"query"`
	Mode                 string                    `json:"mode"`
	TopK                 int                       `json:"top_k"`
	Temperature          *float64                  `json:"temperature"`
	MaxTokens            int                       `json:"max_tokens"`
	History              []domain.ConversationTurn `json:"conversation_history"`
	Model                string                    `json:"model"`
	DisableModelOverride bool                      `json:"disable_model_override"`
	DisableExpansion     bool                      `json:"disable_expansion"`
}

func (r askRequest) queryText() string {
	if text := strings.TrimSpace(r.Text); text != "" {
		return text
	}
	return strings.TrimSpace(r.Query)
}

func (rt *Router) askHandler(fixedMode domain.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}

		var req askRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}

		mode := fixedMode
		if mode == "" {
			mode = domain.ModeQA
			if req.Mode != "" {
				parsed, err := domain.ParseMode(req.Mode)
				if err != nil {
					writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
					return
				}
				mode = parsed
			}
		}

		start := time.Now()
		answer, err := rt.ask.Ask(r.Context(), domain.Query{
			Text:                 req.queryText(),
			Mode:                 mode,
			TopK:                 req.TopK,
			Temperature:          req.Temperature,
			MaxTokens:            req.MaxTokens,
			History:              req.History,
			ModelOverride:        req.Model,
			DisableModelOverride: req.DisableModelOverride,
			DisableExpansion:     req.DisableExpansion,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		if rt.metrics != nil {
			rt.metrics.RecordRetrieval(rt.options.Service, string(mode), len(answer.Citations), answer.Stats.Degraded, time.Since(start))
		}
		writeJSON(w, http.StatusOK, answer)
	}
}

func (rt *Router) analyzeQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	profile, err := rt.analyzer.Analyze(req.queryText(), req.History)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordComplexityLevel(rt.options.Service, string(profile.Level))
	}
	writeJSON(w, http.StatusOK, profile)
}

func (rt *Router) expandQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Text           string `json:"text"`
		Query          string `json:"query"`
		ExpansionLevel string `json:"expansion_level"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		text = strings.TrimSpace(req.Query)
	}

	profile, err := rt.analyzer.Analyze(text, nil)
	if err != nil {
		writeError(w, err)
		return
	}

	expander := rt.presets.forLevel(req.ExpansionLevel)
	result, err := expander.Expand(r.Context(), text, profile.Level)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordExpansion(rt.options.Service, result.FromCache)
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) advancedSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	mode := domain.ModeQA
	if req.Mode != "" {
		parsed, err := domain.ParseMode(req.Mode)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		mode = parsed
	}

	start := time.Now()
	candidates, stats, err := rt.retriever.Retrieve(r.Context(), domain.Query{
		Text: req.queryText(),
		Mode: mode,
		TopK: req.TopK,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordRetrieval(rt.options.Service, string(mode), len(candidates), stats.Degraded, time.Since(start))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": candidates,
		"count":   len(candidates),
		"stats":   stats,
	})
}

func (rt *Router) monitoringPerformance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, rt.monitor.Summary())
}

func (rt *Router) monitoringCache(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, rt.expansionCache.Stats())
}

func (rt *Router) monitoringRecent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("n"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"recent_response_times": rt.monitor.Recent(limit),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
