package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServerMetrics carries the per-process registry so tests can build
// independent instances without duplicate registration panics.
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	retrievalTotal      *prometheus.CounterVec
	retrievalHitTotal   *prometheus.CounterVec
	retrievalNoContext  *prometheus.CounterVec
	retrievalCandidates *prometheus.HistogramVec
	retrievalDuration   *prometheus.HistogramVec
	retrievalDegraded   *prometheus.CounterVec

	expansionTotal     *prometheus.CounterVec
	expansionCacheHits *prometheus.CounterVec
	complexityLevels   *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rag",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rag",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "rag",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	retrievalTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rag",
			Subsystem: "retrieval",
			Name:      "requests_total",
			Help:      "Total retrieval runs by mode.",
		},
		[]string{"service", "mode"},
	)
	retrievalHitTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rag",
			Subsystem: "retrieval",
			Name:      "hit_total",
			Help:      "Total retrieval runs with at least one candidate.",
		},
		[]string{"service", "mode"},
	)
	retrievalNoContext := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rag",
			Subsystem: "retrieval",
			Name:      "no_context_total",
			Help:      "Total retrieval runs without candidates.",
		},
		[]string{"service", "mode"},
	)
	retrievalCandidates := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rag",
			Subsystem: "retrieval",
			Name:      "candidates",
			Help:      "Distribution of reranked candidates per retrieval run.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "mode"},
	)
	retrievalDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rag",
			Subsystem: "retrieval",
			Name:      "duration_seconds",
			Help:      "Retrieval run duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "mode"},
	)
	retrievalDegraded := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rag",
			Subsystem: "retrieval",
			Name:      "degraded_total",
			Help:      "Total retrieval runs that returned partial results.",
		},
		[]string{"service", "mode"},
	)
	expansionTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rag",
			Subsystem: "expansion",
			Name:      "requests_total",
			Help:      "Total query expansion runs.",
		},
		[]string{"service"},
	)
	expansionCacheHits := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rag",
			Subsystem: "expansion",
			Name:      "cache_total",
			Help:      "Expansion cache lookups by outcome.",
		},
		[]string{"service", "outcome"},
	)
	complexityLevels := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rag",
			Subsystem: "complexity",
			Name:      "levels_total",
			Help:      "Total analyzed queries by complexity level.",
		},
		[]string{"service", "level"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		retrievalTotal,
		retrievalHitTotal,
		retrievalNoContext,
		retrievalCandidates,
		retrievalDuration,
		retrievalDegraded,
		expansionTotal,
		expansionCacheHits,
		complexityLevels,
	)

	return &HTTPServerMetrics{
		registry:            registry,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		retrievalTotal:      retrievalTotal,
		retrievalHitTotal:   retrievalHitTotal,
		retrievalNoContext:  retrievalNoContext,
		retrievalCandidates: retrievalCandidates,
		retrievalDuration:   retrievalDuration,
		retrievalDegraded:   retrievalDegraded,
		expansionTotal:      expansionTotal,
		expansionCacheHits:  expansionCacheHits,
		complexityLevels:    complexityLevels,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := r.URL.Path
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func (m *HTTPServerMetrics) RecordRetrieval(service, mode string, candidateCount int, degraded bool, duration time.Duration) {
	m.retrievalTotal.WithLabelValues(service, mode).Inc()
	m.retrievalCandidates.WithLabelValues(service, mode).Observe(float64(candidateCount))
	m.retrievalDuration.WithLabelValues(service, mode).Observe(duration.Seconds())

	if degraded {
		m.retrievalDegraded.WithLabelValues(service, mode).Inc()
	}
	if candidateCount > 0 {
		m.retrievalHitTotal.WithLabelValues(service, mode).Inc()
		return
	}
	m.retrievalNoContext.WithLabelValues(service, mode).Inc()
}

func (m *HTTPServerMetrics) RecordExpansion(service string, fromCache bool) {
	m.expansionTotal.WithLabelValues(service).Inc()
	outcome := "miss"
	if fromCache {
		outcome = "hit"
	}
	m.expansionCacheHits.WithLabelValues(service, outcome).Inc()
}

func (m *HTTPServerMetrics) RecordComplexityLevel(service, level string) {
	if level == "" {
		level = "unknown"
	}
	m.complexityLevels.WithLabelValues(service, level).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}
