package monitor

import (
	"sync"
	"time"

	"github.com/tradecorpus/rag-orchestrator/internal/core/domain"
)

const defaultCapacity = 1000

// Monitor keeps a fixed-capacity rolling window of response times plus
// monotonic usage counters. It is constructed once per process and shared by
// every request handler; all methods are safe for concurrent use.
type Monitor struct {
	mu sync.Mutex

	capacity int
	window   []float64
	head     int
	size     int

	total  int64
	errors int64

	modelUsage     map[string]int64
	queryTypeUsage map[string]int64

	startedAt time.Time
}

func New(capacity int) *Monitor {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Monitor{
		capacity:       capacity,
		window:         make([]float64, capacity),
		modelUsage:     make(map[string]int64),
		queryTypeUsage: make(map[string]int64),
		startedAt:      time.Now(),
	}
}

func (m *Monitor) Track(query, model string, responseTimeSeconds float64, queryType string, success bool) {
	_ = query

	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	if !success {
		m.errors++
	}
	if model != "" {
		m.modelUsage[model]++
	}
	if queryType != "" {
		m.queryTypeUsage[queryType]++
	}

	m.window[m.head] = responseTimeSeconds
	m.head = (m.head + 1) % m.capacity
	if m.size < m.capacity {
		m.size++
	}
}

func (m *Monitor) Summary() domain.MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := domain.MetricsSnapshot{
		TotalQueries:   m.total,
		ErrorCount:     m.errors,
		WindowSize:     m.size,
		ModelUsage:     copyCounts(m.modelUsage),
		QueryTypeUsage: copyCounts(m.queryTypeUsage),
		UptimeSeconds:  time.Since(m.startedAt).Seconds(),
	}

	total := m.total
	if total < 1 {
		total = 1
	}
	snapshot.ErrorRate = float64(m.errors) / float64(total)

	if m.size == 0 {
		return snapshot
	}

	sum := 0.0
	minV := m.window[m.oldestIndex()]
	maxV := minV
	for i := 0; i < m.size; i++ {
		v := m.window[(m.oldestIndex()+i)%m.capacity]
		sum += v
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	snapshot.AvgResponseTime = sum / float64(m.size)
	snapshot.MinResponseTime = minV
	snapshot.MaxResponseTime = maxV
	return snapshot
}

// Recent returns the last n response times in chronological order.
func (m *Monitor) Recent(n int) []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n <= 0 || n > m.size {
		n = m.size
	}
	out := make([]float64, 0, n)
	start := m.size - n
	for i := start; i < m.size; i++ {
		out = append(out, m.window[(m.oldestIndex()+i)%m.capacity])
	}
	return out
}

func (m *Monitor) oldestIndex() int {
	if m.size < m.capacity {
		return 0
	}
	return m.head
}

func copyCounts(src map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
