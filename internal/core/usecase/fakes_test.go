package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tradecorpus/rag-orchestrator/internal/core/domain"
	"github.com/tradecorpus/rag-orchestrator/internal/core/ports"
)

type fakeGenerator struct {
	mu        sync.Mutex
	calls     int
	responses []string
	err       error
	delay     time.Duration
}

func (f *fakeGenerator) Generate(ctx context.Context, req ports.GenerationRequest) (string, error) {
	f.mu.Lock()
	call := f.calls
	f.calls++
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", errors.New("no scripted response")
	}
	return f.responses[call%len(f.responses)], nil
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeExpansionCache struct {
	mu      sync.Mutex
	entries map[string]domain.ExpansionResult
}

func newFakeExpansionCache() *fakeExpansionCache {
	return &fakeExpansionCache{entries: make(map[string]domain.ExpansionResult)}
}

func (f *fakeExpansionCache) Get(key string) (domain.ExpansionResult, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.entries[key]
	return value, ok
}

func (f *fakeExpansionCache) Put(key string, value domain.ExpansionResult, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = value
}

func (f *fakeExpansionCache) Invalidate(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, key)
}

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{float32(len(text))}, nil
}

type fakeLexicalIndex struct {
	mu       sync.Mutex
	calls    int
	bySource map[domain.SourceType][]domain.Candidate
	err      error
}

func (f *fakeLexicalIndex) Search(_ context.Context, _ string, _ int, sources []domain.SourceType) ([]domain.Candidate, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Candidate
	for _, source := range sources {
		out = append(out, f.bySource[source]...)
	}
	return out, nil
}

type fakeVectorIndex struct {
	bySource map[domain.SourceType][]domain.Candidate
	err      error
}

func (f *fakeVectorIndex) Search(_ context.Context, _ []float32, _ int, sources []domain.SourceType) ([]domain.Candidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Candidate
	for _, source := range sources {
		out = append(out, f.bySource[source]...)
	}
	return out, nil
}

type fakeExpanderUC struct {
	result domain.ExpansionResult
	err    error
	calls  int
}

func (f *fakeExpanderUC) Expand(_ context.Context, query string, _ domain.ComplexityLevel) (domain.ExpansionResult, error) {
	f.calls++
	if f.err != nil {
		return domain.ExpansionResult{}, f.err
	}
	result := f.result
	if result.OriginalQuery == "" {
		result.OriginalQuery = query
	}
	return result, nil
}

type fakeRetrieverUC struct {
	candidates []domain.Candidate
	stats      domain.RetrievalStats
	err        error
}

func (f *fakeRetrieverUC) Retrieve(_ context.Context, _ domain.Query) ([]domain.Candidate, domain.RetrievalStats, error) {
	if f.err != nil {
		return nil, domain.RetrievalStats{}, f.err
	}
	return f.candidates, f.stats, nil
}

type trackedCall struct {
	Query   string
	Model   string
	Seconds float64
	Type    string
	Success bool
}

type fakeTracker struct {
	mu    sync.Mutex
	calls []trackedCall
}

func (f *fakeTracker) Track(query, model string, responseTimeSeconds float64, queryType string, success bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, trackedCall{
		Query:   query,
		Model:   model,
		Seconds: responseTimeSeconds,
		Type:    queryType,
		Success: success,
	})
}

type fakeTelemetry struct {
	mu     sync.Mutex
	events []domain.QueryEvent
	err    error
}

func (f *fakeTelemetry) PublishQueryEvent(_ context.Context, event domain.QueryEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}
