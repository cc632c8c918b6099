package orchcore

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// The fakes in this file are exported (not _test.go) so every package in
// the module can build deterministic collaborators without depending on a
// real LLM, vector store, or clock. This mirrors the teacher's exported
// core/mock_discovery.go and orchestration/test_mocks.go.

// FixedClock always reports the same instant until advanced.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock returns a FixedClock starting at t.
func NewFixedClock(t time.Time) *FixedClock { return &FixedClock{now: t} }

func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// SequentialIDGenerator produces deterministic, incrementing IDs prefixed
// with a fixed string, for reproducible tests and replay.
type SequentialIDGenerator struct {
	prefix string
	n      atomic.Int64
}

// NewSequentialIDGenerator returns a generator emitting "<prefix>-1",
// "<prefix>-2", ...
func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	return &SequentialIDGenerator{prefix: prefix}
}

func (g *SequentialIDGenerator) NewID() string {
	n := g.n.Add(1)
	return g.prefix + "-" + strconv.FormatInt(n, 10)
}

// FakeCompletionProvider returns scripted responses in order, falling back
// to a default once the script is exhausted. Useful for testing the
// decision engine and synthesiser without a real model.
type FakeCompletionProvider struct {
	mu        sync.Mutex
	Responses []string
	Usage     TokenUsage
	Err       error
	calls     int
	Requests  []FakeCompletionCall
}

// FakeCompletionCall records one invocation for assertions.
type FakeCompletionCall struct {
	System   string
	Messages []Message
	Metadata map[string]interface{}
}

func (f *FakeCompletionProvider) Complete(ctx context.Context, system string, messages []Message, metadata map[string]interface{}) (string, TokenUsage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Requests = append(f.Requests, FakeCompletionCall{System: system, Messages: messages, Metadata: metadata})
	if f.Err != nil {
		return "", TokenUsage{}, f.Err
	}
	if len(f.Responses) == 0 {
		return "", f.Usage, nil
	}
	idx := f.calls
	if idx >= len(f.Responses) {
		idx = len(f.Responses) - 1
	}
	f.calls++
	return f.Responses[idx], f.Usage, nil
}

// FakeEmbeddingProvider returns a deterministic vector derived from the
// text's length and first byte, good enough to exercise ranking without a
// real embedding model.
type FakeEmbeddingProvider struct{}

func (FakeEmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	v := make([]float32, 8)
	for i := range v {
		if i < len(text) {
			v[i] = float32(text[i]) / 255.0
		}
	}
	return v, nil
}

// FakeVectorStore is an in-memory VectorStore keyed by collection, useful
// for exercising the context manager's retrieval and tenant-isolation
// behavior in tests.
type FakeVectorStore struct {
	mu     sync.Mutex
	points map[string][]VectorPoint
}

// NewFakeVectorStore returns an empty in-memory store.
func NewFakeVectorStore() *FakeVectorStore {
	return &FakeVectorStore{points: map[string][]VectorPoint{}}
}

func (s *FakeVectorStore) Upsert(ctx context.Context, collection string, points []VectorPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points[collection] = append(s.points[collection], points...)
	return nil
}

func (s *FakeVectorStore) Delete(ctx context.Context, collection string, filter VectorFilter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	remaining := s.points[collection][:0]
	for _, p := range s.points[collection] {
		if matchesFilter(p, filter) {
			continue
		}
		remaining = append(remaining, p)
	}
	s.points[collection] = remaining
	return nil
}

func (s *FakeVectorStore) Search(ctx context.Context, collection string, embedding []float32, filter VectorFilter, limit int, scoreThreshold float64) ([]VectorPoint, error) {
	if filter.TenantID == "" {
		return nil, NewFrameworkError("FakeVectorStore.Search", "security", ErrTenantRequired)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []VectorPoint
	for _, p := range s.points[collection] {
		if !matchesFilter(p, filter) {
			continue
		}
		if p.Score < scoreThreshold {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func matchesFilter(p VectorPoint, filter VectorFilter) bool {
	if filter.TenantID != "" && fmt.Sprint(p.Metadata["tenant_id"]) != filter.TenantID {
		return false
	}
	if filter.ProjectID != "" && fmt.Sprint(p.Metadata["project_id"]) != filter.ProjectID {
		return false
	}
	return true
}

// FakeHistoryProvider returns scripted history items regardless of query.
type FakeHistoryProvider struct {
	Items []HistoryItem
}

func (f *FakeHistoryProvider) Retrieve(ctx context.Context, query, tenantID, taskID string, timeRange time.Duration, limit int) ([]HistoryItem, error) {
	items := f.Items
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
