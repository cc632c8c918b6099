package orchestrator

import (
	"sort"
	"sync"
	"time"

	"github.com/fleetforge/orchestrator/synthesis"
)

// HistoryEntry is one completed session's record, kept in a bounded ring
// buffer for observability (spec §12 supplemented feature: execution
// history, grounded on the teacher's orchestrator.go addToHistory).
type HistoryEntry struct {
	SessionID   string
	ProjectID   string
	TenantID    string
	CompletedAt time.Time
	DurationMs  int64
	Synthesis   synthesis.SynthesisResult
}

// Metrics summarises the history buffer's latency distribution (spec §12:
// "OrchestratorMetrics: counts, average/median/P99 latency").
type Metrics struct {
	TotalRuns     int
	AverageMs     float64
	MedianMs      int64
	P99Ms         int64
}

// history is a bounded ring buffer of completed sessions plus the
// running metrics derived from it.
type history struct {
	mu       sync.Mutex
	capacity int
	entries  []HistoryEntry
}

func newHistory(capacity int) *history {
	if capacity <= 0 {
		capacity = 100
	}
	return &history{capacity: capacity}
}

func (h *history) add(entry HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, entry)
	if len(h.entries) > h.capacity {
		h.entries = h.entries[len(h.entries)-h.capacity:]
	}
}

func (h *history) all() []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h *history) metrics() Metrics {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.entries) == 0 {
		return Metrics{}
	}

	durations := make([]int64, len(h.entries))
	var sum int64
	for i, e := range h.entries {
		durations[i] = e.DurationMs
		sum += e.DurationMs
	}
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	return Metrics{
		TotalRuns: len(h.entries),
		AverageMs: float64(sum) / float64(len(h.entries)),
		MedianMs:  percentile(durations, 0.5),
		P99Ms:     percentile(durations, 0.99),
	}
}

func percentile(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}
