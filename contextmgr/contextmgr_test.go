package contextmgr

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetforge/orchestrator/orchcore"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 3, EstimateTokens("0123456789"))
}

func TestPackStopsAtBudgetWithoutTruncation(t *testing.T) {
	items := []Item{
		{Source: "lessons", Content: "a", Tokens: 40},
		{Source: "lessons", Content: "b", Tokens: 40},
		{Source: "lessons", Content: "c", Tokens: 40},
	}
	packed, total := pack(items, 90)
	require.Len(t, packed, 2)
	assert.Equal(t, 80, total)
}

func TestPackTruncatesWhenEnoughBudgetRemains(t *testing.T) {
	items := []Item{
		{Source: "lessons", Content: "first sentence here", Tokens: 10},
		{Source: "lessons", Content: "This is a much longer item that will not fit fully within the remaining budget at all.", Tokens: 60},
	}
	packed, _ := pack(items, 25)
	require.Len(t, packed, 2)
	assert.True(t, packed[1].Truncated)
}

func TestPackDropsItemWhenRemainingTooSmall(t *testing.T) {
	items := []Item{
		{Source: "lessons", Content: "first", Tokens: 95},
		{Source: "lessons", Content: "second item that cannot fit in the tiny remainder", Tokens: 50},
	}
	packed, _ := pack(items, 100)
	require.Len(t, packed, 1)
}

func TestDedupeCodeByPathKeepsHighestScore(t *testing.T) {
	items := []Item{
		{Source: "code", Path: "a.go", Score: 0.6, Content: "low"},
		{Source: "code", Path: "a.go", Score: 0.9, Content: "high"},
	}
	out := dedupeCodeByPath(items)
	require.Len(t, out, 1)
	assert.Equal(t, "high", out[0].Content)
}

func TestFilterByThresholdDropsLowScoringItems(t *testing.T) {
	items := []Item{
		{Source: "lessons", Score: 0.3},
		{Source: "lessons", Score: 0.7},
		{Source: "code", Score: 0.4},
	}
	out := filterByThreshold(items)
	require.Len(t, out, 1)
	assert.Equal(t, 0.7, out[0].Score)
}

func TestActiveSharesNormalizesOverActiveSources(t *testing.T) {
	budget := orchcore.DefaultAgentBudget()
	lessons, code, history := activeShares(budget, Sources{Lessons: true, Code: false, History: false})
	assert.InDelta(t, 1.0, lessons, 1e-9)
	assert.Equal(t, 0.0, code)
	assert.Equal(t, 0.0, history)
}

func TestBundleCacheRoundTrip(t *testing.T) {
	cache := NewBundleCache(10, time.Minute)
	req := Request{TenantID: "t1", Query: "q", Include: Sources{Lessons: true}}
	key := Key(req)

	_, ok := cache.Get(key)
	assert.False(t, ok)

	cache.Set(key, "t1", Bundle{TotalTokens: 42})
	got, ok := cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, 42, got.TotalTokens)
	assert.True(t, got.CacheHit)
}

func TestBundleCacheInvalidateTenant(t *testing.T) {
	cache := NewBundleCache(10, time.Minute)
	cache.Set("k1", "tenant-a", Bundle{})
	cache.Set("k2", "tenant-b", Bundle{})

	removed := cache.InvalidateTenant("tenant-a")
	assert.Equal(t, 1, removed)

	_, ok := cache.Get("k1")
	assert.False(t, ok)
	_, ok = cache.Get("k2")
	assert.True(t, ok)
}

func TestBundleCacheExpiresAfterTTL(t *testing.T) {
	cache := NewBundleCache(10, time.Millisecond)
	cache.Set("k1", "t", Bundle{TotalTokens: 1})
	time.Sleep(5 * time.Millisecond)
	_, ok := cache.Get("k1")
	assert.False(t, ok)
}

func TestAssembleRejectsMissingTenant(t *testing.T) {
	cfg := orchcore.DefaultConfig()
	mgr := NewManager(cfg, nil, nil, nil, nil, nil)
	_, err := mgr.Assemble(context.Background(), Request{Query: "q"})
	require.Error(t, err)
}

func TestAssembleReturnsCachedBundleOnSecondCall(t *testing.T) {
	cfg := orchcore.DefaultConfig()
	vectors := orchcore.NewFakeVectorStore()
	embedder := orchcore.FakeEmbeddingProvider{}
	mgr := NewManager(cfg, vectors, embedder, nil, nil, nil)

	req := Request{TenantID: "t1", Query: "how to write a handler", Include: Sources{Lessons: true}}

	first, err := mgr.Assemble(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := mgr.Assemble(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
}
