package contextmgr

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fleetforge/orchestrator/orchcore"
)

const (
	defaultHistoryTimeRange = 24 * time.Hour
	defaultSourceLimit      = 20
)

// Manager implements the context-assembly procedure from spec §4.4.
type Manager struct {
	config   *orchcore.Config
	vectors  orchcore.VectorStore
	embedder orchcore.EmbeddingProvider
	history  orchcore.HistoryProvider
	cache    *BundleCache
	l2       *RedisBundleCache
	logger   orchcore.Logger
}

// NewManager builds a Manager. history may be nil, in which case the
// history source is always treated as inactive.
func NewManager(config *orchcore.Config, vectors orchcore.VectorStore, embedder orchcore.EmbeddingProvider, history orchcore.HistoryProvider, cache *BundleCache, logger orchcore.Logger) *Manager {
	if cache == nil {
		cache = NewBundleCache(1000, DefaultCacheTTLSeconds*time.Second)
	}
	if logger == nil {
		logger = orchcore.NoOpLogger{}
	}
	return &Manager{config: config, vectors: vectors, embedder: embedder, history: history, cache: cache, logger: logger}
}

// WithL2Cache attaches an optional Redis-backed L2 cache behind the
// in-process LRU, for multi-replica deployments that want cache hits to
// survive a process restart or be shared across instances.
func (m *Manager) WithL2Cache(l2 *RedisBundleCache) *Manager {
	m.l2 = l2
	return m
}

// Assemble runs the full retrieve/rank/pack/cache pipeline for req.
func (m *Manager) Assemble(ctx context.Context, req Request) (Bundle, error) {
	if req.TenantID == "" {
		return Bundle{}, orchcore.NewFrameworkError("contextmgr.Assemble", "security", orchcore.ErrTenantRequired)
	}

	key := Key(req)
	if cached, ok := m.cache.Get(key); ok {
		return cached, nil
	}
	if m.l2 != nil {
		if cached, ok := m.l2.Get(ctx, key); ok {
			m.cache.Set(key, req.TenantID, cached)
			return cached, nil
		}
	}

	budget := m.config.BudgetFor(req.AgentType)
	active := effectiveSources(req, m.history != nil)
	available := availableBudget(req, budget)
	lessonsShare, codeShare, historyShare := activeShares(budget, active)

	items, err := m.retrieveAll(ctx, req, active, available, lessonsShare, codeShare, historyShare)
	if err != nil {
		return Bundle{}, err
	}

	items = filterByThreshold(items)
	items = dedupeCodeByPath(items)
	items = rank(items, req.AgentType)

	packed, total := pack(items, available)
	bundle := Bundle{Items: packed, TotalTokens: total}

	m.cache.Set(key, req.TenantID, bundle)
	if m.l2 != nil {
		if err := m.l2.Set(ctx, key, req.TenantID, bundle); err != nil {
			m.logger.Warn("context bundle L2 cache write failed", "error", err.Error())
		}
	}
	return bundle, nil
}

// InvalidateTenant removes all cached bundles for tenantID, in both the
// in-process LRU and, if configured, the Redis L2.
func (m *Manager) InvalidateTenant(ctx context.Context, tenantID string) int {
	n := m.cache.InvalidateTenant(tenantID)
	if m.l2 != nil {
		if err := m.l2.InvalidateTenant(ctx, tenantID); err != nil {
			m.logger.Warn("context bundle L2 cache invalidation failed", "error", err.Error())
		}
	}
	return n
}

func (m *Manager) retrieveAll(ctx context.Context, req Request, active Sources, available int, lessonsShare, codeShare, historyShare float64) ([]Item, error) {
	group, gctx := errgroup.WithContext(ctx)

	var lessonItems, codeItems, historyItems []Item

	if active.Lessons {
		subBudget := int(float64(available) * lessonsShare)
		group.Go(func() error {
			items, err := m.retrieveLessons(gctx, req, subBudget)
			if err != nil {
				return err
			}
			lessonItems = items
			return nil
		})
	}
	if active.Code {
		subBudget := int(float64(available) * codeShare)
		group.Go(func() error {
			items, err := m.retrieveCode(gctx, req, subBudget)
			if err != nil {
				return err
			}
			codeItems = items
			return nil
		})
	}
	if active.History {
		subBudget := int(float64(available) * historyShare)
		group.Go(func() error {
			items, err := m.retrieveHistory(gctx, req, subBudget)
			if err != nil {
				return err
			}
			historyItems = items
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, orchcore.NewFrameworkError("contextmgr.retrieveAll", "transport", err)
	}

	all := make([]Item, 0, len(lessonItems)+len(codeItems)+len(historyItems))
	all = append(all, lessonItems...)
	all = append(all, codeItems...)
	all = append(all, historyItems...)
	return all, nil
}

func (m *Manager) retrieveLessons(ctx context.Context, req Request, subBudget int) ([]Item, error) {
	if subBudget <= 0 || m.vectors == nil || m.embedder == nil {
		return nil, nil
	}
	embedding, err := m.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, err
	}
	filter := orchcore.VectorFilter{TenantID: req.TenantID, Categories: req.Filters.Categories, Tags: req.Filters.Tags}
	points, err := m.vectors.Search(ctx, "lessons", embedding, filter, defaultSourceLimit, lessonScoreThreshold)
	if err != nil {
		return nil, err
	}
	return pointsToItems("lessons", points), nil
}

func (m *Manager) retrieveCode(ctx context.Context, req Request, subBudget int) ([]Item, error) {
	if subBudget <= 0 || req.ProjectID == "" || m.vectors == nil || m.embedder == nil {
		return nil, nil
	}
	embedding, err := m.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, err
	}
	filter := orchcore.VectorFilter{TenantID: req.TenantID, ProjectID: req.ProjectID}
	points, err := m.vectors.Search(ctx, "code", embedding, filter, defaultSourceLimit, codeScoreThreshold)
	if err != nil {
		return nil, err
	}
	items := pointsToItems("code", points)
	for i, p := range points {
		if path, ok := p.Metadata["path"].(string); ok {
			items[i].Path = path
		}
	}
	return items, nil
}

func (m *Manager) retrieveHistory(ctx context.Context, req Request, subBudget int) ([]Item, error) {
	if subBudget <= 0 || m.history == nil {
		return nil, nil
	}
	timeRange := defaultHistoryTimeRange
	if !req.Filters.Since.IsZero() && !req.Filters.Until.IsZero() {
		timeRange = req.Filters.Until.Sub(req.Filters.Since)
	}
	historyItems, err := m.history.Retrieve(ctx, req.Query, req.TenantID, req.TaskID, timeRange, defaultSourceLimit)
	if err != nil {
		return nil, err
	}
	out := make([]Item, len(historyItems))
	for i, h := range historyItems {
		out[i] = Item{Source: "history", Content: h.Content, Score: h.Relevance, Tokens: EstimateTokens(h.Content)}
	}
	return out, nil
}

func pointsToItems(source string, points []orchcore.VectorPoint) []Item {
	out := make([]Item, len(points))
	for i, p := range points {
		out[i] = Item{Source: source, Content: p.Content, Score: p.Score, Tokens: EstimateTokens(p.Content)}
	}
	return out
}
