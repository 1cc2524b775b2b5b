package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/cloo-solutions/supportbot/internal/domain"
	"github.com/cloo-solutions/supportbot/internal/logging"
	"github.com/cloo-solutions/supportbot/internal/metrics"
	"github.com/cloo-solutions/supportbot/internal/telemetry"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheTTL is used when no positive TTL is configured.
const DefaultCacheTTL = 5 * time.Minute

// DefaultRefreshTimeout bounds a shared refresh when no timeout is configured.
const DefaultRefreshTimeout = 30 * time.Second

const refreshKey = "knowledge-refresh"

// Fetcher downloads the raw knowledge document.
type Fetcher interface {
	Fetch(ctx context.Context) (string, error)
}

// KnowledgeCacheState is an immutable snapshot of the parsed knowledge source.
type KnowledgeCacheState struct {
	Chunks    []domain.KnowledgeChunk
	FetchedAt time.Time
}

// KnowledgeCache serves parsed chunks, refetching once the TTL has passed.
// When a refresh fails the previous snapshot keeps being served; only a cold
// cache surfaces the failure.
type KnowledgeCache struct {
	fetcher        Fetcher
	ttl            time.Duration
	refreshTimeout time.Duration
	now            func() time.Time
	logger         *charmlog.Logger
	metrics        *metrics.Metrics

	state atomic.Pointer[KnowledgeCacheState]
	group singleflight.Group
}

type KnowledgeCacheOption func(*KnowledgeCache)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) KnowledgeCacheOption {
	return func(c *KnowledgeCache) {
		c.now = now
	}
}

// WithRefreshTimeout bounds each shared refresh. The refresh outlives the
// caller that started it, so this deadline is the only one it observes.
func WithRefreshTimeout(d time.Duration) KnowledgeCacheOption {
	return func(c *KnowledgeCache) {
		c.refreshTimeout = d
	}
}

func WithCacheLogger(logger *charmlog.Logger) KnowledgeCacheOption {
	return func(c *KnowledgeCache) {
		c.logger = logger
	}
}

func WithCacheMetrics(m *metrics.Metrics) KnowledgeCacheOption {
	return func(c *KnowledgeCache) {
		c.metrics = m
	}
}

func NewKnowledgeCache(fetcher Fetcher, ttl time.Duration, opts ...KnowledgeCacheOption) *KnowledgeCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c := &KnowledgeCache{
		fetcher:        fetcher,
		ttl:            ttl,
		refreshTimeout: DefaultRefreshTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.refreshTimeout <= 0 {
		c.refreshTimeout = DefaultRefreshTimeout
	}
	if c.logger == nil {
		c.logger = logging.Discard()
	}
	return c
}

// GetChunks returns the cached chunks, refreshing them when stale. The
// returned slice is shared and must not be modified.
func (c *KnowledgeCache) GetChunks(ctx context.Context) ([]domain.KnowledgeChunk, error) {
	current := c.state.Load()
	if c.isFresh(current) {
		c.metrics.CacheEvent(metrics.CacheHit)
		return current.Chunks, nil
	}

	refreshed, err := c.refresh(ctx)
	if err == nil {
		return refreshed.Chunks, nil
	}

	if prev := c.state.Load(); prev != nil && len(prev.Chunks) > 0 {
		c.metrics.CacheEvent(metrics.CacheStale)
		c.logger.Warn("knowledge refresh failed, serving stale snapshot",
			"error", err,
			"fetched_at", prev.FetchedAt,
			"chunks", len(prev.Chunks))
		telemetry.AddBreadcrumb(ctx, "knowledge", "serving stale knowledge snapshot")
		return prev.Chunks, nil
	}

	c.metrics.CacheEvent(metrics.CacheColdFailure)
	c.logger.Error("knowledge source unavailable and cache is empty", "error", err)
	return nil, domain.NewFetchError(err)
}

// Refresh forces a fetch regardless of the TTL. A failure leaves the current
// snapshot untouched.
func (c *KnowledgeCache) Refresh(ctx context.Context) error {
	_, err := c.refresh(ctx)
	return err
}

// Snapshot returns the current state and whether one exists.
func (c *KnowledgeCache) Snapshot() (KnowledgeCacheState, bool) {
	current := c.state.Load()
	if current == nil {
		return KnowledgeCacheState{}, false
	}
	return *current, true
}

// TTL returns the configured freshness window.
func (c *KnowledgeCache) TTL() time.Duration {
	return c.ttl
}

func (c *KnowledgeCache) isFresh(state *KnowledgeCacheState) bool {
	return state != nil && len(state.Chunks) > 0 && c.now().Sub(state.FetchedAt) < c.ttl
}

// refresh runs one fetch shared by every concurrent caller. The fetch is
// detached from the first caller's cancellation so one disconnecting client
// cannot fail the others that joined it.
func (c *KnowledgeCache) refresh(ctx context.Context) (*KnowledgeCacheState, error) {
	v, err, _ := c.group.Do(refreshKey, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
		defer cancel()

		ctx, span := telemetry.StartSpan(ctx, "KnowledgeCache.Refresh", telemetry.SpanAttributes{
			Operation: "knowledge_refresh",
		})
		defer span.End()

		raw, err := c.fetcher.Fetch(ctx)
		if err != nil {
			span.SetError(err)
			return nil, err
		}

		chunks := ParseChunks(raw)
		if len(chunks) == 0 {
			span.SetError(domain.ErrNoChunks)
			return nil, domain.ErrNoChunks
		}

		next := &KnowledgeCacheState{Chunks: chunks, FetchedAt: c.now()}
		c.state.Store(next)
		c.metrics.CacheEvent(metrics.CacheRefreshed)
		c.logger.Info("knowledge cache refreshed", "chunks", len(chunks), "bytes", len(raw))
		return next, nil
	})
	if err != nil {
		return nil, err
	}

	state, ok := v.(*KnowledgeCacheState)
	if !ok {
		return nil, fmt.Errorf("unexpected refresh result %T", v)
	}
	return state, nil
}
