package spaceeye

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
)

// SnapshotStore persists the last good snapshot between runs.
type SnapshotStore interface {
	LoadSnapshot() (*CachedCatalog, bool, error)
	SaveSnapshot(snap *CachedCatalog) error
}

// CatalogCache holds at most one catalog snapshot and refreshes it through
// a Fetcher once it is older than FreshnessWindow.
//
// A failed refresh is returned to the caller even when an older snapshot is
// held; the old snapshot is kept untouched and the next call tries again.
type CatalogCache struct {
	fetcher Fetcher
	clock   clockwork.Clock
	store   SnapshotStore
	logger  *slog.Logger
	metrics *Metrics

	current atomic.Pointer[CachedCatalog]
	refresh singleflight.Group
}

type CacheOption func(*CatalogCache)

func WithCacheClock(clock clockwork.Clock) CacheOption {
	return func(c *CatalogCache) { c.clock = clock }
}

func WithSnapshotStore(store SnapshotStore) CacheOption {
	return func(c *CatalogCache) { c.store = store }
}

func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *CatalogCache) { c.logger = logger }
}

func WithCacheMetrics(m *Metrics) CacheOption {
	return func(c *CatalogCache) { c.metrics = m }
}

func NewCatalogCache(fetcher Fetcher, opts ...CacheOption) *CatalogCache {
	c := &CatalogCache{
		fetcher: fetcher,
		clock:   clockwork.NewRealClock(),
		logger:  discardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Restore loads the persisted snapshot, if any, so a fresh one from a
// previous run can be served without touching the network.
func (c *CatalogCache) Restore() error {
	if c.store == nil {
		return nil
	}
	snap, ok, err := c.store.LoadSnapshot()
	if err != nil || !ok {
		return err
	}
	if err := snap.Catalog.validate(); err != nil {
		c.logger.Warn("ignoring persisted catalog", "error", err)
		return nil
	}
	c.install(snap)
	return nil
}

// Peek returns the held snapshot without refreshing it.
func (c *CatalogCache) Peek() (*CachedCatalog, bool) {
	snap := c.current.Load()
	return snap, snap != nil
}

// Current returns a fresh snapshot, fetching one if needed. Concurrent
// callers share a single in-flight fetch. Cancelling ctx stops the wait,
// not the fetch.
func (c *CatalogCache) Current(ctx context.Context) (*CachedCatalog, error) {
	if snap := c.current.Load(); snap != nil && snap.FreshAt(c.clock.Now()) {
		c.metrics.catalogRequest("hit")
		return snap, nil
	}

	ch := c.refresh.DoChan("catalog", func() (any, error) {
		return c.refreshOnce(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			c.metrics.catalogRequest("error")
			return nil, res.Err
		}
		c.metrics.catalogRequest("refresh")
		return res.Val.(*CachedCatalog), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *CatalogCache) refreshOnce(ctx context.Context) (*CachedCatalog, error) {
	prev := c.current.Load()
	if prev != nil && prev.FreshAt(c.clock.Now()) {
		return prev, nil
	}

	log := c.logger.With("refresh_id", uuid.NewString())
	log.Debug("refreshing catalog")
	next, err := c.fetcher.Fetch(ctx, prev)
	if err != nil {
		log.Warn("catalog refresh failed", "error", err)
		return nil, err
	}

	got := c.install(next)
	if got != next {
		log.Debug("discarding older catalog", "downloaded_at", next.DownloadedAt, "held", got.DownloadedAt)
		return got, nil
	}
	log.Info("catalog refreshed", "etag", next.ETag, "satellites", len(next.Catalog.Satellites))

	if c.store != nil {
		if err := c.store.SaveSnapshot(next); err != nil {
			log.Warn("persist catalog", "error", err)
		}
	}
	return next, nil
}

// install swaps next in unless a newer snapshot is already held, and
// returns whichever snapshot ends up stored.
func (c *CatalogCache) install(next *CachedCatalog) *CachedCatalog {
	for {
		cur := c.current.Load()
		if cur != nil && cur.DownloadedAt > next.DownloadedAt {
			return cur
		}
		if c.current.CompareAndSwap(cur, next) {
			return next
		}
	}
}
